package usecase

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"assessment-relay/internal/domain"
)

const (
	baseLeadScore          = 25
	maxLeadScore           = 100
	highFitBonus           = 15
	mediumFitBonus         = 8
	painPointKeywordBonus  = 10
	noToolingBonus         = 10
	detailedAnswerBonus    = 20
	detailedAnswerMinRunes = 50
)

type band struct {
	min    float64
	points int
}

// Bands are ordered highest first; the first satisfied band wins.
var (
	timeValueBands = []band{
		{min: 100, points: 30},
		{min: 50, points: 20},
		{min: 25, points: 10},
	}
	timeSavingsBands = []band{
		{min: 10, points: 25},
		{min: 5, points: 15},
		{min: 2, points: 10},
	}
)

var (
	highFitBusinesses = []string{
		"dental", "dentist", "orthodont", "medical", "clinic", "chiropract", "physical therap",
		"veterinar", "med spa", "medspa", "day spa", "salon", "law firm", "lawyer", "legal", "attorney",
		"real estate", "realtor", "insurance", "accounting", "bookkeep", "property management",
	}
	mediumFitBusinesses = []string{
		"restaurant", "cafe", "retail", "shop", "store", "contractor", "construction", "plumb",
		"hvac", "electric", "landscap", "cleaning", "fitness", "gym", "consult", "agency",
		"marketing", "auto", "repair",
	}
	automationPainPoints = []string{
		"manual", "schedul", "appointment", "booking", "remind", "follow-up", "follow up",
		"followup", "data entry", "paperwork", "repetitive", "no-show", "no show", "invoic",
		"phone call", "missed call",
	}
	noToolingSolutions = []string{
		"manual", "none", "nothing", "spreadsheet", "excel", "google sheet", "paper",
		"by hand", "pen and", "notebook", "whiteboard",
	}
)

var (
	moneyPattern = regexp.MustCompile(`\$?\s*(\d{1,3}(?:,\d{3})+|\d+)(?:\.(\d+))?`)
	hoursPattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:hours?|hrs?)\b`)
	numPattern   = regexp.MustCompile(`\d+(?:\.\d+)?`)
)

// ScoreLead derives a 0-100 lead score from the intake answers. It is pure
// and deterministic.
func ScoreLead(intake domain.BusinessIntake) int {
	score := baseLeadScore
	score += bandPoints(ExtractTimeValue(intake.TimeValue), timeValueBands)
	score += bandPoints(ExtractTimeSavings(intake.TimeSavings), timeSavingsBands)

	businessType := strings.ToLower(intake.BusinessType)
	switch {
	case containsAny(businessType, highFitBusinesses):
		score += highFitBonus
	case containsAny(businessType, mediumFitBusinesses):
		score += mediumFitBonus
	}

	painPoints := strings.ToLower(intake.PainPoints)
	if containsAny(painPoints, automationPainPoints) {
		score += painPointKeywordBonus
	}
	if containsAny(strings.ToLower(intake.CurrentSolution), noToolingSolutions) {
		score += noToolingBonus
	}
	if utf8.RuneCountInString(strings.TrimSpace(intake.PainPoints)) > detailedAnswerMinRunes {
		score += detailedAnswerBonus
	}

	return clamp(score, 0, maxLeadScore)
}

// ExtractTimeValue returns the first monetary amount in text, e.g.
// "$1,250.00 per hour" -> 1250. Unparseable text yields 0.
func ExtractTimeValue(text string) float64 {
	m := moneyPattern.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	num := strings.ReplaceAll(m[1], ",", "")
	if m[2] != "" {
		num += "." + m[2]
	}
	return parseFloat(num)
}

// ExtractTimeSavings returns an hour count from text, preferring a number
// followed by "hour"/"hr" over the first bare number.
func ExtractTimeSavings(text string) float64 {
	if m := hoursPattern.FindStringSubmatch(text); m != nil {
		return parseFloat(m[1])
	}
	return parseFloat(numPattern.FindString(text))
}

func bandPoints(v float64, bands []band) int {
	for _, b := range bands {
		if v >= b.min {
			return b.points
		}
	}
	return 0
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

func parseFloat(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

package domain

// BusinessIntake holds the free-text answers collected by the assessment.
type BusinessIntake struct {
	BusinessType     string `json:"business_type"`
	BusinessLocation string `json:"business_location"`
	PainPoints       string `json:"pain_points"`
	CurrentSolution  string `json:"current_solution"`
	TimeSavings      string `json:"time_savings"`
	TimeValue        string `json:"time_value"`
}

// AssessmentRecord is a finalized assessment submitted with a consultation request.
type AssessmentRecord struct {
	ContactName         string         `json:"contactName"`
	BusinessName        string         `json:"businessName"`
	ContactEmail        string         `json:"contactEmail"`
	ContactPhone        string         `json:"contactPhone"`
	BusinessData        BusinessIntake `json:"businessData"`
	LeadScore           int            `json:"leadScore"`
	ConversationHistory string         `json:"conversationHistory"`
	SolutionProposal    string         `json:"solutionProposal"`
	TokensUsed          int            `json:"tokensUsed"`
	DataCompleteness    float64        `json:"dataCompleteness"`
}

// WebhookPayload is the flattened projection of an AssessmentRecord sent to
// the outbound webhook.
type WebhookPayload struct {
	Timestamp    string `json:"timestamp"`
	SubmissionID string `json:"submission_id"`
	Source       string `json:"source"`
	AIProvider   string `json:"ai_provider"`

	ContactName  string `json:"contactName"`
	BusinessName string `json:"businessName"`
	ContactEmail string `json:"contactEmail"`
	ContactPhone string `json:"contactPhone"`

	BusinessType     string `json:"businessType"`
	BusinessLocation string `json:"businessLocation"`
	PainPoints       string `json:"painPoints"`
	CurrentSolution  string `json:"currentSolution"`
	TimeSavings      string `json:"timeSavings"`
	TimeValue        string `json:"timeValue"`

	LeadScore             int     `json:"lead_score"`
	ConversationSummary   string  `json:"conversation_summary"`
	SolutionProposal      string  `json:"solution_proposal"`
	TokensUsed            int     `json:"tokens_used"`
	DataCompleteness      float64 `json:"data_completeness"`
	ConsultationRequested bool    `json:"consultation_requested"`
}

// DispatchResult is the outcome of one webhook delivery attempt.
type DispatchResult struct {
	Skipped    bool
	StatusCode int
	Err        error
}

package usecase

import (
	"context"
	"errors"
	"log/slog"

	"assessment-relay/internal/domain"
)

// Dispatcher delivers a finalized assessment. It never fails the caller;
// the outcome is reported in the result.
type Dispatcher interface {
	Dispatch(ctx context.Context, record domain.AssessmentRecord) domain.DispatchResult
}

type ConsultationOutput struct {
	LeadScore int
	Delivery  domain.DispatchResult
}

// ConsultationService handles the terminal "consultation requested"
// submission: it scores the lead and hands the record to the dispatcher.
type ConsultationService struct {
	dispatcher Dispatcher
	logger     *slog.Logger
}

func NewConsultationService(d Dispatcher, logger *slog.Logger) (*ConsultationService, error) {
	if d == nil {
		return nil, errors.New("usecase: dispatcher must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ConsultationService{dispatcher: d, logger: logger}, nil
}

func (s *ConsultationService) Submit(ctx context.Context, record domain.AssessmentRecord) ConsultationOutput {
	record.LeadScore = ScoreLead(record.BusinessData)

	res := s.dispatcher.Dispatch(ctx, record)
	switch {
	case res.Skipped:
		s.logger.InfoContext(ctx, "no webhook configured, skipping dispatch", "lead_score", record.LeadScore)
	case res.Err != nil:
		s.logger.ErrorContext(ctx, "webhook dispatch failed",
			"lead_score", record.LeadScore, "status", res.StatusCode, "err", res.Err)
	default:
		s.logger.InfoContext(ctx, "webhook dispatched",
			"lead_score", record.LeadScore, "status", res.StatusCode)
	}

	return ConsultationOutput{LeadScore: record.LeadScore, Delivery: res}
}

package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"assessment-relay/internal/domain"
	"assessment-relay/internal/integrations/llm"
)

type LLMClient interface {
	Provider() string
	CheckCredentials(ctx context.Context) error
	Send(ctx context.Context, model string, req domain.ConversationRequest) ([]byte, error)
}

// Models selects the primary model and the optional same-provider fallback
// tried once when the primary is reported as not found.
type Models struct {
	Primary         string
	Fallback        string
	FallbackEnabled bool
}

func (m Models) fallbackFor(model string) (string, bool) {
	fb := strings.TrimSpace(m.Fallback)
	if !m.FallbackEnabled || fb == "" || fb == model {
		return "", false
	}
	return fb, true
}

// ChatService relays one conversation turn to the configured provider and
// normalizes the reply.
type ChatService struct {
	llm    LLMClient
	models Models
	logger *slog.Logger
}

func NewChatService(client LLMClient, models Models, logger *slog.Logger) (*ChatService, error) {
	if client == nil {
		return nil, errors.New("usecase: llm client must not be nil")
	}
	models.Primary = strings.TrimSpace(models.Primary)
	if models.Primary == "" {
		return nil, errors.New("usecase: primary model must not be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatService{llm: client, models: models, logger: logger}, nil
}

// Provider names the upstream provider serving replies.
func (s *ChatService) Provider() string {
	return s.llm.Provider()
}

func (s *ChatService) Chat(ctx context.Context, req domain.ConversationRequest) (domain.NormalizedReply, error) {
	if err := validateConversation(req); err != nil {
		return domain.NormalizedReply{}, err
	}
	if err := s.llm.CheckCredentials(ctx); err != nil {
		return domain.NormalizedReply{}, newError(ErrorConfig, "invalid_credentials", err)
	}

	model := s.models.Primary
	raw, err := s.llm.Send(ctx, model, req)
	if err != nil && llm.IsModelNotFound(err) {
		if fallback, ok := s.models.fallbackFor(model); ok {
			s.logger.WarnContext(ctx, "primary model unavailable, using fallback",
				"provider", s.llm.Provider(), "model", model, "fallback", fallback)
			model = fallback
			raw, err = s.llm.Send(ctx, model, req)
		}
	}
	if err != nil {
		if errors.Is(err, llm.ErrCredential) {
			return domain.NormalizedReply{}, newError(ErrorConfig, "invalid_credentials", err)
		}
		return domain.NormalizedReply{}, newError(ErrorUpstream, "provider_error", err)
	}

	reply, err := llm.DecodeReply(raw)
	if err != nil {
		return domain.NormalizedReply{}, newError(ErrorUpstream, "unrecognized_response", err)
	}

	s.logger.InfoContext(ctx, "provider reply received",
		"provider", s.llm.Provider(), "model", model, "tokens", reply.Usage.Total())

	return domain.NormalizedReply{
		Text:      reply.Text,
		Usage:     reply.Usage,
		ModelUsed: model,
	}, nil
}

func validateConversation(req domain.ConversationRequest) error {
	if len(req.Messages) == 0 {
		return newError(ErrorValidation, "empty_messages", nil)
	}
	if req.MaxTokens <= 0 {
		return newError(ErrorValidation, "invalid_max_tokens", nil)
	}
	for _, m := range req.Messages {
		if m.Role != domain.RoleUser && m.Role != domain.RoleAssistant {
			return newError(ErrorValidation, "invalid_message_role", nil)
		}
	}
	return nil
}

package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"assessment-relay/internal/domain"
	"assessment-relay/internal/usecase"
)

const (
	correlationHeader       = "X-Correlation-Id"
	defaultMaxTokens        = 200
	consultationSentMessage = "Assessment data sent successfully"
)

type ChatUseCase interface {
	Chat(ctx context.Context, req domain.ConversationRequest) (domain.NormalizedReply, error)
}

type ConsultationUseCase interface {
	Submit(ctx context.Context, record domain.AssessmentRecord) usecase.ConsultationOutput
}

type BodyValidator interface {
	ValidateConversation(body []byte) error
	ValidateConsultation(body []byte) error
}

// Handler serves the assessment endpoint behind API Gateway.
type Handler struct {
	chat             ChatUseCase
	consult          ConsultationUseCase
	validator        BodyValidator
	allowedOrigin    string
	defaultMaxTokens int
	logger           *slog.Logger
}

type Option func(*Handler)

func WithAllowedOrigin(origin string) Option {
	return func(h *Handler) {
		if origin = strings.TrimSpace(origin); origin != "" {
			h.allowedOrigin = origin
		}
	}
}

// WithDefaultMaxTokens sets the budget used when a request omits maxTokens.
func WithDefaultMaxTokens(n int) Option {
	return func(h *Handler) {
		if n > 0 {
			h.defaultMaxTokens = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

func NewHandler(chat ChatUseCase, consult ConsultationUseCase, validator BodyValidator, opts ...Option) (*Handler, error) {
	if chat == nil {
		return nil, errors.New("handler: chat use case must not be nil")
	}
	if consult == nil {
		return nil, errors.New("handler: consultation use case must not be nil")
	}
	if validator == nil {
		return nil, errors.New("handler: validator must not be nil")
	}
	h := &Handler{
		chat:             chat,
		consult:          consult,
		validator:        validator,
		allowedOrigin:    "*",
		defaultMaxTokens: defaultMaxTokens,
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

type requestBody struct {
	SystemPrompt          string                   `json:"systemPrompt"`
	Messages              []domain.ChatMessage     `json:"messages"`
	MaxTokens             *int                     `json:"maxTokens"`
	IsConsultationRequest bool                     `json:"isConsultationRequest"`
	AssessmentData        *domain.AssessmentRecord `json:"assessmentData"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type usageBody struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

type chatResponse struct {
	Content   []contentBlock `json:"content"`
	Usage     usageBody      `json:"usage"`
	ModelUsed string         `json:"model_used"`
}

type consultationResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	LeadScore int    `json:"lead_score"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	corrID := headerValue(req.Headers, correlationHeader)
	if corrID == "" {
		corrID = newCorrelationID()
	}
	headers := h.responseHeaders(corrID)
	logger := h.logger.With("correlation_id", corrID)

	switch req.HTTPMethod {
	case http.MethodOptions:
		return events.APIGatewayProxyResponse{StatusCode: http.StatusOK, Headers: headers}, nil
	case http.MethodPost:
	default:
		return jsonResponse(http.StatusMethodNotAllowed, headers, errorResponse{Error: "Method not allowed"}), nil
	}

	body := []byte(req.Body)
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			return h.errorResponse(ctx, logger, headers, usecase.NewValidationError("invalid_base64_body", err)), nil
		}
		body = decoded
	}

	var in requestBody
	if err := json.Unmarshal(body, &in); err != nil {
		return h.errorResponse(ctx, logger, headers, usecase.NewValidationError("invalid_json", err)), nil
	}

	if in.IsConsultationRequest {
		return h.handleConsultation(ctx, logger, headers, body, in), nil
	}
	return h.handleConversation(ctx, logger, headers, body, in), nil
}

func (h *Handler) handleConversation(ctx context.Context, logger *slog.Logger, headers map[string]string, raw []byte, in requestBody) events.APIGatewayProxyResponse {
	if err := h.validator.ValidateConversation(raw); err != nil {
		return h.errorResponse(ctx, logger, headers, usecase.NewValidationError("schema_violation", err))
	}

	maxTokens := h.defaultMaxTokens
	if in.MaxTokens != nil {
		maxTokens = *in.MaxTokens
	}
	reply, err := h.chat.Chat(ctx, domain.ConversationRequest{
		SystemPrompt: in.SystemPrompt,
		Messages:     in.Messages,
		MaxTokens:    maxTokens,
	})
	if err != nil {
		return h.errorResponse(ctx, logger, headers, err)
	}

	logger.InfoContext(ctx, "conversation turn served", "model_used", reply.ModelUsed, "turns", len(in.Messages))
	return jsonResponse(http.StatusOK, headers, chatResponse{
		Content: []contentBlock{{Type: "text", Text: reply.Text}},
		Usage: usageBody{
			InputTokens:  reply.Usage.InputTokens,
			OutputTokens: reply.Usage.OutputTokens,
			TotalTokens:  reply.Usage.Total(),
		},
		ModelUsed: reply.ModelUsed,
	})
}

func (h *Handler) handleConsultation(ctx context.Context, logger *slog.Logger, headers map[string]string, raw []byte, in requestBody) events.APIGatewayProxyResponse {
	if err := h.validator.ValidateConsultation(raw); err != nil {
		return h.errorResponse(ctx, logger, headers, usecase.NewValidationError("schema_violation", err))
	}
	if in.AssessmentData == nil {
		return h.errorResponse(ctx, logger, headers, usecase.NewValidationError("missing_assessment_data", nil))
	}

	// Delivery outcome is logged by the use case and does not change the response.
	out := h.consult.Submit(ctx, *in.AssessmentData)
	logger.InfoContext(ctx, "consultation request processed",
		"lead_score", out.LeadScore, "webhook_skipped", out.Delivery.Skipped, "webhook_ok", out.Delivery.Err == nil)

	return jsonResponse(http.StatusOK, headers, consultationResponse{
		Success:   true,
		Message:   consultationSentMessage,
		LeadScore: out.LeadScore,
	})
}

func (h *Handler) errorResponse(ctx context.Context, logger *slog.Logger, headers map[string]string, err error) events.APIGatewayProxyResponse {
	code := usecase.CodeOf(err)
	status, message := statusFor(code)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(ctx, "request failed", "code", code, "err", err)
	} else {
		logger.WarnContext(ctx, "request rejected", "code", code, "err", err)
	}
	return jsonResponse(status, headers, errorResponse{
		Error:   message,
		Code:    string(code),
		Details: err.Error(),
	})
}

func statusFor(code usecase.ErrorCode) (int, string) {
	switch code {
	case usecase.ErrorValidation:
		return http.StatusBadRequest, "Invalid request"
	case usecase.ErrorUpstream:
		return http.StatusBadGateway, "Upstream provider error"
	case usecase.ErrorConfig:
		return http.StatusInternalServerError, "Service misconfigured"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func (h *Handler) responseHeaders(corrID string) map[string]string {
	return map[string]string{
		"Content-Type":                 "application/json",
		"Access-Control-Allow-Origin":  h.allowedOrigin,
		"Access-Control-Allow-Headers": "Content-Type, X-Correlation-Id",
		"Access-Control-Allow-Methods": "POST, OPTIONS",
		correlationHeader:              corrID,
	}
}

func jsonResponse(status int, headers map[string]string, v any) events.APIGatewayProxyResponse {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"Internal server error"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    headers,
		Body:       string(body),
	}
}

func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

var newCorrelationID = func() string {
	return uuid.NewString()
}

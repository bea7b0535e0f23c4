package llm

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"assessment-relay/internal/domain"
)

const (
	ProviderAnthropic = "anthropic"

	anthropicBaseURL   = "https://api.anthropic.com"
	anthropicVersion   = "2023-06-01"
	anthropicKeyPrefix = "sk-ant-"
	anthropicNotFound  = "not_found_error"
	anthropicTypeMsg   = "message"
	anthropicBlockText = "text"
)

// messagesRequest is the Anthropic Messages API request. The system prompt
// has its own slot and is not sent as a turn.
type messagesRequest struct {
	Model       string               `json:"model"`
	MaxTokens   int                  `json:"max_tokens"`
	System      string               `json:"system,omitempty"`
	Messages    []domain.ChatMessage `json:"messages"`
	Temperature *float64             `json:"temperature,omitempty"`
}

type messagesResponse struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type anthropicFormat struct{}

func (anthropicFormat) name() string { return ProviderAnthropic }

func (anthropicFormat) endpoint(baseURL string) string {
	return joinURL(baseURL, anthropicBaseURL, "/messages")
}

func (anthropicFormat) authorize(h http.Header, apiKey string) {
	h.Set("x-api-key", apiKey)
	h.Set("anthropic-version", anthropicVersion)
}

func (anthropicFormat) validateKey(apiKey string) error {
	if err := validateKeyShape(apiKey); err != nil {
		return err
	}
	if !strings.HasPrefix(apiKey, anthropicKeyPrefix) {
		return fmt.Errorf("%w: anthropic key should start with %s", ErrCredential, anthropicKeyPrefix)
	}
	return nil
}

func (anthropicFormat) encode(model string, req domain.ConversationRequest, temperature *float64) ([]byte, error) {
	return json.Marshal(messagesRequest{
		Model:       model,
		MaxTokens:   req.MaxTokens,
		System:      req.SystemPrompt,
		Messages:    req.Messages,
		Temperature: temperature,
	})
}

// decodeAnthropic matches the Messages API reply shape.
func decodeAnthropic(raw []byte) (Reply, bool) {
	var probe struct {
		Type    string          `json:"type"`
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return Reply{}, false
	}
	if probe.Type != anthropicTypeMsg || !isJSONArray(probe.Content) {
		return Reply{}, false
	}

	var resp messagesResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Reply{}, false
	}
	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == anthropicBlockText {
			sb.WriteString(block.Text)
		}
	}
	return Reply{
		Text:  sb.String(),
		Model: resp.Model,
		Usage: domain.Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		},
	}, true
}

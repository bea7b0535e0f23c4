package llm

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"assessment-relay/internal/domain"
)

const (
	ProviderOpenAI = "openai"

	openAIBaseURL   = "https://api.openai.com/v1"
	openAIKeyPrefix = "sk-"
	openAINotFound  = "model_not_found"
)

// Reasoning model families reject any temperature other than the default.
var fixedTemperaturePrefixes = []string{"o1", "o3", "o4", "gpt-5"}

// chatRequest is the Chat Completions request. The system prompt is sent as
// the first turn, and the budget goes in max_completion_tokens since newer
// models reject max_tokens.
type chatRequest struct {
	Model               string               `json:"model"`
	Messages            []domain.ChatMessage `json:"messages"`
	MaxCompletionTokens int                  `json:"max_completion_tokens"`
	Temperature         *float64             `json:"temperature,omitempty"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message *struct {
			Role    string  `json:"role"`
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

type openAIFormat struct{}

func (openAIFormat) name() string { return ProviderOpenAI }

func (openAIFormat) endpoint(baseURL string) string {
	return joinURL(baseURL, openAIBaseURL, "/chat/completions")
}

func (openAIFormat) authorize(h http.Header, apiKey string) {
	h.Set("Authorization", "Bearer "+apiKey)
}

func (openAIFormat) validateKey(apiKey string) error {
	if err := validateKeyShape(apiKey); err != nil {
		return err
	}
	if !strings.HasPrefix(apiKey, openAIKeyPrefix) {
		return fmt.Errorf("%w: openai key should start with %s", ErrCredential, openAIKeyPrefix)
	}
	return nil
}

func (openAIFormat) encode(model string, req domain.ConversationRequest, temperature *float64) ([]byte, error) {
	messages := make([]domain.ChatMessage, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		messages = append(messages, domain.ChatMessage{Role: domain.RoleSystem, Content: req.SystemPrompt})
	}
	messages = append(messages, req.Messages...)

	if fixedTemperature(model) {
		temperature = nil
	}
	return json.Marshal(chatRequest{
		Model:               model,
		Messages:            messages,
		MaxCompletionTokens: req.MaxTokens,
		Temperature:         temperature,
	})
}

func fixedTemperature(model string) bool {
	model = strings.ToLower(model)
	for _, p := range fixedTemperaturePrefixes {
		if strings.HasPrefix(model, p) {
			return true
		}
	}
	return false
}

// decodeOpenAI matches the Chat Completions reply shape.
func decodeOpenAI(raw []byte) (Reply, bool) {
	var resp chatResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Reply{}, false
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message == nil {
		return Reply{}, false
	}
	text := ""
	if c := resp.Choices[0].Message.Content; c != nil {
		text = *c
	}
	return Reply{
		Text:  text,
		Model: resp.Model,
		Usage: domain.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}, true
}

package domain

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one conversation turn. The order of a []ChatMessage is
// chronological and is preserved all the way to the provider.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ConversationRequest is a single conversational turn request from the widget.
type ConversationRequest struct {
	SystemPrompt string
	Messages     []ChatMessage
	MaxTokens    int
}

// Usage is the token accounting reported by the provider.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

func (u Usage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// NormalizedReply is the provider-independent reply shape.
type NormalizedReply struct {
	Text      string
	Usage     Usage
	ModelUsed string
}

package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode"
)

// ErrCredential marks a missing or malformed provider credential.
var ErrCredential = errors.New("llm: invalid credentials")

// HTTPStatusError captures a non-2xx upstream response.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("llm: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// UnrecognizedReplyError is returned when a 2xx body matches no known
// provider response schema.
type UnrecognizedReplyError struct {
	Raw string
}

func (e *UnrecognizedReplyError) Error() string {
	return "llm: unrecognized response shape: " + e.Raw
}

// upstreamError is the error envelope used by both providers:
//
//	anthropic: {"type":"error","error":{"type":"not_found_error","message":"model: x"}}
//	openai:    {"error":{"code":"model_not_found","type":"invalid_request_error"}}
type upstreamError struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// IsModelNotFound reports whether err is an upstream response saying the
// requested model does not exist or is not available to this key.
func IsModelNotFound(err error) bool {
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) {
		return false
	}
	var env upstreamError
	if json.Unmarshal([]byte(statusErr.Body), &env) != nil {
		return false
	}
	if env.Error.Code == openAINotFound {
		return true
	}
	return statusErr.StatusCode == http.StatusNotFound && env.Error.Type == anthropicNotFound
}

func validateKeyShape(apiKey string) error {
	if apiKey == "" {
		return fmt.Errorf("%w: api key is not set", ErrCredential)
	}
	if strings.ContainsFunc(apiKey, unicode.IsSpace) {
		return fmt.Errorf("%w: api key contains whitespace", ErrCredential)
	}
	return nil
}

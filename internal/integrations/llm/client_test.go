package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"assessment-relay/internal/domain"
)

func sampleRequest() domain.ConversationRequest {
	return domain.ConversationRequest{
		SystemPrompt: "You are an automation consultant.",
		Messages: []domain.ChatMessage{
			{Role: domain.RoleUser, Content: "hi"},
			{Role: domain.RoleAssistant, Content: "hello, what do you do?"},
			{Role: domain.RoleUser, Content: "I run a dental clinic"},
		},
		MaxTokens: 50,
	}
}

func newTestClient(t *testing.T, provider, key string, srv *httptest.Server, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{
		WithBaseURL(srv.URL),
		WithHTTPClient(&http.Client{Timeout: 2 * time.Second}),
	}, opts...)
	c, err := NewClient(provider, StaticKey(key), opts...)
	require.NoError(t, err)
	return c
}

func TestJoinURL(t *testing.T) {
	cases := []struct {
		base string
		want string
	}{
		{"https://api.openai.com/v1", "https://api.openai.com/v1/chat/completions"},
		{"https://api.openai.com/v1/", "https://api.openai.com/v1/chat/completions"},
		{"http://localhost:8080", "http://localhost:8080/v1/chat/completions"},
		{"", "https://api.openai.com/v1/chat/completions"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, openAIFormat{}.endpoint(tc.base), "base=%q", tc.base)
	}
	require.Equal(t, "https://api.anthropic.com/v1/messages", anthropicFormat{}.endpoint(""))
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(ProviderAnthropic, nil)
	require.ErrorContains(t, err, "nil")

	_, err = NewClient("gemini", StaticKey("k"))
	require.ErrorContains(t, err, "unsupported provider")

	c, err := NewClient(" OpenAI ", StaticKey("sk-x"))
	require.NoError(t, err)
	require.Equal(t, ProviderOpenAI, c.Provider())
}

func TestCheckCredentials(t *testing.T) {
	cases := []struct {
		name     string
		provider string
		key      string
		ok       bool
	}{
		{name: "anthropic ok", provider: ProviderAnthropic, key: "sk-ant-api03-abc", ok: true},
		{name: "anthropic wrong prefix", provider: ProviderAnthropic, key: "sk-proj-abc"},
		{name: "anthropic empty", provider: ProviderAnthropic, key: ""},
		{name: "openai ok", provider: ProviderOpenAI, key: "sk-proj-abc", ok: true},
		{name: "openai wrong prefix", provider: ProviderOpenAI, key: "pk-abc"},
		{name: "whitespace inside", provider: ProviderOpenAI, key: "sk-abc def"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := NewClient(tc.provider, StaticKey(tc.key))
			require.NoError(t, err)
			err = c.CheckCredentials(context.Background())
			if tc.ok {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrCredential)
		})
	}
}

func TestSend_AnthropicWireShape(t *testing.T) {
	temp := 0.3
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/messages", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "sk-ant-test", r.Header.Get("x-api-key"))
		require.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		require.Empty(t, r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "claude-test", body["model"])
		require.EqualValues(t, 50, body["max_tokens"])
		require.Equal(t, "You are an automation consultant.", body["system"])
		require.InDelta(t, 0.3, body["temperature"], 1e-9)
		require.NotContains(t, body, "max_completion_tokens")

		msgs := body["messages"].([]any)
		require.Len(t, msgs, 3)
		require.Equal(t, "user", msgs[0].(map[string]any)["role"])
		require.Equal(t, "I run a dental clinic", msgs[2].(map[string]any)["content"])

		_, _ = w.Write([]byte(`{"type":"message","content":[{"type":"text","text":"ok"}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, ProviderAnthropic, "sk-ant-test", srv, WithTemperature(&temp))
	raw, err := c.Send(context.Background(), "claude-test", sampleRequest())
	require.NoError(t, err)
	require.Contains(t, string(raw), `"ok"`)
}

func TestSend_AnthropicOmitsEmptySystem(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NotContains(t, string(raw), `"system"`)
		require.NotContains(t, string(raw), `"temperature"`)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	req := sampleRequest()
	req.SystemPrompt = ""
	c := newTestClient(t, ProviderAnthropic, "sk-ant-test", srv)
	_, err := c.Send(context.Background(), "claude-test", req)
	require.NoError(t, err)
}

func TestSend_OpenAIWireShape(t *testing.T) {
	temp := 0.7
	cases := []struct {
		model    string
		wantTemp bool
	}{
		{model: "gpt-4o-mini", wantTemp: true},
		{model: "gpt-5-mini", wantTemp: false},
		{model: "o3-mini", wantTemp: false},
	}
	for _, tc := range cases {
		t.Run(tc.model, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "/v1/chat/completions", r.URL.Path)
				require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
				require.Empty(t, r.Header.Get("x-api-key"))

				var body map[string]any
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				require.Equal(t, tc.model, body["model"])
				require.EqualValues(t, 50, body["max_completion_tokens"])
				require.NotContains(t, body, "max_tokens")
				require.NotContains(t, body, "system")
				_, hasTemp := body["temperature"]
				require.Equal(t, tc.wantTemp, hasTemp)

				msgs := body["messages"].([]any)
				require.Len(t, msgs, 4)
				first := msgs[0].(map[string]any)
				require.Equal(t, "system", first["role"])
				require.Equal(t, "You are an automation consultant.", first["content"])
				require.Equal(t, "hi", msgs[1].(map[string]any)["content"])
				_, _ = w.Write([]byte(`{"choices":[]}`))
			}))
			defer srv.Close()

			c := newTestClient(t, ProviderOpenAI, "sk-test", srv, WithTemperature(&temp))
			_, err := c.Send(context.Background(), tc.model, sampleRequest())
			require.NoError(t, err)
		})
	}
}

func TestSend_OpenAIWithoutSystemPrompt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Messages, 3)
		require.Equal(t, domain.RoleUser, body.Messages[0].Role)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	req := sampleRequest()
	req.SystemPrompt = ""
	c := newTestClient(t, ProviderOpenAI, "sk-test", srv)
	_, err := c.Send(context.Background(), "gpt-4o", req)
	require.NoError(t, err)
}

func TestSend_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"type":"rate_limit_error"}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, ProviderAnthropic, "sk-ant-test", srv)
	_, err := c.Send(context.Background(), "claude-test", sampleRequest())
	require.Error(t, err)
	require.Contains(t, err.Error(), "unexpected status 429")

	var statusErr *HTTPStatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, 429, statusErr.HTTPStatusCode())
	require.Contains(t, statusErr.Body, "rate_limit_error")
}

func TestSend_InvalidKeyMakesNoRequest(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c := newTestClient(t, ProviderAnthropic, "not-a-key", srv)
	_, err := c.Send(context.Background(), "claude-test", sampleRequest())
	require.ErrorIs(t, err, ErrCredential)
	require.False(t, called)
}

func TestSend_EmptyModel(t *testing.T) {
	c, err := NewClient(ProviderOpenAI, StaticKey("sk-test"))
	require.NoError(t, err)
	_, err = c.Send(context.Background(), " ", sampleRequest())
	require.ErrorContains(t, err, "model")
}

func TestSend_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := newTestClient(t, ProviderOpenAI, "sk-test", srv, WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}))
	_, err := c.Send(context.Background(), "gpt-4o", sampleRequest())
	require.ErrorContains(t, err, "request failed")
}

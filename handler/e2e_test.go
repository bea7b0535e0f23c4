package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"assessment-relay/internal/integrations/llm"
	"assessment-relay/internal/integrations/webhook"
	"assessment-relay/internal/usecase"
	"assessment-relay/internal/validation"
)

func newE2EHandler(t *testing.T, providerURL, webhookURL string) *Handler {
	t.Helper()
	client, err := llm.NewClient(llm.ProviderAnthropic, llm.StaticKey("sk-ant-test"),
		llm.WithBaseURL(providerURL),
		llm.WithHTTPClient(&http.Client{Timeout: 2 * time.Second}),
	)
	require.NoError(t, err)

	chat, err := usecase.NewChatService(client, usecase.Models{
		Primary:         "claude-sonnet-4-20250514",
		Fallback:        "claude-3-5-sonnet-20241022",
		FallbackEnabled: true,
	}, nil)
	require.NoError(t, err)

	consult, err := usecase.NewConsultationService(webhook.New(webhookURL, webhook.WithProvider(client.Provider())), nil)
	require.NoError(t, err)

	v, err := validation.New()
	require.NoError(t, err)
	h, err := NewHandler(chat, consult, v)
	require.NoError(t, err)
	return h
}

func TestEndToEnd_Conversation(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "x", body["system"])
		require.EqualValues(t, 50, body["max_tokens"])
		_, _ = w.Write([]byte(`{"type":"message","content":[{"type":"text","text":"hello"}],"usage":{"input_tokens":7,"output_tokens":1}}`))
	}))
	defer provider.Close()

	h := newE2EHandler(t, provider.URL, "")
	resp, err := h.Handle(context.Background(), makeEvent(http.MethodPost,
		`{"messages":[{"role":"user","content":"hi"}],"systemPrompt":"x","maxTokens":50}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := parseBody[chatResponse](t, resp.Body)
	require.Equal(t, "hello", out.Content[0].Text)
	require.Equal(t, 8, out.Usage.TotalTokens)
	require.Equal(t, "claude-sonnet-4-20250514", out.ModelUsed)
}

func TestEndToEnd_FallbackModel(t *testing.T) {
	var calls atomic.Int32
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["model"] == "claude-sonnet-4-20250514" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"type":"error","error":{"type":"not_found_error","message":"model: claude-sonnet-4-20250514"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"type":"message","content":[{"type":"text","text":"from fallback"}]}`))
	}))
	defer provider.Close()

	h := newE2EHandler(t, provider.URL, "")
	resp, err := h.Handle(context.Background(), makeEvent(http.MethodPost, `{"messages":[{"role":"user","content":"hi"}]}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.EqualValues(t, 2, calls.Load())

	out := parseBody[chatResponse](t, resp.Body)
	require.Equal(t, "from fallback", out.Content[0].Text)
	require.Equal(t, "claude-3-5-sonnet-20241022", out.ModelUsed)
}

func TestEndToEnd_ConsultationWebhookFailureStillSucceeds(t *testing.T) {
	var received map[string]any
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer hook.Close()

	h := newE2EHandler(t, "http://127.0.0.1:1", hook.URL)
	resp, err := h.Handle(context.Background(), makeEvent(http.MethodPost, `{
		"isConsultationRequest": true,
		"assessmentData": {
			"contactName": "Pat",
			"leadScore": 1,
			"businessData": {"business_type": "Law firm", "time_value": "$200", "time_savings": "10 hours"}
		}
	}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := parseBody[consultationResponse](t, resp.Body)
	require.True(t, out.Success)
	require.Equal(t, 95, out.LeadScore)
	require.EqualValues(t, 95, received["lead_score"])
	require.Equal(t, "anthropic", received["ai_provider"])
	require.Equal(t, "Law firm", received["businessType"])
}

func TestEndToEnd_MissingCredential(t *testing.T) {
	client, err := llm.NewClient(llm.ProviderAnthropic, llm.StaticKey(""))
	require.NoError(t, err)
	chat, err := usecase.NewChatService(client, usecase.Models{Primary: "m"}, nil)
	require.NoError(t, err)
	consult, err := usecase.NewConsultationService(webhook.New(""), nil)
	require.NoError(t, err)
	v, err := validation.New()
	require.NoError(t, err)
	h, err := NewHandler(chat, consult, v)
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), makeEvent(http.MethodPost, `{"messages":[{"role":"user","content":"hi"}]}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	out := parseBody[errorResponse](t, resp.Body)
	require.Equal(t, string(usecase.ErrorConfig), out.Code)
	require.Contains(t, out.Details, "api key is not set")
}

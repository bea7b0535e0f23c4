package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func newValidator(t *testing.T) *Validator {
	t.Helper()
	v, err := New()
	require.NoError(t, err)
	return v
}

func TestValidateConversation(t *testing.T) {
	cases := []struct {
		name  string
		body  string
		valid bool
		want  string
	}{
		{name: "minimal", body: `{"messages":[{"role":"user","content":"hi"}]}`, valid: true},
		{name: "full", body: `{"systemPrompt":"x","maxTokens":50,"messages":[{"role":"user","content":"hi"},{"role":"assistant","content":""}]}`, valid: true},
		{name: "null system prompt", body: `{"systemPrompt":null,"messages":[{"role":"user","content":"hi"}]}`, valid: true},
		{name: "missing messages", body: `{"systemPrompt":"x"}`, want: "messages"},
		{name: "empty messages", body: `{"messages":[]}`, want: "messages"},
		{name: "bad role", body: `{"messages":[{"role":"system","content":"hi"}]}`, want: "role"},
		{name: "missing content", body: `{"messages":[{"role":"user"}]}`, want: "content"},
		{name: "zero max tokens", body: `{"maxTokens":0,"messages":[{"role":"user","content":"hi"}]}`, want: "maxTokens"},
		{name: "fractional max tokens", body: `{"maxTokens":1.5,"messages":[{"role":"user","content":"hi"}]}`, want: "maxTokens"},
		{name: "not an object", body: `[]`, want: "object"},
		{name: "not json", body: `not-json`, want: "not valid JSON"},
	}
	v := newValidator(t)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := v.ValidateConversation([]byte(tc.body))
			if tc.valid {
				require.NoError(t, err)
				return
			}
			var verr *Error
			require.True(t, errors.As(err, &verr))
			require.NotEmpty(t, verr.Violations)
			require.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestValidateConsultation(t *testing.T) {
	cases := []struct {
		name  string
		body  string
		valid bool
	}{
		{
			name:  "complete",
			body:  `{"isConsultationRequest":true,"assessmentData":{"contactName":"Pat","contactPhone":null,"leadScore":80,"tokensUsed":900,"dataCompleteness":0.75,"businessData":{"business_type":"Dental","time_value":"$50"}}}`,
			valid: true,
		},
		{name: "missing assessment", body: `{"isConsultationRequest":true}`},
		{name: "missing business data", body: `{"isConsultationRequest":true,"assessmentData":{"contactName":"Pat"}}`},
		{name: "flag false", body: `{"isConsultationRequest":false,"assessmentData":{"businessData":{}}}`},
		{name: "numeric intake field", body: `{"isConsultationRequest":true,"assessmentData":{"businessData":{"time_value":50}}}`},
		{name: "negative tokens", body: `{"isConsultationRequest":true,"assessmentData":{"tokensUsed":-1,"businessData":{}}}`},
	}
	v := newValidator(t)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := v.ValidateConsultation([]byte(tc.body))
			if tc.valid {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
		})
	}
}

func TestValidate_Uninitialized(t *testing.T) {
	err := (&Validator{}).ValidateConversation([]byte(`{}`))
	require.ErrorContains(t, err, "not initialized")
}

package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"assessment-relay/internal/domain"
)

const defaultTimeout = 10 * time.Second

// DispatchError describes a failed delivery. It is reported in
// domain.DispatchResult and never returned to the request caller.
type DispatchError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *DispatchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("webhook: delivery failed: %v", e.Err)
	}
	return fmt.Sprintf("webhook: unexpected status %d: %s", e.StatusCode, e.Body)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// Dispatcher posts finalized assessments to a single configured endpoint.
// With no endpoint configured every dispatch is a no-op.
type Dispatcher struct {
	endpoint   string
	source     string
	provider   string
	httpClient *http.Client
}

type Option func(*Dispatcher)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(d *Dispatcher) {
		d.httpClient = httpClient
	}
}

// WithSource sets the payload "source" field.
func WithSource(source string) Option {
	return func(d *Dispatcher) {
		d.source = source
	}
}

// WithProvider sets the payload "ai_provider" field.
func WithProvider(provider string) Option {
	return func(d *Dispatcher) {
		d.provider = provider
	}
}

func New(endpoint string, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		endpoint:   strings.TrimSpace(endpoint),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Enabled reports whether an endpoint is configured.
func (d *Dispatcher) Enabled() bool {
	return d.endpoint != ""
}

// Dispatch delivers record and waits for the outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, record domain.AssessmentRecord) domain.DispatchResult {
	if !d.Enabled() {
		return domain.DispatchResult{Skipped: true}
	}

	body, err := json.Marshal(d.BuildPayload(record, now()))
	if err != nil {
		return domain.DispatchResult{Err: &DispatchError{Err: fmt.Errorf("marshal payload: %w", err)}}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.DispatchResult{Err: &DispatchError{Err: fmt.Errorf("create request: %w", err)}}
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := d.httpClient.Do(req)
	if err != nil {
		return domain.DispatchResult{Err: &DispatchError{Err: err}}
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return domain.DispatchResult{
			StatusCode: res.StatusCode,
			Err:        &DispatchError{StatusCode: res.StatusCode, Body: string(buf)},
		}
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 1<<16))
	return domain.DispatchResult{StatusCode: res.StatusCode}
}

// BuildPayload flattens record into the webhook wire shape stamped at ts.
func (d *Dispatcher) BuildPayload(record domain.AssessmentRecord, ts time.Time) domain.WebhookPayload {
	intake := record.BusinessData
	return domain.WebhookPayload{
		Timestamp:    ts.UTC().Format(time.RFC3339),
		SubmissionID: newUUID(),
		Source:       d.source,
		AIProvider:   d.provider,

		ContactName:  record.ContactName,
		BusinessName: record.BusinessName,
		ContactEmail: record.ContactEmail,
		ContactPhone: record.ContactPhone,

		BusinessType:     intake.BusinessType,
		BusinessLocation: intake.BusinessLocation,
		PainPoints:       intake.PainPoints,
		CurrentSolution:  intake.CurrentSolution,
		TimeSavings:      intake.TimeSavings,
		TimeValue:        intake.TimeValue,

		LeadScore:             record.LeadScore,
		ConversationSummary:   record.ConversationHistory,
		SolutionProposal:      record.SolutionProposal,
		TokensUsed:            record.TokensUsed,
		DataCompleteness:      record.DataCompleteness,
		ConsultationRequested: true,
	}
}

var (
	now     = time.Now
	newUUID = uuid.NewString
)

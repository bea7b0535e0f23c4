package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"assessment-relay/internal/domain"
)

const defaultTimeout = 25 * time.Second

// wireFormat encapsulates everything that differs between providers on the
// request side.
type wireFormat interface {
	name() string
	endpoint(baseURL string) string
	authorize(h http.Header, apiKey string)
	validateKey(apiKey string) error
	encode(model string, req domain.ConversationRequest, temperature *float64) ([]byte, error)
}

// Client sends conversation requests to a single configured provider.
type Client struct {
	format      wireFormat
	baseURL     string
	httpClient  *http.Client
	keys        KeySource
	temperature *float64
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTemperature sets a sampling temperature. It is dropped for models that
// only accept the provider default.
func WithTemperature(t *float64) Option {
	return func(c *Client) {
		c.temperature = t
	}
}

// NewClient returns a Client for provider ("anthropic" or "openai").
func NewClient(provider string, keys KeySource, opts ...Option) (*Client, error) {
	if keys == nil {
		return nil, errors.New("llm: key source must not be nil")
	}
	var format wireFormat
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case ProviderAnthropic:
		format = anthropicFormat{}
	case ProviderOpenAI:
		format = openAIFormat{}
	default:
		return nil, fmt.Errorf("llm: unsupported provider %q", provider)
	}
	c := &Client{
		format:     format,
		httpClient: &http.Client{Timeout: defaultTimeout},
		keys:       keys,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Provider returns the configured provider name.
func (c *Client) Provider() string {
	return c.format.name()
}

// CheckCredentials resolves the API key and verifies its shape for the
// configured provider. Failures wrap ErrCredential.
func (c *Client) CheckCredentials(ctx context.Context) error {
	_, err := c.apiKey(ctx)
	return err
}

func (c *Client) apiKey(ctx context.Context) (string, error) {
	key, err := c.keys.APIKey(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCredential, err)
	}
	if err := c.format.validateKey(key); err != nil {
		return "", err
	}
	return key, nil
}

// Send issues one request for model and returns the raw response body.
// Non-2xx responses are returned as *HTTPStatusError.
func (c *Client) Send(ctx context.Context, model string, req domain.ConversationRequest) ([]byte, error) {
	if strings.TrimSpace(model) == "" {
		return nil, errors.New("llm: model must not be empty")
	}
	apiKey, err := c.apiKey(ctx)
	if err != nil {
		return nil, err
	}

	body, err := c.format.encode(model, req, c.temperature)
	if err != nil {
		return nil, fmt.Errorf("llm: marshal request: %w", err)
	}

	url := c.format.endpoint(c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("llm: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.format.authorize(httpReq.Header, apiKey)

	raw, err := c.doJSONRequest(httpReq, url)
	if err != nil {
		return nil, fmt.Errorf("llm: request failed: %w", err)
	}
	return raw, nil
}

func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{Timeout: defaultTimeout}
}

func (c *Client) doJSONRequest(req *http.Request, url string) ([]byte, error) {
	res, err := c.resolvedHTTPClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 8192))
		return nil, &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        url,
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return buf, nil
}

// joinURL appends path to a base that may or may not already end in /v1.
func joinURL(baseURL, fallback, path string) string {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = fallback
	}
	if strings.HasSuffix(base, "/v1") {
		return base + path
	}
	return base + "/v1" + path
}

// Package seqapi is the client for the sequence-generation gateway. The
// gateway proxies a slow LLM call per prospect; its error surface is uneven:
// throttling may arrive as an HTTP 429/529, or swallowed into a 200 response
// whose body carries the upstream error. Both are classified identically.
package seqapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/Mantyl-ai/mantyl-sequence-generator-sub000/internal/resilience"
)

const defaultBaseURL = "https://gateway.mantyl.ai"

// GenerateRequest is the request body for POST /v1/sequences.
type GenerateRequest struct {
	Prospect ProspectPayload `json:"prospect"`
	Params   ParamsPayload   `json:"params"`
	Model    string          `json:"model,omitempty"`
}

// ProspectPayload carries one prospect's identifying fields.
type ProspectPayload struct {
	Name    string `json:"name"`
	Company string `json:"company"`
	Title   string `json:"title,omitempty"`
	Email   string `json:"email,omitempty"`
}

// ParamsPayload carries the campaign parameters shared across the batch.
type ParamsPayload struct {
	Channels      []string `json:"channels"`
	Tone          string   `json:"tone,omitempty"`
	SenderName    string   `json:"sender_name"`
	SenderTitle   string   `json:"sender_title,omitempty"`
	SenderCompany string   `json:"sender_company"`
	Context       string   `json:"context,omitempty"`
}

// GenerateResponse is the response body for POST /v1/sequences. Exactly one
// of Sequence or Error is populated; the gateway has been observed returning
// Error inside an HTTP 200.
type GenerateResponse struct {
	Sequence *SequencePayload `json:"sequence,omitempty"`
	Plan     *PlanPayload     `json:"plan,omitempty"`
	Error    *APIError        `json:"error,omitempty"`
}

// SequencePayload is the generated touchpoint list.
type SequencePayload struct {
	Touchpoints []TouchpointPayload `json:"touchpoints"`
}

// TouchpointPayload is one generated step.
type TouchpointPayload struct {
	DayOffset int    `json:"day_offset"`
	Channel   string `json:"channel"`
	Stage     string `json:"stage,omitempty"`
	Subject   string `json:"subject,omitempty"`
	Body      string `json:"body"`
}

// PlanPayload is the schedule metadata attached to a success.
type PlanPayload struct {
	TotalTouches int      `json:"total_touches"`
	SpanDays     int      `json:"span_days"`
	Channels     []string `json:"channels,omitempty"`
}

// APIError is the gateway's structured error envelope.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Client generates one sequence per call.
type Client interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default gateway base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a gateway client. The http.Client carries no timeout of
// its own; callers bound each request through the context so the orchestration
// layer owns the per-call deadline.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "seqapi: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/sequences", bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "seqapi: build request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "seqapi: generate")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "seqapi: read body")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyHTTPError(resp.StatusCode, body)
	}

	var out GenerateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, eris.Wrap(err, "seqapi: decode response")
	}

	// Throttling swallowed into a 200 body is still throttling.
	if out.Error != nil {
		apiErr := eris.Errorf("seqapi: gateway error %s: %s", out.Error.Code, out.Error.Message)
		if isRateLimitCode(out.Error.Code) || resilience.IsRateLimited(apiErr) {
			return nil, resilience.NewRateLimitError(apiErr, resp.StatusCode)
		}
		return nil, resilience.NewTransientError(apiErr, resp.StatusCode)
	}

	if out.Sequence == nil {
		return nil, eris.New("seqapi: response carried neither sequence nor error")
	}
	return &out, nil
}

func classifyHTTPError(status int, body []byte) error {
	err := eris.Errorf("seqapi: HTTP %d: %s", status, truncate(string(body), 200))
	switch {
	case resilience.IsRateLimitHTTPStatus(status):
		return resilience.NewRateLimitError(err, status)
	case resilience.IsTransientHTTPStatus(status):
		return resilience.NewTransientError(err, status)
	default:
		return err
	}
}

func isRateLimitCode(code string) bool {
	switch code {
	case "rate_limit_error", "rate_limited", "overloaded_error":
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

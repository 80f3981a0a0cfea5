// Package enrichapi is the client for the enrichment status endpoint. The
// endpoint accumulates phone records delivered by provider webhooks and is
// polled until a session's records stop arriving.
package enrichapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// PhoneRecord is one candidate enrichment result. The same logical record
// may be indexed under several keys server-side; consumers match by key.
type PhoneRecord struct {
	ExternalID  string    `json:"external_id,omitempty"`
	Name        string    `json:"name,omitempty"`
	Email       string    `json:"email,omitempty"`
	LinkedInURL string    `json:"linkedin_url,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	Provider    string    `json:"provider,omitempty"`
	ReceivedAt  time.Time `json:"received_at,omitempty"`
}

// StatusResponse is the payload of GET /enrich/status/{session}.
type StatusResponse struct {
	Records    map[string]PhoneRecord `json:"records"`
	TotalCount int                    `json:"total_count"`
	Status     string                 `json:"status"`
}

// Client fetches enrichment status for a session.
type Client interface {
	FetchStatus(ctx context.Context, session string) (*StatusResponse, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a status endpoint client for the given base URL.
func NewClient(baseURL string, opts ...Option) Client {
	c := &httpClient{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) FetchStatus(ctx context.Context, session string) (*StatusResponse, error) {
	url := fmt.Sprintf("%s/enrich/status/%s", c.baseURL, session)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrap(err, "enrichapi: build request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "enrichapi: fetch status")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "enrichapi: read body")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("enrichapi: status %d: %s", resp.StatusCode, string(body))
	}

	var out StatusResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, eris.Wrap(err, "enrichapi: decode response")
	}
	if out.Records == nil {
		out.Records = map[string]PhoneRecord{}
	}
	return &out, nil
}

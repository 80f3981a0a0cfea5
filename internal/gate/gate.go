// Package gate enforces per-account generation allowances. Gating is
// advisory: if the gate service cannot be reached the run proceeds, because
// blocking paying users on a flaky internal endpoint is worse than the
// occasional over-run.
package gate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Mantyl-ai/mantyl-sequence-generator-sub000/internal/resilience"
)

// Client checks and records generation usage against the gate service.
type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// NewClient creates a gate client for the given base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: zap.L(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type checkResponse struct {
	Allowed   bool `json:"allowed"`
	Remaining int  `json:"remaining"`
}

type incrementRequest struct {
	Account string `json:"account"`
	Count   int    `json:"count"`
}

// Allowed reports whether the account may start a generation run. Any
// transport or decode failure fails open: the error is logged and the run
// is allowed.
func (c *Client) Allowed(ctx context.Context, account string) bool {
	url := fmt.Sprintf("%s/v1/usage/%s/check", c.baseURL, account)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		c.log.Warn("usage gate check skipped", zap.Error(err))
		return true
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("usage gate unreachable, failing open", zap.Error(err))
		return true
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warn("usage gate returned non-200, failing open",
			zap.Int("status", resp.StatusCode),
			zap.String("account", account),
		)
		return true
	}

	var check checkResponse
	if err := json.NewDecoder(resp.Body).Decode(&check); err != nil {
		c.log.Warn("usage gate response unreadable, failing open", zap.Error(err))
		return true
	}

	if !check.Allowed {
		c.log.Info("usage gate denied run",
			zap.String("account", account),
			zap.Int("remaining", check.Remaining),
		)
	}
	return check.Allowed
}

// Increment records n completed generations for the account. Best effort:
// one quick retry on failure, then the loss is logged and accepted.
func (c *Client) Increment(ctx context.Context, account string, n int) {
	body, err := json.Marshal(incrementRequest{Account: account, Count: n})
	if err != nil {
		c.log.Warn("usage increment skipped", zap.Error(err))
		return
	}

	url := fmt.Sprintf("%s/v1/usage/%s/increment", c.baseURL, account)
	err = resilience.Do(ctx, resilience.RetryConfig{
		MaxAttempts:    2,
		InitialBackoff: 500 * time.Millisecond,
		ShouldRetry:    func(error) bool { return true },
		OnRetry:        resilience.RetryLogger("gate", "increment"),
	}, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
			return eris.Errorf("gate: increment returned %d", resp.StatusCode)
		}
		return nil
	})
	if err != nil {
		c.log.Warn("usage increment dropped",
			zap.String("account", account),
			zap.Int("count", n),
			zap.Error(err),
		)
	}
}

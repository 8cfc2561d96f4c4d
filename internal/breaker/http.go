package breaker

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPClient wraps an *http.Client with breaker behavior, probing probeURL
// with a GET to decide whether to leave the Open state. Grounded on
// circuit_breaker/httpcb.go.
type HTTPClient struct {
	Client *http.Client
	brk    *Breaker
}

// NewHTTPClient constructs an HTTPClient. If httpClient is nil, a client
// with a 15s timeout is used.
func NewHTTPClient(name string, cfg Config, probeURL string, httpClient *http.Client) *HTTPClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	probe := func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, probeURL, nil)
		if err != nil {
			return err
		}
		resp, err := httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		io.CopyN(io.Discard, resp.Body, 64)
		if resp.StatusCode >= 200 && resp.StatusCode < 500 {
			return nil
		}
		return fmt.Errorf("probe_bad_status: %d", resp.StatusCode)
	}
	return &HTTPClient{Client: httpClient, brk: New(name, cfg, probe)}
}

// Do executes req through the breaker.
func (h *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	err := h.brk.Execute(req.Context(), func(ctx context.Context) error {
		r, err := h.Client.Do(req.WithContext(ctx))
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	return resp, err
}

// State exposes the underlying breaker's state, e.g. for a health endpoint.
func (h *HTTPClient) State() State {
	return h.brk.State()
}

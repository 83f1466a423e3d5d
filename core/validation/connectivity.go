package validation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"genfill/core"
)

// DefaultConnectivityTimeout bounds a single reachability probe.
const DefaultConnectivityTimeout = 10 * time.Second

// ConnectivityResult is the outcome of one reachability probe.
type ConnectivityResult struct {
	Reachable  bool
	StatusCode int
	Message    string
	Latency    time.Duration
	Error      error
}

// ConnectivityChecker probes endpoints with a HEAD request.
// Any HTTP response counts as reachable: a 401 or 404 still proves the
// host answers, and authentication is checked by the command that needs it.
type ConnectivityChecker struct {
	client  *http.Client
	timeout time.Duration
}

// NewConnectivityChecker creates a checker. A nil client uses one built from
// core.GetHTTPClient without self-signed certificate support.
func NewConnectivityChecker(client *http.Client) *ConnectivityChecker {
	if client == nil {
		client = core.GetHTTPClient(nil, 0)
	}
	return &ConnectivityChecker{client: client, timeout: DefaultConnectivityTimeout}
}

// WithTimeout sets the per-probe timeout.
func (c *ConnectivityChecker) WithTimeout(timeout time.Duration) *ConnectivityChecker {
	if timeout > 0 {
		c.timeout = timeout
	}
	return c
}

// Check validates rawURL and sends a HEAD request to it.
func (c *ConnectivityChecker) Check(ctx context.Context, rawURL string) ConnectivityResult {
	if err := core.ValidateBaseURL(rawURL); err != nil {
		return ConnectivityResult{Message: "Invalid URL format", Error: err}
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodHead, rawURL, nil)
	if err != nil {
		return ConnectivityResult{Message: "Failed to create request", Error: err}
	}
	req.Header.Set("User-Agent", core.UserAgent())

	start := time.Now()
	resp, err := c.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return ConnectivityResult{
				Message: "Connection timed out",
				Latency: latency,
				Error:   fmt.Errorf("%s: connection timed out after %v", rawURL, c.timeout),
			}
		}
		return ConnectivityResult{
			Message: "Connection failed",
			Latency: latency,
			Error:   fmt.Errorf("%s: %w", rawURL, err),
		}
	}
	defer resp.Body.Close()

	return ConnectivityResult{
		Reachable:  true,
		StatusCode: resp.StatusCode,
		Message:    fmt.Sprintf("reachable (status: %d)", resp.StatusCode),
		Latency:    latency,
	}
}

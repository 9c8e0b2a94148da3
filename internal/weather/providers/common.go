package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
)

// HTTPClientConfig bundles the HTTP client and the per-call timeout for one upstream.
type HTTPClientConfig struct {
	Client  *http.Client
	Timeout time.Duration
}

var (
	errAPIKeyMissing    = errors.New("api key not configured")
	errRateLimited      = errors.New("rate limited")
	errServerError      = errors.New("server error")
	errUnexpectedStatus = errors.New("unexpected status code")
	errMalformed        = errors.New("malformed payload")
	errCircuitOpen      = errors.New("circuit breaker open")
	errNoHTTPClient     = errors.New("http client not configured")
)

// maxBodyBytes caps how much of an upstream body is decoded.
const maxBodyBytes = 1 << 20

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
}

// getJSON issues a single GET through the circuit breaker and decodes a 2xx body into out.
// There is no retry: a failed call is reported immediately.
func getJSON(ctx context.Context, cfg HTTPClientConfig, cb *gobreaker.CircuitBreaker, endpoint string, query url.Values, out any) error {
	if cfg.Client == nil {
		return errNoHTTPClient
	}
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	u := endpoint
	if len(query) > 0 {
		u = fmt.Sprintf("%s?%s", endpoint, query.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	_, err = cb.Execute(func() (interface{}, error) {
		resp, execErr := cfg.Client.Do(req)
		if execErr != nil {
			return nil, execErr
		}
		defer resp.Body.Close()

		// Handle rate limiting and server errors explicitly.
		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, errRateLimited
		}
		if resp.StatusCode >= 500 {
			return nil, fmt.Errorf("%w: %d", errServerError, resp.StatusCode)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("%w: %d", errUnexpectedStatus, resp.StatusCode)
		}

		if decErr := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); decErr != nil {
			return nil, fmt.Errorf("%w: %v", errMalformed, decErr)
		}
		return nil, nil
	})
	if err != nil {
		// If circuit is open, report it as such.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%w: %v", errCircuitOpen, err)
		}
		return err
	}
	return nil
}

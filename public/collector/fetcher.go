package collector

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/awion/cryon-soc/config"
	"github.com/sony/gobreaker"
	"github.com/valyala/fasthttp"
)

// ErrUnexpectedStatus is returned when an HTTP source answers with a non-200 status
var ErrUnexpectedStatus = errors.New("unexpected status")

// Fetcher retrieves the raw JSON document of one source
type Fetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
	Name() string
}

// NewFetcher builds the fetcher for a source. It returns nil for source types
// that are not fetched (none, derived).
func NewFetcher(name string, source config.SourceConfig) (Fetcher, error) {
	switch source.Type {
	case "file":
		return NewFileFetcher(name, source.Path), nil
	case "http":
		timeout := time.Duration(source.Timeout) * time.Second
		return NewHTTPFetcher(name, source.URL, timeout, uint32(source.MaxFailures)), nil
	case "none", "derived":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown source type: %s", source.Type)
	}
}

// FileFetcher reads a static JSON file
type FileFetcher struct {
	name string
	path string
}

// NewFileFetcher creates a new file-based fetcher
func NewFileFetcher(name, path string) *FileFetcher {
	return &FileFetcher{name: name, path: path}
}

// Name returns the source name
func (f *FileFetcher) Name() string { return f.name }

// Fetch reads the whole file
func (f *FileFetcher) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("could not read %s: %w", f.path, err)
	}
	return data, nil
}

// HTTPFetcher polls a backend endpoint. Repeated failures open a circuit
// breaker so a dead backend is not hammered every refresh.
type HTTPFetcher struct {
	name    string
	url     string
	timeout time.Duration
	client  *fasthttp.Client
	breaker *gobreaker.CircuitBreaker
}

// NewHTTPFetcher creates a new HTTP fetcher
func NewHTTPFetcher(name, url string, timeout time.Duration, maxFailures uint32) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if maxFailures == 0 {
		maxFailures = 3
	}

	return &HTTPFetcher{
		name:    name,
		url:     url,
		timeout: timeout,
		client: &fasthttp.Client{
			Name:                "cryon-soc",
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxIdleConnDuration: 30 * time.Second,
		},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= maxFailures
			},
		}),
	}
}

// Name returns the source name
func (h *HTTPFetcher) Name() string { return h.name }

// State returns the circuit breaker state
func (h *HTTPFetcher) State() gobreaker.State {
	return h.breaker.State()
}

// Fetch performs a GET and returns the body
func (h *HTTPFetcher) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	deadline := time.Now().Add(h.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	body, err := h.breaker.Execute(func() (interface{}, error) {
		req := fasthttp.AcquireRequest()
		resp := fasthttp.AcquireResponse()
		defer fasthttp.ReleaseRequest(req)
		defer fasthttp.ReleaseResponse(resp)

		req.SetRequestURI(h.url)
		req.Header.SetMethod(fasthttp.MethodGet)
		req.Header.Set("Accept", "application/json")

		if err := h.client.DoDeadline(req, resp, deadline); err != nil {
			return nil, err
		}
		if resp.StatusCode() != fasthttp.StatusOK {
			return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode())
		}

		// The response buffer is recycled on release
		return append([]byte(nil), resp.Body()...), nil
	})
	if err != nil {
		return nil, fmt.Errorf("breaker (%s): %w", h.name, err)
	}

	return body.([]byte), nil
}

// Package metrics queries a Prometheus-compatible metrics backend.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/moolen/vigil/internal/endpoints"
	"github.com/moolen/vigil/internal/logging"
	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
)

// ErrUnavailable is returned by every query when no usable backend is configured.
var ErrUnavailable = errors.New("metrics backend unavailable")

// Sample is one point of a range query.
type Sample struct {
	Timestamp time.Time
	Value     float64
}

// Querier is what analysis needs from a metrics backend.
type Querier interface {
	// Instant returns one value per series of an instant query. An empty
	// result is not an error.
	Instant(ctx context.Context, query string) ([]float64, error)

	// Range returns the samples of the first series of a range query.
	Range(ctx context.Context, query string, start, end time.Time, step time.Duration) ([]Sample, error)

	// Available reports whether queries can reach a backend at all.
	Available() bool
}

// Options tunes the client.
type Options struct {
	QueryTimeout      time.Duration
	RangeQueryTimeout time.Duration
}

// Client is a Querier backed by the Prometheus HTTP API.
type Client struct {
	url          string
	api          v1.API
	queryTimeout time.Duration
	rangeTimeout time.Duration
	logger       *logging.Logger
}

// New returns a Client for url, or a disabled Querier when url is unset or a mock.
func New(url string, opts Options) (Querier, error) {
	if !endpoints.Usable(url) {
		return Disabled{}, nil
	}
	return NewClient(url, opts)
}

// NewClient creates a client with a tuned transport for url.
func NewClient(url string, opts Options) (*Client, error) {
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = 5 * time.Second
	}
	if opts.RangeQueryTimeout <= 0 {
		opts.RangeQueryTimeout = 10 * time.Second
	}

	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}

	client, err := api.NewClient(api.Config{
		Address:      strings.TrimSuffix(url, "/"),
		RoundTripper: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("create prometheus client for %s: %w", url, err)
	}

	return &Client{
		url:          url,
		api:          v1.NewAPI(client),
		queryTimeout: opts.QueryTimeout,
		rangeTimeout: opts.RangeQueryTimeout,
		logger:       logging.GetLogger("metrics"),
	}, nil
}

// URL returns the backend address.
func (c *Client) URL() string { return c.url }

func (c *Client) Available() bool { return true }

func (c *Client) Instant(ctx context.Context, query string) ([]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()

	result, warnings, err := c.api.Query(ctx, query, time.Now())
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", query, err)
	}
	if len(warnings) > 0 {
		c.logger.Debug("Query %q returned warnings: %v", query, warnings)
	}

	switch v := result.(type) {
	case model.Vector:
		values := make([]float64, 0, len(v))
		for _, s := range v {
			values = append(values, float64(s.Value))
		}
		return values, nil
	case *model.Scalar:
		return []float64{float64(v.Value)}, nil
	case model.Matrix:
		values := make([]float64, 0, len(v))
		for _, stream := range v {
			if n := len(stream.Values); n > 0 {
				values = append(values, float64(stream.Values[n-1].Value))
			}
		}
		return values, nil
	default:
		return nil, fmt.Errorf("query %q: unsupported result type %s", query, result.Type())
	}
}

func (c *Client) Range(ctx context.Context, query string, start, end time.Time, step time.Duration) ([]Sample, error) {
	ctx, cancel := context.WithTimeout(ctx, c.rangeTimeout)
	defer cancel()

	result, warnings, err := c.api.QueryRange(ctx, query, v1.Range{Start: start, End: end, Step: step})
	if err != nil {
		return nil, fmt.Errorf("range query %q: %w", query, err)
	}
	if len(warnings) > 0 {
		c.logger.Debug("Range query %q returned warnings: %v", query, warnings)
	}

	matrix, ok := result.(model.Matrix)
	if !ok {
		return nil, fmt.Errorf("range query %q: unexpected result type %s", query, result.Type())
	}
	if len(matrix) == 0 {
		return nil, nil
	}

	samples := make([]Sample, 0, len(matrix[0].Values))
	for _, p := range matrix[0].Values {
		samples = append(samples, Sample{Timestamp: p.Timestamp.Time(), Value: float64(p.Value)})
	}
	return samples, nil
}

// Disabled is the Querier used when no real backend is configured.
type Disabled struct{}

func (Disabled) Available() bool { return false }

func (Disabled) Instant(context.Context, string) ([]float64, error) {
	return nil, ErrUnavailable
}

func (Disabled) Range(context.Context, string, time.Time, time.Time, time.Duration) ([]Sample, error) {
	return nil, ErrUnavailable
}

// First returns the first value of an instant result.
func First(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	return values[0], true
}

// Values flattens samples into their values.
func Values(samples []Sample) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s.Value
	}
	return out
}

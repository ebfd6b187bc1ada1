package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/couchcryptid/firegrid/internal/domain"
	"github.com/couchcryptid/firegrid/internal/observability"
)

// Client implements domain.Classifier against a remote HTTP model server.
type Client struct {
	url        string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a classifier client that POSTs features to url.
func NewClient(url string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: metrics,
		logger:  logger,
	}
}

// Classify sends the three features and returns the model's probability.
// Transport failures, non-200 responses, and probabilities outside [0, 1] are
// reported as errors wrapping domain.ErrClassifierUnavailable.
func (c *Client) Classify(ctx context.Context, f domain.Features) (float64, error) {
	start := time.Now()
	p, err := c.doRequest(ctx, f)
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	c.metrics.ClassifierAPIDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	return p, err
}

func (c *Client) doRequest(ctx context.Context, f domain.Features) (float64, error) {
	body, err := json.Marshal(f)
	if err != nil {
		return 0, fmt.Errorf("encode features: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: classify request: %w", domain.ErrClassifierUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("%w: status %d: %s", domain.ErrClassifierUnavailable, resp.StatusCode, msg)
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("%w: decode response: %w", domain.ErrClassifierUnavailable, err)
	}
	if out.Probability == nil {
		return 0, fmt.Errorf("%w: response missing probability", domain.ErrClassifierUnavailable)
	}
	p := *out.Probability
	if math.IsNaN(p) || p < 0 || p > 1 {
		return 0, fmt.Errorf("%w: probability %v out of range", domain.ErrClassifierUnavailable, p)
	}
	return p, nil
}

// response is the model server's reply body.
type response struct {
	Probability *float64 `json:"probability"`
}

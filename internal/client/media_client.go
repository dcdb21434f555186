package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// ProbeResult classifies a media existence probe
type ProbeResult int

const (
	// ProbeExists means the media record is present
	ProbeExists ProbeResult = iota
	// ProbeGone means the media is confirmed absent (404) or inaccessible (403)
	ProbeGone
	// ProbeUnknown means the probe failed for an uncertain reason (timeout,
	// 5xx, network). Callers must never treat this as absence.
	ProbeUnknown
)

// MediaClient calls the media service. All calls are advisory or fail-safe:
// a failure is reported to the caller, which logs it and keeps its own
// committed state authoritative.
type MediaClient struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *zap.Logger

	breaker *gobreaker.CircuitBreaker[int]
}

// NewMediaClient creates a media service client with a finite call timeout.
// Existence probes run behind a circuit breaker; an open breaker degrades to
// ProbeUnknown, which the reconciler treats as "keep the reference".
func NewMediaClient(baseURL string, timeout time.Duration, logger *zap.Logger) *MediaClient {
	breaker := gobreaker.NewCircuitBreaker[int](gobreaker.Settings{
		Name:    "media-probe",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &MediaClient{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: timeout},
		Logger:     logger,
		breaker:    breaker,
	}
}

// SetProduct stamps the back-reference productId on a media record, scoped to
// the owning user. The caller's product-side write is already committed; this
// call is advisory and its failure must not be rolled back into that write.
func (c *MediaClient) SetProduct(ctx context.Context, mediaID, productID, userID string) error {
	endpoint := fmt.Sprintf("%s/api/media/images/%s/product/%s?userId=%s",
		c.BaseURL, url.PathEscape(mediaID), url.PathEscape(productID), url.QueryEscape(userID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("media association call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("media association call returned status %d", resp.StatusCode)
	}
	return nil
}

// Exists probes whether a media record is still present. The decision table:
// 2xx keeps the reference, 404 and 403 confirm it gone, anything else is
// uncertain and keeps the reference.
func (c *MediaClient) Exists(ctx context.Context, mediaID string) ProbeResult {
	status, err := c.breaker.Execute(func() (int, error) {
		return c.head(ctx, mediaID)
	})
	if err != nil {
		c.Logger.Warn("Media existence probe failed",
			zap.String("media_id", mediaID),
			zap.Error(err))
		return ProbeUnknown
	}

	switch {
	case status == http.StatusNotFound || status == http.StatusForbidden:
		return ProbeGone
	case status >= 200 && status < 300:
		return ProbeExists
	default:
		return ProbeUnknown
	}
}

func (c *MediaClient) head(ctx context.Context, mediaID string) (int, error) {
	endpoint := fmt.Sprintf("%s/api/media/images/%s", c.BaseURL, url.PathEscape(mediaID))

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, endpoint, nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	// 5xx counts as a breaker failure; 404/403 are definitive answers
	if resp.StatusCode >= 500 {
		return resp.StatusCode, fmt.Errorf("media service returned status %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}

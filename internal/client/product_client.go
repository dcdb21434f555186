package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// ProductClient calls the product service to strip a media reference when a
// media item is deleted directly. The call is internal, idempotent and
// advisory: the media-side deletion is committed regardless of its outcome.
type ProductClient struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// NewProductClient creates a product service client with a finite call timeout
func NewProductClient(baseURL string, timeout time.Duration, logger *zap.Logger) *ProductClient {
	return &ProductClient{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: timeout},
		Logger:     logger,
	}
}

// RemoveMedia removes mediaID from the product's reference list. Removing an
// absent element is a no-op on the product side.
func (c *ProductClient) RemoveMedia(ctx context.Context, productID, mediaID string) error {
	endpoint := fmt.Sprintf("%s/api/products/%s/remove-media/%s",
		c.BaseURL, url.PathEscape(productID), url.PathEscape(mediaID))

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("product reference removal call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("product reference removal returned status %d", resp.StatusCode)
	}

	c.Logger.Debug("Removed media reference from product",
		zap.String("product_id", productID),
		zap.String("media_id", mediaID))
	return nil
}

package service

import (
	"context"
	"fmt"

	"buy01/internal/client"
	"buy01/pkg/metrics"

	"go.uber.org/zap"
)

// MediaProber answers whether a media id still exists in the media service
type MediaProber interface {
	Exists(ctx context.Context, mediaID string) client.ProbeResult
}

// Reconciler is the compensating sweep that repairs drift between the product
// store's media references and the media store. It bounds how long a dangling
// reference can survive; it is meant to run periodically or on demand, not
// continuously, since it costs one remote probe per referenced media id.
type Reconciler struct {
	store  Store
	prober MediaProber
	logger *zap.Logger
}

// NewReconciler creates the orphan reference reconciler
func NewReconciler(store Store, prober MediaProber, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		store:  store,
		prober: prober,
		logger: logger,
	}
}

// Reconcile probes every media reference of every product and drops the ones
// confirmed gone (404 or 403). An uncertain probe keeps the reference: a
// reference is never dropped on a timeout, 5xx or network error. Products
// whose list changed are persisted with a single update each. Returns a
// human-readable summary of the total references cleaned.
func (r *Reconciler) Reconcile(ctx context.Context) (string, error) {
	products, err := r.store.FindAll(ctx)
	if err != nil {
		return "", err
	}

	totalCleaned := 0
	for i := range products {
		product := products[i]
		surviving := make([]string, 0, len(product.MediaIDs))

		for _, mediaID := range product.MediaIDs {
			switch r.prober.Exists(ctx, mediaID) {
			case client.ProbeExists:
				surviving = append(surviving, mediaID)
			case client.ProbeGone:
				r.logger.Info("Removing orphaned media reference",
					zap.String("product_id", product.ID),
					zap.String("media_id", mediaID))
				totalCleaned++
			default:
				// Uncertain: keep the reference
				surviving = append(surviving, mediaID)
			}
		}

		if len(surviving) != len(product.MediaIDs) {
			removed := len(product.MediaIDs) - len(surviving)
			product.MediaIDs = surviving
			if err := r.store.Save(ctx, &product); err != nil {
				return "", fmt.Errorf("persist reconciled product %s: %w", product.ID, err)
			}
			metrics.OrphansCleanedCounter.WithLabelValues(serviceName).Add(float64(removed))
			r.logger.Info("Cleaned product references",
				zap.String("product_id", product.ID),
				zap.Int("removed", removed))
		}
	}

	return fmt.Sprintf("Cleaned up %d orphaned media references from products", totalCleaned), nil
}

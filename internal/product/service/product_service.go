package service

import (
	"context"
	"strings"

	"buy01/internal/apperr"
	"buy01/internal/event"
	"buy01/internal/product/model"
	"buy01/pkg/eventbus"
	"buy01/pkg/metrics"

	"go.uber.org/zap"
)

const serviceName = "product-service"

// Store is the product persistence boundary
type Store interface {
	FindByID(ctx context.Context, id string) (*model.Product, error)
	FindByUserID(ctx context.Context, userID string) ([]model.Product, error)
	FindAll(ctx context.Context) ([]model.Product, error)
	Create(ctx context.Context, product *model.Product) error
	Save(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, id string) error
}

// MediaBridge is the synchronous call into the media service that stamps the
// back-reference after an association
type MediaBridge interface {
	SetProduct(ctx context.Context, mediaID, productID, userID string) error
}

// ProductInput carries the validated fields of a create or update request
type ProductInput struct {
	Name        string
	Description string
	Price       float64
	Quantity    int
}

// ProductService owns all product mutations. Deletions publish cascade events
// after the local commit; the local commit is never rolled back because a
// downstream notification failed.
type ProductService struct {
	store     Store
	publisher eventbus.Publisher
	media     MediaBridge
	logger    *zap.Logger
}

// NewProductService creates the product service core
func NewProductService(store Store, publisher eventbus.Publisher, media MediaBridge, logger *zap.Logger) *ProductService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductService{
		store:     store,
		publisher: publisher,
		media:     media,
		logger:    logger,
	}
}

// List returns all products
func (s *ProductService) List(ctx context.Context) ([]model.Product, error) {
	return s.store.FindAll(ctx)
}

// Get returns one product by id
func (s *ProductService) Get(ctx context.Context, id string) (*model.Product, error) {
	return s.store.FindByID(ctx, id)
}

// Create inserts a product owned by the given user
func (s *ProductService) Create(ctx context.Context, in ProductInput, ownerID string) (*model.Product, error) {
	product := &model.Product{
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Quantity:    in.Quantity,
		UserID:      ownerID,
		MediaIDs:    []string{},
	}
	if err := s.store.Create(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// Update modifies a product. Only the owner may update it.
func (s *ProductService) Update(ctx context.Context, id string, in ProductInput, actorID string) (*model.Product, error) {
	product, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product.UserID != actorID {
		return nil, apperr.ErrForbidden
	}

	product.Name = in.Name
	product.Description = in.Description
	product.Price = in.Price
	product.Quantity = in.Quantity

	if err := s.store.Save(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// Delete removes a product after an ownership check, then best-effort
// publishes a product.deleted event carrying the product's media ids so the
// media service can act without a follow-up query.
func (s *ProductService) Delete(ctx context.Context, id, actorID string) error {
	product, err := s.store.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if product.UserID != actorID {
		return apperr.ErrForbidden
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	s.publishProductDeleted(product)
	return nil
}

// AssociateMedia appends a media id to the product's ordered reference list
// after an ownership check, persists it, then issues one advisory call to the
// media service to stamp the back-reference. A bridge failure leaves the
// association asymmetric until reconciliation; it never fails this operation.
func (s *ProductService) AssociateMedia(ctx context.Context, productID, mediaID, actorID string) (*model.Product, error) {
	product, err := s.store.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.UserID != actorID {
		return nil, apperr.ErrForbidden
	}

	product.MediaIDs = append(product.MediaIDs, mediaID)
	if err := s.store.Save(ctx, product); err != nil {
		return nil, err
	}

	if err := s.media.SetProduct(ctx, mediaID, productID, actorID); err != nil {
		// Product state is authoritative, the back-link is advisory
		s.logger.Warn("Failed to update media productId",
			zap.String("product_id", productID),
			zap.String("media_id", mediaID),
			zap.Error(err))
	}

	return product, nil
}

// RemoveMedia strips a media id from the product's reference list. Called by
// the media service when a media item is deleted directly. Removing an absent
// element is a no-op success.
func (s *ProductService) RemoveMedia(ctx context.Context, productID, mediaID string) error {
	product, err := s.store.FindByID(ctx, productID)
	if err != nil {
		return err
	}

	if !product.RemoveMediaID(mediaID) {
		return nil
	}
	return s.store.Save(ctx, product)
}

// DeleteByUserID deletes every product owned by the user and re-emits a
// product.deleted event per product with its media ids. Zero matches is a
// success: the transport may redeliver the triggering event.
func (s *ProductService) DeleteByUserID(ctx context.Context, userID string) error {
	products, err := s.store.FindByUserID(ctx, userID)
	if err != nil {
		return err
	}

	for i := range products {
		product := products[i]
		if err := s.store.Delete(ctx, product.ID); err != nil {
			return err
		}
		metrics.CascadeDeletesCounter.WithLabelValues(serviceName, "product").Inc()
		s.publishProductDeleted(&product)
	}

	s.logger.Info("Cascade deleted products for user",
		zap.String("user_id", userID),
		zap.Int("count", len(products)))
	return nil
}

// HandleUserDeleted consumes a user.deleted event. The payload is the bare
// user id string.
func (s *ProductService) HandleUserDeleted(ctx context.Context, payload []byte) error {
	userID := strings.TrimSpace(string(payload))
	if userID == "" {
		// Malformed payload: log and drop, nothing downstream could act on it
		s.logger.Error("Received empty user.deleted payload")
		metrics.EventsConsumedCounter.WithLabelValues(serviceName, eventbus.TopicUserDeleted, "malformed").Inc()
		return nil
	}

	s.logger.Info("Received user deletion event", zap.String("user_id", userID))
	if err := s.DeleteByUserID(ctx, userID); err != nil {
		metrics.EventsConsumedCounter.WithLabelValues(serviceName, eventbus.TopicUserDeleted, "error").Inc()
		return err
	}
	metrics.EventsConsumedCounter.WithLabelValues(serviceName, eventbus.TopicUserDeleted, "ok").Inc()
	return nil
}

// publishProductDeleted emits exactly one product.deleted event for an
// already-committed deletion. Encoding failure degrades to the bare product
// id; transport failure is logged and swallowed, leaving the cascade to the
// next reconciliation sweep.
func (s *ProductService) publishProductDeleted(product *model.Product) {
	payload, err := event.EncodeProductDeleted(product.ID, product.MediaIDs)
	if err != nil {
		s.logger.Warn("Failed to encode product.deleted payload, sending bare id",
			zap.String("product_id", product.ID),
			zap.Error(err))
		payload = []byte(product.ID)
	}

	if err := s.publisher.Publish(eventbus.TopicProductDeleted, payload); err != nil {
		metrics.EventPublishErrorCounter.WithLabelValues(serviceName, eventbus.TopicProductDeleted).Inc()
		s.logger.Error("Failed to publish product.deleted event",
			zap.String("product_id", product.ID),
			zap.Error(err))
		return
	}
	metrics.EventsPublishedCounter.WithLabelValues(serviceName, eventbus.TopicProductDeleted).Inc()
}

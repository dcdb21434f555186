package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"buy01/internal/apperr"
	"buy01/internal/event"
	"buy01/internal/media/model"
	"buy01/pkg/eventbus"
	"buy01/pkg/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const serviceName = "media-service"

// Store is the media persistence boundary
type Store interface {
	FindByID(ctx context.Context, id string) (*model.Media, error)
	FindByUserID(ctx context.Context, userID string) ([]model.Media, error)
	FindByProductID(ctx context.Context, productID string) ([]model.Media, error)
	Create(ctx context.Context, media *model.Media) error
	Save(ctx context.Context, media *model.Media) error
	Delete(ctx context.Context, id string) error
}

// FileStore keeps the uploaded bytes, one file per media id
type FileStore interface {
	Save(name string, src io.Reader) (string, error)
	Open(path string) (io.ReadCloser, error)
	Remove(path string) error
}

// ProductBridge is the synchronous call back into the product service that
// strips a media reference after a direct media deletion
type ProductBridge interface {
	RemoveMedia(ctx context.Context, productID, mediaID string) error
}

// MediaService owns all media mutations, including the idempotent cascade
// deletions applied when user.deleted and product.deleted events arrive.
type MediaService struct {
	store     Store
	files     FileStore
	products  ProductBridge
	publicURL string
	logger    *zap.Logger
}

// NewMediaService creates the media service core
func NewMediaService(store Store, files FileStore, products ProductBridge, publicURL string, logger *zap.Logger) *MediaService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MediaService{
		store:     store,
		files:     files,
		products:  products,
		publicURL: publicURL,
		logger:    logger,
	}
}

// Upload stores the file content and creates the media record
func (s *MediaService) Upload(ctx context.Context, ownerID, filename, contentType string, size int64, src io.Reader) (*model.Media, error) {
	id := uuid.NewString()

	path, err := s.files.Save(id, src)
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	media := &model.Media{
		ID:               id,
		OriginalFilename: filename,
		ContentType:      contentType,
		Size:             size,
		FilePath:         path,
		UserID:           ownerID,
		URL:              fmt.Sprintf("%s/images/%s", s.publicURL, id),
	}
	if err := s.store.Create(ctx, media); err != nil {
		s.files.Remove(path)
		return nil, err
	}
	return media, nil
}

// Get returns one media record by id
func (s *MediaService) Get(ctx context.Context, id string) (*model.Media, error) {
	return s.store.FindByID(ctx, id)
}

// ListByUser returns all media owned by the user
func (s *MediaService) ListByUser(ctx context.Context, userID string) ([]model.Media, error) {
	return s.store.FindByUserID(ctx, userID)
}

// Open returns the record and a reader over its file content
func (s *MediaService) Open(ctx context.Context, id string) (*model.Media, io.ReadCloser, error) {
	media, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.files.Open(media.FilePath)
	if err != nil {
		return nil, nil, apperr.ErrNotFound
	}
	return media, rc, nil
}

// Delete removes a media item after an ownership check. When the media
// carries a product back-link, one advisory call strips the reference from
// the owning product first; its failure is logged and does not block the
// deletion, the gap is closed by the next reconciliation sweep.
func (s *MediaService) Delete(ctx context.Context, id, actorID string) error {
	media, err := s.store.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if media.UserID != actorID {
		return apperr.ErrForbidden
	}

	if media.ProductID != "" {
		if err := s.products.RemoveMedia(ctx, media.ProductID, media.ID); err != nil {
			s.logger.Warn("Failed to remove media reference from product",
				zap.String("product_id", media.ProductID),
				zap.String("media_id", media.ID),
				zap.Error(err))
		}
	}

	return s.remove(ctx, media)
}

// AssociateProduct stamps the productId back-link on a media record, scoped
// to the owning user. Idempotent: re-stamping the same product succeeds.
func (s *MediaService) AssociateProduct(ctx context.Context, mediaID, productID, userID string) (*model.Media, error) {
	media, err := s.store.FindByID(ctx, mediaID)
	if err != nil {
		return nil, err
	}
	if media.UserID != userID {
		return nil, apperr.ErrForbidden
	}

	if media.ProductID == productID {
		return media, nil
	}
	media.ProductID = productID
	if err := s.store.Save(ctx, media); err != nil {
		return nil, err
	}
	return media, nil
}

// DeleteByIDs deletes exactly the listed media ids. Ids that are already
// absent are skipped: the transport may redeliver the triggering event.
func (s *MediaService) DeleteByIDs(ctx context.Context, ids []string) error {
	for _, id := range ids {
		media, err := s.store.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				continue
			}
			return err
		}
		if err := s.remove(ctx, media); err != nil {
			return err
		}
		metrics.CascadeDeletesCounter.WithLabelValues(serviceName, "media").Inc()
	}
	return nil
}

// DeleteByProductID deletes every media record associated with the product
func (s *MediaService) DeleteByProductID(ctx context.Context, productID string) error {
	media, err := s.store.FindByProductID(ctx, productID)
	if err != nil {
		return err
	}
	for i := range media {
		if err := s.remove(ctx, &media[i]); err != nil {
			return err
		}
		metrics.CascadeDeletesCounter.WithLabelValues(serviceName, "media").Inc()
	}
	s.logger.Info("Cascade deleted media for product",
		zap.String("product_id", productID),
		zap.Int("count", len(media)))
	return nil
}

// DeleteByUserID deletes every media record owned by the user
func (s *MediaService) DeleteByUserID(ctx context.Context, userID string) error {
	media, err := s.store.FindByUserID(ctx, userID)
	if err != nil {
		return err
	}
	for i := range media {
		if err := s.remove(ctx, &media[i]); err != nil {
			return err
		}
		metrics.CascadeDeletesCounter.WithLabelValues(serviceName, "media").Inc()
	}
	s.logger.Info("Cascade deleted media for user",
		zap.String("user_id", userID),
		zap.Int("count", len(media)))
	return nil
}

// HandleUserDeleted consumes a user.deleted event. The payload is the bare
// user id string.
func (s *MediaService) HandleUserDeleted(ctx context.Context, payload []byte) error {
	userID := strings.TrimSpace(string(payload))
	if userID == "" {
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

// HandleProductDeleted consumes a product.deleted event. A payload with an
// explicit media-id list deletes exactly those ids; otherwise every media
// referencing the product id is deleted. Both paths converge on the same
// deleted set under redelivery or reordering against user.deleted.
func (s *MediaService) HandleProductDeleted(ctx context.Context, payload []byte) error {
	s.logger.Info("Received product deletion event", zap.ByteString("payload", payload))

	cmd, err := event.DecodeProductDeleted(payload)
	if err != nil {
		// Nothing actionable in the payload: log and drop
		s.logger.Error("Unusable product.deleted payload", zap.Error(err))
		metrics.EventsConsumedCounter.WithLabelValues(serviceName, eventbus.TopicProductDeleted, "malformed").Inc()
		return nil
	}

	switch cmd.Target {
	case event.DeleteByMediaIDs:
		err = s.DeleteByIDs(ctx, cmd.MediaIDs)
	default:
		err = s.DeleteByProductID(ctx, cmd.ProductID)
	}

	if err != nil {
		metrics.EventsConsumedCounter.WithLabelValues(serviceName, eventbus.TopicProductDeleted, "error").Inc()
		return err
	}
	metrics.EventsConsumedCounter.WithLabelValues(serviceName, eventbus.TopicProductDeleted, "ok").Inc()
	return nil
}

// remove deletes the record then the file. File removal failure is logged
// only: the record is the source of truth and the leftover file is harmless.
func (s *MediaService) remove(ctx context.Context, media *model.Media) error {
	if err := s.store.Delete(ctx, media.ID); err != nil {
		return err
	}
	if err := s.files.Remove(media.FilePath); err != nil {
		s.logger.Warn("Failed to remove media file",
			zap.String("media_id", media.ID),
			zap.String("path", media.FilePath),
			zap.Error(err))
	}
	return nil
}

package store

import (
	"context"
	"errors"

	"buy01/internal/apperr"
	"buy01/internal/media/model"

	"gorm.io/gorm"
)

// GormStore persists media records in the media service's own database
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a media store backed by gorm
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// FindByID returns the media record or apperr.ErrNotFound
func (s *GormStore) FindByID(ctx context.Context, id string) (*model.Media, error) {
	var media model.Media
	result := s.db.WithContext(ctx).First(&media, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, result.Error
	}
	return &media, nil
}

// FindByUserID returns all media owned by the given user
func (s *GormStore) FindByUserID(ctx context.Context, userID string) ([]model.Media, error) {
	var media []model.Media
	result := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&media)
	return media, result.Error
}

// FindByProductID returns all media associated with the given product
func (s *GormStore) FindByProductID(ctx context.Context, productID string) ([]model.Media, error) {
	var media []model.Media
	result := s.db.WithContext(ctx).Where("product_id = ?", productID).Find(&media)
	return media, result.Error
}

// Create inserts a new media record
func (s *GormStore) Create(ctx context.Context, media *model.Media) error {
	return s.db.WithContext(ctx).Create(media).Error
}

// Save persists all fields of an existing media record
func (s *GormStore) Save(ctx context.Context, media *model.Media) error {
	return s.db.WithContext(ctx).Save(media).Error
}

// Delete removes a media record by id. Deleting an absent id is not an error.
func (s *GormStore) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Delete(&model.Media{}, "id = ?", id).Error
}

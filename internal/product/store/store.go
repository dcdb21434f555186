package store

import (
	"context"
	"errors"

	"buy01/internal/apperr"
	"buy01/internal/product/model"

	"gorm.io/gorm"
)

// GormStore persists products in the product service's own database. No other
// service writes to it; cross-entity edits arrive as events or internal calls.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a product store backed by gorm
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// FindByID returns the product or apperr.ErrNotFound
func (s *GormStore) FindByID(ctx context.Context, id string) (*model.Product, error) {
	var product model.Product
	result := s.db.WithContext(ctx).First(&product, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, result.Error
	}
	return &product, nil
}

// FindByUserID returns all products owned by the given user
func (s *GormStore) FindByUserID(ctx context.Context, userID string) ([]model.Product, error) {
	var products []model.Product
	result := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&products)
	return products, result.Error
}

// FindAll returns every product
func (s *GormStore) FindAll(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	result := s.db.WithContext(ctx).Find(&products)
	return products, result.Error
}

// Create inserts a new product
func (s *GormStore) Create(ctx context.Context, product *model.Product) error {
	return s.db.WithContext(ctx).Create(product).Error
}

// Save persists all fields of an existing product
func (s *GormStore) Save(ctx context.Context, product *model.Product) error {
	return s.db.WithContext(ctx).Save(product).Error
}

// Delete removes a product by id. Deleting an absent id is not an error.
func (s *GormStore) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Delete(&model.Product{}, "id = ?", id).Error
}

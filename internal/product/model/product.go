package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product represents a product owned by a seller. MediaIDs keeps insertion
// order: it is the display order of the product's images.
type Product struct {
	ID          string    `json:"id" gorm:"type:uuid;primaryKey"`
	Name        string    `json:"name" gorm:"type:varchar(255);not null"`
	Description string    `json:"description" gorm:"type:text"`
	Price       float64   `json:"price" gorm:"not null"`
	Quantity    int       `json:"quantity" gorm:"default:0"`
	UserID      string    `json:"userId" gorm:"type:uuid;index;not null"`
	MediaIDs    []string  `json:"mediaIds" gorm:"type:jsonb;serializer:json"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// BeforeCreate assigns a UUID primary key
func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// RemoveMediaID removes a media id from the reference list, preserving the
// order of the remaining ids. Removing an absent id is a no-op; the return
// value reports whether anything changed.
func (p *Product) RemoveMediaID(mediaID string) bool {
	for i, id := range p.MediaIDs {
		if id == mediaID {
			p.MediaIDs = append(p.MediaIDs[:i], p.MediaIDs[i+1:]...)
			return true
		}
	}
	return false
}

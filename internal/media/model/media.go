package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Media represents an uploaded file owned by a user and optionally associated
// with one product. The back-link ProductID is stamped by the product service
// through the association call after its own write has committed.
type Media struct {
	ID               string    `json:"id" gorm:"type:uuid;primaryKey"`
	OriginalFilename string    `json:"originalFilename" gorm:"type:varchar(255)"`
	ContentType      string    `json:"contentType" gorm:"type:varchar(100)"`
	Size             int64     `json:"size"`
	FilePath         string    `json:"-" gorm:"type:text"`
	UserID           string    `json:"userId" gorm:"type:uuid;index;not null"`
	ProductID        string    `json:"productId,omitempty" gorm:"type:uuid;index"`
	URL              string    `json:"url" gorm:"type:text"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// BeforeCreate assigns a UUID primary key
func (m *Media) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

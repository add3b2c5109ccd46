package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Genre is a storefront category (e-books, premium accounts, ...).
type Genre struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Name        string    `gorm:"size:128;uniqueIndex;not null" json:"name"`
	Slug        string    `gorm:"size:128;index" json:"slug"`
	Description string    `gorm:"type:text" json:"description"`
	ImageURL    string    `gorm:"size:1024" json:"image_url"` // secure URL returned by the upload pipeline
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID when none was provided.
func (g *Genre) BeforeCreate(tx *gorm.DB) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	return nil
}

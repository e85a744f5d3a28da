package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CatalogEntry is one selectable option of a registration catalog
// (languages, specialties or courts).
type CatalogEntry struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Kind      string    `gorm:"size:32;not null;uniqueIndex:idx_catalog_kind_value" json:"kind"`
	Value     string    `gorm:"size:100;not null;uniqueIndex:idx_catalog_kind_value" json:"value"`
	Label     string    `gorm:"size:150;not null" json:"label"`
	Position  int       `gorm:"not null;default:0" json:"position"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (c *CatalogEntry) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID, err = uuid.NewV7()
	}
	return
}

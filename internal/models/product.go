package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ProductStatus string

const (
	ProductStatusDraft     ProductStatus = "draft"
	ProductStatusPublished ProductStatus = "publish"
)

// Product is a catalog entry. ExternalID holds the Spire inventory id and is
// the only key used to match ERP records to catalog rows.
type Product struct {
	ID           string            `json:"id" gorm:"type:uuid;primaryKey"`
	ExternalID   string            `json:"external_id" gorm:"uniqueIndex;not null"`
	SKU          string            `json:"sku"`
	Title        string            `json:"title" gorm:"not null"`
	Status       ProductStatus     `json:"status" gorm:"default:draft"`
	RegularPrice decimal.Decimal   `json:"regular_price" gorm:"type:decimal(10,2)"`
	Weight       string            `json:"weight"`
	ImageID      *string           `json:"image_id" gorm:"type:uuid"`
	Metadata     datatypes.JSONMap `json:"metadata"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`

	Image *MediaAsset `json:"image,omitempty" gorm:"foreignKey:ImageID"`
}

// MediaAsset is an image already present in the media library. Sync only
// links products to existing assets, it never downloads new ones.
type MediaAsset struct {
	ID        string    `json:"id" gorm:"type:uuid;primaryKey"`
	Title     string    `json:"title" gorm:"index;not null"`
	URL       string    `json:"url"`
	MimeType  string    `json:"mime_type"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

func (m *MediaAsset) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}

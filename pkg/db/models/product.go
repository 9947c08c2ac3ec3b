package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/artfolio/storefront-backend/pkg/enums"
)

// Product is a catalog artwork. Only published products are purchasable.
type Product struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	Title       string              `gorm:"column:title;not null"`
	Description *string             `gorm:"column:description"`
	ArtistName  *string             `gorm:"column:artist_name"`
	ImageURL    *string             `gorm:"column:image_url"`
	CategoryID  *uuid.UUID          `gorm:"column:category_id;type:uuid"`
	Price       decimal.Decimal     `gorm:"column:price;type:numeric(12,2);not null"`
	Status      enums.ProductStatus `gorm:"column:status;not null;default:'draft'"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// IsPurchasable reports whether the product can enter a checkout.
func (p *Product) IsPurchasable() bool {
	return p != nil && p.Status == enums.ProductStatusPublished
}

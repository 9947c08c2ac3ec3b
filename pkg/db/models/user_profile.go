package models

import (
	"time"

	"github.com/google/uuid"
)

// UserProfile is the storefront-side profile of an identity provider user.
type UserProfile struct {
	UID         string    `gorm:"column:uid;primaryKey"`
	Email       string    `gorm:"column:email;not null"`
	DisplayName *string   `gorm:"column:display_name"`
	Phone       *string   `gorm:"column:phone"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// CartEntry is one stored product/quantity pair in a user's cart.
type CartEntry struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserUID   string    `gorm:"column:user_uid;not null;uniqueIndex:ux_cart_entries_user_product"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:ux_cart_entries_user_product"`
	Quantity  int       `gorm:"column:quantity;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Favorite links a user to a liked artwork.
type Favorite struct {
	UserUID   string    `gorm:"column:user_uid;primaryKey"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/artfolio/storefront-backend/pkg/enums"
)

// Notification stores in-app notifications addressed to a customer.
type Notification struct {
	ID        uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	UserUID   string                 `gorm:"column:user_uid;not null;index"`
	Type      enums.NotificationType `gorm:"column:type;not null"`
	Title     string                 `gorm:"column:title;not null"`
	Message   string                 `gorm:"column:message;not null"`
	Link      *string                `gorm:"column:link"`
	ReadAt    *time.Time             `gorm:"column:read_at"`
	CreatedAt time.Time              `gorm:"column:created_at;autoCreateTime"`
}

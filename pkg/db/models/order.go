package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/dishdash-backend/pkg/enums"
	"github.com/angelmondragon/dishdash-backend/pkg/types"
)

// Order is created once at submission and only mutated through status
// transitions and delivery assignment. Version increments on every mutation.
type Order struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID      uuid.UUID         `gorm:"column:customer_id;type:uuid;not null"`
	RestaurantID    uuid.UUID         `gorm:"column:restaurant_id;type:uuid;not null"`
	DeliveryAgentID *uuid.UUID        `gorm:"column:delivery_agent_id;type:uuid"`
	Items           types.OrderItems  `gorm:"column:items;type:jsonb;serializer:json;not null"`
	TotalCents      int64             `gorm:"column:total_cents;not null"`
	Status          enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'placed'"`
	Notes           *string           `gorm:"column:notes"`
	Version         int64             `gorm:"column:version;not null;default:1"`
	AcceptedAt      *time.Time        `gorm:"column:accepted_at"`
	ReadyAt         *time.Time        `gorm:"column:ready_at"`
	PickedUpAt      *time.Time        `gorm:"column:picked_up_at"`
	DeliveredAt     *time.Time        `gorm:"column:delivered_at"`
	CancelledAt     *time.Time        `gorm:"column:cancelled_at"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

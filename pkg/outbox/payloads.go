package outbox

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/dishdash-backend/pkg/enums"
	"github.com/angelmondragon/dishdash-backend/pkg/types"
)

type OrderPlacedEvent struct {
	OrderID      uuid.UUID        `json:"orderId"`
	CustomerID   uuid.UUID        `json:"customerId"`
	RestaurantID uuid.UUID        `json:"restaurantId"`
	Items        types.OrderItems `json:"items"`
	TotalCents   int64            `json:"totalCents"`
	Version      int64            `json:"version"`
}

type OrderStatusChangedEvent struct {
	OrderID      uuid.UUID         `json:"orderId"`
	RestaurantID uuid.UUID         `json:"restaurantId"`
	CustomerID   uuid.UUID         `json:"customerId"`
	From         enums.OrderStatus `json:"from"`
	To           enums.OrderStatus `json:"to"`
	Version      int64             `json:"version"`
	Reason       string            `json:"reason,omitempty"`
}

type OrderAgentAssignedEvent struct {
	OrderID      uuid.UUID  `json:"orderId"`
	RestaurantID uuid.UUID  `json:"restaurantId"`
	AgentID      uuid.UUID  `json:"agentId"`
	PreviousID   *uuid.UUID `json:"previousAgentId,omitempty"`
	Version      int64      `json:"version"`
}

type UserRegisteredEvent struct {
	UserID uuid.UUID      `json:"userId"`
	Role   enums.UserRole `json:"role"`
}

package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/dishdash-backend/pkg/db/models"
	"github.com/angelmondragon/dishdash-backend/pkg/enums"
	"github.com/angelmondragon/dishdash-backend/pkg/money"
	"github.com/angelmondragon/dishdash-backend/pkg/pagination"
	"github.com/angelmondragon/dishdash-backend/pkg/types"
)

// Actor is the authenticated caller of an order operation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// SystemActor drives automated transitions such as expiry.
var SystemActor = Actor{Role: enums.UserRoleSystem}

// ListParams filters and pages the order list.
type ListParams struct {
	Status *enums.OrderStatus
	pagination.Params
}

// UpdateStatusInput requests a transition. ExpectedVersion, when set, must
// match the stored version.
type UpdateStatusInput struct {
	Status          string
	ExpectedVersion *int64
	Reason          string
}

// OrderItemDTO is one snapshot line with display prices.
type OrderItemDTO struct {
	DishID         uuid.UUID `json:"dish_id"`
	Name           string    `json:"name"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	UnitPrice      string    `json:"unit_price"`
}

// OrderDTO is the API view of an order.
type OrderDTO struct {
	ID              uuid.UUID           `json:"id"`
	CustomerID      uuid.UUID           `json:"customer_id"`
	RestaurantID    uuid.UUID           `json:"restaurant_id"`
	DeliveryAgentID *uuid.UUID          `json:"delivery_agent_id,omitempty"`
	Items           []OrderItemDTO      `json:"items"`
	TotalCents      int64               `json:"total_cents"`
	Total           string              `json:"total"`
	Status          enums.OrderStatus   `json:"status"`
	NextStatuses    []enums.OrderStatus `json:"next_statuses"`
	Notes           *string             `json:"notes,omitempty"`
	Version         int64               `json:"version"`
	AcceptedAt      *time.Time          `json:"accepted_at,omitempty"`
	ReadyAt         *time.Time          `json:"ready_at,omitempty"`
	PickedUpAt      *time.Time          `json:"picked_up_at,omitempty"`
	DeliveredAt     *time.Time          `json:"delivered_at,omitempty"`
	CancelledAt     *time.Time          `json:"cancelled_at,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// FromModel maps a persisted order to its API view.
func FromModel(m models.Order) OrderDTO {
	return OrderDTO{
		ID:              m.ID,
		CustomerID:      m.CustomerID,
		RestaurantID:    m.RestaurantID,
		DeliveryAgentID: m.DeliveryAgentID,
		Items:           itemsFromSnapshot(m.Items),
		TotalCents:      m.TotalCents,
		Total:           money.FormatCents(m.TotalCents),
		Status:          m.Status,
		NextStatuses:    m.Status.Successors(),
		Notes:           m.Notes,
		Version:         m.Version,
		AcceptedAt:      m.AcceptedAt,
		ReadyAt:         m.ReadyAt,
		PickedUpAt:      m.PickedUpAt,
		DeliveredAt:     m.DeliveredAt,
		CancelledAt:     m.CancelledAt,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func itemsFromSnapshot(items types.OrderItems) []OrderItemDTO {
	out := make([]OrderItemDTO, 0, len(items))
	for _, item := range items {
		out = append(out, OrderItemDTO{
			DishID:         item.DishID,
			Name:           item.Name,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			UnitPrice:      money.FormatCents(item.UnitPriceCents),
		})
	}
	return out
}

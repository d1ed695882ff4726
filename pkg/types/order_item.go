package types

import "github.com/google/uuid"

// OrderItem is the immutable snapshot of a cart line stored on an order.
type OrderItem struct {
	DishID         uuid.UUID `json:"dish_id"`
	Name           string    `json:"name"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	Quantity       int       `json:"quantity"`
}

// OrderItems is persisted as a jsonb column.
type OrderItems []OrderItem

// TotalCents sums unit price times quantity across the snapshot.
func (items OrderItems) TotalCents() int64 {
	var total int64
	for _, item := range items {
		total += item.UnitPriceCents * int64(item.Quantity)
	}
	return total
}

package cart

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/dishdash-backend/pkg/money"
)

// LineView is a cart line as returned to clients.
type LineView struct {
	DishID         uuid.UUID `json:"dish_id"`
	Name           string    `json:"name"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	UnitPrice      string    `json:"unit_price"`
	LineTotalCents int64     `json:"line_total_cents"`
	LineTotal      string    `json:"line_total"`
}

// View is the client-facing cart.
type View struct {
	RestaurantID *uuid.UUID `json:"restaurant_id,omitempty"`
	Items        []LineView `json:"items"`
	ItemCount    int        `json:"item_count"`
	TotalCents   int64      `json:"total_cents"`
	Total        string     `json:"total"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

// NewView renders a cart for API responses.
func NewView(c *Cart) View {
	if c == nil {
		c = New()
	}
	lines := c.Lines()
	view := View{
		Items:      make([]LineView, 0, len(lines)),
		ItemCount:  c.ItemCount(),
		TotalCents: c.Total(),
		Total:      money.FormatCents(c.Total()),
	}
	if id := c.RestaurantID(); id != uuid.Nil {
		view.RestaurantID = &id
	}
	if ts := c.UpdatedAt(); !ts.IsZero() {
		view.UpdatedAt = &ts
	}
	for _, line := range lines {
		total := line.LineTotalCents()
		view.Items = append(view.Items, LineView{
			DishID:         line.DishID,
			Name:           line.Name,
			Quantity:       line.Quantity,
			UnitPriceCents: line.UnitPriceCents,
			UnitPrice:      money.FormatCents(line.UnitPriceCents),
			LineTotalCents: total,
			LineTotal:      money.FormatCents(total),
		})
	}
	return view
}

package cart

import (
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/dishdash-backend/pkg/errors"
	"github.com/angelmondragon/dishdash-backend/pkg/types"
)

const (
	// MaxLineQuantity bounds a single line so totals stay well inside int64.
	MaxLineQuantity = 999
	// MaxUnitPriceCents bounds a single menu price (1,000,000.00).
	MaxUnitPriceCents int64 = 100_000_000
)

// Item describes a dish being added to the cart.
type Item struct {
	DishID         uuid.UUID
	Name           string
	UnitPriceCents int64
	RestaurantID   uuid.UUID
}

// Line is one distinct dish and its requested quantity.
type Line struct {
	DishID         uuid.UUID `json:"dish_id"`
	Name           string    `json:"name"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	Quantity       int       `json:"quantity"`
	RestaurantID   uuid.UUID `json:"restaurant_id"`
}

// LineTotalCents is unit price times quantity.
func (l Line) LineTotalCents() int64 {
	return l.UnitPriceCents * int64(l.Quantity)
}

// Cart aggregates the lines of one in-progress order. It is not safe for
// concurrent use; callers load, mutate and save it per request.
type Cart struct {
	lines     []Line
	total     int64
	updatedAt time.Time
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{}
}

// AddItem increments the matching line or appends a new one with quantity 1.
// Items from a different restaurant than the current lines are rejected and
// leave the cart untouched.
func (c *Cart) AddItem(item Item) error {
	if err := validateItem(item); err != nil {
		return err
	}
	if current := c.RestaurantID(); current != uuid.Nil && current != item.RestaurantID {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart already holds items from another restaurant").
			WithDetails(map[string]any{
				"reason":             "restaurant_mismatch",
				"cart_restaurant_id": current.String(),
				"item_restaurant_id": item.RestaurantID.String(),
			})
	}

	if idx := c.indexOf(item.DishID); idx >= 0 {
		if c.lines[idx].Quantity >= MaxLineQuantity {
			return quantityTooLarge()
		}
		c.lines[idx].Quantity++
	} else {
		c.lines = append(c.lines, Line{
			DishID:         item.DishID,
			Name:           item.Name,
			UnitPriceCents: item.UnitPriceCents,
			Quantity:       1,
			RestaurantID:   item.RestaurantID,
		})
	}
	c.touch()
	return nil
}

// RemoveItem drops the line for dishID. Missing ids are a no-op.
func (c *Cart) RemoveItem(dishID uuid.UUID) {
	idx := c.indexOf(dishID)
	if idx < 0 {
		return
	}
	c.lines = append(c.lines[:idx], c.lines[idx+1:]...)
	c.touch()
}

// UpdateQuantity sets the quantity of an existing line. A quantity of zero or
// less removes the line. Missing ids are a no-op.
func (c *Cart) UpdateQuantity(dishID uuid.UUID, quantity int) error {
	idx := c.indexOf(dishID)
	if idx < 0 {
		return nil
	}
	if quantity <= 0 {
		c.RemoveItem(dishID)
		return nil
	}
	if quantity > MaxLineQuantity {
		return quantityTooLarge()
	}
	c.lines[idx].Quantity = quantity
	c.touch()
	return nil
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.lines = nil
	c.touch()
}

// Total is the sum of unit price times quantity across lines, in cents.
func (c *Cart) Total() int64 {
	return c.total
}

// Lines returns a copy of the lines in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Len() int {
	return len(c.lines)
}

func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

// ItemCount sums quantities across lines.
func (c *Cart) ItemCount() int {
	count := 0
	for _, line := range c.lines {
		count += line.Quantity
	}
	return count
}

// RestaurantID is the restaurant of the first line, or uuid.Nil when empty.
func (c *Cart) RestaurantID() uuid.UUID {
	if len(c.lines) == 0 {
		return uuid.Nil
	}
	return c.lines[0].RestaurantID
}

func (c *Cart) UpdatedAt() time.Time {
	return c.updatedAt
}

// Validate enforces the submission precondition: at least one line and a
// single restaurant across all lines.
func (c *Cart) Validate() error {
	if len(c.lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty").
			WithDetails(map[string]any{"reason": "empty_cart"})
	}
	restaurantID := c.lines[0].RestaurantID
	if restaurantID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart is missing a restaurant").
			WithDetails(map[string]any{"reason": "missing_restaurant"})
	}
	for _, line := range c.lines[1:] {
		if line.RestaurantID != restaurantID {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart contains items from multiple restaurants").
				WithDetails(map[string]any{"reason": "multiple_restaurants"})
		}
	}
	return nil
}

// OrderItems snapshots the lines for persistence on an order.
func (c *Cart) OrderItems() types.OrderItems {
	items := make(types.OrderItems, 0, len(c.lines))
	for _, line := range c.lines {
		items = append(items, types.OrderItem{
			DishID:         line.DishID,
			Name:           line.Name,
			UnitPriceCents: line.UnitPriceCents,
			Quantity:       line.Quantity,
		})
	}
	return items
}

func (c *Cart) indexOf(dishID uuid.UUID) int {
	for i, line := range c.lines {
		if line.DishID == dishID {
			return i
		}
	}
	return -1
}

func (c *Cart) touch() {
	c.recompute()
	c.updatedAt = time.Now().UTC()
}

func (c *Cart) recompute() {
	var total int64
	for _, line := range c.lines {
		total += line.LineTotalCents()
	}
	c.total = total
}

func validateItem(item Item) error {
	switch {
	case item.DishID == uuid.Nil:
		return pkgerrors.New(pkgerrors.CodeValidation, "dish id is required")
	case item.RestaurantID == uuid.Nil:
		return pkgerrors.New(pkgerrors.CodeValidation, "restaurant id is required")
	case item.UnitPriceCents < 0:
		return pkgerrors.New(pkgerrors.CodeValidation, "unit price must not be negative")
	case item.UnitPriceCents > MaxUnitPriceCents:
		return pkgerrors.New(pkgerrors.CodeValidation, "unit price exceeds maximum")
	}
	return nil
}

func quantityTooLarge() error {
	return pkgerrors.Newf(pkgerrors.CodeValidation, "quantity must be at most %d", MaxLineQuantity)
}

package cart

import (
	"github.com/google/uuid"

	cartsvc "github.com/angelmondragon/dishdash-backend/internal/cart"
)

// AddItemRequest adds one dish. Replace empties a cart holding another restaurant first.
type AddItemRequest struct {
	DishID   uuid.UUID `json:"dish_id" validate:"required"`
	Quantity int       `json:"quantity" validate:"omitempty,min=1,max=99"`
	Replace  bool      `json:"replace"`
}

// UpdateQuantityRequest sets a line's quantity; zero or below removes it.
type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required,max=99"`
}

func (r AddItemRequest) toInput() cartsvc.AddItemInput {
	return cartsvc.AddItemInput{
		DishID:   r.DishID,
		Quantity: r.Quantity,
		Replace:  r.Replace,
	}
}

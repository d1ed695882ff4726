package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/dishdash-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/dishdash-backend/pkg/errors"
	"github.com/angelmondragon/dishdash-backend/pkg/logger"
)

type catalog interface {
	FindDish(ctx context.Context, dishID uuid.UUID) (*models.Dish, error)
	FindRestaurant(ctx context.Context, id uuid.UUID) (*models.Restaurant, error)
}

// AddItemInput adds Quantity units of a dish. Replace empties the cart first,
// which is how a client switches restaurants.
type AddItemInput struct {
	DishID   uuid.UUID
	Quantity int
	Replace  bool
}

// Service exposes the customer's cart.
type Service interface {
	Get(ctx context.Context, customerID uuid.UUID) (*View, error)
	AddItem(ctx context.Context, customerID uuid.UUID, input AddItemInput) (*View, error)
	UpdateQuantity(ctx context.Context, customerID, dishID uuid.UUID, quantity int) (*View, error)
	RemoveItem(ctx context.Context, customerID, dishID uuid.UUID) (*View, error)
	Clear(ctx context.Context, customerID uuid.UUID) error
}

// ServiceParams wires the cart service.
type ServiceParams struct {
	Store   Store
	Locker  Locker
	Catalog catalog
	Logger  *logger.Logger
}

type service struct {
	store   Store
	locker  Locker
	catalog catalog
	logg    *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if params.Locker == nil {
		return nil, fmt.Errorf("cart locker required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog required")
	}
	return &service{
		store:   params.Store,
		locker:  params.Locker,
		catalog: params.Catalog,
		logg:    params.Logger,
	}, nil
}

func (s *service) Get(ctx context.Context, customerID uuid.UUID) (*View, error) {
	c, err := s.store.Load(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	view := NewView(c)
	return &view, nil
}

func (s *service) AddItem(ctx context.Context, customerID uuid.UUID, input AddItemInput) (*View, error) {
	if input.DishID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dish_id is required")
	}
	quantity := input.Quantity
	if quantity == 0 {
		quantity = 1
	}
	switch {
	case quantity < 0:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
			WithDetails(map[string]any{"quantity": quantity})
	case quantity > MaxLineQuantity:
		return nil, quantityTooLarge()
	}

	item, err := s.resolveItem(ctx, input.DishID)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, customerID, func(c *Cart) error {
		if input.Replace {
			c.Clear()
		}
		if err := c.AddItem(item); err != nil {
			return err
		}
		if quantity == 1 {
			return nil
		}
		current := 0
		for _, line := range c.Lines() {
			if line.DishID == item.DishID {
				current = line.Quantity
			}
		}
		return c.UpdateQuantity(item.DishID, current+quantity-1)
	})
}

func (s *service) UpdateQuantity(ctx context.Context, customerID, dishID uuid.UUID, quantity int) (*View, error) {
	return s.mutate(ctx, customerID, func(c *Cart) error {
		return c.UpdateQuantity(dishID, quantity)
	})
}

func (s *service) RemoveItem(ctx context.Context, customerID, dishID uuid.UUID) (*View, error) {
	return s.mutate(ctx, customerID, func(c *Cart) error {
		c.RemoveItem(dishID)
		return nil
	})
}

func (s *service) Clear(ctx context.Context, customerID uuid.UUID) error {
	unlock, err := s.locker.Lock(ctx, customerID)
	if err != nil {
		return err
	}
	defer unlock()
	if err := s.store.Delete(ctx, customerID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

// mutate runs fn against the stored cart under the customer's lock. A failing
// fn leaves the stored cart as it was.
func (s *service) mutate(ctx context.Context, customerID uuid.UUID, fn func(*Cart) error) (*View, error) {
	unlock, err := s.locker.Lock(ctx, customerID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	c, err := s.store.Load(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if err := fn(c); err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, customerID, c); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart")
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"customer_id": customerID.String(),
			"lines":       c.Len(),
			"total_cents": c.Total(),
		})
		s.logg.Debug(logCtx, "cart updated")
	}
	view := NewView(c)
	return &view, nil
}

func (s *service) resolveItem(ctx context.Context, dishID uuid.UUID) (Item, error) {
	dish, err := s.catalog.FindDish(ctx, dishID)
	if err != nil {
		return Item{}, err
	}
	if !dish.IsAvailable {
		return Item{}, pkgerrors.New(pkgerrors.CodeValidation, "dish is not available").
			WithDetails(map[string]any{"reason": "dish_unavailable", "dish_id": dishID.String()})
	}
	restaurant, err := s.catalog.FindRestaurant(ctx, dish.RestaurantID)
	if err != nil {
		return Item{}, err
	}
	if !restaurant.IsOpen {
		return Item{}, pkgerrors.New(pkgerrors.CodeValidation, "restaurant is closed").
			WithDetails(map[string]any{"reason": "restaurant_closed", "restaurant_id": restaurant.ID.String()})
	}
	return Item{
		DishID:         dish.ID,
		Name:           dish.Name,
		UnitPriceCents: dish.PriceCents,
		RestaurantID:   dish.RestaurantID,
	}, nil
}

package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/dishdash-backend/internal/cart"
	"github.com/angelmondragon/dishdash-backend/internal/orders"
	"github.com/angelmondragon/dishdash-backend/internal/realtime"
	"github.com/angelmondragon/dishdash-backend/pkg/db/models"
	"github.com/angelmondragon/dishdash-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/dishdash-backend/pkg/errors"
	"github.com/angelmondragon/dishdash-backend/pkg/logger"
	"github.com/angelmondragon/dishdash-backend/pkg/metrics"
	"github.com/angelmondragon/dishdash-backend/pkg/outbox"
)

const maxNotesLength = 500

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type restaurantLoader interface {
	FindByIDTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Restaurant, error)
}

// SubmitInput carries the optional customer notes for the kitchen.
type SubmitInput struct {
	Notes string
}

// Service turns a customer's cart into a placed order.
type Service interface {
	Submit(ctx context.Context, customerID uuid.UUID, input SubmitInput) (*orders.OrderDTO, error)
}

// ServiceParams wires the checkout service.
type ServiceParams struct {
	Tx          txRunner
	Carts       cart.Store
	Locker      cart.Locker
	Orders      orders.Repository
	Restaurants restaurantLoader
	Outbox      outboxPublisher
	Realtime    realtime.Publisher
	Metrics     *metrics.OrderMetrics
	Logger      *logger.Logger
}

type service struct {
	tx          txRunner
	carts       cart.Store
	locker      cart.Locker
	orders      orders.Repository
	restaurants restaurantLoader
	outbox      outboxPublisher
	realtime    realtime.Publisher
	metrics     *metrics.OrderMetrics
	logg        *logger.Logger
}

// NewService builds the checkout service. Realtime and Logger are optional.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if params.Locker == nil {
		return nil, fmt.Errorf("cart locker required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Restaurants == nil {
		return nil, fmt.Errorf("restaurant loader required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		tx:          params.Tx,
		carts:       params.Carts,
		locker:      params.Locker,
		orders:      params.Orders,
		restaurants: params.Restaurants,
		outbox:      params.Outbox,
		realtime:    params.Realtime,
		metrics:     params.Metrics,
		logg:        params.Logger,
	}, nil
}

// Submit validates the cart, persists the order with its placed event, and
// only then deletes the cart. Any failure before the commit leaves the cart
// untouched.
func (s *service) Submit(ctx context.Context, customerID uuid.UUID, input SubmitInput) (*orders.OrderDTO, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}
	notes := strings.TrimSpace(input.Notes)
	if len(notes) > maxNotesLength {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "notes must be at most %d characters", maxNotesLength)
	}

	unlock, err := s.locker.Lock(ctx, customerID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	c, err := s.carts.Load(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	order := &models.Order{
		ID:           uuid.New(),
		CustomerID:   customerID,
		RestaurantID: c.RestaurantID(),
		Items:        c.OrderItems(),
		TotalCents:   c.Total(),
		Status:       enums.OrderStatusPlaced,
		Version:      1,
	}
	if notes != "" {
		order.Notes = &notes
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		restaurant, err := s.restaurants.FindByIDTx(ctx, tx, order.RestaurantID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeValidation, "restaurant no longer exists").
					WithDetails(map[string]any{"reason": "missing_restaurant"})
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load restaurant")
		}
		if !restaurant.IsOpen {
			return pkgerrors.New(pkgerrors.CodeValidation, "restaurant is closed").
				WithDetails(map[string]any{"reason": "restaurant_closed"})
		}

		if err := s.orders.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPlaced,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: customerID, Role: string(enums.UserRoleCustomer)},
			Data: outbox.OrderPlacedEvent{
				OrderID:      order.ID,
				CustomerID:   order.CustomerID,
				RestaurantID: order.RestaurantID,
				Items:        order.Items,
				TotalCents:   order.TotalCents,
				Version:      order.Version,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit order placed")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncPlaced()

	var logCtx context.Context
	if s.logg != nil {
		logCtx = s.logg.WithOrderID(ctx, order.ID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"customer_id":   customerID.String(),
			"restaurant_id": order.RestaurantID.String(),
			"total_cents":   order.TotalCents,
		})
		s.logg.Info(logCtx, "order placed")
	}

	// The order is committed; a failed delete only leaves a stale cart behind.
	if err := s.carts.Delete(ctx, customerID); err != nil && s.logg != nil {
		s.logg.Error(logCtx, "clear cart after submit", err)
	}

	if s.realtime != nil {
		change := realtime.Change{
			OrderID:      order.ID,
			RestaurantID: order.RestaurantID,
			CustomerID:   order.CustomerID,
			Status:       order.Status,
			Version:      order.Version,
			OccurredAt:   time.Now().UTC(),
		}
		if err := s.realtime.Publish(ctx, change); err != nil && s.logg != nil {
			s.logg.Warn(logCtx, fmt.Sprintf("realtime publish failed: %v", err))
		}
	}

	dto := orders.FromModel(*order)
	return &dto, nil
}

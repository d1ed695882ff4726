package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/dishdash-backend/internal/realtime"
	"github.com/angelmondragon/dishdash-backend/pkg/db/models"
	"github.com/angelmondragon/dishdash-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/dishdash-backend/pkg/errors"
	"github.com/angelmondragon/dishdash-backend/pkg/logger"
	"github.com/angelmondragon/dishdash-backend/pkg/metrics"
	"github.com/angelmondragon/dishdash-backend/pkg/outbox"
	"github.com/angelmondragon/dishdash-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type restaurantOwnership interface {
	OwnedIDs(ctx context.Context, ownerID uuid.UUID) ([]uuid.UUID, error)
}

type userLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Service defines order reads and lifecycle mutations.
type Service interface {
	List(ctx context.Context, actor Actor, params ListParams) (pagination.Page[OrderDTO], error)
	Get(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDTO, error)
	UpdateStatus(ctx context.Context, actor Actor, orderID uuid.UUID, input UpdateStatusInput) (*OrderDTO, error)
	AssignAgent(ctx context.Context, actor Actor, orderID, agentID uuid.UUID) (*OrderDTO, error)
	ListAvailableForPickup(ctx context.Context, actor Actor, params pagination.Params) (pagination.Page[OrderDTO], error)
	ListStalePlaced(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
}

// ServiceParams wires the orders service.
type ServiceParams struct {
	Repo        Repository
	Tx          txRunner
	Outbox      outboxPublisher
	Restaurants restaurantOwnership
	Users       userLookup
	Realtime    realtime.Publisher
	Metrics     *metrics.OrderMetrics
	Logger      *logger.Logger
	Now         func() time.Time
}

type service struct {
	repo        Repository
	tx          txRunner
	outbox      outboxPublisher
	restaurants restaurantOwnership
	users       userLookup
	realtime    realtime.Publisher
	metrics     *metrics.OrderMetrics
	logg        *logger.Logger
	now         func() time.Time
}

// NewService builds the orders service. Realtime and Logger are optional.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Restaurants == nil {
		return nil, fmt.Errorf("restaurant ownership lookup required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("users lookup required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:        params.Repo,
		tx:          params.Tx,
		outbox:      params.Outbox,
		restaurants: params.Restaurants,
		users:       params.Users,
		realtime:    params.Realtime,
		metrics:     params.Metrics,
		logg:        params.Logger,
		now:         now,
	}, nil
}

func (s *service) List(ctx context.Context, actor Actor, params ListParams) (pagination.Page[OrderDTO], error) {
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return pagination.Page[OrderDTO]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	scope, err := s.scopeFor(ctx, actor)
	if err != nil {
		return pagination.Page[OrderDTO]{}, err
	}
	return s.list(ctx, scope, params.Status, params.Params)
}

// ListAvailableForPickup shows delivery agents the ready orders nobody has claimed.
func (s *service) ListAvailableForPickup(ctx context.Context, actor Actor, params pagination.Params) (pagination.Page[OrderDTO], error) {
	if actor.Role != enums.UserRoleDelivery && actor.Role != enums.UserRoleAdmin {
		return pagination.Page[OrderDTO]{}, pkgerrors.New(pkgerrors.CodeForbidden, "only delivery agents can view the pickup board")
	}
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return pagination.Page[OrderDTO]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	return s.list(ctx, Scope{UnassignedReady: true}, nil, params)
}

func (s *service) list(ctx context.Context, scope Scope, status *enums.OrderStatus, params pagination.Params) (pagination.Page[OrderDTO], error) {
	rows, err := s.repo.List(ctx, scope, status, params)
	if err != nil {
		return pagination.Page[OrderDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	page := pagination.Build(rows, params.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	items := make([]OrderDTO, 0, len(page.Items))
	for _, row := range page.Items {
		items = append(items, FromModel(row))
	}
	return pagination.Page[OrderDTO]{Items: items, NextCursor: page.NextCursor}, nil
}

func (s *service) Get(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.loadVisible(ctx, s.repo, actor, orderID)
	if err != nil {
		return nil, err
	}
	dto := FromModel(*order)
	return &dto, nil
}

func (s *service) UpdateStatus(ctx context.Context, actor Actor, orderID uuid.UUID, input UpdateStatusInput) (*OrderDTO, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	target, err := enums.ParseOrderStatus(input.Status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
	}

	var (
		updated *models.Order
		from    enums.OrderStatus
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadVisible(ctx, repo, actor, orderID)
		if err != nil {
			return err
		}
		if input.ExpectedVersion != nil && *input.ExpectedVersion != order.Version {
			return staleVersion(order)
		}
		if !order.Status.CanTransitionTo(target) {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot move order from %s to %s", order.Status, target).
				WithDetails(map[string]any{
					"from":    order.Status,
					"to":      target,
					"allowed": order.Status.Successors(),
				})
		}
		if !roleMayDrive(actor.Role, order.Status, target) {
			return pkgerrors.Newf(pkgerrors.CodeForbidden, "role %s cannot move order from %s to %s", actor.Role, order.Status, target)
		}
		if actor.Role == enums.UserRoleDelivery && !assignedTo(order, actor.UserID) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order is not assigned to this agent")
		}

		at := s.now()
		rows, err := repo.UpdateStatus(ctx, order.ID, order.Status, order.Version, target, at)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if rows == 0 {
			return staleVersion(order)
		}
		from = order.Status
		applyTransition(order, target, at)

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(actor),
			OccurredAt:    at,
			Data: outbox.OrderStatusChangedEvent{
				OrderID:      order.ID,
				RestaurantID: order.RestaurantID,
				CustomerID:   order.CustomerID,
				From:         from,
				To:           target,
				Version:      order.Version,
				Reason:       input.Reason,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit status change")
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, updated.ID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"from":    from,
			"to":      updated.Status,
			"version": updated.Version,
			"role":    actor.Role,
		})
		s.logg.Info(logCtx, "order status changed")
	}
	s.metrics.IncTransition(from, updated.Status)
	s.notify(ctx, updated)

	dto := FromModel(*updated)
	return &dto, nil
}

func (s *service) AssignAgent(ctx context.Context, actor Actor, orderID, agentID uuid.UUID) (*OrderDTO, error) {
	if actor.Role != enums.UserRoleAdmin && actor.Role != enums.UserRoleRestaurant {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only restaurants or admins can assign delivery agents")
	}
	if agentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "agent_id is required")
	}
	agent, err := s.users.FindByID(ctx, agentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "agent not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load agent")
	}
	if agent.Role != enums.UserRoleDelivery || !agent.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user is not an active delivery agent")
	}

	var (
		updated *models.Order
		changed bool
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadVisible(ctx, repo, actor, orderID)
		if err != nil {
			return err
		}
		if assignedTo(order, agentID) {
			updated = order
			return nil
		}
		if !assignableStatuses[order.Status] {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot assign an agent while order is %s", order.Status)
		}

		at := s.now()
		rows, err := repo.AssignAgent(ctx, order.ID, order.Version, agentID, at)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign agent")
		}
		if rows == 0 {
			return staleVersion(order)
		}
		previous := order.DeliveryAgentID
		order.DeliveryAgentID = &agentID
		order.Version++
		order.UpdatedAt = at

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderAgentAssigned,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(actor),
			OccurredAt:    at,
			Data: outbox.OrderAgentAssignedEvent{
				OrderID:      order.ID,
				RestaurantID: order.RestaurantID,
				AgentID:      agentID,
				PreviousID:   previous,
				Version:      order.Version,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit agent assignment")
		}
		updated = order
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.notify(ctx, updated)
	}
	dto := FromModel(*updated)
	return &dto, nil
}

// ListStalePlaced feeds the expiry job.
func (s *service) ListStalePlaced(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	rows, err := s.repo.ListPlacedBefore(ctx, cutoff, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stale orders")
	}
	return rows, nil
}

// loadVisible returns the order if the actor may see it. Invisible orders are
// reported as missing.
func (s *service) loadVisible(ctx context.Context, repo Repository, actor Actor, orderID uuid.UUID) (*models.Order, error) {
	order, err := repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	visible, err := s.canSee(ctx, actor, order)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) canSee(ctx context.Context, actor Actor, order *models.Order) (bool, error) {
	switch actor.Role {
	case enums.UserRoleAdmin, enums.UserRoleSystem:
		return true, nil
	case enums.UserRoleCustomer:
		return order.CustomerID == actor.UserID, nil
	case enums.UserRoleDelivery:
		if order.DeliveryAgentID != nil {
			return assignedTo(order, actor.UserID), nil
		}
		return order.Status == enums.OrderStatusReady, nil
	case enums.UserRoleRestaurant:
		ids, err := s.restaurants.OwnedIDs(ctx, actor.UserID)
		if err != nil {
			return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load owned restaurants")
		}
		for _, id := range ids {
			if id == order.RestaurantID {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, nil
	}
}

func (s *service) scopeFor(ctx context.Context, actor Actor) (Scope, error) {
	switch actor.Role {
	case enums.UserRoleAdmin:
		return Scope{All: true}, nil
	case enums.UserRoleCustomer:
		id := actor.UserID
		return Scope{CustomerID: &id}, nil
	case enums.UserRoleDelivery:
		id := actor.UserID
		return Scope{AgentID: &id}, nil
	case enums.UserRoleRestaurant:
		ids, err := s.restaurants.OwnedIDs(ctx, actor.UserID)
		if err != nil {
			return Scope{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load owned restaurants")
		}
		return Scope{RestaurantIDs: ids}, nil
	default:
		return Scope{}, pkgerrors.New(pkgerrors.CodeForbidden, "role cannot list orders")
	}
}

// notify publishes after commit. Failures are logged, never returned.
func (s *service) notify(ctx context.Context, order *models.Order) {
	if s.realtime == nil || order == nil {
		return
	}
	change := realtime.Change{
		OrderID:      order.ID,
		RestaurantID: order.RestaurantID,
		CustomerID:   order.CustomerID,
		AgentID:      order.DeliveryAgentID,
		Status:       order.Status,
		Version:      order.Version,
		OccurredAt:   order.UpdatedAt,
	}
	if err := s.realtime.Publish(ctx, change); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithOrderID(ctx, order.ID.String()), fmt.Sprintf("realtime publish failed: %v", err))
	}
}

func assignedTo(order *models.Order, agentID uuid.UUID) bool {
	return order.DeliveryAgentID != nil && *order.DeliveryAgentID == agentID
}

func staleVersion(order *models.Order) error {
	return pkgerrors.New(pkgerrors.CodeConflict, "order was modified concurrently").
		WithDetails(map[string]any{"current_version": order.Version, "current_status": order.Status})
}

func actorRef(actor Actor) *outbox.ActorRef {
	if actor.UserID == uuid.Nil && actor.Role == "" {
		return nil
	}
	return &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)}
}

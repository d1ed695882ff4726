package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/dishdash-backend/pkg/db/models"
	"github.com/angelmondragon/dishdash-backend/pkg/enums"
	"github.com/angelmondragon/dishdash-backend/pkg/pagination"
)

// Scope restricts which orders a query can see. The zero value sees nothing;
// set All for admins.
type Scope struct {
	All           bool
	CustomerID    *uuid.UUID
	RestaurantIDs []uuid.UUID
	AgentID       *uuid.UUID
	// UnassignedReady selects ready orders without an agent, for pickup boards.
	UnassignedReady bool
}

// Repository defines persistence operations for orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, scope Scope, status *enums.OrderStatus, params pagination.Params) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from enums.OrderStatus, version int64, to enums.OrderStatus, at time.Time) (int64, error)
	AssignAgent(ctx context.Context, id uuid.UUID, version int64, agentID uuid.UUID, at time.Time) (int64, error)
	ListPlacedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds an orders repository to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// List returns up to limit+1 rows, newest first.
func (r *repository) List(ctx context.Context, scope Scope, status *enums.OrderStatus, params pagination.Params) ([]models.Order, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{})
	switch {
	case scope.All:
	case scope.UnassignedReady:
		query = query.Where("status = ? AND delivery_agent_id IS NULL", enums.OrderStatusReady)
	case scope.CustomerID != nil:
		query = query.Where("customer_id = ?", *scope.CustomerID)
	case scope.AgentID != nil:
		query = query.Where("delivery_agent_id = ?", *scope.AgentID)
	case len(scope.RestaurantIDs) > 0:
		query = query.Where("restaurant_id IN ?", scope.RestaurantIDs)
	default:
		return []models.Order{}, nil
	}
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var rows []models.Order
	err := query.Scopes(pagination.Keyset(params)).Find(&rows).Error
	return rows, err
}

// UpdateStatus applies a transition only if the row still holds the expected
// status and version. It returns the number of rows changed.
func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from enums.OrderStatus, version int64, to enums.OrderStatus, at time.Time) (int64, error) {
	updates := map[string]any{
		"status":     to,
		"version":    gorm.Expr("version + 1"),
		"updated_at": at,
	}
	if column := timestampColumn(to); column != "" {
		updates[column] = at
	}
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ? AND version = ?", id, from, version).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *repository) AssignAgent(ctx context.Context, id uuid.UUID, version int64, agentID uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND version = ?", id, version).
		Updates(map[string]any{
			"delivery_agent_id": agentID,
			"version":           gorm.Expr("version + 1"),
			"updated_at":        at,
		})
	return res.RowsAffected, res.Error
}

// ListPlacedBefore returns the oldest placed orders created before cutoff.
func (r *repository) ListPlacedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", enums.OrderStatusPlaced, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

package stats

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/dishdash-backend/pkg/db/models"
	"github.com/angelmondragon/dishdash-backend/pkg/enums"
)

// Repository runs the aggregate queries behind the dashboards. A nil
// restaurant filter means platform-wide.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type statusCount struct {
	Status enums.OrderStatus
	Total  int64
}

func (r *Repository) orders(ctx context.Context, restaurantIDs []uuid.UUID) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.Order{})
	if restaurantIDs != nil {
		q = q.Where("restaurant_id IN ?", restaurantIDs)
	}
	return q
}

// CountByStatus groups orders by status.
func (r *Repository) CountByStatus(ctx context.Context, restaurantIDs []uuid.UUID) (map[enums.OrderStatus]int64, error) {
	var rows []statusCount
	err := r.orders(ctx, restaurantIDs).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[enums.OrderStatus]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Total
	}
	return out, nil
}

// DeliveredRevenue sums total_cents over delivered orders.
func (r *Repository) DeliveredRevenue(ctx context.Context, restaurantIDs []uuid.UUID) (int64, error) {
	var total int64
	err := r.orders(ctx, restaurantIDs).
		Where("status = ?", enums.OrderStatusDelivered).
		Select("COALESCE(SUM(total_cents), 0)").
		Scan(&total).Error
	return total, err
}

// OrderTimestampsSince returns created_at of orders placed at or after since.
func (r *Repository) OrderTimestampsSince(ctx context.Context, restaurantIDs []uuid.UUID, since time.Time) ([]time.Time, error) {
	var out []time.Time
	err := r.orders(ctx, restaurantIDs).
		Where("created_at >= ?", since).
		Pluck("created_at", &out).Error
	return out, err
}

// CountUsersByRole counts active and inactive users per role.
func (r *Repository) CountUsersByRole(ctx context.Context, role enums.UserRole) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("role = ?", role).Count(&total).Error
	return total, err
}

func (r *Repository) CountRestaurants(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Restaurant{}).Count(&total).Error
	return total, err
}

func (r *Repository) UserTimestampsSince(ctx context.Context, since time.Time) ([]time.Time, error) {
	var out []time.Time
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("created_at >= ?", since).
		Pluck("created_at", &out).Error
	return out, err
}

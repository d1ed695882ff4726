package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/dishdash-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/dishdash-backend/pkg/errors"
	"github.com/angelmondragon/dishdash-backend/pkg/money"
)

// SeriesDays is the window covered by the per-day series, today included.
const SeriesDays = 7

type queries interface {
	CountByStatus(ctx context.Context, restaurantIDs []uuid.UUID) (map[enums.OrderStatus]int64, error)
	DeliveredRevenue(ctx context.Context, restaurantIDs []uuid.UUID) (int64, error)
	OrderTimestampsSince(ctx context.Context, restaurantIDs []uuid.UUID, since time.Time) ([]time.Time, error)
	CountUsersByRole(ctx context.Context, role enums.UserRole) (int64, error)
	CountRestaurants(ctx context.Context) (int64, error)
	UserTimestampsSince(ctx context.Context, since time.Time) ([]time.Time, error)
}

type restaurantOwnership interface {
	OwnedIDs(ctx context.Context, ownerID uuid.UUID) ([]uuid.UUID, error)
}

// Service provides dashboard statistics.
type Service interface {
	Admin(ctx context.Context) (*AdminStats, error)
	Restaurant(ctx context.Context, ownerID uuid.UUID) (*RestaurantStats, error)
}

type service struct {
	repo        queries
	restaurants restaurantOwnership
	now         func() time.Time
}

func NewService(repo queries, restaurants restaurantOwnership, now func() time.Time) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("stats repository required")
	}
	if restaurants == nil {
		return nil, fmt.Errorf("restaurant ownership required")
	}
	if now == nil {
		now = time.Now
	}
	return &service{repo: repo, restaurants: restaurants, now: now}, nil
}

func (s *service) Admin(ctx context.Context) (*AdminStats, error) {
	orderStats, err := s.orderStats(ctx, nil)
	if err != nil {
		return nil, err
	}
	out := &AdminStats{OrderStats: *orderStats}

	if out.Customers, err = s.repo.CountUsersByRole(ctx, enums.UserRoleCustomer); err != nil {
		return nil, wrap(err, "count customers")
	}
	if out.DeliveryAgents, err = s.repo.CountUsersByRole(ctx, enums.UserRoleDelivery); err != nil {
		return nil, wrap(err, "count delivery agents")
	}
	if out.Restaurants, err = s.repo.CountRestaurants(ctx); err != nil {
		return nil, wrap(err, "count restaurants")
	}

	start := windowStart(s.now())
	signups, err := s.repo.UserTimestampsSince(ctx, start)
	if err != nil {
		return nil, wrap(err, "load signups")
	}
	out.NewUsersPerDay = BucketByDay(start, SeriesDays, signups)
	return out, nil
}

func (s *service) Restaurant(ctx context.Context, ownerID uuid.UUID) (*RestaurantStats, error) {
	ids, err := s.restaurants.OwnedIDs(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []uuid.UUID{}
	}
	orderStats, err := s.orderStats(ctx, ids)
	if err != nil {
		return nil, err
	}
	return &RestaurantStats{OrderStats: *orderStats, RestaurantCount: len(ids)}, nil
}

func (s *service) orderStats(ctx context.Context, restaurantIDs []uuid.UUID) (*OrderStats, error) {
	out := &OrderStats{ByStatus: make(map[enums.OrderStatus]int64)}
	for _, status := range enums.OrderStatuses() {
		out.ByStatus[status] = 0
	}

	start := windowStart(s.now())
	if restaurantIDs != nil && len(restaurantIDs) == 0 {
		out.Revenue = money.FormatCents(0)
		out.OrdersPerDay = BucketByDay(start, SeriesDays, nil)
		return out, nil
	}

	counts, err := s.repo.CountByStatus(ctx, restaurantIDs)
	if err != nil {
		return nil, wrap(err, "count orders")
	}
	for status, n := range counts {
		out.ByStatus[status] = n
		out.TotalOrders += n
	}

	if out.RevenueCents, err = s.repo.DeliveredRevenue(ctx, restaurantIDs); err != nil {
		return nil, wrap(err, "sum revenue")
	}
	out.Revenue = money.FormatCents(out.RevenueCents)

	placed, err := s.repo.OrderTimestampsSince(ctx, restaurantIDs, start)
	if err != nil {
		return nil, wrap(err, "load recent orders")
	}
	out.OrdersPerDay = BucketByDay(start, SeriesDays, placed)
	return out, nil
}

func wrap(err error, msg string) error {
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}

func windowStart(now time.Time) time.Time {
	today := now.UTC().Truncate(24 * time.Hour)
	return today.AddDate(0, 0, -(SeriesDays - 1))
}

// BucketByDay counts timestamps per UTC day starting at start, emitting a
// point for every day even when nothing happened.
func BucketByDay(start time.Time, days int, stamps []time.Time) []TimeSeriesPoint {
	start = start.UTC().Truncate(24 * time.Hour)
	points := make([]TimeSeriesPoint, days)
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		date := start.AddDate(0, 0, i).Format(time.DateOnly)
		points[i] = TimeSeriesPoint{Date: date}
		index[date] = i
	}
	for _, ts := range stamps {
		if i, ok := index[ts.UTC().Format(time.DateOnly)]; ok {
			points[i].Value++
		}
	}
	return points
}

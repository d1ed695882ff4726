package stats

import "github.com/angelmondragon/dishdash-backend/pkg/enums"

// TimeSeriesPoint describes a single date/value pair. Dates are YYYY-MM-DD in UTC.
type TimeSeriesPoint struct {
	Date  string `json:"date"`
	Value int64  `json:"value"`
}

// OrderStats is shared by the admin and restaurant dashboards.
type OrderStats struct {
	TotalOrders  int64                       `json:"total_orders"`
	RevenueCents int64                       `json:"revenue_cents"`
	Revenue      string                      `json:"revenue"`
	ByStatus     map[enums.OrderStatus]int64 `json:"by_status"`
	OrdersPerDay []TimeSeriesPoint           `json:"orders_per_day"`
}

// AdminStats wraps platform-wide counts for the admin dashboard.
type AdminStats struct {
	OrderStats
	Customers      int64             `json:"customers"`
	Restaurants    int64             `json:"restaurants"`
	DeliveryAgents int64             `json:"delivery_agents"`
	NewUsersPerDay []TimeSeriesPoint `json:"new_users_per_day"`
}

// RestaurantStats is scoped to the restaurants a single owner runs.
type RestaurantStats struct {
	OrderStats
	RestaurantCount int `json:"restaurant_count"`
}

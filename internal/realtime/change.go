// Package realtime fans order changes out to connected clients over Redis
// pub/sub and drops notifications that arrive out of order.
package realtime

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/dishdash-backend/pkg/enums"
)

// Audience names a channel family.
type Audience string

const (
	AudienceCustomer   Audience = "customer"
	AudienceRestaurant Audience = "restaurant"
	AudienceAgent      Audience = "agent"
	AudienceAdmin      Audience = "admin"
)

// Change is the notification published after an order mutation commits.
type Change struct {
	OrderID      uuid.UUID         `json:"order_id"`
	RestaurantID uuid.UUID         `json:"restaurant_id"`
	CustomerID   uuid.UUID         `json:"customer_id"`
	AgentID      *uuid.UUID        `json:"agent_id,omitempty"`
	Status       enums.OrderStatus `json:"status"`
	Version      int64             `json:"version"`
	OccurredAt   time.Time         `json:"occurred_at"`
}

// Target is one audience/id pair. Admin targets carry an empty id.
type Target struct {
	Audience Audience
	ID       string
}

// Targets lists every audience interested in the change.
func (c Change) Targets() []Target {
	targets := []Target{
		{Audience: AudienceCustomer, ID: c.CustomerID.String()},
		{Audience: AudienceRestaurant, ID: c.RestaurantID.String()},
	}
	if c.AgentID != nil && *c.AgentID != uuid.Nil {
		targets = append(targets, Target{Audience: AudienceAgent, ID: c.AgentID.String()})
	}
	return append(targets, Target{Audience: AudienceAdmin})
}

// TargetsFor returns the subscriptions for a connected user. Restaurant owners
// pass the ids of the restaurants they own.
func TargetsFor(role enums.UserRole, userID uuid.UUID, restaurantIDs []uuid.UUID) []Target {
	switch role {
	case enums.UserRoleCustomer:
		return []Target{{Audience: AudienceCustomer, ID: userID.String()}}
	case enums.UserRoleRestaurant:
		targets := make([]Target, 0, len(restaurantIDs))
		for _, id := range restaurantIDs {
			targets = append(targets, Target{Audience: AudienceRestaurant, ID: id.String()})
		}
		return targets
	case enums.UserRoleDelivery:
		return []Target{{Audience: AudienceAgent, ID: userID.String()}}
	case enums.UserRoleAdmin:
		return []Target{{Audience: AudienceAdmin}}
	default:
		return nil
	}
}

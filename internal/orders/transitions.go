package orders

import (
	"time"

	"github.com/angelmondragon/dishdash-backend/pkg/db/models"
	"github.com/angelmondragon/dishdash-backend/pkg/enums"
)

type edge struct {
	from enums.OrderStatus
	to   enums.OrderStatus
}

// edgeActors lists the roles allowed to drive each legal edge. Admins may
// drive any legal edge and are not listed.
var edgeActors = map[edge][]enums.UserRole{
	{enums.OrderStatusPlaced, enums.OrderStatusAccepted}:    {enums.UserRoleRestaurant},
	{enums.OrderStatusPlaced, enums.OrderStatusCancelled}:   {enums.UserRoleRestaurant, enums.UserRoleCustomer, enums.UserRoleSystem},
	{enums.OrderStatusAccepted, enums.OrderStatusPreparing}: {enums.UserRoleRestaurant},
	{enums.OrderStatusAccepted, enums.OrderStatusCancelled}: {enums.UserRoleRestaurant},
	{enums.OrderStatusPreparing, enums.OrderStatusReady}:    {enums.UserRoleRestaurant},
	{enums.OrderStatusReady, enums.OrderStatusPickedUp}:     {enums.UserRoleDelivery},
	{enums.OrderStatusPickedUp, enums.OrderStatusDelivered}: {enums.UserRoleDelivery},
}

// assignableStatuses are the states in which a delivery agent may be set.
var assignableStatuses = map[enums.OrderStatus]bool{
	enums.OrderStatusAccepted:  true,
	enums.OrderStatusPreparing: true,
	enums.OrderStatusReady:     true,
}

func roleMayDrive(role enums.UserRole, from, to enums.OrderStatus) bool {
	if role == enums.UserRoleAdmin {
		return true
	}
	for _, allowed := range edgeActors[edge{from, to}] {
		if allowed == role {
			return true
		}
	}
	return false
}

// timestampColumn is the column stamped when an order enters status.
func timestampColumn(status enums.OrderStatus) string {
	switch status {
	case enums.OrderStatusAccepted:
		return "accepted_at"
	case enums.OrderStatusReady:
		return "ready_at"
	case enums.OrderStatusPickedUp:
		return "picked_up_at"
	case enums.OrderStatusDelivered:
		return "delivered_at"
	case enums.OrderStatusCancelled:
		return "cancelled_at"
	default:
		return ""
	}
}

// applyTransition mirrors a successful guarded update onto the in-memory order.
func applyTransition(order *models.Order, to enums.OrderStatus, at time.Time) {
	order.Status = to
	order.Version++
	order.UpdatedAt = at
	stamp := at
	switch to {
	case enums.OrderStatusAccepted:
		order.AcceptedAt = &stamp
	case enums.OrderStatusReady:
		order.ReadyAt = &stamp
	case enums.OrderStatusPickedUp:
		order.PickedUpAt = &stamp
	case enums.OrderStatusDelivered:
		order.DeliveredAt = &stamp
	case enums.OrderStatusCancelled:
		order.CancelledAt = &stamp
	}
}

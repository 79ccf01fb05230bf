package services

import (
	"time"

	"github.com/yeremiapane/restaurant-ordering/models"
	"github.com/yeremiapane/restaurant-ordering/utils"
)

// orderTransitions is the complete order lifecycle. Statuses missing from
// the map, and those mapped to nothing, are terminal.
var orderTransitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderPending:   {models.OrderConfirmed, models.OrderCancelled},
	models.OrderConfirmed: {models.OrderPreparing, models.OrderCancelled},
	models.OrderPreparing: {models.OrderReady, models.OrderCancelled},
	models.OrderReady:     {models.OrderServed},
	models.OrderServed:    {models.OrderCompleted},
	models.OrderCompleted: {},
	models.OrderCancelled: {},
}

func AllowedTransitions(from models.OrderStatus) []models.OrderStatus {
	next := orderTransitions[from]
	out := make([]models.OrderStatus, len(next))
	copy(out, next)
	return out
}

func CanTransition(from, to models.OrderStatus) bool {
	for _, s := range orderTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func IsTerminal(status models.OrderStatus) bool {
	return len(orderTransitions[status]) == 0
}

// ValidateTransition returns a validation error for an unknown target and
// an InvalidTransition conflict for a target not reachable from from.
func ValidateTransition(from, to models.OrderStatus) error {
	if !to.IsValid() {
		return utils.NewValidationError("unknown order status: " + string(to))
	}
	if !CanTransition(from, to) {
		return utils.ErrInvalidTransition(string(from), string(to))
	}
	return nil
}

// transitionUpdates builds the column changes for moving order to status at
// now. A served order gets the acting user as waiter if it has none.
func transitionUpdates(order *models.Order, to models.OrderStatus, now time.Time, actingUserID string) map[string]interface{} {
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": now,
	}
	switch to {
	case models.OrderConfirmed:
		updates["confirmed_at"] = now
	case models.OrderReady:
		updates["ready_at"] = now
	case models.OrderServed:
		updates["served_at"] = now
		if actingUserID != "" && (order.WaiterID == nil || *order.WaiterID == "") {
			updates["waiter_id"] = actingUserID
		}
	}
	return updates
}

// itemStatusFor maps an order status onto the subset items mirror.
func itemStatusFor(status models.OrderStatus) (models.OrderItemStatus, bool) {
	switch status {
	case models.OrderPreparing:
		return models.ItemPreparing, true
	case models.OrderReady:
		return models.ItemReady, true
	case models.OrderServed:
		return models.ItemServed, true
	}
	return "", false
}

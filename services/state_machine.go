package services

import "github.com/yeremiapane/restaurant-pos/models"

// orderTransitions is the adjacency table for order status. COMPLETED and
// CANCELLED have no outgoing edges.
var orderTransitions = map[string][]string{
	models.OrderStatusNew:       {models.OrderStatusPreparing, models.OrderStatusCancelled},
	models.OrderStatusPreparing: {models.OrderStatusReady, models.OrderStatusCancelled},
	models.OrderStatusReady:     {models.OrderStatusCompleted, models.OrderStatusCancelled},
}

// itemTransitions: PENDING -> PREPARING -> READY, linear
var itemTransitions = map[string][]string{
	models.OrderItemStatusPending:   {models.OrderItemStatusPreparing},
	models.OrderItemStatusPreparing: {models.OrderItemStatusReady},
}

func IsValidOrderStatus(s string) bool {
	switch s {
	case models.OrderStatusNew, models.OrderStatusPreparing, models.OrderStatusReady,
		models.OrderStatusCompleted, models.OrderStatusCancelled:
		return true
	}
	return false
}

func IsValidItemStatus(s string) bool {
	switch s {
	case models.OrderItemStatusPending, models.OrderItemStatusPreparing, models.OrderItemStatusReady:
		return true
	}
	return false
}

// ValidateOrderTransition returns a ConflictError when current -> next is not in the table.
func ValidateOrderTransition(current, next string) error {
	return validateTransition(orderTransitions, "order", current, next)
}

func ValidateItemTransition(current, next string) error {
	return validateTransition(itemTransitions, "item", current, next)
}

func validateTransition(table map[string][]string, entity, current, next string) error {
	for _, s := range table[current] {
		if s == next {
			return nil
		}
	}
	if len(table[current]) == 0 {
		return conflictErr(entity+" status is terminal", current, next)
	}
	return conflictErr("illegal "+entity+" status transition", current, next)
}

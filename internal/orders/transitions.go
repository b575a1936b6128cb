package orders

import "github.com/threadloom/storefront-backend/pkg/enums"

var allowedTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:    {enums.OrderStatusProcessing, enums.OrderStatusCancelled},
	enums.OrderStatusProcessing: {enums.OrderStatusShipped, enums.OrderStatusCancelled},
	enums.OrderStatusShipped:    {enums.OrderStatusDelivered, enums.OrderStatusCancelled},
}

// CanTransition reports whether from may move to to. Statuses only move
// forward one step or to cancelled from a non-terminal status.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// restocksOnCancel reports whether cancelling from status returns items to stock.
// Shipped goods are not restocked.
func restocksOnCancel(from enums.OrderStatus) bool {
	return from == enums.OrderStatusPending || from == enums.OrderStatusProcessing
}

// isLocked reports whether tracking and notes are frozen.
func isLocked(status enums.OrderStatus) bool {
	return status.IsTerminal()
}

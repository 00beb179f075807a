package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yeremiapane/restaurant-pos/models"
)

var allOrderStatuses = []string{
	models.OrderStatusNew, models.OrderStatusPreparing, models.OrderStatusReady,
	models.OrderStatusCompleted, models.OrderStatusCancelled,
}

func TestOrderTransitionTable(t *testing.T) {
	allowed := map[[2]string]bool{
		{models.OrderStatusNew, models.OrderStatusPreparing}:       true,
		{models.OrderStatusNew, models.OrderStatusCancelled}:       true,
		{models.OrderStatusPreparing, models.OrderStatusReady}:     true,
		{models.OrderStatusPreparing, models.OrderStatusCancelled}: true,
		{models.OrderStatusReady, models.OrderStatusCompleted}:     true,
		{models.OrderStatusReady, models.OrderStatusCancelled}:     true,
	}

	for _, from := range allOrderStatuses {
		for _, to := range allOrderStatuses {
			err := ValidateOrderTransition(from, to)
			if allowed[[2]string{from, to}] {
				assert.NoError(t, err, "%s -> %s", from, to)
				continue
			}
			var cErr *ConflictError
			if assert.ErrorAs(t, err, &cErr, "%s -> %s", from, to) {
				assert.Equal(t, from, cErr.Current)
				assert.Equal(t, to, cErr.Requested)
			}
		}
	}
}

func TestTerminalOrderStatuses(t *testing.T) {
	for _, s := range []string{models.OrderStatusCompleted, models.OrderStatusCancelled} {
		err := ValidateOrderTransition(s, models.OrderStatusNew)
		assert.ErrorContains(t, err, "terminal")
		assert.True(t, (&models.Order{Status: s}).IsTerminal())
	}
}

func TestItemTransitionTable(t *testing.T) {
	statuses := []string{models.OrderItemStatusPending, models.OrderItemStatusPreparing, models.OrderItemStatusReady}
	allowed := map[[2]string]bool{
		{models.OrderItemStatusPending, models.OrderItemStatusPreparing}: true,
		{models.OrderItemStatusPreparing, models.OrderItemStatusReady}:   true,
	}
	for _, from := range statuses {
		for _, to := range statuses {
			err := ValidateItemTransition(from, to)
			if allowed[[2]string{from, to}] {
				assert.NoError(t, err)
			} else {
				assert.True(t, IsConflict(err), "%s -> %s", from, to)
			}
		}
	}
}

func TestStatusNames(t *testing.T) {
	assert.True(t, IsValidOrderStatus(models.OrderStatusReady))
	assert.False(t, IsValidOrderStatus("ready"))
	assert.False(t, IsValidOrderStatus("SERVED"))
	assert.True(t, IsValidItemStatus(models.OrderItemStatusPending))
	assert.False(t, IsValidItemStatus(models.OrderStatusCancelled))
}

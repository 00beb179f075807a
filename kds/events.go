package kds

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/utils"
)

// Event types
const (
	EventOrderCreated = "order.created"
	EventOrderUpdated = "order.updated"
	EventItemUpdated  = "item.updated"
	EventOrderPaid    = "order.paid"
)

// Event is the envelope sent to live-update subscribers. OutletID is the fan-out key.
type Event struct {
	Type       string      `json:"event"`
	OutletID   string      `json:"outlet_id"`
	OrderID    string      `json:"order_id"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       interface{} `json:"data"`
}

// OrderUpdated.Change is "status" for a lifecycle transition and "items" when the
// line items (and therefore the totals) changed while the order stayed NEW.
type OrderUpdated struct {
	Order                 models.Order `json:"order"`
	Change                string       `json:"change"`
	From                  string       `json:"from"`
	To                    string       `json:"to"`
	CancelledWithPayments bool         `json:"cancelled_with_payments"`
}

const (
	ChangeStatus = "status"
	ChangeItems  = "items"
)

type ItemUpdated struct {
	Item models.OrderItem `json:"item"`
	From string           `json:"from"`
	To   string           `json:"to"`
}

type OrderPaid struct {
	Order          models.Order    `json:"order"`
	Payment        models.Payment  `json:"payment"`
	AmountPaid     decimal.Decimal `json:"amount_paid"`
	AutoCompleted  bool            `json:"auto_completed"`
	CateringStatus *string         `json:"catering_status,omitempty"`
}

// Emitter menerima event setelah transaksi commit.
type Emitter interface {
	Emit(ctx context.Context, evt Event) error
}

// Fanout sends every event to all sinks. A failing sink is logged and skipped.
type Fanout []Emitter

func (f Fanout) Emit(ctx context.Context, evt Event) error {
	for _, e := range f {
		if e == nil {
			continue
		}
		if err := e.Emit(ctx, evt); err != nil {
			utils.ErrorLogger.WithFields(logrus.Fields{
				"event":     evt.Type,
				"outlet_id": evt.OutletID,
				"order_id":  evt.OrderID,
			}).Errorf("emit event: %v", err)
		}
	}
	return nil
}

func NewEvent(eventType string, order models.Order, data interface{}) Event {
	return Event{
		Type:       eventType,
		OutletID:   order.OutletID,
		OrderID:    order.ID,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

package services

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yeremiapane/restaurant-pos/kds"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/utils"
)

// lockOrder reads the order row with SELECT ... FOR UPDATE so the caller's
// check-then-act sequence is serialized against other writers of the same order.
func lockOrder(tx *gorm.DB, outletID, orderID string) (*models.Order, error) {
	var order models.Order
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND outlet_id = ?", orderID, outletID).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("order", orderID)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// amountPaid is the live sum of all non-failed payments of an order.
func amountPaid(tx *gorm.DB, orderID string) (decimal.Decimal, int, error) {
	var payments []models.Payment
	if err := tx.Where("order_id = ? AND status <> ?", orderID, models.PaymentStatusFailed).
		Find(&payments).Error; err != nil {
		return decimal.Zero, 0, err
	}
	return sumPayments(payments), len(payments), nil
}

func sumPayments(payments []models.Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		if p.Status == models.PaymentStatusFailed {
			continue
		}
		total = total.Add(p.Amount)
	}
	return total
}

// loadOrder -> order lengkap dengan items, modifiers dan payments
func loadOrder(db *gorm.DB, outletID, orderID string) (*models.Order, error) {
	var order models.Order
	err := db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at asc, id asc") }).
		Preload("Items.Modifiers").
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("processed_at asc, id asc") }).
		Where("id = ? AND outlet_id = ?", orderID, outletID).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("order", orderID)
	}
	if err != nil {
		return nil, wrapStoreErr("load order", err)
	}
	return &order, nil
}

// emit sends an event after commit. The request context may already be cancelled
// by then, so cancellation is detached; failures only get logged.
func emit(ctx context.Context, emitter kds.Emitter, evt kds.Event) {
	if emitter == nil {
		return
	}
	if err := emitter.Emit(context.WithoutCancel(ctx), evt); err != nil {
		utils.ErrorLogger.WithFields(logrus.Fields{
			"event":     evt.Type,
			"outlet_id": evt.OutletID,
			"order_id":  evt.OrderID,
		}).Errorf("emit event: %v", err)
	}
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-pos/kds"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/utils"
)

// PaymentService mencatat pembayaran dan menyelesaikan order secara otomatis
// begitu total pembayaran menutup grand total.
type PaymentService struct {
	db      *gorm.DB
	emitter kds.Emitter

	Now func() time.Time
}

func NewPaymentService(db *gorm.DB, emitter kds.Emitter) *PaymentService {
	return &PaymentService{
		db:      db,
		emitter: emitter,
		Now:     time.Now,
	}
}

type RecordPaymentRequest struct {
	OutletID       string `json:"-"`
	OrderID        string `json:"-"`
	ProcessedBy    string `json:"-"`
	IdempotencyKey string `json:"-"`

	PaymentMethod   string `json:"payment_method"`
	Amount          string `json:"amount"`
	ReferenceNumber string `json:"reference_number"`
	AmountReceived  string `json:"amount_received"`
}

// PaymentResult is the recorded payment together with the order state after it.
type PaymentResult struct {
	Payment       models.Payment `json:"payment"`
	Order         *OrderDetail   `json:"order"`
	AutoCompleted bool           `json:"auto_completed"`
	Replayed      bool           `json:"replayed"`
}

func parseAmount(field, value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, validationErr(field, "amount is required")
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, validationErr(field, "amount is not a number")
	}
	if d.Exponent() < -2 && !d.Equal(d.Round(2)) {
		return decimal.Zero, validationErr(field, "amount has more than 2 decimal places")
	}
	return d, nil
}

// buildPayment validates the method specific fields and returns an unsaved payment.
func buildPayment(req *RecordPaymentRequest) (models.Payment, error) {
	if strings.TrimSpace(req.ProcessedBy) == "" {
		return models.Payment{}, validationErr("processed_by", "processor is required")
	}
	if err := validateIdempotencyKey(req.IdempotencyKey); err != nil {
		return models.Payment{}, err
	}
	method := strings.ToUpper(strings.TrimSpace(req.PaymentMethod))
	if !models.IsValidPaymentMethod(method) {
		return models.Payment{}, validationErr("payment_method", "unknown payment method "+req.PaymentMethod)
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		return models.Payment{}, err
	}
	if amount.Sign() <= 0 {
		return models.Payment{}, validationErr("amount", "amount must be > 0")
	}

	payment := models.Payment{
		OrderID:         req.OrderID,
		PaymentMethod:   method,
		Amount:          amount,
		Status:          models.PaymentStatusCompleted,
		ReferenceNumber: optional(req.ReferenceNumber),
		IdempotencyKey:  optional(req.IdempotencyKey),
		ProcessedBy:     req.ProcessedBy,
	}

	if method == models.PaymentMethodCash {
		received, err := parseAmount("amount_received", req.AmountReceived)
		if err != nil {
			return models.Payment{}, err
		}
		if received.LessThan(amount) {
			return models.Payment{}, validationErr("amount_received", "amount received is less than the payment amount")
		}
		payment.AmountReceived = decimal.NullDecimal{Decimal: received, Valid: true}
		payment.ChangeAmount = decimal.NullDecimal{Decimal: received.Sub(amount), Valid: true}
		return payment, nil
	}

	if payment.ReferenceNumber == nil {
		return models.Payment{}, validationErr("reference_number", "reference number is required for "+method+" payments")
	}
	if strings.TrimSpace(req.AmountReceived) != "" {
		return models.Payment{}, validationErr("amount_received", "amount received is only used for CASH payments")
	}
	return payment, nil
}

// RecordPayment appends a payment to an order. When the running total reaches the
// grand total the order moves to COMPLETED in the same transaction; that is the only
// transition the engine makes on its own.
func (s *PaymentService) RecordPayment(ctx context.Context, req RecordPaymentRequest) (*PaymentResult, error) {
	payment, err := buildPayment(&req)
	if err != nil {
		return nil, err
	}

	var (
		result     PaymentResult
		fromStatus string
		paidAfter  decimal.Decimal
	)
	err = runInTx(ctx, s.db, "record payment", func(tx *gorm.DB) error {
		result = PaymentResult{}

		order, err := lockOrder(tx, req.OutletID, req.OrderID)
		if err != nil {
			return err
		}

		if payment.IdempotencyKey != nil {
			var existing models.Payment
			err := tx.Where("order_id = ? AND idempotency_key = ?", order.ID, *payment.IdempotencyKey).
				First(&existing).Error
			if err == nil {
				result.Payment = existing
				result.Replayed = true
				return nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}

		if order.IsTerminal() {
			return conflictErr("order is "+order.Status+", no further payments accepted", order.Status, "")
		}

		paid, count, err := amountPaid(tx, order.ID)
		if err != nil {
			return err
		}
		remaining := order.TotalAmount.Sub(paid)
		if payment.Amount.GreaterThan(remaining) {
			return conflictErr(
				fmt.Sprintf("over-payment: amount %s exceeds remaining balance %s", payment.Amount.StringFixed(2), remaining.StringFixed(2)),
				remaining.StringFixed(2), payment.Amount.StringFixed(2))
		}

		now := s.Now()
		row := payment
		row.ProcessedAt = now
		row.CreatedAt = now
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		result.Payment = row

		fromStatus = order.Status
		paidAfter = paid.Add(row.Amount)
		updates := map[string]interface{}{}

		if order.IsCatering() && order.CateringStatus != nil {
			catering := *order.CateringStatus
			if count == 0 && catering == models.CateringStatusBooked {
				catering = models.CateringStatusDPPaid
			}
			if paidAfter.GreaterThanOrEqual(order.TotalAmount) {
				catering = models.CateringStatusSettled
			}
			if catering != *order.CateringStatus {
				updates["catering_status"] = catering
			}
		}

		if paidAfter.GreaterThanOrEqual(order.TotalAmount) {
			updates["status"] = models.OrderStatusCompleted
			updates["completed_at"] = now
			result.AutoCompleted = true
		}

		if len(updates) == 0 {
			return nil
		}
		return tx.Model(order).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}

	detail, err := loadOrder(s.db.WithContext(ctx), req.OutletID, req.OrderID)
	if err != nil {
		return nil, err
	}
	result.Order = newOrderDetail(*detail)

	if result.Replayed {
		utils.InfoLogger.WithFields(logrus.Fields{
			"order_id":   req.OrderID,
			"payment_id": result.Payment.ID,
		}).Info("payment replayed from idempotency key")
		return &result, nil
	}

	fields := logrus.Fields{
		"outlet_id":   req.OutletID,
		"order_id":    req.OrderID,
		"payment_id":  result.Payment.ID,
		"method":      result.Payment.PaymentMethod,
		"amount":      utils.FormatCurrencyIDR(result.Payment.Amount),
		"amount_paid": utils.FormatCurrencyIDR(paidAfter),
		"actor":       req.ProcessedBy,
	}
	utils.InfoLogger.WithFields(fields).Info("payment recorded")
	if result.AutoCompleted {
		utils.InfoLogger.WithFields(fields).WithFields(logrus.Fields{
			"from":  fromStatus,
			"to":    models.OrderStatusCompleted,
			"total": utils.FormatCurrencyIDR(result.Order.TotalAmount),
		}).Info("order auto-completed by payment")
	}

	order := result.Order.Order
	emit(ctx, s.emitter, kds.NewEvent(kds.EventOrderPaid, order, kds.OrderPaid{
		Order:          order,
		Payment:        result.Payment,
		AmountPaid:     paidAfter,
		AutoCompleted:  result.AutoCompleted,
		CateringStatus: order.CateringStatus,
	}))
	if result.AutoCompleted {
		emit(ctx, s.emitter, kds.NewEvent(kds.EventOrderUpdated, order, kds.OrderUpdated{
			Order:  order,
			Change: kds.ChangeStatus,
			From:   fromStatus,
			To:     models.OrderStatusCompleted,
		}))
	}
	return &result, nil
}

// ListPayments returns the payment log of an order, oldest first.
func (s *PaymentService) ListPayments(ctx context.Context, outletID, orderID string) ([]models.Payment, error) {
	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.Order{}).Where("id = ? AND outlet_id = ?", orderID, outletID).Count(&count).Error; err != nil {
		return nil, wrapStoreErr("find order", err)
	}
	if count == 0 {
		return nil, notFound("order", orderID)
	}

	payments := []models.Payment{}
	if err := db.Where("order_id = ?", orderID).Order("processed_at asc, id asc").Find(&payments).Error; err != nil {
		return nil, wrapStoreErr("list payments", err)
	}
	return payments, nil
}

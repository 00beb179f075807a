package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Payment represents one settlement record against an order. Rows are append-only.
type Payment struct {
	ID              string              `gorm:"type:varchar(36);primaryKey" json:"id"`
	OrderID         string              `gorm:"type:varchar(36);not null;index;uniqueIndex:idx_payments_order_idem" json:"order_id"`
	PaymentMethod   string              `gorm:"type:varchar(20);not null" json:"payment_method"`
	Amount          decimal.Decimal     `gorm:"type:decimal(14,2);not null" json:"amount"`
	Status          string              `gorm:"type:varchar(20);not null" json:"status"`
	ReferenceNumber *string             `gorm:"type:varchar(100)" json:"reference_number"`
	AmountReceived  decimal.NullDecimal `gorm:"type:decimal(14,2)" json:"amount_received"`
	ChangeAmount    decimal.NullDecimal `gorm:"type:decimal(14,2)" json:"change_amount"`
	IdempotencyKey  *string             `gorm:"type:varchar(64);uniqueIndex:idx_payments_order_idem" json:"-"`
	ProcessedBy     string              `gorm:"type:varchar(36);not null" json:"processed_by"`
	ProcessedAt     time.Time           `gorm:"not null" json:"processed_at"`
	CreatedAt       time.Time           `gorm:"not null" json:"created_at"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Order struct {
	ID               string              `gorm:"type:varchar(36);primaryKey" json:"id"`
	OutletID         string              `gorm:"type:varchar(36);not null;index;uniqueIndex:idx_orders_outlet_number;uniqueIndex:idx_orders_outlet_idem" json:"outlet_id"`
	OrderNumber      string              `gorm:"type:varchar(32);not null;uniqueIndex:idx_orders_outlet_number" json:"order_number"`
	OrderSequence    int                 `gorm:"not null" json:"order_sequence"`
	BusinessDate     string              `gorm:"type:varchar(10);not null;index" json:"business_date"`
	CustomerID       *string             `gorm:"type:varchar(36);index" json:"customer_id"`
	OrderType        string              `gorm:"type:varchar(20);not null;index" json:"order_type"`
	Status           string              `gorm:"type:varchar(20);not null;index" json:"status"`
	TableNumber      *string             `gorm:"type:varchar(50)" json:"table_number"`
	Notes            *string             `gorm:"type:text" json:"notes"`
	Subtotal         decimal.Decimal     `gorm:"type:decimal(14,2);not null" json:"subtotal"`
	DiscountType     string              `gorm:"type:varchar(20);not null" json:"discount_type"`
	DiscountValue    decimal.Decimal     `gorm:"type:decimal(14,2);not null" json:"discount_value"`
	DiscountAmount   decimal.Decimal     `gorm:"type:decimal(14,2);not null" json:"discount_amount"`
	TaxAmount        decimal.Decimal     `gorm:"type:decimal(14,2);not null" json:"tax_amount"`
	TotalAmount      decimal.Decimal     `gorm:"type:decimal(14,2);not null" json:"total_amount"`
	CateringDate     *time.Time          `json:"catering_date"`
	CateringStatus   *string             `gorm:"type:varchar(20)" json:"catering_status"`
	CateringDpAmount decimal.NullDecimal `gorm:"type:decimal(14,2)" json:"catering_dp_amount"`
	DeliveryPlatform *string             `gorm:"type:varchar(50)" json:"delivery_platform"`
	DeliveryAddress  *string             `gorm:"type:text" json:"delivery_address"`
	IdempotencyKey   *string             `gorm:"type:varchar(64);uniqueIndex:idx_orders_outlet_idem" json:"-"`
	CreatedBy        string              `gorm:"type:varchar(36);not null" json:"created_by"`
	CreatedAt        time.Time           `gorm:"not null;index" json:"created_at"`
	UpdatedAt        time.Time           `gorm:"not null" json:"updated_at"`
	CompletedAt      *time.Time          `json:"completed_at"`
	Items            []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"items,omitempty"`
	Payments         []Payment           `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"payments,omitempty"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}

// IsTerminal -> COMPLETED dan CANCELLED tidak bisa berubah lagi
func (o *Order) IsTerminal() bool {
	return o.Status == OrderStatusCompleted || o.Status == OrderStatusCancelled
}

// IsCatering reports whether the catering sub-lifecycle applies to this order.
func (o *Order) IsCatering() bool {
	return o.OrderType == OrderTypeCatering
}

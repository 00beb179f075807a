package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderItem is one product line in an order. UnitPrice is the catalog price at the
// moment the line was created and is never rewritten afterwards.
type OrderItem struct {
	ID             string              `gorm:"type:varchar(36);primaryKey" json:"id"`
	OrderID        string              `gorm:"type:varchar(36);not null;index" json:"order_id"`
	ProductID      string              `gorm:"type:varchar(36);not null;index" json:"product_id"`
	ProductName    string              `gorm:"type:varchar(255);not null" json:"product_name"`
	VariantID      *string             `gorm:"type:varchar(36)" json:"variant_id"`
	Quantity       int                 `gorm:"not null" json:"quantity"`
	UnitPrice      decimal.Decimal     `gorm:"type:decimal(14,2);not null" json:"unit_price"`
	DiscountType   string              `gorm:"type:varchar(20);not null" json:"discount_type"`
	DiscountValue  decimal.Decimal     `gorm:"type:decimal(14,2);not null" json:"discount_value"`
	DiscountAmount decimal.Decimal     `gorm:"type:decimal(14,2);not null" json:"discount_amount"`
	ModifierTotal  decimal.Decimal     `gorm:"type:decimal(14,2);not null" json:"modifier_total"`
	Subtotal       decimal.Decimal     `gorm:"type:decimal(14,2);not null" json:"subtotal"`
	Notes          *string             `gorm:"type:text" json:"notes"`
	Status         string              `gorm:"type:varchar(20);not null;index" json:"status"`
	Station        *string             `gorm:"type:varchar(30);index" json:"station"`
	PreparingAt    *time.Time          `json:"preparing_at"`
	ReadyAt        *time.Time          `json:"ready_at"`
	CreatedAt      time.Time           `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time           `gorm:"not null" json:"updated_at"`
	Modifiers      []OrderItemModifier `gorm:"foreignKey:OrderItemID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"modifiers"`
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

type OrderItemModifier struct {
	ID          string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	OrderItemID string          `gorm:"type:varchar(36);not null;index" json:"order_item_id"`
	ModifierID  string          `gorm:"type:varchar(36);not null" json:"modifier_id"`
	Name        string          `gorm:"type:varchar(255);not null" json:"name"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"unit_price"`
	CreatedAt   time.Time       `gorm:"not null" json:"created_at"`
}

func (m *OrderItemModifier) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

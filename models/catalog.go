package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Catalog tables are owned by the menu service. The order engine only reads them.

type Product struct {
	ID             string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	OutletID       string          `gorm:"type:varchar(36);not null;index" json:"outlet_id"`
	Name           string          `gorm:"type:varchar(255);not null" json:"name"`
	BasePrice      decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"base_price"`
	Station        *string         `gorm:"type:varchar(30)" json:"station"`
	IsActive       bool            `gorm:"not null" json:"is_active"`
	VariantGroups  []VariantGroup  `gorm:"foreignKey:ProductID" json:"variant_groups"`
	ModifierGroups []ModifierGroup `gorm:"foreignKey:ProductID" json:"modifier_groups"`
	CreatedAt      time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"not null" json:"updated_at"`
}

type VariantGroup struct {
	ID         string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	ProductID  string    `gorm:"type:varchar(36);not null;index" json:"product_id"`
	Name       string    `gorm:"type:varchar(100);not null" json:"name"`
	IsRequired bool      `gorm:"not null" json:"is_required"`
	Variants   []Variant `gorm:"foreignKey:VariantGroupID" json:"variants"`
}

type Variant struct {
	ID              string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	VariantGroupID  string          `gorm:"type:varchar(36);not null;index" json:"variant_group_id"`
	Name            string          `gorm:"type:varchar(100);not null" json:"name"`
	PriceAdjustment decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"price_adjustment"`
	IsActive        bool            `gorm:"not null" json:"is_active"`
}

type ModifierGroup struct {
	ID        string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	ProductID string     `gorm:"type:varchar(36);not null;index" json:"product_id"`
	Name      string     `gorm:"type:varchar(100);not null" json:"name"`
	MinSelect int        `gorm:"not null" json:"min_select"`
	MaxSelect int        `gorm:"not null" json:"max_select"` // 0 = tanpa batas
	Modifiers []Modifier `gorm:"foreignKey:ModifierGroupID" json:"modifiers"`
}

type Modifier struct {
	ID              string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	ModifierGroupID string          `gorm:"type:varchar(36);not null;index" json:"modifier_group_id"`
	Name            string          `gorm:"type:varchar(100);not null" json:"name"`
	Price           decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"price"`
	IsActive        bool            `gorm:"not null" json:"is_active"`
}

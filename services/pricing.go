package services

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/yeremiapane/restaurant-pos/models"
)

var hundred = decimal.NewFromInt(100)

// Discount is a parsed discount descriptor: NONE, PERCENTAGE or FIXED_AMOUNT with a value.
type Discount struct {
	Type  string
	Value decimal.Decimal
}

var NoDiscount = Discount{Type: models.DiscountTypeNone, Value: decimal.Zero}

// ParseDiscount -> validasi descriptor diskon dari client.
// Tipe kosong berarti tanpa diskon.
func ParseDiscount(field, discountType, value string) (Discount, error) {
	discountType = strings.ToUpper(strings.TrimSpace(discountType))
	value = strings.TrimSpace(value)

	if discountType == "" || discountType == models.DiscountTypeNone {
		if value != "" {
			if v, err := decimal.NewFromString(value); err != nil || !v.IsZero() {
				return Discount{}, validationErr(field+".discount_value", "discount value given without discount type")
			}
		}
		return NoDiscount, nil
	}
	if discountType != models.DiscountTypePercentage && discountType != models.DiscountTypeFixed {
		return Discount{}, validationErr(field+".discount_type", "unknown discount type "+discountType)
	}
	if value == "" {
		return Discount{}, validationErr(field+".discount_value", "discount value is required")
	}
	v, err := decimal.NewFromString(value)
	if err != nil {
		return Discount{}, validationErr(field+".discount_value", "discount value is not a number")
	}
	if v.IsNegative() {
		return Discount{}, validationErr(field+".discount_value", "discount value must not be negative")
	}
	return Discount{Type: discountType, Value: v}, nil
}

// Amount returns the discount for base, always within [0, base].
func (d Discount) Amount(base decimal.Decimal) decimal.Decimal {
	if base.Sign() <= 0 {
		return decimal.Zero
	}
	var amount decimal.Decimal
	switch d.Type {
	case models.DiscountTypePercentage:
		amount = base.Mul(d.Value).Div(hundred).Round(2)
	case models.DiscountTypeFixed:
		amount = d.Value
	default:
		return decimal.Zero
	}
	if amount.IsNegative() {
		return decimal.Zero
	}
	return decimal.Min(amount, base)
}

type ModifierLine struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

type LineInput struct {
	UnitPrice decimal.Decimal
	Quantity  int
	Discount  Discount
	Modifiers []ModifierLine
}

type LineResult struct {
	Gross          decimal.Decimal // unit price x quantity
	DiscountAmount decimal.Decimal
	ModifierTotal  decimal.Decimal
	Subtotal       decimal.Decimal // gross - discount + modifiers
}

// PriceLine computes one line item. Modifier quantities are per unit of the line,
// and the item discount only applies to unit price x quantity.
func PriceLine(field string, in LineInput) (LineResult, error) {
	if in.Quantity <= 0 {
		return LineResult{}, validationErr(field+".quantity", "quantity must be > 0")
	}
	if in.UnitPrice.IsNegative() {
		return LineResult{}, validationErr(field+".unit_price", "unit price must not be negative")
	}

	qty := decimal.NewFromInt(int64(in.Quantity))
	gross := in.UnitPrice.Mul(qty)
	discount := in.Discount.Amount(gross)

	perUnit := decimal.Zero
	for _, m := range in.Modifiers {
		if m.Quantity <= 0 {
			return LineResult{}, validationErr(field+".modifiers.quantity", "modifier quantity must be > 0")
		}
		if m.UnitPrice.IsNegative() {
			return LineResult{}, validationErr(field+".modifiers.unit_price", "modifier price must not be negative")
		}
		perUnit = perUnit.Add(m.UnitPrice.Mul(decimal.NewFromInt(int64(m.Quantity))))
	}
	modTotal := perUnit.Mul(qty)

	return LineResult{
		Gross:          gross.Round(2),
		DiscountAmount: discount,
		ModifierTotal:  modTotal.Round(2),
		Subtotal:       gross.Sub(discount).Add(modTotal).Round(2),
	}, nil
}

type Totals struct {
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxAmount      decimal.Decimal
	Total          decimal.Decimal
}

// PriceOrder sums line subtotals and applies the order discount on the already
// item-discounted subtotal, then tax. taxRate is a percentage.
func PriceOrder(lineSubtotals []decimal.Decimal, orderDiscount Discount, taxRate decimal.Decimal) (Totals, error) {
	if taxRate.IsNegative() {
		return Totals{}, validationErr("tax_rate", "tax rate must not be negative")
	}
	subtotal := decimal.Zero
	for _, s := range lineSubtotals {
		if s.IsNegative() {
			return Totals{}, validationErr("items.subtotal", "line subtotal must not be negative")
		}
		subtotal = subtotal.Add(s)
	}

	discount := orderDiscount.Amount(subtotal)
	taxable := subtotal.Sub(discount)
	tax := taxable.Mul(taxRate).Div(hundred).Round(2)
	total := taxable.Add(tax)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return Totals{
		Subtotal:       subtotal.Round(2),
		DiscountAmount: discount,
		TaxAmount:      tax,
		Total:          total.Round(2),
	}, nil
}

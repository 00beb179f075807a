package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yeremiapane/restaurant-pos/kds"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/utils"
)

// Catering DP default: 50% dari grand total
var defaultCateringDpRatio = decimal.NewFromFloat(0.5)

const (
	defaultListLimit = 20
	maxListLimit     = 100

	// sama dengan varchar(64) pada kolom idempotency_key
	maxIdempotencyKeyLen = 64
)

type OrderService struct {
	db        *gorm.DB
	catalog   CatalogReader
	numbering *NumberingService
	emitter   kds.Emitter
	taxRate   decimal.Decimal

	// Now is the clock used for business dates and timestamps.
	Now func() time.Time
}

func NewOrderService(db *gorm.DB, catalog CatalogReader, numbering *NumberingService, emitter kds.Emitter, taxRate decimal.Decimal) *OrderService {
	return &OrderService{
		db:        db,
		catalog:   catalog,
		numbering: numbering,
		emitter:   emitter,
		taxRate:   taxRate,
		Now:       time.Now,
	}
}

type ModifierSelection struct {
	ModifierID string `json:"modifier_id"`
	Quantity   int    `json:"quantity"`
}

type OrderItemRequest struct {
	ProductID     string              `json:"product_id"`
	VariantID     string              `json:"variant_id"`
	Quantity      int                 `json:"quantity"`
	Notes         string              `json:"notes"`
	DiscountType  string              `json:"discount_type"`
	DiscountValue string              `json:"discount_value"`
	Modifiers     []ModifierSelection `json:"modifiers"`
}

type CreateOrderRequest struct {
	OutletID       string `json:"-"`
	CreatedBy      string `json:"-"`
	IdempotencyKey string `json:"-"`

	OrderType        string             `json:"order_type"`
	CustomerID       string             `json:"customer_id"`
	TableNumber      string             `json:"table_number"`
	Notes            string             `json:"notes"`
	DiscountType     string             `json:"discount_type"`
	DiscountValue    string             `json:"discount_value"`
	CateringDate     string             `json:"catering_date"`
	CateringDpAmount string             `json:"catering_dp_amount"`
	DeliveryPlatform string             `json:"delivery_platform"`
	DeliveryAddress  string             `json:"delivery_address"`
	Items            []OrderItemRequest `json:"items"`
}

// EditItemRequest -> field nil berarti tidak diubah
type EditItemRequest struct {
	Quantity      *int    `json:"quantity"`
	Notes         *string `json:"notes"`
	DiscountType  *string `json:"discount_type"`
	DiscountValue *string `json:"discount_value"`
}

type ListOrdersFilter struct {
	OutletID  string
	Status    string
	OrderType string
	StartDate string // YYYY-MM-DD, business date
	EndDate   string
	Limit     int
	Offset    int
}

type OrderPage struct {
	Orders []models.Order `json:"orders"`
	Total  int64          `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// OrderDetail is an order with its derived amount paid.
type OrderDetail struct {
	models.Order
	AmountPaid decimal.Decimal `json:"amount_paid"`
	Balance    decimal.Decimal `json:"balance"`
}

func newOrderDetail(order models.Order) *OrderDetail {
	paid := sumPayments(order.Payments)
	balance := order.TotalAmount.Sub(paid)
	if balance.IsNegative() {
		balance = decimal.Zero
	}
	return &OrderDetail{Order: order, AmountPaid: paid, Balance: balance}
}

func validateIdempotencyKey(key string) error {
	if len(strings.TrimSpace(key)) > maxIdempotencyKeyLen {
		return validationErr("idempotency_key", fmt.Sprintf("idempotency key must be at most %d characters", maxIdempotencyKeyLen))
	}
	return nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// validateHeader checks the category specific rules of an order header.
func validateHeader(req *CreateOrderRequest) error {
	if strings.TrimSpace(req.OutletID) == "" {
		return validationErr("outlet_id", "outlet is required")
	}
	if strings.TrimSpace(req.CreatedBy) == "" {
		return validationErr("created_by", "creator is required")
	}
	if err := validateIdempotencyKey(req.IdempotencyKey); err != nil {
		return err
	}
	req.OrderType = strings.ToUpper(strings.TrimSpace(req.OrderType))
	if !models.IsValidOrderType(req.OrderType) {
		return validationErr("order_type", "unknown order type "+req.OrderType)
	}
	if req.CustomerID != "" {
		if _, err := uuid.Parse(req.CustomerID); err != nil {
			return validationErr("customer_id", "customer id is not a valid id")
		}
	}

	isDineIn := req.OrderType == models.OrderTypeDineIn
	isCatering := req.OrderType == models.OrderTypeCatering
	isDelivery := req.OrderType == models.OrderTypeDelivery

	if !isDineIn && strings.TrimSpace(req.TableNumber) != "" {
		return validationErr("table_number", "table number is only allowed for DINE_IN orders")
	}
	if isCatering {
		if req.CustomerID == "" {
			return validationErr("customer_id", "customer is required for CATERING orders")
		}
		if strings.TrimSpace(req.CateringDate) == "" {
			return validationErr("catering_date", "catering date is required for CATERING orders")
		}
	} else if req.CateringDate != "" || req.CateringDpAmount != "" {
		field := "catering_date"
		if req.CateringDate == "" {
			field = "catering_dp_amount"
		}
		return validationErr(field, "catering fields are only allowed for CATERING orders")
	}
	if isDelivery {
		if strings.TrimSpace(req.DeliveryPlatform) == "" {
			return validationErr("delivery_platform", "delivery platform is required for DELIVERY orders")
		}
	} else if req.DeliveryPlatform != "" || req.DeliveryAddress != "" {
		field := "delivery_platform"
		if req.DeliveryPlatform == "" {
			field = "delivery_address"
		}
		return validationErr(field, "delivery fields are only allowed for DELIVERY orders")
	}

	if len(req.Items) == 0 {
		return validationErr("items", "order must contain at least one item")
	}
	return nil
}

func (s *OrderService) parseCateringDate(value string) (*time.Time, error) {
	d, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(value), s.numbering.Location())
	if err != nil {
		return nil, validationErr("catering_date", "catering date must be YYYY-MM-DD")
	}
	return &d, nil
}

func productIDs(items []OrderItemRequest) []string {
	seen := make(map[string]bool, len(items))
	ids := make([]string, 0, len(items))
	for _, it := range items {
		if it.ProductID == "" || seen[it.ProductID] {
			continue
		}
		seen[it.ProductID] = true
		ids = append(ids, it.ProductID)
	}
	return ids
}

// buildItem validates one line against the catalog snapshot and prices it.
// The returned item carries snapshotted unit prices for itself and its modifiers.
func buildItem(field string, req OrderItemRequest, snap *CatalogSnapshot) (models.OrderItem, error) {
	if req.ProductID == "" {
		return models.OrderItem{}, validationErr(field+".product_id", "product is required")
	}
	product, ok := snap.Products[req.ProductID]
	if !ok || !product.IsActive {
		return models.OrderItem{}, notFoundField("product", req.ProductID, field+".product_id")
	}
	if req.Quantity <= 0 {
		return models.OrderItem{}, validationErr(field+".quantity", "quantity must be > 0")
	}

	unitPrice := product.BasePrice
	var variantID *string
	if req.VariantID != "" {
		ref, ok := snap.Variants[req.VariantID]
		if !ok || !ref.Variant.IsActive {
			return models.OrderItem{}, notFoundField("variant", req.VariantID, field+".variant_id")
		}
		if ref.ProductID != product.ID {
			return models.OrderItem{}, validationErr(field+".variant_id", "variant does not belong to product "+product.ID)
		}
		unitPrice = unitPrice.Add(ref.Variant.PriceAdjustment)
		v := req.VariantID
		variantID = &v
	}
	for _, g := range product.VariantGroups {
		if !g.IsRequired {
			continue
		}
		if variantID == nil || snap.Variants[*variantID].Group.ID != g.ID {
			return models.OrderItem{}, validationErr(field+".variant_id", "a variant from group "+g.Name+" is required")
		}
	}

	selected := make(map[string]bool, len(req.Modifiers))
	perGroup := make(map[string]int)
	modifiers := make([]models.OrderItemModifier, 0, len(req.Modifiers))
	lines := make([]ModifierLine, 0, len(req.Modifiers))
	for j, sel := range req.Modifiers {
		mField := fmt.Sprintf("%s.modifiers[%d]", field, j)
		ref, ok := snap.Modifiers[sel.ModifierID]
		if !ok || !ref.Modifier.IsActive {
			return models.OrderItem{}, notFoundField("modifier", sel.ModifierID, mField+".modifier_id")
		}
		if ref.ProductID != product.ID {
			return models.OrderItem{}, validationErr(mField+".modifier_id", "modifier does not belong to product "+product.ID)
		}
		if selected[sel.ModifierID] {
			return models.OrderItem{}, validationErr(mField+".modifier_id", "modifier selected more than once")
		}
		selected[sel.ModifierID] = true

		qty := sel.Quantity
		if qty == 0 {
			qty = 1
		}
		if qty < 0 {
			return models.OrderItem{}, validationErr(mField+".quantity", "modifier quantity must be > 0")
		}
		perGroup[ref.Group.ID]++
		modifiers = append(modifiers, models.OrderItemModifier{
			ModifierID: sel.ModifierID,
			Name:       ref.Modifier.Name,
			Quantity:   qty,
			UnitPrice:  ref.Modifier.Price,
		})
		lines = append(lines, ModifierLine{UnitPrice: ref.Modifier.Price, Quantity: qty})
	}
	for _, g := range product.ModifierGroups {
		n := perGroup[g.ID]
		if n < g.MinSelect {
			return models.OrderItem{}, validationErr(field+".modifiers", fmt.Sprintf("group %s requires at least %d selection(s)", g.Name, g.MinSelect))
		}
		if g.MaxSelect > 0 && n > g.MaxSelect {
			return models.OrderItem{}, validationErr(field+".modifiers", fmt.Sprintf("group %s allows at most %d selection(s)", g.Name, g.MaxSelect))
		}
	}

	discount, err := ParseDiscount(field, req.DiscountType, req.DiscountValue)
	if err != nil {
		return models.OrderItem{}, err
	}
	line, err := PriceLine(field, LineInput{
		UnitPrice: unitPrice,
		Quantity:  req.Quantity,
		Discount:  discount,
		Modifiers: lines,
	})
	if err != nil {
		return models.OrderItem{}, err
	}

	return models.OrderItem{
		ProductID:      product.ID,
		ProductName:    product.Name,
		VariantID:      variantID,
		Quantity:       req.Quantity,
		UnitPrice:      unitPrice,
		DiscountType:   discount.Type,
		DiscountValue:  discount.Value,
		DiscountAmount: line.DiscountAmount,
		ModifierTotal:  line.ModifierTotal,
		Subtotal:       line.Subtotal,
		Notes:          optional(req.Notes),
		Status:         models.OrderItemStatusPending,
		Station:        product.Station,
		Modifiers:      modifiers,
	}, nil
}

// CreateOrder validates, prices and persists an order with all of its items as one unit.
// A repeated IdempotencyKey for the same outlet returns the order created the first time.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderDetail, error) {
	if err := validateHeader(&req); err != nil {
		return nil, err
	}
	orderDiscount, err := ParseDiscount("order", req.DiscountType, req.DiscountValue)
	if err != nil {
		return nil, err
	}

	var cateringDate *time.Time
	if req.OrderType == models.OrderTypeCatering {
		if cateringDate, err = s.parseCateringDate(req.CateringDate); err != nil {
			return nil, err
		}
	}

	snap, err := s.catalog.Snapshot(ctx, req.OutletID, productIDs(req.Items))
	if err != nil {
		return nil, err
	}

	items := make([]models.OrderItem, 0, len(req.Items))
	subtotals := make([]decimal.Decimal, 0, len(req.Items))
	for i, itemReq := range req.Items {
		item, err := buildItem(fmt.Sprintf("items[%d]", i), itemReq, snap)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		subtotals = append(subtotals, item.Subtotal)
	}

	totals, err := PriceOrder(subtotals, orderDiscount, s.taxRate)
	if err != nil {
		return nil, err
	}

	order := models.Order{
		OutletID:       req.OutletID,
		CustomerID:     optional(req.CustomerID),
		OrderType:      req.OrderType,
		Status:         models.OrderStatusNew,
		Notes:          optional(req.Notes),
		Subtotal:       totals.Subtotal,
		DiscountType:   orderDiscount.Type,
		DiscountValue:  orderDiscount.Value,
		DiscountAmount: totals.DiscountAmount,
		TaxAmount:      totals.TaxAmount,
		TotalAmount:    totals.Total,
		IdempotencyKey: optional(req.IdempotencyKey),
		CreatedBy:      req.CreatedBy,
	}
	switch order.OrderType {
	case models.OrderTypeDineIn:
		order.TableNumber = optional(req.TableNumber)
	case models.OrderTypeDelivery:
		order.DeliveryPlatform = optional(req.DeliveryPlatform)
		order.DeliveryAddress = optional(req.DeliveryAddress)
	case models.OrderTypeCatering:
		dp := totals.Total.Mul(defaultCateringDpRatio).Round(2)
		if req.CateringDpAmount != "" {
			dp, err = decimal.NewFromString(strings.TrimSpace(req.CateringDpAmount))
			if err != nil {
				return nil, validationErr("catering_dp_amount", "down payment is not a number")
			}
			if dp.IsNegative() || dp.GreaterThan(totals.Total) {
				return nil, validationErr("catering_dp_amount", "down payment must be between 0 and the order total")
			}
		}
		booked := models.CateringStatusBooked
		order.CateringDate = cateringDate
		order.CateringStatus = &booked
		order.CateringDpAmount = decimal.NullDecimal{Decimal: dp, Valid: true}
	}

	var (
		created  *models.Order
		replayed bool
	)
	err = runInTx(ctx, s.db, "create order", func(tx *gorm.DB) error {
		created, replayed = nil, false

		if order.IdempotencyKey != nil {
			var existing models.Order
			err := tx.Where("outlet_id = ? AND idempotency_key = ?", order.OutletID, *order.IdempotencyKey).
				First(&existing).Error
			if err == nil {
				created, replayed = &existing, true
				return nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}

		if err := s.catalog.Verify(tx, snap); err != nil {
			return err
		}

		now := s.Now()
		number, err := s.numbering.Next(tx, order.OutletID, now)
		if err != nil {
			return err
		}

		header := order
		header.ID = uuid.NewString()
		header.OrderNumber = number.Number
		header.OrderSequence = number.Sequence
		header.BusinessDate = number.BusinessDate
		header.CreatedAt = now
		header.UpdatedAt = now
		if err := tx.Omit(clause.Associations).Create(&header).Error; err != nil {
			return err
		}

		lines := make([]models.OrderItem, len(items))
		copy(lines, items)
		for i := range lines {
			lines[i].ID = uuid.NewString()
			lines[i].OrderID = header.ID
			lines[i].CreatedAt = now
			lines[i].UpdatedAt = now
			if err := tx.Omit(clause.Associations).Create(&lines[i]).Error; err != nil {
				return err
			}
			mods := make([]models.OrderItemModifier, len(items[i].Modifiers))
			copy(mods, items[i].Modifiers)
			for j := range mods {
				mods[j].OrderItemID = lines[i].ID
				mods[j].CreatedAt = now
			}
			if len(mods) > 0 {
				if err := tx.Create(&mods).Error; err != nil {
					return err
				}
			}
			lines[i].Modifiers = mods
		}

		header.Items = lines
		created = &header
		return nil
	})
	if err != nil {
		return nil, err
	}

	if replayed {
		utils.InfoLogger.WithFields(logrus.Fields{
			"outlet_id": created.OutletID,
			"order_id":  created.ID,
		}).Info("create order replayed from idempotency key")
		return s.GetOrder(ctx, created.OutletID, created.ID)
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"outlet_id":    created.OutletID,
		"order_id":     created.ID,
		"order_number": created.OrderNumber,
		"order_type":   created.OrderType,
		"total":        utils.FormatCurrencyIDR(created.TotalAmount),
	}).Info("order created")

	emit(ctx, s.emitter, kds.NewEvent(kds.EventOrderCreated, *created, created))
	return newOrderDetail(*created), nil
}

func (s *OrderService) GetOrder(ctx context.Context, outletID, orderID string) (*OrderDetail, error) {
	order, err := loadOrder(s.db.WithContext(ctx), outletID, orderID)
	if err != nil {
		return nil, err
	}
	return newOrderDetail(*order), nil
}

func validDate(field, value string) error {
	if value == "" {
		return nil
	}
	if _, err := time.Parse("2006-01-02", value); err != nil {
		return validationErr(field, "date must be YYYY-MM-DD")
	}
	return nil
}

// ListOrders returns order summaries of one outlet, newest first. Dates filter on
// the outlet business date and are inclusive.
func (s *OrderService) ListOrders(ctx context.Context, f ListOrdersFilter) (*OrderPage, error) {
	f.Status = strings.ToUpper(strings.TrimSpace(f.Status))
	f.OrderType = strings.ToUpper(strings.TrimSpace(f.OrderType))
	if f.Status != "" && !IsValidOrderStatus(f.Status) {
		return nil, validationErr("status", "unknown order status "+f.Status)
	}
	if f.OrderType != "" && !models.IsValidOrderType(f.OrderType) {
		return nil, validationErr("order_type", "unknown order type "+f.OrderType)
	}
	if err := validDate("start_date", f.StartDate); err != nil {
		return nil, err
	}
	if err := validDate("end_date", f.EndDate); err != nil {
		return nil, err
	}
	if f.StartDate != "" && f.EndDate != "" && f.StartDate > f.EndDate {
		return nil, validationErr("end_date", "end date is before start date")
	}
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	q := s.db.WithContext(ctx).Model(&models.Order{}).Where("outlet_id = ?", f.OutletID)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.OrderType != "" {
		q = q.Where("order_type = ?", f.OrderType)
	}
	if f.StartDate != "" {
		q = q.Where("business_date >= ?", f.StartDate)
	}
	if f.EndDate != "" {
		q = q.Where("business_date <= ?", f.EndDate)
	}

	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, wrapStoreErr("count orders", err)
	}
	orders := []models.Order{}
	if err := q.Order("created_at desc, id desc").Limit(f.Limit).Offset(f.Offset).Find(&orders).Error; err != nil {
		return nil, wrapStoreErr("list orders", err)
	}
	return &OrderPage{Orders: orders, Total: total, Limit: f.Limit, Offset: f.Offset}, nil
}

// ChangeStatus applies an explicit status transition. COMPLETED is only accepted when
// the order is already fully paid.
func (s *OrderService) ChangeStatus(ctx context.Context, outletID, orderID, target, actor string) (*OrderDetail, error) {
	target = strings.ToUpper(strings.TrimSpace(target))
	if !IsValidOrderStatus(target) {
		return nil, validationErr("status", "unknown order status "+target)
	}

	var (
		from         string
		withPayments bool
	)
	err := runInTx(ctx, s.db, "change order status", func(tx *gorm.DB) error {
		order, err := lockOrder(tx, outletID, orderID)
		if err != nil {
			return err
		}
		from = order.Status
		if err := ValidateOrderTransition(order.Status, target); err != nil {
			return err
		}

		paid, count, err := amountPaid(tx, order.ID)
		if err != nil {
			return err
		}

		now := s.Now()
		updates := map[string]interface{}{"status": target}
		switch target {
		case models.OrderStatusCompleted:
			if paid.LessThan(order.TotalAmount) {
				return conflictErr(fmt.Sprintf("order is not fully paid (paid %s of %s)", paid.StringFixed(2), order.TotalAmount.StringFixed(2)), order.Status, target)
			}
			updates["completed_at"] = now
			if order.IsCatering() {
				updates["catering_status"] = models.CateringStatusSettled
			}
		case models.OrderStatusCancelled:
			withPayments = count > 0
			if order.IsCatering() {
				updates["catering_status"] = models.CateringStatusCancelled
			}
		}
		return tx.Model(order).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}

	detail, err := s.GetOrder(ctx, outletID, orderID)
	if err != nil {
		return nil, err
	}

	entry := utils.InfoLogger.WithFields(logrus.Fields{
		"outlet_id": outletID,
		"order_id":  orderID,
		"from":      from,
		"to":        target,
		"actor":     actor,
	})
	if withPayments {
		entry.WithField("amount_paid", utils.FormatCurrencyIDR(detail.AmountPaid)).Warn("order cancelled with payments recorded")
	} else {
		entry.Info("order status changed")
	}

	emit(ctx, s.emitter, kds.NewEvent(kds.EventOrderUpdated, detail.Order, kds.OrderUpdated{
		Order:                 detail.Order,
		Change:                kds.ChangeStatus,
		From:                  from,
		To:                    target,
		CancelledWithPayments: withPayments,
	}))
	return detail, nil
}

func requireNew(order *models.Order) error {
	if order.Status != models.OrderStatusNew {
		return conflictErr("items can only be changed while the order is NEW", order.Status, models.OrderStatusNew)
	}
	return nil
}

// recalcTotals reprices the order header from the stored line subtotals. Once anything
// is paid the new total must stay above the amount paid, so only a payment can settle it.
func (s *OrderService) recalcTotals(tx *gorm.DB, order *models.Order) error {
	var items []models.OrderItem
	if err := tx.Where("order_id = ?", order.ID).Find(&items).Error; err != nil {
		return err
	}
	subtotals := make([]decimal.Decimal, 0, len(items))
	for _, it := range items {
		subtotals = append(subtotals, it.Subtotal)
	}
	totals, err := PriceOrder(subtotals, Discount{Type: order.DiscountType, Value: order.DiscountValue}, s.taxRate)
	if err != nil {
		return err
	}

	paid, _, err := amountPaid(tx, order.ID)
	if err != nil {
		return err
	}
	if paid.Sign() > 0 && totals.Total.LessThanOrEqual(paid) {
		return conflictErr(fmt.Sprintf("new total %s does not exceed the amount already paid %s", totals.Total.StringFixed(2), paid.StringFixed(2)),
			paid.StringFixed(2), totals.Total.StringFixed(2))
	}

	updates := map[string]interface{}{
		"subtotal":        totals.Subtotal,
		"discount_amount": totals.DiscountAmount,
		"tax_amount":      totals.TaxAmount,
		"total_amount":    totals.Total,
	}
	if order.IsCatering() && order.CateringDpAmount.Valid && order.CateringDpAmount.Decimal.GreaterThan(totals.Total) {
		updates["catering_dp_amount"] = totals.Total
	}
	return tx.Model(order).Updates(updates).Error
}

func (s *OrderService) itemsChanged(ctx context.Context, outletID, orderID, actor, action string) (*OrderDetail, error) {
	detail, err := s.GetOrder(ctx, outletID, orderID)
	if err != nil {
		return nil, err
	}
	utils.InfoLogger.WithFields(logrus.Fields{
		"outlet_id": outletID,
		"order_id":  orderID,
		"actor":     actor,
		"total":     utils.FormatCurrencyIDR(detail.TotalAmount),
	}).Info(action)

	emit(ctx, s.emitter, kds.NewEvent(kds.EventOrderUpdated, detail.Order, kds.OrderUpdated{
		Order:  detail.Order,
		Change: kds.ChangeItems,
		From:   detail.Status,
		To:     detail.Status,
	}))
	return detail, nil
}

// AddItem appends a line to a NEW order, priced against the current catalog.
func (s *OrderService) AddItem(ctx context.Context, outletID, orderID, actor string, req OrderItemRequest) (*OrderDetail, error) {
	snap, err := s.catalog.Snapshot(ctx, outletID, productIDs([]OrderItemRequest{req}))
	if err != nil {
		return nil, err
	}
	item, err := buildItem("item", req, snap)
	if err != nil {
		return nil, err
	}

	err = runInTx(ctx, s.db, "add order item", func(tx *gorm.DB) error {
		order, err := lockOrder(tx, outletID, orderID)
		if err != nil {
			return err
		}
		if err := requireNew(order); err != nil {
			return err
		}
		if err := s.catalog.Verify(tx, snap); err != nil {
			return err
		}

		now := s.Now()
		line := item
		line.ID = uuid.NewString()
		line.OrderID = order.ID
		line.CreatedAt = now
		line.UpdatedAt = now
		if err := tx.Omit(clause.Associations).Create(&line).Error; err != nil {
			return err
		}
		mods := make([]models.OrderItemModifier, len(item.Modifiers))
		copy(mods, item.Modifiers)
		for j := range mods {
			mods[j].OrderItemID = line.ID
			mods[j].CreatedAt = now
		}
		if len(mods) > 0 {
			if err := tx.Create(&mods).Error; err != nil {
				return err
			}
		}
		return s.recalcTotals(tx, order)
	})
	if err != nil {
		return nil, err
	}
	return s.itemsChanged(ctx, outletID, orderID, actor, "order item added")
}

func findItem(tx *gorm.DB, orderID, itemID string) (*models.OrderItem, error) {
	var item models.OrderItem
	err := tx.Preload("Modifiers").Where("id = ? AND order_id = ?", itemID, orderID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("order item", itemID)
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// EditItem changes quantity, note or discount of a line on a NEW order. The unit
// price and modifiers stay as snapshotted.
func (s *OrderService) EditItem(ctx context.Context, outletID, orderID, itemID, actor string, req EditItemRequest) (*OrderDetail, error) {
	err := runInTx(ctx, s.db, "edit order item", func(tx *gorm.DB) error {
		order, err := lockOrder(tx, outletID, orderID)
		if err != nil {
			return err
		}
		if err := requireNew(order); err != nil {
			return err
		}
		item, err := findItem(tx, order.ID, itemID)
		if err != nil {
			return err
		}

		quantity := item.Quantity
		if req.Quantity != nil {
			quantity = *req.Quantity
		}
		discount := Discount{Type: item.DiscountType, Value: item.DiscountValue}
		if req.DiscountType != nil || req.DiscountValue != nil {
			dType, dValue := item.DiscountType, item.DiscountValue.String()
			if req.DiscountType != nil {
				dType = *req.DiscountType
				// ganti tipe tanpa value: value lama tidak ikut terbawa
				if req.DiscountValue == nil {
					dValue = ""
				}
			}
			if req.DiscountValue != nil {
				dValue = *req.DiscountValue
			}
			if discount, err = ParseDiscount("item", dType, dValue); err != nil {
				return err
			}
		}

		mods := make([]ModifierLine, 0, len(item.Modifiers))
		for _, m := range item.Modifiers {
			mods = append(mods, ModifierLine{UnitPrice: m.UnitPrice, Quantity: m.Quantity})
		}
		line, err := PriceLine("item", LineInput{
			UnitPrice: item.UnitPrice,
			Quantity:  quantity,
			Discount:  discount,
			Modifiers: mods,
		})
		if err != nil {
			return err
		}

		updates := map[string]interface{}{
			"quantity":        quantity,
			"discount_type":   discount.Type,
			"discount_value":  discount.Value,
			"discount_amount": line.DiscountAmount,
			"modifier_total":  line.ModifierTotal,
			"subtotal":        line.Subtotal,
		}
		if req.Notes != nil {
			updates["notes"] = optional(*req.Notes)
		}
		if err := tx.Model(item).Updates(updates).Error; err != nil {
			return err
		}
		return s.recalcTotals(tx, order)
	})
	if err != nil {
		return nil, err
	}
	return s.itemsChanged(ctx, outletID, orderID, actor, "order item edited")
}

// RemoveItem deletes a line from a NEW order. The last line cannot be removed;
// cancel the order instead.
func (s *OrderService) RemoveItem(ctx context.Context, outletID, orderID, itemID, actor string) (*OrderDetail, error) {
	err := runInTx(ctx, s.db, "remove order item", func(tx *gorm.DB) error {
		order, err := lockOrder(tx, outletID, orderID)
		if err != nil {
			return err
		}
		if err := requireNew(order); err != nil {
			return err
		}
		item, err := findItem(tx, order.ID, itemID)
		if err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&models.OrderItem{}).Where("order_id = ?", order.ID).Count(&count).Error; err != nil {
			return err
		}
		if count <= 1 {
			return conflictErr("cannot remove the last item of an order, cancel the order instead", "", "")
		}

		if err := tx.Where("order_item_id = ?", item.ID).Delete(&models.OrderItemModifier{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(item).Error; err != nil {
			return err
		}
		return s.recalcTotals(tx, order)
	})
	if err != nil {
		return nil, err
	}
	return s.itemsChanged(ctx, outletID, orderID, actor, "order item removed")
}

// ChangeItemStatus moves one line through PENDING -> PREPARING -> READY and stamps
// the transition time. The order itself is not moved, and a paid (COMPLETED) order
// still goes through the kitchen.
func (s *OrderService) ChangeItemStatus(ctx context.Context, outletID, orderID, itemID, target, actor string) (*models.OrderItem, error) {
	target = strings.ToUpper(strings.TrimSpace(target))
	if !IsValidItemStatus(target) {
		return nil, validationErr("status", "unknown item status "+target)
	}

	var (
		order *models.Order
		item  *models.OrderItem
		from  string
	)
	err := runInTx(ctx, s.db, "change item status", func(tx *gorm.DB) error {
		var err error
		order, err = lockOrder(tx, outletID, orderID)
		if err != nil {
			return err
		}
		// order yang sudah lunas (COMPLETED) tetap dimasak, hanya CANCELLED yang dikunci
		if order.Status == models.OrderStatusCancelled {
			return conflictErr("order is CANCELLED, its items can no longer change", order.Status, target)
		}
		item, err = findItem(tx, order.ID, itemID)
		if err != nil {
			return err
		}
		from = item.Status
		if err := ValidateItemTransition(item.Status, target); err != nil {
			return err
		}

		now := s.Now()
		updates := map[string]interface{}{"status": target}
		switch target {
		case models.OrderItemStatusPreparing:
			updates["preparing_at"] = now
			item.PreparingAt = &now
		case models.OrderItemStatusReady:
			updates["ready_at"] = now
			item.ReadyAt = &now
		}
		if err := tx.Model(item).Updates(updates).Error; err != nil {
			return err
		}
		item.Status = target
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"outlet_id": outletID,
		"order_id":  orderID,
		"item_id":   itemID,
		"from":      from,
		"to":        target,
		"actor":     actor,
	}).Info("order item status changed")

	emit(ctx, s.emitter, kds.NewEvent(kds.EventItemUpdated, *order, kds.ItemUpdated{
		Item: *item,
		From: from,
		To:   target,
	}))
	return item, nil
}

package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeremiapane/restaurant-pos/database"
	"github.com/yeremiapane/restaurant-pos/kds"
	"github.com/yeremiapane/restaurant-pos/models"
)

const (
	testOutlet  = "outlet-1"
	otherOutlet = "outlet-2"
	testUser    = "user-1"
)

var wib = time.FixedZone("WIB", 7*3600)

// 2026-10-16 10:00 WIB
var testNow = time.Date(2026, 10, 16, 3, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	seedCatalog(t, db)
	return db
}

func money(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func strPtr(s string) *string { return &s }

func seedCatalog(t *testing.T, db *gorm.DB) {
	t.Helper()
	products := []models.Product{
		{ID: "p-nasi", OutletID: testOutlet, Name: "Nasi Goreng", BasePrice: money("25000"), Station: strPtr("KITCHEN"), IsActive: true},
		{ID: "p-ayam", OutletID: testOutlet, Name: "Ayam Bakar", BasePrice: money("25000"), Station: strPtr("KITCHEN"), IsActive: true},
		{ID: "p-teh", OutletID: testOutlet, Name: "Es Teh", BasePrice: money("15000"), Station: strPtr("BAR"), IsActive: true},
		{ID: "p-old", OutletID: testOutlet, Name: "Menu Lama", BasePrice: money("10000"), IsActive: false},
		{ID: "p-tumpeng", OutletID: testOutlet, Name: "Tumpeng", BasePrice: money("500000"), Station: strPtr("KITCHEN"), IsActive: true},
		{ID: "p-other", OutletID: otherOutlet, Name: "Soto", BasePrice: money("20000"), IsActive: true},
		{
			ID: "p-kopi", OutletID: testOutlet, Name: "Kopi Susu", BasePrice: money("20000"), Station: strPtr("BAR"), IsActive: true,
			VariantGroups: []models.VariantGroup{{
				ID: "vg-size", Name: "Size", IsRequired: true,
				Variants: []models.Variant{
					{ID: "v-regular", Name: "Regular", PriceAdjustment: money("0"), IsActive: true},
					{ID: "v-large", Name: "Large", PriceAdjustment: money("5000"), IsActive: true},
				},
			}},
			ModifierGroups: []models.ModifierGroup{
				{
					ID: "mg-topping", Name: "Topping", MinSelect: 0, MaxSelect: 2,
					Modifiers: []models.Modifier{
						{ID: "m-shot", Name: "Extra Shot", Price: money("5000"), IsActive: true},
						{ID: "m-oat", Name: "Oat Milk", Price: money("7000"), IsActive: true},
						{ID: "m-boba", Name: "Boba", Price: money("4000"), IsActive: true},
						{ID: "m-caramel", Name: "Caramel", Price: money("3000"), IsActive: false},
					},
				},
				{
					ID: "mg-sugar", Name: "Sugar", MinSelect: 1, MaxSelect: 1,
					Modifiers: []models.Modifier{
						{ID: "m-normal", Name: "Normal Sugar", Price: money("0"), IsActive: true},
						{ID: "m-less", Name: "Less Sugar", Price: money("0"), IsActive: true},
					},
				},
			},
		},
	}
	require.NoError(t, db.Create(&products).Error)
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []kds.Event
}

func (r *recordingEmitter) Emit(_ context.Context, evt kds.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

func (r *recordingEmitter) ofType(eventType string) []kds.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []kds.Event
	for _, e := range r.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	db       *gorm.DB
	catalog  *GormCatalog
	orders   *OrderService
	payments *PaymentService
	events   *recordingEmitter
}

func newFixture(t *testing.T, taxRate string) *fixture {
	t.Helper()
	db := newTestDB(t)
	events := &recordingEmitter{}
	catalog := NewGormCatalog(db)
	orders := NewOrderService(db, catalog, NewNumberingService(wib), events, money(taxRate))
	orders.Now = func() time.Time { return testNow }
	payments := NewPaymentService(db, events)
	payments.Now = func() time.Time { return testNow.Add(time.Hour) }
	return &fixture{db: db, catalog: catalog, orders: orders, payments: payments, events: events}
}

func dineInRequest(items ...OrderItemRequest) CreateOrderRequest {
	return CreateOrderRequest{
		OutletID:    testOutlet,
		CreatedBy:   testUser,
		OrderType:   models.OrderTypeDineIn,
		TableNumber: "T-05",
		Items:       items,
	}
}

func item(productID string, qty int) OrderItemRequest {
	return OrderItemRequest{ProductID: productID, Quantity: qty}
}

func (f *fixture) countRows(t *testing.T, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}

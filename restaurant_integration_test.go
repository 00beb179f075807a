package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeremiapane/restaurant-pos/database"
	"github.com/yeremiapane/restaurant-pos/kds"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/router"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

const (
	outletID = "outlet-1"
)

var jwtSecret = []byte("integration-secret")

func TestMain(m *testing.M) {
	utils.InitLogger("error")
	os.Exit(m.Run())
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   json.RawMessage `json:"error"`
}

type testApp struct {
	server *httptest.Server
	hub    *kds.Hub
}

// TestEndToEndIntegration menguji flow utama:
// 1. Create order (NEW) dengan Idempotency-Key
// 2. Kitchen menerima order.created lewat websocket
// 3. Kitchen memasak item
// 4. Kasir membayar tunai -> order otomatis COMPLETED
// 5. Order terminal menolak perubahan
func TestEndToEndIntegration(t *testing.T) {
	app := setupApp(t)

	cashier := tokenFor(t, utils.RoleCashier, outletID)
	kitchen := tokenFor(t, utils.RoleKitchen, outletID)

	ws := dialKDS(t, app, kitchen)
	require.Eventually(t, func() bool { return app.hub.ClientCount(outletID) == 1 }, time.Second, 10*time.Millisecond)

	order := createOrderTest(t, app, cashier)
	assert.Equal(t, models.OrderStatusNew, order.Status)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(65000)), order.TotalAmount.String())
	assert.True(t, strings.HasPrefix(order.OrderNumber, "ORD-"), order.OrderNumber)
	require.Len(t, order.Items, 2)

	evt := readEvent(t, ws)
	assert.Equal(t, kds.EventOrderCreated, evt.Type)
	assert.Equal(t, order.ID, evt.OrderID)

	checkCookingProcessTest(t, app, kitchen, order)
	evt = readEvent(t, ws)
	assert.Equal(t, kds.EventItemUpdated, evt.Type)

	payOrderTest(t, app, cashier, order.ID)
	assert.Equal(t, kds.EventOrderPaid, readEvent(t, ws).Type)
	assert.Equal(t, kds.EventOrderUpdated, readEvent(t, ws).Type)

	completed := getOrderTest(t, app, cashier, order.ID)
	assert.Equal(t, models.OrderStatusCompleted, completed.Status)
	assert.True(t, completed.Balance.IsZero())
	assert.NotNil(t, completed.CompletedAt)

	w := doJSON(t, app, http.MethodPatch, "/outlets/"+outletID+"/orders/"+order.ID+"/status", cashier, "", map[string]string{"status": "CANCELLED"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, app, http.MethodPost, "/outlets/"+outletID+"/orders/"+order.ID+"/payments", cashier, "", map[string]string{
		"payment_method": "QRIS", "amount": "1000", "reference_number": "QR-2",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAccessControl(t *testing.T) {
	app := setupApp(t)

	cashier := tokenFor(t, utils.RoleCashier, outletID)
	kitchen := tokenFor(t, utils.RoleKitchen, outletID)
	otherCashier := tokenFor(t, utils.RoleCashier, "outlet-2")
	owner := tokenFor(t, utils.RoleOwner, "")

	order := createOrderTest(t, app, cashier)
	path := "/outlets/" + outletID + "/orders/" + order.ID

	w := doJSON(t, app, http.MethodGet, path, "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, app, http.MethodGet, path, otherCashier, "", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, app, http.MethodGet, path, owner, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// kitchen boleh membaca tapi tidak boleh membuat order atau menerima pembayaran
	w = doJSON(t, app, http.MethodGet, path, kitchen, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, app, http.MethodPost, "/outlets/"+outletID+"/orders", kitchen, "", orderPayload())
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = doJSON(t, app, http.MethodPost, path+"/payments", kitchen, "", map[string]string{
		"payment_method": "CASH", "amount": "1000", "amount_received": "1000",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// owner melihat outlet lain, tapi order outlet-1 tidak ada di sana
	w = doJSON(t, app, http.MethodGet, "/outlets/outlet-2/orders/"+order.ID, owner, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestIdempotentRequests(t *testing.T) {
	app := setupApp(t)
	cashier := tokenFor(t, utils.RoleCashier, outletID)

	key := uuid.NewString()
	first := doJSON(t, app, http.MethodPost, "/outlets/"+outletID+"/orders", cashier, key, orderPayload())
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	second := doJSON(t, app, http.MethodPost, "/outlets/"+outletID+"/orders", cashier, key, orderPayload())
	require.Equal(t, http.StatusCreated, second.Code, second.Body.String())

	var a, b services.OrderDetail
	decodeData(t, first, &a)
	decodeData(t, second, &b)
	assert.Equal(t, a.ID, b.ID)
	assert.Equal(t, a.OrderNumber, b.OrderNumber)

	payKey := uuid.NewString()
	body := map[string]string{"payment_method": "TRANSFER", "amount": "20000", "reference_number": "TRF-1"}
	w := doJSON(t, app, http.MethodPost, "/outlets/"+outletID+"/orders/"+a.ID+"/payments", cashier, payKey, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = doJSON(t, app, http.MethodPost, "/outlets/"+outletID+"/orders/"+a.ID+"/payments", cashier, payKey, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var replay services.PaymentResult
	decodeData(t, w, &replay)
	assert.True(t, replay.Replayed)
	assert.True(t, replay.Order.AmountPaid.Equal(decimal.NewFromInt(20000)))

	w = doJSON(t, app, http.MethodGet, "/outlets/"+outletID+"/orders/"+a.ID+"/payments", cashier, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var payments []models.Payment
	decodeData(t, w, &payments)
	assert.Len(t, payments, 1)
}

func TestErrorMapping(t *testing.T) {
	app := setupApp(t)
	cashier := tokenFor(t, utils.RoleCashier, outletID)

	w := doJSON(t, app, http.MethodPost, "/outlets/"+outletID+"/orders", cashier, "", map[string]interface{}{
		"order_type": "DRIVE_THRU",
		"items":      []map[string]interface{}{{"product_id": "p-nasi", "quantity": 1}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.False(t, env.Status)
	assert.Contains(t, string(env.Error), "order_type")

	w = doJSON(t, app, http.MethodPost, "/outlets/"+outletID+"/orders", cashier, "", map[string]interface{}{
		"order_type": "TAKEAWAY",
		"items":      []map[string]interface{}{{"product_id": "p-hilang", "quantity": 1}},
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, app, http.MethodGet, "/outlets/"+outletID+"/orders/"+uuid.NewString(), cashier, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	order := createOrderTest(t, app, cashier)
	w = doJSON(t, app, http.MethodPatch, "/outlets/"+outletID+"/orders/"+order.ID+"/status", cashier, "", map[string]string{"status": "READY"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, app, http.MethodPatch, "/outlets/"+outletID+"/orders/"+order.ID+"/status", cashier, "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, app, http.MethodPost, "/outlets/"+outletID+"/orders/"+order.ID+"/payments", cashier, "", map[string]string{
		"payment_method": "CASH", "amount": "999999", "amount_received": "999999",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestListAndMenu(t *testing.T) {
	app := setupApp(t)
	cashier := tokenFor(t, utils.RoleCashier, outletID)

	for i := 0; i < 3; i++ {
		createOrderTest(t, app, cashier)
	}

	w := doJSON(t, app, http.MethodGet, "/outlets/"+outletID+"/orders?limit=2&status=NEW", cashier, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page services.OrderPage
	decodeData(t, w, &page)
	assert.EqualValues(t, 3, page.Total)
	assert.Len(t, page.Orders, 2)
	assert.Equal(t, 2, page.Limit)

	w = doJSON(t, app, http.MethodGet, "/outlets/"+outletID+"/products", cashier, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var products []models.Product
	decodeData(t, w, &products)
	assert.Len(t, products, 2)

	w = doJSON(t, app, http.MethodGet, "/outlets/"+outletID+"/products?all=true", cashier, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeData(t, w, &products)
	assert.Len(t, products, 3)
}

// setupApp -> sqlite in-memory + migrasi + seed menu, lalu router lengkap di httptest server
func setupApp(t *testing.T) *testApp {
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
	kitchen, bar := "KITCHEN", "BAR"
	require.NoError(t, db.Create(&[]models.Product{
		{ID: "p-nasi", OutletID: outletID, Name: "Nasi Goreng", BasePrice: decimal.NewFromInt(25000), Station: &kitchen, IsActive: true},
		{ID: "p-teh", OutletID: outletID, Name: "Es Teh", BasePrice: decimal.NewFromInt(15000), Station: &bar, IsActive: true},
		{ID: "p-lama", OutletID: outletID, Name: "Menu Lama", BasePrice: decimal.NewFromInt(10000), IsActive: false},
	}).Error)

	hub := kds.NewHub()
	emitter := kds.Fanout{hub}
	catalog := services.NewGormCatalog(db)
	numbering := services.NewNumberingService(time.FixedZone("WIB", 7*3600))

	r := router.SetupRouter(router.Dependencies{
		Orders:    services.NewOrderService(db, catalog, numbering, emitter, decimal.Zero),
		Payments:  services.NewPaymentService(db, emitter),
		Catalog:   catalog,
		Hub:       hub,
		JWTSecret: jwtSecret,
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testApp{server: srv, hub: hub}
}

func tokenFor(t *testing.T, role, outlet string) string {
	t.Helper()
	tok, err := utils.GenerateToken(jwtSecret, "user-"+strings.ToLower(role), role, outlet, time.Hour)
	require.NoError(t, err)
	return tok
}

func orderPayload() map[string]interface{} {
	return map[string]interface{}{
		"order_type":   "DINE_IN",
		"table_number": "T-07",
		"items": []map[string]interface{}{
			{"product_id": "p-nasi", "quantity": 2, "notes": "pedas"},
			{"product_id": "p-teh", "quantity": 1},
		},
	}
}

func doJSON(t *testing.T, app *testApp, method, path, token, idemKey string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, app.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if idemKey != "" {
		req.Header.Set("Idempotency-Key", idemKey)
	}

	resp, err := app.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	w := httptest.NewRecorder()
	w.Code = resp.StatusCode
	_, err = w.Body.ReadFrom(resp.Body)
	require.NoError(t, err)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.True(t, env.Status, env.Message)
	require.NoError(t, json.Unmarshal(env.Data, out))
}

func createOrderTest(t *testing.T, app *testApp, token string) services.OrderDetail {
	t.Helper()
	w := doJSON(t, app, http.MethodPost, "/outlets/"+outletID+"/orders", token, uuid.NewString(), orderPayload())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var order services.OrderDetail
	decodeData(t, w, &order)
	return order
}

func getOrderTest(t *testing.T, app *testApp, token, orderID string) services.OrderDetail {
	t.Helper()
	w := doJSON(t, app, http.MethodGet, "/outlets/"+outletID+"/orders/"+orderID, token, "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var order services.OrderDetail
	decodeData(t, w, &order)
	return order
}

func checkCookingProcessTest(t *testing.T, app *testApp, token string, order services.OrderDetail) {
	t.Helper()
	itemID := order.Items[0].ID
	w := doJSON(t, app, http.MethodPatch, "/outlets/"+outletID+"/orders/"+order.ID+"/items/"+itemID+"/status", token, "", map[string]string{"status": "PREPARING"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var item models.OrderItem
	decodeData(t, w, &item)
	assert.Equal(t, models.OrderItemStatusPreparing, item.Status)
	assert.NotNil(t, item.PreparingAt)

	// PENDING tidak bisa langsung dilompati kembali
	w = doJSON(t, app, http.MethodPatch, "/outlets/"+outletID+"/orders/"+order.ID+"/items/"+itemID+"/status", token, "", map[string]string{"status": "PENDING"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func payOrderTest(t *testing.T, app *testApp, token, orderID string) {
	t.Helper()
	w := doJSON(t, app, http.MethodPost, "/outlets/"+outletID+"/orders/"+orderID+"/payments", token, uuid.NewString(), map[string]string{
		"payment_method":  "CASH",
		"amount":          "65000",
		"amount_received": "100000",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var result services.PaymentResult
	decodeData(t, w, &result)
	assert.True(t, result.AutoCompleted)
	assert.False(t, result.Replayed)
	require.True(t, result.Payment.ChangeAmount.Valid)
	assert.True(t, result.Payment.ChangeAmount.Decimal.Equal(decimal.NewFromInt(35000)))
	assert.Equal(t, models.OrderStatusCompleted, result.Order.Status)
}

func dialKDS(t *testing.T, app *testApp, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(app.server.URL, "http") + "/outlets/" + outletID + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) kds.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var evt kds.Event
	require.NoError(t, conn.ReadJSON(&evt))
	return evt
}

package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restaurant-pos/controllers"
	"github.com/yeremiapane/restaurant-pos/kds"
	"github.com/yeremiapane/restaurant-pos/middlewares"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

type Dependencies struct {
	Orders      *services.OrderService
	Payments    *services.PaymentService
	Catalog     services.CatalogReader
	Hub         *kds.Hub
	JWTSecret   []byte
	CORSOrigins []string
	RateLimiter *middlewares.RateLimiter // nil = tanpa rate limit
}

func SetupRouter(deps Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares(deps.CORSOrigins))
	r.Use(middlewares.LoggerMiddleware())
	if deps.RateLimiter != nil {
		r.Use(deps.RateLimiter.RateLimit())
	}

	orderCtrl := controllers.NewOrderController(deps.Orders)
	paymentCtrl := controllers.NewPaymentController(deps.Payments)
	menuCtrl := controllers.NewMenuController(deps.Catalog)
	kdsCtrl := controllers.NewKDSController(deps.Hub, deps.CORSOrigins)

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	// ----------------------------------------------------------------
	//                 AUTHENTICATED, OUTLET-SCOPED ROUTES
	// ----------------------------------------------------------------
	outlet := r.Group("/outlets/:outlet_id")
	outlet.Use(middlewares.AuthMiddleware(deps.JWTSecret), middlewares.OutletScope())

	// KITCHEN hanya boleh membaca dan mengubah status item
	staff := middlewares.RequireRole(utils.RoleOwner, utils.RoleManager, utils.RoleCashier)
	anyRole := middlewares.RequireRole(utils.RoleOwner, utils.RoleManager, utils.RoleCashier, utils.RoleKitchen)

	// MENU (read only)
	outlet.GET("/products", anyRole, menuCtrl.GetProducts)

	// ORDERS
	outlet.POST("/orders", staff, orderCtrl.CreateOrder)
	outlet.GET("/orders", anyRole, orderCtrl.GetAllOrders)
	outlet.GET("/orders/:order_id", anyRole, orderCtrl.GetOrder)
	outlet.PATCH("/orders/:order_id/status", staff, orderCtrl.UpdateOrderStatus)

	// ORDER ITEMS
	outlet.POST("/orders/:order_id/items", staff, orderCtrl.AddItem)
	outlet.PATCH("/orders/:order_id/items/:item_id", staff, orderCtrl.EditItem)
	outlet.DELETE("/orders/:order_id/items/:item_id", staff, orderCtrl.RemoveItem)

	// KDS item-level (Kitchen)
	outlet.PATCH("/orders/:order_id/items/:item_id/status", anyRole, orderCtrl.UpdateItemStatus)

	// PAYMENTS
	outlet.POST("/orders/:order_id/payments", staff, paymentCtrl.CreatePayment)
	outlet.GET("/orders/:order_id/payments", anyRole, paymentCtrl.GetPayments)

	// WebSocket live events per outlet
	outlet.GET("/ws", anyRole, kdsCtrl.Stream)

	return r
}

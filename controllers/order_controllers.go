package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restaurant-pos/middlewares"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

type OrderController struct {
	Orders *services.OrderService
}

func NewOrderController(orders *services.OrderService) *OrderController {
	return &OrderController{Orders: orders}
}

// CreateOrder -> POST /outlets/:outlet_id/orders
func (oc *OrderController) CreateOrder(c *gin.Context) {
	var req services.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	req.OutletID = c.Param("outlet_id")
	req.CreatedBy = c.GetString(middlewares.CtxUserID)
	req.IdempotencyKey = c.GetHeader("Idempotency-Key")

	order, err := oc.Orders.CreateOrder(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Order created", order)
}

// GetAllOrders -> list order per outlet dengan filter dan paging
func (oc *OrderController) GetAllOrders(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))

	page, err := oc.Orders.ListOrders(c.Request.Context(), services.ListOrdersFilter{
		OutletID:  c.Param("outlet_id"),
		Status:    c.Query("status"),
		OrderType: c.Query("type"),
		StartDate: c.Query("start_date"),
		EndDate:   c.Query("end_date"),
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of orders", page)
}

func (oc *OrderController) GetOrder(c *gin.Context) {
	order, err := oc.Orders.GetOrder(c.Request.Context(), c.Param("outlet_id"), c.Param("order_id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order detail", order)
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateOrderStatus -> PATCH /outlets/:outlet_id/orders/:order_id/status
func (oc *OrderController) UpdateOrderStatus(c *gin.Context) {
	var body statusRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		bindError(c, err)
		return
	}
	order, err := oc.Orders.ChangeStatus(c.Request.Context(), c.Param("outlet_id"), c.Param("order_id"), body.Status, c.GetString(middlewares.CtxUserID))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order status updated", order)
}

func (oc *OrderController) AddItem(c *gin.Context) {
	var req services.OrderItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	order, err := oc.Orders.AddItem(c.Request.Context(), c.Param("outlet_id"), c.Param("order_id"), c.GetString(middlewares.CtxUserID), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Item added", order)
}

func (oc *OrderController) EditItem(c *gin.Context) {
	var req services.EditItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	order, err := oc.Orders.EditItem(c.Request.Context(), c.Param("outlet_id"), c.Param("order_id"), c.Param("item_id"), c.GetString(middlewares.CtxUserID), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Item updated", order)
}

func (oc *OrderController) RemoveItem(c *gin.Context) {
	order, err := oc.Orders.RemoveItem(c.Request.Context(), c.Param("outlet_id"), c.Param("order_id"), c.Param("item_id"), c.GetString(middlewares.CtxUserID))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Item removed", order)
}

// UpdateItemStatus -> dipakai kitchen display (PENDING -> PREPARING -> READY)
func (oc *OrderController) UpdateItemStatus(c *gin.Context) {
	var body statusRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		bindError(c, err)
		return
	}
	item, err := oc.Orders.ChangeItemStatus(c.Request.Context(), c.Param("outlet_id"), c.Param("order_id"), c.Param("item_id"), body.Status, c.GetString(middlewares.CtxUserID))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Item status updated", item)
}

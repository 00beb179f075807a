package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restaurant-pos/middlewares"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

type PaymentController struct {
	Payments *services.PaymentService
}

func NewPaymentController(payments *services.PaymentService) *PaymentController {
	return &PaymentController{Payments: payments}
}

// CreatePayment -> POST /outlets/:outlet_id/orders/:order_id/payments
func (pc *PaymentController) CreatePayment(c *gin.Context) {
	var req services.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	req.OutletID = c.Param("outlet_id")
	req.OrderID = c.Param("order_id")
	req.ProcessedBy = c.GetString(middlewares.CtxUserID)
	req.IdempotencyKey = c.GetHeader("Idempotency-Key")

	result, err := pc.Payments.RecordPayment(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	code, msg := http.StatusCreated, "Payment recorded"
	if result.Replayed {
		code, msg = http.StatusOK, "Payment already recorded"
	}
	utils.RespondJSON(c, code, msg, result)
}

func (pc *PaymentController) GetPayments(c *gin.Context) {
	payments, err := pc.Payments.ListPayments(c.Request.Context(), c.Param("outlet_id"), c.Param("order_id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of payments", payments)
}

package controllers

import (
	"net/http"
	"strconv"

	"github.com/eyespire/clinic-backend/models"
	"github.com/eyespire/clinic-backend/services"
	"github.com/eyespire/clinic-backend/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type OrderController struct {
	DB       *gorm.DB
	payments *services.OrderPaymentService
}

func NewOrderController(db *gorm.DB, payos *services.PayOSService) *OrderController {
	return &OrderController{
		DB:       db,
		payments: services.NewOrderPaymentService(db, payos),
	}
}

// CreateOrder opens a retail order in PENDING.
func (oc *OrderController) CreateOrder(c *gin.Context) {
	type request struct {
		UserID          *uint   `json:"userId"`
		TotalAmount     float64 `json:"totalAmount" binding:"required,gt=0"`
		ShippingAddress string  `json:"shippingAddress"`
	}
	var req request
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	order := models.Order{
		UserID:          req.UserID,
		TotalAmount:     req.TotalAmount,
		Status:          models.OrderPending,
		ShippingAddress: req.ShippingAddress,
	}
	if err := oc.DB.Create(&order).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Order created", order)
}

// GetOrder returns one order.
func (oc *OrderController) GetOrder(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		utils.RespondAppError(c, utils.ValidationError("invalid order id"))
		return
	}

	var order models.Order
	if err := oc.DB.First(&order, uint(id)).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.RespondAppError(c, utils.NotFoundError("order not found"))
			return
		}
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order retrieved", order)
}

// CreateCheckout opens a gateway payment for a pending order.
func (oc *OrderController) CreateCheckout(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		utils.RespondAppError(c, utils.ValidationError("invalid order id"))
		return
	}

	checkout, err := oc.payments.CreateCheckout(uint(id))
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Checkout created", checkout)
}

// VerifyReturn settles an order payment against the gateway record.
// GET /orders/payments/verify?orderCode=123456789
func (oc *OrderController) VerifyReturn(c *gin.Context) {
	orderCode := c.Query("orderCode")
	if orderCode == "" {
		utils.RespondAppError(c, utils.ValidationError("orderCode is required"))
		return
	}

	payment, err := oc.payments.VerifyReturn(orderCode)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order payment verified", payment)
}

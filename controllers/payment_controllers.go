package controllers

import (
	"net/http"
	"strconv"

	"github.com/eyespire/clinic-backend/services"
	"github.com/eyespire/clinic-backend/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type PaymentController struct {
	service *services.PaymentService
}

func NewPaymentController(db *gorm.DB, payos *services.PayOSService) *PaymentController {
	return &PaymentController{service: services.NewPaymentService(db, payos)}
}

// CreateDepositCheckout starts the pay-first booking flow. The booking
// details ride on the payment row until the gateway confirms.
func (pc *PaymentController) CreateDepositCheckout(c *gin.Context) {
	type request struct {
		UserID          *uint  `json:"userId"`
		DoctorID        uint   `json:"doctorId" binding:"required"`
		ServiceID       *uint  `json:"serviceId"`
		AppointmentDate string `json:"appointmentDate" binding:"required"`
		TimeSlot        string `json:"timeSlot" binding:"required"`
		PatientName     string `json:"patientName" binding:"required"`
		PatientEmail    string `json:"patientEmail" binding:"required,email"`
		PatientPhone    string `json:"patientPhone"`
		Notes           string `json:"notes"`
	}
	var req request
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	checkout, err := pc.service.CreateDepositCheckout(services.DepositCheckoutRequest{
		UserID:          req.UserID,
		DoctorID:        req.DoctorID,
		ServiceID:       req.ServiceID,
		AppointmentDate: req.AppointmentDate,
		TimeSlot:        req.TimeSlot,
		PatientName:     req.PatientName,
		PatientEmail:    req.PatientEmail,
		PatientPhone:    req.PatientPhone,
		Notes:           req.Notes,
	})
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Checkout created", checkout)
}

// CreateFinalCheckout opens a gateway payment for an invoice balance.
func (pc *PaymentController) CreateFinalCheckout(c *gin.Context) {
	appointmentID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		utils.RespondAppError(c, utils.ValidationError("invalid appointment id"))
		return
	}

	checkout, err := pc.service.CreateFinalCheckout(uint(appointmentID))
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Checkout created", checkout)
}

// VerifyReturn is hit when the patient comes back from the hosted page.
// GET /payments/verify?orderCode=123456789
func (pc *PaymentController) VerifyReturn(c *gin.Context) {
	orderCode := c.Query("orderCode")
	if orderCode == "" {
		utils.RespondAppError(c, utils.ValidationError("orderCode is required"))
		return
	}

	result, err := pc.service.VerifyPaymentReturn(orderCode)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Payment verified", result)
}

// Callback receives the gateway's server-to-server notification. The
// status in the body is treated as a hint only; verification re-queries
// the gateway before anything changes locally.
func (pc *PaymentController) Callback(c *gin.Context) {
	var body struct {
		Data struct {
			OrderCode int64  `json:"orderCode"`
			Status    string `json:"status"`
		} `json:"data"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if body.Data.OrderCode == 0 {
		utils.RespondAppError(c, utils.ValidationError("orderCode is required"))
		return
	}

	result, err := pc.service.VerifyPaymentReturn(strconv.FormatInt(body.Data.OrderCode, 10))
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Callback processed", result)
}

// RecordCashPayment settles the invoice balance paid at the front desk.
func (pc *PaymentController) RecordCashPayment(c *gin.Context) {
	appointmentID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		utils.RespondAppError(c, utils.ValidationError("invalid appointment id"))
		return
	}
	var req struct {
		ReceivedBy string `json:"receivedBy" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	payment, err := pc.service.RecordCashPayment(uint(appointmentID), req.ReceivedBy)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Cash payment recorded", payment)
}

// GetPayment returns a payment by its transaction number.
func (pc *PaymentController) GetPayment(c *gin.Context) {
	payment, err := pc.service.GetByTransactionNo(c.Param("transactionNo"))
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Payment retrieved", payment)
}

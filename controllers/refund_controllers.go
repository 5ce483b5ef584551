package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/eyespire/clinic-backend/services"
	"github.com/eyespire/clinic-backend/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type RefundController struct {
	service *services.RefundService
}

func NewRefundController(db *gorm.DB) *RefundController {
	return &RefundController{service: services.NewRefundService(db)}
}

// GetRefunds lists refunds, optionally filtered by status.
// GET /refunds?status=PENDING_MANUAL_REFUND
func (rc *RefundController) GetRefunds(c *gin.Context) {
	refunds, err := rc.service.GetRefunds(c.Query("status"))
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Refunds retrieved", refunds)
}

// GetRefundByAppointment returns the refund for one appointment.
func (rc *RefundController) GetRefundByAppointment(c *gin.Context) {
	appointmentID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		utils.RespondAppError(c, utils.ValidationError("invalid appointment id"))
		return
	}

	refund, err := rc.service.GetByAppointment(uint(appointmentID))
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Refund retrieved", refund)
}

// GetPatientRefunds lists one patient's refunds.
func (rc *RefundController) GetPatientRefunds(c *gin.Context) {
	patientID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		utils.RespondAppError(c, utils.ValidationError("invalid patient id"))
		return
	}

	refunds, err := rc.service.GetByPatient(uint(patientID))
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Refunds retrieved", refunds)
}

// CompleteRefund records a manual payout by the staff member on the JWT.
func (rc *RefundController) CompleteRefund(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		utils.RespondAppError(c, utils.ValidationError("invalid refund id"))
		return
	}
	var req struct {
		Method string `json:"method" binding:"required"`
		Notes  string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	completedBy, role, err := staffFromContext(c)
	if err != nil {
		utils.RespondError(c, http.StatusUnauthorized, err)
		return
	}

	refund, err := rc.service.CompleteRefund(uint(id), req.Method, completedBy, role, req.Notes)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Refund completed", refund)
}

// RejectRefund closes a pending refund without paying it.
func (rc *RefundController) RejectRefund(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		utils.RespondAppError(c, utils.ValidationError("invalid refund id"))
		return
	}
	var req struct {
		Notes string `json:"notes" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	reviewedBy, _, err := staffFromContext(c)
	if err != nil {
		utils.RespondError(c, http.StatusUnauthorized, err)
		return
	}

	refund, err := rc.service.RejectRefund(uint(id), reviewedBy, req.Notes)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Refund rejected", refund)
}

// Backfill opens refunds for cancelled appointments missing one.
func (rc *RefundController) Backfill(c *gin.Context) {
	created, err := rc.service.CreateMissingRefunds()
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Backfill completed", gin.H{
		"created": created,
	})
}

// GetStats summarizes the refund queue.
func (rc *RefundController) GetStats(c *gin.Context) {
	stats, err := rc.service.GetStats()
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Refund stats retrieved", stats)
}

// staffFromContext reads the acting staff identity set by the auth
// middleware.
func staffFromContext(c *gin.Context) (string, string, error) {
	userID, exists := c.Get("user_id")
	if !exists {
		return "", "", errors.New("user id not found in context")
	}
	role, _ := c.Get("role")
	roleStr, _ := role.(string)
	return strconv.FormatUint(uint64(userID.(uint)), 10), roleStr, nil
}

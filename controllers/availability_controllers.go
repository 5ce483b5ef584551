package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/eyespire/clinic-backend/models"
	"github.com/eyespire/clinic-backend/services"
	"github.com/eyespire/clinic-backend/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type AvailabilityController struct {
	service *services.AvailabilityService
}

func NewAvailabilityController(db *gorm.DB) *AvailabilityController {
	return &AvailabilityController{service: services.NewAvailabilityService(db)}
}

// GetAvailableSlots returns the clinic-wide hourly slot view for a date.
// GET /appointments/available-slots?date=2026-09-01
func (ac *AvailabilityController) GetAvailableSlots(c *gin.Context) {
	dateStr := c.Query("date")
	date, err := time.ParseInLocation("2006-01-02", dateStr, time.Local)
	if err != nil {
		utils.RespondAppError(c, utils.ValidationError("date must be YYYY-MM-DD"))
		return
	}

	slots, err := ac.service.GetAvailableSlots(date)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Available slots retrieved", slots)
}

// CheckDoctorAvailability answers the exact-instant question for one doctor.
// GET /doctors/:id/available?datetime=2026-09-01T09:00:00Z
func (ac *AvailabilityController) CheckDoctorAvailability(c *gin.Context) {
	doctorID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		utils.RespondAppError(c, utils.ValidationError("invalid doctor id"))
		return
	}
	at, err := time.Parse(time.RFC3339, c.Query("datetime"))
	if err != nil {
		utils.RespondAppError(c, utils.ValidationError("datetime must be RFC3339"))
		return
	}

	available, err := ac.service.IsDoctorAvailable(uint(doctorID), at)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Doctor availability checked", gin.H{
		"available": available,
	})
}

// CreateAvailability adds a working window for a doctor.
func (ac *AvailabilityController) CreateAvailability(c *gin.Context) {
	type request struct {
		DoctorID  uint   `json:"doctorId" binding:"required"`
		Date      string `json:"date" binding:"required"`
		StartTime string `json:"startTime" binding:"required"`
		EndTime   string `json:"endTime" binding:"required"`
		Notes     string `json:"notes"`
	}
	var req request
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	av, err := ac.service.CreateAvailability(&models.DoctorAvailability{
		DoctorID:  req.DoctorID,
		Date:      req.Date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Notes:     req.Notes,
	})
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Availability created", av)
}

// GetDoctorAvailabilities lists a doctor's windows, optionally for a date.
func (ac *AvailabilityController) GetDoctorAvailabilities(c *gin.Context) {
	doctorID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		utils.RespondAppError(c, utils.ValidationError("invalid doctor id"))
		return
	}

	windows, err := ac.service.GetDoctorAvailabilities(uint(doctorID), c.Query("date"))
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Availabilities retrieved", windows)
}

// UpdateAvailabilityStatus flips a window's status.
func (ac *AvailabilityController) UpdateAvailabilityStatus(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		utils.RespondAppError(c, utils.ValidationError("invalid availability id"))
		return
	}
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	av, err := ac.service.UpdateAvailabilityStatus(uint(id), req.Status)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Availability updated", av)
}

// DeleteAvailability removes a window.
func (ac *AvailabilityController) DeleteAvailability(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		utils.RespondAppError(c, utils.ValidationError("invalid availability id"))
		return
	}
	if err := ac.service.DeleteAvailability(uint(id)); err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Availability deleted", nil)
}

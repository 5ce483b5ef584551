package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/eyespire/clinic-backend/services"
	"github.com/eyespire/clinic-backend/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type AppointmentController struct {
	service  *services.AppointmentService
	invoices *services.InvoiceService
}

func NewAppointmentController(db *gorm.DB) *AppointmentController {
	return &AppointmentController{
		service:  services.NewAppointmentService(db),
		invoices: services.NewInvoiceService(db),
	}
}

// CreateAppointment books a slot directly, without going through a
// deposit checkout. Used by reception staff.
func (ac *AppointmentController) CreateAppointment(c *gin.Context) {
	type request struct {
		PatientID       *uint  `json:"patientId"`
		DoctorID        uint   `json:"doctorId" binding:"required"`
		ServiceIDs      []uint `json:"serviceIds"`
		AppointmentTime string `json:"appointmentTime" binding:"required"`
		PatientName     string `json:"patientName"`
		PatientEmail    string `json:"patientEmail"`
		PatientPhone    string `json:"patientPhone"`
		Notes           string `json:"notes"`
	}
	var req request
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	at, err := time.Parse(time.RFC3339, req.AppointmentTime)
	if err != nil {
		utils.RespondAppError(c, utils.ValidationError("appointmentTime must be RFC3339"))
		return
	}

	appointment, err := ac.service.CreateAppointment(services.CreateAppointmentRequest{
		PatientID:       req.PatientID,
		DoctorID:        req.DoctorID,
		ServiceIDs:      req.ServiceIDs,
		AppointmentTime: at,
		PatientName:     req.PatientName,
		PatientEmail:    req.PatientEmail,
		PatientPhone:    req.PatientPhone,
		Notes:           req.Notes,
	})
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Appointment created", appointment)
}

// GetAppointment returns one appointment with its relations.
func (ac *AppointmentController) GetAppointment(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		utils.RespondAppError(c, utils.ValidationError("invalid appointment id"))
		return
	}

	appointment, err := ac.service.GetByID(uint(id))
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Appointment retrieved", appointment)
}

// GetPatientAppointments lists the caller's appointments.
func (ac *AppointmentController) GetPatientAppointments(c *gin.Context) {
	patientID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		utils.RespondAppError(c, utils.ValidationError("invalid patient id"))
		return
	}

	appointments, err := ac.service.GetByPatient(uint(patientID))
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Appointments retrieved", appointments)
}

// GetDoctorSchedule lists a doctor's appointments on one day.
// GET /doctors/:id/appointments?date=2026-09-01
func (ac *AppointmentController) GetDoctorSchedule(c *gin.Context) {
	doctorID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		utils.RespondAppError(c, utils.ValidationError("invalid doctor id"))
		return
	}
	date, err := time.ParseInLocation("2006-01-02", c.Query("date"), time.Local)
	if err != nil {
		utils.RespondAppError(c, utils.ValidationError("date must be YYYY-MM-DD"))
		return
	}

	appointments, err := ac.service.GetByDoctorAndDate(uint(doctorID), date)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Schedule retrieved", appointments)
}

// GetAppointmentsByStatus lists appointments in one lifecycle status.
// GET /appointments?status=WAITING_PAYMENT
func (ac *AppointmentController) GetAppointmentsByStatus(c *gin.Context) {
	status := c.Query("status")
	if status == "" {
		utils.RespondAppError(c, utils.ValidationError("status query parameter is required"))
		return
	}

	appointments, err := ac.service.GetByStatus(status)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Appointments retrieved", appointments)
}

// UpdateStatus moves an appointment through its lifecycle.
func (ac *AppointmentController) UpdateStatus(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		utils.RespondAppError(c, utils.ValidationError("invalid appointment id"))
		return
	}
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	appointment, err := ac.service.UpdateStatus(uint(id), req.Status)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Appointment status updated", appointment)
}

// CancelAppointment cancels a booking and opens the refund.
func (ac *AppointmentController) CancelAppointment(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		utils.RespondAppError(c, utils.ValidationError("invalid appointment id"))
		return
	}
	var req struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	appointment, err := ac.service.CancelAppointment(uint(id), req.Reason)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Appointment cancelled", appointment)
}

// FinalizeInvoice sets the post-diagnosis total for an appointment.
func (ac *AppointmentController) FinalizeInvoice(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		utils.RespondAppError(c, utils.ValidationError("invalid appointment id"))
		return
	}
	var req struct {
		TotalAmount float64 `json:"totalAmount" binding:"required,gt=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	invoice, err := ac.invoices.FinalizeAfterDiagnosis(uint(id), req.TotalAmount)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Invoice finalized", invoice)
}

// GetUnpaidInvoices lists invoices that still carry a balance.
func (ac *AppointmentController) GetUnpaidInvoices(c *gin.Context) {
	invoices, err := ac.invoices.GetUnpaid()
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Unpaid invoices retrieved", invoices)
}

// GetInvoice returns the invoice attached to an appointment.
func (ac *AppointmentController) GetInvoice(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		utils.RespondAppError(c, utils.ValidationError("invalid appointment id"))
		return
	}

	invoice, err := ac.invoices.GetByAppointment(uint(id))
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Invoice retrieved", invoice)
}

package services

import (
	"fmt"
	"time"

	"github.com/eyespire/clinic-backend/models"
	"github.com/eyespire/clinic-backend/utils"
	"gorm.io/gorm"
)

// DefaultDepositAmount is the clinic's standard booking deposit. It is
// both what a deposit checkout charges and what a cancellation refunds.
const DefaultDepositAmount = 10000

// RefundService manages the manual refund queue for cancelled bookings.
type RefundService struct {
	db *gorm.DB
}

func NewRefundService(db *gorm.DB) *RefundService {
	return &RefundService{db: db}
}

// CreateForAppointment opens a refund for a cancelled appointment. At
// most one refund ever exists per appointment; a second call conflicts.
func (s *RefundService) CreateForAppointment(appointment *models.Appointment, reason string) (*models.Refund, error) {
	var existing models.Refund
	err := s.db.Where("appointment_id = ?", appointment.ID).First(&existing).Error
	if err == nil {
		return nil, utils.ConflictError(fmt.Sprintf(
			"refund already exists for appointment %d", appointment.ID))
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	refund := models.Refund{
		AppointmentID: appointment.ID,
		PatientID:     appointment.PatientID,
		RefundAmount:  DefaultDepositAmount,
		RefundReason:  reason,
		RefundStatus:  models.RefundPendingManual,
	}
	if err := s.db.Create(&refund).Error; err != nil {
		return nil, err
	}
	utils.InfoLogger.Printf("Created refund %d for appointment %d, amount %.0f",
		refund.ID, appointment.ID, refund.RefundAmount)
	return &refund, nil
}

// CompleteRefund records that staff paid the refund out.
func (s *RefundService) CompleteRefund(id uint, method, completedBy, completedByRole, notes string) (*models.Refund, error) {
	switch method {
	case models.RefundMethodManual, models.RefundMethodBankTransfer, models.RefundMethodCash, models.RefundMethodEWallet:
	default:
		return nil, utils.ValidationError("invalid refund method: " + method)
	}

	var refund models.Refund
	if err := s.db.First(&refund, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.NotFoundError(fmt.Sprintf("refund %d not found", id))
		}
		return nil, err
	}
	if refund.RefundStatus != models.RefundPendingManual {
		return nil, utils.ConflictError(fmt.Sprintf(
			"refund %d is already %s", id, refund.RefundStatus))
	}

	now := time.Now()
	refund.RefundStatus = models.RefundCompleted
	refund.RefundMethod = method
	refund.RefundCompletedBy = completedBy
	refund.RefundCompletedByRole = completedByRole
	refund.RefundCompletedAt = &now
	if notes != "" {
		refund.Notes = notes
	}
	if err := s.db.Save(&refund).Error; err != nil {
		return nil, err
	}
	utils.InfoLogger.Printf("Refund %d completed via %s by %s", id, method, completedBy)
	return &refund, nil
}

// RejectRefund closes a pending refund without paying it.
func (s *RefundService) RejectRefund(id uint, reviewedBy, notes string) (*models.Refund, error) {
	var refund models.Refund
	if err := s.db.First(&refund, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.NotFoundError(fmt.Sprintf("refund %d not found", id))
		}
		return nil, err
	}
	if refund.RefundStatus != models.RefundPendingManual {
		return nil, utils.ConflictError(fmt.Sprintf(
			"refund %d is already %s", id, refund.RefundStatus))
	}

	now := time.Now()
	refund.RefundStatus = models.RefundRejected
	refund.RefundCompletedBy = reviewedBy
	refund.RefundCompletedAt = &now
	refund.Notes = notes
	if err := s.db.Save(&refund).Error; err != nil {
		return nil, err
	}
	return &refund, nil
}

// CreateMissingRefunds backfills refunds for cancelled appointments that
// never got one, typically because creation failed during cancellation.
// Returns how many refunds it opened.
func (s *RefundService) CreateMissingRefunds() (int, error) {
	var cancelled []models.Appointment
	err := s.db.
		Where("status = ?", models.AppointmentCanceled).
		Where("id NOT IN (?)", s.db.Model(&models.Refund{}).Select("appointment_id")).
		Find(&cancelled).Error
	if err != nil {
		return 0, err
	}

	created := 0
	for i := range cancelled {
		reason := cancelled[i].CancellationReason
		if reason == "" {
			reason = "Appointment cancelled"
		}
		if _, err := s.CreateForAppointment(&cancelled[i], reason); err != nil {
			utils.ErrorLogger.Printf("Backfill refund for appointment %d failed: %v", cancelled[i].ID, err)
			continue
		}
		created++
	}
	if created > 0 {
		utils.InfoLogger.Printf("Backfilled %d missing refunds", created)
	}
	return created, nil
}

// GetRefunds lists refunds, optionally filtered by status.
func (s *RefundService) GetRefunds(status string) ([]models.Refund, error) {
	q := s.db.Preload("Appointment").Preload("Patient").Order("created_at DESC")
	if status != "" {
		q = q.Where("refund_status = ?", status)
	}
	var refunds []models.Refund
	if err := q.Find(&refunds).Error; err != nil {
		return nil, err
	}
	return refunds, nil
}

// GetByPatient lists a patient's refunds newest first.
func (s *RefundService) GetByPatient(patientID uint) ([]models.Refund, error) {
	var refunds []models.Refund
	err := s.db.
		Preload("Appointment").
		Where("patient_id = ?", patientID).
		Order("created_at DESC").
		Find(&refunds).Error
	return refunds, err
}

// GetByAppointment returns the refund attached to an appointment.
func (s *RefundService) GetByAppointment(appointmentID uint) (*models.Refund, error) {
	var refund models.Refund
	err := s.db.
		Preload("Appointment").Preload("Patient").
		Where("appointment_id = ?", appointmentID).
		First(&refund).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.NotFoundError(fmt.Sprintf("no refund for appointment %d", appointmentID))
		}
		return nil, err
	}
	return &refund, nil
}

// RefundStats summarizes the refund queue.
type RefundStats struct {
	PendingCount   int64   `json:"pendingCount"`
	CompletedCount int64   `json:"completedCount"`
	RejectedCount  int64   `json:"rejectedCount"`
	PendingAmount  float64 `json:"pendingAmount"`
	RefundedAmount float64 `json:"refundedAmount"`
}

// GetStats aggregates queue counts and amounts for the dashboard.
func (s *RefundService) GetStats() (*RefundStats, error) {
	var stats RefundStats

	counts := map[string]*int64{
		models.RefundPendingManual: &stats.PendingCount,
		models.RefundCompleted:     &stats.CompletedCount,
		models.RefundRejected:      &stats.RejectedCount,
	}
	for status, dst := range counts {
		if err := s.db.Model(&models.Refund{}).
			Where("refund_status = ?", status).Count(dst).Error; err != nil {
			return nil, err
		}
	}

	type sumRow struct{ Total float64 }
	var row sumRow
	err := s.db.Model(&models.Refund{}).
		Select("COALESCE(SUM(refund_amount), 0) AS total").
		Where("refund_status = ?", models.RefundPendingManual).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	stats.PendingAmount = row.Total

	err = s.db.Model(&models.Refund{}).
		Select("COALESCE(SUM(refund_amount), 0) AS total").
		Where("refund_status = ?", models.RefundCompleted).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	stats.RefundedAmount = row.Total
	return &stats, nil
}

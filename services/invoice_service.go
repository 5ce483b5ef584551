package services

import (
	"fmt"
	"time"

	"github.com/eyespire/clinic-backend/models"
	"github.com/eyespire/clinic-backend/utils"
	"gorm.io/gorm"
)

// InvoiceService keeps the money ledger for appointments. Every write
// preserves totalAmount = depositAmount + remainingAmount.
type InvoiceService struct {
	db *gorm.DB
}

func NewInvoiceService(db *gorm.DB) *InvoiceService {
	return &InvoiceService{db: db}
}

// CreateForAppointment opens the invoice after the deposit is paid. The
// total starts at the deposit; services added during diagnosis raise it
// later through FinalizeAfterDiagnosis.
func (s *InvoiceService) CreateForAppointment(appointmentID uint, depositAmount float64, transactionID string) (*models.AppointmentInvoice, error) {
	return s.createForAppointmentTx(s.db, appointmentID, depositAmount, transactionID)
}

// createForAppointmentTx is CreateForAppointment running on the caller's
// transaction, for settlement paths that must commit the invoice together
// with the payment.
func (s *InvoiceService) createForAppointmentTx(tx *gorm.DB, appointmentID uint, depositAmount float64, transactionID string) (*models.AppointmentInvoice, error) {
	if depositAmount <= 0 {
		depositAmount = DefaultDepositAmount
	}

	var existing models.AppointmentInvoice
	err := tx.Where("appointment_id = ?", appointmentID).First(&existing).Error
	if err == nil {
		utils.InfoLogger.Printf("Invoice %d already exists for appointment %d", existing.ID, appointmentID)
		return &existing, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	now := time.Now()
	invoice := models.AppointmentInvoice{
		AppointmentID:   appointmentID,
		TotalAmount:     depositAmount,
		DepositAmount:   depositAmount,
		RemainingAmount: 0,
		IsFullyPaid:     true,
		TransactionID:   transactionID,
		PaidAt:          &now,
	}
	if err := tx.Create(&invoice).Error; err != nil {
		return nil, err
	}
	utils.InfoLogger.Printf("Created invoice %d for appointment %d, deposit %.0f",
		invoice.ID, appointmentID, depositAmount)
	return &invoice, nil
}

// FinalizeAfterDiagnosis sets the real total once services are known and
// moves the appointment to WAITING_PAYMENT when a balance remains. An
// appointment already COMPLETED keeps its status.
func (s *InvoiceService) FinalizeAfterDiagnosis(appointmentID uint, totalAmount float64) (*models.AppointmentInvoice, error) {
	if totalAmount < 0 {
		return nil, utils.ValidationError("totalAmount cannot be negative")
	}

	tx := s.db.Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	var invoice models.AppointmentInvoice
	if err := tx.Where("appointment_id = ?", appointmentID).First(&invoice).Error; err != nil {
		tx.Rollback()
		if err == gorm.ErrRecordNotFound {
			return nil, utils.NotFoundError(fmt.Sprintf("no invoice for appointment %d", appointmentID))
		}
		return nil, err
	}

	if totalAmount < invoice.DepositAmount {
		tx.Rollback()
		return nil, utils.ValidationError(fmt.Sprintf(
			"totalAmount %.0f is below the paid deposit %.0f", totalAmount, invoice.DepositAmount))
	}

	invoice.TotalAmount = totalAmount
	invoice.RemainingAmount = totalAmount - invoice.DepositAmount
	invoice.IsFullyPaid = invoice.RemainingAmount == 0
	if err := checkInvoiceBalance(&invoice); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Save(&invoice).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	var appointment models.Appointment
	if err := tx.First(&appointment, appointmentID).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if !invoice.IsFullyPaid && appointment.Status != models.AppointmentCompleted {
		if !models.CanTransitionAppointment(appointment.Status, models.AppointmentWaitingPayment) {
			tx.Rollback()
			return nil, utils.ConflictError(fmt.Sprintf(
				"cannot move appointment %d from %s to %s",
				appointmentID, appointment.Status, models.AppointmentWaitingPayment))
		}
		appointment.Status = models.AppointmentWaitingPayment
		if err := tx.Save(&appointment).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	utils.InfoLogger.Printf("Finalized invoice %d: total %.0f, remaining %.0f",
		invoice.ID, invoice.TotalAmount, invoice.RemainingAmount)
	return &invoice, nil
}

// MarkFullyPaid settles the invoice and completes the appointment in the
// same transaction. The recorded deposit and remaining amounts stay as
// finalized; only the paid fields change.
func (s *InvoiceService) MarkFullyPaid(appointmentID uint, transactionID string) (*models.AppointmentInvoice, error) {
	tx := s.db.Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	invoice, err := s.markFullyPaidTx(tx, appointmentID, transactionID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return invoice, nil
}

// markFullyPaidTx is MarkFullyPaid running on the caller's transaction,
// so a payment write and the settlement commit or roll back together.
func (s *InvoiceService) markFullyPaidTx(tx *gorm.DB, appointmentID uint, transactionID string) (*models.AppointmentInvoice, error) {
	var invoice models.AppointmentInvoice
	if err := tx.Where("appointment_id = ?", appointmentID).First(&invoice).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.NotFoundError(fmt.Sprintf("no invoice for appointment %d", appointmentID))
		}
		return nil, err
	}
	if invoice.IsFullyPaid {
		return &invoice, nil
	}

	now := time.Now()
	invoice.IsFullyPaid = true
	if transactionID != "" {
		invoice.TransactionID = transactionID
	}
	invoice.PaidAt = &now
	if err := checkInvoiceBalance(&invoice); err != nil {
		return nil, err
	}
	if err := tx.Save(&invoice).Error; err != nil {
		return nil, err
	}

	var appointment models.Appointment
	if err := tx.First(&appointment, appointmentID).Error; err != nil {
		return nil, err
	}
	if appointment.Status != models.AppointmentCompleted {
		if !models.CanTransitionAppointment(appointment.Status, models.AppointmentCompleted) {
			return nil, utils.ConflictError(fmt.Sprintf(
				"cannot complete appointment %d from status %s", appointmentID, appointment.Status))
		}
		appointment.Status = models.AppointmentCompleted
		if err := tx.Save(&appointment).Error; err != nil {
			return nil, err
		}
	}

	utils.InfoLogger.Printf("Invoice %d fully paid, appointment %d completed", invoice.ID, appointmentID)
	return &invoice, nil
}

// GetByAppointment returns the invoice for an appointment.
func (s *InvoiceService) GetByAppointment(appointmentID uint) (*models.AppointmentInvoice, error) {
	var invoice models.AppointmentInvoice
	err := s.db.Where("appointment_id = ?", appointmentID).First(&invoice).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.NotFoundError(fmt.Sprintf("no invoice for appointment %d", appointmentID))
		}
		return nil, err
	}
	return &invoice, nil
}

// GetUnpaid lists invoices that still carry a balance.
func (s *InvoiceService) GetUnpaid() ([]models.AppointmentInvoice, error) {
	var invoices []models.AppointmentInvoice
	err := s.db.Where("is_fully_paid = ?", false).Order("created_at").Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

func checkInvoiceBalance(inv *models.AppointmentInvoice) error {
	if inv.TotalAmount != inv.DepositAmount+inv.RemainingAmount {
		return utils.InvariantError(fmt.Sprintf(
			"invoice %d out of balance: total %.2f, deposit %.2f, remaining %.2f",
			inv.ID, inv.TotalAmount, inv.DepositAmount, inv.RemainingAmount))
	}
	return nil
}

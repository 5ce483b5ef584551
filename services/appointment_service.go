package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/eyespire/clinic-backend/models"
	"github.com/eyespire/clinic-backend/utils"
	"gorm.io/gorm"
)

// doctorLocks serializes booking attempts per doctor so two requests for
// the same instant cannot both pass the availability check.
var doctorLocks sync.Map

func lockDoctor(doctorID uint) *sync.Mutex {
	mu, _ := doctorLocks.LoadOrStore(doctorID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// AppointmentService handles booking, status transitions and cancellation.
type AppointmentService struct {
	db           *gorm.DB
	availability *AvailabilityService
	refunds      *RefundService
}

func NewAppointmentService(db *gorm.DB) *AppointmentService {
	return &AppointmentService{
		db:           db,
		availability: NewAvailabilityService(db),
		refunds:      NewRefundService(db),
	}
}

// CreateAppointmentRequest carries everything needed to book a slot.
type CreateAppointmentRequest struct {
	PatientID       *uint
	DoctorID        uint
	ServiceIDs      []uint
	AppointmentTime time.Time
	PatientName     string
	PatientEmail    string
	PatientPhone    string
	Notes           string
	PaymentID       *uint
}

// CreateAppointment books a doctor at an exact instant. The doctor lock
// plus the availability re-check inside the insert transaction make sure
// concurrent requests for the same slot cannot both succeed.
func (s *AppointmentService) CreateAppointment(req CreateAppointmentRequest) (*models.Appointment, error) {
	if req.DoctorID == 0 {
		return nil, utils.ValidationError("doctorId is required")
	}
	if req.AppointmentTime.IsZero() {
		return nil, utils.ValidationError("appointmentTime is required")
	}

	// Idempotency: a payment finalizes at most one appointment.
	if req.PaymentID != nil {
		var existing models.Appointment
		err := s.db.
			Preload("Doctor").Preload("Services").
			Where("payment_id = ?", *req.PaymentID).
			First(&existing).Error
		if err == nil {
			utils.InfoLogger.Printf("Appointment %d already exists for payment %d", existing.ID, *req.PaymentID)
			return &existing, nil
		}
		if err != gorm.ErrRecordNotFound {
			return nil, err
		}
	}

	mu := lockDoctor(req.DoctorID)
	mu.Lock()
	defer mu.Unlock()

	tx := s.db.Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	appointment, err := s.createAppointmentTx(tx, req)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	utils.InfoLogger.Printf("Created appointment %d for doctor %d at %s",
		appointment.ID, appointment.DoctorID, appointment.AppointmentTime.Format(time.RFC3339))
	return appointment, nil
}

// createAppointmentTx runs the availability gate and insert on the
// caller's transaction. The caller must hold the doctor lock until that
// transaction commits.
func (s *AppointmentService) createAppointmentTx(tx *gorm.DB, req CreateAppointmentRequest) (*models.Appointment, error) {
	var doctor models.Doctor
	if err := tx.First(&doctor, req.DoctorID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.NotFoundError(fmt.Sprintf("doctor %d not found", req.DoctorID))
		}
		return nil, err
	}

	available, err := s.availability.isDoctorAvailableTx(tx, req.DoctorID, req.AppointmentTime)
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, utils.ConflictError(fmt.Sprintf(
			"doctor %d is not available at %s", req.DoctorID, req.AppointmentTime.Format(time.RFC3339)))
	}

	var services []models.MedicalService
	if len(req.ServiceIDs) > 0 {
		if err := tx.Find(&services, req.ServiceIDs).Error; err != nil {
			return nil, err
		}
		if len(services) != len(req.ServiceIDs) {
			return nil, utils.NotFoundError("one or more medical services not found")
		}
	}

	appointment := models.Appointment{
		PatientID:       req.PatientID,
		DoctorID:        req.DoctorID,
		Services:        services,
		AppointmentTime: req.AppointmentTime,
		Status:          models.AppointmentPending,
		PatientName:     req.PatientName,
		PatientEmail:    req.PatientEmail,
		PatientPhone:    req.PatientPhone,
		Notes:           req.Notes,
		PaymentID:       req.PaymentID,
	}
	if err := tx.Create(&appointment).Error; err != nil {
		return nil, err
	}
	return &appointment, nil
}

// createFromPaymentTx books the appointment described by a completed
// deposit payment, on the caller's transaction. Safe to call more than
// once for the same payment. The caller holds the doctor lock until
// that transaction commits.
func (s *AppointmentService) createFromPaymentTx(tx *gorm.DB, payment *models.Payment) (*models.Appointment, error) {
	if payment.DoctorID == nil || payment.AppointmentDate == "" || payment.TimeSlot == "" {
		return nil, utils.ValidationError(fmt.Sprintf(
			"payment %d does not carry booking details", payment.ID))
	}
	at, err := time.ParseInLocation("2006-01-02 15:04", payment.AppointmentDate+" "+payment.TimeSlot, time.Local)
	if err != nil {
		return nil, utils.ValidationError(fmt.Sprintf(
			"payment %d has invalid booking time %q %q", payment.ID, payment.AppointmentDate, payment.TimeSlot))
	}

	// Idempotency: a payment finalizes at most one appointment.
	var existing models.Appointment
	err = tx.Preload("Doctor").Where("payment_id = ?", payment.ID).First(&existing).Error
	if err == nil {
		utils.InfoLogger.Printf("Appointment %d already exists for payment %d", existing.ID, payment.ID)
		return &existing, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	var serviceIDs []uint
	if payment.ServiceID != nil {
		serviceIDs = []uint{*payment.ServiceID}
	}

	appointment, err := s.createAppointmentTx(tx, CreateAppointmentRequest{
		PatientID:       payment.UserID,
		DoctorID:        *payment.DoctorID,
		ServiceIDs:      serviceIDs,
		AppointmentTime: at,
		PatientName:     payment.PatientName,
		PatientEmail:    payment.PatientEmail,
		PatientPhone:    payment.PatientPhone,
		Notes:           payment.Notes,
		PaymentID:       &payment.ID,
	})
	if err != nil {
		return nil, err
	}

	// Deposit is already paid, so the fresh booking is confirmed.
	appointment.Status = models.AppointmentConfirmed
	if err := tx.Save(appointment).Error; err != nil {
		return nil, err
	}
	return appointment, nil
}

// UpdateStatus moves an appointment through the transition table.
func (s *AppointmentService) UpdateStatus(id uint, status string) (*models.Appointment, error) {
	var appointment models.Appointment
	if err := s.db.First(&appointment, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.NotFoundError(fmt.Sprintf("appointment %d not found", id))
		}
		return nil, err
	}

	if !models.CanTransitionAppointment(appointment.Status, status) {
		return nil, utils.ConflictError(fmt.Sprintf(
			"cannot move appointment %d from %s to %s", id, appointment.Status, status))
	}
	if appointment.Status == status {
		return &appointment, nil
	}

	appointment.Status = status
	if err := s.db.Save(&appointment).Error; err != nil {
		return nil, err
	}
	utils.InfoLogger.Printf("Appointment %d moved to %s", id, status)
	return &appointment, nil
}

// CancelAppointment cancels a booking and queues a deposit refund. A
// refund that cannot be created does not undo the cancellation; the
// backfill job picks those up later.
func (s *AppointmentService) CancelAppointment(id uint, reason string) (*models.Appointment, error) {
	var appointment models.Appointment
	if err := s.db.Preload("Patient").First(&appointment, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.NotFoundError(fmt.Sprintf("appointment %d not found", id))
		}
		return nil, err
	}

	if appointment.Status == models.AppointmentCanceled ||
		!models.CanTransitionAppointment(appointment.Status, models.AppointmentCanceled) {
		return nil, utils.ConflictError(fmt.Sprintf(
			"cannot cancel appointment %d in status %s", id, appointment.Status))
	}

	appointment.Status = models.AppointmentCanceled
	appointment.CancellationReason = reason
	if err := s.db.Save(&appointment).Error; err != nil {
		return nil, err
	}

	if _, err := s.refunds.CreateForAppointment(&appointment, reason); err != nil {
		utils.ErrorLogger.Printf("Appointment %d cancelled but refund creation failed: %v", id, err)
	}
	utils.InfoLogger.Printf("Cancelled appointment %d: %s", id, reason)
	return &appointment, nil
}

// GetByID loads an appointment with its relations.
func (s *AppointmentService) GetByID(id uint) (*models.Appointment, error) {
	var appointment models.Appointment
	err := s.db.
		Preload("Doctor").Preload("Patient").Preload("Services").
		First(&appointment, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.NotFoundError(fmt.Sprintf("appointment %d not found", id))
		}
		return nil, err
	}
	return &appointment, nil
}

// GetByPatient lists a patient's appointments newest first.
func (s *AppointmentService) GetByPatient(patientID uint) ([]models.Appointment, error) {
	var appointments []models.Appointment
	err := s.db.
		Preload("Doctor").Preload("Services").
		Where("patient_id = ?", patientID).
		Order("appointment_time DESC").
		Find(&appointments).Error
	return appointments, err
}

// GetByStatus lists appointments in a given status, oldest first, so
// reception can work through WAITING_PAYMENT queues.
func (s *AppointmentService) GetByStatus(status string) ([]models.Appointment, error) {
	var appointments []models.Appointment
	err := s.db.
		Preload("Doctor").Preload("Patient").
		Where("status = ?", status).
		Order("appointment_time").
		Find(&appointments).Error
	return appointments, err
}

// GetByDoctorAndDate lists a doctor's appointments on a calendar day.
func (s *AppointmentService) GetByDoctorAndDate(doctorID uint, date time.Time) ([]models.Appointment, error) {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	var appointments []models.Appointment
	err := s.db.
		Preload("Patient").Preload("Services").
		Where("doctor_id = ? AND appointment_time >= ? AND appointment_time < ?", doctorID, dayStart, dayEnd).
		Order("appointment_time").
		Find(&appointments).Error
	return appointments, err
}

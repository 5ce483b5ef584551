package services

import (
	"fmt"
	"time"

	"github.com/eyespire/clinic-backend/models"
	"github.com/eyespire/clinic-backend/utils"
	"gorm.io/gorm"
)

// Clinic-wide slot grid. Slots are hourly, the last one starts at 16:00.
const (
	SlotOpenHour    = 8
	SlotCloseHour   = 16
	SlotCapacity    = 3
	slotTimeLayout  = "15:04"
	availDateLayout = "2006-01-02"
)

// TimeSlot is one entry of the aggregate day view. AvailableCount is
// advisory only; bookings are checked again per doctor at create time.
type TimeSlot struct {
	Time           string `json:"time"`
	Status         string `json:"status"`
	AvailableCount int    `json:"availableCount"`
}

// AvailabilityService answers slot and doctor availability questions and
// manages doctor availability windows.
type AvailabilityService struct {
	db *gorm.DB
}

func NewAvailabilityService(db *gorm.DB) *AvailabilityService {
	return &AvailabilityService{db: db}
}

// GetAvailableSlots returns the clinic-wide hourly view for a date. A
// slot with no working doctor is UNAVAILABLE; otherwise it starts at
// full capacity and every non-canceled appointment at the slot start
// takes one place. The view is advisory; booking runs the per-doctor
// exact check instead.
func (s *AvailabilityService) GetAvailableSlots(date time.Time) ([]TimeSlot, error) {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	dayEnd := dayStart.Add(24 * time.Hour)
	dateStr := dayStart.Format(availDateLayout)

	var windows []models.DoctorAvailability
	err := s.db.
		Where("date = ? AND status = ?", dateStr, models.AvailabilityAvailable).
		Find(&windows).Error
	if err != nil {
		return nil, fmt.Errorf("load availability for %s: %w", dateStr, err)
	}

	var appointments []models.Appointment
	err = s.db.
		Where("appointment_time >= ? AND appointment_time < ?", dayStart, dayEnd).
		Where("status <> ?", models.AppointmentCanceled).
		Find(&appointments).Error
	if err != nil {
		return nil, fmt.Errorf("load appointments for %s: %w", dateStr, err)
	}

	booked := make(map[string]int)
	for _, appt := range appointments {
		booked[appt.AppointmentTime.Format(slotTimeLayout)]++
	}

	slots := make([]TimeSlot, 0, SlotCloseHour-SlotOpenHour+1)
	for hour := SlotOpenHour; hour <= SlotCloseHour; hour++ {
		label := fmt.Sprintf("%02d:00", hour)

		covering := 0
		for _, w := range windows {
			if w.StartTime <= label && label < w.EndTime {
				covering++
			}
		}
		if covering == 0 {
			slots = append(slots, TimeSlot{Time: label, Status: models.AvailabilityUnavailable})
			continue
		}

		remaining := SlotCapacity - booked[label]
		if remaining < 0 {
			remaining = 0
		}
		status := models.AvailabilityAvailable
		if remaining == 0 {
			status = models.AvailabilityBooked
		}
		slots = append(slots, TimeSlot{Time: label, Status: status, AvailableCount: remaining})
	}
	return slots, nil
}

// IsDoctorAvailable reports whether a doctor can take an appointment at
// the given instant: an AVAILABLE window must contain it and no active
// appointment may already occupy it. Missing availability data counts as
// unavailable.
func (s *AvailabilityService) IsDoctorAvailable(doctorID uint, at time.Time) (bool, error) {
	return s.isDoctorAvailableTx(s.db, doctorID, at)
}

// isDoctorAvailableTx is the transaction-aware variant so the booking
// path can re-check inside its own insert transaction.
func (s *AvailabilityService) isDoctorAvailableTx(tx *gorm.DB, doctorID uint, at time.Time) (bool, error) {
	date := at.Format(availDateLayout)
	clock := at.Format(slotTimeLayout)

	var windows []models.DoctorAvailability
	err := tx.
		Where("doctor_id = ? AND date = ? AND status = ?", doctorID, date, models.AvailabilityAvailable).
		Find(&windows).Error
	if err != nil {
		return false, fmt.Errorf("load availability for doctor %d: %w", doctorID, err)
	}

	inWindow := false
	for _, w := range windows {
		if w.StartTime <= clock && clock < w.EndTime {
			inWindow = true
			break
		}
	}
	if !inWindow {
		return false, nil
	}

	var count int64
	err = tx.Model(&models.Appointment{}).
		Where("doctor_id = ? AND appointment_time = ?", doctorID, at).
		Where("status <> ?", models.AppointmentCanceled).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("count appointments for doctor %d: %w", doctorID, err)
	}
	return count == 0, nil
}

// CreateAvailability adds an AVAILABLE window for a doctor, rejecting
// windows that overlap an existing one on the same date.
func (s *AvailabilityService) CreateAvailability(av *models.DoctorAvailability) (*models.DoctorAvailability, error) {
	if av.StartTime >= av.EndTime {
		return nil, utils.ValidationError("startTime must be before endTime")
	}
	if _, err := time.Parse(availDateLayout, av.Date); err != nil {
		return nil, utils.ValidationError("date must be YYYY-MM-DD")
	}

	var doctor models.Doctor
	if err := s.db.First(&doctor, av.DoctorID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.NotFoundError(fmt.Sprintf("doctor %d not found", av.DoctorID))
		}
		return nil, err
	}

	var existing []models.DoctorAvailability
	err := s.db.
		Where("doctor_id = ? AND date = ?", av.DoctorID, av.Date).
		Find(&existing).Error
	if err != nil {
		return nil, err
	}
	for _, w := range existing {
		if av.StartTime < w.EndTime && w.StartTime < av.EndTime {
			return nil, utils.ConflictError(fmt.Sprintf(
				"window %s-%s overlaps existing %s-%s", av.StartTime, av.EndTime, w.StartTime, w.EndTime))
		}
	}

	if av.Status == "" {
		av.Status = models.AvailabilityAvailable
	}
	if err := s.db.Create(av).Error; err != nil {
		return nil, err
	}
	utils.InfoLogger.Printf("Created availability %d for doctor %d on %s %s-%s",
		av.ID, av.DoctorID, av.Date, av.StartTime, av.EndTime)
	return av, nil
}

// UpdateAvailabilityStatus flips a window between AVAILABLE, BOOKED and
// UNAVAILABLE.
func (s *AvailabilityService) UpdateAvailabilityStatus(id uint, status string) (*models.DoctorAvailability, error) {
	switch status {
	case models.AvailabilityAvailable, models.AvailabilityBooked, models.AvailabilityUnavailable:
	default:
		return nil, utils.ValidationError("invalid availability status: " + status)
	}

	var av models.DoctorAvailability
	if err := s.db.First(&av, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.NotFoundError(fmt.Sprintf("availability %d not found", id))
		}
		return nil, err
	}
	av.Status = status
	if err := s.db.Save(&av).Error; err != nil {
		return nil, err
	}
	return &av, nil
}

// GetDoctorAvailabilities lists a doctor's windows, optionally for one date.
func (s *AvailabilityService) GetDoctorAvailabilities(doctorID uint, date string) ([]models.DoctorAvailability, error) {
	q := s.db.Where("doctor_id = ?", doctorID)
	if date != "" {
		q = q.Where("date = ?", date)
	}
	var windows []models.DoctorAvailability
	if err := q.Order("date, start_time").Find(&windows).Error; err != nil {
		return nil, err
	}
	return windows, nil
}

// DeleteAvailability removes a window.
func (s *AvailabilityService) DeleteAvailability(id uint) error {
	res := s.db.Delete(&models.DoctorAvailability{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.NotFoundError(fmt.Sprintf("availability %d not found", id))
	}
	return nil
}

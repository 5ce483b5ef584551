package models

import "time"

// Availability window statuses.
const (
	AvailabilityAvailable   = "AVAILABLE"
	AvailabilityBooked      = "BOOKED"
	AvailabilityUnavailable = "UNAVAILABLE"
)

// DoctorAvailability is a working-hours window for a doctor on one date.
// Date is "YYYY-MM-DD" and the clock fields are zero-padded "HH:MM", so
// both compare lexically.
type DoctorAvailability struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	DoctorID  uint      `gorm:"index;not null" json:"doctor_id"`
	Doctor    Doctor    `gorm:"foreignKey:DoctorID" json:"doctor"`
	Date      string    `gorm:"type:varchar(10);index;not null" json:"date"`
	StartTime string    `gorm:"type:varchar(5);not null" json:"start_time"`
	EndTime   string    `gorm:"type:varchar(5);not null" json:"end_time"`
	Status    string    `gorm:"type:varchar(20);not null;default:'AVAILABLE'" json:"status"`
	Notes     string    `gorm:"type:text" json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

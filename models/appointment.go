package models

import "time"

// Appointment statuses.
const (
	AppointmentPending        = "PENDING"
	AppointmentConfirmed      = "CONFIRMED"
	AppointmentWaitingPayment = "WAITING_PAYMENT"
	AppointmentCompleted      = "COMPLETED"
	AppointmentCanceled       = "CANCELED"
	AppointmentNoShow         = "NO_SHOW"
)

// appointmentTransitions enumerates the permitted status moves. COMPLETED
// and CANCELED are terminal; cancellation is only reachable before the
// diagnosis/payment stage.
var appointmentTransitions = map[string][]string{
	AppointmentPending:        {AppointmentConfirmed, AppointmentWaitingPayment, AppointmentCanceled, AppointmentNoShow},
	AppointmentConfirmed:      {AppointmentWaitingPayment, AppointmentCanceled, AppointmentNoShow},
	AppointmentWaitingPayment: {AppointmentCompleted},
	AppointmentCompleted:      {},
	AppointmentCanceled:       {},
	AppointmentNoShow:         {},
}

// CanTransitionAppointment reports whether an appointment may move from one
// status to another. A no-op transition is always allowed.
func CanTransitionAppointment(from, to string) bool {
	if from == to {
		return true
	}
	for _, next := range appointmentTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Appointment is a booked visit. Rows are never physically deleted;
// cancellation is a status change.
type Appointment struct {
	ID                 uint             `gorm:"primaryKey" json:"id"`
	PatientID          *uint            `gorm:"index" json:"patient_id,omitempty"`
	Patient            *User            `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
	DoctorID           uint             `gorm:"index;not null" json:"doctor_id"`
	Doctor             Doctor           `gorm:"foreignKey:DoctorID" json:"doctor"`
	Services           []MedicalService `gorm:"many2many:appointment_services" json:"services"`
	AppointmentTime    time.Time        `gorm:"index;not null" json:"appointment_time"`
	Status             string           `gorm:"type:varchar(20);not null;default:'PENDING'" json:"status"`
	PatientName        string           `gorm:"type:varchar(255)" json:"patient_name"`
	PatientEmail       string           `gorm:"type:varchar(255)" json:"patient_email"`
	PatientPhone       string           `gorm:"type:varchar(32)" json:"patient_phone"`
	Notes              string           `gorm:"type:text" json:"notes"`
	CancellationReason string           `gorm:"type:text" json:"cancellation_reason,omitempty"`
	// PaymentID references the gateway checkout that funded the deposit.
	// Bookings re-submitted with the same PaymentID return the existing row.
	PaymentID *uint     `gorm:"index" json:"payment_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

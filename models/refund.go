package models

import "time"

// Refund statuses.
const (
	RefundPendingManual = "PENDING_MANUAL_REFUND"
	RefundCompleted     = "COMPLETED"
	RefundRejected      = "REJECTED"
)

// Refund payout methods, recorded at completion time.
const (
	RefundMethodManual       = "MANUAL"
	RefundMethodBankTransfer = "BANK_TRANSFER"
	RefundMethodCash         = "CASH"
	RefundMethodEWallet      = "E_WALLET"
)

// Refund tracks the manual repayment of a deposit after cancellation.
// The unique index on AppointmentID backs the one-refund-per-appointment
// guarantee at the storage level as well.
type Refund struct {
	ID                    uint        `gorm:"primaryKey" json:"id"`
	AppointmentID         uint        `gorm:"uniqueIndex;not null" json:"appointment_id"`
	Appointment           Appointment `gorm:"foreignKey:AppointmentID" json:"appointment"`
	PatientID             *uint       `gorm:"index" json:"patient_id,omitempty"`
	Patient               *User       `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
	RefundAmount          float64     `gorm:"type:decimal(12,2);not null" json:"refund_amount"`
	RefundReason          string      `gorm:"type:text" json:"refund_reason"`
	RefundStatus          string      `gorm:"type:varchar(32);not null;default:'PENDING_MANUAL_REFUND'" json:"refund_status"`
	RefundMethod          string      `gorm:"type:varchar(20)" json:"refund_method,omitempty"`
	RefundCompletedBy     string      `gorm:"type:varchar(255)" json:"refund_completed_by,omitempty"`
	RefundCompletedByRole string      `gorm:"type:varchar(32)" json:"refund_completed_by_role,omitempty"`
	RefundCompletedAt     *time.Time  `json:"refund_completed_at,omitempty"`
	Notes                 string      `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt             time.Time   `json:"created_at"`
	UpdatedAt             time.Time   `json:"updated_at"`
}

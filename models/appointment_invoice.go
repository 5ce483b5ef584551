package models

import "time"

// AppointmentInvoice is the per-appointment financial ledger. The invariant
// TotalAmount == DepositAmount + RemainingAmount holds after every mutation.
type AppointmentInvoice struct {
	ID              uint        `gorm:"primaryKey" json:"id"`
	AppointmentID   uint        `gorm:"uniqueIndex;not null" json:"appointment_id"`
	Appointment     Appointment `gorm:"foreignKey:AppointmentID" json:"appointment"`
	TotalAmount     float64     `gorm:"type:decimal(12,2);not null;default:0.00" json:"total_amount"`
	DepositAmount   float64     `gorm:"type:decimal(12,2);not null;default:0.00" json:"deposit_amount"`
	RemainingAmount float64     `gorm:"type:decimal(12,2);not null;default:0.00" json:"remaining_amount"`
	IsFullyPaid     bool        `gorm:"not null;default:false" json:"is_fully_paid"`
	TransactionID   string      `gorm:"type:varchar(64)" json:"transaction_id,omitempty"`
	PaidAt          *time.Time  `json:"paid_at,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

package models

import "time"

// Payment statuses. A payment leaves PENDING only after the gateway's own
// record has been consulted.
const (
	PaymentPending   = "PENDING"
	PaymentCompleted = "COMPLETED"
	PaymentFailed    = "FAILED"
	PaymentCancelled = "CANCELLED"
)

// Payment types.
const (
	PaymentTypeDeposit = "DEPOSIT"
	PaymentTypeFinal   = "FINAL"
	PaymentTypePayOS   = "PAYOS"
	PaymentTypeCash    = "CASH"
)

// Payment is one gateway transaction. Deposit checkouts are created before
// any Appointment exists, so the row carries the booking payload the
// verification step later turns into an Appointment.
type Payment struct {
	ID                 uint                `gorm:"primaryKey" json:"id"`
	TransactionNo      string              `gorm:"type:varchar(32);uniqueIndex;not null" json:"transaction_no"`
	Amount             float64             `gorm:"type:decimal(12,2);not null" json:"amount"`
	Status             string              `gorm:"type:varchar(20);not null;default:'PENDING'" json:"status"`
	PaymentType        string              `gorm:"type:varchar(20);not null;default:'PAYOS'" json:"payment_type"`
	PayosTransactionID string              `gorm:"type:varchar(64);index" json:"payos_transaction_id,omitempty"`
	PaymentDate        *time.Time          `json:"payment_date,omitempty"`
	ReturnURL          string              `gorm:"type:varchar(512)" json:"return_url,omitempty"`
	OrderInfo          string              `gorm:"type:varchar(255)" json:"order_info,omitempty"`
	InvoiceID          *uint               `gorm:"index" json:"invoice_id,omitempty"`
	Invoice            *AppointmentInvoice `gorm:"foreignKey:InvoiceID" json:"invoice,omitempty"`

	// Pending booking payload, populated for DEPOSIT checkouts only.
	UserID          *uint  `gorm:"index" json:"user_id,omitempty"`
	DoctorID        *uint  `json:"doctor_id,omitempty"`
	ServiceID       *uint  `json:"service_id,omitempty"`
	AppointmentDate string `gorm:"type:varchar(10)" json:"appointment_date,omitempty"`
	TimeSlot        string `gorm:"type:varchar(5)" json:"time_slot,omitempty"`
	PatientName     string `gorm:"type:varchar(255)" json:"patient_name,omitempty"`
	PatientEmail    string `gorm:"type:varchar(255)" json:"patient_email,omitempty"`
	PatientPhone    string `gorm:"type:varchar(32)" json:"patient_phone,omitempty"`
	Notes           string `gorm:"type:text" json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

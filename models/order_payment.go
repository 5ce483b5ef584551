package models

import "time"

// OrderPayment records a gateway payment attempt for a retail order.
type OrderPayment struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	OrderID            uint       `gorm:"index;not null" json:"order_id"`
	Order              Order      `gorm:"foreignKey:OrderID" json:"order"`
	TransactionNo      string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"transaction_no"`
	Amount             float64    `gorm:"type:decimal(12,2);not null" json:"amount"`
	Status             string     `gorm:"type:varchar(20);not null;default:'PENDING'" json:"status"`
	PayosTransactionID string     `gorm:"type:varchar(64)" json:"payos_transaction_id,omitempty"`
	PaymentDate        *time.Time `json:"payment_date,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

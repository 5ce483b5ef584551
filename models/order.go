package models

import "time"

// Order statuses for the retail (product) flow.
const (
	OrderPending   = "PENDING"
	OrderPaid      = "PAID"
	OrderShipped   = "SHIPPED"
	OrderCompleted = "COMPLETED"
	OrderCanceled  = "CANCELED"
)

// Order is a retail product order paid through the same gateway as
// appointment deposits.
type Order struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	UserID          *uint      `gorm:"index" json:"user_id,omitempty"`
	User            *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	TotalAmount     float64    `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	Status          string     `gorm:"type:varchar(20);not null;default:'PENDING'" json:"status"`
	ShippingAddress string     `gorm:"type:text" json:"shipping_address,omitempty"`
	PaidAt          *time.Time `json:"paid_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

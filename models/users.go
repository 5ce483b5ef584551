package models

import "time"

// User roles.
const (
	RolePatient      = "PATIENT"
	RoleDoctor       = "DOCTOR"
	RoleReceptionist = "RECEPTIONIST"
	RoleAdmin        = "ADMIN"
)

type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Email     string    `gorm:"type:varchar(255);unique;not null" json:"email"`
	Password  string    `gorm:"type:varchar(255)" json:"-"`
	Phone     string    `gorm:"type:varchar(32)" json:"phone"`
	Role      string    `gorm:"type:varchar(32);not null;default:'PATIENT'" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

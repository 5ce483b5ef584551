package models

import "time"

type Doctor struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         *uint     `gorm:"index" json:"user_id,omitempty"`
	Name           string    `gorm:"type:varchar(255);not null" json:"name"`
	Specialization string    `gorm:"type:varchar(255)" json:"specialization"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

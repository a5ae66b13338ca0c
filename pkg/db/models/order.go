package models

import (
	"time"

	"github.com/google/uuid"
)

// Order is a buyer's purchase of a single crop. The crop ledger is
// deducted when the order is placed; approval only flips the flag.
type Order struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	UserID     uuid.UUID  `gorm:"column:user_id;type:uuid;not null;index"`
	CropID     uuid.UUID  `gorm:"column:crop_id;type:uuid;not null;index"`
	Amount     int        `gorm:"column:amount;not null"`
	Approved   bool       `gorm:"column:approved;not null;default:false"`
	ApprovedAt *time.Time `gorm:"column:approved_at"`
	ApprovedBy *uuid.UUID `gorm:"column:approved_by;type:uuid"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Request is a farmer's offer to sell surplus crops into the marketplace.
// Price is the total payout quoted at submission time; Approved flips
// exactly once, false to true, by an admin action.
type Request struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	UserID     uuid.UUID       `gorm:"column:user_id;type:uuid;not null;index"`
	Date       time.Time       `gorm:"column:date;not null"`
	Price      decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Approved   bool            `gorm:"column:approved;not null;default:false"`
	ApprovedAt *time.Time      `gorm:"column:approved_at"`
	ApprovedBy *uuid.UUID      `gorm:"column:approved_by;type:uuid"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`

	Items []RequestItem `gorm:"foreignKey:RequestID"`
}

// RequestItem is one crop line inside a request. Immutable after
// creation; the referenced crop always exists by insert time.
type RequestItem struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	RequestID uuid.UUID `gorm:"column:request_id;type:uuid;not null;index"`
	CropID    uuid.UUID `gorm:"column:crop_id;type:uuid;not null"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null"`
	Amount    int       `gorm:"column:amount;not null"`
	Image     *string   `gorm:"column:image"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

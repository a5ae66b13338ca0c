package models

import (
	"time"

	"github.com/google/uuid"
)

// Crop tracks the shared marketplace inventory for one crop kind.
// Amount is the quantity available for sale, in pounds; it is mutated
// only through the inventory engine and never goes negative.
type Crop struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name      string    `gorm:"column:name;type:text;not null;uniqueIndex"`
	Amount    int       `gorm:"column:amount;not null;default:0"`
	Image     *string   `gorm:"column:image"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

package orders

import (
	"github.com/google/uuid"

	"github.com/mvalverde/agrolink-backend/pkg/db/models"
	"github.com/mvalverde/agrolink-backend/pkg/pagination"
)

// PlaceInput captures a buyer's purchase against the shared inventory.
type PlaceInput struct {
	CropID uuid.UUID
	Amount int
}

// OrderWithCrop is the buyer-facing read projection.
type OrderWithCrop struct {
	Order models.Order
	Crop  models.Crop
}

// OrderWithUserAndCrop is the admin review projection.
type OrderWithUserAndCrop struct {
	Order models.Order
	User  models.User
	Crop  models.Crop
}

// BuyerOrderList is a cursor page of a buyer's own orders.
type BuyerOrderList struct {
	Orders     []OrderWithCrop
	NextCursor *pagination.Cursor
}

// AdminOrderList is a cursor page across all buyers.
type AdminOrderList struct {
	Orders     []OrderWithUserAndCrop
	NextCursor *pagination.Cursor
}

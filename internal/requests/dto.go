package requests

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mvalverde/agrolink-backend/pkg/db/models"
	"github.com/mvalverde/agrolink-backend/pkg/pagination"
)

// CreateLineInput is one crop line on a surplus request as submitted by
// the farmer. CropName must match a priced crop.
type CreateLineInput struct {
	CropName string
	Amount   int
	Image    *string
}

// CreateInput captures everything needed to submit a surplus request.
type CreateInput struct {
	Date  time.Time
	Lines []CreateLineInput
}

// ItemWithCrop joins a request item with its resolved crop name.
type ItemWithCrop struct {
	Item models.RequestItem
	Crop models.Crop
}

// RequestWithItems is the read projection for farmer and admin listings.
type RequestWithItems struct {
	Request models.Request
	Items   []ItemWithCrop
}

// RequestList is a cursor page of requests.
type RequestList struct {
	Requests   []RequestWithItems
	NextCursor *pagination.Cursor
}

// Quote is the priced result of a create call.
type Quote struct {
	RequestID uuid.UUID
	Price     decimal.Decimal
}

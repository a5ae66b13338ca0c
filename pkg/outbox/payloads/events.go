package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mvalverde/agrolink-backend/pkg/enums"
)

// OrderPlacedEvent is emitted when a buyer's order is accepted and the
// crop ledger has already been decremented.
type OrderPlacedEvent struct {
	OrderID         uuid.UUID `json:"order_id"`
	UserID          uuid.UUID `json:"user_id"`
	CropID          uuid.UUID `json:"crop_id"`
	CropName        string    `json:"crop_name"`
	Amount          int       `json:"amount"`
	RemainingAmount int       `json:"remaining_amount"`
}

// OrderApprovedEvent is emitted when an admin confirms an order.
type OrderApprovedEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	CropID     uuid.UUID `json:"crop_id"`
	ApprovedBy uuid.UUID `json:"approved_by"`
	ApprovedAt time.Time `json:"approved_at"`
}

// RequestLine is one priced crop line inside a request event.
type RequestLine struct {
	CropID   uuid.UUID `json:"crop_id"`
	CropName string    `json:"crop_name"`
	Amount   int       `json:"amount"`
}

// RequestSubmittedEvent is emitted when a farmer submits a surplus request.
type RequestSubmittedEvent struct {
	RequestID uuid.UUID       `json:"request_id"`
	UserID    uuid.UUID       `json:"user_id"`
	Price     decimal.Decimal `json:"price"`
	Lines     []RequestLine   `json:"lines"`
}

// RequestApprovedEvent is emitted once the request's items have been
// folded into the shared inventory.
type RequestApprovedEvent struct {
	RequestID  uuid.UUID     `json:"request_id"`
	ApprovedBy uuid.UUID     `json:"approved_by"`
	ApprovedAt time.Time     `json:"approved_at"`
	Lines      []RequestLine `json:"lines"`
}

// ChatMessageCreatedEvent carries a persisted chat message toward the
// realtime fan-out consumers.
type ChatMessageCreatedEvent struct {
	MessageID  uuid.UUID      `json:"message_id"`
	ChatRoomID uuid.UUID      `json:"chat_room_id"`
	SenderID   uuid.UUID      `json:"sender_id"`
	SenderName string         `json:"sender_name"`
	SenderRole enums.UserRole `json:"sender_role"`
	Content    string         `json:"content"`
	CreatedAt  time.Time      `json:"created_at"`
}

// UserRegisteredEvent is emitted after a successful signup.
type UserRegisteredEvent struct {
	UserID uuid.UUID      `json:"user_id"`
	Email  string         `json:"email"`
	Role   enums.UserRole `json:"role"`
}

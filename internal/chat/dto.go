package chat

import (
	"github.com/google/uuid"

	"github.com/mvalverde/agrolink-backend/pkg/db/models"
	"github.com/mvalverde/agrolink-backend/pkg/enums"
)

// SendMessageInput carries one message append to a room.
type SendMessageInput struct {
	ChatRoomID uuid.UUID
	Content    string
}

// MessageWithSender joins a message row with its sender's display data.
type MessageWithSender struct {
	Message    models.ChatMessage
	SenderName string
	SenderRole enums.UserRole
}

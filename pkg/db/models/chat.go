package models

import (
	"time"

	"github.com/google/uuid"
)

// ChatRoom is a conversation container. Shared rooms carry a display
// name; a private room is identified by its two-member set instead.
type ChatRoom struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name      string    `gorm:"column:name;type:text;not null;default:'General Chat'"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// ChatRoomUser binds a user to a room.
type ChatRoomUser struct {
	ChatRoomID uuid.UUID `gorm:"column:chat_room_id;type:uuid;primaryKey"`
	UserID     uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey;index"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName pins the join table name used by the pair-resolution query.
func (ChatRoomUser) TableName() string {
	return "chat_room_users"
}

// ChatMessage is one message inside a room. Append-only. SenderID
// carries a foreign key to users so an unknown sender fails at the
// constraint rather than producing an orphan row.
type ChatMessage struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ChatRoomID uuid.UUID `gorm:"column:chat_room_id;type:uuid;not null;index"`
	SenderID   uuid.UUID `gorm:"column:sender_id;type:uuid;not null"`
	Sender     *User     `gorm:"foreignKey:SenderID;constraint:OnDelete:RESTRICT"`
	Content    string    `gorm:"column:content;type:text;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime;index"`
}

package chat

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mvalverde/agrolink-backend/pkg/db/models"
)

// Repository defines persistence operations for rooms and messages.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindPrivateRoom(ctx context.Context, userA, userB uuid.UUID) (*models.ChatRoom, error)
	CreateRoomWithMembers(ctx context.Context, room *models.ChatRoom, memberIDs []uuid.UUID) (*models.ChatRoom, error)
	FindRoomByID(ctx context.Context, id uuid.UUID) (*models.ChatRoom, error)
	IsMember(ctx context.Context, roomID, userID uuid.UUID) (bool, error)
	InsertMessage(ctx context.Context, message *models.ChatMessage) (*models.ChatMessage, error)
	ListMessages(ctx context.Context, roomID uuid.UUID) ([]MessageWithSender, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a chat repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindPrivateRoom resolves the room holding exactly the two given
// members. The grouping over the membership rows matched by either user
// is a valid identity proxy while every private room has exactly two
// members.
func (r *repository) FindPrivateRoom(ctx context.Context, userA, userB uuid.UUID) (*models.ChatRoom, error) {
	var roomID uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.ChatRoomUser{}).
		Select("chat_room_id").
		Where("user_id IN ?", []uuid.UUID{userA, userB}).
		Group("chat_room_id").
		Having("COUNT(DISTINCT user_id) = ?", 2).
		Limit(1).
		Scan(&roomID).Error
	if err != nil {
		return nil, err
	}
	if roomID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}

	var room models.ChatRoom
	if err := r.db.WithContext(ctx).First(&room, "id = ?", roomID).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *repository) CreateRoomWithMembers(ctx context.Context, room *models.ChatRoom, memberIDs []uuid.UUID) (*models.ChatRoom, error) {
	if room.ID == uuid.Nil {
		room.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(room).Error; err != nil {
		return nil, err
	}

	members := make([]models.ChatRoomUser, 0, len(memberIDs))
	for _, userID := range memberIDs {
		members = append(members, models.ChatRoomUser{ChatRoomID: room.ID, UserID: userID})
	}
	if len(members) > 0 {
		if err := r.db.WithContext(ctx).Create(&members).Error; err != nil {
			return nil, err
		}
	}
	return room, nil
}

func (r *repository) FindRoomByID(ctx context.Context, id uuid.UUID) (*models.ChatRoom, error) {
	var room models.ChatRoom
	if err := r.db.WithContext(ctx).First(&room, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *repository) IsMember(ctx context.Context, roomID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ChatRoomUser{}).
		Where("chat_room_id = ? AND user_id = ?", roomID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) InsertMessage(ctx context.Context, message *models.ChatMessage) (*models.ChatMessage, error) {
	if message.ID == uuid.Nil {
		message.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Omit("Sender").Create(message).Error; err != nil {
		return nil, err
	}
	return message, nil
}

// ListMessages returns the full room history in insertion order.
func (r *repository) ListMessages(ctx context.Context, roomID uuid.UUID) ([]MessageWithSender, error) {
	var rows []models.ChatMessage
	err := r.db.WithContext(ctx).
		Preload("Sender").
		Where("chat_room_id = ?", roomID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	messages := make([]MessageWithSender, 0, len(rows))
	for _, row := range rows {
		entry := MessageWithSender{Message: row}
		if row.Sender != nil {
			entry.SenderName = row.Sender.Name
			entry.SenderRole = row.Sender.Role
			entry.Message.Sender = nil
		}
		messages = append(messages, entry)
	}
	return messages, nil
}

package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mvalverde/agrolink-backend/pkg/auth"
	"github.com/mvalverde/agrolink-backend/pkg/db"
	"github.com/mvalverde/agrolink-backend/pkg/db/models"
	"github.com/mvalverde/agrolink-backend/pkg/enums"
	pkgerrors "github.com/mvalverde/agrolink-backend/pkg/errors"
	"github.com/mvalverde/agrolink-backend/pkg/outbox"
	"github.com/mvalverde/agrolink-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type userLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Service defines the private chat surface.
type Service interface {
	GetOrCreatePrivateRoom(ctx context.Context, principal auth.Principal, otherUserID uuid.UUID) (*models.ChatRoom, error)
	SendMessage(ctx context.Context, principal auth.Principal, input SendMessageInput) (*models.ChatMessage, error)
	ListMessages(ctx context.Context, principal auth.Principal, roomID uuid.UUID) ([]MessageWithSender, error)
}

type service struct {
	repo   Repository
	users  userLookup
	tx     txRunner
	outbox outboxPublisher
}

// NewService builds a chat service with the required dependencies.
func NewService(repo Repository, users userLookup, tx txRunner, outboxSvc outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("chat repository required")
	}
	if users == nil {
		return nil, fmt.Errorf("user lookup required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:   repo,
		users:  users,
		tx:     tx,
		outbox: outboxSvc,
	}, nil
}

// GetOrCreatePrivateRoom resolves the stable two-party room for the
// caller and the other user, creating room plus both membership rows in
// one transaction on first contact. Calling it again, in either argument
// order, returns the same room.
func (s *service) GetOrCreatePrivateRoom(ctx context.Context, principal auth.Principal, otherUserID uuid.UUID) (*models.ChatRoom, error) {
	if principal.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if otherUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "other user id required")
	}
	if otherUserID == principal.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot open a private room with yourself")
	}

	room, err := s.repo.FindPrivateRoom(ctx, principal.UserID, otherUserID)
	if err == nil {
		return room, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve private room")
	}

	if _, err := s.users.FindByID(ctx, otherUserID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}

	var created *models.ChatRoom
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		// A concurrent resolver for the same pair may have won the race.
		existing, err := repo.FindPrivateRoom(ctx, principal.UserID, otherUserID)
		if err == nil {
			created = existing
			return nil
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}

		room, err := repo.CreateRoomWithMembers(ctx, &models.ChatRoom{},
			[]uuid.UUID{principal.UserID, otherUserID})
		if err != nil {
			return err
		}
		created = room
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create private room")
	}
	return created, nil
}

func (s *service) SendMessage(ctx context.Context, principal auth.Principal, input SendMessageInput) (*models.ChatMessage, error) {
	if principal.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sender id required")
	}
	if input.ChatRoomID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "chat room id required")
	}
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message content required")
	}

	if _, err := s.repo.FindRoomByID(ctx, input.ChatRoomID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "chat room not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load chat room")
	}
	member, err := s.repo.IsMember(ctx, input.ChatRoomID, principal.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check room membership")
	}
	if !member {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not a member of this room")
	}

	sender, err := s.users.FindByID(ctx, principal.UserID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeForeignKey, "invalid sender")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sender")
	}

	var message *models.ChatMessage
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		inserted, err := repo.InsertMessage(ctx, &models.ChatMessage{
			ChatRoomID: input.ChatRoomID,
			SenderID:   principal.UserID,
			Content:    content,
		})
		if err != nil {
			if db.IsForeignKeyViolation(err) {
				return pkgerrors.New(pkgerrors.CodeForeignKey, "invalid sender")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert message")
		}
		message = inserted

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventChatMessageCreated,
			AggregateType: enums.AggregateChatMessage,
			AggregateID:   inserted.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: principal.UserID, Role: principal.Role.String()},
			Data: payloads.ChatMessageCreatedEvent{
				MessageID:  inserted.ID,
				ChatRoomID: inserted.ChatRoomID,
				SenderID:   principal.UserID,
				SenderName: sender.Name,
				SenderRole: sender.Role,
				Content:    content,
				CreatedAt:  inserted.CreatedAt,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return message, nil
}

func (s *service) ListMessages(ctx context.Context, principal auth.Principal, roomID uuid.UUID) ([]MessageWithSender, error) {
	if principal.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if roomID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "chat room id required")
	}

	if _, err := s.repo.FindRoomByID(ctx, roomID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "chat room not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load chat room")
	}
	member, err := s.repo.IsMember(ctx, roomID, principal.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check room membership")
	}
	if !member {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not a member of this room")
	}

	messages, err := s.repo.ListMessages(ctx, roomID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list messages")
	}
	return messages, nil
}

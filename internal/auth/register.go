package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/mvalverde/agrolink-backend/internal/users"
	"github.com/mvalverde/agrolink-backend/pkg/config"
	"github.com/mvalverde/agrolink-backend/pkg/db/models"
	"github.com/mvalverde/agrolink-backend/pkg/enums"
	pkgerrors "github.com/mvalverde/agrolink-backend/pkg/errors"
	"github.com/mvalverde/agrolink-backend/pkg/outbox"
	"github.com/mvalverde/agrolink-backend/pkg/outbox/payloads"
	"github.com/mvalverde/agrolink-backend/pkg/security"
)

// RegisterService handles account creation.
type RegisterService interface {
	Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error)
	RegisterAdmin(ctx context.Context, req AdminRegisterRequest) (*users.UserDTO, error)
}

// RegisterServiceParams packages the dependencies for the signup flow.
type RegisterServiceParams struct {
	Tx             txRunner
	Outbox         outboxPublisher
	AppConfig      config.AppConfig
	PasswordConfig config.PasswordConfig
}

type registerService struct {
	tx          txRunner
	outbox      outboxPublisher
	appCfg      config.AppConfig
	passwordCfg config.PasswordConfig
}

// NewRegisterService builds a registration service with the provided dependencies.
func NewRegisterService(params RegisterServiceParams) (RegisterService, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &registerService{
		tx:          params.Tx,
		outbox:      params.Outbox,
		appCfg:      params.AppConfig,
		passwordCfg: params.PasswordConfig,
	}, nil
}

func (s *registerService) Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error) {
	role, err := enums.ParseUserRole(req.Role)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "role must be farmer or buyer")
	}
	if role == enums.UserRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin accounts cannot self-register")
	}
	return s.create(ctx, req.Name, req.Email, req.Password, role, req.Image)
}

// RegisterAdmin seeds an administrator account. Refused in production;
// production admins are provisioned out of band.
func (s *registerService) RegisterAdmin(ctx context.Context, req AdminRegisterRequest) (*users.UserDTO, error) {
	if s.appCfg.IsProd() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin registration disabled")
	}
	return s.create(ctx, req.Name, req.Email, req.Password, enums.UserRoleAdmin, nil)
}

func (s *registerService) create(ctx context.Context, name, email, password string, role enums.UserRole, image *string) (*users.UserDTO, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if len(password) < 8 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 8 characters")
	}

	passwordHash, err := security.HashPassword(password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var created *models.User
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := users.NewRepository(tx)

		if _, err := userRepo.FindByEmail(ctx, email); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
		}

		user, err := userRepo.Create(ctx, users.CreateUserDTO{
			Name:         name,
			Email:        email,
			PasswordHash: passwordHash,
			Role:         role,
			Image:        image,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
		}
		created = user

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventUserRegistered,
			AggregateType: enums.AggregateUser,
			AggregateID:   user.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: user.ID, Role: role.String()},
			Data: payloads.UserRegisteredEvent{
				UserID: user.ID,
				Email:  user.Email,
				Role:   role,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return users.FromModel(created), nil
}

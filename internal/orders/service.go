package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mvalverde/agrolink-backend/internal/crops"
	"github.com/mvalverde/agrolink-backend/internal/inventory"
	"github.com/mvalverde/agrolink-backend/pkg/auth"
	"github.com/mvalverde/agrolink-backend/pkg/db/models"
	"github.com/mvalverde/agrolink-backend/pkg/enums"
	pkgerrors "github.com/mvalverde/agrolink-backend/pkg/errors"
	"github.com/mvalverde/agrolink-backend/pkg/outbox"
	"github.com/mvalverde/agrolink-backend/pkg/outbox/payloads"
	"github.com/mvalverde/agrolink-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service defines the buyer order lifecycle.
type Service interface {
	Place(ctx context.Context, principal auth.Principal, input PlaceInput) (*models.Order, error)
	Approve(ctx context.Context, principal auth.Principal, orderID uuid.UUID) error
	ListByBuyer(ctx context.Context, userID uuid.UUID, params pagination.Params) (*BuyerOrderList, error)
	ListAll(ctx context.Context, params pagination.Params) (*AdminOrderList, error)
}

type service struct {
	repo   Repository
	crops  crops.Repository
	ledger *inventory.Engine
	tx     txRunner
	outbox outboxPublisher
}

// NewService builds an orders service with the required dependencies.
func NewService(repo Repository, cropRepo crops.Repository, ledger *inventory.Engine, tx txRunner, outboxSvc outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if cropRepo == nil {
		return nil, fmt.Errorf("crops repository required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("inventory engine required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:   repo,
		crops:  cropRepo,
		ledger: ledger,
		tx:     tx,
		outbox: outboxSvc,
	}, nil
}

// Place deducts the requested amount from the shared ledger and records
// the order in the same transaction. The deduction happens exactly once,
// here; admin approval later only flips the review flag.
func (s *service) Place(ctx context.Context, principal auth.Principal, input PlaceInput) (*models.Order, error) {
	if principal.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.CropID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "crop id required")
	}
	if input.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidAmount, "amount must be greater than zero")
	}

	var placed *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.ledger.Decrease(ctx, tx, input.CropID, input.Amount); err != nil {
			return err
		}

		repo := s.repo.WithTx(tx)
		order, err := repo.Create(ctx, &models.Order{
			UserID: principal.UserID,
			CropID: input.CropID,
			Amount: input.Amount,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		placed = order

		crop, err := s.crops.WithTx(tx).FindByID(ctx, input.CropID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload crop")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPlaced,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: principal.UserID, Role: principal.Role.String()},
			Data: payloads.OrderPlacedEvent{
				OrderID:         order.ID,
				UserID:          principal.UserID,
				CropID:          crop.ID,
				CropName:        crop.Name,
				Amount:          input.Amount,
				RemainingAmount: crop.Amount,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return placed, nil
}

// Approve flips the review flag exactly once. The ledger was already
// charged at placement, so approval never touches crop amounts.
func (s *service) Approve(ctx context.Context, principal auth.Principal, orderID uuid.UUID) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if principal.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Approved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order already approved")
		}

		now := time.Now()
		flipped, err := repo.MarkApproved(ctx, order.ID, principal.UserID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "approve order")
		}
		if !flipped {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order already approved")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderApproved,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: principal.UserID, Role: principal.Role.String()},
			Data: payloads.OrderApprovedEvent{
				OrderID:    order.ID,
				CropID:     order.CropID,
				ApprovedBy: principal.UserID,
				ApprovedAt: now,
			},
		})
	})
}

func (s *service) ListByBuyer(ctx context.Context, userID uuid.UUID, params pagination.Params) (*BuyerOrderList, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	list, err := s.repo.ListByBuyer(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}

func (s *service) ListAll(ctx context.Context, params pagination.Params) (*AdminOrderList, error) {
	list, err := s.repo.ListAll(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list all orders")
	}
	return list, nil
}

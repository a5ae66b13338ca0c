package requests

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
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
	"github.com/mvalverde/agrolink-backend/pkg/pricing"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service defines the surplus request lifecycle.
type Service interface {
	Create(ctx context.Context, principal auth.Principal, input CreateInput) (*Quote, error)
	Approve(ctx context.Context, principal auth.Principal, requestID uuid.UUID) error
	ListByFarmer(ctx context.Context, userID uuid.UUID, params pagination.Params) (*RequestList, error)
	ListPending(ctx context.Context, params pagination.Params) (*RequestList, error)
}

type service struct {
	repo   Repository
	crops  crops.Repository
	ledger *inventory.Engine
	tx     txRunner
	outbox outboxPublisher
}

// NewService builds a requests service with the required dependencies.
func NewService(repo Repository, cropRepo crops.Repository, ledger *inventory.Engine, tx txRunner, outboxSvc outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("requests repository required")
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

// pricedLine couples an input line with its resolved price entry.
type pricedLine struct {
	input CreateLineInput
	price pricing.CropPrice
}

func (s *service) Create(ctx context.Context, principal auth.Principal, input CreateInput) (*Quote, error) {
	if principal.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one crop line required")
	}

	total := decimal.Zero
	priced := make([]pricedLine, 0, len(input.Lines))
	for _, line := range input.Lines {
		if line.Amount <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidAmount, "amount must be greater than zero")
		}
		price, ok := pricing.Lookup(line.CropName)
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidCrop,
				fmt.Sprintf("no price listed for crop %q", line.CropName))
		}
		total = total.Add(pricing.LineTotal(price, line.Amount))
		priced = append(priced, pricedLine{input: line, price: price})
	}

	date := input.Date
	if date.IsZero() {
		date = time.Now()
	}

	var quote *Quote
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cropRepo := s.crops.WithTx(tx)

		request, err := repo.Create(ctx, &models.Request{
			UserID: principal.UserID,
			Date:   date,
			Price:  total,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create request")
		}

		items := make([]models.RequestItem, 0, len(priced))
		lines := make([]payloads.RequestLine, 0, len(priced))
		for _, line := range priced {
			crop, err := cropRepo.FindOrCreateByName(ctx, line.price.Name, line.input.Image)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve crop")
			}
			items = append(items, models.RequestItem{
				RequestID: request.ID,
				CropID:    crop.ID,
				UserID:    principal.UserID,
				Amount:    line.input.Amount,
				Image:     line.input.Image,
			})
			lines = append(lines, payloads.RequestLine{
				CropID:   crop.ID,
				CropName: crop.Name,
				Amount:   line.input.Amount,
			})
		}
		if err := repo.CreateItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create request items")
		}

		quote = &Quote{RequestID: request.ID, Price: total}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventRequestSubmitted,
			AggregateType: enums.AggregateRequest,
			AggregateID:   request.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: principal.UserID, Role: principal.Role.String()},
			Data: payloads.RequestSubmittedEvent{
				RequestID: request.ID,
				UserID:    principal.UserID,
				Price:     total,
				Lines:     lines,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return quote, nil
}

func (s *service) Approve(ctx context.Context, principal auth.Principal, requestID uuid.UUID) error {
	if requestID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "request id required")
	}
	if principal.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		request, err := repo.FindWithItems(ctx, requestID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load request")
		}
		if request.Approved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "request already approved")
		}

		now := time.Now()
		flipped, err := repo.MarkApproved(ctx, request.ID, principal.UserID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "approve request")
		}
		if !flipped {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "request already approved")
		}

		cropRepo := s.crops.WithTx(tx)
		lines := make([]payloads.RequestLine, 0, len(request.Items))
		for _, item := range request.Items {
			if err := s.ledger.Increase(ctx, tx, item.CropID, item.Amount); err != nil {
				return err
			}
			name := ""
			if crop, err := cropRepo.FindByID(ctx, item.CropID); err == nil {
				name = crop.Name
			}
			lines = append(lines, payloads.RequestLine{
				CropID:   item.CropID,
				CropName: name,
				Amount:   item.Amount,
			})
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventRequestApproved,
			AggregateType: enums.AggregateRequest,
			AggregateID:   request.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: principal.UserID, Role: principal.Role.String()},
			Data: payloads.RequestApprovedEvent{
				RequestID:  request.ID,
				ApprovedBy: principal.UserID,
				ApprovedAt: now,
				Lines:      lines,
			},
		})
	})
}

func (s *service) ListByFarmer(ctx context.Context, userID uuid.UUID, params pagination.Params) (*RequestList, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	list, err := s.repo.ListByFarmer(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list requests")
	}
	return list, nil
}

func (s *service) ListPending(ctx context.Context, params pagination.Params) (*RequestList, error) {
	list, err := s.repo.ListPending(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pending requests")
	}
	return list, nil
}

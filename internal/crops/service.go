package crops

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mvalverde/agrolink-backend/pkg/db/models"
	pkgerrors "github.com/mvalverde/agrolink-backend/pkg/errors"
)

// Service exposes the shared inventory browse surface.
type Service interface {
	List(ctx context.Context) ([]models.Crop, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Crop, error)
}

type service struct {
	repo Repository
}

// NewService builds a crops service with the required dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("crops repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context) ([]models.Crop, error) {
	crops, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list crops")
	}
	return crops, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Crop, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "crop id required")
	}
	crop, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "crop not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load crop")
	}
	return crop, nil
}

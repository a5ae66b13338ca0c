package crops

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mvalverde/agrolink-backend/pkg/db"
	"github.com/mvalverde/agrolink-backend/pkg/db/models"
)

// Repository defines persistence operations for the shared crop ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	List(ctx context.Context) ([]models.Crop, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Crop, error)
	FindByName(ctx context.Context, name string) (*models.Crop, error)
	FindOrCreateByName(ctx context.Context, name string, image *string) (*models.Crop, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a crops repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) List(ctx context.Context) ([]models.Crop, error) {
	var crops []models.Crop
	err := r.db.WithContext(ctx).
		Order("name ASC").
		Find(&crops).Error
	if err != nil {
		return nil, err
	}
	return crops, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Crop, error) {
	var crop models.Crop
	if err := r.db.WithContext(ctx).First(&crop, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &crop, nil
}

func (r *repository) FindByName(ctx context.Context, name string) (*models.Crop, error) {
	var crop models.Crop
	if err := r.db.WithContext(ctx).First(&crop, "name = ?", name).Error; err != nil {
		return nil, err
	}
	return &crop, nil
}

// FindOrCreateByName resolves the crop row for a priced name, creating it
// with a zero balance when it does not exist yet. Creation never seeds
// inventory; only approved requests add stock.
func (r *repository) FindOrCreateByName(ctx context.Context, name string, image *string) (*models.Crop, error) {
	crop, err := r.FindByName(ctx, name)
	if err == nil {
		return crop, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	created := &models.Crop{ID: uuid.New(), Name: name, Amount: 0, Image: image}
	if err := r.db.WithContext(ctx).Create(created).Error; err != nil {
		if db.IsUniqueViolation(err, "ux_crops_name") {
			return r.FindByName(ctx, name)
		}
		return nil, err
	}
	return created, nil
}

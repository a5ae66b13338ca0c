package requests

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mvalverde/agrolink-backend/pkg/db/models"
	"github.com/mvalverde/agrolink-backend/pkg/pagination"
)

// Repository defines persistence operations for surplus requests.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, request *models.Request) (*models.Request, error)
	CreateItems(ctx context.Context, items []models.RequestItem) error
	FindWithItems(ctx context.Context, id uuid.UUID) (*models.Request, error)
	MarkApproved(ctx context.Context, id uuid.UUID, approvedBy uuid.UUID, approvedAt time.Time) (bool, error)
	ListByFarmer(ctx context.Context, userID uuid.UUID, params pagination.Params) (*RequestList, error)
	ListPending(ctx context.Context, params pagination.Params) (*RequestList, error)
	CountPendingBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a requests repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, request *models.Request) (*models.Request, error) {
	if request.ID == uuid.Nil {
		request.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Omit("Items").Create(request).Error; err != nil {
		return nil, err
	}
	return request, nil
}

func (r *repository) CreateItems(ctx context.Context, items []models.RequestItem) error {
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) FindWithItems(ctx context.Context, id uuid.UUID) (*models.Request, error) {
	var request models.Request
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// MarkApproved flips the approval flag with a guarded update so only one
// admin action wins. Returns false when the flag was already set or the
// row is missing.
func (r *repository) MarkApproved(ctx context.Context, id uuid.UUID, approvedBy uuid.UUID, approvedAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Request{}).
		Where("id = ? AND approved = ?", id, false).
		Updates(map[string]any{
			"approved":    true,
			"approved_at": approvedAt,
			"approved_by": approvedBy,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) ListByFarmer(ctx context.Context, userID uuid.UUID, params pagination.Params) (*RequestList, error) {
	query := r.db.WithContext(ctx).Model(&models.Request{}).Where("user_id = ?", userID)
	return r.list(ctx, query, params)
}

func (r *repository) ListPending(ctx context.Context, params pagination.Params) (*RequestList, error) {
	query := r.db.WithContext(ctx).Model(&models.Request{}).Where("approved = ?", false)
	return r.list(ctx, query, params)
}

func (r *repository) list(ctx context.Context, query *gorm.DB, params pagination.Params) (*RequestList, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Request
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}

	var next *pagination.Cursor
	if len(rows) > normalized {
		overflow := rows[normalized]
		rows = rows[:normalized]
		next = &pagination.Cursor{CreatedAt: overflow.CreatedAt, ID: overflow.ID}
	}

	requests, err := r.hydrateItems(ctx, rows)
	if err != nil {
		return nil, err
	}
	return &RequestList{Requests: requests, NextCursor: next}, nil
}

func (r *repository) hydrateItems(ctx context.Context, rows []models.Request) ([]RequestWithItems, error) {
	if len(rows) == 0 {
		return []RequestWithItems{}, nil
	}

	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}

	var items []models.RequestItem
	err := r.db.WithContext(ctx).
		Where("request_id IN ?", ids).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}

	cropIDs := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		cropIDs = append(cropIDs, item.CropID)
	}
	cropsByID := map[uuid.UUID]models.Crop{}
	if len(cropIDs) > 0 {
		var crops []models.Crop
		if err := r.db.WithContext(ctx).Where("id IN ?", cropIDs).Find(&crops).Error; err != nil {
			return nil, err
		}
		for _, crop := range crops {
			cropsByID[crop.ID] = crop
		}
	}

	itemsByRequest := map[uuid.UUID][]ItemWithCrop{}
	for _, item := range items {
		itemsByRequest[item.RequestID] = append(itemsByRequest[item.RequestID], ItemWithCrop{
			Item: item,
			Crop: cropsByID[item.CropID],
		})
	}

	requests := make([]RequestWithItems, 0, len(rows))
	for _, row := range rows {
		requests = append(requests, RequestWithItems{
			Request: row,
			Items:   itemsByRequest[row.ID],
		})
	}
	return requests, nil
}

func (r *repository) CountPendingBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Request{}).
		Where("approved = ? AND created_at < ?", false, cutoff).
		Count(&count).Error
	return count, err
}

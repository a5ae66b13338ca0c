package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mvalverde/agrolink-backend/pkg/db/models"
	"github.com/mvalverde/agrolink-backend/pkg/pagination"
)

// Repository defines persistence operations for buyer orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	MarkApproved(ctx context.Context, id uuid.UUID, approvedBy uuid.UUID, approvedAt time.Time) (bool, error)
	ListByBuyer(ctx context.Context, userID uuid.UUID, params pagination.Params) (*BuyerOrderList, error)
	ListAll(ctx context.Context, params pagination.Params) (*AdminOrderList, error)
	CountPendingBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// MarkApproved flips the approval flag with a guarded update so only one
// admin action wins. Returns false when the flag was already set or the
// row is missing.
func (r *repository) MarkApproved(ctx context.Context, id uuid.UUID, approvedBy uuid.UUID, approvedAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
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

func (r *repository) ListByBuyer(ctx context.Context, userID uuid.UUID, params pagination.Params) (*BuyerOrderList, error) {
	rows, next, err := r.page(ctx, r.db.WithContext(ctx).Model(&models.Order{}).Where("user_id = ?", userID), params)
	if err != nil {
		return nil, err
	}

	cropsByID, err := r.cropsFor(ctx, rows)
	if err != nil {
		return nil, err
	}

	orders := make([]OrderWithCrop, 0, len(rows))
	for _, row := range rows {
		orders = append(orders, OrderWithCrop{Order: row, Crop: cropsByID[row.CropID]})
	}
	return &BuyerOrderList{Orders: orders, NextCursor: next}, nil
}

func (r *repository) ListAll(ctx context.Context, params pagination.Params) (*AdminOrderList, error) {
	rows, next, err := r.page(ctx, r.db.WithContext(ctx).Model(&models.Order{}), params)
	if err != nil {
		return nil, err
	}

	cropsByID, err := r.cropsFor(ctx, rows)
	if err != nil {
		return nil, err
	}

	userIDs := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		userIDs = append(userIDs, row.UserID)
	}
	usersByID := map[uuid.UUID]models.User{}
	if len(userIDs) > 0 {
		var users []models.User
		if err := r.db.WithContext(ctx).Where("id IN ?", userIDs).Find(&users).Error; err != nil {
			return nil, err
		}
		for _, user := range users {
			usersByID[user.ID] = user
		}
	}

	orders := make([]OrderWithUserAndCrop, 0, len(rows))
	for _, row := range rows {
		orders = append(orders, OrderWithUserAndCrop{
			Order: row,
			User:  usersByID[row.UserID],
			Crop:  cropsByID[row.CropID],
		})
	}
	return &AdminOrderList{Orders: orders, NextCursor: next}, nil
}

func (r *repository) page(ctx context.Context, query *gorm.DB, params pagination.Params) ([]models.Order, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, nil, err
	}
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Order
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	if len(rows) > normalized {
		overflow := rows[normalized]
		rows = rows[:normalized]
		return rows, &pagination.Cursor{CreatedAt: overflow.CreatedAt, ID: overflow.ID}, nil
	}
	return rows, nil, nil
}

func (r *repository) cropsFor(ctx context.Context, rows []models.Order) (map[uuid.UUID]models.Crop, error) {
	cropsByID := map[uuid.UUID]models.Crop{}
	if len(rows) == 0 {
		return cropsByID, nil
	}

	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.CropID)
	}
	var crops []models.Crop
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&crops).Error; err != nil {
		return nil, err
	}
	for _, crop := range crops {
		cropsByID[crop.ID] = crop
	}
	return cropsByID, nil
}

func (r *repository) CountPendingBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("approved = ? AND created_at < ?", false, cutoff).
		Count(&count).Error
	return count, err
}

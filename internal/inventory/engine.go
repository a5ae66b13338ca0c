package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mvalverde/agrolink-backend/pkg/db/models"
	pkgerrors "github.com/mvalverde/agrolink-backend/pkg/errors"
	"github.com/mvalverde/agrolink-backend/pkg/metrics"
)

// Engine applies crop ledger mutations. Both operations rely on the
// row-level locking of the backing store; callers must run them inside
// a transaction so the guarded update and any follow-up reads observe
// the same row version.
type Engine struct {
	ledger *metrics.LedgerMetrics
}

// NewEngine builds a ledger engine. Metrics may be nil.
func NewEngine(ledger *metrics.LedgerMetrics) *Engine {
	return &Engine{ledger: ledger}
}

// Increase adds qty to the crop's available amount.
func (e *Engine) Increase(ctx context.Context, tx *gorm.DB, cropID uuid.UUID, qty int) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for ledger mutation")
	}
	if qty <= 0 {
		e.count("increase", "invalid")
		return pkgerrors.New(pkgerrors.CodeInvalidAmount, "amount must be greater than zero")
	}

	res := tx.WithContext(ctx).Exec(`
		UPDATE crops
		SET amount = amount + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, qty, cropID)
	if res.Error != nil {
		e.count("increase", "error")
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "increase crop amount")
	}
	if res.RowsAffected == 0 {
		e.count("increase", "not_found")
		return pkgerrors.New(pkgerrors.CodeNotFound, "crop not found")
	}

	e.count("increase", "ok")
	return nil
}

// Decrease removes qty from the crop's available amount. The guarded
// update makes exactly one of two concurrent callers win when their
// combined quantity exceeds availability.
func (e *Engine) Decrease(ctx context.Context, tx *gorm.DB, cropID uuid.UUID, qty int) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for ledger mutation")
	}
	if qty <= 0 {
		e.count("decrease", "invalid")
		return pkgerrors.New(pkgerrors.CodeInvalidAmount, "amount must be greater than zero")
	}

	res := tx.WithContext(ctx).Exec(`
		UPDATE crops
		SET amount = amount - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND amount >= ?
	`, qty, cropID, qty)
	if res.Error != nil {
		e.count("decrease", "error")
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "decrease crop amount")
	}
	if res.RowsAffected > 0 {
		e.count("decrease", "ok")
		return nil
	}

	// Zero rows means either a missing crop or not enough stock.
	// Re-read inside the same transaction to tell the two apart.
	var crop models.Crop
	err := tx.WithContext(ctx).Where("id = ?", cropID).First(&crop).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			e.count("decrease", "not_found")
			return pkgerrors.New(pkgerrors.CodeNotFound, "crop not found")
		}
		e.count("decrease", "error")
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load crop after failed decrease")
	}

	e.count("decrease", "insufficient")
	return pkgerrors.InsufficientInventory(crop.Amount)
}

func (e *Engine) count(op, outcome string) {
	if e == nil {
		return
	}
	e.ledger.IncMutation(op, outcome)
}

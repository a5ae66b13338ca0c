package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/mvalverde/agrolink-backend/pkg/logger"
	"gorm.io/gorm"
)

const dlqRetentionDays = 90

type DLQRetentionJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository dlqRetentionRepo
	Retention  int
}

type dlqRetentionRepo interface {
	DeleteFailedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

func NewDLQRetentionJob(params DLQRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("dlq repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = dlqRetentionDays
	}
	return &dlqRetentionJob{
		logg:      params.Logger,
		db:        params.DB,
		repo:      params.Repository,
		retention: retention,
		now:       time.Now,
	}, nil
}

type dlqRetentionJob struct {
	logg      *logger.Logger
	db        txRunner
	repo      dlqRetentionRepo
	retention int
	now       func() time.Time
}

func (j *dlqRetentionJob) Name() string { return "outbox-dlq-retention" }

func (j *dlqRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-time.Duration(j.retention) * 24 * time.Hour)
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := j.repo.DeleteFailedBefore(ctx, tx, cutoff)
		if err != nil {
			return err
		}
		deleted = rows
		return nil
	})
	if err != nil {
		return fmt.Errorf("dlq retention: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.retention,
		"rows_deleted":   deleted,
	})
	j.logg.Info(logCtx, "outbox dlq retention cleanup complete")
	return nil
}

package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mvalverde/agrolink-backend/pkg/logger"
	"gorm.io/gorm"
)

const (
	outboxRetentionDays = 30
	outboxMinAttempts   = 5
)

type OutboxRetentionJobParams struct {
	Logger      *logger.Logger
	DB          txRunner
	Repository  outboxRetentionRepo
	Retention   int
	MinAttempts int
}

type outboxRetentionRepo interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error)
}

// NewOutboxRetentionJob builds the job that prunes published outbox rows
// once they are past the retention window and fully attempted.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger required")
	case params.DB == nil:
		return nil, errors.New("db runner required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository required")
	}
	job := &outboxRetentionJob{
		logg:        params.Logger,
		db:          params.DB,
		repo:        params.Repository,
		retention:   params.Retention,
		minAttempts: params.MinAttempts,
		now:         time.Now,
	}
	if job.retention <= 0 {
		job.retention = outboxRetentionDays
	}
	if job.minAttempts <= 0 {
		job.minAttempts = outboxMinAttempts
	}
	return job, nil
}

type outboxRetentionJob struct {
	logg        *logger.Logger
	db          txRunner
	repo        outboxRetentionRepo
	retention   int
	minAttempts int
	now         func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-time.Duration(j.retention) * 24 * time.Hour)

	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		var txErr error
		deleted, txErr = j.repo.DeletePublishedBefore(ctx, tx, cutoff, j.minAttempts)
		return txErr
	})
	if err != nil {
		return fmt.Errorf("outbox retention: %w", err)
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.retention,
		"min_attempts":   j.minAttempts,
		"rows_deleted":   deleted,
	})
	j.logg.Info(logCtx, "pruned published outbox rows")
	return nil
}

package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/mvalverde/agrolink-backend/pkg/logger"
	"go.uber.org/multierr"
)

const staleApprovalDays = 3

// StaleApprovalsJobParams configure the pending-approval watchdog.
type StaleApprovalsJobParams struct {
	Logger   *logger.Logger
	Requests pendingCounter
	Orders   pendingCounter
	MaxAge   time.Duration
}

type pendingCounter interface {
	CountPendingBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewStaleApprovalsJob builds the job that surfaces requests and orders
// waiting on an admin longer than the configured age.
func NewStaleApprovalsJob(params StaleApprovalsJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Requests == nil {
		return nil, fmt.Errorf("requests repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	maxAge := params.MaxAge
	if maxAge <= 0 {
		maxAge = staleApprovalDays * 24 * time.Hour
	}
	return &staleApprovalsJob{
		logg:     params.Logger,
		requests: params.Requests,
		orders:   params.Orders,
		maxAge:   maxAge,
		now:      time.Now,
	}, nil
}

type staleApprovalsJob struct {
	logg     *logger.Logger
	requests pendingCounter
	orders   pendingCounter
	maxAge   time.Duration
	now      func() time.Time
}

func (j *staleApprovalsJob) Name() string { return "stale-approvals" }

func (j *staleApprovalsJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.maxAge)

	var errs []error
	staleRequests, err := j.requests.CountPendingBefore(ctx, cutoff)
	if err != nil {
		errs = append(errs, fmt.Errorf("count stale requests: %w", err))
	}
	staleOrders, err := j.orders.CountPendingBefore(ctx, cutoff)
	if err != nil {
		errs = append(errs, fmt.Errorf("count stale orders: %w", err))
	}
	if combined := multierr.Combine(errs...); combined != nil {
		return combined
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"stale_requests": staleRequests,
		"stale_orders":   staleOrders,
	})
	if staleRequests > 0 || staleOrders > 0 {
		j.logg.Warn(logCtx, "approvals pending past the age threshold")
		return nil
	}
	j.logg.Info(logCtx, "no stale approvals found")
	return nil
}

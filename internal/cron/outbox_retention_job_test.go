package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mvalverde/agrolink-backend/pkg/logger"
	"gorm.io/gorm"
)

type retentionRepoSpy struct {
	cutoff      time.Time
	minAttempts int
	calls       int
	err         error
}

func (r *retentionRepoSpy) DeletePublishedBefore(_ context.Context, _ *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error) {
	r.calls++
	r.cutoff = cutoff
	r.minAttempts = minAttemptCount
	if r.err != nil {
		return 0, r.err
	}
	return 7, nil
}

type passthroughTxRunner struct{}

func (passthroughTxRunner) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func buildRetentionJob(t *testing.T, repo *retentionRepoSpy) *outboxRetentionJob {
	t.Helper()
	built, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "cron-test"}),
		DB:         passthroughTxRunner{},
		Repository: repo,
	})
	if err != nil {
		t.Fatalf("NewOutboxRetentionJob: %v", err)
	}
	job, ok := built.(*outboxRetentionJob)
	if !ok {
		t.Fatalf("unexpected job type %T", built)
	}
	return job
}

func TestOutboxRetentionUsesDefaultWindowAndAttempts(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	repo := &retentionRepoSpy{}
	job := buildRetentionJob(t, repo)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if repo.calls != 1 {
		t.Fatalf("repo called %d times, want 1", repo.calls)
	}
	wantCutoff := now.Add(-outboxRetentionDays * 24 * time.Hour)
	if !repo.cutoff.Equal(wantCutoff) {
		t.Fatalf("cutoff %s, want %s", repo.cutoff, wantCutoff)
	}
	if repo.minAttempts != outboxMinAttempts {
		t.Fatalf("min attempts %d, want %d", repo.minAttempts, outboxMinAttempts)
	}
}

func TestOutboxRetentionSurfacesRepositoryError(t *testing.T) {
	repo := &retentionRepoSpy{err: errors.New("boom")}
	job := buildRetentionJob(t, repo)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected repository error to surface")
	}
}

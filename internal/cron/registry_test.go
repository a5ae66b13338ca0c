package cron

import (
	"context"
	"testing"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryPreservesOrderAndDropsNil(t *testing.T) {
	first := &stubJob{name: "outbox-retention"}
	second := &stubJob{name: "dlq-retention"}
	registry := NewRegistry(first, nil, second)

	jobs := registry.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0] != first || jobs[1] != second {
		t.Fatal("jobs returned out of registration order")
	}
}

func TestRegistryJobsReturnsCopy(t *testing.T) {
	registry := NewRegistry(&stubJob{name: "stale-approvals"})

	jobs := registry.Jobs()
	jobs[0] = nil
	if registry.Jobs()[0] == nil {
		t.Fatal("mutating the returned slice changed the registry")
	}
}

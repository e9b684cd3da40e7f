package cron

import (
	"context"
	"testing"
	"time"
)

type fakePruner struct {
	cutoff  time.Time
	deleted int64
}

func (f *fakePruner) DeletePublishedBefore(cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return f.deleted, nil
}

func TestOutboxRetentionUsesConfiguredWindow(t *testing.T) {
	pruner := &fakePruner{deleted: 12}
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:    testLogger(),
		Outbox:    pruner,
		Retention: 7,
	})
	if err != nil {
		t.Fatalf("NewOutboxRetentionJob: %v", err)
	}

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	job.(*outboxRetentionJob).now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := now.Add(-7 * 24 * time.Hour)
	if !pruner.cutoff.Equal(want) {
		t.Fatalf("cutoff = %v, want %v", pruner.cutoff, want)
	}
}

func TestOutboxRetentionDefaultsWindow(t *testing.T) {
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger: testLogger(),
		Outbox: &fakePruner{},
	})
	if err != nil {
		t.Fatalf("NewOutboxRetentionJob: %v", err)
	}
	if job.(*outboxRetentionJob).retention != outboxRetentionDays {
		t.Fatalf("retention = %d", job.(*outboxRetentionJob).retention)
	}
}

package tracedb

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestRecordStepAndSummary(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "trace.db")
	r, err := New(dbPath, "run-1")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = r.Close() }()

	ctx := context.Background()
	if err := r.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	r.RecordStep("item-a", "chain", "ok", 5*time.Millisecond)
	r.RecordStep("item-b", "slice", "error", 2*time.Millisecond)

	steps, err := r.Summary(ctx, "run-1")
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if len(steps) != 2 {
		t.Fatalf("len(steps) = %d, want 2", len(steps))
	}
	if steps[0].ItemSortKey != "item-a" || steps[0].Outcome != "ok" {
		t.Fatalf("steps[0] = %+v, want item-a/ok", steps[0])
	}
	if steps[1].ItemSortKey != "item-b" || steps[1].Outcome != "error" {
		t.Fatalf("steps[1] = %+v, want item-b/error", steps[1])
	}
}

func TestSummaryScopesByRunID(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "trace.db")
	r, err := New(dbPath, "run-a")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = r.Close() }()

	ctx := context.Background()
	if err := r.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	r.RecordStep("item-a", "chain", "ok", time.Millisecond)

	other, err := New(dbPath, "run-b")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = other.Close() }()
	other.RecordStep("item-z", "chain", "ok", time.Millisecond)

	steps, err := r.Summary(ctx, "run-b")
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if len(steps) != 1 || steps[0].ItemSortKey != "item-z" {
		t.Fatalf("Summary(run-b) = %+v, want one step for item-z", steps)
	}
}

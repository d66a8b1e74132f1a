package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/dbower44022/CRMExtender-sub006/internal/domain"
)

func TestSyncLogLifecycle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	entry := &domain.SyncLogEntry{
		AccountID:    "acc-1",
		Type:         domain.SyncIncremental,
		CursorBefore: "cursor-1",
		StartedAt:    time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC),
	}
	if err := db.BeginSyncLog(ctx, entry); err != nil {
		t.Fatalf("BeginSyncLog() error: %v", err)
	}
	if entry.ID == "" {
		t.Fatal("BeginSyncLog() did not assign an ID")
	}

	running, err := db.ListSyncLog(ctx, "acc-1", 10)
	if err != nil {
		t.Fatalf("ListSyncLog() error: %v", err)
	}
	if len(running) != 1 || running[0].Status != domain.SyncRunning {
		t.Fatalf("entries = %v, want one running entry", running)
	}

	entry.Status = domain.SyncSuccess
	entry.Fetched = 10
	entry.Stored = 9
	entry.New = 7
	entry.Updated = 2
	entry.CursorAfter = "cursor-2"
	entry.FinishedAt = entry.StartedAt.Add(30 * time.Second)
	if err := db.FinishSyncLog(ctx, entry); err != nil {
		t.Fatalf("FinishSyncLog() error: %v", err)
	}

	entries, err := db.ListSyncLog(ctx, "acc-1", 10)
	if err != nil {
		t.Fatalf("ListSyncLog() error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	got := entries[0]
	if got.Status != domain.SyncSuccess {
		t.Errorf("Status = %q, want success", got.Status)
	}
	if got.Fetched != 10 || got.Stored != 9 || got.New != 7 || got.Updated != 2 {
		t.Errorf("counts = %d/%d/%d/%d, want 10/9/7/2", got.Fetched, got.Stored, got.New, got.Updated)
	}
	if got.CursorBefore != "cursor-1" || got.CursorAfter != "cursor-2" {
		t.Errorf("cursors = %q -> %q, want cursor-1 -> cursor-2", got.CursorBefore, got.CursorAfter)
	}
}

func TestFinishSyncLog_PersistsDemotedType(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	// Opened as incremental; an expired cursor demotes the run to initial
	// before finalization, and the record must say so.
	entry := &domain.SyncLogEntry{
		AccountID:    "acc-1",
		Type:         domain.SyncIncremental,
		CursorBefore: "cursor-1",
		StartedAt:    time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC),
	}
	if err := db.BeginSyncLog(ctx, entry); err != nil {
		t.Fatalf("BeginSyncLog() error: %v", err)
	}

	entry.Type = domain.SyncInitial
	entry.Status = domain.SyncSuccess
	entry.CursorAfter = "cursor-2"
	entry.FinishedAt = entry.StartedAt.Add(time.Minute)
	if err := db.FinishSyncLog(ctx, entry); err != nil {
		t.Fatalf("FinishSyncLog() error: %v", err)
	}

	entries, err := db.ListSyncLog(ctx, "acc-1", 1)
	if err != nil {
		t.Fatalf("ListSyncLog() error: %v", err)
	}
	if entries[0].Type != domain.SyncInitial {
		t.Errorf("Type = %q, want initial after cursor fallback", entries[0].Type)
	}
}

func TestFinishSyncLog_FinishedEntryIsImmutable(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	entry := &domain.SyncLogEntry{
		AccountID: "acc-1",
		Type:      domain.SyncInitial,
		StartedAt: time.Now().UTC(),
	}
	if err := db.BeginSyncLog(ctx, entry); err != nil {
		t.Fatalf("BeginSyncLog() error: %v", err)
	}

	entry.Status = domain.SyncSuccess
	entry.FinishedAt = time.Now().UTC()
	if err := db.FinishSyncLog(ctx, entry); err != nil {
		t.Fatalf("FinishSyncLog() error: %v", err)
	}

	entry.Status = domain.SyncFailed
	entry.Error = "late failure"
	if err := db.FinishSyncLog(ctx, entry); err != nil {
		t.Fatalf("second FinishSyncLog() error: %v", err)
	}

	entries, err := db.ListSyncLog(ctx, "acc-1", 10)
	if err != nil {
		t.Fatalf("ListSyncLog() error: %v", err)
	}
	if entries[0].Status != domain.SyncSuccess {
		t.Errorf("Status = %q, finished entry must keep its terminal status", entries[0].Status)
	}
}

func TestListSyncLog_FiltersAndLimits(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	base := time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC)
	for i, acct := range []string{"acc-1", "acc-2", "acc-1"} {
		entry := &domain.SyncLogEntry{
			AccountID: acct,
			Type:      domain.SyncIncremental,
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := db.BeginSyncLog(ctx, entry); err != nil {
			t.Fatalf("BeginSyncLog(%d) error: %v", i, err)
		}
	}

	all, err := db.ListSyncLog(ctx, "", 0)
	if err != nil {
		t.Fatalf("ListSyncLog(all) error: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("len(all) = %d, want 3", len(all))
	}

	acc1, err := db.ListSyncLog(ctx, "acc-1", 0)
	if err != nil {
		t.Fatalf("ListSyncLog(acc-1) error: %v", err)
	}
	if len(acc1) != 2 {
		t.Fatalf("len(acc1) = %d, want 2", len(acc1))
	}
	if !acc1[0].StartedAt.After(acc1[1].StartedAt) {
		t.Error("entries not ordered newest first")
	}

	limited, err := db.ListSyncLog(ctx, "acc-1", 1)
	if err != nil {
		t.Fatalf("ListSyncLog(limit) error: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("len(limited) = %d, want 1", len(limited))
	}
}

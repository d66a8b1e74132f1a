package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/dbower44022/CRMExtender-sub006/internal/domain"
)

// BeginSyncLog opens the audit record for one account run. The orchestrator
// creates it before touching the provider so interrupted runs stay visible.
func (s *DB) BeginSyncLog(ctx context.Context, entry *domain.SyncLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.Status = domain.SyncRunning
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sync_log (id, account_id, sync_type, status, cursor_before, started_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.AccountID, entry.Type, entry.Status, entry.CursorBefore,
		formatTime(entry.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to begin sync log: %w", err)
	}
	return nil
}

// FinishSyncLog finalizes a running entry with its terminal status and
// counts. The sync type is written too: an expired cursor can demote a run
// to initial after the entry was opened. Entries already finished are left
// alone.
func (s *DB) FinishSyncLog(ctx context.Context, entry *domain.SyncLogEntry) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sync_log SET
			sync_type = ?, status = ?, fetched = ?, stored = ?, new_count = ?, updated_count = ?,
			cursor_after = ?, error = ?, finished_at = ?
		 WHERE id = ? AND status = ?`,
		entry.Type, entry.Status, entry.Fetched, entry.Stored, entry.New, entry.Updated,
		entry.CursorAfter, entry.Error, formatTime(entry.FinishedAt),
		entry.ID, domain.SyncRunning,
	)
	if err != nil {
		return fmt.Errorf("failed to finish sync log %s: %w", entry.ID, err)
	}
	return nil
}

// ListSyncLog returns recent entries, newest first. An empty accountID
// lists across all accounts.
func (s *DB) ListSyncLog(ctx context.Context, accountID string, limit int) ([]domain.SyncLogEntry, error) {
	query := `SELECT id, account_id, sync_type, status, fetched, stored, new_count, updated_count,
		cursor_before, cursor_after, error, started_at, finished_at
		FROM sync_log`
	var args []any
	if accountID != "" {
		query += ` WHERE account_id = ?`
		args = append(args, accountID)
	}
	query += ` ORDER BY started_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync log: %w", err)
	}
	defer rows.Close()

	var entries []domain.SyncLogEntry
	for rows.Next() {
		var e domain.SyncLogEntry
		var startedAt string
		var finishedAt sql.NullString
		if err := rows.Scan(&e.ID, &e.AccountID, &e.Type, &e.Status, &e.Fetched, &e.Stored,
			&e.New, &e.Updated, &e.CursorBefore, &e.CursorAfter, &e.Error,
			&startedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan sync log entry: %w", err)
		}
		if e.StartedAt, err = parseTime(startedAt); err != nil {
			return nil, err
		}
		if e.FinishedAt, err = parseTime(finishedAt.String); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

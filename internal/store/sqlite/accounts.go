package sqlite

import (
	"context"
	"fmt"

	"github.com/dbower44022/CRMExtender-sub006/internal/domain"
)

func (s *DB) CreateAccount(ctx context.Context, acct *domain.Account) error {
	backfill := acct.BackfillDays
	if backfill <= 0 {
		backfill = 30
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (id, email, provider, display_name, cursor, initial_sync_done, backfill_days)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		acct.ID, acct.Email, acct.Provider, acct.DisplayName,
		acct.Cursor, acct.InitialSyncDone, backfill,
	)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (s *DB) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	var a domain.Account
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, provider, display_name, cursor, initial_sync_done, backfill_days, created_at
		 FROM accounts WHERE id = ?`, id,
	).Scan(&a.ID, &a.Email, &a.Provider, &a.DisplayName, &a.Cursor, &a.InitialSyncDone, &a.BackfillDays, &a.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get account %s: %w", id, err)
	}
	return &a, nil
}

func (s *DB) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, email, provider, display_name, cursor, initial_sync_done, backfill_days, created_at
		 FROM accounts ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		var a domain.Account
		if err := rows.Scan(&a.ID, &a.Email, &a.Provider, &a.DisplayName, &a.Cursor,
			&a.InitialSyncDone, &a.BackfillDays, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (s *DB) DeleteAccount(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account %s: %w", id, err)
	}
	return nil
}

// AdvanceCursor persists the new cursor and marks the initial sync done.
// The orchestrator calls it only after the batch is durably stored.
func (s *DB) AdvanceCursor(ctx context.Context, accountID, cursor string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET cursor = ?, initial_sync_done = TRUE WHERE id = ?`,
		cursor, accountID,
	)
	if err != nil {
		return fmt.Errorf("failed to advance cursor for account %s: %w", accountID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to advance cursor for account %s: %w", accountID, err)
	}
	if n == 0 {
		return fmt.Errorf("failed to advance cursor: account %s not found", accountID)
	}
	return nil
}

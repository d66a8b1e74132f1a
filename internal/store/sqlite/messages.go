package sqlite

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/dbower44022/CRMExtender-sub006/internal/domain"
	"github.com/dbower44022/CRMExtender-sub006/internal/store"
)

// bodyHash fingerprints the cleaned body for edit detection.
func bodyHash(body string) string {
	sum := sha256.Sum256([]byte(body))
	return hex.EncodeToString(sum[:])
}

// UpsertMessage inserts or revises a message, deduplicating on
// (account_id, provider_message_id). A repeat sight with an unchanged body
// is a no-op; a changed body becomes a new revision and the prior row keeps
// its data with is_current flipped off.
func (s *DB) UpsertMessage(ctx context.Context, msg *domain.Message) (store.UpsertOutcome, error) {
	hash := bodyHash(msg.Body)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return store.UpsertUnchanged, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var prevID, prevHash string
	var prevRevision int
	err = tx.QueryRowContext(ctx,
		`SELECT id, body_hash, revision FROM messages
		 WHERE account_id = ? AND provider_message_id = ? AND is_current`,
		msg.AccountID, msg.ProviderMessageID,
	).Scan(&prevID, &prevHash, &prevRevision)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		msg.Revision = 1
		msg.IsCurrent = true
		if err := insertMessage(ctx, tx, msg, hash); err != nil {
			return store.UpsertUnchanged, err
		}
		if err := tx.Commit(); err != nil {
			return store.UpsertUnchanged, fmt.Errorf("failed to commit message insert: %w", err)
		}
		return store.UpsertCreated, nil

	case err != nil:
		return store.UpsertUnchanged, fmt.Errorf("failed to look up message %s: %w", msg.ProviderMessageID, err)

	case prevHash == hash:
		return store.UpsertUnchanged, nil

	default:
		// Provider-side edit: retire the prior revision, keep it addressable.
		if _, err := tx.ExecContext(ctx,
			`UPDATE messages SET is_current = FALSE WHERE id = ?`, prevID); err != nil {
			return store.UpsertUnchanged, fmt.Errorf("failed to retire message revision %s: %w", prevID, err)
		}
		msg.Revision = prevRevision + 1
		msg.IsCurrent = true
		if err := insertMessage(ctx, tx, msg, hash); err != nil {
			return store.UpsertUnchanged, err
		}
		// Carry conversation links over to the new revision so the message
		// stays visible in its conversations; counts are unaffected because
		// it is still one logical message.
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO conversation_messages (conversation_id, message_id, assignment_source, confidence, reviewed)
			 SELECT conversation_id, ?, assignment_source, confidence, reviewed
			 FROM conversation_messages WHERE message_id = ?`,
			msg.ID, prevID,
		); err != nil {
			return store.UpsertUnchanged, fmt.Errorf("failed to carry conversation links: %w", err)
		}
		// Content changed, so the classifier must revisit those conversations.
		if _, err := tx.ExecContext(ctx,
			`UPDATE conversations SET last_processed_at = NULL
			 WHERE id IN (SELECT conversation_id FROM conversation_messages WHERE message_id = ?)`,
			msg.ID,
		); err != nil {
			return store.UpsertUnchanged, fmt.Errorf("failed to reset processing cursor: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return store.UpsertUnchanged, fmt.Errorf("failed to commit message revision: %w", err)
		}
		return store.UpsertUpdated, nil
	}
}

func insertMessage(ctx context.Context, tx *sql.Tx, msg *domain.Message, hash string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO messages (id, account_id, provider_message_id, provider_thread_id,
			from_addr, from_name, subject, body_text, body_hash, sent_at, revision, is_current)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.AccountID, msg.ProviderMessageID, msg.ProviderThreadID,
		msg.From.Email, msg.From.Name, msg.Subject, msg.Body, hash,
		formatTime(msg.SentAt), msg.Revision, msg.IsCurrent,
	)
	if err != nil {
		return fmt.Errorf("failed to insert message %s: %w", msg.ProviderMessageID, err)
	}

	for _, r := range msg.Recipients {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO message_recipients (message_id, address, name, role)
			 VALUES (?, ?, ?, ?)`,
			msg.ID, r.Address, r.Name, r.Role,
		); err != nil {
			return fmt.Errorf("failed to insert recipient %s: %w", r.Address, err)
		}
	}
	return nil
}

// GetMessage retrieves a single message by ID, including its recipients.
func (s *DB) GetMessage(ctx context.Context, id string) (*domain.Message, error) {
	var m domain.Message
	var fromAddr, fromName, sentAt string

	err := s.db.QueryRowContext(ctx,
		`SELECT id, account_id, provider_message_id, provider_thread_id,
			from_addr, from_name, subject, body_text, sent_at, revision, is_current, created_at
		 FROM messages WHERE id = ?`, id,
	).Scan(&m.ID, &m.AccountID, &m.ProviderMessageID, &m.ProviderThreadID,
		&fromAddr, &fromName, &m.Subject, &m.Body, &sentAt, &m.Revision, &m.IsCurrent, &m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", id, err)
	}

	m.From = domain.Address{Name: fromName, Email: fromAddr}
	if m.SentAt, err = parseTime(sentAt); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT address, name, role FROM message_recipients WHERE message_id = ? ORDER BY role, address`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query recipients: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r domain.Recipient
		if err := rows.Scan(&r.Address, &r.Name, &r.Role); err != nil {
			return nil, fmt.Errorf("failed to scan recipient: %w", err)
		}
		m.Recipients = append(m.Recipients, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recipients: %w", err)
	}

	return &m, nil
}

// CountMessages returns the number of stored message rows for an account,
// all revisions included.
func (s *DB) CountMessages(ctx context.Context, accountID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE account_id = ?`, accountID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return n, nil
}

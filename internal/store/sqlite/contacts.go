package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dbower44022/CRMExtender-sub006/internal/domain"
)

func (s *DB) CreateContact(ctx context.Context, contact *domain.Contact) error {
	if contact.ID == "" {
		contact.ID = uuid.NewString()
	}
	contact.Email = strings.ToLower(strings.TrimSpace(contact.Email))
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO contacts (id, email, name, company) VALUES (?, ?, ?, ?)`,
		contact.ID, contact.Email, contact.Name, contact.Company,
	)
	if err != nil {
		return fmt.Errorf("failed to create contact: %w", err)
	}
	return nil
}

// GetContactByEmail matches case-insensitively and returns (nil, nil) when
// no contact has the address.
func (s *DB) GetContactByEmail(ctx context.Context, email string) (*domain.Contact, error) {
	var c domain.Contact
	var lastAt sql.NullString

	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, name, company, interaction_count, last_interaction_at, created_at
		 FROM contacts WHERE email = ?`,
		strings.ToLower(strings.TrimSpace(email)),
	).Scan(&c.ID, &c.Email, &c.Name, &c.Company, &c.InteractionCount, &lastAt, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contact by email: %w", err)
	}

	if c.LastInteractionAt, err = parseTime(lastAt.String); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *DB) ListContacts(ctx context.Context) ([]domain.Contact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, email, name, company, interaction_count, last_interaction_at, created_at
		 FROM contacts ORDER BY email`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	defer rows.Close()

	var contacts []domain.Contact
	for rows.Next() {
		var c domain.Contact
		var lastAt sql.NullString
		if err := rows.Scan(&c.ID, &c.Email, &c.Name, &c.Company, &c.InteractionCount, &lastAt, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		if c.LastInteractionAt, err = parseTime(lastAt.String); err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

// LinkParticipant attaches a contact to a conversation participant row.
func (s *DB) LinkParticipant(ctx context.Context, conversationID, address, contactID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE participants SET contact_id = ?
		 WHERE conversation_id = ? AND address = ?`,
		contactID, conversationID, strings.ToLower(address),
	)
	if err != nil {
		return fmt.Errorf("failed to link participant %s: %w", address, err)
	}
	return nil
}

// RecordContactInteraction bumps the interaction counter and keeps the
// latest interaction timestamp monotone. Out-of-order message arrival must
// not move it backwards.
func (s *DB) RecordContactInteraction(ctx context.Context, contactID string, at time.Time) error {
	ts := formatTime(at)
	_, err := s.db.ExecContext(ctx,
		`UPDATE contacts SET
			interaction_count = interaction_count + 1,
			last_interaction_at = CASE
				WHEN last_interaction_at IS NULL OR ? > last_interaction_at THEN ?
				ELSE last_interaction_at
			END
		 WHERE id = ?`,
		ts, ts, contactID,
	)
	if err != nil {
		return fmt.Errorf("failed to record interaction for contact %s: %w", contactID, err)
	}
	return nil
}

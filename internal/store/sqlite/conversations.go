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
	"github.com/dbower44022/CRMExtender-sub006/internal/store"
)

const conversationColumns = `id, thread_key, title, message_count, participant_count,
	first_message_at, last_message_at, last_processed_at, archived, created_at`

func scanConversation(row interface{ Scan(...any) error }) (*domain.Conversation, error) {
	var c domain.Conversation
	var threadKey, firstAt, lastAt, processedAt sql.NullString

	err := row.Scan(&c.ID, &threadKey, &c.Title, &c.MessageCount, &c.ParticipantCount,
		&firstAt, &lastAt, &processedAt, &c.Archived, &c.CreatedAt)
	if err != nil {
		return nil, err
	}

	c.ThreadKey = threadKey.String
	if c.FirstMessageAt, err = parseTime(firstAt.String); err != nil {
		return nil, err
	}
	if c.LastMessageAt, err = parseTime(lastAt.String); err != nil {
		return nil, err
	}
	if processedAt.Valid && processedAt.String != "" {
		t, err := parseTime(processedAt.String)
		if err != nil {
			return nil, err
		}
		c.LastProcessedAt = &t
	}
	return &c, nil
}

// FindOrCreateConversationByThreadKey returns the conversation for a
// provider thread key, creating it if absent. The INSERT OR IGNORE plus
// re-SELECT makes concurrent callers with the same key converge on one row.
func (s *DB) FindOrCreateConversationByThreadKey(ctx context.Context, threadKey, title string) (*domain.Conversation, bool, error) {
	id := uuid.NewString()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, thread_key, title)
		 VALUES (?, ?, ?)
		 ON CONFLICT(thread_key) DO NOTHING`,
		id, threadKey, title,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create conversation for thread %s: %w", threadKey, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to create conversation for thread %s: %w", threadKey, err)
	}

	conv, err := scanConversation(s.db.QueryRowContext(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE thread_key = ?`, threadKey))
	if err != nil {
		return nil, false, fmt.Errorf("failed to load conversation for thread %s: %w", threadKey, err)
	}
	return conv, n > 0, nil
}

// FindHeuristicConversation looks for an existing conversation whose title
// matches the normalized subject, that shares at least one participant
// address, and that has been active since the given time. Returns (nil, nil)
// when no candidate qualifies; ties go to the most recently active.
func (s *DB) FindHeuristicConversation(ctx context.Context, subject string, addresses []string, since time.Time) (*domain.Conversation, error) {
	if subject == "" || len(addresses) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?, ", len(addresses)-1) + "?"
	args := make([]any, 0, len(addresses)+2)
	for _, a := range addresses {
		args = append(args, strings.ToLower(a))
	}
	args = append(args, subject, formatTime(since))

	query := `SELECT ` + conversationColumns + ` FROM conversations
		 WHERE id IN (
			SELECT conversation_id FROM participants WHERE address IN (` + placeholders + `)
		 )
		 AND title = ? COLLATE NOCASE
		 AND NOT archived
		 AND last_message_at >= ?
		 ORDER BY last_message_at DESC
		 LIMIT 1`

	conv, err := scanConversation(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find conversation by subject: %w", err)
	}
	return conv, nil
}

func (s *DB) CreateConversation(ctx context.Context, conv *domain.Conversation) error {
	if conv.ID == "" {
		conv.ID = uuid.NewString()
	}
	var threadKey any
	if conv.ThreadKey != "" {
		threadKey = conv.ThreadKey
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, thread_key, title) VALUES (?, ?, ?)`,
		conv.ID, threadKey, conv.Title,
	)
	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}
	return nil
}

// AttachMessage links a message into a conversation and keeps the
// conversation's denormalized state consistent in one transaction: message
// count, activity bounds, participant rollups, and the processing cursor,
// which is cleared so the classifier revisits the conversation.
func (s *DB) AttachMessage(ctx context.Context, link *domain.ConversationMessage, msg *domain.Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO conversation_messages (conversation_id, message_id, assignment_source, confidence, reviewed)
		 VALUES (?, ?, ?, ?, ?)`,
		link.ConversationID, link.MessageID, link.Source, link.Confidence, link.Reviewed,
	); err != nil {
		return fmt.Errorf("failed to link message %s: %w", link.MessageID, err)
	}

	sentAt := formatTime(msg.SentAt)
	if _, err := tx.ExecContext(ctx,
		`UPDATE conversations SET
			message_count = message_count + 1,
			first_message_at = CASE WHEN first_message_at IS NULL OR ? < first_message_at THEN ? ELSE first_message_at END,
			last_message_at  = CASE WHEN last_message_at IS NULL OR ? > last_message_at THEN ? ELSE last_message_at END,
			last_processed_at = NULL
		 WHERE id = ?`,
		sentAt, sentAt, sentAt, sentAt, link.ConversationID,
	); err != nil {
		return fmt.Errorf("failed to update conversation %s: %w", link.ConversationID, err)
	}

	for _, addr := range msg.ParticipantAddresses() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO participants (conversation_id, address, message_count, first_seen, last_seen)
			 VALUES (?, ?, 1, ?, ?)
			 ON CONFLICT(conversation_id, address) DO UPDATE SET
				message_count = message_count + 1,
				first_seen = CASE WHEN excluded.first_seen < first_seen THEN excluded.first_seen ELSE first_seen END,
				last_seen = CASE WHEN excluded.last_seen > last_seen THEN excluded.last_seen ELSE last_seen END`,
			link.ConversationID, addr, sentAt, sentAt,
		); err != nil {
			return fmt.Errorf("failed to upsert participant %s: %w", addr, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE conversations SET participant_count =
			(SELECT COUNT(*) FROM participants WHERE conversation_id = ?)
		 WHERE id = ?`,
		link.ConversationID, link.ConversationID,
	); err != nil {
		return fmt.Errorf("failed to recount participants: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit attach: %w", err)
	}
	return nil
}

// AssignMessage records a manual assignment of a message to a conversation.
// Manual links coexist with the automatic one; re-assigning the same pair
// is a no-op.
func (s *DB) AssignMessage(ctx context.Context, conversationID, messageID string) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO conversation_messages
			(conversation_id, message_id, assignment_source, confidence, reviewed)
		 VALUES (?, ?, ?, 1.0, TRUE)`,
		conversationID, messageID, domain.AssignmentManual,
	)
	if err != nil {
		return fmt.Errorf("failed to assign message %s: %w", messageID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to assign message %s: %w", messageID, err)
	}
	if n == 0 {
		return nil
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE conversations SET
			message_count = message_count + 1,
			last_processed_at = NULL
		 WHERE id = ?`, conversationID)
	if err != nil {
		return fmt.Errorf("failed to update conversation %s: %w", conversationID, err)
	}
	return nil
}

func (s *DB) GetConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	conv, err := scanConversation(s.db.QueryRowContext(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation %s: %w", id, err)
	}
	return conv, nil
}

func (s *DB) ListConversations(ctx context.Context, opts store.ListConversationOptions) ([]domain.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE 1=1`
	var args []any

	if !opts.IncludeArchived {
		query += ` AND NOT archived`
	}
	if opts.NeedsProcessingOnly {
		query += ` AND last_processed_at IS NULL`
	}
	query += ` ORDER BY last_message_at DESC`
	if opts.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, opts.Limit, opts.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var convs []domain.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		convs = append(convs, *c)
	}
	return convs, rows.Err()
}

// ListConversationMessages returns the current revisions of all messages
// linked to a conversation, oldest first.
func (s *DB) ListConversationMessages(ctx context.Context, conversationID string) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT m.id FROM messages m
		 JOIN conversation_messages cm ON cm.message_id = m.id
		 WHERE cm.conversation_id = ? AND m.is_current
		 ORDER BY m.sent_at`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversation messages: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan message id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}

	msgs := make([]domain.Message, 0, len(ids))
	for _, id := range ids {
		m, err := s.GetMessage(ctx, id)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, *m)
	}
	return msgs, nil
}

func (s *DB) ListParticipants(ctx context.Context, conversationID string) ([]domain.Participant, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT conversation_id, address, COALESCE(contact_id, ''), message_count, first_seen, last_seen
		 FROM participants WHERE conversation_id = ? ORDER BY message_count DESC, address`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	var parts []domain.Participant
	for rows.Next() {
		var p domain.Participant
		var firstSeen, lastSeen sql.NullString
		if err := rows.Scan(&p.ConversationID, &p.Address, &p.ContactID, &p.MessageCount, &firstSeen, &lastSeen); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		if p.FirstSeen, err = parseTime(firstSeen.String); err != nil {
			return nil, err
		}
		if p.LastSeen, err = parseTime(lastSeen.String); err != nil {
			return nil, err
		}
		parts = append(parts, p)
	}
	return parts, rows.Err()
}

// ArchiveConversation marks a conversation archived. Archived conversations
// are excluded from heuristic matching and default listings but keep their
// messages and links.
func (s *DB) ArchiveConversation(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET archived = TRUE WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to archive conversation %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to archive conversation %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("failed to archive conversation: %s not found", id)
	}
	return nil
}

// ListConversationsNeedingProcessing returns unarchived conversations whose
// processing cursor is unset, oldest activity first so the classifier works
// through the backlog in order.
func (s *DB) ListConversationsNeedingProcessing(ctx context.Context, limit int) ([]domain.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations
		 WHERE last_processed_at IS NULL AND NOT archived AND message_count > 0
		 ORDER BY last_message_at`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations needing processing: %w", err)
	}
	defer rows.Close()

	var convs []domain.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		convs = append(convs, *c)
	}
	return convs, rows.Err()
}

func (s *DB) MarkConversationProcessed(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET last_processed_at = ? WHERE id = ?`,
		formatTime(at), id)
	if err != nil {
		return fmt.Errorf("failed to mark conversation %s processed: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to mark conversation %s processed: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("failed to mark conversation processed: %s not found", id)
	}
	return nil
}

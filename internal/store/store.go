package store

import (
	"context"
	"time"

	"github.com/dbower44022/CRMExtender-sub006/internal/domain"
)

// UpsertOutcome classifies what a message upsert did.
type UpsertOutcome int

const (
	UpsertCreated UpsertOutcome = iota
	UpsertUpdated
	UpsertUnchanged
)

func (o UpsertOutcome) String() string {
	switch o {
	case UpsertCreated:
		return "created"
	case UpsertUpdated:
		return "updated"
	case UpsertUnchanged:
		return "unchanged"
	}
	return "unknown"
}

// ListConversationOptions configures conversation listing queries.
type ListConversationOptions struct {
	NeedsProcessingOnly bool
	IncludeArchived     bool
	Limit               int
	Offset              int
}

// Store defines the persistence interface for the ingestion engine.
type Store interface {
	// Accounts
	CreateAccount(ctx context.Context, account *domain.Account) error
	GetAccount(ctx context.Context, id string) (*domain.Account, error)
	ListAccounts(ctx context.Context) ([]domain.Account, error)
	DeleteAccount(ctx context.Context, id string) error
	// AdvanceCursor persists the new cursor and marks initial sync done.
	// It is the last step of a successful account run.
	AdvanceCursor(ctx context.Context, accountID, cursor string) error

	// Messages. UpsertMessage is the single idempotency boundary: it
	// dedups on (account id, provider message id), stores edits as new
	// revisions, and no-ops on unchanged repeats.
	UpsertMessage(ctx context.Context, msg *domain.Message) (UpsertOutcome, error)
	GetMessage(ctx context.Context, id string) (*domain.Message, error)
	CountMessages(ctx context.Context, accountID string) (int, error)

	// Conversations and threading. FindOrCreateConversationByThreadKey is
	// atomic: concurrent calls with the same key observe one conversation.
	FindOrCreateConversationByThreadKey(ctx context.Context, threadKey, title string) (*domain.Conversation, bool, error)
	FindHeuristicConversation(ctx context.Context, subject string, addresses []string, since time.Time) (*domain.Conversation, error)
	CreateConversation(ctx context.Context, conv *domain.Conversation) error
	// AttachMessage links a message into a conversation, bumps its
	// counters, extends its activity bounds, rolls up participants, and
	// clears the AI-processing cursor, all in one transaction.
	AttachMessage(ctx context.Context, link *domain.ConversationMessage, msg *domain.Message) error
	// AssignMessage is the manual-correction path and the only way a
	// message may gain a second conversation link.
	AssignMessage(ctx context.Context, conversationID, messageID string) error
	GetConversation(ctx context.Context, id string) (*domain.Conversation, error)
	ListConversations(ctx context.Context, opts ListConversationOptions) ([]domain.Conversation, error)
	ListConversationMessages(ctx context.Context, conversationID string) ([]domain.Message, error)
	ListParticipants(ctx context.Context, conversationID string) ([]domain.Participant, error)
	ArchiveConversation(ctx context.Context, id string) error

	// Classifier hand-off: conversations whose processing cursor is unset.
	ListConversationsNeedingProcessing(ctx context.Context, limit int) ([]domain.Conversation, error)
	MarkConversationProcessed(ctx context.Context, id string, at time.Time) error

	// Contacts
	CreateContact(ctx context.Context, contact *domain.Contact) error
	// GetContactByEmail matches case-insensitively; (nil, nil) when absent.
	GetContactByEmail(ctx context.Context, email string) (*domain.Contact, error)
	ListContacts(ctx context.Context) ([]domain.Contact, error)
	LinkParticipant(ctx context.Context, conversationID, address, contactID string) error
	RecordContactInteraction(ctx context.Context, contactID string, at time.Time) error

	// Sync log
	BeginSyncLog(ctx context.Context, entry *domain.SyncLogEntry) error
	FinishSyncLog(ctx context.Context, entry *domain.SyncLogEntry) error
	ListSyncLog(ctx context.Context, accountID string, limit int) ([]domain.SyncLogEntry, error)

	// Lifecycle
	Close() error
}

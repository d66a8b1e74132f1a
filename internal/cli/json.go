package cli

import (
	"time"

	"github.com/dbower44022/CRMExtender-sub006/internal/domain"
	"github.com/dbower44022/CRMExtender-sub006/internal/engine"
)

// ---------------------------------------------------------------------------
// Account JSON types (account list)
// ---------------------------------------------------------------------------

type jsonAccount struct {
	ID              string `json:"id"`
	Email           string `json:"email"`
	Provider        string `json:"provider"`
	InitialSyncDone bool   `json:"initial_sync_done"`
	BackfillDays    int    `json:"backfill_days"`
	CreatedAt       string `json:"created_at"`
}

func toJSONAccounts(accounts []domain.Account) []jsonAccount {
	out := make([]jsonAccount, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, jsonAccount{
			ID:              a.ID,
			Email:           a.Email,
			Provider:        a.Provider,
			InitialSyncDone: a.InitialSyncDone,
			BackfillDays:    a.BackfillDays,
			CreatedAt:       a.CreatedAt.Format(time.DateOnly),
		})
	}
	return out
}

// ---------------------------------------------------------------------------
// Conversation JSON types (conversations list / show)
// ---------------------------------------------------------------------------

type jsonConversation struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	MessageCount     int    `json:"message_count"`
	ParticipantCount int    `json:"participant_count"`
	FirstMessageAt   string `json:"first_message_at,omitempty"`
	LastMessageAt    string `json:"last_message_at,omitempty"`
	NeedsProcessing  bool   `json:"needs_processing"`
	Archived         bool   `json:"archived"`
}

func toJSONConversation(c *domain.Conversation) jsonConversation {
	out := jsonConversation{
		ID:               c.ID,
		Title:            c.Title,
		MessageCount:     c.MessageCount,
		ParticipantCount: c.ParticipantCount,
		NeedsProcessing:  c.NeedsProcessing(),
		Archived:         c.Archived,
	}
	if !c.FirstMessageAt.IsZero() {
		out.FirstMessageAt = c.FirstMessageAt.Format(time.RFC3339)
	}
	if !c.LastMessageAt.IsZero() {
		out.LastMessageAt = c.LastMessageAt.Format(time.RFC3339)
	}
	return out
}

func toJSONConversations(convs []domain.Conversation) []jsonConversation {
	out := make([]jsonConversation, 0, len(convs))
	for i := range convs {
		out = append(out, toJSONConversation(&convs[i]))
	}
	return out
}

type jsonConversationDetail struct {
	jsonConversation
	Messages     []jsonMessage     `json:"messages"`
	Participants []jsonParticipant `json:"participants"`
}

type jsonMessage struct {
	ID       string `json:"id"`
	From     string `json:"from"`
	Subject  string `json:"subject,omitempty"`
	Body     string `json:"body,omitempty"`
	SentAt   string `json:"sent_at"`
	Revision int    `json:"revision"`
}

func toJSONMessages(msgs []domain.Message) []jsonMessage {
	out := make([]jsonMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, jsonMessage{
			ID:       m.ID,
			From:     m.From.String(),
			Subject:  m.Subject,
			Body:     m.Body,
			SentAt:   m.SentAt.Format(time.RFC3339),
			Revision: m.Revision,
		})
	}
	return out
}

type jsonParticipant struct {
	Address      string `json:"address"`
	ContactID    string `json:"contact_id,omitempty"`
	MessageCount int    `json:"message_count"`
}

func toJSONParticipants(parts []domain.Participant) []jsonParticipant {
	out := make([]jsonParticipant, 0, len(parts))
	for _, p := range parts {
		out = append(out, jsonParticipant{
			Address:      p.Address,
			ContactID:    p.ContactID,
			MessageCount: p.MessageCount,
		})
	}
	return out
}

// ---------------------------------------------------------------------------
// Contact JSON types (contact list)
// ---------------------------------------------------------------------------

type jsonContact struct {
	ID                string `json:"id"`
	Email             string `json:"email"`
	Name              string `json:"name,omitempty"`
	Company           string `json:"company,omitempty"`
	InteractionCount  int    `json:"interaction_count"`
	LastInteractionAt string `json:"last_interaction_at,omitempty"`
}

func toJSONContacts(contacts []domain.Contact) []jsonContact {
	out := make([]jsonContact, 0, len(contacts))
	for _, c := range contacts {
		jc := jsonContact{
			ID:               c.ID,
			Email:            c.Email,
			Name:             c.Name,
			Company:          c.Company,
			InteractionCount: c.InteractionCount,
		}
		if !c.LastInteractionAt.IsZero() {
			jc.LastInteractionAt = c.LastInteractionAt.Format(time.RFC3339)
		}
		out = append(out, jc)
	}
	return out
}

// ---------------------------------------------------------------------------
// Sync JSON types (sync, log)
// ---------------------------------------------------------------------------

type jsonSyncResult struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
	Status    string `json:"status"`
	Fetched   int    `json:"fetched"`
	New       int    `json:"new"`
	Updated   int    `json:"updated"`
	Skipped   int    `json:"skipped"`
	Error     string `json:"error,omitempty"`
}

func toJSONSyncResults(results []engine.AccountResult) []jsonSyncResult {
	out := make([]jsonSyncResult, 0, len(results))
	for _, r := range results {
		jr := jsonSyncResult{
			AccountID: r.AccountID,
			Email:     r.Email,
			Status:    string(r.Status),
			Fetched:   r.Fetched,
			New:       r.New,
			Updated:   r.Updated,
			Skipped:   r.Skipped,
		}
		if r.Err != nil {
			jr.Error = r.Err.Error()
		}
		out = append(out, jr)
	}
	return out
}

type jsonLogEntry struct {
	ID         string `json:"id"`
	AccountID  string `json:"account_id"`
	Type       string `json:"type"`
	Status     string `json:"status"`
	Fetched    int    `json:"fetched"`
	New        int    `json:"new"`
	Updated    int    `json:"updated"`
	Error      string `json:"error,omitempty"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at,omitempty"`
}

func toJSONLogEntries(entries []domain.SyncLogEntry) []jsonLogEntry {
	out := make([]jsonLogEntry, 0, len(entries))
	for _, e := range entries {
		je := jsonLogEntry{
			ID:        e.ID,
			AccountID: e.AccountID,
			Type:      string(e.Type),
			Status:    string(e.Status),
			Fetched:   e.Fetched,
			New:       e.New,
			Updated:   e.Updated,
			Error:     e.Error,
			StartedAt: e.StartedAt.Format(time.RFC3339),
		}
		if !e.FinishedAt.IsZero() {
			je.FinishedAt = e.FinishedAt.Format(time.RFC3339)
		}
		out = append(out, je)
	}
	return out
}

// jsonAction is the generic success envelope for mutating commands.
type jsonAction struct {
	OK     bool   `json:"ok"`
	Action string `json:"action"`
	ID     string `json:"id,omitempty"`
	Email  string `json:"email,omitempty"`
}

package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/dbower44022/CRMExtender-sub006/internal/domain"
	"github.com/dbower44022/CRMExtender-sub006/internal/store"
)

func attach(t *testing.T, db *DB, convID string, msg *domain.Message, source domain.AssignmentSource) {
	t.Helper()
	ctx := context.Background()
	if _, err := db.UpsertMessage(ctx, msg); err != nil {
		t.Fatalf("UpsertMessage(%s): %v", msg.ID, err)
	}
	err := db.AttachMessage(ctx, &domain.ConversationMessage{
		ConversationID: convID,
		MessageID:      msg.ID,
		Source:         source,
		Confidence:     1.0,
		Reviewed:       true,
	}, msg)
	if err != nil {
		t.Fatalf("AttachMessage(%s): %v", msg.ID, err)
	}
}

func TestFindOrCreateConversationByThreadKey(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	conv, created, err := db.FindOrCreateConversationByThreadKey(ctx, "acc-1:t-1", "Project Kickoff")
	if err != nil {
		t.Fatalf("FindOrCreateConversationByThreadKey() error: %v", err)
	}
	if !created {
		t.Error("created = false on first call, want true")
	}
	if conv.ThreadKey != "acc-1:t-1" {
		t.Errorf("ThreadKey = %q, want %q", conv.ThreadKey, "acc-1:t-1")
	}
	if conv.Title != "Project Kickoff" {
		t.Errorf("Title = %q, want %q", conv.Title, "Project Kickoff")
	}

	again, created, err := db.FindOrCreateConversationByThreadKey(ctx, "acc-1:t-1", "Different Title")
	if err != nil {
		t.Fatalf("second FindOrCreateConversationByThreadKey() error: %v", err)
	}
	if created {
		t.Error("created = true on second call, want false")
	}
	if again.ID != conv.ID {
		t.Errorf("second call returned %s, want same conversation %s", again.ID, conv.ID)
	}
	if again.Title != "Project Kickoff" {
		t.Errorf("Title = %q, existing title must win", again.Title)
	}
}

func TestAttachMessage_UpdatesRollups(t *testing.T) {
	db := newTestDB(t)
	seedAccount(t, db)
	ctx := context.Background()

	conv, _, err := db.FindOrCreateConversationByThreadKey(ctx, "acc-1:t-1", "Hello World")
	if err != nil {
		t.Fatalf("FindOrCreateConversationByThreadKey() error: %v", err)
	}

	first := testMessage("msg-1", "pm-1", "t-1")
	first.SentAt = time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC)
	attach(t, db, conv.ID, first, domain.AssignmentSync)

	second := testMessage("msg-2", "pm-2", "t-1")
	second.From = domain.Address{Name: "Bob", Email: "bob@example.com"}
	second.Recipients = []domain.Recipient{{Address: "alice@example.com", Role: domain.RoleTo}}
	second.SentAt = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	attach(t, db, conv.ID, second, domain.AssignmentSync)

	got, err := db.GetConversation(ctx, conv.ID)
	if err != nil {
		t.Fatalf("GetConversation() error: %v", err)
	}
	if got.MessageCount != 2 {
		t.Errorf("MessageCount = %d, want 2", got.MessageCount)
	}
	// alice, bob, carol across both messages.
	if got.ParticipantCount != 3 {
		t.Errorf("ParticipantCount = %d, want 3", got.ParticipantCount)
	}
	if !got.FirstMessageAt.Equal(first.SentAt) {
		t.Errorf("FirstMessageAt = %v, want %v", got.FirstMessageAt, first.SentAt)
	}
	if !got.LastMessageAt.Equal(second.SentAt) {
		t.Errorf("LastMessageAt = %v, want %v", got.LastMessageAt, second.SentAt)
	}

	msgs, err := db.ListConversationMessages(ctx, conv.ID)
	if err != nil {
		t.Fatalf("ListConversationMessages() error: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("len(messages) = %d, want 2", len(msgs))
	}
	if msgs[0].ID != "msg-1" || msgs[1].ID != "msg-2" {
		t.Errorf("messages out of order: %s, %s", msgs[0].ID, msgs[1].ID)
	}

	parts, err := db.ListParticipants(ctx, conv.ID)
	if err != nil {
		t.Fatalf("ListParticipants() error: %v", err)
	}
	if len(parts) != 3 {
		t.Fatalf("len(participants) = %d, want 3", len(parts))
	}
	for _, p := range parts {
		if p.Address == "alice@example.com" && p.MessageCount != 2 {
			t.Errorf("alice MessageCount = %d, want 2", p.MessageCount)
		}
	}
}

func TestAttachMessage_OutOfOrderArrival(t *testing.T) {
	db := newTestDB(t)
	seedAccount(t, db)
	ctx := context.Background()

	conv, _, err := db.FindOrCreateConversationByThreadKey(ctx, "acc-1:t-1", "Hello World")
	if err != nil {
		t.Fatalf("FindOrCreateConversationByThreadKey() error: %v", err)
	}

	newer := testMessage("msg-1", "pm-1", "t-1")
	newer.SentAt = time.Date(2026, 6, 20, 9, 0, 0, 0, time.UTC)
	attach(t, db, conv.ID, newer, domain.AssignmentSync)

	older := testMessage("msg-2", "pm-2", "t-1")
	older.SentAt = time.Date(2026, 6, 10, 9, 0, 0, 0, time.UTC)
	attach(t, db, conv.ID, older, domain.AssignmentSync)

	got, err := db.GetConversation(ctx, conv.ID)
	if err != nil {
		t.Fatalf("GetConversation() error: %v", err)
	}
	if !got.FirstMessageAt.Equal(older.SentAt) {
		t.Errorf("FirstMessageAt = %v, want %v", got.FirstMessageAt, older.SentAt)
	}
	if !got.LastMessageAt.Equal(newer.SentAt) {
		t.Errorf("LastMessageAt = %v, want %v", got.LastMessageAt, newer.SentAt)
	}

	// Participant bounds track both directions too.
	parts, err := db.ListParticipants(ctx, conv.ID)
	if err != nil {
		t.Fatalf("ListParticipants() error: %v", err)
	}
	for _, p := range parts {
		if p.Address != "alice@example.com" {
			continue
		}
		if !p.FirstSeen.Equal(older.SentAt) {
			t.Errorf("alice FirstSeen = %v, want %v", p.FirstSeen, older.SentAt)
		}
		if !p.LastSeen.Equal(newer.SentAt) {
			t.Errorf("alice LastSeen = %v, want %v", p.LastSeen, newer.SentAt)
		}
	}
}

func TestAttachMessage_ClearsProcessingCursor(t *testing.T) {
	db := newTestDB(t)
	seedAccount(t, db)
	ctx := context.Background()

	conv, _, err := db.FindOrCreateConversationByThreadKey(ctx, "acc-1:t-1", "Hello World")
	if err != nil {
		t.Fatalf("FindOrCreateConversationByThreadKey() error: %v", err)
	}
	attach(t, db, conv.ID, testMessage("msg-1", "pm-1", "t-1"), domain.AssignmentSync)

	if err := db.MarkConversationProcessed(ctx, conv.ID, time.Now()); err != nil {
		t.Fatalf("MarkConversationProcessed() error: %v", err)
	}
	got, err := db.GetConversation(ctx, conv.ID)
	if err != nil {
		t.Fatalf("GetConversation() error: %v", err)
	}
	if got.NeedsProcessing() {
		t.Fatal("NeedsProcessing() = true after mark, want false")
	}

	attach(t, db, conv.ID, testMessage("msg-2", "pm-2", "t-1"), domain.AssignmentSync)

	got, err = db.GetConversation(ctx, conv.ID)
	if err != nil {
		t.Fatalf("GetConversation() error: %v", err)
	}
	if !got.NeedsProcessing() {
		t.Error("NeedsProcessing() = false after new message, want true")
	}
}

func TestUpsertMessage_RevisionKeepsConversationMembership(t *testing.T) {
	db := newTestDB(t)
	seedAccount(t, db)
	ctx := context.Background()

	conv, _, err := db.FindOrCreateConversationByThreadKey(ctx, "acc-1:t-1", "Hello World")
	if err != nil {
		t.Fatalf("FindOrCreateConversationByThreadKey() error: %v", err)
	}
	attach(t, db, conv.ID, testMessage("msg-1", "pm-1", "t-1"), domain.AssignmentSync)
	if err := db.MarkConversationProcessed(ctx, conv.ID, time.Now()); err != nil {
		t.Fatalf("MarkConversationProcessed() error: %v", err)
	}

	edited := testMessage("msg-2", "pm-1", "t-1")
	edited.Body = "Edited body."
	if _, err := db.UpsertMessage(ctx, edited); err != nil {
		t.Fatalf("UpsertMessage(edited) error: %v", err)
	}

	msgs, err := db.ListConversationMessages(ctx, conv.ID)
	if err != nil {
		t.Fatalf("ListConversationMessages() error: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("len(messages) = %d, want 1", len(msgs))
	}
	if msgs[0].Body != "Edited body." {
		t.Errorf("Body = %q, want edited revision", msgs[0].Body)
	}

	got, err := db.GetConversation(ctx, conv.ID)
	if err != nil {
		t.Fatalf("GetConversation() error: %v", err)
	}
	if got.MessageCount != 1 {
		t.Errorf("MessageCount = %d, want 1: a revision is not a new message", got.MessageCount)
	}
	if !got.NeedsProcessing() {
		t.Error("NeedsProcessing() = false after edit, want true")
	}
}

func TestAttachMessage_SecondAutoLinkRejected(t *testing.T) {
	db := newTestDB(t)
	seedAccount(t, db)
	ctx := context.Background()

	convA, _, err := db.FindOrCreateConversationByThreadKey(ctx, "acc-1:t-1", "Hello")
	if err != nil {
		t.Fatalf("FindOrCreateConversationByThreadKey() error: %v", err)
	}
	convB, _, err := db.FindOrCreateConversationByThreadKey(ctx, "acc-1:t-2", "World")
	if err != nil {
		t.Fatalf("FindOrCreateConversationByThreadKey() error: %v", err)
	}

	msg := testMessage("msg-1", "pm-1", "t-1")
	attach(t, db, convA.ID, msg, domain.AssignmentSync)

	err = db.AttachMessage(ctx, &domain.ConversationMessage{
		ConversationID: convB.ID,
		MessageID:      msg.ID,
		Source:         domain.AssignmentHeuristic,
		Confidence:     0.8,
	}, msg)
	if err == nil {
		t.Fatal("second automatic link should be rejected")
	}
}

func TestAssignMessage_ManualLinkCoexists(t *testing.T) {
	db := newTestDB(t)
	seedAccount(t, db)
	ctx := context.Background()

	convA, _, err := db.FindOrCreateConversationByThreadKey(ctx, "acc-1:t-1", "Hello")
	if err != nil {
		t.Fatalf("FindOrCreateConversationByThreadKey() error: %v", err)
	}
	convB, _, err := db.FindOrCreateConversationByThreadKey(ctx, "acc-1:t-2", "World")
	if err != nil {
		t.Fatalf("FindOrCreateConversationByThreadKey() error: %v", err)
	}

	msg := testMessage("msg-1", "pm-1", "t-1")
	attach(t, db, convA.ID, msg, domain.AssignmentSync)

	if err := db.AssignMessage(ctx, convB.ID, msg.ID); err != nil {
		t.Fatalf("AssignMessage() error: %v", err)
	}
	// Re-assigning the same pair is a no-op.
	if err := db.AssignMessage(ctx, convB.ID, msg.ID); err != nil {
		t.Fatalf("repeated AssignMessage() error: %v", err)
	}

	msgsA, err := db.ListConversationMessages(ctx, convA.ID)
	if err != nil {
		t.Fatalf("ListConversationMessages(A) error: %v", err)
	}
	msgsB, err := db.ListConversationMessages(ctx, convB.ID)
	if err != nil {
		t.Fatalf("ListConversationMessages(B) error: %v", err)
	}
	if len(msgsA) != 1 || len(msgsB) != 1 {
		t.Errorf("message visible in %d + %d conversations, want 1 + 1", len(msgsA), len(msgsB))
	}

	gotB, err := db.GetConversation(ctx, convB.ID)
	if err != nil {
		t.Fatalf("GetConversation(B) error: %v", err)
	}
	if gotB.MessageCount != 1 {
		t.Errorf("convB MessageCount = %d, want 1", gotB.MessageCount)
	}
}

func TestFindHeuristicConversation(t *testing.T) {
	db := newTestDB(t)
	seedAccount(t, db)
	ctx := context.Background()

	conv, _, err := db.FindOrCreateConversationByThreadKey(ctx, "acc-1:t-1", "Budget Review")
	if err != nil {
		t.Fatalf("FindOrCreateConversationByThreadKey() error: %v", err)
	}
	msg := testMessage("msg-1", "pm-1", "t-1")
	msg.Subject = "Budget Review"
	msg.SentAt = time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC)
	attach(t, db, conv.ID, msg, domain.AssignmentSync)

	since := msg.SentAt.Add(-7 * 24 * time.Hour)

	tests := []struct {
		name      string
		subject   string
		addresses []string
		since     time.Time
		found     bool
	}{
		{"match on subject and participant", "Budget Review", []string{"alice@example.com"}, since, true},
		{"case-insensitive title", "budget review", []string{"bob@example.com"}, since, true},
		{"uppercase address matches", "Budget Review", []string{"ALICE@example.com"}, since, true},
		{"no shared participant", "Budget Review", []string{"stranger@example.com"}, since, false},
		{"different subject", "Lunch Plans", []string{"alice@example.com"}, since, false},
		{"outside recency window", "Budget Review", []string{"alice@example.com"}, msg.SentAt.Add(time.Hour), false},
		{"empty subject never matches", "", []string{"alice@example.com"}, since, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.FindHeuristicConversation(ctx, tt.subject, tt.addresses, tt.since)
			if err != nil {
				t.Fatalf("FindHeuristicConversation() error: %v", err)
			}
			if tt.found && got == nil {
				t.Fatal("got nil, want conversation")
			}
			if !tt.found && got != nil {
				t.Fatalf("got conversation %s, want nil", got.ID)
			}
		})
	}
}

func TestFindHeuristicConversation_SkipsArchived(t *testing.T) {
	db := newTestDB(t)
	seedAccount(t, db)
	ctx := context.Background()

	conv, _, err := db.FindOrCreateConversationByThreadKey(ctx, "acc-1:t-1", "Budget Review")
	if err != nil {
		t.Fatalf("FindOrCreateConversationByThreadKey() error: %v", err)
	}
	msg := testMessage("msg-1", "pm-1", "t-1")
	msg.Subject = "Budget Review"
	attach(t, db, conv.ID, msg, domain.AssignmentSync)

	if err := db.ArchiveConversation(ctx, conv.ID); err != nil {
		t.Fatalf("ArchiveConversation() error: %v", err)
	}

	got, err := db.FindHeuristicConversation(ctx, "Budget Review", []string{"alice@example.com"}, msg.SentAt.Add(-time.Hour))
	if err != nil {
		t.Fatalf("FindHeuristicConversation() error: %v", err)
	}
	if got != nil {
		t.Errorf("got archived conversation %s, want nil", got.ID)
	}
}

func TestListConversations_Filters(t *testing.T) {
	db := newTestDB(t)
	seedAccount(t, db)
	ctx := context.Background()

	convA, _, err := db.FindOrCreateConversationByThreadKey(ctx, "acc-1:t-1", "First")
	if err != nil {
		t.Fatalf("FindOrCreateConversationByThreadKey() error: %v", err)
	}
	attach(t, db, convA.ID, testMessage("msg-1", "pm-1", "t-1"), domain.AssignmentSync)

	convB, _, err := db.FindOrCreateConversationByThreadKey(ctx, "acc-1:t-2", "Second")
	if err != nil {
		t.Fatalf("FindOrCreateConversationByThreadKey() error: %v", err)
	}
	attach(t, db, convB.ID, testMessage("msg-2", "pm-2", "t-2"), domain.AssignmentSync)

	if err := db.ArchiveConversation(ctx, convB.ID); err != nil {
		t.Fatalf("ArchiveConversation() error: %v", err)
	}
	if err := db.MarkConversationProcessed(ctx, convA.ID, time.Now()); err != nil {
		t.Fatalf("MarkConversationProcessed() error: %v", err)
	}

	all, err := db.ListConversations(ctx, store.ListConversationOptions{IncludeArchived: true})
	if err != nil {
		t.Fatalf("ListConversations(all) error: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("len(all) = %d, want 2", len(all))
	}

	active, err := db.ListConversations(ctx, store.ListConversationOptions{})
	if err != nil {
		t.Fatalf("ListConversations(active) error: %v", err)
	}
	if len(active) != 1 || active[0].ID != convA.ID {
		t.Errorf("active = %v, want only %s", active, convA.ID)
	}

	pending, err := db.ListConversationsNeedingProcessing(ctx, 10)
	if err != nil {
		t.Fatalf("ListConversationsNeedingProcessing() error: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("len(pending) = %d, want 0: convA processed, convB archived", len(pending))
	}
}

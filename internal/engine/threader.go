package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/dbower44022/CRMExtender-sub006/internal/domain"
	"github.com/dbower44022/CRMExtender-sub006/internal/store"
)

// Threader places each newly stored message into a conversation. Messages
// carrying a provider thread identifier map deterministically onto one
// conversation per thread; the rest go through subject and participant
// matching, with a fresh conversation as the fallback.
type Threader struct {
	store         store.Store
	recencyWindow time.Duration
	confidence    float64
}

func NewThreader(s store.Store, recencyWindow time.Duration, confidence float64) *Threader {
	if recencyWindow <= 0 {
		recencyWindow = 7 * 24 * time.Hour
	}
	if confidence <= 0 || confidence > 1 {
		confidence = 0.8
	}
	return &Threader{store: s, recencyWindow: recencyWindow, confidence: confidence}
}

// Assign links msg into a conversation and returns it. The account scopes
// the thread key, so identical provider thread IDs from different accounts
// never collide.
func (t *Threader) Assign(ctx context.Context, account *domain.Account, msg *domain.Message) (*domain.Conversation, error) {
	if msg.ProviderThreadID != "" {
		return t.assignByThread(ctx, account, msg)
	}
	return t.assignHeuristic(ctx, msg)
}

func (t *Threader) assignByThread(ctx context.Context, account *domain.Account, msg *domain.Message) (*domain.Conversation, error) {
	threadKey := account.ID + ":" + msg.ProviderThreadID
	conv, _, err := t.store.FindOrCreateConversationByThreadKey(ctx, threadKey, conversationTitle(msg))
	if err != nil {
		return nil, err
	}

	err = t.store.AttachMessage(ctx, &domain.ConversationMessage{
		ConversationID: conv.ID,
		MessageID:      msg.ID,
		Source:         domain.AssignmentSync,
		Confidence:     1.0,
		Reviewed:       true,
	}, msg)
	if err != nil {
		return nil, fmt.Errorf("failed to attach message to thread conversation: %w", err)
	}
	return conv, nil
}

func (t *Threader) assignHeuristic(ctx context.Context, msg *domain.Message) (*domain.Conversation, error) {
	subject := domain.NormalizeSubject(msg.Subject)
	since := msg.SentAt.Add(-t.recencyWindow)

	conv, err := t.store.FindHeuristicConversation(ctx, subject, msg.ParticipantAddresses(), since)
	if err != nil {
		return nil, err
	}

	if conv != nil {
		err = t.store.AttachMessage(ctx, &domain.ConversationMessage{
			ConversationID: conv.ID,
			MessageID:      msg.ID,
			Source:         domain.AssignmentHeuristic,
			Confidence:     t.confidence,
			Reviewed:       false,
		}, msg)
		if err != nil {
			return nil, fmt.Errorf("failed to attach message to matched conversation: %w", err)
		}
		return conv, nil
	}

	// Nothing matched: the message starts its own conversation. That is a
	// certain assignment, not a guess.
	conv = &domain.Conversation{Title: conversationTitle(msg)}
	if err := t.store.CreateConversation(ctx, conv); err != nil {
		return nil, err
	}
	err = t.store.AttachMessage(ctx, &domain.ConversationMessage{
		ConversationID: conv.ID,
		MessageID:      msg.ID,
		Source:         domain.AssignmentHeuristic,
		Confidence:     1.0,
		Reviewed:       true,
	}, msg)
	if err != nil {
		return nil, fmt.Errorf("failed to attach message to new conversation: %w", err)
	}
	return conv, nil
}

// conversationTitle derives a display title from the normalized subject,
// falling back to the sender for subjectless messages.
func conversationTitle(msg *domain.Message) string {
	if title := domain.NormalizeSubject(msg.Subject); title != "" {
		return title
	}
	return msg.From.String()
}

package domain

import "time"

// AssignmentSource records how a message ended up linked to a conversation.
type AssignmentSource string

const (
	AssignmentSync      AssignmentSource = "sync"
	AssignmentHeuristic AssignmentSource = "heuristic"
	AssignmentManual    AssignmentSource = "manual"
)

// Conversation is a logical thread of messages. ThreadKey is set when the
// conversation was created from a provider-native thread identifier and is
// empty for heuristically-created conversations. LastProcessedAt is the
// AI-classifier cursor: nil means the conversation needs (re)processing.
type Conversation struct {
	ID               string
	ThreadKey        string
	Title            string
	MessageCount     int
	ParticipantCount int
	FirstMessageAt   time.Time
	LastMessageAt    time.Time
	LastProcessedAt  *time.Time
	Archived         bool
	CreatedAt        time.Time
}

func (c *Conversation) NeedsProcessing() bool {
	return c.LastProcessedAt == nil
}

// ConversationMessage is the many-to-many link between a conversation and a
// message. Automatic assignment produces exactly one link per message; only
// the manual path may add further links.
type ConversationMessage struct {
	ConversationID string
	MessageID      string
	Source         AssignmentSource
	Confidence     float64
	Reviewed       bool
	CreatedAt      time.Time
}

// Participant is the per-conversation rollup of one raw address. ContactID
// is empty until the resolver matches the address to a known contact.
type Participant struct {
	ConversationID string
	Address        string
	ContactID      string
	MessageCount   int
	FirstSeen      time.Time
	LastSeen       time.Time
}

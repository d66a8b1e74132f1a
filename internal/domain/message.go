package domain

import (
	"strings"
	"time"
)

type Address struct {
	Name  string
	Email string
}

func (a Address) String() string {
	if a.Name == "" {
		return a.Email
	}
	return a.Name + " <" + a.Email + ">"
}

// RecipientRole is the position an address held on the original message.
type RecipientRole string

const (
	RoleTo  RecipientRole = "to"
	RoleCc  RecipientRole = "cc"
	RoleBcc RecipientRole = "bcc"
)

type Recipient struct {
	Address string
	Name    string
	Role    RecipientRole
}

// Message is one normalized unit of communication. (AccountID,
// ProviderMessageID) is the dedup key among current revisions; a
// provider-side edit inserts a new revision and flips IsCurrent on the
// prior row instead of mutating it.
type Message struct {
	ID                string
	AccountID         string
	ProviderMessageID string
	ProviderThreadID  string
	From              Address
	Recipients        []Recipient
	Subject           string
	Body              string
	SentAt            time.Time
	Revision          int
	IsCurrent         bool
	CreatedAt         time.Time
}

// ParticipantAddresses returns the lowercased, deduplicated set of all
// addresses on the message, sender included, in first-seen order.
func (m *Message) ParticipantAddresses() []string {
	seen := make(map[string]struct{}, len(m.Recipients)+1)
	var addrs []string

	add := func(a string) {
		a = strings.ToLower(strings.TrimSpace(a))
		if a == "" {
			return
		}
		if _, ok := seen[a]; ok {
			return
		}
		seen[a] = struct{}{}
		addrs = append(addrs, a)
	}

	add(m.From.Email)
	for _, r := range m.Recipients {
		add(r.Address)
	}
	return addrs
}

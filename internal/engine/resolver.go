package engine

import (
	"context"
	"fmt"

	"github.com/dbower44022/CRMExtender-sub006/internal/domain"
	"github.com/dbower44022/CRMExtender-sub006/internal/store"
)

// Resolver matches conversation participants against the contact registry.
// Unknown addresses stay as raw participant rows; no contact is ever
// created implicitly.
type Resolver struct {
	store store.Store
}

func NewResolver(s store.Store) *Resolver {
	return &Resolver{store: s}
}

// Resolve links every participant address on msg that belongs to a known
// contact and records the interaction against that contact.
func (r *Resolver) Resolve(ctx context.Context, conversationID string, msg *domain.Message) error {
	for _, addr := range msg.ParticipantAddresses() {
		contact, err := r.store.GetContactByEmail(ctx, addr)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", addr, err)
		}
		if contact == nil {
			continue
		}
		if err := r.store.LinkParticipant(ctx, conversationID, addr, contact.ID); err != nil {
			return err
		}
		if err := r.store.RecordContactInteraction(ctx, contact.ID, msg.SentAt); err != nil {
			return err
		}
	}
	return nil
}

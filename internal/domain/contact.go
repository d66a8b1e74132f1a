package domain

import "time"

// Contact is a known identifier record. Email is stored lowercased and is
// the lookup key for participant resolution.
type Contact struct {
	ID                string
	Email             string
	Name              string
	Company           string
	InteractionCount  int
	LastInteractionAt time.Time
	CreatedAt         time.Time
}

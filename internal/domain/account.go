package domain

import "time"

// Account is one connected communication source. Cursor is an opaque token
// issued by the provider; an empty cursor means the account has never been
// synced. Only the sync orchestrator writes Cursor and InitialSyncDone.
type Account struct {
	ID              string
	Email           string
	Provider        string
	DisplayName     string
	Cursor          string
	InitialSyncDone bool
	BackfillDays    int
	CreatedAt       time.Time
}

// BackfillWindow returns the initial-sync window as a duration.
func (a *Account) BackfillWindow() time.Duration {
	days := a.BackfillDays
	if days <= 0 {
		days = 30
	}
	return time.Duration(days) * 24 * time.Hour
}

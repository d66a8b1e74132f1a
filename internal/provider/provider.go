package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dbower44022/CRMExtender-sub006/internal/domain"
)

// ErrCursorExpired is returned by FetchSince when the upstream no longer
// honors the presented cursor. It is distinct from "no changes": the caller
// must discard the cursor and fall back to a full backfill.
var ErrCursorExpired = errors.New("sync cursor no longer honored by provider")

// AuthError indicates that authentication failed or expired for an account.
// The orchestrator treats it as recoverable: skip the account, keep the run.
type AuthError struct {
	AccountID string
	Err       error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed for account %s: %v", e.AccountID, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// Session is provider-specific authenticated state. It is opaque to the
// engine and only meaningful to the adapter that produced it.
type Session any

// RawMessage is a provider-native message before normalization. Data is
// adapter-private; the engine only ever hands it back to ParseMessage.
type RawMessage struct {
	ProviderMessageID string
	Data              any
}

// NormalizedMessage is the provider-independent representation produced by
// ParseMessage. The body carries both parts so the content cleaner can pick.
type NormalizedMessage struct {
	ProviderMessageID string
	ProviderThreadID  string
	From              domain.Address
	Recipients        []domain.Recipient
	Subject           string
	BodyText          string
	BodyHTML          string
	SentAt            time.Time
}

// Adapter is the polymorphic provider boundary. The orchestrator depends
// only on this interface and never branches on provider identity. Cursors
// returned by the fetch calls are uninterpreted strings end-to-end.
type Adapter interface {
	// Name returns the provider identifier accounts are registered under.
	Name() string

	// Authenticate establishes a session for the account, returning an
	// *AuthError when credentials are missing, invalid, or expired.
	Authenticate(ctx context.Context, account *domain.Account) (Session, error)

	// FetchInitial performs the window-bounded bulk fetch for an account
	// with no prior cursor, returning the raw batch and a fresh cursor.
	FetchInitial(ctx context.Context, s Session, backfill time.Duration) ([]RawMessage, string, error)

	// FetchSince returns only items changed since cursor was issued, plus
	// the advanced cursor. Returns ErrCursorExpired when the upstream
	// rejects the cursor itself.
	FetchSince(ctx context.Context, s Session, cursor string) ([]RawMessage, string, error)

	// ParseMessage normalizes one raw message.
	ParseMessage(raw RawMessage) (*NormalizedMessage, error)
}

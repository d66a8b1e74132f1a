// Package gmail implements the provider adapter for Gmail on top of the
// official API client. Cursors are Gmail history IDs carried as opaque
// strings; their meaning never leaves this package.
package gmail

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/dbower44022/CRMExtender-sub006/internal/domain"
	"github.com/dbower44022/CRMExtender-sub006/internal/provider"
	"github.com/dbower44022/CRMExtender-sub006/internal/store"
)

const userID = "me"

// pageSize bounds one Messages.List page; backfills iterate pages.
const pageSize = 100

// Adapter implements provider.Adapter for Gmail.
type Adapter struct {
	tokenStore *store.KeyringTokenStore
}

var _ provider.Adapter = (*Adapter)(nil)

func New(tokenStore *store.KeyringTokenStore) *Adapter {
	return &Adapter{tokenStore: tokenStore}
}

func (a *Adapter) Name() string { return "gmail" }

type session struct {
	svc       *gmailapi.Service
	accountID string
}

// Authenticate builds an API session from the account's stored token. A
// missing or unusable token is an AuthError: the account is skipped, not
// the run.
func (a *Adapter) Authenticate(ctx context.Context, account *domain.Account) (provider.Session, error) {
	if err := EnsureCredentials(); err != nil {
		return nil, err
	}

	token, err := a.tokenStore.LoadToken(account.ID)
	if err != nil {
		return nil, &provider.AuthError{AccountID: account.ID, Err: err}
	}

	svc, err := gmailapi.NewService(ctx, option.WithTokenSource(oauthConfig.TokenSource(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}
	return &session{svc: svc, accountID: account.ID}, nil
}

// Authorize runs the interactive OAuth flow for a new account, stores the
// token, and returns the mailbox profile. Used at account registration,
// never during sync.
func (a *Adapter) Authorize(ctx context.Context, accountID string) (email string, err error) {
	if err := EnsureCredentials(); err != nil {
		return "", err
	}

	token, err := authenticate(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to authenticate gmail: %w", err)
	}
	if err := a.tokenStore.SaveToken(accountID, token); err != nil {
		return "", fmt.Errorf("failed to save gmail token: %w", err)
	}

	svc, err := gmailapi.NewService(ctx, option.WithTokenSource(oauthConfig.TokenSource(ctx, token)))
	if err != nil {
		return "", fmt.Errorf("failed to create gmail service: %w", err)
	}
	profile, err := svc.Users.GetProfile(userID).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to fetch gmail profile: %w", err)
	}
	return profile.EmailAddress, nil
}

// RemoveToken discards the stored credential for an account.
func (a *Adapter) RemoveToken(accountID string) error {
	return a.tokenStore.DeleteToken(accountID)
}

// FetchInitial pulls the backfill window and returns the mailbox's current
// history ID as the cursor. The profile is read first so changes arriving
// during the backfill are covered by the next incremental fetch.
func (a *Adapter) FetchInitial(ctx context.Context, s provider.Session, backfill time.Duration) ([]provider.RawMessage, string, error) {
	sess, err := a.session(s)
	if err != nil {
		return nil, "", err
	}

	profile, err := sess.svc.Users.GetProfile(userID).Context(ctx).Do()
	if err != nil {
		return nil, "", a.wrapAPIError(sess, "failed to fetch gmail profile", err)
	}
	cursor := strconv.FormatUint(profile.HistoryId, 10)

	days := int(backfill.Hours() / 24)
	if days < 1 {
		days = 1
	}
	query := fmt.Sprintf("newer_than:%dd", days)

	var raws []provider.RawMessage
	pageToken := ""
	for {
		call := sess.svc.Users.Messages.List(userID).Q(query).MaxResults(pageSize)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Context(ctx).Do()
		if err != nil {
			return nil, "", a.wrapAPIError(sess, "failed to list gmail messages", err)
		}

		for _, m := range resp.Messages {
			msg, err := sess.svc.Users.Messages.Get(userID, m.Id).
				Format("full").Context(ctx).Do()
			if err != nil {
				return nil, "", a.wrapAPIError(sess, fmt.Sprintf("failed to get gmail message %s", m.Id), err)
			}
			raws = append(raws, provider.RawMessage{ProviderMessageID: msg.Id, Data: msg})
		}

		if resp.NextPageToken == "" || len(resp.Messages) == 0 {
			break
		}
		pageToken = resp.NextPageToken
	}

	return raws, cursor, nil
}

// FetchSince replays mailbox history from the cursor. Gmail answers 404
// when a history ID has aged out; that surfaces as ErrCursorExpired so the
// engine falls back to a fresh backfill.
func (a *Adapter) FetchSince(ctx context.Context, s provider.Session, cursor string) ([]provider.RawMessage, string, error) {
	sess, err := a.session(s)
	if err != nil {
		return nil, "", err
	}

	startID, err := strconv.ParseUint(cursor, 10, 64)
	if err != nil {
		// An unreadable cursor is as good as an expired one.
		return nil, "", provider.ErrCursorExpired
	}

	newCursor := cursor
	seen := make(map[string]struct{})
	var raws []provider.RawMessage

	pageToken := ""
	for {
		call := sess.svc.Users.History.List(userID).
			StartHistoryId(startID).
			HistoryTypes("messageAdded")
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Context(ctx).Do()
		if err != nil {
			var apiErr *googleapi.Error
			if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
				return nil, "", provider.ErrCursorExpired
			}
			return nil, "", a.wrapAPIError(sess, "failed to fetch gmail history", err)
		}

		if resp.HistoryId > 0 {
			newCursor = strconv.FormatUint(resp.HistoryId, 10)
		}

		for _, h := range resp.History {
			for _, added := range h.MessagesAdded {
				if added.Message == nil {
					continue
				}
				id := added.Message.Id
				if _, ok := seen[id]; ok {
					continue
				}
				seen[id] = struct{}{}

				msg, err := sess.svc.Users.Messages.Get(userID, id).
					Format("full").Context(ctx).Do()
				if err != nil {
					var apiErr *googleapi.Error
					if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
						// Deleted between the history event and now.
						continue
					}
					return nil, "", a.wrapAPIError(sess, fmt.Sprintf("failed to get gmail message %s", id), err)
				}
				raws = append(raws, provider.RawMessage{ProviderMessageID: msg.Id, Data: msg})
			}
		}

		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	return raws, newCursor, nil
}

// ParseMessage normalizes a raw Gmail payload.
func (a *Adapter) ParseMessage(raw provider.RawMessage) (*provider.NormalizedMessage, error) {
	msg, ok := raw.Data.(*gmailapi.Message)
	if !ok || msg == nil {
		return nil, fmt.Errorf("unexpected payload type for message %s", raw.ProviderMessageID)
	}
	return mapMessage(msg)
}

func (a *Adapter) session(s provider.Session) (*session, error) {
	sess, ok := s.(*session)
	if !ok || sess == nil {
		return nil, fmt.Errorf("invalid gmail session")
	}
	return sess, nil
}

// wrapAPIError maps credential rejections onto AuthError and wraps the rest.
func (a *Adapter) wrapAPIError(sess *session, msg string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && (apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden) {
		return &provider.AuthError{AccountID: sess.accountID, Err: err}
	}
	return fmt.Errorf("%s: %w", msg, err)
}

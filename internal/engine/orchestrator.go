// Package engine drives incremental ingestion: it pulls raw messages from
// provider adapters, normalizes and stores them, threads them into
// conversations, and resolves participants against the contact registry.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/dbower44022/CRMExtender-sub006/internal/clean"
	"github.com/dbower44022/CRMExtender-sub006/internal/config"
	"github.com/dbower44022/CRMExtender-sub006/internal/domain"
	"github.com/dbower44022/CRMExtender-sub006/internal/provider"
	"github.com/dbower44022/CRMExtender-sub006/internal/ratelimit"
	"github.com/dbower44022/CRMExtender-sub006/internal/store"
)

// AccountResult summarizes one account's sync run.
type AccountResult struct {
	AccountID string
	Email     string
	Status    domain.SyncStatus
	Fetched   int
	Stored    int
	New       int
	Updated   int
	Skipped   int
	Err       error
}

// RunReport aggregates the per-account results of one engine run.
type RunReport struct {
	StartedAt time.Time
	Duration  time.Duration
	Results   []AccountResult
}

// Failed reports whether any account finished in a failed state. Skipped
// accounts do not count: an expired credential is the account's problem,
// not the run's.
func (r *RunReport) Failed() bool {
	for _, res := range r.Results {
		if res.Status == domain.SyncFailed {
			return true
		}
	}
	return false
}

// Orchestrator runs the ingestion cycle across accounts. Accounts sync
// concurrently and independently: one account's failure never touches
// another's cursor or data.
type Orchestrator struct {
	store        store.Store
	adapters     map[string]provider.Adapter
	limits       *ratelimit.Registry
	threader     *Threader
	resolver     *Resolver
	clean        clean.Func
	fetchRetries int
}

func NewOrchestrator(s store.Store, cfg *config.Config, adapters ...provider.Adapter) *Orchestrator {
	byName := make(map[string]provider.Adapter, len(adapters))
	for _, a := range adapters {
		byName[a.Name()] = a
	}
	return &Orchestrator{
		store:    s,
		adapters: byName,
		limits:   ratelimit.NewRegistry(cfg.Limits.RequestsPerSecond, cfg.Limits.Burst),
		threader: NewThreader(s,
			time.Duration(cfg.Threading.RecencyWindowDays)*24*time.Hour,
			cfg.Threading.HeuristicConfidence),
		resolver:     NewResolver(s),
		clean:        clean.Default,
		fetchRetries: cfg.Sync.FetchRetries,
	}
}

// RunAll syncs every registered account concurrently and returns the
// aggregate report once all runs finish.
func (o *Orchestrator) RunAll(ctx context.Context) (*RunReport, error) {
	accounts, err := o.store.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	report := &RunReport{
		StartedAt: time.Now(),
		Results:   make([]AccountResult, len(accounts)),
	}

	var wg sync.WaitGroup
	for i := range accounts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			report.Results[i] = o.RunAccount(ctx, &accounts[i])
		}(i)
	}
	wg.Wait()

	report.Duration = time.Since(report.StartedAt)
	return report, nil
}

// RunAccount syncs a single account end to end. The cursor advances only
// after the whole batch is durably stored; any earlier exit leaves it
// untouched so the next run re-covers the same ground.
func (o *Orchestrator) RunAccount(ctx context.Context, account *domain.Account) AccountResult {
	result := AccountResult{AccountID: account.ID, Email: account.Email}
	if err := ctx.Err(); err != nil {
		result.Status = domain.SyncCancelled
		result.Err = err
		return result
	}

	syncType := domain.SyncIncremental
	if account.Cursor == "" {
		syncType = domain.SyncInitial
	}

	entry := &domain.SyncLogEntry{
		AccountID:    account.ID,
		Type:         syncType,
		CursorBefore: account.Cursor,
		StartedAt:    time.Now().UTC(),
	}
	if err := o.store.BeginSyncLog(ctx, entry); err != nil {
		result.Status = domain.SyncFailed
		result.Err = err
		return result
	}

	result = o.runAccount(ctx, account, entry, syncType)

	entry.Status = result.Status
	entry.Fetched = result.Fetched
	entry.Stored = result.Stored
	entry.New = result.New
	entry.Updated = result.Updated
	if result.Err != nil {
		entry.Error = result.Err.Error()
	}
	entry.FinishedAt = time.Now().UTC()
	// The log write uses a fresh context: a cancelled run still gets its
	// audit record finalized.
	if err := o.store.FinishSyncLog(context.WithoutCancel(ctx), entry); err != nil {
		log.Printf("[sync] failed to finalize sync log for account %s: %v", account.ID, err)
	}
	return result
}

func (o *Orchestrator) runAccount(ctx context.Context, account *domain.Account, entry *domain.SyncLogEntry, syncType domain.SyncType) AccountResult {
	result := AccountResult{AccountID: account.ID, Email: account.Email}

	adapter, ok := o.adapters[account.Provider]
	if !ok {
		result.Status = domain.SyncFailed
		result.Err = fmt.Errorf("no adapter registered for provider %q", account.Provider)
		return result
	}

	session, err := adapter.Authenticate(ctx, account)
	if err != nil {
		if provider.IsAuthError(err) {
			log.Printf("[sync] skipping account %s: %v", account.Email, err)
			result.Status = domain.SyncSkipped
			result.Err = err
			return result
		}
		result.Status = statusForError(ctx, err)
		result.Err = fmt.Errorf("failed to authenticate: %w", err)
		return result
	}

	raws, cursor, err := o.fetch(ctx, adapter, session, account, &syncType)
	if err != nil {
		if status := statusForError(ctx, err); status == domain.SyncCancelled {
			result.Status = status
		} else {
			// Retries are exhausted: the account sits out this run and is
			// retried from the same cursor next time, like an auth failure.
			log.Printf("[sync] skipping account %s: %v", account.Email, err)
			result.Status = domain.SyncSkipped
		}
		result.Err = err
		return result
	}
	entry.Type = syncType
	result.Fetched = len(raws)
	log.Printf("[sync] fetched %d messages for account %s (%s)", len(raws), account.Email, syncType)

	for _, raw := range raws {
		if ctx.Err() != nil {
			result.Status = domain.SyncCancelled
			result.Err = ctx.Err()
			return result
		}
		outcome, _, err := o.ingest(ctx, account, adapter, raw)
		if err != nil {
			// One bad message must not sink the batch.
			log.Printf("[sync] skipping message %s for account %s: %v", raw.ProviderMessageID, account.Email, err)
			result.Skipped++
			continue
		}
		switch outcome {
		case store.UpsertCreated:
			result.Stored++
			result.New++
		case store.UpsertUpdated:
			result.Stored++
			result.Updated++
		}
	}

	if ctx.Err() != nil {
		result.Status = domain.SyncCancelled
		result.Err = ctx.Err()
		return result
	}

	// Last step: only a fully stored batch may move the cursor.
	if cursor != "" && cursor != account.Cursor {
		if err := o.store.AdvanceCursor(ctx, account.ID, cursor); err != nil {
			result.Status = domain.SyncFailed
			result.Err = err
			return result
		}
		entry.CursorAfter = cursor
	}

	result.Status = domain.SyncSuccess
	log.Printf("[sync] account %s done: %d new, %d updated, %d skipped", account.Email, result.New, result.Updated, result.Skipped)
	return result
}

// fetch pulls the raw batch, retrying transient failures with exponential
// backoff. An expired cursor demotes the run to a fresh initial fetch.
func (o *Orchestrator) fetch(ctx context.Context, adapter provider.Adapter, session provider.Session, account *domain.Account, syncType *domain.SyncType) ([]provider.RawMessage, string, error) {
	var (
		raws   []provider.RawMessage
		cursor string
	)

	op := func() error {
		if err := o.limits.Wait(ctx, adapter.Name()); err != nil {
			return backoff.Permanent(err)
		}

		var err error
		if *syncType == domain.SyncInitial {
			raws, cursor, err = adapter.FetchInitial(ctx, session, account.BackfillWindow())
		} else {
			raws, cursor, err = adapter.FetchSince(ctx, session, account.Cursor)
			if errors.Is(err, provider.ErrCursorExpired) {
				log.Printf("[sync] cursor expired for account %s, falling back to initial sync", account.Email)
				*syncType = domain.SyncInitial
				raws, cursor, err = adapter.FetchInitial(ctx, session, account.BackfillWindow())
			}
		}
		if err != nil {
			if provider.IsAuthError(err) || ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(o.fetchRetries)), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, "", fmt.Errorf("failed to fetch messages: %w", err)
	}
	return raws, cursor, nil
}

// ingest normalizes, stores, threads, and resolves one raw message.
func (o *Orchestrator) ingest(ctx context.Context, account *domain.Account, adapter provider.Adapter, raw provider.RawMessage) (store.UpsertOutcome, *domain.Conversation, error) {
	norm, err := adapter.ParseMessage(raw)
	if err != nil {
		return store.UpsertUnchanged, nil, fmt.Errorf("failed to parse: %w", err)
	}

	body := o.clean(norm.BodyText)
	if body == "" && norm.BodyHTML != "" {
		body = o.clean(clean.StripHTML(norm.BodyHTML))
	}

	msg := &domain.Message{
		ID:                uuid.NewString(),
		AccountID:         account.ID,
		ProviderMessageID: norm.ProviderMessageID,
		ProviderThreadID:  norm.ProviderThreadID,
		From:              norm.From,
		Recipients:        norm.Recipients,
		Subject:           norm.Subject,
		Body:              body,
		SentAt:            norm.SentAt,
	}

	outcome, err := o.store.UpsertMessage(ctx, msg)
	if err != nil {
		return outcome, nil, fmt.Errorf("failed to store: %w", err)
	}
	if outcome != store.UpsertCreated {
		// Revisions keep their conversation links; repeats change nothing.
		return outcome, nil, nil
	}

	conv, err := o.threader.Assign(ctx, account, msg)
	if err != nil {
		return outcome, nil, fmt.Errorf("failed to thread: %w", err)
	}
	if err := o.resolver.Resolve(ctx, conv.ID, msg); err != nil {
		return outcome, conv, fmt.Errorf("failed to resolve participants: %w", err)
	}
	return outcome, conv, nil
}

func statusForError(ctx context.Context, err error) domain.SyncStatus {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return domain.SyncCancelled
	}
	return domain.SyncFailed
}

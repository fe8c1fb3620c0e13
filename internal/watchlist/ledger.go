package watchlist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"animetracker/internal/auth"
	"animetracker/pkg/models"
)

var (
	// ErrForbidden is returned both for foreign and for missing entries so
	// callers cannot probe which ids exist.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict means the row changed between the ownership check and the write.
	ErrConflict         = errors.New("watchlist entry changed concurrently")
	ErrInvalidReference = errors.New("show does not exist")
	ErrInvalidEntry     = errors.New("invalid watchlist entry")
)

const (
	StatusWatching    = "watching"
	StatusCompleted   = "completed"
	StatusOnHold      = "on_hold"
	StatusDropped     = "dropped"
	StatusPlanToWatch = "plan_to_watch"

	MinRating = 1
	MaxRating = 10
)

var statuses = map[string]bool{
	StatusWatching:    true,
	StatusCompleted:   true,
	StatusOnHold:      true,
	StatusDropped:     true,
	StatusPlanToWatch: true,
}

// ShowLookup resolves show ids on create.
type ShowLookup interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

// Ledger is the authoritative per-user record of watchlist entries.
type Ledger struct {
	repo   Repository
	shows  ShowLookup
	logger *slog.Logger
	events chan<- models.WatchlistEvent
	now    func() time.Time
}

type Option func(*Ledger)

// WithEvents makes the ledger publish every successful mutation on ch.
// Sends never block; a full channel drops the event.
func WithEvents(ch chan<- models.WatchlistEvent) Option {
	return func(l *Ledger) { l.events = ch }
}

func NewLedger(repo Repository, shows ShowLookup, logger *slog.Logger, opts ...Option) *Ledger {
	l := &Ledger{repo: repo, shows: shows, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func ValidStatus(s string) bool {
	return statuses[s]
}

func (c Changes) validate() error {
	if !ValidStatus(c.Status) {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidEntry, c.Status)
	}
	if c.Progress < 0 {
		return fmt.Errorf("%w: progress must not be negative", ErrInvalidEntry)
	}
	if c.Rating != nil && (*c.Rating < MinRating || *c.Rating > MaxRating) {
		return fmt.Errorf("%w: rating must be between %d and %d", ErrInvalidEntry, MinRating, MaxRating)
	}
	return nil
}

// List returns userID's entries joined with their shows. Only the owner may read them.
func (l *Ledger) List(ctx context.Context, caller auth.Identity, userID int64) ([]Item, error) {
	if caller.ID != userID {
		l.logger.WarnContext(ctx, "cross-user watchlist read rejected",
			slog.Int64("caller_id", caller.ID), slog.Int64("user_id", userID))
		return nil, ErrForbidden
	}
	items, err := l.repo.ListByUser(ctx, userID)
	if err != nil {
		l.logger.ErrorContext(ctx, "failed to list watchlist", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil, err
	}
	return items, nil
}

// Create adds an entry owned by the caller with progress 0 and no rating or notes.
func (l *Ledger) Create(ctx context.Context, caller auth.Identity, showID int64, status string) (int64, error) {
	if caller.ID <= 0 {
		return 0, ErrForbidden
	}
	if !ValidStatus(status) {
		return 0, fmt.Errorf("%w: unknown status %q", ErrInvalidEntry, status)
	}
	ok, err := l.shows.Exists(ctx, showID)
	if err != nil {
		l.logger.ErrorContext(ctx, "failed to resolve show", slog.Int64("show_id", showID), slog.Any("error", err))
		return 0, err
	}
	if !ok {
		return 0, ErrInvalidReference
	}

	entry := models.WatchlistEntry{UserID: caller.ID, ShowID: showID, Status: status}
	id, err := l.repo.Insert(ctx, entry)
	if err != nil {
		l.logger.ErrorContext(ctx, "failed to create watchlist entry",
			slog.Int64("user_id", caller.ID), slog.Int64("show_id", showID), slog.Any("error", err))
		return 0, err
	}
	entry.ID = id

	l.logger.InfoContext(ctx, "watchlist entry created",
		slog.Int64("entry_id", id), slog.Int64("user_id", caller.ID), slog.Int64("show_id", showID))
	l.publish(ctx, "created", entry)
	return id, nil
}

// Update replaces status, progress, rating and notes of an entry the caller owns.
func (l *Ledger) Update(ctx context.Context, caller auth.Identity, entryID int64, c Changes) (int64, error) {
	if err := c.validate(); err != nil {
		return 0, err
	}

	var changed int64
	var updated models.WatchlistEntry
	err := l.repo.InTx(ctx, func(tx Tx) error {
		if err := authorize(ctx, tx, caller, entryID); err != nil {
			return err
		}
		n, err := tx.Update(ctx, caller.ID, entryID, c)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrConflict
		}
		changed = n
		updated, err = tx.Get(ctx, entryID)
		return err
	})
	if err != nil {
		l.logMutationError(ctx, "update", caller, entryID, err)
		return 0, err
	}

	l.logger.InfoContext(ctx, "watchlist entry updated",
		slog.Int64("entry_id", entryID), slog.Int64("user_id", caller.ID), slog.String("status", c.Status))
	l.publish(ctx, "updated", updated)
	return changed, nil
}

// Delete removes an entry the caller owns.
func (l *Ledger) Delete(ctx context.Context, caller auth.Identity, entryID int64) (int64, error) {
	var changed int64
	err := l.repo.InTx(ctx, func(tx Tx) error {
		if err := authorize(ctx, tx, caller, entryID); err != nil {
			return err
		}
		n, err := tx.Delete(ctx, caller.ID, entryID)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrConflict
		}
		changed = n
		return nil
	})
	if err != nil {
		l.logMutationError(ctx, "delete", caller, entryID, err)
		return 0, err
	}

	l.logger.InfoContext(ctx, "watchlist entry deleted", slog.Int64("entry_id", entryID), slog.Int64("user_id", caller.ID))
	l.publish(ctx, "deleted", models.WatchlistEntry{ID: entryID, UserID: caller.ID})
	return changed, nil
}

// authorize folds "missing" into "not yours".
func authorize(ctx context.Context, tx Tx, caller auth.Identity, entryID int64) error {
	e, err := tx.Get(ctx, entryID)
	if errors.Is(err, ErrEntryNotFound) {
		return ErrForbidden
	}
	if err != nil {
		return err
	}
	if e.UserID != caller.ID {
		return ErrForbidden
	}
	return nil
}

func (l *Ledger) logMutationError(ctx context.Context, op string, caller auth.Identity, entryID int64, err error) {
	attrs := []any{slog.String("op", op), slog.Int64("entry_id", entryID), slog.Int64("caller_id", caller.ID)}
	switch {
	case errors.Is(err, ErrForbidden):
		l.logger.WarnContext(ctx, "watchlist mutation rejected", attrs...)
	case errors.Is(err, ErrConflict):
		l.logger.WarnContext(ctx, "watchlist mutation lost a race", attrs...)
	default:
		l.logger.ErrorContext(ctx, "watchlist mutation failed", append(attrs, slog.Any("error", err))...)
	}
}

func (l *Ledger) publish(ctx context.Context, typ string, e models.WatchlistEntry) {
	if l.events == nil {
		return
	}
	evt := models.WatchlistEvent{
		Type:      typ,
		UserID:    e.UserID,
		EntryID:   e.ID,
		Timestamp: l.now().Unix(),
	}
	if typ != "deleted" {
		entry := e
		evt.Entry = &entry
	}

	select {
	case l.events <- evt:
	default:
		l.logger.WarnContext(ctx, "watchlist event channel full, dropping event", slog.Int64("entry_id", e.ID))
	}
}

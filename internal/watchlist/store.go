package watchlist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"animetracker/pkg/models"
)

// ErrEntryNotFound is internal to the ledger; callers only ever see ErrForbidden.
var ErrEntryNotFound = errors.New("watchlist entry not found")

// Item is an entry joined with the summary of its show.
type Item struct {
	models.WatchlistEntry
	Title         string `json:"title"`
	Type          string `json:"type"`
	Genre         string `json:"genre"`
	TotalEpisodes int    `json:"total_episodes"`
	ImageURL      string `json:"image_url"`
}

// Changes is the full replacement of an entry's mutable attributes.
type Changes struct {
	Status   string
	Progress int
	Rating   *int
	Notes    *string
}

// Tx is the set of row operations that must run inside one transaction.
type Tx interface {
	Get(ctx context.Context, entryID int64) (models.WatchlistEntry, error)
	Update(ctx context.Context, ownerID, entryID int64, c Changes) (int64, error)
	Delete(ctx context.Context, ownerID, entryID int64) (int64, error)
}

// Repository is the storage port of the ledger.
type Repository interface {
	ListByUser(ctx context.Context, userID int64) ([]Item, error)
	Insert(ctx context.Context, e models.WatchlistEntry) (int64, error)
	InTx(ctx context.Context, fn func(Tx) error) error
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLStore implements Repository on database/sql.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) ListByUser(ctx context.Context, userID int64) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT w.id, w.user_id, w.show_id, w.status, w.progress, w.rating, w.notes,
		       s.title, s.type, COALESCE(s.genre, ''), COALESCE(s.total_episodes, 0), COALESCE(s.image_url, '')
		FROM watchlists w
		JOIN shows s ON w.show_id = s.id
		WHERE w.user_id = ?
		ORDER BY w.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("select watchlist: %w", err)
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		var it Item
		var rating sql.NullInt64
		var notes sql.NullString
		if err := rows.Scan(&it.ID, &it.UserID, &it.ShowID, &it.Status, &it.Progress, &rating, &notes,
			&it.Title, &it.Type, &it.Genre, &it.TotalEpisodes, &it.ImageURL); err != nil {
			return nil, fmt.Errorf("scan watchlist: %w", err)
		}
		it.Rating, it.Notes = nullable(rating, notes)
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *SQLStore) Insert(ctx context.Context, e models.WatchlistEntry) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO watchlists (user_id, show_id, status, progress, rating, notes) VALUES (?, ?, ?, ?, ?, ?)`,
		e.UserID, e.ShowID, e.Status, e.Progress, e.Rating, e.Notes)
	if err != nil {
		return 0, fmt.Errorf("insert watchlist entry: %w", err)
	}
	return res.LastInsertId()
}

func (s *SQLStore) InTx(ctx context.Context, fn func(Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(sqlTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type sqlTx struct {
	tx *sql.Tx
}

func (t sqlTx) Get(ctx context.Context, entryID int64) (models.WatchlistEntry, error) {
	return getEntry(ctx, t.tx, entryID)
}

// Update only touches the row when it still belongs to ownerID.
func (t sqlTx) Update(ctx context.Context, ownerID, entryID int64, c Changes) (int64, error) {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE watchlists SET status = ?, progress = ?, rating = ?, notes = ? WHERE id = ? AND user_id = ?`,
		c.Status, c.Progress, c.Rating, c.Notes, entryID, ownerID)
	if err != nil {
		return 0, fmt.Errorf("update watchlist entry: %w", err)
	}
	return res.RowsAffected()
}

func (t sqlTx) Delete(ctx context.Context, ownerID, entryID int64) (int64, error) {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM watchlists WHERE id = ? AND user_id = ?`, entryID, ownerID)
	if err != nil {
		return 0, fmt.Errorf("delete watchlist entry: %w", err)
	}
	return res.RowsAffected()
}

func getEntry(ctx context.Context, q querier, entryID int64) (models.WatchlistEntry, error) {
	var e models.WatchlistEntry
	var rating sql.NullInt64
	var notes sql.NullString
	err := q.QueryRowContext(ctx,
		`SELECT id, user_id, show_id, status, progress, rating, notes FROM watchlists WHERE id = ?`, entryID).
		Scan(&e.ID, &e.UserID, &e.ShowID, &e.Status, &e.Progress, &rating, &notes)
	if errors.Is(err, sql.ErrNoRows) {
		return models.WatchlistEntry{}, ErrEntryNotFound
	}
	if err != nil {
		return models.WatchlistEntry{}, fmt.Errorf("select watchlist entry: %w", err)
	}
	e.Rating, e.Notes = nullable(rating, notes)
	return e, nil
}

func nullable(rating sql.NullInt64, notes sql.NullString) (*int, *string) {
	var r *int
	var n *string
	if rating.Valid {
		v := int(rating.Int64)
		r = &v
	}
	if notes.Valid {
		v := notes.String
		n = &v
	}
	return r, n
}

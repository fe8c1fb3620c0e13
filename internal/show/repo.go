package show

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"animetracker/pkg/models"
)

var (
	ErrInvalidShow = errors.New("invalid show")
	ErrNotFound    = errors.New("show not found")
)

const (
	TypeAnime = "anime"
	TypeTV    = "tv"
)

// Registry is the shared, unowned collection of show metadata.
type Registry struct {
	db *sql.DB
}

func NewRegistry(db *sql.DB) *Registry {
	return &Registry{db: db}
}

func Validate(s models.Show) error {
	if strings.TrimSpace(s.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidShow)
	}
	if s.Type != TypeAnime && s.Type != TypeTV {
		return fmt.Errorf("%w: type must be %q or %q", ErrInvalidShow, TypeAnime, TypeTV)
	}
	if s.TotalEpisodes < 0 || s.ReleaseYear < 0 {
		return fmt.Errorf("%w: negative episode count or release year", ErrInvalidShow)
	}
	return nil
}

func (r *Registry) Create(ctx context.Context, s models.Show) (int64, error) {
	if err := Validate(s); err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO shows (title, type, genre, release_year, total_episodes, status, image_url) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		strings.TrimSpace(s.Title), s.Type, s.Genre, s.ReleaseYear, s.TotalEpisodes, s.Status, s.ImageURL)
	if err != nil {
		return 0, fmt.Errorf("insert show: %w", err)
	}
	return res.LastInsertId()
}

func (r *Registry) List(ctx context.Context) ([]models.Show, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+columns+` FROM shows ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("select shows: %w", err)
	}
	defer rows.Close()

	res := []models.Show{}
	for rows.Next() {
		s, err := scan(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

func (r *Registry) Get(ctx context.Context, id int64) (models.Show, error) {
	s, err := scan(r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM shows WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Show{}, ErrNotFound
	}
	return s, err
}

func (r *Registry) Exists(ctx context.Context, id int64) (bool, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM shows WHERE id = ?`, id).Scan(&n); err != nil {
		return false, fmt.Errorf("count show: %w", err)
	}
	return n > 0, nil
}

const columns = `id, title, type, COALESCE(genre, ''), COALESCE(release_year, 0), COALESCE(total_episodes, 0), COALESCE(status, ''), COALESCE(image_url, '')`

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (models.Show, error) {
	var s models.Show
	err := row.Scan(&s.ID, &s.Title, &s.Type, &s.Genre, &s.ReleaseYear, &s.TotalEpisodes, &s.Status, &s.ImageURL)
	return s, err
}

package club

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"animetracker/pkg/models"
)

var (
	ErrInvalidClub = errors.New("invalid club")
	ErrNotFound    = errors.New("club not found")
)

// Store holds clubs, their members and their discussion threads. Everything
// is append-only.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, c models.Club) (int64, error) {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return 0, fmt.Errorf("%w: name is required", ErrInvalidClub)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO clubs (name, description, creator_id) VALUES (?, ?, ?)`,
		name, c.Description, c.CreatorID)
	if err != nil {
		return 0, fmt.Errorf("insert club: %w", err)
	}
	return res.LastInsertId()
}

func (s *Store) List(ctx context.Context) ([]models.Club, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, COALESCE(description, ''), creator_id, created_at FROM clubs ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("select clubs: %w", err)
	}
	defer rows.Close()

	clubs := []models.Club{}
	for rows.Next() {
		var c models.Club
		var creator sql.NullInt64
		var created sql.NullTime
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &creator, &created); err != nil {
			return nil, fmt.Errorf("scan club: %w", err)
		}
		if creator.Valid {
			id := creator.Int64
			c.CreatorID = &id
		}
		c.CreatedAt = created.Time
		clubs = append(clubs, c)
	}
	return clubs, rows.Err()
}

func (s *Store) exists(ctx context.Context, clubID int64) error {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM clubs WHERE id = ?`, clubID).Scan(&n); err != nil {
		return fmt.Errorf("count club: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Join records userID as a member of clubID. Joining twice adds a second row.
func (s *Store) Join(ctx context.Context, clubID, userID int64) (int64, error) {
	if err := s.exists(ctx, clubID); err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO club_members (club_id, user_id) VALUES (?, ?)`, clubID, userID)
	if err != nil {
		return 0, fmt.Errorf("insert club member: %w", err)
	}
	return res.LastInsertId()
}

func (s *Store) Members(ctx context.Context, clubID int64) ([]models.ClubMember, error) {
	if err := s.exists(ctx, clubID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, club_id, user_id, joined_at FROM club_members WHERE club_id = ? ORDER BY id`, clubID)
	if err != nil {
		return nil, fmt.Errorf("select club members: %w", err)
	}
	defer rows.Close()

	members := []models.ClubMember{}
	for rows.Next() {
		var m models.ClubMember
		var joined sql.NullTime
		if err := rows.Scan(&m.ID, &m.ClubID, &m.UserID, &joined); err != nil {
			return nil, fmt.Errorf("scan club member: %w", err)
		}
		m.JoinedAt = joined.Time
		members = append(members, m)
	}
	return members, rows.Err()
}

func (s *Store) Post(ctx context.Context, d models.Discussion) (int64, error) {
	title, content := strings.TrimSpace(d.Title), strings.TrimSpace(d.Content)
	if title == "" || content == "" {
		return 0, fmt.Errorf("%w: title and content are required", ErrInvalidClub)
	}
	if err := s.exists(ctx, d.ClubID); err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO discussions (club_id, user_id, title, content) VALUES (?, ?, ?, ?)`,
		d.ClubID, d.UserID, title, content)
	if err != nil {
		return 0, fmt.Errorf("insert discussion: %w", err)
	}
	return res.LastInsertId()
}

// Discussions returns a club's threads oldest first.
func (s *Store) Discussions(ctx context.Context, clubID int64) ([]models.Discussion, error) {
	if err := s.exists(ctx, clubID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, club_id, user_id, title, content, created_at
		FROM discussions
		WHERE club_id = ?
		ORDER BY created_at, id`, clubID)
	if err != nil {
		return nil, fmt.Errorf("select discussions: %w", err)
	}
	defer rows.Close()

	out := []models.Discussion{}
	for rows.Next() {
		var d models.Discussion
		var created sql.NullTime
		if err := rows.Scan(&d.ID, &d.ClubID, &d.UserID, &d.Title, &d.Content, &created); err != nil {
			return nil, fmt.Errorf("scan discussion: %w", err)
		}
		d.CreatedAt = created.Time
		out = append(out, d)
	}
	return out, rows.Err()
}

package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	"animetracker/pkg/models"
)

func LoadShowsFromJSON(jsonPath string) ([]models.Show, error) {
	b, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("read shows json: %w", err)
	}

	var list []models.Show
	if err := json.Unmarshal(b, &list); err != nil {
		return nil, fmt.Errorf("unmarshal shows json: %w", err)
	}

	return list, nil
}

// SeedShows inserts the given shows, skipping ids that already exist.
// Records without an id get one assigned by the table.
func SeedShows(db *sql.DB, shows []models.Show) (int, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO shows (id, title, type, genre, release_year, total_episodes, status, image_url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?);
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert show: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, s := range shows {
		var id any
		if s.ID > 0 {
			id = s.ID
		}
		typ := s.Type
		if typ == "" {
			typ = "anime"
		}

		res, err := stmt.Exec(id, s.Title, typ, s.Genre, s.ReleaseYear, s.TotalEpisodes, s.Status, s.ImageURL)
		if err != nil {
			return 0, fmt.Errorf("insert show %q: %w", s.Title, err)
		}

		aff, _ := res.RowsAffected()
		if aff > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	return inserted, nil
}

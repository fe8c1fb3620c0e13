package catalog

import (
	"encoding/json"
	"fmt"
	"strings"

	"animetracker/pkg/models"
)

type listPayload struct {
	Data []struct {
		MalID        int64   `json:"mal_id"`
		Title        string  `json:"title"`
		TitleEnglish *string `json:"title_english"`
		Type         *string `json:"type"`
		Episodes     *int    `json:"episodes"`
		Status       string  `json:"status"`
		Year         *int    `json:"year"`
		Aired        struct {
			Prop struct {
				From struct {
					Year *int `json:"year"`
				} `json:"from"`
			} `json:"prop"`
		} `json:"aired"`
		Genres []struct {
			Name string `json:"name"`
		} `json:"genres"`
		Images struct {
			JPG struct {
				ImageURL string `json:"image_url"`
			} `json:"jpg"`
		} `json:"images"`
	} `json:"data"`
}

// DecodeShows maps a catalog list payload onto registry shows. IDs are left
// zero so the registry assigns them.
func DecodeShows(raw json.RawMessage) ([]models.Show, error) {
	var p listPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode catalog payload: %w", err)
	}

	out := make([]models.Show, 0, len(p.Data))
	for _, d := range p.Data {
		title := d.Title
		if d.TitleEnglish != nil && strings.TrimSpace(*d.TitleEnglish) != "" {
			title = *d.TitleEnglish
		}
		if strings.TrimSpace(title) == "" {
			continue
		}

		genres := make([]string, 0, len(d.Genres))
		for _, g := range d.Genres {
			genres = append(genres, g.Name)
		}

		s := models.Show{
			Title:    title,
			Type:     "anime",
			Genre:    strings.Join(genres, ", "),
			Status:   mapStatus(d.Status),
			ImageURL: d.Images.JPG.ImageURL,
		}
		if d.Episodes != nil {
			s.TotalEpisodes = *d.Episodes
		}
		switch {
		case d.Year != nil:
			s.ReleaseYear = *d.Year
		case d.Aired.Prop.From.Year != nil:
			s.ReleaseYear = *d.Aired.Prop.From.Year
		}
		out = append(out, s)
	}
	return out, nil
}

func mapStatus(s string) string {
	switch s {
	case "Finished Airing":
		return "completed"
	case "Currently Airing":
		return "airing"
	case "Not yet aired":
		return "upcoming"
	default:
		return "unknown"
	}
}

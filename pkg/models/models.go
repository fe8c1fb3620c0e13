package models

import "time"

// users table
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// shows table
type Show struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	Type          string `json:"type"` // anime | tv
	Genre         string `json:"genre"`
	ReleaseYear   int    `json:"release_year"`
	TotalEpisodes int    `json:"total_episodes"`
	Status        string `json:"status"`
	ImageURL      string `json:"image_url"`
}

// watchlists table
type WatchlistEntry struct {
	ID       int64   `json:"id"`
	UserID   int64   `json:"user_id"`
	ShowID   int64   `json:"show_id"`
	Status   string  `json:"status"`
	Progress int     `json:"progress"`
	Rating   *int    `json:"rating"`
	Notes    *string `json:"notes"`
}

// clubs table
type Club struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatorID   *int64    `json:"creator_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// club_members table
type ClubMember struct {
	ID       int64     `json:"id"`
	ClubID   int64     `json:"club_id"`
	UserID   int64     `json:"user_id"`
	JoinedAt time.Time `json:"joined_at"`
}

// discussions table
type Discussion struct {
	ID        int64     `json:"id"`
	ClubID    int64     `json:"club_id"`
	UserID    int64     `json:"user_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// WatchlistEvent is pushed to the owner's activity feed after a ledger mutation.
type WatchlistEvent struct {
	Type      string          `json:"type"` // created | updated | deleted
	UserID    int64           `json:"user_id"`
	EntryID   int64           `json:"entry_id"`
	Entry     *WatchlistEntry `json:"entry,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

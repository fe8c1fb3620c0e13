package activity

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"animetracker/pkg/models"
)

// Hub fans watchlist events out to the websocket connections of the
// event's owner. Other users never see them.
type Hub struct {
	mu         sync.Mutex
	clients    map[*client]int64
	events     <-chan models.WatchlistEvent
	register   chan *client
	unregister chan *client
	done       chan struct{}
	logger     *slog.Logger
}

func NewHub(events <-chan models.WatchlistEvent, logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*client]int64),
		events:     events,
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run owns fan-out until ctx is cancelled or the event channel closes.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	defer h.closeAll()
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = c.userID
			h.mu.Unlock()
			h.logger.Info("activity client connected", slog.Int64("user_id", c.userID))
		case c := <-h.unregister:
			h.remove(c, "activity client disconnected")
		case evt, ok := <-h.events:
			if !ok {
				return
			}
			h.dispatch(evt)
		}
	}
}

func (h *Hub) dispatch(evt models.WatchlistEvent) {
	data, err := json.Marshal(evt)
	if err != nil {
		h.logger.Error("failed to marshal watchlist event", slog.Any("error", err))
		return
	}

	h.mu.Lock()
	var slow []*client
	for c, userID := range h.clients {
		if userID != evt.UserID {
			continue
		}
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.Unlock()

	for _, c := range slow {
		h.remove(c, "activity client send buffer full, removing")
	}
}

func (h *Hub) remove(c *client, msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.logger.Info(msg, slog.Int64("user_id", c.userID))
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

// Connected reports how many feeds userID currently has open.
func (h *Hub) Connected(userID int64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, id := range h.clients {
		if id == userID {
			n++
		}
	}
	return n
}

func (h *Hub) join(c *client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

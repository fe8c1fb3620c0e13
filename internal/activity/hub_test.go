package activity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"animetracker/internal/auth"
	"animetracker/pkg/logger"
	"animetracker/pkg/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type feedFixture struct {
	hub    *Hub
	events chan models.WatchlistEvent
	signer *auth.Signer
	url    string
}

func newFeed(t *testing.T) feedFixture {
	t.Helper()
	signer, err := auth.NewSigner("activity-test-secret", time.Hour)
	require.NoError(t, err)

	events := make(chan models.WatchlistEvent, 8)
	hub := NewHub(events, logger.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	r := gin.New()
	r.GET("/events", auth.RequireJWT(signer), hub.Handler())
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return feedFixture{
		hub:    hub,
		events: events,
		signer: signer,
		url:    "ws" + strings.TrimPrefix(srv.URL, "http") + "/events",
	}
}

func (f feedFixture) dial(t *testing.T, id auth.Identity) *websocket.Conn {
	t.Helper()
	token, err := f.signer.Sign(id)
	require.NoError(t, err)

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	conn, _, err := websocket.DefaultDialer.Dial(f.url, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestEventsReachOnlyTheOwner(t *testing.T) {
	f := newFeed(t)
	alice := f.dial(t, auth.Identity{ID: 1, Username: "alice"})
	bob := f.dial(t, auth.Identity{ID: 2, Username: "bob"})

	require.Eventually(t, func() bool {
		return f.hub.Connected(1) == 1 && f.hub.Connected(2) == 1
	}, 2*time.Second, 10*time.Millisecond)

	f.events <- models.WatchlistEvent{Type: "created", UserID: 1, EntryID: 7, Timestamp: 1700000000}

	require.NoError(t, alice.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := alice.ReadMessage()
	require.NoError(t, err)

	var got models.WatchlistEvent
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "created", got.Type)
	assert.Equal(t, int64(7), got.EntryID)

	require.NoError(t, bob.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err = bob.ReadMessage()
	require.Error(t, err)
	var netErr interface{ Timeout() bool }
	require.ErrorAs(t, err, &netErr)
	assert.True(t, netErr.Timeout())
}

func TestFeedRequiresToken(t *testing.T) {
	f := newFeed(t)

	_, resp, err := websocket.DefaultDialer.Dial(f.url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestFeedAcceptsQueryToken(t *testing.T) {
	f := newFeed(t)
	token, err := f.signer.Sign(auth.Identity{ID: 3, Username: "carol"})
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(f.url+"?access_token="+token, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return f.hub.Connected(3) == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestDisconnectUnregisters(t *testing.T) {
	f := newFeed(t)
	conn := f.dial(t, auth.Identity{ID: 4, Username: "dave"})
	require.Eventually(t, func() bool { return f.hub.Connected(4) == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return f.hub.Connected(4) == 0 }, 2*time.Second, 10*time.Millisecond)
}

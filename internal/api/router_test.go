package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"animetracker/internal/auth"
	"animetracker/internal/catalog"
	catalogmock "animetracker/internal/catalog/mock"
	"animetracker/internal/club"
	"animetracker/internal/show"
	"animetracker/internal/user"
	"animetracker/internal/watchlist"
	"animetracker/pkg/database"
	"animetracker/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router  *gin.Engine
	catalog *catalogmock.MockClient
}

func newTestServer(t *testing.T, staticDir string) testServer {
	t.Helper()
	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	signer, err := auth.NewSigner("api-test-secret", time.Hour)
	require.NoError(t, err)

	log := logger.Discard()
	shows := show.NewRegistry(db)
	cat := catalogmock.NewMockClient(gomock.NewController(t))

	r := NewRouter(Deps{
		Users:     user.NewService(user.NewStore(db), signer, log),
		Signer:    signer,
		Shows:     shows,
		Ledger:    watchlist.NewLedger(watchlist.NewSQLStore(db), shows, log),
		Clubs:     club.NewStore(db),
		Catalog:   cat,
		StaticDir: staticDir,
		Logger:    log,
	})
	return testServer{router: r, catalog: cat}
}

func (s testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (s testServer) register(t *testing.T, username string) (string, int64) {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": username, "email": username + "@example.com", "password": "pw-" + username,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	u := body["user"].(map[string]any)
	return body["token"].(string), int64(u["id"].(float64))
}

func TestRegisterAndLogin(t *testing.T) {
	s := newTestServer(t, "")

	w := s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{"username": "alice", "email": "a@x.com", "password": "pw"})
	require.Equal(t, http.StatusCreated, w.Code)
	body := decode(t, w)
	assert.NotEmpty(t, body["token"])
	assert.Equal(t, "alice", body["user"].(map[string]any)["username"])
	assert.NotContains(t, w.Body.String(), "password")

	w = s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{"username": "alice", "email": "b@y.com", "password": "pw2"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, user.ErrDuplicateUser.Error(), decode(t, w)["error"])

	w = s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"username": "alice", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"username": "nobody", "password": "pw"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"username": "alice", "password": "pw"})
	require.Equal(t, http.StatusOK, w.Code)
	token := decode(t, w)["token"].(string)

	w = s.do(t, http.MethodGet, "/api/user/profile", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", decode(t, w)["user"].(map[string]any)["username"])

	w = s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{"username": "bob"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": "carol", "email": "c@x.com", "password": strings.Repeat("p", 80),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid request: password must be at most 72 characters", decode(t, w)["error"])

	// 40 two-byte runes pass the character limit but not bcrypt's byte limit
	w = s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": "carol", "email": "c@x.com", "password": strings.Repeat("é", 40),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], "at most 72 bytes")
}

func TestProfileRequiresToken(t *testing.T) {
	s := newTestServer(t, "")

	w := s.do(t, http.MethodGet, "/api/user/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, "/api/user/profile", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWatchlistOwnership(t *testing.T) {
	s := newTestServer(t, "")
	aliceToken, aliceID := s.register(t, "alice")
	bobToken, _ := s.register(t, "bob")

	w := s.do(t, http.MethodPost, "/api/shows", "", gin.H{"title": "Mushishi", "total_episodes": 26})
	require.Equal(t, http.StatusCreated, w.Code)
	showID := int64(decode(t, w)["id"].(float64))

	w = s.do(t, http.MethodPost, "/api/watchlist", "", gin.H{"show_id": showID, "status": "watching"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/api/watchlist", aliceToken, gin.H{"show_id": showID, "status": "watching"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	entryID := int64(decode(t, w)["id"].(float64))
	entryPath := fmt.Sprintf("/api/watchlist/%d", entryID)
	listPath := fmt.Sprintf("/api/watchlist/%d", aliceID)

	update := gin.H{"status": "completed", "progress": 12, "rating": 9, "notes": "great"}

	w = s.do(t, http.MethodPut, entryPath, bobToken, update)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodGet, listPath, bobToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPut, entryPath, aliceToken, update)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(1), decode(t, w)["changes"])

	w = s.do(t, http.MethodGet, listPath, aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode(t, w)["watchlist"].([]any)
	require.Len(t, list, 1)
	entry := list[0].(map[string]any)
	assert.Equal(t, "completed", entry["status"])
	assert.Equal(t, float64(12), entry["progress"])
	assert.Equal(t, float64(9), entry["rating"])
	assert.Equal(t, "Mushishi", entry["title"])

	w = s.do(t, http.MethodDelete, entryPath, bobToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodDelete, entryPath, aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["changes"])

	w = s.do(t, http.MethodDelete, entryPath, aliceToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodGet, listPath, aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["watchlist"])
}

func TestWatchlistBadInput(t *testing.T) {
	s := newTestServer(t, "")
	token, _ := s.register(t, "alice")

	cases := []struct {
		name   string
		method string
		path   string
		body   any
	}{
		{"non-numeric user", http.MethodGet, "/api/watchlist/abc", nil},
		{"missing show", http.MethodPost, "/api/watchlist", gin.H{"status": "watching"}},
		{"unknown show", http.MethodPost, "/api/watchlist", gin.H{"show_id": 42, "status": "watching"}},
		{"bad rating", http.MethodPut, "/api/watchlist/1", gin.H{"status": "watching", "rating": 11}},
		{"negative progress", http.MethodPut, "/api/watchlist/1", gin.H{"status": "watching", "progress": -2}},
		{"non-numeric entry", http.MethodDelete, "/api/watchlist/x", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := s.do(t, tc.method, tc.path, token, tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.NotEmpty(t, decode(t, w)["error"])
		})
	}
}

func TestAnimeProxy(t *testing.T) {
	s := newTestServer(t, "")
	payload := json.RawMessage(`{"data":[{"mal_id":1}],"pagination":{"has_next_page":false}}`)

	s.catalog.EXPECT().Search(gomock.Any(), "bebop").Return(payload, nil)
	w := s.do(t, http.MethodGet, "/api/anime/search?q=bebop", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, string(payload), w.Body.String())

	s.catalog.EXPECT().Search(gomock.Any(), "").Return(nil, catalog.ErrInvalidRequest)
	w = s.do(t, http.MethodGet, "/api/anime/search", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	s.catalog.EXPECT().Top(gomock.Any(), catalog.DefaultLimit).Return(payload, nil)
	w = s.do(t, http.MethodGet, "/api/anime/top?limit=abc", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	s.catalog.EXPECT().Seasonal(gomock.Any(), 5).
		Return(nil, fmt.Errorf("%w: status 503 Service Unavailable", catalog.ErrUpstreamUnavailable))
	w = s.do(t, http.MethodGet, "/api/anime/seasonal?limit=5", "", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, catalog.ErrUpstreamUnavailable.Error(), decode(t, w)["error"])
}

func TestShowsRegistry(t *testing.T) {
	s := newTestServer(t, "")

	w := s.do(t, http.MethodGet, "/api/shows", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{}, decode(t, w)["shows"])

	w = s.do(t, http.MethodPost, "/api/shows", "", gin.H{"title": "Planetes", "type": "tv", "total_episodes": 26})
	require.Equal(t, http.StatusCreated, w.Code)
	id := int64(decode(t, w)["id"].(float64))

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/shows/%d", id), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode(t, w)["show"].(map[string]any)
	assert.Equal(t, "Planetes", got["title"])
	assert.Equal(t, float64(26), got["total_episodes"])

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/shows/%d", id+100), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, show.ErrNotFound.Error(), decode(t, w)["error"])

	w = s.do(t, http.MethodGet, "/api/shows/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/shows", "", gin.H{"title": "X", "type": "movie"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/shows", "", nil)
	shows := decode(t, w)["shows"].([]any)
	require.Len(t, shows, 1)
	assert.Equal(t, "Planetes", shows[0].(map[string]any)["title"])
}

func TestBindErrorsNameJSONFields(t *testing.T) {
	s := newTestServer(t, "")

	cases := []struct {
		name string
		body any
		want string
	}{
		{"wrong type", gin.H{"title": "X", "total_episodes": "many"}, "invalid request: total_episodes must be a number"},
		{"missing field", gin.H{"type": "tv"}, "invalid request: title is required"},
		{"bad enum", gin.H{"title": "X", "type": "movie"}, "invalid request: type must be one of: anime tv"},
		{"negative", gin.H{"title": "X", "release_year": -1}, "invalid request: release_year must be at least 0"},
		{"not an object", []int{1, 2}, "invalid request: malformed JSON body"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/api/shows", "", tc.body)
			require.Equal(t, http.StatusBadRequest, w.Code)
			msg := decode(t, w)["error"].(string)
			assert.Equal(t, tc.want, msg)
			assert.NotContains(t, msg, "Go struct")
			assert.NotContains(t, msg, "createShowRequest")
		})
	}

	w := s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{"username": "dave", "email": "nope", "password": "pw"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid request: email must be a valid email address", decode(t, w)["error"])
}

func TestClubs(t *testing.T) {
	s := newTestServer(t, "")
	token, userID := s.register(t, "alice")

	w := s.do(t, http.MethodPost, "/api/clubs", "", gin.H{"name": "Ghibli Night", "description": "films"})
	require.Equal(t, http.StatusCreated, w.Code)
	clubID := int64(decode(t, w)["id"].(float64))

	w = s.do(t, http.MethodGet, "/api/clubs", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["clubs"], 1)

	membersPath := fmt.Sprintf("/api/clubs/%d/members", clubID)
	w = s.do(t, http.MethodPost, membersPath, "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, membersPath, token, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.do(t, http.MethodGet, membersPath, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	members := decode(t, w)["members"].([]any)
	require.Len(t, members, 1)
	assert.Equal(t, float64(userID), members[0].(map[string]any)["user_id"])

	threadsPath := fmt.Sprintf("/api/clubs/%d/discussions", clubID)
	w = s.do(t, http.MethodPost, threadsPath, token, gin.H{"title": "Totoro", "content": "rewatch friday"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.do(t, http.MethodPost, threadsPath, token, gin.H{"title": "no body"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, threadsPath, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["discussions"], 1)

	w = s.do(t, http.MethodGet, "/api/clubs/999/discussions", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStaticShell(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>shell</html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o644))
	s := newTestServer(t, dir)

	w := s.do(t, http.MethodGet, "/app.js", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "console.log(1)", w.Body.String())

	w = s.do(t, http.MethodGet, "/watchlist/some/deep/link", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "shell")

	w = s.do(t, http.MethodGet, "/../../etc/passwd", "", nil)
	assert.NotContains(t, w.Body.String(), "root:")
}

func TestHealthAndRequestID(t *testing.T) {
	s := newTestServer(t, "")

	w := s.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["ok"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
}

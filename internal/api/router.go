package api

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"animetracker/internal/activity"
	"animetracker/internal/auth"
	"animetracker/internal/catalog"
	"animetracker/internal/club"
	"animetracker/internal/show"
	"animetracker/internal/user"
	"animetracker/internal/watchlist"
)

// Deps are the components the HTTP surface routes into. Feed may be nil,
// in which case the activity endpoint is not mounted.
type Deps struct {
	Users     *user.Service
	Signer    *auth.Signer
	Shows     *show.Registry
	Ledger    *watchlist.Ledger
	Clubs     *club.Store
	Catalog   catalog.Client
	Feed      *activity.Hub
	StaticDir string
	Logger    *slog.Logger
}

type handler struct {
	Deps
}

func NewRouter(d Deps) *gin.Engine {
	h := &handler{Deps: d}

	r := gin.New()
	r.Use(requestID(), accessLog(d.Logger), recovery(d.Logger))

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	api := r.Group("/api")
	requireAuth := auth.RequireJWT(d.Signer)

	anime := api.Group("/anime")
	anime.GET("/search", h.searchAnime)
	anime.GET("/top", h.topAnime)
	anime.GET("/seasonal", h.seasonalAnime)

	api.GET("/shows", h.listShows)
	api.POST("/shows", h.createShow)
	api.GET("/shows/:id", h.getShow)

	wl := api.Group("/watchlist", requireAuth)
	if d.Feed != nil {
		wl.GET("/events", d.Feed.Handler())
	}
	wl.GET("/:userId", h.listWatchlist)
	wl.POST("", h.createWatchlistEntry)
	wl.PUT("/:id", h.updateWatchlistEntry)
	wl.DELETE("/:id", h.deleteWatchlistEntry)

	api.GET("/clubs", h.listClubs)
	api.POST("/clubs", h.createClub)
	api.GET("/clubs/:id/members", h.listMembers)
	api.POST("/clubs/:id/members", requireAuth, h.joinClub)
	api.GET("/clubs/:id/discussions", h.listDiscussions)
	api.POST("/clubs/:id/discussions", requireAuth, h.postDiscussion)

	api.POST("/auth/register", h.register)
	api.POST("/auth/login", h.login)
	api.GET("/user/profile", requireAuth, h.profile)

	r.NoRoute(h.static)
	return r
}

// static serves files under StaticDir and falls back to the application shell.
func (h *handler) static(c *gin.Context) {
	if h.StaticDir == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	rel := filepath.FromSlash(strings.TrimPrefix(filepath.Clean("/"+c.Request.URL.Path), "/"))
	if rel != "" {
		p := filepath.Join(h.StaticDir, rel)
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			c.File(p)
			return
		}
	}

	index := filepath.Join(h.StaticDir, "index.html")
	if _, err := os.Stat(index); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.File(index)
}

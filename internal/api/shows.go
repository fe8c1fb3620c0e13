package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"animetracker/internal/show"
	"animetracker/pkg/models"
)

type createShowRequest struct {
	Title         string `json:"title" binding:"required"`
	Type          string `json:"type" binding:"omitempty,oneof=anime tv"`
	Genre         string `json:"genre"`
	ReleaseYear   int    `json:"release_year" binding:"gte=0"`
	TotalEpisodes int    `json:"total_episodes" binding:"gte=0"`
	Status        string `json:"status"`
	ImageURL      string `json:"image_url"`
}

func (h *handler) listShows(c *gin.Context) {
	shows, err := h.Shows.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"shows": shows})
}

func (h *handler) getShow(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.writeError(c, err)
		return
	}
	s, err := h.Shows.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"show": s})
}

func (h *handler) createShow(c *gin.Context) {
	var req createShowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, bindError(err))
		return
	}
	if req.Type == "" {
		req.Type = show.TypeAnime
	}

	id, err := h.Shows.Create(c.Request.Context(), models.Show{
		Title:         req.Title,
		Type:          req.Type,
		Genre:         req.Genre,
		ReleaseYear:   req.ReleaseYear,
		TotalEpisodes: req.TotalEpisodes,
		Status:        req.Status,
		ImageURL:      req.ImageURL,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

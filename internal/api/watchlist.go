package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"animetracker/internal/auth"
	"animetracker/internal/watchlist"
)

type createEntryRequest struct {
	ShowID int64  `json:"show_id" binding:"required,gt=0"`
	Status string `json:"status" binding:"required"`
}

// updateEntryRequest replaces every mutable field; omitted rating or notes are cleared.
type updateEntryRequest struct {
	Status   string  `json:"status" binding:"required"`
	Progress int     `json:"progress" binding:"gte=0"`
	Rating   *int    `json:"rating" binding:"omitempty,min=1,max=10"`
	Notes    *string `json:"notes"`
}

func (h *handler) listWatchlist(c *gin.Context) {
	userID, err := pathID(c, "userId")
	if err != nil {
		h.writeError(c, err)
		return
	}
	caller, _ := auth.FromGin(c)

	items, err := h.Ledger.List(c.Request.Context(), caller, userID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"watchlist": items})
}

func (h *handler) createWatchlistEntry(c *gin.Context) {
	var req createEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, bindError(err))
		return
	}
	caller, _ := auth.FromGin(c)

	id, err := h.Ledger.Create(c.Request.Context(), caller, req.ShowID, req.Status)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h *handler) updateWatchlistEntry(c *gin.Context) {
	entryID, err := pathID(c, "id")
	if err != nil {
		h.writeError(c, err)
		return
	}
	var req updateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, bindError(err))
		return
	}
	caller, _ := auth.FromGin(c)

	n, err := h.Ledger.Update(c.Request.Context(), caller, entryID, watchlist.Changes{
		Status:   req.Status,
		Progress: req.Progress,
		Rating:   req.Rating,
		Notes:    req.Notes,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"changes": n})
}

func (h *handler) deleteWatchlistEntry(c *gin.Context) {
	entryID, err := pathID(c, "id")
	if err != nil {
		h.writeError(c, err)
		return
	}
	caller, _ := auth.FromGin(c)

	n, err := h.Ledger.Delete(c.Request.Context(), caller, entryID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"changes": n})
}

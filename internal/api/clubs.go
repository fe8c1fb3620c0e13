package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"animetracker/internal/auth"
	"animetracker/pkg/models"
)

type createClubRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	CreatorID   *int64 `json:"creator_id"`
}

type postDiscussionRequest struct {
	Title   string `json:"title" binding:"required"`
	Content string `json:"content" binding:"required"`
}

func (h *handler) listClubs(c *gin.Context) {
	clubs, err := h.Clubs.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"clubs": clubs})
}

func (h *handler) createClub(c *gin.Context) {
	var req createClubRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, bindError(err))
		return
	}

	id, err := h.Clubs.Create(c.Request.Context(), models.Club{
		Name:        req.Name,
		Description: req.Description,
		CreatorID:   req.CreatorID,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h *handler) listMembers(c *gin.Context) {
	clubID, err := pathID(c, "id")
	if err != nil {
		h.writeError(c, err)
		return
	}
	members, err := h.Clubs.Members(c.Request.Context(), clubID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members})
}

func (h *handler) joinClub(c *gin.Context) {
	clubID, err := pathID(c, "id")
	if err != nil {
		h.writeError(c, err)
		return
	}
	caller, _ := auth.FromGin(c)

	id, err := h.Clubs.Join(c.Request.Context(), clubID, caller.ID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h *handler) listDiscussions(c *gin.Context) {
	clubID, err := pathID(c, "id")
	if err != nil {
		h.writeError(c, err)
		return
	}
	threads, err := h.Clubs.Discussions(c.Request.Context(), clubID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"discussions": threads})
}

func (h *handler) postDiscussion(c *gin.Context) {
	clubID, err := pathID(c, "id")
	if err != nil {
		h.writeError(c, err)
		return
	}
	var req postDiscussionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, bindError(err))
		return
	}
	caller, _ := auth.FromGin(c)

	id, err := h.Clubs.Post(c.Request.Context(), models.Discussion{
		ClubID:  clubID,
		UserID:  caller.ID,
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

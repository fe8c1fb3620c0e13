package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"animetracker/internal/auth"
	"animetracker/internal/user"
)

type registerRequest struct {
	Username string `json:"username" binding:"required,max=64"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,max=72"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, bindError(err))
		return
	}
	sess, err := h.Users.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sessionBody(sess))
}

func (h *handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, bindError(err))
		return
	}
	sess, err := h.Users.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionBody(sess))
}

func (h *handler) profile(c *gin.Context) {
	id, _ := auth.FromGin(c)
	c.JSON(http.StatusOK, gin.H{"user": id})
}

func sessionBody(s user.Session) gin.H {
	return gin.H{
		"token": s.Token,
		"user": gin.H{
			"id":       s.User.ID,
			"username": s.User.Username,
			"email":    s.User.Email,
		},
	}
}

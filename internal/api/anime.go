package api

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"animetracker/internal/catalog"
)

func (h *handler) searchAnime(c *gin.Context) {
	raw, err := h.Catalog.Search(c.Request.Context(), c.Query("q"))
	h.relay(c, raw, err)
}

func (h *handler) topAnime(c *gin.Context) {
	raw, err := h.Catalog.Top(c.Request.Context(), catalog.ParseLimit(c.Query("limit")))
	h.relay(c, raw, err)
}

func (h *handler) seasonalAnime(c *gin.Context) {
	raw, err := h.Catalog.Seasonal(c.Request.Context(), catalog.ParseLimit(c.Query("limit")))
	h.relay(c, raw, err)
}

// relay writes the upstream payload byte for byte.
func (h *handler) relay(c *gin.Context, raw json.RawMessage, err error) {
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
}

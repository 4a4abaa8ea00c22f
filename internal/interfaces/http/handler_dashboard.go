package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) SupervisorDashboard(c *gin.Context) {
	d, err := h.dashboard.Dashboard(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// Chatbot reply templates
func (h *Handler) GetAllConfigs(c *gin.Context) {
	configs, err := h.dashboard.GetAllConfigs(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, configs)
}

func (h *Handler) SetConfig(c *gin.Context) {
	var req struct {
		Key   string `json:"key" binding:"required"`
		Value string `json:"value"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: key is required")
		return
	}
	if !ValidConfigKey(req.Key) {
		badRequest(c, "Invalid config key")
		return
	}
	if len(req.Value) > MaxConfigValLength {
		badRequest(c, "Config value too long")
		return
	}
	if err := h.dashboard.SetConfig(c.Request.Context(), req.Key, SanitizeString(req.Value)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "saved"})
}

func (h *Handler) SearchAreas(c *gin.Context) {
	q := TruncateString(SanitizeString(c.Query("q")), MaxSearchLength)
	if q == "" {
		badRequest(c, "q is required")
		return
	}
	limit, ok := queryInt(c, "limit")
	if !ok {
		badRequest(c, "Invalid limit")
		return
	}
	matches, err := h.matching.SearchAreas(c.Request.Context(), q, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, matches)
}

func (h *Handler) SearchConversations(c *gin.Context) {
	q := TruncateString(SanitizeString(c.Query("q")), MaxSearchLength)
	if q == "" {
		badRequest(c, "q is required")
		return
	}
	limit, ok := queryInt(c, "limit")
	if !ok {
		badRequest(c, "Invalid limit")
		return
	}
	matches, err := h.matching.SimilarConversations(c.Request.Context(), q, c.Query("phone"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, matches)
}

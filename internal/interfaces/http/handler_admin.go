package http

import (
	"net/http"

	"estate_crm/internal/usecases"

	"github.com/gin-gonic/gin"
)

// ListUsers returns accounts, optionally filtered by role and status
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.dashboard.ListUsers(c.Request.Context(), c.Query("role"), c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *Handler) ListBrokers(c *gin.Context) {
	brokers, err := h.dashboard.ListBrokers(c.Request.Context(), c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, brokers)
}

func (h *Handler) UpdateUserStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		badRequest(c, "Invalid user id")
		return
	}
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: status is required")
		return
	}
	user, err := h.dashboard.UpdateUserStatus(c.Request.Context(), actor(c), id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// BrokerPerformance is open to the broker it describes and to supervisors
func (h *Handler) BrokerPerformance(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		badRequest(c, "Invalid broker id")
		return
	}
	perf, err := h.dashboard.Performance(c.Request.Context(), actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, perf)
}

func (h *Handler) ListApplications(c *gin.Context) {
	apps, err := h.dashboard.ListApplications(c.Request.Context(), c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, apps)
}

func (h *Handler) DecideApplication(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		badRequest(c, "Invalid application id")
		return
	}
	var req usecases.ApplicationDecision
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: status is required")
		return
	}
	req.Note = SanitizeString(req.Note)
	app, err := h.dashboard.DecideApplication(c.Request.Context(), actor(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

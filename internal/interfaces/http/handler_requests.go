package http

import (
	"net/http"

	"estate_crm/internal/entities"
	"estate_crm/internal/usecases"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListCustomers(c *gin.Context) {
	limit, okLimit := queryInt(c, "limit")
	offset, okOffset := queryInt(c, "offset")
	if !okLimit || !okOffset {
		badRequest(c, "Invalid paging")
		return
	}
	search := TruncateString(SanitizeString(c.Query("search")), MaxSearchLength)
	customers, err := h.requests.ListCustomers(c.Request.Context(), search, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, customers)
}

func (h *Handler) CreateCustomer(c *gin.Context) {
	var req usecases.CustomerInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: name and phone are required")
		return
	}
	req.Name = SanitizeString(req.Name)
	req.Notes = SanitizeString(req.Notes)
	customer, err := h.requests.CreateCustomer(c.Request.Context(), actor(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, customer)
}

func (h *Handler) GetCustomer(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		badRequest(c, "Invalid customer id")
		return
	}
	customer, err := h.requests.GetCustomer(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

func (h *Handler) ListRequests(c *gin.Context) {
	var f entities.RequestFilter
	var ok [4]bool
	f.AreaID, ok[0] = queryInt(c, "area_id")
	f.BrokerID, ok[1] = queryInt(c, "broker_id")
	f.Limit, ok[2] = queryInt(c, "limit")
	f.Offset, ok[3] = queryInt(c, "offset")
	for _, good := range ok {
		if !good {
			badRequest(c, "Invalid filter")
			return
		}
	}
	f.Status = c.Query("status")
	f.Unassigned = c.Query("unassigned") == "true"

	requests, err := h.requests.List(c.Request.Context(), actor(c), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, requests)
}

func (h *Handler) CreateRequest(c *gin.Context) {
	var req usecases.RequestInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: customer_id and area_id are required")
		return
	}
	req.Notes = SanitizeString(req.Notes)
	created, err := h.requests.Create(c.Request.Context(), actor(c), req, entities.SourceManual)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) GetRequest(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		badRequest(c, "Invalid request id")
		return
	}
	req, err := h.requests.Get(c.Request.Context(), actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

func (h *Handler) UpdateRequest(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		badRequest(c, "Invalid request id")
		return
	}
	var req usecases.RequestUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}
	req.Note = SanitizeString(req.Note)
	updated, err := h.requests.Update(c.Request.Context(), actor(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) RequestHistory(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		badRequest(c, "Invalid request id")
		return
	}
	history, err := h.requests.History(c.Request.Context(), actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

func (h *Handler) ReassignRequest(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		badRequest(c, "Invalid request id")
		return
	}
	var req struct {
		BrokerID int    `json:"broker_id" binding:"required"`
		Note     string `json:"note"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: broker_id is required")
		return
	}
	updated, err := h.requests.Reassign(c.Request.Context(), actor(c), id, req.BrokerID, SanitizeString(req.Note))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

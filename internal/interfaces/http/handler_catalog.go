package http

import (
	"net/http"
	"strings"

	"estate_crm/internal/entities"
	"estate_crm/internal/usecases"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListAreas(c *gin.Context) {
	// Inactive areas are listed for supervisors who ask for them
	activeOnly := !(c.GetString(ctxRole) == entities.RoleSupervisor && c.Query("all") == "true")
	areas, err := h.catalog.ListAreas(c.Request.Context(), activeOnly)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, areas)
}

func (h *Handler) GetArea(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		badRequest(c, "Invalid area id")
		return
	}
	area, err := h.catalog.GetArea(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, area)
}

func (h *Handler) CreateArea(c *gin.Context) {
	var req usecases.AreaInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: name is required")
		return
	}
	area, err := h.catalog.CreateArea(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, area)
}

func (h *Handler) UpdateArea(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		badRequest(c, "Invalid area id")
		return
	}
	var req usecases.AreaInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: name is required")
		return
	}
	area, err := h.catalog.UpdateArea(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, area)
}

func (h *Handler) DeleteArea(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		badRequest(c, "Invalid area id")
		return
	}
	if err := h.catalog.DeleteArea(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ListUnitTypes(c *gin.Context) {
	types, err := h.catalog.ListUnitTypes(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, types)
}

func (h *Handler) CreateUnitType(c *gin.Context) {
	var req usecases.UnitTypeInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: name is required")
		return
	}
	t, err := h.catalog.CreateUnitType(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (h *Handler) ListUnits(c *gin.Context) {
	var f entities.UnitFilter
	var ok [7]bool
	f.AreaID, ok[0] = queryInt(c, "area_id")
	f.UnitTypeID, ok[1] = queryInt(c, "unit_type_id")
	f.Bedrooms, ok[2] = queryInt(c, "bedrooms")
	f.MinPrice, ok[3] = queryFloat(c, "min_price")
	f.MaxPrice, ok[4] = queryFloat(c, "max_price")
	f.Limit, ok[5] = queryInt(c, "limit")
	f.Offset, ok[6] = queryInt(c, "offset")
	for _, good := range ok {
		if !good {
			badRequest(c, "Invalid filter")
			return
		}
	}
	f.Status = c.Query("status")

	units, err := h.catalog.ListUnits(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, units)
}

func (h *Handler) CreateUnit(c *gin.Context) {
	var req usecases.UnitInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: area_id, unit_type_id and title are required")
		return
	}
	req.Title = SanitizeString(req.Title)
	unit, err := h.catalog.CreateUnit(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, unit)
}

func (h *Handler) UpdateUnit(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		badRequest(c, "Invalid unit id")
		return
	}
	var req usecases.UnitInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: area_id, unit_type_id and title are required")
		return
	}
	req.Title = SanitizeString(req.Title)
	unit, err := h.catalog.UpdateUnit(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, unit)
}

// ImportUnits takes a CSV sheet as multipart "file"
func (h *Handler) ImportUnits(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		badRequest(c, "Bad request: missing file")
		return
	}
	defer file.Close()
	if !strings.HasSuffix(strings.ToLower(header.Filename), ".csv") {
		badRequest(c, "Only .csv files are supported")
		return
	}

	n, err := h.catalog.ImportUnits(c.Request.Context(), file)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "imported", "units": n})
}

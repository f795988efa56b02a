package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jengzang/uav-ground-control/internal/logging"
	"github.com/jengzang/uav-ground-control/internal/models"
	"github.com/jengzang/uav-ground-control/internal/service"
	"github.com/jengzang/uav-ground-control/internal/spatial"
	"github.com/jengzang/uav-ground-control/pkg/response"
)

// FlightPlanHandler handles HTTP requests for flight plans
type FlightPlanHandler struct {
	plans  *service.FlightPlanService
	logger logging.Logger
}

// NewFlightPlanHandler creates a new flight plan handler
func NewFlightPlanHandler(plans *service.FlightPlanService, logger logging.Logger) *FlightPlanHandler {
	return &FlightPlanHandler{plans: plans, logger: logger}
}

// List handles GET /api/flight-plans
func (h *FlightPlanHandler) List(c *gin.Context) {
	plans, err := h.plans.List(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	response.Success(c, plans)
}

// Get handles GET /api/flight-plans/:id
func (h *FlightPlanHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	plan, err := h.plans.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	response.Success(c, plan)
}

// Shape handles GET /api/flight-plans/:id/shape
func (h *FlightPlanHandler) Shape(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	shape, err := h.plans.Shape(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	response.Success(c, spatial.Describe(shape))
}

// GeoJSON handles GET /api/flight-plans/:id/geojson
func (h *FlightPlanHandler) GeoJSON(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	feature, err := h.plans.Feature(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	response.Success(c, feature)
}

// Create handles POST /api/flight-plans
func (h *FlightPlanHandler) Create(c *gin.Context) {
	var req models.FlightPlanRequest
	if !bindJSON(c, &req) {
		return
	}

	id, err := h.plans.Create(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	response.Created(c, models.MutationResponse{ID: id, Message: "Flight plan created successfully"})
}

// Update handles PUT /api/flight-plans/:id
func (h *FlightPlanHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req models.FlightPlanRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.plans.Update(c.Request.Context(), id, req); err != nil {
		writeError(c, h.logger, err)
		return
	}
	response.Success(c, models.MutationResponse{ID: id, Message: "Flight plan updated successfully"})
}

// Delete handles DELETE /api/flight-plans/:id
func (h *FlightPlanHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.plans.Delete(c.Request.Context(), id); err != nil {
		writeError(c, h.logger, err)
		return
	}
	response.Success(c, models.MutationResponse{ID: id, Message: "Flight plan deleted successfully"})
}

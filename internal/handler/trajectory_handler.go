package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/uav-ground-control/internal/logging"
	"github.com/jengzang/uav-ground-control/internal/models"
	"github.com/jengzang/uav-ground-control/internal/service"
	"github.com/jengzang/uav-ground-control/pkg/response"
)

// TrajectoryHandler handles HTTP requests for recorded trajectories
type TrajectoryHandler struct {
	trajectories *service.TrajectoryService
	logger       logging.Logger
}

// NewTrajectoryHandler creates a new trajectory handler
func NewTrajectoryHandler(trajectories *service.TrajectoryService, logger logging.Logger) *TrajectoryHandler {
	return &TrajectoryHandler{trajectories: trajectories, logger: logger}
}

// List handles GET /api/trajectories
func (h *TrajectoryHandler) List(c *gin.Context) {
	list, err := h.trajectories.List(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	response.Success(c, list)
}

// Summary handles GET /api/stats/trajectories
func (h *TrajectoryHandler) Summary(c *gin.Context) {
	summary, err := h.trajectories.Summary(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	response.Success(c, summary)
}

// Get handles GET /api/trajectories/:id
func (h *TrajectoryHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	t, err := h.trajectories.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	response.Success(c, t)
}

// GeoJSON handles GET /api/trajectories/:id/geojson?simplify=meters
func (h *TrajectoryHandler) GeoJSON(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var tolerance float64
	if s := c.Query("simplify"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v < 0 {
			response.BadRequest(c, "Invalid simplify parameter")
			return
		}
		tolerance = v
	}

	feature, err := h.trajectories.Feature(c.Request.Context(), id, tolerance)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	response.Success(c, feature)
}

// Create handles POST /api/trajectories
func (h *TrajectoryHandler) Create(c *gin.Context) {
	var req models.TrajectoryRequest
	if !bindJSON(c, &req) {
		return
	}

	t, err := h.trajectories.Create(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	response.Created(c, models.TrajectoryCreatedResponse{
		ID:       t.ID,
		Distance: t.Distance,
		Message:  "Trajectory saved successfully",
	})
}

// Delete handles DELETE /api/trajectories/:id
func (h *TrajectoryHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.trajectories.Delete(c.Request.Context(), id); err != nil {
		writeError(c, h.logger, err)
		return
	}
	response.Success(c, models.MutationResponse{ID: id, Message: "Trajectory deleted successfully"})
}

// BulkDelete handles POST /api/trajectories/bulk-delete
func (h *TrajectoryHandler) BulkDelete(c *gin.Context) {
	var req models.BulkDeleteRequest
	if !bindJSON(c, &req) {
		return
	}

	n, err := h.trajectories.BulkDelete(c.Request.Context(), req.IDs)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	response.Success(c, models.BulkDeleteResponse{
		Deleted: n,
		Message: strconv.FormatInt(n, 10) + " trajectories deleted",
	})
}

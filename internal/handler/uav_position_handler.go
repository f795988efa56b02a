package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/uav-ground-control/internal/logging"
	"github.com/jengzang/uav-ground-control/internal/models"
	"github.com/jengzang/uav-ground-control/internal/service"
	"github.com/jengzang/uav-ground-control/pkg/response"
)

// UAVPositionHandler handles HTTP requests for UAV telemetry
type UAVPositionHandler struct {
	positions *service.UAVPositionService
	logger    logging.Logger
}

// NewUAVPositionHandler creates a new position handler
func NewUAVPositionHandler(positions *service.UAVPositionService, logger logging.Logger) *UAVPositionHandler {
	return &UAVPositionHandler{positions: positions, logger: logger}
}

// Latest handles GET /api/uav-position
func (h *UAVPositionHandler) Latest(c *gin.Context) {
	p, err := h.positions.Latest(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if p == nil {
		response.Message(c, "No position data available")
		return
	}
	response.Success(c, p)
}

// History handles GET /api/uav-position/history?limit=N. A missing or
// unparsable limit falls back to the default.
func (h *UAVPositionHandler) History(c *gin.Context) {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil {
		limit = 0
	}

	positions, err := h.positions.History(c.Request.Context(), limit)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	response.Success(c, positions)
}

// Create handles POST /api/uav-position
func (h *UAVPositionHandler) Create(c *gin.Context) {
	var req models.UAVPositionRequest
	if !bindJSON(c, &req) {
		return
	}

	id, err := h.positions.Record(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	response.Created(c, models.MutationResponse{ID: id, Message: "Position updated successfully"})
}

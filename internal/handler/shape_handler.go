package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jengzang/uav-ground-control/internal/logging"
	"github.com/jengzang/uav-ground-control/internal/models"
	"github.com/jengzang/uav-ground-control/internal/service"
	"github.com/jengzang/uav-ground-control/pkg/response"
)

// ShapeHandler serves stateless shape expansion
type ShapeHandler struct {
	logger logging.Logger
}

// NewShapeHandler creates a new shape handler
func NewShapeHandler(logger logging.Logger) *ShapeHandler {
	return &ShapeHandler{logger: logger}
}

// Expand handles POST /api/shapes/expand
func (h *ShapeHandler) Expand(c *gin.Context) {
	var req models.ShapeExpandRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := service.ExpandShape(req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	response.Success(c, resp)
}

package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/uav-ground-control/internal/logging"
	"github.com/jengzang/uav-ground-control/internal/service"
	"github.com/jengzang/uav-ground-control/pkg/response"
)

// writeError maps service errors onto HTTP responses. Unexpected errors are
// logged and reported without detail.
func writeError(c *gin.Context, logger logging.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		response.BadRequest(c, err.Error())
	case errors.Is(err, service.ErrNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, service.ErrNotReconstructible):
		response.UnprocessableEntity(c, err.Error())
	default:
		_ = c.Error(err)
		logger.Error(c.Request.Context(), "request failed",
			logging.String("path", c.FullPath()),
			logging.Err(err),
		)
		response.InternalError(c, "internal server error")
	}
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "invalid id "+strconv.Quote(c.Param("id")))
		return 0, false
	}
	return id, true
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return false
	}
	return true
}

package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"schoolattend/internal/attendance"
)

// fail maps service errors to HTTP statuses.
func (h *handler) fail(c *gin.Context, err error) {
	status, msg := http.StatusInternalServerError, "internal error"
	switch {
	case errors.Is(err, attendance.ErrNotFound):
		status, msg = http.StatusNotFound, "not found"
	case errors.Is(err, attendance.ErrCardTaken):
		status, msg = http.StatusConflict, "card id already registered"
	case errors.Is(err, attendance.ErrInvalidInput):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, attendance.ErrStoreUnavailable):
		status, msg = http.StatusServiceUnavailable, "store unavailable"
	}
	if status >= 500 {
		h.log.WithField("path", c.FullPath()).WithError(err).Error("request failed")
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}

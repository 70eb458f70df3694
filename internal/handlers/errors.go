package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Pokatocz/quest-and-check/internal/logging"
	"github.com/Pokatocz/quest-and-check/internal/middleware"
	"github.com/Pokatocz/quest-and-check/internal/services"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// respondError writes err with the status of its category. Store failures
// are reported to Sentry and hidden behind a generic notice.
func respondError(c *gin.Context, err error) {
	var storeErr *services.StoreError
	switch {
	case errors.Is(err, services.ErrValidation):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, services.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: err.Error()})
	case errors.Is(err, services.ErrPermission):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: err.Error()})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, services.ErrConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	case errors.As(err, &storeErr):
		logging.CaptureError("store", err, requestFields(c))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "storage unavailable"})
	default:
		logging.CaptureError("internal", err, requestFields(c))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}

func requestFields(c *gin.Context) logrus.Fields {
	return logrus.Fields{
		"method":  c.Request.Method,
		"path":    c.FullPath(),
		"user_id": middleware.GetUserID(c),
	}
}

// multipartOverhead leaves room for part headers and text fields on top of
// the file data an upload may carry.
const multipartOverhead = 64 << 10

// limitBody caps the request body at n bytes of file data. Zero leaves it
// unbounded.
func limitBody(c *gin.Context, n int64) {
	if n <= 0 {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n+multipartOverhead)
}

// badUpload answers a failed multipart parse, with 413 when the body cap was hit.
func badUpload(c *gin.Context, err error, msg string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "upload too large"})
		return
	}
	badRequest(c, msg)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

// pathID reads a positive numeric path parameter.
func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

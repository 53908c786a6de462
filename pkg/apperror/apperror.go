package apperror

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"storyhub/internal/domain"
	"storyhub/pkg/logger"
)

// RequestIDKey is the gin context key the request id middleware writes.
const RequestIDKey = "request_id"

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Field   string `json:"field,omitempty"`
	Details string `json:"details,omitempty"`
}

// Respond maps a domain error to a status code and writes it. Storage failures are
// logged in full while the client only sees the failing operation.
func Respond(c *gin.Context, err error) {
	var ve *domain.ValidationError
	var se *domain.StorageError
	switch {
	case errors.As(err, &ve):
		write(c, http.StatusBadRequest, ErrorResponse{Error: ve.Error(), Field: ve.Field}, err)
	case domain.IsNotFound(err):
		write(c, http.StatusNotFound, ErrorResponse{Error: err.Error()}, err)
	case errors.As(err, &se):
		write(c, http.StatusInternalServerError, ErrorResponse{
			Error:   "storage failure",
			Details: se.Op,
		}, err)
	default:
		write(c, http.StatusInternalServerError, ErrorResponse{Error: "internal error"}, err)
	}
}

// BadRequest writes a 400 for input problems found outside the domain layer,
// like a body that does not bind.
func BadRequest(c *gin.Context, msg string) {
	write(c, http.StatusBadRequest, ErrorResponse{Error: msg}, nil)
}

func write(c *gin.Context, status int, body ErrorResponse, err error) {
	fields := logrus.Fields{
		"status": status,
		"method": c.Request.Method,
		"path":   c.Request.URL.Path,
		"ip":     c.ClientIP(),
	}
	if rid := c.GetString(RequestIDKey); rid != "" {
		fields["request_id"] = rid
	}
	entry := logger.WithFields(fields)
	if err != nil {
		entry = entry.WithError(err)
	}
	if status >= http.StatusInternalServerError {
		entry.Error("http error")
	} else {
		entry.Warn("http error")
	}

	c.AbortWithStatusJSON(status, body)
}

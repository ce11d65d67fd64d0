// Package response defines the JSON envelope shared by the sentiment read
// API endpoints.
package response

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Envelope wraps every read-API payload. ServedAt lets dashboard consumers
// judge snapshot freshness without comparing clocks.
type Envelope struct {
	Status    string      `json:"status"`
	Data      interface{} `json:"data,omitempty"`
	ErrorType string      `json:"error_type,omitempty"`
	Message   string      `json:"message,omitempty"`
	ServedAt  time.Time   `json:"served_at"`
}

// SuccessResponse sends a successful JSON envelope
func SuccessResponse(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, Envelope{
		Status:   "success",
		Data:     data,
		ServedAt: time.Now().UTC(),
	})
}

// ErrorResponse sends an error JSON envelope
func ErrorResponse(c echo.Context, httpStatus int, errorType, message string) error {
	return c.JSON(httpStatus, Envelope{
		Status:    "error",
		ErrorType: errorType,
		Message:   message,
		ServedAt:  time.Now().UTC(),
	})
}

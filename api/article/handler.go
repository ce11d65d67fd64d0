package article

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/finsig/sentimentd/shared/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// GetRecent serves recently fetched articles, newest first.
func (h *Handler) GetRecent(c echo.Context) error {
	window := 3600
	if v := c.QueryParam("window"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return response.ErrorResponse(c, http.StatusBadRequest, "InputException", "window must be a positive number of seconds")
		}
		window = n
	}
	limit := 100
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 1000 {
			return response.ErrorResponse(c, http.StatusBadRequest, "InputException", "limit must be 1-1000")
		}
		limit = n
	}

	articles, err := h.service.GetRecent(time.Duration(window)*time.Second, limit)
	if err != nil {
		return response.ErrorResponse(c, http.StatusInternalServerError, "ServerException", err.Error())
	}
	return response.SuccessResponse(c, articles)
}

package candle

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/finsig/sentimentd/shared/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// GetHundredTick serves the newest 100-tick candles.
func (h *Handler) GetHundredTick(c echo.Context) error {
	limit := 50
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 1000 {
			return response.ErrorResponse(c, http.StatusBadRequest, "InputException", "limit must be 1-1000")
		}
		limit = n
	}

	candles, err := h.service.GetRecentHundredTick(limit)
	if err != nil {
		return response.ErrorResponse(c, http.StatusInternalServerError, "ServerException", err.Error())
	}
	return response.SuccessResponse(c, candles)
}

package snapshot

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

// GetLatest serves the newest second snapshot.
func (h *Handler) GetLatest(c echo.Context) error {
	snap, err := h.service.GetLatest()
	if err != nil {
		return response.ErrorResponse(c, http.StatusInternalServerError, "ServerException", err.Error())
	}
	if snap == nil {
		return response.ErrorResponse(c, http.StatusNotFound, "DataNotFound", "No snapshot available")
	}
	return response.SuccessResponse(c, snap)
}

// GetRecent serves snapshots from a window, newest first.
func (h *Handler) GetRecent(c echo.Context) error {
	window := queryInt(c, "window", 300)
	limit := queryInt(c, "limit", 600)
	snaps, err := h.service.GetRecent(time.Duration(window)*time.Second, limit)
	if err != nil {
		return response.ErrorResponse(c, http.StatusInternalServerError, "ServerException", err.Error())
	}
	return response.SuccessResponse(c, snaps)
}

// GetLatestMinuteRow serves the newest minute analysis row.
func (h *Handler) GetLatestMinuteRow(c echo.Context) error {
	row, err := h.service.GetLatestMinuteRow()
	if err != nil {
		return response.ErrorResponse(c, http.StatusInternalServerError, "ServerException", err.Error())
	}
	if row == nil {
		return response.ErrorResponse(c, http.StatusNotFound, "DataNotFound", "No minute row available")
	}
	return response.SuccessResponse(c, row)
}

func queryInt(c echo.Context, name string, def int) int {
	v := c.QueryParam(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

package api

import (
	"fmt"
	"net/http"

	"concert-booking/internal/handler/httperr"
	"concert-booking/internal/pkg/errs"
	"concert-booking/internal/pkg/outcome"
	"concert-booking/internal/usecase/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type SeatHandler struct {
	seatQueries   queries.SeatQueries
	countCacheAge int
}

func NewSeatHandler(seatQueries queries.SeatQueries, countCacheAgeSeconds int) *SeatHandler {
	return &SeatHandler{
		seatQueries:   seatQueries,
		countCacheAge: countCacheAgeSeconds,
	}
}

// @Summary Seat status for a schedule
// @Description Authoritative seat list with statuses, polled by booking clients
// @Tags seats
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} queries.SeatStatusView
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /schedules/{id}/seats/status [get]
func (h *SeatHandler) GetSeatStatus(c *gin.Context) {
	scheduleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httperr.AbortWithCode(c, outcome.CodeValidationError, err, "invalid schedule id")
		return
	}

	view, err := h.seatQueries.SeatStatus(c.Request.Context(), scheduleID)
	if err != nil {
		switch {
		case errs.Is(err, queries.ErrScheduleNotFound):
			httperr.AbortWithCode(c, outcome.CodeScheduleNotFound, err, "schedule not found")
		default:
			httperr.AbortWithCode(c, outcome.CodeInternalError, err, "internal server error")
		}
		return
	}

	c.JSON(http.StatusOK, view)
}

// @Summary Seat count aggregates
// @Description Lightweight polling target; cacheable for about a minute
// @Tags seats
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} queries.SeatCountView
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /schedules/{id}/seats/count [get]
func (h *SeatHandler) GetSeatCounts(c *gin.Context) {
	scheduleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httperr.AbortWithCode(c, outcome.CodeValidationError, err, "invalid schedule id")
		return
	}

	view, err := h.seatQueries.SeatCounts(c.Request.Context(), scheduleID)
	if err != nil {
		switch {
		case errs.Is(err, queries.ErrScheduleNotFound):
			httperr.AbortWithCode(c, outcome.CodeScheduleNotFound, err, "schedule not found")
		default:
			httperr.AbortWithCode(c, outcome.CodeInternalError, err, "internal server error")
		}
		return
	}

	c.Header("Cache-Control", fmt.Sprintf("public, max-age=%d", h.countCacheAge))
	c.JSON(http.StatusOK, view)
}

package api

import (
	"errors"
	"net/http"

	reqdto "concert-booking/internal/handler/dto/request"
	resdto "concert-booking/internal/handler/dto/response"
	"concert-booking/internal/handler/httperr"
	"concert-booking/internal/pkg/errs"
	"concert-booking/internal/pkg/outcome"
	"concert-booking/internal/usecase/commands"
	"concert-booking/internal/usecase/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type BookingHandler struct {
	bookingCommands    commands.ReservationCommands
	reservationQueries queries.ReservationQueries
}

func NewBookingHandler(bookingCommands commands.ReservationCommands, reservationQueries queries.ReservationQueries) *BookingHandler {
	return &BookingHandler{
		bookingCommands:    bookingCommands,
		reservationQueries: reservationQueries,
	}
}

// @Summary Validate seat availability
// @Description Advisory pre-flight check; state can change before commit
// @Tags booking
// @Accept json
// @Produce json
// @Param request body request.ValidateSeatsRequest true "Seats to validate"
// @Success 200 {object} response.ValidateSeatsResponse
// @Failure 400 {object} response.ErrorResponse
// @Router /booking/validate-seats [post]
func (h *BookingHandler) ValidateSeats(c *gin.Context) {
	var req reqdto.ValidateSeatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithCode(c, outcome.CodeValidationError, err, "invalid request format")
		return
	}

	result, err := h.bookingCommands.ValidateSeats(c.Request.Context(), req.ScheduleID, req.SeatIDs)
	if err != nil {
		switch {
		case errs.Is(err, commands.ErrValidation):
			httperr.AbortWithCode(c, outcome.CodeValidationError, err, "invalid seat ids")
		default:
			httperr.AbortWithCode(c, outcome.CodeInternalError, err, "internal server error")
		}
		return
	}

	c.JSON(http.StatusOK, resdto.ValidateSeatsResponse{
		Valid:        result.Valid,
		InvalidSeats: result.InvalidSeats,
	})
}

// @Summary Create reservation
// @Description Atomic reserve-and-create; at most one confirmed reservation per seat
// @Tags booking
// @Accept json
// @Produce json
// @Param request body request.CreateReservationRequest true "Reservation request"
// @Success 201 {object} response.ReservationResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Router /reservations [post]
func (h *BookingHandler) CreateReservation(c *gin.Context) {
	var req reqdto.CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithCode(c, outcome.CodeValidationError, err, "invalid request format")
		return
	}

	result, err := h.bookingCommands.CreateReservation(c.Request.Context(), commands.CreateReservationInput{
		ScheduleID:      req.ScheduleID,
		SeatIDs:         req.SeatIDs,
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		CustomerEmail:   req.CustomerEmail,
		TotalPriceCents: req.TotalPrice,
	})
	if err != nil {
		h.writeCommitError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resdto.FromReservationResult(result))
}

func (h *BookingHandler) writeCommitError(c *gin.Context, err error) {
	var unavailable *commands.SeatsNotAvailableError
	switch {
	case errors.As(err, &unavailable):
		code := outcome.CodeSeatsNotAvailable
		body := resdto.NewErrorResponse(code, "some seats are no longer available")
		body.InvalidSeats = unavailable.SeatIDs
		httperr.AbortWithBody(c, code, err, body)
	case errs.Is(err, commands.ErrSeatsNotAvailable):
		httperr.AbortWithCode(c, outcome.CodeSeatsNotAvailable, err, "some seats are no longer available")
	case errs.Is(err, commands.ErrDuplicateReservation):
		httperr.AbortWithCode(c, outcome.CodeDuplicateReservation, err, "a reservation already exists for this customer")
	case errs.Is(err, commands.ErrScheduleExpired):
		httperr.AbortWithCode(c, outcome.CodeScheduleExpired, err, "schedule has already started")
	case errs.Is(err, commands.ErrScheduleNotFound):
		httperr.AbortWithCode(c, outcome.CodeScheduleNotFound, err, "schedule not found")
	case errs.Is(err, commands.ErrValidation):
		httperr.AbortWithCode(c, outcome.CodeValidationError, err, "invalid reservation request")
	default:
		httperr.AbortWithCode(c, outcome.CodeInternalError, err, "internal server error")
	}
}

// @Summary Get reservation
// @Tags booking
// @Produce json
// @Param id path string true "Reservation ID"
// @Success 200 {object} queries.ReservationView
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /reservations/{id} [get]
func (h *BookingHandler) GetReservation(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httperr.AbortWithCode(c, outcome.CodeValidationError, err, "invalid reservation id")
		return
	}

	view, err := h.reservationQueries.GetByID(c.Request.Context(), id)
	if err != nil {
		switch {
		case errs.Is(err, queries.ErrReservationNotFound):
			httperr.AbortWithCode(c, outcome.CodeReservationNotFound, err, "reservation not found")
		default:
			httperr.AbortWithCode(c, outcome.CodeInternalError, err, "internal server error")
		}
		return
	}

	c.JSON(http.StatusOK, view)
}

// @Summary Cancel reservation
// @Description Idempotent; refused inside the cancellation cutoff window
// @Tags booking
// @Produce json
// @Param id path string true "Reservation ID"
// @Success 204
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Router /reservations/{id} [delete]
func (h *BookingHandler) CancelReservation(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httperr.AbortWithCode(c, outcome.CodeValidationError, err, "invalid reservation id")
		return
	}

	if err := h.bookingCommands.CancelReservation(c.Request.Context(), id); err != nil {
		switch {
		case errs.Is(err, commands.ErrReservationNotFound):
			httperr.AbortWithCode(c, outcome.CodeReservationNotFound, err, "reservation not found")
		case errs.Is(err, commands.ErrCancellationClosed):
			httperr.AbortWithCode(c, outcome.CodeCancellationClosed, err, "cancellation window has closed")
		default:
			httperr.AbortWithCode(c, outcome.CodeInternalError, err, "internal server error")
		}
		return
	}

	c.Status(http.StatusNoContent)
}

package response

import (
	"time"

	"concert-booking/internal/pkg/outcome"
	"concert-booking/internal/usecase/commands"

	"github.com/google/uuid"
)

type ReservationResponse struct {
	ReservationID     uuid.UUID   `json:"reservationId"`
	ReservationNumber string      `json:"reservationNumber"`
	ScheduleID        uuid.UUID   `json:"scheduleId"`
	SeatIDs           []uuid.UUID `json:"seatIds"`
	TotalPriceCents   int64       `json:"totalPriceCents"`
	Status            string      `json:"status"`
	CreatedAt         time.Time   `json:"createdAt"`
}

func FromReservationResult(r *commands.ReservationResult) *ReservationResponse {
	return &ReservationResponse{
		ReservationID:     r.ID,
		ReservationNumber: r.ReservationNumber,
		ScheduleID:        r.ScheduleID,
		SeatIDs:           r.SeatIDs,
		TotalPriceCents:   r.TotalPriceCents,
		Status:            r.Status,
		CreatedAt:         r.CreatedAt,
	}
}

type ValidateSeatsResponse struct {
	Valid        bool        `json:"valid"`
	InvalidSeats []uuid.UUID `json:"invalidSeats,omitempty"`
}

// ErrorResponse is the typed error body both the handlers and the
// booking client agree on.
type ErrorResponse struct {
	Error        string      `json:"error"`
	Code         string      `json:"code"`
	InvalidSeats []uuid.UUID `json:"invalidSeats,omitempty"`
}

func NewErrorResponse(code outcome.Code, msg string) ErrorResponse {
	return ErrorResponse{Error: msg, Code: code.String()}
}

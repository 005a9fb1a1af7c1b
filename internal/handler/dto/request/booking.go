package request

import "github.com/google/uuid"

type ValidateSeatsRequest struct {
	ScheduleID uuid.UUID   `json:"scheduleId" binding:"required"`
	SeatIDs    []uuid.UUID `json:"seatIds" binding:"required,min=1"`
}

type CreateReservationRequest struct {
	ScheduleID    uuid.UUID   `json:"scheduleId" binding:"required"`
	SeatIDs       []uuid.UUID `json:"seatIds" binding:"required,min=1"`
	CustomerName  string      `json:"customerName" binding:"required"`
	CustomerPhone string      `json:"customerPhone" binding:"required"`
	CustomerEmail *string     `json:"customerEmail"`
	TotalPrice    *int64      `json:"totalPrice"`
}

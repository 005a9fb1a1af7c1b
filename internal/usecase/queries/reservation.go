package queries

import (
	"context"
	"time"

	"concert-booking/internal/domain/reservation"
	"concert-booking/internal/infra"
	"concert-booking/internal/pkg/errs"

	"github.com/google/uuid"
)

var ErrReservationNotFound = errs.New("reservation not found")

type ReservationView struct {
	ID                uuid.UUID   `json:"reservationId"`
	ReservationNumber string      `json:"reservationNumber"`
	ScheduleID        uuid.UUID   `json:"scheduleId"`
	SeatIDs           []uuid.UUID `json:"seatIds"`
	CustomerName      string      `json:"customerName"`
	CustomerPhone     string      `json:"customerPhone"`
	CustomerEmail     *string     `json:"customerEmail,omitempty"`
	TotalPriceCents   int64       `json:"totalPriceCents"`
	Status            string      `json:"status"`
	CreatedAt         time.Time   `json:"createdAt"`
	UpdatedAt         time.Time   `json:"updatedAt"`
}

type ReservationReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*reservation.Reservation, error)
}

type ReservationQueries interface {
	GetByID(ctx context.Context, id uuid.UUID) (*ReservationView, error)
}

type reservationQueriesImpl struct {
	reservations ReservationReader
}

func NewReservationQueries(reservations ReservationReader) ReservationQueries {
	return &reservationQueriesImpl{reservations: reservations}
}

func (q *reservationQueriesImpl) GetByID(ctx context.Context, id uuid.UUID) (*ReservationView, error) {
	res, err := q.reservations.FindByID(ctx, id)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrReservationNotFound
		}
		return nil, errs.Mark(err, ErrQueryFailed)
	}

	contact := res.Contact()
	return &ReservationView{
		ID:                res.ID(),
		ReservationNumber: res.Number().String(),
		ScheduleID:        res.ScheduleID(),
		SeatIDs:           res.SeatIDs(),
		CustomerName:      contact.Name(),
		CustomerPhone:     contact.Phone(),
		CustomerEmail:     contact.Email(),
		TotalPriceCents:   res.TotalPrice().Cents(),
		Status:            string(res.Status()),
		CreatedAt:         res.CreatedAt(),
		UpdatedAt:         res.UpdatedAt(),
	}, nil
}

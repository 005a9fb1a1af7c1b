package commands

import (
	"context"
	"time"

	"concert-booking/internal/domain/reservation"
	"concert-booking/internal/domain/seat"

	"github.com/google/uuid"
)

// TxRunner runs fn inside one database transaction; repository calls
// made with the ctx it passes down join that transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type SeatRepository interface {
	FindByIDs(ctx context.Context, scheduleID uuid.UUID, seatIDs []uuid.UUID) ([]seat.Seat, error)
	// ReserveAvailable atomically flips still-available seats to
	// reserved and returns the number of rows changed.
	ReserveAvailable(ctx context.Context, scheduleID uuid.UUID, seatIDs []uuid.UUID) (int64, error)
	Release(ctx context.Context, scheduleID uuid.UUID, seatIDs []uuid.UUID) error
	FindUnavailable(ctx context.Context, scheduleID uuid.UUID, seatIDs []uuid.UUID) ([]uuid.UUID, error)
	ScheduleStartsAt(ctx context.Context, scheduleID uuid.UUID) (time.Time, error)
}

type ReservationRepository interface {
	Create(ctx context.Context, res *reservation.Reservation) error
	ExistsConfirmed(ctx context.Context, scheduleID uuid.UUID, phone string) (bool, error)
	FindByID(ctx context.Context, id uuid.UUID) (*reservation.Reservation, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status reservation.Status, updatedAt time.Time) error
}

// EventPublisher is best effort: implementations log and swallow broker
// failures.
type EventPublisher interface {
	PublishConfirmed(ctx context.Context, res *reservation.Reservation)
	PublishCancelled(ctx context.Context, res *reservation.Reservation)
}

// SeatCountInvalidator drops cached seat aggregates after a commit or
// cancellation changes them.
type SeatCountInvalidator interface {
	Invalidate(ctx context.Context, scheduleID uuid.UUID)
}

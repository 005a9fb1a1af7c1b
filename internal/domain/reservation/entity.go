package reservation

import (
	"errors"
	"time"

	"concert-booking/internal/pkg/clock"

	"github.com/google/uuid"
)

var (
	ErrNoSeats            = errors.New("at least one seat is required")
	ErrTooManySeats       = errors.New("too many seats requested")
	ErrDuplicateSeat      = errors.New("duplicate seat in request")
	ErrPriceMismatch      = errors.New("total price does not match seat prices")
	ErrCancellationClosed = errors.New("cancellation window has closed")
	ErrInvalidStatus      = errors.New("invalid reservation status")
)

type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

func NewStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusConfirmed, StatusCancelled:
		return Status(s), nil
	default:
		return "", ErrInvalidStatus
	}
}

type Reservation struct {
	id         uuid.UUID
	number     Number
	scheduleID uuid.UUID
	seatIDs    []uuid.UUID
	contact    Contact
	totalPrice Money
	status     Status
	createdAt  time.Time
	updatedAt  time.Time
}

func (r *Reservation) ID() uuid.UUID         { return r.id }
func (r *Reservation) Number() Number        { return r.number }
func (r *Reservation) ScheduleID() uuid.UUID { return r.scheduleID }
func (r *Reservation) Contact() Contact      { return r.contact }
func (r *Reservation) TotalPrice() Money     { return r.totalPrice }
func (r *Reservation) Status() Status        { return r.status }
func (r *Reservation) CreatedAt() time.Time  { return r.createdAt }
func (r *Reservation) UpdatedAt() time.Time  { return r.updatedAt }

// SeatIDs returns a copy; the committed seat list is immutable.
func (r *Reservation) SeatIDs() []uuid.UUID {
	out := make([]uuid.UUID, len(r.seatIDs))
	copy(out, r.seatIDs)
	return out
}

// Cancel transitions confirmed -> cancelled. It is idempotent: cancelling
// an already-cancelled reservation is a no-op. The transition is refused
// once startsAt is within cutoff of now.
func (r *Reservation) Cancel(clk clock.Clock, startsAt time.Time, cutoff time.Duration) error {
	if r.status == StatusCancelled {
		return nil
	}
	now := clk.Now()
	if now.After(startsAt.Add(-cutoff)) {
		return ErrCancellationClosed
	}
	r.status = StatusCancelled
	r.updatedAt = now
	return nil
}

// Restore rebuilds a Reservation from persisted state. No invariants are
// re-checked; the row was validated when it was written.
func Restore(
	id uuid.UUID,
	number Number,
	scheduleID uuid.UUID,
	seatIDs []uuid.UUID,
	contact Contact,
	totalPrice Money,
	status Status,
	createdAt, updatedAt time.Time,
) *Reservation {
	return &Reservation{
		id:         id,
		number:     number,
		scheduleID: scheduleID,
		seatIDs:    seatIDs,
		contact:    contact,
		totalPrice: totalPrice,
		status:     status,
		createdAt:  createdAt,
		updatedAt:  updatedAt,
	}
}

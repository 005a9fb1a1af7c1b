package reservation

import (
	"time"

	"concert-booking/internal/domain/seat"
	"concert-booking/internal/pkg/clock"

	"github.com/google/uuid"
)

// Factory builds new reservations from a validated seat selection.
// Seat availability is NOT checked here: that is the commit service's
// job, inside the atomic reserve step. The factory only enforces the
// request-shape invariants (seat count, no duplicates, price integrity).
type Factory struct {
	clock    clock.Clock
	maxSeats int
}

func NewFactory(clk clock.Clock, maxSeats int) *Factory {
	if maxSeats <= 0 {
		maxSeats = 4
	}
	return &Factory{clock: clk, maxSeats: maxSeats}
}

// CreateReservation validates the selection against the requested seats
// and, when claimedTotal is non-nil, cross-checks it against the seat
// prices so a stale client cannot commit at an outdated price.
func (f *Factory) CreateReservation(
	scheduleID uuid.UUID,
	seats []seat.Seat,
	contact Contact,
	claimedTotalCents *int64,
) (*Reservation, error) {
	if len(seats) == 0 {
		return nil, ErrNoSeats
	}
	if len(seats) > f.maxSeats {
		return nil, ErrTooManySeats
	}

	seen := make(map[uuid.UUID]struct{}, len(seats))
	seatIDs := make([]uuid.UUID, 0, len(seats))
	var totalCents int64
	for _, s := range seats {
		if _, dup := seen[s.ID]; dup {
			return nil, ErrDuplicateSeat
		}
		seen[s.ID] = struct{}{}
		seatIDs = append(seatIDs, s.ID)
		totalCents += int64(s.PriceCents)
	}

	if claimedTotalCents != nil && *claimedTotalCents != totalCents {
		return nil, ErrPriceMismatch
	}

	total, err := NewMoney(totalCents)
	if err != nil {
		return nil, err
	}

	now := f.clock.Now()
	return &Reservation{
		id:         uuid.New(),
		number:     NewNumber(now),
		scheduleID: scheduleID,
		seatIDs:    seatIDs,
		contact:    contact,
		totalPrice: total,
		status:     StatusConfirmed,
		createdAt:  now,
		updatedAt:  now,
	}, nil
}

// CancelCutoff is the default lead time before the event start after
// which cancellation is refused.
const CancelCutoff = 24 * time.Hour

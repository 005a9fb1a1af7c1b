//go:build unit

package commands_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"concert-booking/internal/domain/reservation"
	"concert-booking/internal/domain/seat"
	"concert-booking/internal/infra"
	"concert-booking/internal/pkg/clock"
	"concert-booking/internal/pkg/errs"
	"concert-booking/internal/usecase/commands"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	baseTime = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	startsAt = baseTime.Add(72 * time.Hour)

	errUniqueViolation = errors.New("unique constraint violation")
)

// Sentinels attached with errs.Mark are outside the stdlib unwrap
// chain, so testify's ErrorIs cannot see them.
func assertErrIs(t *testing.T, err, want error) {
	t.Helper()
	assert.True(t, errs.Is(err, want), "expected %v, got %v", want, err)
}

func requireErrIs(t *testing.T, err, want error) {
	t.Helper()
	require.True(t, errs.Is(err, want), "expected %v, got %v", want, err)
}

// fakeStore emulates the repositories plus transactional rollback:
// WithTx snapshots the state and restores it when the unit fails, and
// serializes transactions the way row locks serialize the real ones.
type fakeStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	schedules    map[uuid.UUID]time.Time
	seats        map[uuid.UUID]seat.Seat
	reservations map[uuid.UUID]*reservation.Reservation

	// forceDuplicateOnCreate simulates the partial unique index firing
	// on a race the pre-check missed.
	forceDuplicateOnCreate bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		schedules:    make(map[uuid.UUID]time.Time),
		seats:        make(map[uuid.UUID]seat.Seat),
		reservations: make(map[uuid.UUID]*reservation.Reservation),
	}
}

type storeSnapshot struct {
	seats        map[uuid.UUID]seat.Seat
	reservations map[uuid.UUID]*reservation.Reservation
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.txMu.Lock()
	defer f.txMu.Unlock()

	f.mu.Lock()
	snap := storeSnapshot{
		seats:        make(map[uuid.UUID]seat.Seat, len(f.seats)),
		reservations: make(map[uuid.UUID]*reservation.Reservation, len(f.reservations)),
	}
	for id, s := range f.seats {
		snap.seats[id] = s
	}
	for id, r := range f.reservations {
		snap.reservations[id] = r
	}
	f.mu.Unlock()

	if err := fn(ctx); err != nil {
		f.mu.Lock()
		f.seats = snap.seats
		f.reservations = snap.reservations
		f.mu.Unlock()
		return err
	}
	return nil
}

func (f *fakeStore) addSchedule(start time.Time) uuid.UUID {
	id := uuid.New()
	f.schedules[id] = start
	return id
}

func (f *fakeStore) addSeat(scheduleID uuid.UUID, status seat.Status, price int32) uuid.UUID {
	id := uuid.New()
	f.seats[id] = seat.Seat{
		ID:         id,
		ScheduleID: scheduleID,
		Row:        "A",
		Number:     len(f.seats) + 1,
		Grade:      seat.GradeS,
		PriceCents: price,
		Status:     status,
	}
	return id
}

func (f *fakeStore) seatStatus(id uuid.UUID) seat.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seats[id].Status
}

func (f *fakeStore) FindByIDs(_ context.Context, scheduleID uuid.UUID, seatIDs []uuid.UUID) ([]seat.Seat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []seat.Seat
	for _, id := range seatIDs {
		if s, ok := f.seats[id]; ok && s.ScheduleID == scheduleID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStore) ReserveAvailable(_ context.Context, scheduleID uuid.UUID, seatIDs []uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var affected int64
	for _, id := range seatIDs {
		s, ok := f.seats[id]
		if ok && s.ScheduleID == scheduleID && s.Status == seat.StatusAvailable {
			s.Status = seat.StatusReserved
			f.seats[id] = s
			affected++
		}
	}
	return affected, nil
}

func (f *fakeStore) Release(_ context.Context, scheduleID uuid.UUID, seatIDs []uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range seatIDs {
		s, ok := f.seats[id]
		if ok && s.ScheduleID == scheduleID && s.Status == seat.StatusReserved {
			s.Status = seat.StatusAvailable
			f.seats[id] = s
		}
	}
	return nil
}

func (f *fakeStore) FindUnavailable(_ context.Context, scheduleID uuid.UUID, seatIDs []uuid.UUID) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var unavailable []uuid.UUID
	for _, id := range seatIDs {
		s, ok := f.seats[id]
		if !ok || s.ScheduleID != scheduleID || s.Status != seat.StatusAvailable {
			unavailable = append(unavailable, id)
		}
	}
	return unavailable, nil
}

func (f *fakeStore) ScheduleStartsAt(_ context.Context, scheduleID uuid.UUID) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	start, ok := f.schedules[scheduleID]
	if !ok {
		return time.Time{}, infra.WrapRepoErr("schedule not found", pgx.ErrNoRows, infra.KindNotFound)
	}
	return start, nil
}

func (f *fakeStore) Create(_ context.Context, res *reservation.Reservation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.forceDuplicateOnCreate {
		return infra.WrapRepoErr("duplicate reservation", errUniqueViolation, infra.KindDuplicateKey)
	}
	for _, existing := range f.reservations {
		if existing.ScheduleID() == res.ScheduleID() &&
			existing.Contact().Phone() == res.Contact().Phone() &&
			existing.Status() == reservation.StatusConfirmed {
			return infra.WrapRepoErr("duplicate reservation", errUniqueViolation, infra.KindDuplicateKey)
		}
	}
	f.reservations[res.ID()] = res
	return nil
}

func (f *fakeStore) ExistsConfirmed(_ context.Context, scheduleID uuid.UUID, phone string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, res := range f.reservations {
		if res.ScheduleID() == scheduleID && res.Contact().Phone() == phone &&
			res.Status() == reservation.StatusConfirmed {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) FindByID(_ context.Context, id uuid.UUID) (*reservation.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	res, ok := f.reservations[id]
	if !ok {
		return nil, infra.WrapRepoErr("reservation not found", pgx.ErrNoRows, infra.KindNotFound)
	}
	return res, nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, id uuid.UUID, _ reservation.Status, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.reservations[id]; !ok {
		return infra.WrapRepoErr("reservation not found", pgx.ErrNoRows, infra.KindNotFound)
	}
	return nil
}

type fakePublisher struct {
	mu        sync.Mutex
	confirmed []uuid.UUID
	cancelled []uuid.UUID
}

func (p *fakePublisher) PublishConfirmed(_ context.Context, res *reservation.Reservation) {
	p.mu.Lock()
	p.confirmed = append(p.confirmed, res.ID())
	p.mu.Unlock()
}

func (p *fakePublisher) PublishCancelled(_ context.Context, res *reservation.Reservation) {
	p.mu.Lock()
	p.cancelled = append(p.cancelled, res.ID())
	p.mu.Unlock()
}

type fakeInvalidator struct {
	mu        sync.Mutex
	schedules []uuid.UUID
}

func (i *fakeInvalidator) Invalidate(_ context.Context, scheduleID uuid.UUID) {
	i.mu.Lock()
	i.schedules = append(i.schedules, scheduleID)
	i.mu.Unlock()
}

type fixture struct {
	store       *fakeStore
	publisher   *fakePublisher
	invalidator *fakeInvalidator
	clk         *clock.MockClock
	uc          commands.ReservationCommands
}

func newFixture() *fixture {
	store := newFakeStore()
	publisher := &fakePublisher{}
	invalidator := &fakeInvalidator{}
	clk := clock.NewMockClock(baseTime)
	uc := commands.NewReservationUseCase(
		store, store, store,
		reservation.NewFactory(clk, 4),
		publisher, invalidator, clk,
		24*time.Hour,
	)
	return &fixture{
		store:       store,
		publisher:   publisher,
		invalidator: invalidator,
		clk:         clk,
		uc:          uc,
	}
}

func input(scheduleID uuid.UUID, seatIDs ...uuid.UUID) commands.CreateReservationInput {
	return commands.CreateReservationInput{
		ScheduleID:    scheduleID,
		SeatIDs:       seatIDs,
		CustomerName:  "山田太郎",
		CustomerPhone: "090-1234-5678",
	}
}

// ================================================================================
// CreateReservation
// ================================================================================

func TestCreateReservation(t *testing.T) {
	ctx := context.Background()

	t.Run("success reserves seats and publishes", func(t *testing.T) {
		fx := newFixture()
		scheduleID := fx.store.addSchedule(startsAt)
		seatA := fx.store.addSeat(scheduleID, seat.StatusAvailable, 5000)
		seatB := fx.store.addSeat(scheduleID, seat.StatusAvailable, 7000)

		result, err := fx.uc.CreateReservation(ctx, input(scheduleID, seatA, seatB))
		require.NoError(t, err)

		assert.Equal(t, scheduleID, result.ScheduleID)
		assert.Equal(t, []uuid.UUID{seatA, seatB}, result.SeatIDs)
		assert.Equal(t, int64(12000), result.TotalPriceCents)
		assert.Equal(t, string(reservation.StatusConfirmed), result.Status)
		assert.NotEmpty(t, result.ReservationNumber)

		assert.Equal(t, seat.StatusReserved, fx.store.seatStatus(seatA))
		assert.Equal(t, seat.StatusReserved, fx.store.seatStatus(seatB))
		assert.Equal(t, []uuid.UUID{result.ID}, fx.publisher.confirmed)
		assert.Equal(t, []uuid.UUID{scheduleID}, fx.invalidator.schedules)
	})

	t.Run("invalid contact is a validation error", func(t *testing.T) {
		fx := newFixture()
		scheduleID := fx.store.addSchedule(startsAt)
		seatA := fx.store.addSeat(scheduleID, seat.StatusAvailable, 5000)

		in := input(scheduleID, seatA)
		in.CustomerPhone = "not-a-phone"
		_, err := fx.uc.CreateReservation(ctx, in)
		assertErrIs(t, err, commands.ErrValidation)
	})

	t.Run("unknown seat id is a validation error", func(t *testing.T) {
		fx := newFixture()
		scheduleID := fx.store.addSchedule(startsAt)
		seatA := fx.store.addSeat(scheduleID, seat.StatusAvailable, 5000)

		_, err := fx.uc.CreateReservation(ctx, input(scheduleID, seatA, uuid.New()))
		assertErrIs(t, err, commands.ErrValidation)
		assert.Equal(t, seat.StatusAvailable, fx.store.seatStatus(seatA), "rolled back")
	})

	t.Run("price mismatch is a validation error", func(t *testing.T) {
		fx := newFixture()
		scheduleID := fx.store.addSchedule(startsAt)
		seatA := fx.store.addSeat(scheduleID, seat.StatusAvailable, 5000)

		in := input(scheduleID, seatA)
		stale := int64(4000)
		in.TotalPriceCents = &stale
		_, err := fx.uc.CreateReservation(ctx, in)
		assertErrIs(t, err, commands.ErrValidation)
	})

	t.Run("unknown schedule", func(t *testing.T) {
		fx := newFixture()
		_, err := fx.uc.CreateReservation(ctx, input(uuid.New(), uuid.New()))
		assertErrIs(t, err, commands.ErrScheduleNotFound)
	})

	t.Run("schedule already started", func(t *testing.T) {
		fx := newFixture()
		scheduleID := fx.store.addSchedule(startsAt)
		seatA := fx.store.addSeat(scheduleID, seat.StatusAvailable, 5000)

		fx.clk.Set(startsAt)
		_, err := fx.uc.CreateReservation(ctx, input(scheduleID, seatA))
		assertErrIs(t, err, commands.ErrScheduleExpired)
	})

	t.Run("taken seat surfaces seats_not_available with the ids", func(t *testing.T) {
		fx := newFixture()
		scheduleID := fx.store.addSchedule(startsAt)
		seatA := fx.store.addSeat(scheduleID, seat.StatusAvailable, 5000)
		seatB := fx.store.addSeat(scheduleID, seat.StatusReserved, 5000)

		_, err := fx.uc.CreateReservation(ctx, input(scheduleID, seatA, seatB))
		requireErrIs(t, err, commands.ErrSeatsNotAvailable)

		var unavailable *commands.SeatsNotAvailableError
		require.ErrorAs(t, err, &unavailable)
		assert.Equal(t, []uuid.UUID{seatB}, unavailable.SeatIDs)

		// All-or-nothing: the available seat was not taken.
		assert.Equal(t, seat.StatusAvailable, fx.store.seatStatus(seatA))
		assert.Empty(t, fx.publisher.confirmed)
	})

	t.Run("duplicate guard on the pre-check", func(t *testing.T) {
		fx := newFixture()
		scheduleID := fx.store.addSchedule(startsAt)
		seatA := fx.store.addSeat(scheduleID, seat.StatusAvailable, 5000)
		seatB := fx.store.addSeat(scheduleID, seat.StatusAvailable, 5000)

		_, err := fx.uc.CreateReservation(ctx, input(scheduleID, seatA))
		require.NoError(t, err)

		// Same customer, different formatting of the same phone number.
		in := input(scheduleID, seatB)
		in.CustomerPhone = "09012345678"
		_, err = fx.uc.CreateReservation(ctx, in)
		assertErrIs(t, err, commands.ErrDuplicateReservation)
		assert.Equal(t, seat.StatusAvailable, fx.store.seatStatus(seatB))
	})

	t.Run("duplicate race inside the transaction rolls back", func(t *testing.T) {
		fx := newFixture()
		scheduleID := fx.store.addSchedule(startsAt)
		seatA := fx.store.addSeat(scheduleID, seat.StatusAvailable, 5000)
		fx.store.forceDuplicateOnCreate = true

		_, err := fx.uc.CreateReservation(ctx, input(scheduleID, seatA))
		assertErrIs(t, err, commands.ErrDuplicateReservation)
		assert.Equal(t, seat.StatusAvailable, fx.store.seatStatus(seatA), "seat freed by rollback")
	})

	t.Run("concurrent overlapping commits have exactly one winner", func(t *testing.T) {
		fx := newFixture()
		scheduleID := fx.store.addSchedule(startsAt)
		seatA := fx.store.addSeat(scheduleID, seat.StatusAvailable, 5000)
		seatB := fx.store.addSeat(scheduleID, seat.StatusAvailable, 5000)
		seatC := fx.store.addSeat(scheduleID, seat.StatusAvailable, 5000)

		inputs := []commands.CreateReservationInput{
			input(scheduleID, seatA, seatB),
			input(scheduleID, seatB, seatC),
		}
		inputs[1].CustomerPhone = "080-9876-5432"

		commitErrs := make([]error, 2)
		var wg sync.WaitGroup
		for i := range inputs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, commitErrs[i] = fx.uc.CreateReservation(ctx, inputs[i])
			}(i)
		}
		wg.Wait()

		winners := 0
		for _, err := range commitErrs {
			if err == nil {
				winners++
			} else {
				requireErrIs(t, err, commands.ErrSeatsNotAvailable)
				var unavailable *commands.SeatsNotAvailableError
				require.ErrorAs(t, err, &unavailable)
				assert.Contains(t, unavailable.SeatIDs, seatB)
			}
		}
		assert.Equal(t, 1, winners, "exactly one commit wins the shared seat")
		assert.Equal(t, seat.StatusReserved, fx.store.seatStatus(seatB))

		// The loser's non-contested seat stayed untouched.
		if commitErrs[0] == nil {
			assert.Equal(t, seat.StatusAvailable, fx.store.seatStatus(seatC))
		} else {
			assert.Equal(t, seat.StatusAvailable, fx.store.seatStatus(seatA))
		}
		assert.Len(t, fx.publisher.confirmed, 1)
	})
}

// ================================================================================
// ValidateSeats
// ================================================================================

func TestValidateSeats(t *testing.T) {
	ctx := context.Background()

	t.Run("all seats available", func(t *testing.T) {
		fx := newFixture()
		scheduleID := fx.store.addSchedule(startsAt)
		seatA := fx.store.addSeat(scheduleID, seat.StatusAvailable, 5000)

		result, err := fx.uc.ValidateSeats(ctx, scheduleID, []uuid.UUID{seatA})
		require.NoError(t, err)
		assert.True(t, result.Valid)
		assert.Empty(t, result.InvalidSeats)
	})

	t.Run("reports unavailable and unknown seats", func(t *testing.T) {
		fx := newFixture()
		scheduleID := fx.store.addSchedule(startsAt)
		seatA := fx.store.addSeat(scheduleID, seat.StatusAvailable, 5000)
		seatB := fx.store.addSeat(scheduleID, seat.StatusHeld, 5000)
		ghost := uuid.New()

		result, err := fx.uc.ValidateSeats(ctx, scheduleID, []uuid.UUID{seatA, seatB, ghost})
		require.NoError(t, err)
		assert.False(t, result.Valid)
		assert.Equal(t, []uuid.UUID{seatB, ghost}, result.InvalidSeats)
	})

	t.Run("empty request is a validation error", func(t *testing.T) {
		fx := newFixture()
		_, err := fx.uc.ValidateSeats(ctx, uuid.New(), nil)
		assertErrIs(t, err, commands.ErrValidation)
	})
}

// ================================================================================
// CancelReservation
// ================================================================================

func TestCancelReservation(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*fixture, uuid.UUID, uuid.UUID, uuid.UUID) {
		t.Helper()
		fx := newFixture()
		scheduleID := fx.store.addSchedule(startsAt)
		seatA := fx.store.addSeat(scheduleID, seat.StatusAvailable, 5000)
		result, err := fx.uc.CreateReservation(ctx, input(scheduleID, seatA))
		require.NoError(t, err)
		return fx, scheduleID, seatA, result.ID
	}

	t.Run("cancel frees the seats and publishes", func(t *testing.T) {
		fx, scheduleID, seatA, resID := setup(t)

		require.NoError(t, fx.uc.CancelReservation(ctx, resID))
		assert.Equal(t, seat.StatusAvailable, fx.store.seatStatus(seatA))
		assert.Equal(t, []uuid.UUID{resID}, fx.publisher.cancelled)
		assert.Equal(t, []uuid.UUID{scheduleID, scheduleID}, fx.invalidator.schedules)
	})

	t.Run("cancelling twice is idempotent", func(t *testing.T) {
		fx, _, _, resID := setup(t)

		require.NoError(t, fx.uc.CancelReservation(ctx, resID))
		require.NoError(t, fx.uc.CancelReservation(ctx, resID))
		assert.Len(t, fx.publisher.cancelled, 1, "no second cancel event")
	})

	t.Run("cancellation inside the cutoff is refused", func(t *testing.T) {
		fx, _, seatA, resID := setup(t)

		fx.clk.Set(startsAt.Add(-1 * time.Hour))
		err := fx.uc.CancelReservation(ctx, resID)
		assertErrIs(t, err, commands.ErrCancellationClosed)
		assert.Equal(t, seat.StatusReserved, fx.store.seatStatus(seatA), "seats stay reserved")
	})

	t.Run("unknown reservation", func(t *testing.T) {
		fx := newFixture()
		err := fx.uc.CancelReservation(ctx, uuid.New())
		assertErrIs(t, err, commands.ErrReservationNotFound)
	})
}

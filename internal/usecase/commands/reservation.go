package commands

import (
	"context"
	"time"

	"concert-booking/internal/domain/reservation"
	"concert-booking/internal/infra"
	"concert-booking/internal/pkg/clock"
	"concert-booking/internal/pkg/errs"

	"github.com/google/uuid"
)

var (
	ErrValidation              = errs.New("validation error")
	ErrScheduleNotFound        = errs.New("schedule not found")
	ErrScheduleExpired         = errs.New("schedule already started")
	ErrSeatsNotAvailable       = errs.New("seats not available")
	ErrDuplicateReservation    = errs.New("duplicate reservation")
	ErrReservationNotFound     = errs.New("reservation not found")
	ErrCancellationClosed      = errs.New("cancellation window closed")
	ErrDatabaseOperationFailed = errs.New("database operation failed")
)

// SeatsNotAvailableError carries the offending seat ids so the handler
// can tell the client which seats to re-select. It matches
// ErrSeatsNotAvailable as an Is target.
type SeatsNotAvailableError struct {
	SeatIDs []uuid.UUID
}

func (e *SeatsNotAvailableError) Error() string {
	return "seats not available"
}

func (e *SeatsNotAvailableError) Is(target error) bool {
	return target == ErrSeatsNotAvailable
}

type CreateReservationInput struct {
	ScheduleID    uuid.UUID
	SeatIDs       []uuid.UUID
	CustomerName  string
	CustomerPhone string
	CustomerEmail *string
	// TotalPriceCents is the price the client believes it is paying;
	// a mismatch against the authoritative seat prices is rejected.
	TotalPriceCents *int64
}

type ReservationResult struct {
	ID                uuid.UUID
	ReservationNumber string
	ScheduleID        uuid.UUID
	SeatIDs           []uuid.UUID
	TotalPriceCents   int64
	Status            string
	CreatedAt         time.Time
}

type ValidateSeatsResult struct {
	Valid        bool
	InvalidSeats []uuid.UUID
}

type ReservationCommands interface {
	ValidateSeats(ctx context.Context, scheduleID uuid.UUID, seatIDs []uuid.UUID) (*ValidateSeatsResult, error)
	CreateReservation(ctx context.Context, in CreateReservationInput) (*ReservationResult, error)
	CancelReservation(ctx context.Context, id uuid.UUID) error
}

type reservationUseCaseImpl struct {
	tx           TxRunner
	seatRepo     SeatRepository
	resRepo      ReservationRepository
	factory      *reservation.Factory
	publisher    EventPublisher
	cache        SeatCountInvalidator
	clock        clock.Clock
	cancelCutoff time.Duration
}

func NewReservationUseCase(
	tx TxRunner,
	seatRepo SeatRepository,
	resRepo ReservationRepository,
	factory *reservation.Factory,
	publisher EventPublisher,
	cache SeatCountInvalidator,
	clk clock.Clock,
	cancelCutoff time.Duration,
) ReservationCommands {
	return &reservationUseCaseImpl{
		tx:           tx,
		seatRepo:     seatRepo,
		resRepo:      resRepo,
		factory:      factory,
		publisher:    publisher,
		cache:        cache,
		clock:        clk,
		cancelCutoff: cancelCutoff,
	}
}

// ValidateSeats is the advisory pre-flight: it reports which of the
// requested seats are not currently available. It carries no guarantee;
// only CreateReservation's atomic step is binding.
func (r *reservationUseCaseImpl) ValidateSeats(ctx context.Context, scheduleID uuid.UUID, seatIDs []uuid.UUID) (*ValidateSeatsResult, error) {
	if len(seatIDs) == 0 {
		return nil, errs.Mark(errs.New("seat ids are required"), ErrValidation)
	}

	unavailable, err := r.seatRepo.FindUnavailable(ctx, scheduleID, seatIDs)
	if err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	return &ValidateSeatsResult{
		Valid:        len(unavailable) == 0,
		InvalidSeats: unavailable,
	}, nil
}

// CreateReservation is the two-phase commit path: duplicate guard, then
// an atomic reserve-and-create inside one transaction. Concurrent
// commits racing for overlapping seats serialize on the seat rows;
// exactly one wins, the rest roll back untouched and surface
// ErrSeatsNotAvailable.
func (r *reservationUseCaseImpl) CreateReservation(ctx context.Context, in CreateReservationInput) (*ReservationResult, error) {
	contact, err := reservation.NewContact(in.CustomerName, in.CustomerPhone, in.CustomerEmail)
	if err != nil {
		return nil, errs.Mark(err, ErrValidation)
	}

	startsAt, err := r.seatRepo.ScheduleStartsAt(ctx, in.ScheduleID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrScheduleNotFound
		}
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	if !r.clock.Now().Before(startsAt) {
		return nil, ErrScheduleExpired
	}

	// Friendly pre-check; the partial unique index closes the race.
	exists, err := r.resRepo.ExistsConfirmed(ctx, in.ScheduleID, contact.Phone())
	if err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	if exists {
		return nil, ErrDuplicateReservation
	}

	var created *reservation.Reservation
	txErr := r.tx.WithTx(ctx, func(txCtx context.Context) error {
		seats, err := r.seatRepo.FindByIDs(txCtx, in.ScheduleID, in.SeatIDs)
		if err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		if len(seats) != len(in.SeatIDs) {
			return errs.Mark(errs.New("unknown seat ids"), ErrValidation)
		}

		res, err := r.factory.CreateReservation(in.ScheduleID, seats, contact, in.TotalPriceCents)
		if err != nil {
			return errs.Mark(err, ErrValidation)
		}

		affected, err := r.seatRepo.ReserveAvailable(txCtx, in.ScheduleID, in.SeatIDs)
		if err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		if affected != int64(len(in.SeatIDs)) {
			// Partial reservation is forbidden: abort the whole unit.
			return ErrSeatsNotAvailable
		}

		if err := r.resRepo.Create(txCtx, res); err != nil {
			if infra.IsKind(err, infra.KindDuplicateKey) {
				return ErrDuplicateReservation
			}
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}

		created = res
		return nil
	})
	if txErr != nil {
		if errs.Is(txErr, ErrSeatsNotAvailable) {
			// The transaction rolled back, so statuses are untouched;
			// report which seats the caller lost.
			unavailable, lookupErr := r.seatRepo.FindUnavailable(ctx, in.ScheduleID, in.SeatIDs)
			if lookupErr != nil {
				return nil, ErrSeatsNotAvailable
			}
			return nil, &SeatsNotAvailableError{SeatIDs: unavailable}
		}
		return nil, txErr
	}

	r.publisher.PublishConfirmed(ctx, created)
	r.cache.Invalidate(ctx, in.ScheduleID)

	return toResult(created), nil
}

// CancelReservation is idempotent: cancelling an already-cancelled
// reservation succeeds without touching seats again.
func (r *reservationUseCaseImpl) CancelReservation(ctx context.Context, id uuid.UUID) error {
	var cancelled *reservation.Reservation
	txErr := r.tx.WithTx(ctx, func(txCtx context.Context) error {
		res, err := r.resRepo.FindByID(txCtx, id)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return ErrReservationNotFound
			}
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		if res.Status() == reservation.StatusCancelled {
			return nil
		}

		startsAt, err := r.seatRepo.ScheduleStartsAt(txCtx, res.ScheduleID())
		if err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		if err := res.Cancel(r.clock, startsAt, r.cancelCutoff); err != nil {
			return errs.Mark(err, ErrCancellationClosed)
		}

		if err := r.resRepo.UpdateStatus(txCtx, res.ID(), res.Status(), res.UpdatedAt()); err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		if err := r.seatRepo.Release(txCtx, res.ScheduleID(), res.SeatIDs()); err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}

		cancelled = res
		return nil
	})
	if txErr != nil {
		return txErr
	}

	if cancelled != nil {
		r.publisher.PublishCancelled(ctx, cancelled)
		r.cache.Invalidate(ctx, cancelled.ScheduleID())
	}
	return nil
}

func toResult(res *reservation.Reservation) *ReservationResult {
	return &ReservationResult{
		ID:                res.ID(),
		ReservationNumber: res.Number().String(),
		ScheduleID:        res.ScheduleID(),
		SeatIDs:           res.SeatIDs(),
		TotalPriceCents:   res.TotalPrice().Cents(),
		Status:            string(res.Status()),
		CreatedAt:         res.CreatedAt(),
	}
}

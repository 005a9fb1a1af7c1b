package queries

import (
	"context"
	"time"

	"concert-booking/internal/domain/seat"
	"concert-booking/internal/infra"
	"concert-booking/internal/pkg/clock"
	"concert-booking/internal/pkg/errs"

	"github.com/google/uuid"
)

var (
	ErrScheduleNotFound = errs.New("schedule not found")
	ErrQueryFailed      = errs.New("query failed")
)

type SeatView struct {
	ID         uuid.UUID `json:"id"`
	Row        string    `json:"row"`
	Number     int       `json:"number"`
	Grade      string    `json:"grade"`
	PriceCents int32     `json:"priceCents"`
	PosX       int       `json:"posX"`
	PosY       int       `json:"posY"`
	Accessible bool      `json:"accessible"`
	Status     string    `json:"status"`
}

// SeatStatusView is the polled payload: the full authoritative seat
// list plus the server-side timestamp the client stores in its
// snapshot.
type SeatStatusView struct {
	ScheduleID uuid.UUID  `json:"scheduleId"`
	Seats      []SeatView `json:"seats"`
	Timestamp  time.Time  `json:"timestamp"`
}

type SeatCountView struct {
	ScheduleID       uuid.UUID      `json:"scheduleId"`
	Available        int            `json:"available"`
	Held             int            `json:"held"`
	Reserved         int            `json:"reserved"`
	Total            int            `json:"total"`
	AvailableByGrade map[string]int `json:"availableByGrade"`
}

type SeatReader interface {
	ListBySchedule(ctx context.Context, scheduleID uuid.UUID) ([]seat.Seat, error)
	CountByStatus(ctx context.Context, scheduleID uuid.UUID) (map[seat.Status]int, error)
	CountAvailableByGrade(ctx context.Context, scheduleID uuid.UUID) (map[seat.Grade]int, error)
	ScheduleStartsAt(ctx context.Context, scheduleID uuid.UUID) (time.Time, error)
}

// SeatCountCache is the read-through cache port for count aggregates.
type SeatCountCache interface {
	Get(ctx context.Context, scheduleID uuid.UUID, dest any) bool
	Set(ctx context.Context, scheduleID uuid.UUID, value any)
}

type SeatQueries interface {
	SeatStatus(ctx context.Context, scheduleID uuid.UUID) (*SeatStatusView, error)
	SeatCounts(ctx context.Context, scheduleID uuid.UUID) (*SeatCountView, error)
}

type seatQueriesImpl struct {
	seats SeatReader
	cache SeatCountCache
	clock clock.Clock
}

func NewSeatQueries(seats SeatReader, cache SeatCountCache, clk clock.Clock) SeatQueries {
	return &seatQueriesImpl{seats: seats, cache: cache, clock: clk}
}

func (q *seatQueriesImpl) SeatStatus(ctx context.Context, scheduleID uuid.UUID) (*SeatStatusView, error) {
	// Unknown schedules are a 404, not an empty seat list.
	if _, err := q.seats.ScheduleStartsAt(ctx, scheduleID); err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrScheduleNotFound
		}
		return nil, errs.Mark(err, ErrQueryFailed)
	}

	seats, err := q.seats.ListBySchedule(ctx, scheduleID)
	if err != nil {
		return nil, errs.Mark(err, ErrQueryFailed)
	}

	views := make([]SeatView, len(seats))
	for i, s := range seats {
		views[i] = SeatView{
			ID:         s.ID,
			Row:        s.Row,
			Number:     s.Number,
			Grade:      string(s.Grade),
			PriceCents: s.PriceCents,
			PosX:       s.PosX,
			PosY:       s.PosY,
			Accessible: s.Accessible,
			Status:     string(s.Status),
		}
	}

	return &SeatStatusView{
		ScheduleID: scheduleID,
		Seats:      views,
		Timestamp:  q.clock.Now(),
	}, nil
}

func (q *seatQueriesImpl) SeatCounts(ctx context.Context, scheduleID uuid.UUID) (*SeatCountView, error) {
	var cached SeatCountView
	if q.cache.Get(ctx, scheduleID, &cached) {
		return &cached, nil
	}

	if _, err := q.seats.ScheduleStartsAt(ctx, scheduleID); err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrScheduleNotFound
		}
		return nil, errs.Mark(err, ErrQueryFailed)
	}

	counts, err := q.seats.CountByStatus(ctx, scheduleID)
	if err != nil {
		return nil, errs.Mark(err, ErrQueryFailed)
	}
	byGrade, err := q.seats.CountAvailableByGrade(ctx, scheduleID)
	if err != nil {
		return nil, errs.Mark(err, ErrQueryFailed)
	}

	view := &SeatCountView{
		ScheduleID:       scheduleID,
		Available:        counts[seat.StatusAvailable],
		Held:             counts[seat.StatusHeld],
		Reserved:         counts[seat.StatusReserved],
		AvailableByGrade: make(map[string]int, len(byGrade)),
	}
	view.Total = view.Available + view.Held + view.Reserved
	for grade, n := range byGrade {
		view.AvailableByGrade[string(grade)] = n
	}

	q.cache.Set(ctx, scheduleID, view)
	return view, nil
}

package repository

import (
	"context"
	"errors"
	"time"

	"concert-booking/internal/domain/seat"
	"concert-booking/internal/infra"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SeatRepository struct {
	pool *pgxpool.Pool
}

func NewSeatRepository(pool *pgxpool.Pool) *SeatRepository {
	return &SeatRepository{pool: pool}
}

const seatColumns = `id, schedule_id, row_label, seat_number, grade, price_cents, pos_x, pos_y, accessible, status`

func scanSeat(row pgx.CollectableRow) (seat.Seat, error) {
	var s seat.Seat
	err := row.Scan(&s.ID, &s.ScheduleID, &s.Row, &s.Number, &s.Grade,
		&s.PriceCents, &s.PosX, &s.PosY, &s.Accessible, &s.Status)
	return s, err
}

// ListBySchedule returns every seat of the schedule ordered by row and
// number, the shape the sync endpoint serves.
func (r *SeatRepository) ListBySchedule(ctx context.Context, scheduleID uuid.UUID) ([]seat.Seat, error) {
	const query = `
SELECT ` + seatColumns + `
FROM seats
WHERE schedule_id = $1
ORDER BY row_label, seat_number`

	rows, err := querier(ctx, r.pool).Query(ctx, query, scheduleID)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list seats", err)
	}
	seats, err := pgx.CollectRows(rows, scanSeat)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to scan seats", err)
	}
	return seats, nil
}

// FindByIDs reads exactly the requested seats of the schedule. Callers
// compare the result length against the request to detect unknown ids.
func (r *SeatRepository) FindByIDs(ctx context.Context, scheduleID uuid.UUID, seatIDs []uuid.UUID) ([]seat.Seat, error) {
	const query = `
SELECT ` + seatColumns + `
FROM seats
WHERE schedule_id = $1 AND id = ANY($2)`

	rows, err := querier(ctx, r.pool).Query(ctx, query, scheduleID, seatIDs)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to find seats by ids", err)
	}
	seats, err := pgx.CollectRows(rows, scanSeat)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to scan seats", err)
	}
	return seats, nil
}

// ReserveAvailable is the atomic check-and-set at the heart of the
// commit path: it flips the requested seats to reserved only where they
// are still available, and reports how many rows it touched. A caller
// inside a transaction must roll back unless the count equals the
// request size.
func (r *SeatRepository) ReserveAvailable(ctx context.Context, scheduleID uuid.UUID, seatIDs []uuid.UUID) (int64, error) {
	const stmt = `
UPDATE seats
SET status = 'reserved', updated_at = now()
WHERE schedule_id = $1 AND id = ANY($2) AND status = 'available'`

	tag, err := querier(ctx, r.pool).Exec(ctx, stmt, scheduleID, seatIDs)
	if err != nil {
		return 0, infra.WrapRepoErr("failed to reserve seats", err)
	}
	return tag.RowsAffected(), nil
}

// Release returns reserved seats to available, used by cancellation.
func (r *SeatRepository) Release(ctx context.Context, scheduleID uuid.UUID, seatIDs []uuid.UUID) error {
	const stmt = `
UPDATE seats
SET status = 'available', updated_at = now()
WHERE schedule_id = $1 AND id = ANY($2) AND status = 'reserved'`

	if _, err := querier(ctx, r.pool).Exec(ctx, stmt, scheduleID, seatIDs); err != nil {
		return infra.WrapRepoErr("failed to release seats", err)
	}
	return nil
}

// FindUnavailable lists which of the requested seat ids are not
// currently available. Unknown ids count as unavailable.
func (r *SeatRepository) FindUnavailable(ctx context.Context, scheduleID uuid.UUID, seatIDs []uuid.UUID) ([]uuid.UUID, error) {
	const query = `
SELECT id, status
FROM seats
WHERE schedule_id = $1 AND id = ANY($2)`

	rows, err := querier(ctx, r.pool).Query(ctx, query, scheduleID, seatIDs)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to check seat availability", err)
	}
	defer rows.Close()

	statuses := make(map[uuid.UUID]seat.Status, len(seatIDs))
	for rows.Next() {
		var id uuid.UUID
		var status seat.Status
		if err := rows.Scan(&id, &status); err != nil {
			return nil, infra.WrapRepoErr("failed to scan seat status", err)
		}
		statuses[id] = status
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to read seat statuses", err)
	}

	var unavailable []uuid.UUID
	for _, id := range seatIDs {
		if status, ok := statuses[id]; !ok || status != seat.StatusAvailable {
			unavailable = append(unavailable, id)
		}
	}
	return unavailable, nil
}

// CountByStatus aggregates seat counts for the lightweight polling
// endpoint.
func (r *SeatRepository) CountByStatus(ctx context.Context, scheduleID uuid.UUID) (map[seat.Status]int, error) {
	const query = `
SELECT status, COUNT(*)
FROM seats
WHERE schedule_id = $1
GROUP BY status`

	rows, err := querier(ctx, r.pool).Query(ctx, query, scheduleID)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to count seats", err)
	}
	defer rows.Close()

	counts := make(map[seat.Status]int)
	for rows.Next() {
		var status seat.Status
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, infra.WrapRepoErr("failed to scan seat counts", err)
		}
		counts[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to read seat counts", err)
	}
	return counts, nil
}

// CountAvailableByGrade breaks the remaining availability down per
// seat grade.
func (r *SeatRepository) CountAvailableByGrade(ctx context.Context, scheduleID uuid.UUID) (map[seat.Grade]int, error) {
	const query = `
SELECT grade, COUNT(*)
FROM seats
WHERE schedule_id = $1 AND status = 'available'
GROUP BY grade`

	rows, err := querier(ctx, r.pool).Query(ctx, query, scheduleID)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to count seats by grade", err)
	}
	defer rows.Close()

	counts := make(map[seat.Grade]int)
	for rows.Next() {
		var grade seat.Grade
		var n int
		if err := rows.Scan(&grade, &n); err != nil {
			return nil, infra.WrapRepoErr("failed to scan grade counts", err)
		}
		counts[grade] = n
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to read grade counts", err)
	}
	return counts, nil
}

// ScheduleStartsAt reports when the schedule's concert begins.
func (r *SeatRepository) ScheduleStartsAt(ctx context.Context, scheduleID uuid.UUID) (time.Time, error) {
	const query = `SELECT starts_at FROM schedules WHERE id = $1`

	var startsAt time.Time
	err := querier(ctx, r.pool).QueryRow(ctx, query, scheduleID).Scan(&startsAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, infra.WrapRepoErr("schedule not found", err, infra.KindNotFound)
		}
		return time.Time{}, infra.WrapRepoErr("failed to find schedule", err)
	}
	return startsAt, nil
}

package repository

import (
	"context"
	"errors"
	"time"

	"concert-booking/internal/domain/reservation"
	"concert-booking/internal/infra"
	"concert-booking/internal/pkg/ptr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ReservationRepository struct {
	pool *pgxpool.Pool
}

func NewReservationRepository(pool *pgxpool.Pool) *ReservationRepository {
	return &ReservationRepository{pool: pool}
}

// Create inserts the reservation and its seat rows. Meant to run inside
// the commit transaction so the seat status flip and this insert apply
// as one unit. A racing duplicate for the same (schedule, phone)
// surfaces here as a unique violation.
func (r *ReservationRepository) Create(ctx context.Context, res *reservation.Reservation) error {
	const insertReservation = `
INSERT INTO reservations (id, number, schedule_id, customer_name, customer_phone, customer_email, total_price_cents, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	q := querier(ctx, r.pool)
	contact := res.Contact()
	_, err := q.Exec(ctx, insertReservation,
		res.ID(),
		res.Number().String(),
		res.ScheduleID(),
		contact.Name(),
		contact.Phone(),
		contact.Email(),
		res.TotalPrice().Cents(),
		string(res.Status()),
		res.CreatedAt(),
		res.UpdatedAt(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return infra.WrapRepoErr("duplicate reservation", err, infra.KindDuplicateKey)
		}
		if isForeignKeyViolation(err) {
			return infra.WrapRepoErr("schedule not found", err, infra.KindForeignKeyViolated)
		}
		return infra.WrapRepoErr("failed to create reservation", err)
	}

	const insertSeat = `
INSERT INTO reservation_seats (reservation_id, seat_id)
VALUES ($1, $2)`

	for _, seatID := range res.SeatIDs() {
		if _, err := q.Exec(ctx, insertSeat, res.ID(), seatID); err != nil {
			return infra.WrapRepoErr("failed to create reservation seat", err)
		}
	}
	return nil
}

// ExistsConfirmed reports whether the customer already holds a
// confirmed reservation for the schedule. Advisory pre-check; the
// partial unique index is the binding guard.
func (r *ReservationRepository) ExistsConfirmed(ctx context.Context, scheduleID uuid.UUID, phone string) (bool, error) {
	const query = `
SELECT EXISTS (
  SELECT 1 FROM reservations
  WHERE schedule_id = $1 AND customer_phone = $2 AND status = 'confirmed'
)`

	var exists bool
	if err := querier(ctx, r.pool).QueryRow(ctx, query, scheduleID, phone).Scan(&exists); err != nil {
		return false, infra.WrapRepoErr("failed to check duplicate reservation", err)
	}
	return exists, nil
}

func (r *ReservationRepository) FindByID(ctx context.Context, id uuid.UUID) (*reservation.Reservation, error) {
	const query = `
SELECT r.id, r.number, r.schedule_id, r.customer_name, r.customer_phone, r.customer_email,
       r.total_price_cents, r.status, r.created_at, r.updated_at,
       COALESCE(array_agg(rs.seat_id) FILTER (WHERE rs.seat_id IS NOT NULL), '{}')
FROM reservations r
LEFT JOIN reservation_seats rs ON rs.reservation_id = r.id
WHERE r.id = $1
GROUP BY r.id`

	row := querier(ctx, r.pool).QueryRow(ctx, query, id)
	res, err := scanReservation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, infra.WrapRepoErr("reservation not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find reservation", err)
	}
	return res, nil
}

// UpdateStatus persists a status transition made by the domain entity.
func (r *ReservationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status reservation.Status, updatedAt time.Time) error {
	const stmt = `
UPDATE reservations
SET status = $2, updated_at = $3
WHERE id = $1`

	tag, err := querier(ctx, r.pool).Exec(ctx, stmt, id, string(status), updatedAt)
	if err != nil {
		return infra.WrapRepoErr("failed to update reservation status", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("reservation not found", pgx.ErrNoRows, infra.KindNotFound)
	}
	return nil
}

func scanReservation(row pgx.Row) (*reservation.Reservation, error) {
	var (
		id         uuid.UUID
		number     string
		scheduleID uuid.UUID
		name       string
		phone      string
		email      pgtype.Text
		totalCents int64
		status     string
		createdAt  time.Time
		updatedAt  time.Time
		seatIDs    []uuid.UUID
	)
	if err := row.Scan(&id, &number, &scheduleID, &name, &phone, &email,
		&totalCents, &status, &createdAt, &updatedAt, &seatIDs); err != nil {
		return nil, err
	}

	contact, err := reservation.NewContact(name, phone, ptr.StringFromPgtype(email))
	if err != nil {
		return nil, err
	}
	st, err := reservation.NewStatus(status)
	if err != nil {
		return nil, err
	}
	total, err := reservation.NewMoney(totalCents)
	if err != nil {
		return nil, err
	}

	return reservation.Restore(
		id,
		reservation.Number(number),
		scheduleID,
		seatIDs,
		contact,
		total,
		st,
		createdAt,
		updatedAt,
	), nil
}

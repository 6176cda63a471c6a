package crdb

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/transitlab/bus-reservations/internal/domain"
)

func (r *Repository) CreateReservation(ctx context.Context, res domain.Reservation) error {
	_, err := r.q(ctx).Exec(ctx, `
		INSERT INTO reservations (id, user_id, bus_id, seat_numbers, total_price, status, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, res.ID, res.UserID, res.BusID, res.SeatNumbers, res.TotalPrice, res.Status, res.ExpiresAt, res.CreatedAt)
	return err
}

func (r *Repository) GetReservation(ctx context.Context, id uuid.UUID) (domain.Reservation, error) {
	var res domain.Reservation
	err := r.q(ctx).QueryRow(ctx, `
		SELECT id, user_id, bus_id, seat_numbers, total_price, status, expires_at, created_at
		FROM reservations WHERE id = $1
	`, id).Scan(&res.ID, &res.UserID, &res.BusID, &res.SeatNumbers, &res.TotalPrice, &res.Status, &res.ExpiresAt, &res.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Reservation{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Reservation{}, err
	}
	return res, nil
}

// TransitionReservation moves a reservation out of the held state. The
// conditional update is the exclusivity claim between confirm, cancel
// and the expiry sweep: exactly one of them sees RowsAffected == 1.
func (r *Repository) TransitionReservation(ctx context.Context, id uuid.UUID, to domain.ReservationStatus) (bool, error) {
	tag, err := r.q(ctx).Exec(ctx, `
		UPDATE reservations SET status = $2 WHERE id = $1 AND status = 'held'
	`, id, to)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ExpiredReservations lists held reservations whose expiry has passed.
func (r *Repository) ExpiredReservations(ctx context.Context, now time.Time, limit int) ([]domain.Reservation, error) {
	rows, err := r.q(ctx).Query(ctx, `
		SELECT id, user_id, bus_id, seat_numbers, total_price, status, expires_at, created_at
		FROM reservations
		WHERE status = 'held' AND expires_at <= $1
		ORDER BY expires_at
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Reservation
	for rows.Next() {
		var res domain.Reservation
		if err := rows.Scan(&res.ID, &res.UserID, &res.BusID, &res.SeatNumbers, &res.TotalPrice, &res.Status, &res.ExpiresAt, &res.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

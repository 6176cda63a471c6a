package crdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/transitlab/bus-reservations/internal/domain"
)

// HoldSeats flips every requested seat from available to reserved in
// one statement. Run inside WithTx: a partial match is rolled back, so
// partial success is never visible.
func (r *Repository) HoldSeats(ctx context.Context, busID uuid.UUID, seatNos []string, reservationID uuid.UUID) error {
	q := r.q(ctx)

	var known int
	err := q.QueryRow(ctx, `
		SELECT count(*) FROM seats WHERE bus_id = $1 AND seat_no = ANY($2)
	`, busID, seatNos).Scan(&known)
	if err != nil {
		return err
	}
	if known != len(seatNos) {
		return domain.ErrNotFound
	}

	tag, err := q.Exec(ctx, `
		UPDATE seats SET status = 'reserved', reservation_id = $3
		WHERE bus_id = $1 AND seat_no = ANY($2) AND status = 'available'
	`, busID, seatNos, reservationID)
	if err != nil {
		return err
	}
	if int(tag.RowsAffected()) != len(seatNos) {
		conflicting, err := r.unavailableSeats(ctx, busID, seatNos, reservationID)
		if err != nil {
			return err
		}
		return &domain.SeatConflictError{Seats: conflicting}
	}
	return nil
}

func (r *Repository) unavailableSeats(ctx context.Context, busID uuid.UUID, seatNos []string, reservationID uuid.UUID) ([]string, error) {
	rows, err := r.q(ctx).Query(ctx, `
		SELECT seat_no FROM seats
		WHERE bus_id = $1 AND seat_no = ANY($2)
		  AND status <> 'available'
		  AND (reservation_id IS NULL OR reservation_id <> $3)
		ORDER BY seat_no
	`, busID, seatNos, reservationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ReleaseSeats returns all seats reserved under the reservation to
// available. Releasing an already-released reservation affects zero
// rows and is not an error.
func (r *Repository) ReleaseSeats(ctx context.Context, reservationID uuid.UUID) error {
	_, err := r.q(ctx).Exec(ctx, `
		UPDATE seats SET status = 'available', reservation_id = NULL
		WHERE reservation_id = $1 AND status = 'reserved'
	`, reservationID)
	return err
}

// CommitSeats flips the reservation's seats to booked. The affected
// count must match the reservation's seat count, otherwise the seats
// are no longer reserved under this reservation.
func (r *Repository) CommitSeats(ctx context.Context, reservationID, bookingID uuid.UUID, expected int) error {
	tag, err := r.q(ctx).Exec(ctx, `
		UPDATE seats SET status = 'booked', booking_id = $2
		WHERE reservation_id = $1 AND status = 'reserved'
	`, reservationID, bookingID)
	if err != nil {
		return err
	}
	if int(tag.RowsAffected()) != expected {
		return domain.ErrInvalidState
	}
	return nil
}

func (r *Repository) SeatsForBus(ctx context.Context, busID uuid.UUID) ([]domain.Seat, error) {
	rows, err := r.q(ctx).Query(ctx, `
		SELECT bus_id, seat_no, status, reservation_id, booking_id, row_no, side
		FROM seats WHERE bus_id = $1
		ORDER BY row_no, seat_no
	`, busID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var seats []domain.Seat
	for rows.Next() {
		var s domain.Seat
		if err := rows.Scan(&s.BusID, &s.SeatNo, &s.Status, &s.ReservationID, &s.BookingID, &s.Row, &s.Side); err != nil {
			return nil, err
		}
		seats = append(seats, s)
	}
	return seats, rows.Err()
}

func (r *Repository) InsertSeats(ctx context.Context, seats []domain.Seat) error {
	q := r.q(ctx)
	for _, s := range seats {
		_, err := q.Exec(ctx, `
			INSERT INTO seats (bus_id, seat_no, status, row_no, side)
			VALUES ($1, $2, 'available', $3, $4)
		`, s.BusID, s.SeatNo, s.Row, s.Side)
		if err != nil {
			return err
		}
	}
	return nil
}

package crdb

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/transitlab/bus-reservations/internal/domain"
)

func (r *Repository) CreateBooking(ctx context.Context, b domain.Booking) error {
	q := r.q(ctx)
	_, err := q.Exec(ctx, `
		INSERT INTO bookings (id, reservation_id, user_id, bus_id, total_price, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, b.ID, b.ReservationID, b.UserID, b.BusID, b.TotalPrice, b.Status, b.CreatedAt)
	if err != nil {
		return err
	}

	for _, p := range b.Passengers {
		_, err := q.Exec(ctx, `
			INSERT INTO passengers (booking_id, seat_no, name, email, mobile)
			VALUES ($1, $2, $3, $4, $5)
		`, b.ID, p.SeatNo, p.Name, p.Email, p.Mobile)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) GetBooking(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	var b domain.Booking
	err := r.q(ctx).QueryRow(ctx, `
		SELECT id, reservation_id, user_id, bus_id, total_price, status, created_at, cancelled_at
		FROM bookings WHERE id = $1
	`, id).Scan(&b.ID, &b.ReservationID, &b.UserID, &b.BusID, &b.TotalPrice, &b.Status, &b.CreatedAt, &b.CancelledAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Booking{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Booking{}, err
	}

	b.Passengers, err = r.passengersFor(ctx, b.ID)
	if err != nil {
		return domain.Booking{}, err
	}
	for _, p := range b.Passengers {
		b.SeatNumbers = append(b.SeatNumbers, p.SeatNo)
	}
	return b, nil
}

func (r *Repository) passengersFor(ctx context.Context, bookingID uuid.UUID) ([]domain.Passenger, error) {
	rows, err := r.q(ctx).Query(ctx, `
		SELECT seat_no, name, email, mobile FROM passengers WHERE booking_id = $1 ORDER BY seat_no
	`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Passenger
	for rows.Next() {
		var p domain.Passenger
		if err := rows.Scan(&p.SeatNo, &p.Name, &p.Email, &p.Mobile); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repository) ListBookingsByUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Booking, error) {
	rows, err := r.q(ctx).Query(ctx, `
		SELECT id, reservation_id, user_id, bus_id, total_price, status, created_at, cancelled_at
		FROM bookings WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Booking
	for rows.Next() {
		var b domain.Booking
		if err := rows.Scan(&b.ID, &b.ReservationID, &b.UserID, &b.BusID, &b.TotalPrice, &b.Status, &b.CreatedAt, &b.CancelledAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		out[i].Passengers, err = r.passengersFor(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		for _, p := range out[i].Passengers {
			out[i].SeatNumbers = append(out[i].SeatNumbers, p.SeatNo)
		}
	}
	return out, nil
}

// CancelBooking claims the confirmed -> cancelled transition. False
// means the booking was already cancelled.
func (r *Repository) CancelBooking(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	tag, err := r.q(ctx).Exec(ctx, `
		UPDATE bookings SET status = 'cancelled', cancelled_at = $2
		WHERE id = $1 AND status = 'confirmed'
	`, id, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

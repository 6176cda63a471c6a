package crdb

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/transitlab/bus-reservations/internal/domain"
)

func (r *Repository) CreateRoute(ctx context.Context, route domain.Route) error {
	_, err := r.q(ctx).Exec(ctx, `
		INSERT INTO routes (id, src_city, dst_city, created_at)
		VALUES ($1, $2, $3, $4)
	`, route.ID, route.SrcCity, route.DstCity, route.CreatedAt)
	return err
}

func (r *Repository) GetRoute(ctx context.Context, id uuid.UUID) (domain.Route, error) {
	var route domain.Route
	err := r.q(ctx).QueryRow(ctx, `
		SELECT id, src_city, dst_city, created_at FROM routes WHERE id = $1
	`, id).Scan(&route.ID, &route.SrcCity, &route.DstCity, &route.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Route{}, domain.ErrNotFound
	}
	return route, err
}

func (r *Repository) CreateBus(ctx context.Context, bus domain.Bus) error {
	_, err := r.q(ctx).Exec(ctx, `
		INSERT INTO buses (id, route_id, name, departure_at, seats_count, price_per_seat, sales_open_at, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, bus.ID, bus.RouteID, bus.Name, bus.DepartureAt, bus.SeatsCount, bus.PricePerSeat, bus.SalesOpenAt, bus.Status, bus.CreatedAt)
	return err
}

func (r *Repository) GetBus(ctx context.Context, id uuid.UUID) (domain.Bus, error) {
	var bus domain.Bus
	err := r.q(ctx).QueryRow(ctx, `
		SELECT id, route_id, name, departure_at, seats_count, price_per_seat, sales_open_at, status, created_at
		FROM buses WHERE id = $1
	`, id).Scan(&bus.ID, &bus.RouteID, &bus.Name, &bus.DepartureAt, &bus.SeatsCount, &bus.PricePerSeat, &bus.SalesOpenAt, &bus.Status, &bus.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Bus{}, domain.ErrNotFound
	}
	return bus, err
}

func (r *Repository) ListBuses(ctx context.Context, onlyPublished bool) ([]domain.Bus, error) {
	query := `
		SELECT id, route_id, name, departure_at, seats_count, price_per_seat, sales_open_at, status, created_at
		FROM buses ORDER BY departure_at`
	if onlyPublished {
		query = `
		SELECT id, route_id, name, departure_at, seats_count, price_per_seat, sales_open_at, status, created_at
		FROM buses WHERE status = 'published' ORDER BY departure_at`
	}
	rows, err := r.q(ctx).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Bus
	for rows.Next() {
		var bus domain.Bus
		if err := rows.Scan(&bus.ID, &bus.RouteID, &bus.Name, &bus.DepartureAt, &bus.SeatsCount, &bus.PricePerSeat, &bus.SalesOpenAt, &bus.Status, &bus.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, bus)
	}
	return out, rows.Err()
}

func (r *Repository) UpdateBusStatus(ctx context.Context, id uuid.UUID, status domain.BusStatus) error {
	tag, err := r.q(ctx).Exec(ctx, `
		UPDATE buses SET status = $2 WHERE id = $1
	`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repository) UpdateBusSalesOpen(ctx context.Context, id uuid.UUID, at *time.Time) error {
	tag, err := r.q(ctx).Exec(ctx, `
		UPDATE buses SET sales_open_at = $2 WHERE id = $1
	`, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

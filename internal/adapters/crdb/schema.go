package crdb

import "context"

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT NOT NULL UNIQUE,
	mobile TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	role TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('user', 'admin')),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS wallets (
	user_id UUID PRIMARY KEY,
	balance FLOAT8 NOT NULL DEFAULT 0 CHECK (balance >= 0),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS routes (
	id UUID PRIMARY KEY,
	src_city TEXT NOT NULL,
	dst_city TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS buses (
	id UUID PRIMARY KEY,
	route_id UUID NOT NULL,
	name TEXT NOT NULL,
	departure_at TIMESTAMPTZ NOT NULL,
	seats_count INT NOT NULL,
	price_per_seat FLOAT8 NOT NULL,
	sales_open_at TIMESTAMPTZ,
	status TEXT NOT NULL DEFAULT 'draft' CHECK (status IN ('draft', 'published')),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS seats (
	bus_id UUID NOT NULL,
	seat_no TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'available' CHECK (status IN ('available', 'reserved', 'booked')),
	reservation_id UUID,
	booking_id UUID,
	row_no INT NOT NULL DEFAULT 0,
	side TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (bus_id, seat_no)
);
CREATE INDEX IF NOT EXISTS seats_by_reservation ON seats (reservation_id) WHERE reservation_id IS NOT NULL;

CREATE TABLE IF NOT EXISTS reservations (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL,
	bus_id UUID NOT NULL,
	seat_numbers TEXT[] NOT NULL,
	total_price FLOAT8 NOT NULL,
	status TEXT NOT NULL DEFAULT 'held' CHECK (status IN ('held', 'confirmed', 'cancelled', 'expired')),
	expires_at TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS reservations_expiry ON reservations (expires_at) WHERE status = 'held';

CREATE TABLE IF NOT EXISTS bookings (
	id UUID PRIMARY KEY,
	reservation_id UUID NOT NULL,
	user_id UUID NOT NULL,
	bus_id UUID NOT NULL,
	total_price FLOAT8 NOT NULL,
	status TEXT NOT NULL DEFAULT 'confirmed' CHECK (status IN ('confirmed', 'cancelled')),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	cancelled_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS bookings_by_user ON bookings (user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS passengers (
	booking_id UUID NOT NULL,
	seat_no TEXT NOT NULL,
	name TEXT NOT NULL,
	email TEXT NOT NULL,
	mobile TEXT NOT NULL,
	PRIMARY KEY (booking_id, seat_no)
);

CREATE TABLE IF NOT EXISTS topup_requests (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL,
	amount FLOAT8 NOT NULL,
	note TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'rejected')),
	resolved_by UUID,
	resolved_at TIMESTAMPTZ,
	reject_reason TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS topups_by_status ON topup_requests (status, created_at DESC);

CREATE TABLE IF NOT EXISTS transactions (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL,
	amount FLOAT8 NOT NULL,
	kind TEXT NOT NULL CHECK (kind IN ('debit', 'refund', 'topup')),
	reference TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Migrate applies the schema. Statements are idempotent.
func (r *Repository) Migrate(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, schema)
	return err
}

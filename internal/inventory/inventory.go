// Package inventory is the only component allowed to mutate seat
// status. Holds, releases and commits are all-or-nothing per seat set.
package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/transitlab/bus-reservations/internal/domain"
)

type Store interface {
	HoldSeats(ctx context.Context, busID uuid.UUID, seatNos []string, reservationID uuid.UUID) error
	ReleaseSeats(ctx context.Context, reservationID uuid.UUID) error
	CommitSeats(ctx context.Context, reservationID, bookingID uuid.UUID, expected int) error
	SeatsForBus(ctx context.Context, busID uuid.UUID) ([]domain.Seat, error)
}

// SeatLocker is the redis fast path: it rejects obviously conflicting
// holds before a DB transaction is opened. The store stays
// authoritative either way.
type SeatLocker interface {
	SetSeatLocks(ctx context.Context, busID string, seats []string, reservationID string, ttl time.Duration) ([]string, error)
	DropSeatLocks(ctx context.Context, busID string, seats []string, reservationID string)
}

type Inventory struct {
	store   Store
	locks   SeatLocker
	holdTTL time.Duration
}

// New builds an Inventory. locks may be nil, in which case the fast
// path is skipped and only the store decides.
func New(store Store, locks SeatLocker, holdTTL time.Duration) *Inventory {
	return &Inventory{store: store, locks: locks, holdTTL: holdTTL}
}

// PreLock takes the redis seat locks for a reservation before any DB
// work. A non-nil error is a seat conflict naming the contested seats.
func (i *Inventory) PreLock(ctx context.Context, res domain.Reservation) error {
	if i.locks == nil {
		return nil
	}
	conflicting, err := i.locks.SetSeatLocks(ctx, res.BusID.String(), res.SeatNumbers, res.ID.String(), i.holdTTL)
	if err != nil {
		// Redis being down must not block sales; the store still
		// enforces exclusivity.
		return nil
	}
	if len(conflicting) > 0 {
		return &domain.SeatConflictError{Seats: conflicting}
	}
	return nil
}

// Unlock drops the redis locks owned by the reservation.
func (i *Inventory) Unlock(ctx context.Context, res domain.Reservation) {
	if i.locks == nil {
		return
	}
	i.locks.DropSeatLocks(ctx, res.BusID.String(), res.SeatNumbers, res.ID.String())
}

// Hold atomically flips all requested seats from available to
// reserved. Unknown seat numbers fail with ErrNotFound; any
// non-available seat fails the whole call with a SeatConflictError and
// leaves every seat untouched.
func (i *Inventory) Hold(ctx context.Context, busID uuid.UUID, seatNos []string, reservationID uuid.UUID) error {
	return i.store.HoldSeats(ctx, busID, seatNos, reservationID)
}

// Release returns all seats reserved under the reservation to
// available. Idempotent.
func (i *Inventory) Release(ctx context.Context, reservationID uuid.UUID) error {
	return i.store.ReleaseSeats(ctx, reservationID)
}

// Commit flips the reservation's seats to booked. Fails with
// ErrInvalidState when the seats are not reserved under the
// reservation anymore.
func (i *Inventory) Commit(ctx context.Context, reservationID, bookingID uuid.UUID, seatCount int) error {
	return i.store.CommitSeats(ctx, reservationID, bookingID, seatCount)
}

func (i *Inventory) Seats(ctx context.Context, busID uuid.UUID) ([]domain.Seat, error) {
	return i.store.SeatsForBus(ctx, busID)
}

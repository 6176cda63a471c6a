package inventory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/transitlab/bus-reservations/internal/domain"
	"github.com/transitlab/bus-reservations/internal/inventory"
	"github.com/transitlab/bus-reservations/internal/storetest"
)

type stubLocker struct {
	conflicting []string
	err         error
	dropped     int
}

func (s *stubLocker) SetSeatLocks(ctx context.Context, busID string, seats []string, reservationID string, ttl time.Duration) ([]string, error) {
	return s.conflicting, s.err
}

func (s *stubLocker) DropSeatLocks(ctx context.Context, busID string, seats []string, reservationID string) {
	s.dropped++
}

func testReservation() domain.Reservation {
	return domain.NewReservation(uuid.New(), uuid.New(), []string{"1", "2"}, 50, time.Now().UTC(), 10*time.Minute)
}

func TestInventory_PreLock_Conflict(t *testing.T) {
	locks := &stubLocker{conflicting: []string{"2"}}
	inv := inventory.New(storetest.New(), locks, 10*time.Minute)

	err := inv.PreLock(context.Background(), testReservation())
	var conflict *domain.SeatConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected seat conflict, got %v", err)
	}
	if len(conflict.Seats) != 1 || conflict.Seats[0] != "2" {
		t.Errorf("expected conflicting seat [2], got %v", conflict.Seats)
	}
}

func TestInventory_PreLock_RedisDownIsTolerated(t *testing.T) {
	locks := &stubLocker{err: errors.New("connection refused")}
	inv := inventory.New(storetest.New(), locks, 10*time.Minute)

	if err := inv.PreLock(context.Background(), testReservation()); err != nil {
		t.Fatalf("redis failure must not block sales, got %v", err)
	}
}

func TestInventory_PreLock_NilLocker(t *testing.T) {
	inv := inventory.New(storetest.New(), nil, 10*time.Minute)
	if err := inv.PreLock(context.Background(), testReservation()); err != nil {
		t.Fatalf("expected nil locker to be a no-op, got %v", err)
	}
}

func TestInventory_Unlock(t *testing.T) {
	locks := &stubLocker{}
	inv := inventory.New(storetest.New(), locks, 10*time.Minute)

	inv.Unlock(context.Background(), testReservation())
	if locks.dropped != 1 {
		t.Errorf("expected one drop call, got %d", locks.dropped)
	}
}

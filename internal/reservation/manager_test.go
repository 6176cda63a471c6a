package reservation_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/transitlab/bus-reservations/internal/adapters/rabbit"
	"github.com/transitlab/bus-reservations/internal/clock"
	"github.com/transitlab/bus-reservations/internal/domain"
	"github.com/transitlab/bus-reservations/internal/inventory"
	"github.com/transitlab/bus-reservations/internal/observability"
	"github.com/transitlab/bus-reservations/internal/reservation"
	"github.com/transitlab/bus-reservations/internal/storetest"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newManager(store *storetest.Store, clk clock.Clock) *reservation.Manager {
	inv := inventory.New(store, nil, 10*time.Minute)
	return reservation.NewManager(store, inv, clk, observability.NewLogger("test"))
}

func TestManager_Select(t *testing.T) {
	store := storetest.New()
	bus := store.AddBus(50, 40, testNow.Add(48*time.Hour))
	user := store.AddUser(1000)
	m := newManager(store, clock.NewFixed(testNow))

	res, err := m.Select(context.Background(), bus.ID, user.ID, []string{"2", "1", "2"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(res.SeatNumbers) != 2 {
		t.Fatalf("expected 2 seats after dedupe, got %v", res.SeatNumbers)
	}
	if res.TotalPrice != 100 {
		t.Errorf("expected total 100, got %v", res.TotalPrice)
	}
	if !res.ExpiresAt.Equal(testNow.Add(10 * time.Minute)) {
		t.Errorf("unexpected expiry %v", res.ExpiresAt)
	}
	if got := store.SeatStatus(bus.ID, "1"); got != domain.SeatReserved {
		t.Errorf("seat 1: expected reserved, got %v", got)
	}
}

func TestManager_Select_Conflict(t *testing.T) {
	store := storetest.New()
	bus := store.AddBus(50, 40, testNow.Add(48*time.Hour))
	alice := store.AddUser(1000)
	bob := store.AddUser(1000)
	m := newManager(store, clock.NewFixed(testNow))

	if _, err := m.Select(context.Background(), bus.ID, alice.ID, []string{"1", "2"}); err != nil {
		t.Fatal(err)
	}

	_, err := m.Select(context.Background(), bus.ID, bob.ID, []string{"2", "3"})
	var conflict *domain.SeatConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected seat conflict, got %v", err)
	}
	if len(conflict.Seats) != 1 || conflict.Seats[0] != "2" {
		t.Errorf("expected conflicting seat [2], got %v", conflict.Seats)
	}
	// The whole hold failed, seat 3 must still be free.
	if got := store.SeatStatus(bus.ID, "3"); got != domain.SeatAvailable {
		t.Errorf("seat 3: expected available, got %v", got)
	}
}

func TestManager_Select_DisjointSeatsBothSucceed(t *testing.T) {
	store := storetest.New()
	bus := store.AddBus(50, 40, testNow.Add(48*time.Hour))
	alice := store.AddUser(1000)
	bob := store.AddUser(1000)
	m := newManager(store, clock.NewFixed(testNow))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = m.Select(context.Background(), bus.ID, alice.ID, []string{"1", "2"})
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = m.Select(context.Background(), bus.ID, bob.ID, []string{"3", "4"})
	}()
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("select %d: expected no error, got %v", i, err)
		}
	}
}

func TestManager_Select_OverlappingSeatsOneWins(t *testing.T) {
	store := storetest.New()
	bus := store.AddBus(50, 40, testNow.Add(48*time.Hour))
	alice := store.AddUser(1000)
	bob := store.AddUser(1000)
	m := newManager(store, clock.NewFixed(testNow))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = m.Select(context.Background(), bus.ID, alice.ID, []string{"7", "8"})
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = m.Select(context.Background(), bus.ID, bob.ID, []string{"8", "9"})
	}()
	wg.Wait()

	failures := 0
	for _, err := range errs {
		if err != nil {
			var conflict *domain.SeatConflictError
			if !errors.As(err, &conflict) {
				t.Errorf("expected seat conflict, got %v", err)
			}
			failures++
		}
	}
	if failures != 1 {
		t.Errorf("expected exactly one loser, got %d failures", failures)
	}
}

func TestManager_Select_EmptySeats(t *testing.T) {
	store := storetest.New()
	bus := store.AddBus(50, 40, testNow.Add(48*time.Hour))
	user := store.AddUser(1000)
	m := newManager(store, clock.NewFixed(testNow))

	_, err := m.Select(context.Background(), bus.ID, user.ID, nil)
	var invalid *domain.ValidationError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestManager_Select_UnknownSeat(t *testing.T) {
	store := storetest.New()
	bus := store.AddBus(50, 40, testNow.Add(48*time.Hour))
	user := store.AddUser(1000)
	m := newManager(store, clock.NewFixed(testNow))

	_, err := m.Select(context.Background(), bus.ID, user.ID, []string{"99"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestManager_Select_DraftBusHidden(t *testing.T) {
	store := storetest.New()
	bus := store.AddBus(50, 40, testNow.Add(48*time.Hour))
	bus.Status = domain.BusDraft
	store.Buses[bus.ID] = bus
	user := store.AddUser(1000)
	m := newManager(store, clock.NewFixed(testNow))

	_, err := m.Select(context.Background(), bus.ID, user.ID, []string{"1"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for draft bus, got %v", err)
	}
}

func TestManager_Select_SalesNotOpen(t *testing.T) {
	store := storetest.New()
	bus := store.AddBus(50, 40, testNow.Add(48*time.Hour))
	opens := testNow.Add(time.Hour)
	bus.SalesOpenAt = &opens
	store.Buses[bus.ID] = bus
	user := store.AddUser(1000)
	m := newManager(store, clock.NewFixed(testNow))

	_, err := m.Select(context.Background(), bus.ID, user.ID, []string{"1"})
	if !errors.Is(err, domain.ErrSalesNotOpen) {
		t.Fatalf("expected sales not open, got %v", err)
	}
}

func TestManager_Cancel(t *testing.T) {
	store := storetest.New()
	bus := store.AddBus(50, 40, testNow.Add(48*time.Hour))
	user := store.AddUser(1000)
	m := newManager(store, clock.NewFixed(testNow))

	res, err := m.Select(context.Background(), bus.ID, user.ID, []string{"1", "2"})
	if err != nil {
		t.Fatal(err)
	}

	if err := m.Cancel(context.Background(), res.ID, user.ID); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got := store.SeatStatus(bus.ID, "1"); got != domain.SeatAvailable {
		t.Errorf("seat 1: expected available after cancel, got %v", got)
	}

	// Cancelling again is a no-op.
	if err := m.Cancel(context.Background(), res.ID, user.ID); err != nil {
		t.Errorf("expected idempotent cancel, got %v", err)
	}
}

func TestManager_Cancel_NotOwner(t *testing.T) {
	store := storetest.New()
	bus := store.AddBus(50, 40, testNow.Add(48*time.Hour))
	alice := store.AddUser(1000)
	bob := store.AddUser(1000)
	m := newManager(store, clock.NewFixed(testNow))

	res, err := m.Select(context.Background(), bus.ID, alice.ID, []string{"1"})
	if err != nil {
		t.Fatal(err)
	}

	if err := m.Cancel(context.Background(), res.ID, bob.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for foreign reservation, got %v", err)
	}
}

func TestManager_Cancel_ConfirmedFails(t *testing.T) {
	store := storetest.New()
	bus := store.AddBus(50, 40, testNow.Add(48*time.Hour))
	user := store.AddUser(1000)
	m := newManager(store, clock.NewFixed(testNow))

	res, err := m.Select(context.Background(), bus.ID, user.ID, []string{"1"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.TransitionReservation(context.Background(), res.ID, domain.ReservationConfirmed); err != nil {
		t.Fatal(err)
	}

	if err := m.Cancel(context.Background(), res.ID, user.ID); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
}

func TestSweeper_ExpiresOverdueHolds(t *testing.T) {
	store := storetest.New()
	bus := store.AddBus(50, 40, testNow.Add(48*time.Hour))
	user := store.AddUser(1000)

	m := newManager(store, clock.NewFixed(testNow))
	res, err := m.Select(context.Background(), bus.ID, user.ID, []string{"1", "2"})
	if err != nil {
		t.Fatal(err)
	}

	// Re-read the store eleven minutes later: the hold is past its TTL.
	late := newManager(store, clock.NewFixed(testNow.Add(11*time.Minute)))
	sweeper := reservation.NewSweeper(late, observability.NewLogger("test"))

	reclaimed, err := sweeper.SweepOnce(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if reclaimed != 1 {
		t.Fatalf("expected 1 reclaimed, got %d", reclaimed)
	}

	got, err := store.GetReservation(context.Background(), res.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.ReservationExpired {
		t.Errorf("expected expired, got %v", got.Status)
	}
	if st := store.SeatStatus(bus.ID, "1"); st != domain.SeatAvailable {
		t.Errorf("seat 1: expected available after sweep, got %v", st)
	}
}

func TestSweeper_LeavesFreshHoldsAlone(t *testing.T) {
	store := storetest.New()
	bus := store.AddBus(50, 40, testNow.Add(48*time.Hour))
	user := store.AddUser(1000)

	m := newManager(store, clock.NewFixed(testNow))
	if _, err := m.Select(context.Background(), bus.ID, user.ID, []string{"1"}); err != nil {
		t.Fatal(err)
	}

	sweeper := reservation.NewSweeper(m, observability.NewLogger("test"))
	reclaimed, err := sweeper.SweepOnce(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if reclaimed != 0 {
		t.Errorf("expected nothing reclaimed, got %d", reclaimed)
	}
}

type eventRecorder struct {
	keys []string
}

func (e *eventRecorder) PublishEvent(ctx context.Context, key string, payload map[string]interface{}) error {
	e.keys = append(e.keys, key)
	return nil
}

func TestManager_PublishesLifecycleEvents(t *testing.T) {
	store := storetest.New()
	bus := store.AddBus(50, 40, testNow.Add(48*time.Hour))
	user := store.AddUser(1000)

	events := &eventRecorder{}
	inv := inventory.New(store, nil, 10*time.Minute)
	m := reservation.NewManager(store, inv, clock.NewFixed(testNow), observability.NewLogger("test"),
		reservation.WithEvents(events))

	res, err := m.Select(context.Background(), bus.ID, user.ID, []string{"1"})
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Cancel(context.Background(), res.ID, user.ID); err != nil {
		t.Fatal(err)
	}

	want := []string{rabbit.KeyReservationCreated, rabbit.KeyReservationCancelled}
	if len(events.keys) != 2 || events.keys[0] != want[0] || events.keys[1] != want[1] {
		t.Errorf("expected routing keys %v, got %v", want, events.keys)
	}
}

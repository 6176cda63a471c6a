package fleet_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/transitlab/bus-reservations/internal/clock"
	"github.com/transitlab/bus-reservations/internal/domain"
	"github.com/transitlab/bus-reservations/internal/fleet"
	"github.com/transitlab/bus-reservations/internal/inventory"
	"github.com/transitlab/bus-reservations/internal/storetest"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newService(store *storetest.Store) *fleet.Service {
	inv := inventory.New(store, nil, 10*time.Minute)
	return fleet.NewService(store, inv, clock.NewFixed(testNow))
}

func TestService_CreateBus_GeneratesLayout(t *testing.T) {
	store := storetest.New()
	svc := newService(store)

	route, err := svc.CreateRoute(context.Background(), "Dhaka", "Chittagong")
	if err != nil {
		t.Fatal(err)
	}
	bus, err := svc.CreateBus(context.Background(), route.ID, "Night Express", testNow.Add(72*time.Hour), 45, nil)
	if err != nil {
		t.Fatal(err)
	}
	if bus.Status != domain.BusDraft {
		t.Errorf("expected draft, got %v", bus.Status)
	}
	if bus.SeatsCount != 40 {
		t.Errorf("expected 40 seats, got %d", bus.SeatsCount)
	}

	seats, err := store.SeatsForBus(context.Background(), bus.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(seats) != 40 {
		t.Fatalf("expected 40 seat rows, got %d", len(seats))
	}

	left, right := 0, 0
	rows := make(map[int]int)
	for _, s := range seats {
		if s.Status != domain.SeatAvailable {
			t.Errorf("seat %s: expected available, got %v", s.SeatNo, s.Status)
		}
		switch s.Side {
		case "left":
			left++
		case "right":
			right++
		default:
			t.Errorf("seat %s: unexpected side %q", s.SeatNo, s.Side)
		}
		rows[s.Row]++
	}
	if left != 20 || right != 20 {
		t.Errorf("expected 20 seats per side, got left=%d right=%d", left, right)
	}
	if len(rows) != 10 {
		t.Errorf("expected 10 rows, got %d", len(rows))
	}
	for row, count := range rows {
		if count != 4 {
			t.Errorf("row %d: expected 4 seats, got %d", row, count)
		}
	}
}

func TestService_CreateBus_UnknownRoute(t *testing.T) {
	store := storetest.New()
	svc := newService(store)

	_, err := svc.CreateBus(context.Background(), uuid.New(), "Ghost", testNow, 45, nil)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestService_CreateBus_InvalidPrice(t *testing.T) {
	store := storetest.New()
	svc := newService(store)
	route, err := svc.CreateRoute(context.Background(), "A", "B")
	if err != nil {
		t.Fatal(err)
	}

	_, err = svc.CreateBus(context.Background(), route.ID, "Freebie", testNow, 0, nil)
	var invalid *domain.ValidationError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestService_Publish(t *testing.T) {
	store := storetest.New()
	svc := newService(store)
	route, _ := svc.CreateRoute(context.Background(), "A", "B")
	bus, err := svc.CreateBus(context.Background(), route.ID, "Express", testNow.Add(24*time.Hour), 45, nil)
	if err != nil {
		t.Fatal(err)
	}

	// Draft buses are invisible to riders.
	if _, _, err := svc.GetBusWithSeats(context.Background(), bus.ID, false); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected draft hidden, got %v", err)
	}
	riders, err := svc.ListBuses(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}
	if len(riders) != 0 {
		t.Errorf("expected no published buses, got %d", len(riders))
	}

	if err := svc.Publish(context.Background(), bus.ID); err != nil {
		t.Fatal(err)
	}
	if _, _, err := svc.GetBusWithSeats(context.Background(), bus.ID, false); err != nil {
		t.Fatalf("expected published bus visible, got %v", err)
	}

	// Publishing twice fails.
	if err := svc.Publish(context.Background(), bus.ID); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
}

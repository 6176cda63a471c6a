// Package fleet is the admin surface for routes and buses. A bus is
// created as a draft with its full seat layout and only becomes
// sellable once published.
package fleet

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/transitlab/bus-reservations/internal/clock"
	"github.com/transitlab/bus-reservations/internal/domain"
	"github.com/transitlab/bus-reservations/internal/inventory"
)

type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	CreateRoute(ctx context.Context, route domain.Route) error
	GetRoute(ctx context.Context, id uuid.UUID) (domain.Route, error)
	CreateBus(ctx context.Context, bus domain.Bus) error
	GetBus(ctx context.Context, id uuid.UUID) (domain.Bus, error)
	ListBuses(ctx context.Context, onlyPublished bool) ([]domain.Bus, error)
	UpdateBusStatus(ctx context.Context, id uuid.UUID, status domain.BusStatus) error
	UpdateBusSalesOpen(ctx context.Context, id uuid.UUID, at *time.Time) error
	InsertSeats(ctx context.Context, seats []domain.Seat) error
}

type Service struct {
	store Store
	inv   *inventory.Inventory
	clock clock.Clock
}

func NewService(store Store, inv *inventory.Inventory, clk clock.Clock) *Service {
	return &Service{store: store, inv: inv, clock: clk}
}

// Standard coach layout: 10 rows, two seats each side of the aisle.
const (
	layoutRows     = 10
	seatsPerRow    = 4
	seatsPerSide   = 2
	defaultSeatCnt = layoutRows * seatsPerRow
)

func (s *Service) CreateRoute(ctx context.Context, srcCity, dstCity string) (domain.Route, error) {
	if srcCity == "" || dstCity == "" {
		return domain.Route{}, domain.Validationf("src_city and dst_city are required")
	}
	route := domain.Route{
		ID:        uuid.New(),
		SrcCity:   srcCity,
		DstCity:   dstCity,
		CreatedAt: s.clock.Now(),
	}
	if err := s.store.CreateRoute(ctx, route); err != nil {
		return domain.Route{}, err
	}
	return route, nil
}

// CreateBus creates a draft bus and generates its seat layout in one
// transaction.
func (s *Service) CreateBus(ctx context.Context, routeID uuid.UUID, name string, departureAt time.Time, pricePerSeat float64, salesOpenAt *time.Time) (domain.Bus, error) {
	if name == "" {
		return domain.Bus{}, domain.Validationf("bus name is required")
	}
	if pricePerSeat <= 0 {
		return domain.Bus{}, domain.Validationf("price_per_seat must be positive")
	}
	if _, err := s.store.GetRoute(ctx, routeID); err != nil {
		return domain.Bus{}, err
	}

	bus := domain.Bus{
		ID:           uuid.New(),
		RouteID:      routeID,
		Name:         name,
		DepartureAt:  departureAt,
		SeatsCount:   defaultSeatCnt,
		PricePerSeat: pricePerSeat,
		SalesOpenAt:  salesOpenAt,
		Status:       domain.BusDraft,
		CreatedAt:    s.clock.Now(),
	}

	err := s.store.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.store.CreateBus(txCtx, bus); err != nil {
			return err
		}
		return s.store.InsertSeats(txCtx, generateSeats(bus.ID))
	})
	if err != nil {
		return domain.Bus{}, err
	}
	return bus, nil
}

// generateSeats numbers seats 1..40 walking each row left to right:
// two seats on the left side of the aisle, then two on the right.
func generateSeats(busID uuid.UUID) []domain.Seat {
	seats := make([]domain.Seat, 0, defaultSeatCnt)
	n := 0
	for row := 1; row <= layoutRows; row++ {
		for pos := 0; pos < seatsPerRow; pos++ {
			n++
			side := "left"
			if pos >= seatsPerSide {
				side = "right"
			}
			seats = append(seats, domain.Seat{
				BusID:  busID,
				SeatNo: strconv.Itoa(n),
				Status: domain.SeatAvailable,
				Row:    row,
				Side:   side,
			})
		}
	}
	return seats
}

// Publish makes a draft bus visible and sellable.
func (s *Service) Publish(ctx context.Context, busID uuid.UUID) error {
	bus, err := s.store.GetBus(ctx, busID)
	if err != nil {
		return err
	}
	if bus.Status == domain.BusPublished {
		return domain.ErrInvalidState
	}
	return s.store.UpdateBusStatus(ctx, busID, domain.BusPublished)
}

// SetSalesOpen schedules (or clears, with nil) the sales opening time.
func (s *Service) SetSalesOpen(ctx context.Context, busID uuid.UUID, at *time.Time) error {
	return s.store.UpdateBusSalesOpen(ctx, busID, at)
}

func (s *Service) GetBus(ctx context.Context, busID uuid.UUID) (domain.Bus, error) {
	return s.store.GetBus(ctx, busID)
}

// GetBusWithSeats returns a published bus and its seat map. Draft buses
// read as not found for non-admin callers.
func (s *Service) GetBusWithSeats(ctx context.Context, busID uuid.UUID, includeDraft bool) (domain.Bus, []domain.Seat, error) {
	bus, err := s.store.GetBus(ctx, busID)
	if err != nil {
		return domain.Bus{}, nil, err
	}
	if bus.Status != domain.BusPublished && !includeDraft {
		return domain.Bus{}, nil, domain.ErrNotFound
	}
	seats, err := s.inv.Seats(ctx, busID)
	if err != nil {
		return domain.Bus{}, nil, err
	}
	return bus, seats, nil
}

func (s *Service) ListBuses(ctx context.Context, includeDraft bool) ([]domain.Bus, error) {
	return s.store.ListBuses(ctx, !includeDraft)
}

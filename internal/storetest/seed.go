package storetest

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/transitlab/bus-reservations/internal/domain"
)

// AddBus seeds a published bus with seats numbered "1".."n".
func (s *Store) AddBus(price float64, seatCount int, departureAt time.Time) domain.Bus {
	bus := domain.Bus{
		ID:           uuid.New(),
		RouteID:      uuid.New(),
		Name:         "test-bus",
		DepartureAt:  departureAt,
		SeatsCount:   seatCount,
		PricePerSeat: price,
		Status:       domain.BusPublished,
		CreatedAt:    departureAt.Add(-24 * time.Hour),
	}
	s.Buses[bus.ID] = bus

	seats := make(map[string]*domain.Seat, seatCount)
	for i := 1; i <= seatCount; i++ {
		no := strconv.Itoa(i)
		seats[no] = &domain.Seat{
			BusID:  bus.ID,
			SeatNo: no,
			Status: domain.SeatAvailable,
			Row:    (i-1)/4 + 1,
		}
	}
	s.Seats[bus.ID] = seats
	return bus
}

// AddUser seeds a user with a wallet at the given balance.
func (s *Store) AddUser(balance float64) domain.User {
	u := domain.User{
		ID:        uuid.New(),
		Name:      "test-user",
		Email:     uuid.New().String() + "@example.com",
		Mobile:    "0000000000",
		Role:      domain.RoleUser,
		CreatedAt: time.Now().UTC(),
	}
	s.Users[u.ID] = u
	s.UsersByEmail[u.Email] = u.ID
	s.Wallets[u.ID] = balance
	return u
}

// SeatStatus reports a seat's current status, for assertions.
func (s *Store) SeatStatus(busID uuid.UUID, seatNo string) domain.SeatStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	seat, ok := s.Seats[busID][seatNo]
	if !ok {
		return ""
	}
	return seat.Status
}

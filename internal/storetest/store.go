// Package storetest provides an in-memory store implementing the
// repository methods the services depend on. It mirrors the SQL
// store's semantics closely enough for service-level tests: atomic
// all-or-nothing seat holds, conditional state transitions and
// rollback on transaction failure.
package storetest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/transitlab/bus-reservations/internal/domain"
)

type txCtxKey struct{}

type Store struct {
	mu sync.Mutex

	Users        map[uuid.UUID]domain.User
	UsersByEmail map[string]uuid.UUID
	Wallets      map[uuid.UUID]float64
	Routes       map[uuid.UUID]domain.Route
	Buses        map[uuid.UUID]domain.Bus
	Seats        map[uuid.UUID]map[string]*domain.Seat
	Reservations map[uuid.UUID]*domain.Reservation
	Bookings     map[uuid.UUID]*domain.Booking
	Topups       map[uuid.UUID]*domain.TopupRequest
	Transactions []domain.Transaction
}

func New() *Store {
	return &Store{
		Users:        make(map[uuid.UUID]domain.User),
		UsersByEmail: make(map[string]uuid.UUID),
		Wallets:      make(map[uuid.UUID]float64),
		Routes:       make(map[uuid.UUID]domain.Route),
		Buses:        make(map[uuid.UUID]domain.Bus),
		Seats:        make(map[uuid.UUID]map[string]*domain.Seat),
		Reservations: make(map[uuid.UUID]*domain.Reservation),
		Bookings:     make(map[uuid.UUID]*domain.Booking),
		Topups:       make(map[uuid.UUID]*domain.TopupRequest),
	}
}

func (s *Store) inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txCtxKey{}).(bool)
	return v
}

// lock takes the store mutex unless the context already holds the
// transaction, in which case the caller inside WithTx owns it.
func (s *Store) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// WithTx snapshots the whole store, runs fn under the lock and
// restores the snapshot when fn fails. Nested calls join.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, txCtxKey{}, true)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type snapshot struct {
	users        map[uuid.UUID]domain.User
	usersByEmail map[string]uuid.UUID
	wallets      map[uuid.UUID]float64
	routes       map[uuid.UUID]domain.Route
	buses        map[uuid.UUID]domain.Bus
	seats        map[uuid.UUID]map[string]*domain.Seat
	reservations map[uuid.UUID]*domain.Reservation
	bookings     map[uuid.UUID]*domain.Booking
	topups       map[uuid.UUID]*domain.TopupRequest
	transactions []domain.Transaction
}

func (s *Store) snapshot() snapshot {
	snap := snapshot{
		users:        make(map[uuid.UUID]domain.User, len(s.Users)),
		usersByEmail: make(map[string]uuid.UUID, len(s.UsersByEmail)),
		wallets:      make(map[uuid.UUID]float64, len(s.Wallets)),
		routes:       make(map[uuid.UUID]domain.Route, len(s.Routes)),
		buses:        make(map[uuid.UUID]domain.Bus, len(s.Buses)),
		seats:        make(map[uuid.UUID]map[string]*domain.Seat, len(s.Seats)),
		reservations: make(map[uuid.UUID]*domain.Reservation, len(s.Reservations)),
		bookings:     make(map[uuid.UUID]*domain.Booking, len(s.Bookings)),
		topups:       make(map[uuid.UUID]*domain.TopupRequest, len(s.Topups)),
		transactions: append([]domain.Transaction(nil), s.Transactions...),
	}
	for k, v := range s.Users {
		snap.users[k] = v
	}
	for k, v := range s.UsersByEmail {
		snap.usersByEmail[k] = v
	}
	for k, v := range s.Wallets {
		snap.wallets[k] = v
	}
	for k, v := range s.Routes {
		snap.routes[k] = v
	}
	for k, v := range s.Buses {
		snap.buses[k] = v
	}
	for bus, seats := range s.Seats {
		cp := make(map[string]*domain.Seat, len(seats))
		for no, seat := range seats {
			c := *seat
			cp[no] = &c
		}
		snap.seats[bus] = cp
	}
	for k, v := range s.Reservations {
		c := *v
		snap.reservations[k] = &c
	}
	for k, v := range s.Bookings {
		c := *v
		snap.bookings[k] = &c
	}
	for k, v := range s.Topups {
		c := *v
		snap.topups[k] = &c
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.Users = snap.users
	s.UsersByEmail = snap.usersByEmail
	s.Wallets = snap.wallets
	s.Routes = snap.routes
	s.Buses = snap.buses
	s.Seats = snap.seats
	s.Reservations = snap.reservations
	s.Bookings = snap.bookings
	s.Topups = snap.topups
	s.Transactions = snap.transactions
}

// --- users ---

func (s *Store) CreateUser(ctx context.Context, u domain.User) error {
	defer s.lock(ctx)()
	if _, taken := s.UsersByEmail[u.Email]; taken {
		return domain.ErrEmailTaken
	}
	s.Users[u.ID] = u
	s.UsersByEmail[u.Email] = u.ID
	return nil
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (domain.User, error) {
	defer s.lock(ctx)()
	u, ok := s.Users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	defer s.lock(ctx)()
	id, ok := s.UsersByEmail[email]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return s.Users[id], nil
}

// --- wallets ---

func (s *Store) CreateWallet(ctx context.Context, userID uuid.UUID, balance float64) error {
	defer s.lock(ctx)()
	s.Wallets[userID] = balance
	return nil
}

func (s *Store) DebitWallet(ctx context.Context, userID uuid.UUID, amount float64) error {
	defer s.lock(ctx)()
	balance, ok := s.Wallets[userID]
	if !ok {
		return domain.ErrNotFound
	}
	if balance < amount {
		return &domain.InsufficientBalanceError{Required: amount, Available: balance}
	}
	s.Wallets[userID] = balance - amount
	return nil
}

func (s *Store) CreditWallet(ctx context.Context, userID uuid.UUID, amount float64) (float64, error) {
	defer s.lock(ctx)()
	balance, ok := s.Wallets[userID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	s.Wallets[userID] = balance + amount
	return balance + amount, nil
}

func (s *Store) WalletBalance(ctx context.Context, userID uuid.UUID) (float64, error) {
	defer s.lock(ctx)()
	balance, ok := s.Wallets[userID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	return balance, nil
}

func (s *Store) InsertTransaction(ctx context.Context, tx domain.Transaction) error {
	defer s.lock(ctx)()
	s.Transactions = append(s.Transactions, tx)
	return nil
}

// --- routes and buses ---

func (s *Store) CreateRoute(ctx context.Context, route domain.Route) error {
	defer s.lock(ctx)()
	s.Routes[route.ID] = route
	return nil
}

func (s *Store) GetRoute(ctx context.Context, id uuid.UUID) (domain.Route, error) {
	defer s.lock(ctx)()
	route, ok := s.Routes[id]
	if !ok {
		return domain.Route{}, domain.ErrNotFound
	}
	return route, nil
}

func (s *Store) CreateBus(ctx context.Context, bus domain.Bus) error {
	defer s.lock(ctx)()
	s.Buses[bus.ID] = bus
	return nil
}

func (s *Store) GetBus(ctx context.Context, id uuid.UUID) (domain.Bus, error) {
	defer s.lock(ctx)()
	bus, ok := s.Buses[id]
	if !ok {
		return domain.Bus{}, domain.ErrNotFound
	}
	return bus, nil
}

func (s *Store) ListBuses(ctx context.Context, onlyPublished bool) ([]domain.Bus, error) {
	defer s.lock(ctx)()
	var out []domain.Bus
	for _, bus := range s.Buses {
		if onlyPublished && bus.Status != domain.BusPublished {
			continue
		}
		out = append(out, bus)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DepartureAt.Before(out[j].DepartureAt) })
	return out, nil
}

func (s *Store) UpdateBusStatus(ctx context.Context, id uuid.UUID, status domain.BusStatus) error {
	defer s.lock(ctx)()
	bus, ok := s.Buses[id]
	if !ok {
		return domain.ErrNotFound
	}
	bus.Status = status
	s.Buses[id] = bus
	return nil
}

func (s *Store) UpdateBusSalesOpen(ctx context.Context, id uuid.UUID, at *time.Time) error {
	defer s.lock(ctx)()
	bus, ok := s.Buses[id]
	if !ok {
		return domain.ErrNotFound
	}
	bus.SalesOpenAt = at
	s.Buses[id] = bus
	return nil
}

// --- seats ---

func (s *Store) InsertSeats(ctx context.Context, seats []domain.Seat) error {
	defer s.lock(ctx)()
	for _, seat := range seats {
		bus := s.Seats[seat.BusID]
		if bus == nil {
			bus = make(map[string]*domain.Seat)
			s.Seats[seat.BusID] = bus
		}
		c := seat
		bus[seat.SeatNo] = &c
	}
	return nil
}

func (s *Store) HoldSeats(ctx context.Context, busID uuid.UUID, seatNos []string, reservationID uuid.UUID) error {
	defer s.lock(ctx)()
	bus := s.Seats[busID]
	var conflicting []string
	for _, no := range seatNos {
		seat, ok := bus[no]
		if !ok {
			return domain.ErrNotFound
		}
		if seat.Status != domain.SeatAvailable {
			conflicting = append(conflicting, no)
		}
	}
	if len(conflicting) > 0 {
		sort.Strings(conflicting)
		return &domain.SeatConflictError{Seats: conflicting}
	}
	for _, no := range seatNos {
		seat := bus[no]
		seat.Status = domain.SeatReserved
		id := reservationID
		seat.ReservationID = &id
	}
	return nil
}

func (s *Store) ReleaseSeats(ctx context.Context, reservationID uuid.UUID) error {
	defer s.lock(ctx)()
	for _, bus := range s.Seats {
		for _, seat := range bus {
			if seat.Status == domain.SeatReserved && seat.ReservationID != nil && *seat.ReservationID == reservationID {
				seat.Status = domain.SeatAvailable
				seat.ReservationID = nil
			}
		}
	}
	return nil
}

func (s *Store) CommitSeats(ctx context.Context, reservationID, bookingID uuid.UUID, expected int) error {
	defer s.lock(ctx)()
	affected := 0
	for _, bus := range s.Seats {
		for _, seat := range bus {
			if seat.Status == domain.SeatReserved && seat.ReservationID != nil && *seat.ReservationID == reservationID {
				seat.Status = domain.SeatBooked
				id := bookingID
				seat.BookingID = &id
				affected++
			}
		}
	}
	if affected != expected {
		return domain.ErrInvalidState
	}
	return nil
}

func (s *Store) SeatsForBus(ctx context.Context, busID uuid.UUID) ([]domain.Seat, error) {
	defer s.lock(ctx)()
	var out []domain.Seat
	for _, seat := range s.Seats[busID] {
		out = append(out, *seat)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Row != out[j].Row {
			return out[i].Row < out[j].Row
		}
		return strings.Compare(out[i].SeatNo, out[j].SeatNo) < 0
	})
	return out, nil
}

// --- reservations ---

func (s *Store) CreateReservation(ctx context.Context, res domain.Reservation) error {
	defer s.lock(ctx)()
	c := res
	s.Reservations[res.ID] = &c
	return nil
}

func (s *Store) GetReservation(ctx context.Context, id uuid.UUID) (domain.Reservation, error) {
	defer s.lock(ctx)()
	res, ok := s.Reservations[id]
	if !ok {
		return domain.Reservation{}, domain.ErrNotFound
	}
	return *res, nil
}

func (s *Store) TransitionReservation(ctx context.Context, id uuid.UUID, to domain.ReservationStatus) (bool, error) {
	defer s.lock(ctx)()
	res, ok := s.Reservations[id]
	if !ok || res.Status != domain.ReservationHeld {
		return false, nil
	}
	res.Status = to
	return true, nil
}

func (s *Store) ExpiredReservations(ctx context.Context, now time.Time, limit int) ([]domain.Reservation, error) {
	defer s.lock(ctx)()
	var out []domain.Reservation
	for _, res := range s.Reservations {
		if res.Status == domain.ReservationHeld && !res.ExpiresAt.After(now) {
			out = append(out, *res)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- bookings ---

func (s *Store) CreateBooking(ctx context.Context, b domain.Booking) error {
	defer s.lock(ctx)()
	c := b
	s.Bookings[b.ID] = &c
	return nil
}

func (s *Store) GetBooking(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	defer s.lock(ctx)()
	b, ok := s.Bookings[id]
	if !ok {
		return domain.Booking{}, domain.ErrNotFound
	}
	return *b, nil
}

func (s *Store) ListBookingsByUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Booking, error) {
	defer s.lock(ctx)()
	var out []domain.Booking
	for _, b := range s.Bookings {
		if b.UserID == userID {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) CancelBooking(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	defer s.lock(ctx)()
	b, ok := s.Bookings[id]
	if !ok || b.Status != domain.BookingConfirmed {
		return false, nil
	}
	b.Status = domain.BookingCancelled
	t := at
	b.CancelledAt = &t
	return true, nil
}

// --- topups ---

func (s *Store) CreateTopup(ctx context.Context, req domain.TopupRequest) error {
	defer s.lock(ctx)()
	c := req
	s.Topups[req.ID] = &c
	return nil
}

func (s *Store) GetTopup(ctx context.Context, id uuid.UUID) (domain.TopupRequest, error) {
	defer s.lock(ctx)()
	req, ok := s.Topups[id]
	if !ok {
		return domain.TopupRequest{}, domain.ErrNotFound
	}
	return *req, nil
}

func (s *Store) ResolveTopup(ctx context.Context, id uuid.UUID, to domain.TopupStatus, adminID uuid.UUID, reason string, at time.Time) (bool, error) {
	defer s.lock(ctx)()
	req, ok := s.Topups[id]
	if !ok || req.Status != domain.TopupPending {
		return false, nil
	}
	req.Status = to
	admin := adminID
	req.ResolvedBy = &admin
	t := at
	req.ResolvedAt = &t
	req.RejectReason = reason
	return true, nil
}

func (s *Store) ListTopups(ctx context.Context, status domain.TopupStatus, limit int) ([]domain.TopupRequest, error) {
	defer s.lock(ctx)()
	var out []domain.TopupRequest
	for _, req := range s.Topups {
		if status != "" && req.Status != status {
			continue
		}
		out = append(out, *req)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Package reservation orchestrates the hold -> confirm/cancel/expire
// lifecycle. It owns reservation existence and expiry; seat state
// itself belongs to the inventory.
package reservation

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/transitlab/bus-reservations/internal/adapters/rabbit"
	"github.com/transitlab/bus-reservations/internal/clock"
	"github.com/transitlab/bus-reservations/internal/domain"
	"github.com/transitlab/bus-reservations/internal/inventory"
	"github.com/transitlab/bus-reservations/internal/observability"
)

type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetBus(ctx context.Context, id uuid.UUID) (domain.Bus, error)
	CreateReservation(ctx context.Context, res domain.Reservation) error
	GetReservation(ctx context.Context, id uuid.UUID) (domain.Reservation, error)
	TransitionReservation(ctx context.Context, id uuid.UUID, to domain.ReservationStatus) (bool, error)
	ExpiredReservations(ctx context.Context, now time.Time, limit int) ([]domain.Reservation, error)
}

// Publisher mirrors the rabbit publisher; nil disables events.
type Publisher interface {
	PublishEvent(ctx context.Context, key string, payload map[string]interface{}) error
}

type Manager struct {
	store   Store
	inv     *inventory.Inventory
	clock   clock.Clock
	holdTTL time.Duration
	logger  observability.Logger
	events  Publisher
}

const defaultHoldTTL = 10 * time.Minute

func NewManager(store Store, inv *inventory.Inventory, clk clock.Clock, logger observability.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:   store,
		inv:     inv,
		clock:   clk,
		holdTTL: defaultHoldTTL,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type ManagerOption func(*Manager)

// WithHoldTTL overrides the default TTL for new holds.
func WithHoldTTL(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.holdTTL = d
		}
	}
}

func WithEvents(p Publisher) ManagerOption {
	return func(m *Manager) {
		m.events = p
	}
}

// Select holds the requested seats for the user. The seat flip and the
// reservation row are created in one transaction, so either the whole
// hold exists or none of it does.
func (m *Manager) Select(ctx context.Context, busID, userID uuid.UUID, seatNumbers []string) (domain.Reservation, error) {
	if len(seatNumbers) == 0 {
		return domain.Reservation{}, domain.Validationf("no seats requested")
	}

	bus, err := m.store.GetBus(ctx, busID)
	if err != nil {
		return domain.Reservation{}, err
	}
	now := m.clock.Now()
	if bus.Status != domain.BusPublished {
		return domain.Reservation{}, domain.ErrNotFound
	}
	if bus.SalesOpenAt != nil && now.Before(*bus.SalesOpenAt) {
		return domain.Reservation{}, domain.ErrSalesNotOpen
	}

	res := domain.NewReservation(busID, userID, seatNumbers, bus.PricePerSeat, now, m.holdTTL)

	// Fast-path conflict check before opening a transaction; no lock
	// is held across this network call and the store re-checks anyway.
	if err := m.inv.PreLock(ctx, res); err != nil {
		observability.SeatConflicts.Inc()
		return domain.Reservation{}, err
	}

	err = m.store.WithTx(ctx, func(txCtx context.Context) error {
		if err := m.store.CreateReservation(txCtx, res); err != nil {
			return err
		}
		return m.inv.Hold(txCtx, busID, res.SeatNumbers, res.ID)
	})
	if err != nil {
		m.inv.Unlock(ctx, res)
		var conflict *domain.SeatConflictError
		if errors.As(err, &conflict) {
			observability.SeatConflicts.Inc()
		}
		return domain.Reservation{}, err
	}

	observability.ReservationsCreated.Inc()
	m.publish(ctx, rabbit.KeyReservationCreated, map[string]interface{}{
		"reservation_id": res.ID,
		"bus_id":         busID,
		"seats":          res.SeatNumbers,
		"expires_at":     res.ExpiresAt.Format(time.RFC3339),
	})
	return res, nil
}

// Get returns a reservation owned by the user; anything else reads as
// not found.
func (m *Manager) Get(ctx context.Context, id, userID uuid.UUID) (domain.Reservation, error) {
	res, err := m.store.GetReservation(ctx, id)
	if err != nil {
		return domain.Reservation{}, err
	}
	if !res.Owns(userID) {
		return domain.Reservation{}, domain.ErrNotFound
	}
	return res, nil
}

// Cancel releases a held reservation. Cancelling one that already
// expired or was cancelled is a no-op; a confirmed reservation cannot
// be cancelled.
func (m *Manager) Cancel(ctx context.Context, id, userID uuid.UUID) error {
	res, err := m.Get(ctx, id, userID)
	if err != nil {
		return err
	}

	var claimed bool
	err = m.store.WithTx(ctx, func(txCtx context.Context) error {
		claimed, err = m.store.TransitionReservation(txCtx, id, domain.ReservationCancelled)
		if err != nil {
			return err
		}
		if !claimed {
			return nil
		}
		return m.inv.Release(txCtx, id)
	})
	if err != nil {
		return err
	}

	if !claimed {
		// Lost the race against confirm or the sweep; re-read to see
		// which terminal state won.
		current, err := m.store.GetReservation(ctx, id)
		if err != nil {
			return err
		}
		if current.Status == domain.ReservationConfirmed {
			return domain.ErrInvalidState
		}
		return nil
	}

	m.inv.Unlock(ctx, res)
	m.publish(ctx, rabbit.KeyReservationCancelled, map[string]interface{}{"reservation_id": id})
	return nil
}

func (m *Manager) publish(ctx context.Context, key string, payload map[string]interface{}) {
	if m.events == nil {
		return
	}
	if err := m.events.PublishEvent(ctx, key, payload); err != nil {
		m.logger.WithField("key", key).Error("failed to publish event", err)
	}
}

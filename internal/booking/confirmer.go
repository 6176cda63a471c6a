// Package booking finalizes held reservations into durable bookings
// and handles post-hoc cancellation with refund.
package booking

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/transitlab/bus-reservations/internal/adapters/rabbit"
	"github.com/transitlab/bus-reservations/internal/clock"
	"github.com/transitlab/bus-reservations/internal/domain"
	"github.com/transitlab/bus-reservations/internal/inventory"
	"github.com/transitlab/bus-reservations/internal/observability"
	"github.com/transitlab/bus-reservations/internal/wallet"
)

type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetReservation(ctx context.Context, id uuid.UUID) (domain.Reservation, error)
	TransitionReservation(ctx context.Context, id uuid.UUID, to domain.ReservationStatus) (bool, error)
	CreateBooking(ctx context.Context, b domain.Booking) error
	GetBooking(ctx context.Context, id uuid.UUID) (domain.Booking, error)
	ListBookingsByUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Booking, error)
	CancelBooking(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
}

type Publisher interface {
	PublishEvent(ctx context.Context, key string, payload map[string]interface{}) error
}

type Confirmer struct {
	store  Store
	inv    *inventory.Inventory
	wallet *wallet.Ledger
	clock  clock.Clock
	logger observability.Logger
	events Publisher
}

func NewConfirmer(store Store, inv *inventory.Inventory, ledger *wallet.Ledger, clk clock.Clock, logger observability.Logger, events Publisher) *Confirmer {
	return &Confirmer{
		store:  store,
		inv:    inv,
		wallet: ledger,
		clock:  clk,
		logger: logger,
		events: events,
	}
}

const listLimit = 100

// Confirm turns a held reservation into a booking. The reservation
// claim, the wallet debit, the seat commit and the booking insert are
// one transaction: a failed debit rolls everything back and the
// reservation stays held so the rider can top up and retry.
func (c *Confirmer) Confirm(ctx context.Context, reservationID, userID uuid.UUID, passengers []domain.Passenger) (domain.Booking, error) {
	res, err := c.store.GetReservation(ctx, reservationID)
	if err != nil {
		return domain.Booking{}, err
	}
	now := c.clock.Now()
	// Expired, cancelled, already confirmed or foreign reservations
	// all read as not found from the caller's perspective.
	if !res.Owns(userID) || res.Status != domain.ReservationHeld || res.ExpiredAt(now) {
		return domain.Booking{}, domain.ErrNotFound
	}

	if err := domain.ValidatePassengers(res, passengers); err != nil {
		return domain.Booking{}, err
	}

	b := domain.NewBooking(res, passengers, now)

	err = c.store.WithTx(ctx, func(txCtx context.Context) error {
		claimed, err := c.store.TransitionReservation(txCtx, res.ID, domain.ReservationConfirmed)
		if err != nil {
			return err
		}
		if !claimed {
			// The sweep or a cancel got there first.
			return domain.ErrNotFound
		}
		if err := c.wallet.Debit(txCtx, userID, res.TotalPrice, "booking "+b.ID.String()); err != nil {
			return err
		}
		if err := c.inv.Commit(txCtx, res.ID, b.ID, len(res.SeatNumbers)); err != nil {
			return err
		}
		return c.store.CreateBooking(txCtx, b)
	})
	if err != nil {
		return domain.Booking{}, err
	}

	c.inv.Unlock(ctx, res)
	observability.BookingsConfirmed.Inc()
	c.publish(ctx, rabbit.KeyBookingConfirmed, map[string]interface{}{
		"booking_id":     b.ID,
		"reservation_id": res.ID,
		"user_id":        userID,
		"total_price":    b.TotalPrice,
	})
	return b, nil
}

// CancelBooking refunds a confirmed booking and flips it to cancelled.
// The booking record is kept; seats are not re-released, that capacity
// was sold.
func (c *Confirmer) CancelBooking(ctx context.Context, bookingID, userID uuid.UUID) (refund, newBalance float64, err error) {
	b, err := c.store.GetBooking(ctx, bookingID)
	if err != nil {
		return 0, 0, err
	}
	if b.UserID != userID {
		return 0, 0, domain.ErrNotFound
	}
	if b.Status == domain.BookingCancelled {
		return 0, 0, domain.ErrInvalidState
	}

	err = c.store.WithTx(ctx, func(txCtx context.Context) error {
		ok, err := c.store.CancelBooking(txCtx, b.ID, c.clock.Now())
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrInvalidState
		}
		newBalance, err = c.wallet.Credit(txCtx, userID, b.TotalPrice, domain.TxRefund, "refund booking "+b.ID.String())
		return err
	})
	if err != nil {
		return 0, 0, err
	}

	c.publish(ctx, rabbit.KeyBookingCancelled, map[string]interface{}{
		"booking_id": b.ID,
		"user_id":    userID,
		"refunded":   b.TotalPrice,
	})
	return b.TotalPrice, newBalance, nil
}

func (c *Confirmer) ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.Booking, error) {
	return c.store.ListBookingsByUser(ctx, userID, listLimit)
}

func (c *Confirmer) publish(ctx context.Context, key string, payload map[string]interface{}) {
	if c.events == nil {
		return
	}
	if err := c.events.PublishEvent(ctx, key, payload); err != nil {
		c.logger.WithField("key", key).Error("failed to publish event", err)
	}
}

package reservation

import (
	"context"
	"time"

	"github.com/transitlab/bus-reservations/internal/adapters/rabbit"
	"github.com/transitlab/bus-reservations/internal/domain"
	"github.com/transitlab/bus-reservations/internal/observability"
)

const sweepBatch = 100

// Sweeper reclaims seats from reservations held past their expiry. It
// races user-initiated cancel and confirm for each reservation; the
// conditional held -> expired transition decides the winner, the loser
// no-ops.
type Sweeper struct {
	manager *Manager
	logger  observability.Logger
}

func NewSweeper(manager *Manager, logger observability.Logger) *Sweeper {
	return &Sweeper{manager: manager, logger: logger}
}

func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				s.logger.Error("sweep failed", err)
			}
		}
	}
}

// SweepOnce expires one batch of overdue reservations and returns how
// many were reclaimed. Per-reservation failures are retried with
// backoff and logged, never surfaced to users.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	m := s.manager
	expired, err := m.store.ExpiredReservations(ctx, m.clock.Now(), sweepBatch)
	if err != nil {
		return 0, err
	}

	reclaimed := 0
	for _, res := range expired {
		if err := s.expireWithRetry(ctx, res); err != nil {
			s.logger.WithField("reservation_id", res.ID).Error("failed to expire reservation", err)
			continue
		}
		reclaimed++
	}
	return reclaimed, nil
}

func (s *Sweeper) expireWithRetry(ctx context.Context, res domain.Reservation) error {
	m := s.manager
	const maxRetries = 3
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		var claimed bool
		err := m.store.WithTx(ctx, func(txCtx context.Context) error {
			var err error
			claimed, err = m.store.TransitionReservation(txCtx, res.ID, domain.ReservationExpired)
			if err != nil {
				return err
			}
			if !claimed {
				// Confirmed or cancelled in the meantime; nothing to
				// reclaim.
				return nil
			}
			return m.inv.Release(txCtx, res.ID)
		})
		if err == nil {
			if claimed {
				m.inv.Unlock(ctx, res)
				observability.ReservationsExpired.Inc()
				m.publish(ctx, rabbit.KeyReservationExpired, map[string]interface{}{"reservation_id": res.ID})
			}
			return nil
		}
		lastErr = err

		backoff := time.Duration(1<<attempt) * time.Second
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return lastErr
}

// Package topup is the admin approval queue for wallet top-up
// requests. Riders cannot credit their own wallet; every credit goes
// through a pending request an admin approves or rejects.
package topup

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/transitlab/bus-reservations/internal/adapters/rabbit"
	"github.com/transitlab/bus-reservations/internal/clock"
	"github.com/transitlab/bus-reservations/internal/domain"
	"github.com/transitlab/bus-reservations/internal/observability"
	"github.com/transitlab/bus-reservations/internal/wallet"
)

type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	CreateTopup(ctx context.Context, req domain.TopupRequest) error
	GetTopup(ctx context.Context, id uuid.UUID) (domain.TopupRequest, error)
	ResolveTopup(ctx context.Context, id uuid.UUID, to domain.TopupStatus, adminID uuid.UUID, reason string, at time.Time) (bool, error)
	ListTopups(ctx context.Context, status domain.TopupStatus, limit int) ([]domain.TopupRequest, error)
}

type Publisher interface {
	PublishEvent(ctx context.Context, key string, payload map[string]interface{}) error
}

type Queue struct {
	store  Store
	wallet *wallet.Ledger
	clock  clock.Clock
	logger observability.Logger
	events Publisher
}

func NewQueue(store Store, ledger *wallet.Ledger, clk clock.Clock, logger observability.Logger, events Publisher) *Queue {
	return &Queue{store: store, wallet: ledger, clock: clk, logger: logger, events: events}
}

const listLimit = 200

func (q *Queue) Submit(ctx context.Context, userID uuid.UUID, amount float64, note string) (domain.TopupRequest, error) {
	req, err := domain.NewTopupRequest(userID, amount, note, q.clock.Now())
	if err != nil {
		return domain.TopupRequest{}, err
	}
	if err := q.store.CreateTopup(ctx, req); err != nil {
		return domain.TopupRequest{}, err
	}
	return req, nil
}

// Approve resolves a pending request and credits the wallet in one
// transaction. Returns the credited amount and the new balance. A
// request that is not pending fails with ErrInvalidState.
func (q *Queue) Approve(ctx context.Context, requestID, adminID uuid.UUID) (amount, newBalance float64, err error) {
	err = q.store.WithTx(ctx, func(txCtx context.Context) error {
		req, err := q.store.GetTopup(txCtx, requestID)
		if err != nil {
			return err
		}
		claimed, err := q.store.ResolveTopup(txCtx, req.ID, domain.TopupApproved, adminID, "", q.clock.Now())
		if err != nil {
			return err
		}
		if !claimed {
			return domain.ErrInvalidState
		}
		amount = req.Amount
		newBalance, err = q.wallet.Credit(txCtx, req.UserID, req.Amount, domain.TxTopup, "topup "+req.ID.String())
		return err
	})
	if err != nil {
		return 0, 0, err
	}

	q.publish(ctx, rabbit.KeyTopupApproved, map[string]interface{}{
		"request_id": requestID,
		"amount":     amount,
	})
	return amount, newBalance, nil
}

// Reject resolves a pending request without touching the wallet.
func (q *Queue) Reject(ctx context.Context, requestID, adminID uuid.UUID, reason string) error {
	if _, err := q.store.GetTopup(ctx, requestID); err != nil {
		return err
	}
	claimed, err := q.store.ResolveTopup(ctx, requestID, domain.TopupRejected, adminID, reason, q.clock.Now())
	if err != nil {
		return err
	}
	if !claimed {
		return domain.ErrInvalidState
	}

	q.publish(ctx, rabbit.KeyTopupRejected, map[string]interface{}{
		"request_id": requestID,
		"reason":     reason,
	})
	return nil
}

// List returns requests newest first, optionally filtered by status.
// An empty status returns all.
func (q *Queue) List(ctx context.Context, status domain.TopupStatus) ([]domain.TopupRequest, error) {
	return q.store.ListTopups(ctx, status, listLimit)
}

func (q *Queue) publish(ctx context.Context, key string, payload map[string]interface{}) {
	if q.events == nil {
		return
	}
	if err := q.events.PublishEvent(ctx, key, payload); err != nil {
		q.logger.WithField("key", key).Error("failed to publish event", err)
	}
}

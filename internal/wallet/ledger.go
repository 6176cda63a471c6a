// Package wallet owns all balance mutation. Debits and credits are
// single atomic storage operations; the balance never goes negative.
package wallet

import (
	"context"

	"github.com/google/uuid"

	"github.com/transitlab/bus-reservations/internal/clock"
	"github.com/transitlab/bus-reservations/internal/domain"
	"github.com/transitlab/bus-reservations/internal/observability"
)

type Store interface {
	CreateWallet(ctx context.Context, userID uuid.UUID, balance float64) error
	DebitWallet(ctx context.Context, userID uuid.UUID, amount float64) error
	CreditWallet(ctx context.Context, userID uuid.UUID, amount float64) (float64, error)
	WalletBalance(ctx context.Context, userID uuid.UUID) (float64, error)
	InsertTransaction(ctx context.Context, tx domain.Transaction) error
}

type Ledger struct {
	store       Store
	clock       clock.Clock
	signupBonus float64
}

func NewLedger(store Store, clk clock.Clock, signupBonus float64) *Ledger {
	return &Ledger{store: store, clock: clk, signupBonus: signupBonus}
}

// Open creates the wallet for a new user, seeded with the signup bonus.
func (l *Ledger) Open(ctx context.Context, userID uuid.UUID) error {
	return l.store.CreateWallet(ctx, userID, l.signupBonus)
}

// Debit subtracts amount if and only if the balance covers it,
// journaling the movement. Fails with InsufficientBalanceError
// otherwise, leaving the balance unchanged.
func (l *Ledger) Debit(ctx context.Context, userID uuid.UUID, amount float64, reference string) error {
	if err := l.store.DebitWallet(ctx, userID, amount); err != nil {
		return err
	}
	observability.WalletDebits.Inc()
	return l.store.InsertTransaction(ctx, domain.NewTransaction(userID, -amount, domain.TxDebit, reference, l.clock.Now()))
}

// Credit adds amount and returns the new balance. Used for refunds and
// approved top-ups.
func (l *Ledger) Credit(ctx context.Context, userID uuid.UUID, amount float64, kind domain.TransactionKind, reference string) (float64, error) {
	balance, err := l.store.CreditWallet(ctx, userID, amount)
	if err != nil {
		return 0, err
	}
	observability.WalletCredits.Inc()
	if err := l.store.InsertTransaction(ctx, domain.NewTransaction(userID, amount, kind, reference, l.clock.Now())); err != nil {
		return 0, err
	}
	return balance, nil
}

func (l *Ledger) Balance(ctx context.Context, userID uuid.UUID) (float64, error) {
	return l.store.WalletBalance(ctx, userID)
}

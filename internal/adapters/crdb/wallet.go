package crdb

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/transitlab/bus-reservations/internal/domain"
)

func (r *Repository) CreateWallet(ctx context.Context, userID uuid.UUID, balance float64) error {
	_, err := r.q(ctx).Exec(ctx, `
		INSERT INTO wallets (user_id, balance) VALUES ($1, $2)
	`, userID, balance)
	return err
}

// DebitWallet is a single read-check-subtract: the balance precondition
// is part of the UPDATE, so the balance can never go negative.
func (r *Repository) DebitWallet(ctx context.Context, userID uuid.UUID, amount float64) error {
	tag, err := r.q(ctx).Exec(ctx, `
		UPDATE wallets SET balance = balance - $2, updated_at = now()
		WHERE user_id = $1 AND balance >= $2
	`, userID, amount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		available, err := r.WalletBalance(ctx, userID)
		if err != nil {
			return err
		}
		return &domain.InsufficientBalanceError{Required: amount, Available: available}
	}
	return nil
}

func (r *Repository) CreditWallet(ctx context.Context, userID uuid.UUID, amount float64) (float64, error) {
	var balance float64
	err := r.q(ctx).QueryRow(ctx, `
		UPDATE wallets SET balance = balance + $2, updated_at = now()
		WHERE user_id = $1
		RETURNING balance
	`, userID, amount).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrNotFound
	}
	return balance, err
}

func (r *Repository) WalletBalance(ctx context.Context, userID uuid.UUID) (float64, error) {
	var balance float64
	err := r.q(ctx).QueryRow(ctx, `
		SELECT balance FROM wallets WHERE user_id = $1
	`, userID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrNotFound
	}
	return balance, err
}

func (r *Repository) InsertTransaction(ctx context.Context, tx domain.Transaction) error {
	_, err := r.q(ctx).Exec(ctx, `
		INSERT INTO transactions (id, user_id, amount, kind, reference, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, tx.ID, tx.UserID, tx.Amount, tx.Kind, tx.Reference, tx.CreatedAt)
	return err
}

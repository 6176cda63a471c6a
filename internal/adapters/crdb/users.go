package crdb

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/transitlab/bus-reservations/internal/domain"
)

const uniqueViolationCode = "23505"

func (r *Repository) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.q(ctx).Exec(ctx, `
		INSERT INTO users (id, name, email, mobile, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, u.ID, u.Name, u.Email, u.Mobile, u.PasswordHash, u.Role, u.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return domain.ErrEmailTaken
	}
	return err
}

func (r *Repository) GetUser(ctx context.Context, id uuid.UUID) (domain.User, error) {
	return r.scanUser(r.q(ctx).QueryRow(ctx, `
		SELECT id, name, email, mobile, password_hash, role, created_at
		FROM users WHERE id = $1
	`, id))
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.scanUser(r.q(ctx).QueryRow(ctx, `
		SELECT id, name, email, mobile, password_hash, role, created_at
		FROM users WHERE email = $1
	`, email))
}

func (r *Repository) scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Mobile, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrNotFound
	}
	return u, err
}

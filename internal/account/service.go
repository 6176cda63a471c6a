// Package account handles signup and signin. Every new user gets a
// wallet opened with the signup bonus in the same transaction as the
// user row.
package account

import (
	"context"
	"net/mail"

	"github.com/google/uuid"

	"github.com/transitlab/bus-reservations/internal/auth"
	"github.com/transitlab/bus-reservations/internal/clock"
	"github.com/transitlab/bus-reservations/internal/domain"
	"github.com/transitlab/bus-reservations/internal/wallet"
)

type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	CreateUser(ctx context.Context, u domain.User) error
	GetUser(ctx context.Context, id uuid.UUID) (domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)
}

type Service struct {
	store     Store
	wallet    *wallet.Ledger
	clock     clock.Clock
	jwtSecret string
}

func NewService(store Store, ledger *wallet.Ledger, clk clock.Clock, jwtSecret string) *Service {
	return &Service{store: store, wallet: ledger, clock: clk, jwtSecret: jwtSecret}
}

// Signup registers a user and returns a signed token. The email must
// be unique; duplicates fail with ErrEmailTaken.
func (s *Service) Signup(ctx context.Context, name, email, mobile, password string) (domain.User, string, error) {
	if name == "" || mobile == "" {
		return domain.User{}, "", domain.Validationf("name and mobile are required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return domain.User{}, "", domain.Validationf("invalid email %q", email)
	}
	if len(password) < 6 {
		return domain.User{}, "", domain.Validationf("password must be at least 6 characters")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, "", err
	}
	now := s.clock.Now()
	u := domain.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		Mobile:       mobile,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		CreatedAt:    now,
	}

	err = s.store.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.store.CreateUser(txCtx, u); err != nil {
			return err
		}
		return s.wallet.Open(txCtx, u.ID)
	})
	if err != nil {
		return domain.User{}, "", err
	}

	token, err := auth.IssueToken(s.jwtSecret, u.ID, now)
	if err != nil {
		return domain.User{}, "", err
	}
	return u, token, nil
}

// Signin verifies credentials and returns a signed token. Wrong email
// and wrong password are indistinguishable to the caller.
func (s *Service) Signin(ctx context.Context, email, password string) (domain.User, string, error) {
	u, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return domain.User{}, "", auth.ErrInvalidCredentials
	}
	if !auth.VerifyPassword(password, u.PasswordHash) {
		return domain.User{}, "", auth.ErrInvalidCredentials
	}
	token, err := auth.IssueToken(s.jwtSecret, u.ID, s.clock.Now())
	if err != nil {
		return domain.User{}, "", err
	}
	return u, token, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.User, error) {
	return s.store.GetUser(ctx, id)
}

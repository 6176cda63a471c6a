package account_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/transitlab/bus-reservations/internal/account"
	"github.com/transitlab/bus-reservations/internal/auth"
	"github.com/transitlab/bus-reservations/internal/clock"
	"github.com/transitlab/bus-reservations/internal/domain"
	"github.com/transitlab/bus-reservations/internal/storetest"
	"github.com/transitlab/bus-reservations/internal/wallet"
)

const testSecret = "test-secret"

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newService(store *storetest.Store) *account.Service {
	clk := clock.NewFixed(testNow)
	ledger := wallet.NewLedger(store, clk, 1000)
	return account.NewService(store, ledger, clk, testSecret)
}

func TestService_Signup(t *testing.T) {
	store := storetest.New()
	svc := newService(store)

	u, token, err := svc.Signup(context.Background(), "Ana", "ana@example.com", "0700000001", "hunter22")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if token == "" {
		t.Error("expected a token")
	}
	if u.Role != domain.RoleUser {
		t.Errorf("expected role user, got %v", u.Role)
	}

	// The signup bonus lands in the wallet.
	balance, err := store.WalletBalance(context.Background(), u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if balance != 1000 {
		t.Errorf("expected signup bonus 1000, got %v", balance)
	}

	// The token resolves back to the user when checked against the
	// same clock that issued it.
	id, err := auth.ParseToken(testSecret, token, clock.NewFixed(testNow).Now)
	if err != nil {
		t.Fatal(err)
	}
	if id != u.ID {
		t.Errorf("token subject mismatch: %v vs %v", id, u.ID)
	}
}

func TestService_Signup_DuplicateEmail(t *testing.T) {
	store := storetest.New()
	svc := newService(store)

	if _, _, err := svc.Signup(context.Background(), "Ana", "ana@example.com", "0700000001", "hunter22"); err != nil {
		t.Fatal(err)
	}
	_, _, err := svc.Signup(context.Background(), "Another", "ana@example.com", "0700000002", "hunter22")
	if !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected email taken, got %v", err)
	}
}

func TestService_Signup_Validation(t *testing.T) {
	store := storetest.New()
	svc := newService(store)

	cases := []struct {
		name, userName, email, mobile, password string
	}{
		{"missing name", "", "a@example.com", "070", "hunter22"},
		{"bad email", "Ana", "nope", "070", "hunter22"},
		{"short password", "Ana", "a@example.com", "070", "abc"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := svc.Signup(context.Background(), tc.userName, tc.email, tc.mobile, tc.password)
			var invalid *domain.ValidationError
			if !errors.As(err, &invalid) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestService_Signin(t *testing.T) {
	store := storetest.New()
	svc := newService(store)

	if _, _, err := svc.Signup(context.Background(), "Ana", "ana@example.com", "0700000001", "hunter22"); err != nil {
		t.Fatal(err)
	}

	_, token, err := svc.Signin(context.Background(), "ana@example.com", "hunter22")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if token == "" {
		t.Error("expected a token")
	}

	if _, _, err := svc.Signin(context.Background(), "ana@example.com", "wrong"); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, _, err := svc.Signin(context.Background(), "ghost@example.com", "hunter22"); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for unknown email, got %v", err)
	}
}

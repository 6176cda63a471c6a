package topup_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/transitlab/bus-reservations/internal/clock"
	"github.com/transitlab/bus-reservations/internal/domain"
	"github.com/transitlab/bus-reservations/internal/observability"
	"github.com/transitlab/bus-reservations/internal/storetest"
	"github.com/transitlab/bus-reservations/internal/topup"
	"github.com/transitlab/bus-reservations/internal/wallet"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newQueue(store *storetest.Store) *topup.Queue {
	clk := clock.NewFixed(testNow)
	ledger := wallet.NewLedger(store, clk, 1000)
	return topup.NewQueue(store, ledger, clk, observability.NewLogger("test"), nil)
}

func TestQueue_SubmitAndApprove(t *testing.T) {
	store := storetest.New()
	q := newQueue(store)
	user := store.AddUser(100)
	admin := store.AddUser(0)

	req, err := q.Submit(context.Background(), user.ID, 500, "salary")
	if err != nil {
		t.Fatal(err)
	}
	if req.Status != domain.TopupPending {
		t.Fatalf("expected pending, got %v", req.Status)
	}

	amount, balance, err := q.Approve(context.Background(), req.ID, admin.ID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if amount != 500 || balance != 600 {
		t.Errorf("expected amount=500 balance=600, got %v %v", amount, balance)
	}

	got, err := store.GetTopup(context.Background(), req.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.TopupApproved {
		t.Errorf("expected approved, got %v", got.Status)
	}
	if got.ResolvedBy == nil || *got.ResolvedBy != admin.ID {
		t.Errorf("expected resolved by admin, got %v", got.ResolvedBy)
	}
}

func TestQueue_Approve_OnlyOnce(t *testing.T) {
	store := storetest.New()
	q := newQueue(store)
	user := store.AddUser(100)
	admin := store.AddUser(0)

	req, err := q.Submit(context.Background(), user.ID, 500, "")
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := q.Approve(context.Background(), req.ID, admin.ID); err != nil {
		t.Fatal(err)
	}

	// A second approval must not credit the wallet again.
	if _, _, err := q.Approve(context.Background(), req.ID, admin.ID); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
	balance, _ := store.WalletBalance(context.Background(), user.ID)
	if balance != 600 {
		t.Errorf("expected balance 600 after single credit, got %v", balance)
	}
}

func TestQueue_Reject(t *testing.T) {
	store := storetest.New()
	q := newQueue(store)
	user := store.AddUser(100)
	admin := store.AddUser(0)

	req, err := q.Submit(context.Background(), user.ID, 500, "")
	if err != nil {
		t.Fatal(err)
	}
	if err := q.Reject(context.Background(), req.ID, admin.ID, "unverified payment"); err != nil {
		t.Fatal(err)
	}

	got, _ := store.GetTopup(context.Background(), req.ID)
	if got.Status != domain.TopupRejected {
		t.Errorf("expected rejected, got %v", got.Status)
	}
	if got.RejectReason != "unverified payment" {
		t.Errorf("expected reason recorded, got %q", got.RejectReason)
	}
	balance, _ := store.WalletBalance(context.Background(), user.ID)
	if balance != 100 {
		t.Errorf("rejection must not credit, got %v", balance)
	}

	// Approving a rejected request fails.
	if _, _, err := q.Approve(context.Background(), req.ID, admin.ID); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
}

func TestQueue_Submit_RejectsBadAmount(t *testing.T) {
	store := storetest.New()
	q := newQueue(store)
	user := store.AddUser(100)

	_, err := q.Submit(context.Background(), user.ID, -10, "")
	var invalid *domain.ValidationError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestQueue_List_FiltersByStatus(t *testing.T) {
	store := storetest.New()
	q := newQueue(store)
	user := store.AddUser(100)
	admin := store.AddUser(0)

	first, _ := q.Submit(context.Background(), user.ID, 100, "")
	if _, err := q.Submit(context.Background(), user.ID, 200, ""); err != nil {
		t.Fatal(err)
	}
	if _, _, err := q.Approve(context.Background(), first.ID, admin.ID); err != nil {
		t.Fatal(err)
	}

	pending, err := q.List(context.Background(), domain.TopupPending)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 {
		t.Errorf("expected 1 pending, got %d", len(pending))
	}

	all, err := q.List(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 total, got %d", len(all))
	}
}

package wallet_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/transitlab/bus-reservations/internal/clock"
	"github.com/transitlab/bus-reservations/internal/domain"
	"github.com/transitlab/bus-reservations/internal/storetest"
	"github.com/transitlab/bus-reservations/internal/wallet"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestLedger_OpenSeedsSignupBonus(t *testing.T) {
	store := storetest.New()
	ledger := wallet.NewLedger(store, clock.NewFixed(testNow), 1000)
	user := store.AddUser(0)
	delete(store.Wallets, user.ID)

	if err := ledger.Open(context.Background(), user.ID); err != nil {
		t.Fatal(err)
	}
	balance, err := ledger.Balance(context.Background(), user.ID)
	if err != nil {
		t.Fatal(err)
	}
	if balance != 1000 {
		t.Errorf("expected signup bonus 1000, got %v", balance)
	}
}

func TestLedger_Debit(t *testing.T) {
	store := storetest.New()
	ledger := wallet.NewLedger(store, clock.NewFixed(testNow), 1000)
	user := store.AddUser(500)

	if err := ledger.Debit(context.Background(), user.ID, 200, "booking x"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	balance, _ := ledger.Balance(context.Background(), user.ID)
	if balance != 300 {
		t.Errorf("expected 300, got %v", balance)
	}

	if len(store.Transactions) != 1 {
		t.Fatalf("expected 1 journal entry, got %d", len(store.Transactions))
	}
	tx := store.Transactions[0]
	if tx.Kind != domain.TxDebit || tx.Amount != -200 {
		t.Errorf("expected debit of -200, got %v %v", tx.Kind, tx.Amount)
	}
}

func TestLedger_Debit_Insufficient(t *testing.T) {
	store := storetest.New()
	ledger := wallet.NewLedger(store, clock.NewFixed(testNow), 1000)
	user := store.AddUser(150)

	err := ledger.Debit(context.Background(), user.ID, 200, "booking x")
	var insufficient *domain.InsufficientBalanceError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	if insufficient.Required != 200 || insufficient.Available != 150 {
		t.Errorf("expected required=200 available=150, got %+v", insufficient)
	}

	balance, _ := ledger.Balance(context.Background(), user.ID)
	if balance != 150 {
		t.Errorf("balance must be unchanged, got %v", balance)
	}
	if len(store.Transactions) != 0 {
		t.Errorf("failed debit must not be journaled, got %d entries", len(store.Transactions))
	}
}

func TestLedger_Credit(t *testing.T) {
	store := storetest.New()
	ledger := wallet.NewLedger(store, clock.NewFixed(testNow), 1000)
	user := store.AddUser(100)

	balance, err := ledger.Credit(context.Background(), user.ID, 250, domain.TxRefund, "refund booking y")
	if err != nil {
		t.Fatal(err)
	}
	if balance != 350 {
		t.Errorf("expected new balance 350, got %v", balance)
	}
	if len(store.Transactions) != 1 || store.Transactions[0].Kind != domain.TxRefund {
		t.Errorf("expected one refund journal entry, got %v", store.Transactions)
	}
}

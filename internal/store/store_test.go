package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s, err := New(db)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

func TestCreateAndGetTransaction(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	occurred := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)
	tx, err := s.CreateTransaction(ctx, "user-1", 27.90, Expense, "transport", "uber", occurred)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if tx.ID == "" {
		t.Fatal("expected generated ID")
	}

	got, err := s.GetTransaction(ctx, "user-1", tx.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Amount != 27.90 || got.Type != Expense || got.Category != "transport" {
		t.Errorf("got %+v", got)
	}
}

func TestGetTransactionWrongOwner(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	tx, err := s.CreateTransaction(ctx, "user-1", 10, Income, "salary", "", time.Now())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := s.GetTransaction(ctx, "user-2", tx.ID); err != ErrNotFound {
		t.Errorf("wrong owner: got %v, want ErrNotFound", err)
	}
	if _, err := s.GetTransaction(ctx, "user-1", "no-such-id"); err != ErrNotFound {
		t.Errorf("missing row: got %v, want ErrNotFound", err)
	}
}

func TestListTransactionsFilters(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_, err := s.CreateTransaction(ctx, "user-1", float64(i+1), Expense, "food", "", base.AddDate(0, 0, i))
		if err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	from := base.AddDate(0, 0, 1)
	to := base.AddDate(0, 0, 3)
	list, err := s.ListTransactions(ctx, "user-1", TransactionFilters{From: &from, To: &to})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("got %d transactions, want 3", len(list))
	}
	// Most recent first.
	if !list[0].OccurredAt.After(list[1].OccurredAt) {
		t.Errorf("expected descending occurred_at, got %v then %v", list[0].OccurredAt, list[1].OccurredAt)
	}

	limited, err := s.ListTransactions(ctx, "user-1", TransactionFilters{Limit: 2})
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("got %d transactions, want 2", len(limited))
	}
}

func TestUpdateTransaction(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	tx, err := s.CreateTransaction(ctx, "user-1", 50, Expense, "food", "lunch", time.Now())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	amount := 65.5
	cat := "restaurants"
	got, err := s.UpdateTransaction(ctx, "user-1", tx.ID, TransactionUpdate{Amount: &amount, Category: &cat})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Amount != 65.5 || got.Category != "restaurants" || got.Description != "lunch" {
		t.Errorf("got %+v", got)
	}

	if _, err := s.UpdateTransaction(ctx, "user-2", tx.ID, TransactionUpdate{Amount: &amount}); err != ErrNotFound {
		t.Errorf("wrong owner update: got %v, want ErrNotFound", err)
	}
}

func TestDeleteTransaction(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	tx, err := s.CreateTransaction(ctx, "user-1", 10, Expense, "misc", "", time.Now())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := s.DeleteTransaction(ctx, "user-2", tx.ID); err != ErrNotFound {
		t.Errorf("wrong owner delete: got %v, want ErrNotFound", err)
	}
	if err := s.DeleteTransaction(ctx, "user-1", tx.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetTransaction(ctx, "user-1", tx.ID); err != ErrNotFound {
		t.Errorf("after delete: got %v, want ErrNotFound", err)
	}
}

func TestBalanceSummary(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	now := time.Now()
	s.CreateTransaction(ctx, "user-1", 1000, Income, "salary", "", now)
	s.CreateTransaction(ctx, "user-1", 200, Expense, "food", "", now)
	s.CreateTransaction(ctx, "user-1", 150, Expense, "transport", "", now)
	s.CreateTransaction(ctx, "user-2", 9999, Income, "other", "", now)

	sum, err := s.GetBalanceSummary(ctx, "user-1")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.TotalIncome != 1000 || sum.TotalExpense != 350 || sum.TotalBalance != 650 {
		t.Errorf("got %+v", sum)
	}
}

func TestBalanceSummaryEmpty(t *testing.T) {
	s := testStore(t)

	sum, err := s.GetBalanceSummary(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.TotalBalance != 0 || sum.TotalIncome != 0 || sum.TotalExpense != 0 {
		t.Errorf("got %+v", sum)
	}
}

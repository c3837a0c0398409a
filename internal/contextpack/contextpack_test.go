package contextpack

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/zefa-finance/zefa-backend/internal/store"
	_ "modernc.org/sqlite"
)

func testBuilder(t *testing.T, txLimit int) (*Builder, *store.Store) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s, err := store.New(db)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return NewBuilder(s, txLimit), s
}

func TestBuildPack(t *testing.T) {
	b, s := testBuilder(t, 0)
	ctx := context.Background()
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	// Current month.
	s.CreateTransaction(ctx, "user-1", 1000, store.Income, "salary", "", now.AddDate(0, 0, -5))
	s.CreateTransaction(ctx, "user-1", 200, store.Expense, "Food", "", now.AddDate(0, 0, -3))
	s.CreateTransaction(ctx, "user-1", 150, store.Expense, "Transport", "", now.AddDate(0, 0, -2))
	// Previous month, counts toward balance but not month-to-date.
	s.CreateTransaction(ctx, "user-1", 50, store.Expense, "Leisure", "", now.AddDate(0, -1, 0))

	pack, err := b.Build(ctx, "user-1", now)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if pack.Currency != "BRL" {
		t.Errorf("currency = %q", pack.Currency)
	}
	if pack.Balance.Amount != 600 {
		t.Errorf("balance = %v, want 600", pack.Balance.Amount)
	}
	if pack.MonthToDate.IncomeTotal != 1000 || pack.MonthToDate.ExpenseTotal != 350 {
		t.Errorf("month to date = %+v", pack.MonthToDate)
	}

	top := pack.MonthToDate.TopExpenseCategories
	if len(top) != 2 || top[0].Category != "Food" || top[0].Amount != 200 || top[1].Category != "Transport" {
		t.Errorf("top categories = %+v", top)
	}

	if len(pack.RecentTransactions) != 4 {
		t.Errorf("recent = %d, want 4", len(pack.RecentTransactions))
	}
	// Most recent first.
	if pack.RecentTransactions[0].Category != "Transport" {
		t.Errorf("recent[0] = %+v", pack.RecentTransactions[0])
	}
}

func TestBuildPackTxLimit(t *testing.T) {
	b, s := testBuilder(t, 2)
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < 5; i++ {
		s.CreateTransaction(ctx, "user-1", 10, store.Expense, "misc", "", now.AddDate(0, 0, -i))
	}

	pack, err := b.Build(ctx, "user-1", now)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(pack.RecentTransactions) != 2 {
		t.Errorf("recent = %d, want 2", len(pack.RecentTransactions))
	}
}

func TestBuildPackTopCategoriesCapped(t *testing.T) {
	b, s := testBuilder(t, 0)
	ctx := context.Background()
	now := time.Now().UTC()

	for _, cat := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		s.CreateTransaction(ctx, "user-1", 10, store.Expense, cat, "", now)
	}

	pack, err := b.Build(ctx, "user-1", now)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(pack.MonthToDate.TopExpenseCategories) != 5 {
		t.Errorf("top categories = %d, want 5", len(pack.MonthToDate.TopExpenseCategories))
	}
}

func TestBuildPackEmptyUser(t *testing.T) {
	b, _ := testBuilder(t, 0)

	pack, err := b.Build(context.Background(), "nobody", time.Now())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if pack.Balance.Amount != 0 || len(pack.RecentTransactions) != 0 {
		t.Errorf("got %+v", pack)
	}

	// The serialized form must stay a valid object even when empty.
	if !strings.HasPrefix(pack.JSON(), "{") {
		t.Errorf("json = %q", pack.JSON())
	}
}

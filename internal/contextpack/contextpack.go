// Package contextpack assembles a compact snapshot of a user's finances
// for injection into the model prompt. It is a rolling summary, not a
// data dump: balance, month-to-date totals, top expense categories, and
// the last few transactions.
package contextpack

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/zefa-finance/zefa-backend/internal/store"
)

// DefaultTxLimit is how many recent transactions the pack carries.
const DefaultTxLimit = 6

const topCategories = 5

// Pack is the snapshot serialized into the prompt.
type Pack struct {
	Currency           string              `json:"currency"`
	AsOf               string              `json:"as_of"`
	Balance            Balance             `json:"balance"`
	MonthToDate        MonthToDate         `json:"month_to_date"`
	RecentTransactions []RecentTransaction `json:"recent_transactions"`
}

type Balance struct {
	Amount float64 `json:"amount"`
}

type MonthToDate struct {
	IncomeTotal          float64          `json:"income_total"`
	ExpenseTotal         float64          `json:"expense_total"`
	TopExpenseCategories []CategoryAmount `json:"top_expense_categories"`
}

type CategoryAmount struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}

type RecentTransaction struct {
	OccurredAt  string  `json:"occurred_at"`
	Type        string  `json:"type"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
}

// Builder builds packs from the store.
type Builder struct {
	store   *store.Store
	txLimit int
}

// NewBuilder creates a builder; txLimit <= 0 uses DefaultTxLimit.
func NewBuilder(s *store.Store, txLimit int) *Builder {
	if txLimit <= 0 {
		txLimit = DefaultTxLimit
	}
	return &Builder{store: s, txLimit: txLimit}
}

// Build assembles the pack for userID as of now.
func (b *Builder) Build(ctx context.Context, userID string, now time.Time) (*Pack, error) {
	now = now.UTC()

	summary, err := b.store.GetBalanceSummary(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("balance summary: %w", err)
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthTxs, err := b.store.ListTransactions(ctx, userID, store.TransactionFilters{From: &monthStart})
	if err != nil {
		return nil, fmt.Errorf("month transactions: %w", err)
	}

	var incomeTotal, expenseTotal float64
	byCategory := map[string]float64{}
	for _, tx := range monthTxs {
		switch tx.Type {
		case store.Income:
			incomeTotal += tx.Amount
		case store.Expense:
			expenseTotal += tx.Amount
			byCategory[tx.Category] += tx.Amount
		}
	}

	top := make([]CategoryAmount, 0, len(byCategory))
	for cat, amt := range byCategory {
		top = append(top, CategoryAmount{Category: cat, Amount: amt})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Amount != top[j].Amount {
			return top[i].Amount > top[j].Amount
		}
		return top[i].Category < top[j].Category
	})
	if len(top) > topCategories {
		top = top[:topCategories]
	}

	recent, err := b.store.ListTransactions(ctx, userID, store.TransactionFilters{Limit: b.txLimit})
	if err != nil {
		return nil, fmt.Errorf("recent transactions: %w", err)
	}
	recentOut := make([]RecentTransaction, 0, len(recent))
	for _, tx := range recent {
		recentOut = append(recentOut, RecentTransaction{
			OccurredAt:  tx.OccurredAt.Format(time.RFC3339),
			Type:        string(tx.Type),
			Amount:      tx.Amount,
			Category:    tx.Category,
			Description: tx.Description,
		})
	}

	return &Pack{
		Currency: "BRL",
		AsOf:     now.Format(time.RFC3339),
		Balance:  Balance{Amount: summary.TotalBalance},
		MonthToDate: MonthToDate{
			IncomeTotal:          incomeTotal,
			ExpenseTotal:         expenseTotal,
			TopExpenseCategories: top,
		},
		RecentTransactions: recentOut,
	}, nil
}

// JSON renders the pack for prompt injection.
func (p *Pack) JSON() string {
	b, err := json.Marshal(p)
	if err != nil {
		return "{}"
	}
	return string(b)
}

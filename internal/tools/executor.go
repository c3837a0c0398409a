package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/zefa-finance/zefa-backend/internal/store"
)

// ErrUnknownTool is returned for tool names outside the registry.
var ErrUnknownTool = errors.New("unknown tool")

// Executor runs registry tools against the store. The user ID is always
// supplied by the caller from the authenticated session, never taken
// from model output.
type Executor struct {
	store  *store.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewExecutor creates an executor bound to the store.
func NewExecutor(s *store.Store, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{store: s, logger: logger.With("component", "tools"), now: time.Now}
}

// Execute validates args and runs the named tool for userID. The result
// is a JSON-ready map. Validation failures, unknown tools, and missing
// rows all come back as errors for the caller to fold into a tool result.
func (e *Executor) Execute(ctx context.Context, userID, name string, args json.RawMessage) (map[string]any, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	e.logger.Debug("executing tool", "tool", name, "user_id", userID)

	switch name {
	case ToolGetBalance:
		return e.getBalance(ctx, userID)
	case ToolListTransactions:
		return e.listTransactions(ctx, userID, args)
	case ToolCreateTransaction:
		return e.createTransaction(ctx, userID, args)
	case ToolAnalyzeSpending:
		return e.analyzeSpending(ctx, userID, args)
	case ToolUpdateTransaction:
		return e.updateTransaction(ctx, userID, args)
	case ToolDeleteTransaction:
		return e.deleteTransaction(ctx, userID, args)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
}

func (e *Executor) getBalance(ctx context.Context, userID string) (map[string]any, error) {
	sum, err := e.store.GetBalanceSummary(ctx, userID)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"total_balance": sum.TotalBalance,
		"total_income":  sum.TotalIncome,
		"total_expense": sum.TotalExpense,
		"currency":      "BRL",
	}, nil
}

func (e *Executor) listTransactions(ctx context.Context, userID string, raw json.RawMessage) (map[string]any, error) {
	var args listTransactionsArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, &InvalidArgumentsError{Tool: ToolListTransactions, Fields: []FieldError{{Field: "arguments", Reason: "not a valid JSON object"}}}
	}
	if err := args.validate(); err != nil {
		return nil, err
	}

	filters := store.TransactionFilters{Limit: args.Limit}
	if args.FromDate != "" {
		t, _ := parseTime(args.FromDate)
		filters.From = &t
	}
	if args.ToDate != "" {
		t, _ := parseTime(args.ToDate)
		filters.To = &t
	}

	txs, err := e.store.ListTransactions(ctx, userID, filters)
	if err != nil {
		return nil, err
	}

	list := make([]map[string]any, 0, len(txs))
	for _, tx := range txs {
		list = append(list, transactionMap(&tx, false))
	}
	return map[string]any{
		"transactions": list,
		"count":        len(list),
	}, nil
}

func (e *Executor) createTransaction(ctx context.Context, userID string, raw json.RawMessage) (map[string]any, error) {
	var args createTransactionArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, &InvalidArgumentsError{Tool: ToolCreateTransaction, Fields: []FieldError{{Field: "arguments", Reason: "not a valid JSON object"}}}
	}
	if err := args.validate(); err != nil {
		return nil, err
	}

	occurredAt := e.now().UTC()
	if args.OccurredAt != "" {
		occurredAt, _ = parseTime(args.OccurredAt)
	}

	tx, err := e.store.CreateTransaction(ctx, userID, args.Amount,
		store.TransactionType(args.Type), args.Category, args.Description, occurredAt)
	if err != nil {
		return nil, err
	}
	e.logger.Info("transaction created", "user_id", userID, "transaction_id", tx.ID, "type", tx.Type, "amount", tx.Amount)
	return transactionMap(tx, true), nil
}

func (e *Executor) analyzeSpending(ctx context.Context, userID string, raw json.RawMessage) (map[string]any, error) {
	var args analyzeSpendingArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, &InvalidArgumentsError{Tool: ToolAnalyzeSpending, Fields: []FieldError{{Field: "arguments", Reason: "not a valid JSON object"}}}
	}
	if err := args.validate(); err != nil {
		return nil, err
	}

	filters := store.TransactionFilters{}
	if args.FromDate != "" {
		t, _ := parseTime(args.FromDate)
		filters.From = &t
	}
	if args.ToDate != "" {
		t, _ := parseTime(args.ToDate)
		filters.To = &t
	}

	txs, err := e.store.ListTransactions(ctx, userID, filters)
	if err != nil {
		return nil, err
	}

	// Only expenses are analyzed; income never counts as spending.
	grouped := map[string]float64{}
	for _, tx := range txs {
		if tx.Type != store.Expense {
			continue
		}
		key := "unknown"
		switch args.GroupBy {
		case "category":
			key = tx.Category
		case "day":
			if !tx.OccurredAt.IsZero() {
				key = tx.OccurredAt.Format("2006-01-02")
			}
		case "month":
			if !tx.OccurredAt.IsZero() {
				key = tx.OccurredAt.Format("2006-01")
			}
		}
		grouped[key] += tx.Amount
	}

	type groupTotal struct {
		Group string
		Total float64
	}
	sorted := make([]groupTotal, 0, len(grouped))
	var total float64
	for k, v := range grouped {
		sorted = append(sorted, groupTotal{Group: k, Total: v})
		total += v
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Total != sorted[j].Total {
			return sorted[i].Total > sorted[j].Total
		}
		return sorted[i].Group < sorted[j].Group
	})

	// top_n trims the listing but the grand total covers every group.
	if args.TopN > 0 && len(sorted) > args.TopN {
		sorted = sorted[:args.TopN]
	}

	results := make([]map[string]any, 0, len(sorted))
	for _, g := range sorted {
		results = append(results, map[string]any{"group": g.Group, "total": g.Total})
	}
	return map[string]any{
		"group_by": args.GroupBy,
		"results":  results,
		"total":    total,
	}, nil
}

func (e *Executor) updateTransaction(ctx context.Context, userID string, raw json.RawMessage) (map[string]any, error) {
	var args updateTransactionArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, &InvalidArgumentsError{Tool: ToolUpdateTransaction, Fields: []FieldError{{Field: "arguments", Reason: "not a valid JSON object"}}}
	}
	if err := args.validate(); err != nil {
		return nil, err
	}

	upd := store.TransactionUpdate{
		Amount:      args.Amount,
		Category:    args.Category,
		Description: args.Description,
	}
	if args.Type != nil {
		typ := store.TransactionType(*args.Type)
		upd.Type = &typ
	}
	if args.OccurredAt != nil {
		t, _ := parseTime(*args.OccurredAt)
		upd.OccurredAt = &t
	}

	tx, err := e.store.UpdateTransaction(ctx, userID, args.TransactionID, upd)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("transaction %s not found or not owned by user", args.TransactionID)
	}
	if err != nil {
		return nil, err
	}
	e.logger.Info("transaction updated", "user_id", userID, "transaction_id", tx.ID)
	return transactionMap(tx, true), nil
}

func (e *Executor) deleteTransaction(ctx context.Context, userID string, raw json.RawMessage) (map[string]any, error) {
	var args deleteTransactionArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, &InvalidArgumentsError{Tool: ToolDeleteTransaction, Fields: []FieldError{{Field: "arguments", Reason: "not a valid JSON object"}}}
	}
	if err := args.validate(); err != nil {
		return nil, err
	}

	tx, err := e.store.GetTransaction(ctx, userID, args.TransactionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("transaction %s not found or not owned by user", args.TransactionID)
	}
	if err != nil {
		return nil, err
	}
	if err := e.store.DeleteTransaction(ctx, userID, args.TransactionID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("transaction %s not found or not owned by user", args.TransactionID)
		}
		return nil, err
	}
	e.logger.Info("transaction deleted", "user_id", userID, "transaction_id", tx.ID)
	return map[string]any{
		"deleted":  true,
		"id":       tx.ID,
		"amount":   tx.Amount,
		"category": tx.Category,
	}, nil
}

func transactionMap(tx *store.Transaction, withCreated bool) map[string]any {
	m := map[string]any{
		"id":          tx.ID,
		"amount":      tx.Amount,
		"type":        string(tx.Type),
		"category":    tx.Category,
		"description": tx.Description,
		"occurred_at": tx.OccurredAt.Format(time.RFC3339),
	}
	if withCreated {
		m["created_at"] = tx.CreatedAt.Format(time.RFC3339)
	}
	return m
}

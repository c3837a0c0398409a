package tools

import (
	"fmt"
	"strings"
	"time"
)

// FieldError names one argument that failed validation.
type FieldError struct {
	Field  string
	Reason string
}

// InvalidArgumentsError aggregates every offending field so the model
// can fix all of them in one retry instead of one per round trip.
type InvalidArgumentsError struct {
	Tool   string
	Fields []FieldError
}

func (e *InvalidArgumentsError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Reason))
	}
	return fmt.Sprintf("invalid arguments for %s: %s", e.Tool, strings.Join(parts, "; "))
}

type fieldErrors []FieldError

func (fe *fieldErrors) add(field, reason string) {
	*fe = append(*fe, FieldError{Field: field, Reason: reason})
}

func (fe fieldErrors) orNil(tool string) error {
	if len(fe) == 0 {
		return nil
	}
	return &InvalidArgumentsError{Tool: tool, Fields: fe}
}

// listTransactionsArgs are the arguments for list_transactions.
type listTransactionsArgs struct {
	Limit    int    `json:"limit"`
	FromDate string `json:"from_date"`
	ToDate   string `json:"to_date"`
}

func (a *listTransactionsArgs) validate() error {
	var errs fieldErrors
	if a.Limit == 0 {
		a.Limit = 50
	}
	if a.Limit < 1 || a.Limit > 200 {
		errs.add("limit", "must be between 1 and 200")
	}
	checkDate(&errs, "from_date", a.FromDate)
	checkDate(&errs, "to_date", a.ToDate)
	return errs.orNil(ToolListTransactions)
}

// createTransactionArgs are the arguments for create_transaction.
type createTransactionArgs struct {
	Amount      float64 `json:"amount"`
	Type        string  `json:"type"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	OccurredAt  string  `json:"occurred_at"`
}

func (a *createTransactionArgs) validate() error {
	var errs fieldErrors
	if a.Amount < 0.01 {
		errs.add("amount", "must be at least 0.01")
	}
	checkType(&errs, a.Type, true)
	if strings.TrimSpace(a.Category) == "" {
		errs.add("category", "is required")
	}
	checkDate(&errs, "occurred_at", a.OccurredAt)
	return errs.orNil(ToolCreateTransaction)
}

// analyzeSpendingArgs are the arguments for analyze_spending.
type analyzeSpendingArgs struct {
	FromDate string `json:"from_date"`
	ToDate   string `json:"to_date"`
	GroupBy  string `json:"group_by"`
	TopN     int    `json:"top_n"`
}

func (a *analyzeSpendingArgs) validate() error {
	var errs fieldErrors
	if a.GroupBy == "" {
		a.GroupBy = "category"
	}
	switch a.GroupBy {
	case "category", "day", "month":
	default:
		errs.add("group_by", "must be one of category, day, month")
	}
	if a.TopN != 0 && (a.TopN < 1 || a.TopN > 50) {
		errs.add("top_n", "must be between 1 and 50")
	}
	checkDate(&errs, "from_date", a.FromDate)
	checkDate(&errs, "to_date", a.ToDate)
	return errs.orNil(ToolAnalyzeSpending)
}

// updateTransactionArgs are the arguments for update_transaction.
// Pointer fields distinguish "absent" from zero values.
type updateTransactionArgs struct {
	TransactionID string   `json:"transaction_id"`
	Amount        *float64 `json:"amount"`
	Type          *string  `json:"type"`
	Category      *string  `json:"category"`
	Description   *string  `json:"description"`
	OccurredAt    *string  `json:"occurred_at"`
}

func (a *updateTransactionArgs) validate() error {
	var errs fieldErrors
	if strings.TrimSpace(a.TransactionID) == "" {
		errs.add("transaction_id", "is required")
	}
	if a.Amount == nil && a.Type == nil && a.Category == nil &&
		a.Description == nil && a.OccurredAt == nil {
		errs.add("fields", "at least one of amount, type, category, description, occurred_at must be provided")
	}
	if a.Amount != nil && *a.Amount < 0.01 {
		errs.add("amount", "must be at least 0.01")
	}
	if a.Type != nil {
		checkType(&errs, *a.Type, true)
	}
	if a.OccurredAt != nil {
		checkDate(&errs, "occurred_at", *a.OccurredAt)
	}
	return errs.orNil(ToolUpdateTransaction)
}

// deleteTransactionArgs are the arguments for delete_transaction.
type deleteTransactionArgs struct {
	TransactionID string `json:"transaction_id"`
}

func (a *deleteTransactionArgs) validate() error {
	var errs fieldErrors
	if strings.TrimSpace(a.TransactionID) == "" {
		errs.add("transaction_id", "is required")
	}
	return errs.orNil(ToolDeleteTransaction)
}

func checkType(errs *fieldErrors, typ string, required bool) {
	if typ == "" {
		if required {
			errs.add("type", "is required")
		}
		return
	}
	if typ != "INCOME" && typ != "EXPENSE" {
		errs.add("type", "must be INCOME or EXPENSE")
	}
}

func checkDate(errs *fieldErrors, field, value string) {
	if value == "" {
		return
	}
	if _, err := parseTime(value); err != nil {
		errs.add(field, "must be an ISO 8601 date or datetime")
	}
}

// parseTime accepts RFC 3339 timestamps and bare dates.
func parseTime(value string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", value)
}

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CreateTransaction inserts a transaction owned by userID and returns it
// with its generated ID and timestamps filled in.
func (s *Store) CreateTransaction(ctx context.Context, userID string, amount float64, typ TransactionType, category, description string, occurredAt time.Time) (*Transaction, error) {
	tx := &Transaction{
		ID:          uuid.Must(uuid.NewV7()).String(),
		UserID:      userID,
		Amount:      amount,
		Type:        typ,
		Category:    category,
		Description: description,
		OccurredAt:  occurredAt.UTC(),
		CreatedAt:   time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, amount, type, category, description, occurred_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.UserID, tx.Amount, string(tx.Type), tx.Category, tx.Description, tx.OccurredAt, tx.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}
	return tx, nil
}

// GetTransaction returns the transaction with the given ID if it belongs
// to userID, ErrNotFound otherwise.
func (s *Store) GetTransaction(ctx context.Context, userID, id string) (*Transaction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, amount, type, category, COALESCE(description, ''), occurred_at, created_at
		FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	return scanTransaction(row)
}

// ListTransactions returns the user's transactions, most recent first.
func (s *Store) ListTransactions(ctx context.Context, userID string, f TransactionFilters) ([]Transaction, error) {
	q := strings.Builder{}
	q.WriteString(`
		SELECT id, user_id, amount, type, category, COALESCE(description, ''), occurred_at, created_at
		FROM transactions WHERE user_id = ?`)
	args := []any{userID}

	if f.From != nil {
		q.WriteString(" AND occurred_at >= ?")
		args = append(args, f.From.UTC())
	}
	if f.To != nil {
		q.WriteString(" AND occurred_at <= ?")
		args = append(args, f.To.UTC())
	}
	q.WriteString(" ORDER BY occurred_at DESC, created_at DESC")
	if f.Limit > 0 {
		q.WriteString(" LIMIT ?")
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, q.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var tx Transaction
		var typ string
		if err := rows.Scan(&tx.ID, &tx.UserID, &tx.Amount, &typ, &tx.Category, &tx.Description, &tx.OccurredAt, &tx.CreatedAt); err != nil {
			return nil, err
		}
		tx.Type = TransactionType(typ)
		out = append(out, tx)
	}
	return out, rows.Err()
}

// UpdateTransaction applies the non-nil fields of upd to the transaction
// if it belongs to userID, and returns the updated row.
func (s *Store) UpdateTransaction(ctx context.Context, userID, id string, upd TransactionUpdate) (*Transaction, error) {
	if upd.Empty() {
		return s.GetTransaction(ctx, userID, id)
	}

	sets := []string{}
	args := []any{}
	if upd.Amount != nil {
		sets = append(sets, "amount = ?")
		args = append(args, *upd.Amount)
	}
	if upd.Type != nil {
		sets = append(sets, "type = ?")
		args = append(args, string(*upd.Type))
	}
	if upd.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, *upd.Category)
	}
	if upd.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *upd.Description)
	}
	if upd.OccurredAt != nil {
		sets = append(sets, "occurred_at = ?")
		args = append(args, upd.OccurredAt.UTC())
	}
	args = append(args, id, userID)

	res, err := s.db.ExecContext(ctx,
		"UPDATE transactions SET "+strings.Join(sets, ", ")+" WHERE id = ? AND user_id = ?",
		args...)
	if err != nil {
		return nil, fmt.Errorf("update transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return s.GetTransaction(ctx, userID, id)
}

// DeleteTransaction removes the transaction if it belongs to userID.
func (s *Store) DeleteTransaction(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM transactions WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetBalanceSummary totals all of the user's income and expenses.
func (s *Store) GetBalanceSummary(ctx context.Context, userID string) (*BalanceSummary, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN type = 'INCOME' THEN amount ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN type = 'EXPENSE' THEN amount ELSE 0 END), 0)
		FROM transactions WHERE user_id = ?`, userID)

	var sum BalanceSummary
	if err := row.Scan(&sum.TotalIncome, &sum.TotalExpense); err != nil {
		return nil, fmt.Errorf("balance summary: %w", err)
	}
	sum.TotalBalance = sum.TotalIncome - sum.TotalExpense
	return &sum, nil
}

func scanTransaction(row *sql.Row) (*Transaction, error) {
	var tx Transaction
	var typ string
	err := row.Scan(&tx.ID, &tx.UserID, &tx.Amount, &typ, &tx.Category, &tx.Description, &tx.OccurredAt, &tx.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	tx.Type = TransactionType(typ)
	return &tx, nil
}

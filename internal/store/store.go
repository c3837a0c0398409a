// Package store provides owner-scoped sqlite persistence for users,
// transactions, and chat history. Every read and write is keyed by the
// owning user's ID; a row that exists but belongs to someone else is
// reported exactly like a row that does not exist.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a row is absent or owned by another user.
// The two cases are deliberately indistinguishable so that callers cannot
// probe for the existence of other users' data.
var ErrNotFound = errors.New("not found")

// TransactionType is the direction of a transaction.
type TransactionType string

const (
	// Income is money coming in.
	Income TransactionType = "INCOME"
	// Expense is money going out.
	Expense TransactionType = "EXPENSE"
)

// Valid reports whether t is one of the closed set of transaction types.
func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// Transaction is a single financial record.
type Transaction struct {
	ID          string          `json:"id"`
	UserID      string          `json:"-"`
	Amount      float64         `json:"amount"`
	Type        TransactionType `json:"type"`
	Category    string          `json:"category"`
	Description string          `json:"description,omitempty"`
	OccurredAt  time.Time       `json:"occurred_at"`
	CreatedAt   time.Time       `json:"created_at"`
}

// TransactionFilters narrows ListTransactions results.
type TransactionFilters struct {
	From  *time.Time
	To    *time.Time
	Limit int
}

// TransactionUpdate is a partial update; nil fields are left unchanged.
type TransactionUpdate struct {
	Amount      *float64
	Type        *TransactionType
	Category    *string
	Description *string
	OccurredAt  *time.Time
}

// Empty reports whether no field is set.
func (u TransactionUpdate) Empty() bool {
	return u.Amount == nil && u.Type == nil && u.Category == nil &&
		u.Description == nil && u.OccurredAt == nil
}

// BalanceSummary aggregates all of a user's transactions.
type BalanceSummary struct {
	TotalBalance float64 `json:"total_balance"`
	TotalIncome  float64 `json:"total_income"`
	TotalExpense float64 `json:"total_expense"`
}

// User is an account holder.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	FullName     string
	CreatedAt    time.Time
	LastLoginAt  *time.Time
}

// ChatMessage is one persisted turn of a conversation.
type ChatMessage struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	Metadata       string    `json:"metadata,omitempty"` // JSON envelope from the agent, opaque here
	CreatedAt      time.Time `json:"created_at"`
}

// Store is the sqlite-backed persistence layer.
type Store struct {
	db *sql.DB
}

// New creates a store on top of an open database handle and applies the
// schema. The caller owns the handle's lifetime; Close closes it.
func New(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		full_name TEXT,
		created_at TIMESTAMP NOT NULL,
		last_login_at TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		amount REAL NOT NULL,
		type TEXT NOT NULL CHECK (type IN ('INCOME', 'EXPENSE')),
		category TEXT NOT NULL,
		description TEXT,
		occurred_at TIMESTAMP NOT NULL,
		created_at TIMESTAMP NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_transactions_user ON transactions(user_id, occurred_at);

	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		summary TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_conversations_user ON conversations(user_id);

	CREATE TABLE IF NOT EXISTS chat_messages (
		id TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		metadata TEXT,
		created_at TIMESTAMP NOT NULL,
		FOREIGN KEY (conversation_id) REFERENCES conversations(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_chat_messages_conversation
		ON chat_messages(user_id, conversation_id, created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Package tools defines the fixed registry of finance tools exposed to
// the model and executes them against the persistence layer. The set is
// closed: models cannot register or discover tools at runtime.
package tools

// Definition is a tool schema in OpenAI function format. Provider
// adapters translate it to their own wire shape.
type Definition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Names of the registry tools.
const (
	ToolGetBalance        = "get_balance"
	ToolListTransactions  = "list_transactions"
	ToolCreateTransaction = "create_transaction"
	ToolAnalyzeSpending   = "analyze_spending"
	ToolUpdateTransaction = "update_transaction"
	ToolDeleteTransaction = "delete_transaction"
)

// Definitions returns the full registry in a stable order.
func Definitions() []Definition {
	return []Definition{
		{
			Name:        ToolGetBalance,
			Description: "Get the user's current financial balance (total income minus total expenses)",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
				"required":   []string{},
			},
		},
		{
			Name:        ToolListTransactions,
			Description: "List user's transactions with optional date range and limit filters",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"limit": map[string]any{
						"type":        "integer",
						"description": "Maximum number of transactions to return (1-200)",
						"minimum":     1,
						"maximum":     200,
					},
					"from_date": map[string]any{
						"type":        "string",
						"format":      "date-time",
						"description": "Start date for filtering transactions (ISO 8601)",
					},
					"to_date": map[string]any{
						"type":        "string",
						"format":      "date-time",
						"description": "End date for filtering transactions (ISO 8601)",
					},
				},
				"required": []string{},
			},
		},
		{
			Name:        ToolCreateTransaction,
			Description: "Create a new income or expense transaction",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"amount": map[string]any{
						"type":        "number",
						"description": "Transaction amount (must be positive)",
						"minimum":     0.01,
					},
					"type": map[string]any{
						"type":        "string",
						"enum":        []string{"INCOME", "EXPENSE"},
						"description": "Transaction type",
					},
					"category": map[string]any{
						"type":        "string",
						"description": "Transaction category (e.g., 'Food', 'Transport', 'Salary')",
					},
					"description": map[string]any{
						"type":        "string",
						"description": "Optional transaction description",
					},
					"occurred_at": map[string]any{
						"type":        "string",
						"format":      "date-time",
						"description": "When the transaction occurred (ISO 8601). Defaults to now if not provided",
					},
				},
				"required": []string{"amount", "type", "category"},
			},
		},
		{
			Name:        ToolAnalyzeSpending,
			Description: "Analyze spending patterns grouped by category, day, or month",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"from_date": map[string]any{
						"type":        "string",
						"format":      "date-time",
						"description": "Start date for analysis (ISO 8601)",
					},
					"to_date": map[string]any{
						"type":        "string",
						"format":      "date-time",
						"description": "End date for analysis (ISO 8601)",
					},
					"group_by": map[string]any{
						"type":        "string",
						"enum":        []string{"category", "day", "month"},
						"description": "How to group the analysis",
						"default":     "category",
					},
					"top_n": map[string]any{
						"type":        "integer",
						"description": "Return only top N results (1-50)",
						"minimum":     1,
						"maximum":     50,
					},
				},
				"required": []string{},
			},
		},
		{
			Name:        ToolUpdateTransaction,
			Description: "Update an existing transaction by id (amount, type, category, description, occurred_at). IMPORTANT: You MUST first use list_transactions to find the transaction ID if the user doesn't provide it explicitly. Match transactions by category, amount, description, or date mentioned by the user. Then use the transaction_id from the search results to update it.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"transaction_id": map[string]any{
						"type":        "string",
						"format":      "uuid",
						"description": "ID of the transaction to update. You must get this ID from list_transactions first if the user doesn't provide it explicitly.",
					},
					"amount": map[string]any{
						"type":        "number",
						"description": "New transaction amount (must be positive)",
						"minimum":     0.01,
					},
					"type": map[string]any{
						"type":        "string",
						"enum":        []string{"INCOME", "EXPENSE"},
						"description": "Transaction type",
					},
					"category": map[string]any{
						"type":        "string",
						"description": "Transaction category (e.g., 'Food', 'Transport', 'Salary')",
					},
					"description": map[string]any{
						"type":        "string",
						"description": "Optional transaction description",
					},
					"occurred_at": map[string]any{
						"type":        "string",
						"format":      "date-time",
						"description": "When the transaction occurred (ISO 8601)",
					},
				},
				"required": []string{"transaction_id"},
			},
		},
		{
			Name:        ToolDeleteTransaction,
			Description: "Delete a transaction by id. IMPORTANT: You MUST first use list_transactions to find the transaction ID if the user doesn't provide it explicitly. Match transactions by category, amount, description, or date mentioned by the user. Then use the transaction_id from the search results to delete it.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"transaction_id": map[string]any{
						"type":        "string",
						"format":      "uuid",
						"description": "ID of the transaction to delete. You must get this ID from list_transactions first if the user doesn't provide it explicitly.",
					},
				},
				"required": []string{"transaction_id"},
			},
		},
	}
}

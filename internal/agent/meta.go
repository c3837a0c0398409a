package agent

// UiEvent is a rendering hint for the frontend, carried out of band from
// the assistant text.
type UiEvent struct {
	Type     string         `json:"type"` // success_card, info_card, warning_card
	Variant  string         `json:"variant"`
	Accent   string         `json:"accent"` // electric_lime, deep_indigo
	Title    string         `json:"title"`
	Subtitle string         `json:"subtitle,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

// AssistantMeta reports what the assistant actually did during a turn so
// the UI can refresh without parsing chat text.
type AssistantMeta struct {
	UiEvents             []UiEvent `json:"ui_events"`
	DidCreateTransaction bool      `json:"did_create_transaction"`
	CreatedTransactionID string    `json:"created_transaction_id,omitempty"`
	DidUpdateTransaction bool      `json:"did_update_transaction"`
	UpdatedTransactionID string    `json:"updated_transaction_id,omitempty"`
	DidDeleteTransaction bool      `json:"did_delete_transaction"`
	DeletedTransactionID string    `json:"deleted_transaction_id,omitempty"`
	InsightTags          []string  `json:"insight_tags"`
}

// NewAssistantMeta returns an empty meta with non-nil slices so the JSON
// shape is stable.
func NewAssistantMeta() *AssistantMeta {
	return &AssistantMeta{
		UiEvents:    []UiEvent{},
		InsightTags: []string{},
	}
}

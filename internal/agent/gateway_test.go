package agent

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/zefa-finance/zefa-backend/internal/contextpack"
	"github.com/zefa-finance/zefa-backend/internal/creds"
	"github.com/zefa-finance/zefa-backend/internal/llm"
	"github.com/zefa-finance/zefa-backend/internal/prompts"
	"github.com/zefa-finance/zefa-backend/internal/store"
	"github.com/zefa-finance/zefa-backend/internal/tools"
	_ "modernc.org/sqlite"
)

type mockStep struct {
	resp *llm.ChatResponse
	err  error
}

// mockLLM replays scripted responses and records every call.
type mockLLM struct {
	provider string
	steps    []mockStep
	calls    [][]llm.Message
	defsSent [][]tools.Definition
}

func (m *mockLLM) Provider() string { return m.provider }

func (m *mockLLM) Chat(ctx context.Context, apiKey string, messages []llm.Message, defs []tools.Definition) (*llm.ChatResponse, error) {
	m.calls = append(m.calls, messages)
	m.defsSent = append(m.defsSent, defs)
	if len(m.steps) == 0 {
		return &llm.ChatResponse{Role: "assistant"}, nil
	}
	step := m.steps[0]
	m.steps = m.steps[1:]
	return step.resp, step.err
}

func newTestGateway(t *testing.T, mock *mockLLM) (*Gateway, *store.Store) {
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

	cs := creds.NewStore(time.Hour)
	cs.Set("user-1", "sk-test")

	g := NewGateway(mock, tools.NewExecutor(s, nil), contextpack.NewBuilder(s, 0), cs,
		Config{ToolsMode: "heuristic", ToolResultsMaxChars: 4000}, nil)
	return g, s
}

func toolCallResp(name, args string) *llm.ChatResponse {
	return &llm.ChatResponse{
		Role: "assistant",
		ToolCalls: []llm.ToolCall{
			{ID: "call_1", Name: name, Arguments: json.RawMessage(args)},
		},
	}
}

func TestProcessMessageCreateFlow(t *testing.T) {
	mock := &mockLLM{provider: "openai", steps: []mockStep{
		{resp: toolCallResp("create_transaction", `{"amount": 27.90, "type": "EXPENSE", "category": "Transport", "description": "uber"}`)},
		{resp: &llm.ChatResponse{Role: "assistant", Content: "Anotado! Despesa de R$ 27,90 no Uber registrada."}},
	}}
	g, s := newTestGateway(t, mock)

	reply, err := g.ProcessMessage(context.Background(), "user-1", "conv-1",
		"gastei 27.90 com uber ontem", nil, "", true)
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	if reply.Content != "Anotado! Despesa de R$ 27,90 no Uber registrada." {
		t.Errorf("content = %q", reply.Content)
	}
	if !reply.Meta.DidCreateTransaction || reply.Meta.CreatedTransactionID == "" {
		t.Errorf("meta = %+v", reply.Meta)
	}
	if len(reply.Meta.UiEvents) != 1 {
		t.Fatalf("ui events = %d, want 1", len(reply.Meta.UiEvents))
	}
	ev := reply.Meta.UiEvents[0]
	if ev.Type != "success_card" || ev.Variant != "neon" || ev.Accent != "electric_lime" {
		t.Errorf("event = %+v", ev)
	}
	tx := ev.Data["transaction"].(map[string]any)
	if tx["amount"] != 27.90 || tx["category"] != "Transport" {
		t.Errorf("event transaction = %+v", tx)
	}

	// The row must actually exist.
	rows, _ := s.ListTransactions(context.Background(), "user-1", store.TransactionFilters{})
	if len(rows) != 1 || rows[0].Amount != 27.90 {
		t.Errorf("stored rows = %+v", rows)
	}

	// Action keywords attach the registry on the first call.
	if len(mock.defsSent[0]) != 6 {
		t.Errorf("tools on first call = %d, want 6", len(mock.defsSent[0]))
	}
	// The second call carries the synthetic tool results message.
	last := mock.calls[1][len(mock.calls[1])-1]
	if last.Role != "user" || !strings.Contains(last.Content, "executada com sucesso") {
		t.Errorf("results message = %+v", last)
	}
	if !strings.Contains(last.Content, prompts.ToolResultsInstruction) {
		t.Error("missing success instruction")
	}
}

func TestProcessMessageEmptyContentFallback(t *testing.T) {
	mock := &mockLLM{provider: "openai", steps: []mockStep{
		{resp: toolCallResp("create_transaction", `{"amount": 10, "type": "EXPENSE", "category": "food"}`)},
		{resp: &llm.ChatResponse{Role: "assistant", Content: ""}},
	}}
	g, _ := newTestGateway(t, mock)

	reply, err := g.ProcessMessage(context.Background(), "user-1", "conv-1",
		"registrar gasto de 10 com comida", nil, "", true)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if reply.Content != prompts.FallbackCreated {
		t.Errorf("content = %q, want %q", reply.Content, prompts.FallbackCreated)
	}
}

func TestFallbackPriority(t *testing.T) {
	tests := []struct {
		name  string
		tools []string
		want  string
	}{
		{"update outranks all", []string{"create_transaction", "delete_transaction", "update_transaction"}, prompts.FallbackUpdated},
		{"delete outranks create", []string{"create_transaction", "delete_transaction"}, prompts.FallbackDeleted},
		{"create", []string{"create_transaction"}, prompts.FallbackCreated},
		{"generic", []string{"get_balance", "list_transactions"}, prompts.FallbackGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fallbackContent(tt.tools); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestProcessMessageFirstCallErrorRaises(t *testing.T) {
	mock := &mockLLM{provider: "openai", steps: []mockStep{
		{err: &llm.APIError{Provider: "openai", StatusCode: 500, Body: "internal details"}},
	}}
	g, _ := newTestGateway(t, mock)

	reply, err := g.ProcessMessage(context.Background(), "user-1", "conv-1", "saldo?", nil, "", true)
	if err == nil {
		t.Fatalf("expected error, got reply %+v", reply)
	}
	if reply != nil {
		t.Error("reply must be nil when the call raises")
	}
}

func TestProcessMessageGeminiErrorsBecomeReplies(t *testing.T) {
	tests := []struct {
		status   int
		category llm.ErrorCategory
	}{
		{503, llm.ErrServiceUnavailable},
		{429, llm.ErrRateLimitExceeded},
		{401, llm.ErrAuthenticationError},
		{400, llm.ErrInvalidRequest},
	}
	for _, tt := range tests {
		mock := &mockLLM{provider: "gemini", steps: []mockStep{
			{err: &llm.APIError{Provider: "gemini", StatusCode: tt.status, Body: "raw provider text"}},
		}}
		g, _ := newTestGateway(t, mock)

		reply, err := g.ProcessMessage(context.Background(), "user-1", "conv-1", "saldo?", nil, "", true)
		if err != nil {
			t.Fatalf("status %d: unexpected error %v", tt.status, err)
		}
		if reply.ErrorCategory != tt.category {
			t.Errorf("status %d: category = %s, want %s", tt.status, reply.ErrorCategory, tt.category)
		}
		if reply.Content != prompts.ErrorMessages[tt.category] {
			t.Errorf("status %d: content = %q", tt.status, reply.Content)
		}
		if strings.Contains(reply.Content, "raw provider text") {
			t.Error("raw provider error leaked into reply")
		}
	}
}

func TestProcessMessageMidLoopErrorKeepsToolOutcome(t *testing.T) {
	mock := &mockLLM{provider: "openai", steps: []mockStep{
		{resp: toolCallResp("create_transaction", `{"amount": 10, "type": "EXPENSE", "category": "food"}`)},
		{err: errors.New("connection reset")},
	}}
	g, s := newTestGateway(t, mock)

	reply, err := g.ProcessMessage(context.Background(), "user-1", "conv-1",
		"registrar 10 de comida", nil, "", true)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	// The transaction was created before the follow-up call failed; the
	// user still gets a confirmation.
	if reply.Content != prompts.FallbackCreated {
		t.Errorf("content = %q", reply.Content)
	}
	rows, _ := s.ListTransactions(context.Background(), "user-1", store.TransactionFilters{})
	if len(rows) != 1 {
		t.Errorf("stored rows = %d, want 1", len(rows))
	}
}

func TestProcessMessageLoopTermination(t *testing.T) {
	alwaysToolCall := func(n int) []mockStep {
		steps := make([]mockStep, n)
		for i := range steps {
			steps[i] = mockStep{resp: toolCallResp("get_balance", `{}`)}
		}
		return steps
	}

	tests := []struct {
		provider  string
		wantCalls int // first call + one per iteration
	}{
		{"openai", 2},
		{"anthropic", 2},
		{"gemini", 3},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			mock := &mockLLM{provider: tt.provider, steps: alwaysToolCall(10)}
			g, _ := newTestGateway(t, mock)

			_, err := g.ProcessMessage(context.Background(), "user-1", "conv-1", "meu saldo", nil, "", true)
			if err != nil {
				t.Fatalf("process: %v", err)
			}
			if len(mock.calls) != tt.wantCalls {
				t.Errorf("model calls = %d, want %d", len(mock.calls), tt.wantCalls)
			}
		})
	}
}

func TestProcessMessageToolFailureBecomesErrorResult(t *testing.T) {
	mock := &mockLLM{provider: "openai", steps: []mockStep{
		{resp: toolCallResp("delete_transaction", `{"transaction_id": "no-such-id"}`)},
		{resp: &llm.ChatResponse{Role: "assistant", Content: "Não encontrei essa transação."}},
	}}
	g, _ := newTestGateway(t, mock)

	reply, err := g.ProcessMessage(context.Background(), "user-1", "conv-1",
		"deleta a transação do uber", nil, "", true)
	if err != nil {
		t.Fatalf("tool failure must not abort the turn: %v", err)
	}
	if reply.Meta.DidDeleteTransaction {
		t.Error("failed delete still tracked as mutation")
	}

	last := mock.calls[1][len(mock.calls[1])-1]
	if !strings.Contains(last.Content, "ERRO na função delete_transaction") {
		t.Errorf("results message = %q", last.Content)
	}
	if !strings.Contains(last.Content, "list_transactions") {
		t.Error("missing not-found retry hint")
	}
	if !strings.Contains(last.Content, prompts.ToolResultsErrorInstruction) {
		t.Error("missing error instruction")
	}
}

func TestProcessMessageNeedsAPIKey(t *testing.T) {
	for _, env := range []string{"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY"} {
		t.Setenv(env, "")
	}

	mock := &mockLLM{provider: "openai"}
	g, _ := newTestGateway(t, mock)
	g.creds = creds.NewStore(time.Hour) // no ephemeral key either

	reply, err := g.ProcessMessage(context.Background(), "user-1", "conv-1", "oi", nil, "", false)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !reply.NeedsAPIKey || reply.Content != prompts.NeedAPIKey {
		t.Errorf("reply = %+v", reply)
	}
	if len(mock.calls) != 0 {
		t.Error("model consulted without a credential")
	}
}

func TestProcessMessagePromptAssembly(t *testing.T) {
	mock := &mockLLM{provider: "openai", steps: []mockStep{
		{resp: &llm.ChatResponse{Role: "assistant", Content: "ok"}},
	}}
	g, s := newTestGateway(t, mock)
	s.CreateTransaction(context.Background(), "user-1", 100, store.Income, "salary", "", time.Now())

	recent := []llm.Message{
		{Role: "user", Content: "oi"},
		{Role: "assistant", Content: "olá!"},
	}
	_, err := g.ProcessMessage(context.Background(), "user-1", "conv-1",
		"qual meu saldo?", recent, "usuário gosta de café", true)
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	msgs := mock.calls[0]
	if msgs[0].Role != "system" || !strings.Contains(msgs[0].Content, "Zefa") {
		t.Errorf("first message = %+v", msgs[0])
	}
	if !strings.Contains(msgs[1].Content, "Resumo da conversa anterior: usuário gosta de café") {
		t.Errorf("summary message = %q", msgs[1].Content)
	}
	if !strings.Contains(msgs[2].Content, "FINANCE_CONTEXT_PACK") || !strings.Contains(msgs[2].Content, `"currency":"BRL"`) {
		t.Errorf("context pack message = %q", msgs[2].Content)
	}
	last := msgs[len(msgs)-1]
	if last.Role != "user" || last.Content != "qual meu saldo?" {
		t.Errorf("last message = %+v", last)
	}
	// Recent window sits between the system block and the new message.
	if msgs[3].Content != "oi" || msgs[4].Content != "olá!" {
		t.Errorf("recent window misplaced: %+v", msgs[3:5])
	}
}

func TestProcessMessageDeleteUiEvent(t *testing.T) {
	mock := &mockLLM{provider: "openai"}
	g, s := newTestGateway(t, mock)

	tx, _ := s.CreateTransaction(context.Background(), "user-1", 42, store.Expense, "food", "", time.Now())
	mock.steps = []mockStep{
		{resp: toolCallResp("delete_transaction", `{"transaction_id": "`+tx.ID+`"}`)},
		{resp: &llm.ChatResponse{Role: "assistant", Content: "Removido!"}},
	}

	reply, err := g.ProcessMessage(context.Background(), "user-1", "conv-1",
		"remove essa transação", nil, "", true)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !reply.Meta.DidDeleteTransaction || reply.Meta.DeletedTransactionID != tx.ID {
		t.Errorf("meta = %+v", reply.Meta)
	}
	ev := reply.Meta.UiEvents[0]
	if ev.Type != "info_card" || ev.Accent != "deep_indigo" || ev.Title != "Removido." || ev.Subtitle != "Transação excluída." {
		t.Errorf("event = %+v", ev)
	}
	if ev.Data["deleted_transaction_id"] != tx.ID || ev.Data["amount"] != 42.0 {
		t.Errorf("event data = %+v", ev.Data)
	}
}

func TestProcessMessageUpdateUiEvent(t *testing.T) {
	mock := &mockLLM{provider: "openai"}
	g, s := newTestGateway(t, mock)

	tx, _ := s.CreateTransaction(context.Background(), "user-1", 30, store.Expense, "Transport", "uber", time.Now())
	mock.steps = []mockStep{
		{resp: toolCallResp("update_transaction", `{"transaction_id": "`+tx.ID+`", "amount": 32.5}`)},
		{resp: &llm.ChatResponse{Role: "assistant", Content: "Atualizado!"}},
	}

	reply, err := g.ProcessMessage(context.Background(), "user-1", "conv-1",
		"altera a transação do uber de 30 para 32.5", nil, "", true)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !reply.Meta.DidUpdateTransaction || reply.Meta.UpdatedTransactionID != tx.ID {
		t.Errorf("meta = %+v", reply.Meta)
	}
	ev := reply.Meta.UiEvents[0]
	if ev.Type != "success_card" || ev.Title != "Atualizado." || ev.Subtitle != "Transação atualizada." {
		t.Errorf("event = %+v", ev)
	}
}

func TestToolsModeNever(t *testing.T) {
	mock := &mockLLM{provider: "openai", steps: []mockStep{
		{resp: &llm.ChatResponse{Role: "assistant", Content: "ok"}},
	}}
	g, _ := newTestGateway(t, mock)
	g.cfg.ToolsMode = "never"

	_, err := g.ProcessMessage(context.Background(), "user-1", "conv-1", "registrar gasto de 10", nil, "", true)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(mock.defsSent[0]) != 0 {
		t.Errorf("tools sent in never mode: %d", len(mock.defsSent[0]))
	}
}

// stepTrace drives a turn through the state machine and records every
// state it passes through.
func stepTrace(tr *turn) []turnState {
	states := []turnState{stateResolveCredential}
	for s := stateResolveCredential; s != stateDone; {
		s = tr.step(s)
		states = append(states, s)
	}
	return states
}

func TestTurnStateTransitions(t *testing.T) {
	mock := &mockLLM{provider: "openai", steps: []mockStep{
		{resp: &llm.ChatResponse{Role: "assistant", Content: "oi"}},
	}}
	g, _ := newTestGateway(t, mock)

	tr := &turn{
		g: g, ctx: context.Background(),
		userID: "user-1", conversationID: "conv-1", text: "oi",
		maxIter: maxToolIterations("openai"), meta: NewAssistantMeta(),
	}

	got := stepTrace(tr)
	want := []turnState{stateResolveCredential, stateBuildContext, stateFirstCall, stateToolLoop, stateFinalize, stateDone}
	if len(got) != len(want) {
		t.Fatalf("states = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("state[%d] = %s, want %s", i, got[i], want[i])
		}
	}
	if tr.reply == nil || tr.reply.Content != "oi" {
		t.Errorf("reply = %+v", tr.reply)
	}
}

func TestTurnStateNoCredentialIsTerminal(t *testing.T) {
	for _, env := range []string{"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY"} {
		t.Setenv(env, "")
	}
	mock := &mockLLM{provider: "openai"}
	g, _ := newTestGateway(t, mock)

	tr := &turn{
		g: g, ctx: context.Background(),
		userID: "user-without-key", conversationID: "conv-1", text: "oi",
		maxIter: maxToolIterations("openai"), meta: NewAssistantMeta(),
	}

	got := stepTrace(tr)
	if len(got) != 2 || got[1] != stateDone {
		t.Fatalf("states = %v, want direct transition to done", got)
	}
	if tr.reply == nil || !tr.reply.NeedsAPIKey {
		t.Errorf("reply = %+v, want needs-api-key reply", tr.reply)
	}
	if len(mock.calls) != 0 {
		t.Errorf("model calls = %d, want 0", len(mock.calls))
	}
}

func TestTurnStateIterationCap(t *testing.T) {
	// A model that always requests tools must still reach finalize.
	loop := toolCallResp("get_balance", `{}`)
	mock := &mockLLM{provider: "openai", steps: []mockStep{
		{resp: loop}, {resp: loop}, {resp: loop}, {resp: loop},
	}}
	g, _ := newTestGateway(t, mock)

	tr := &turn{
		g: g, ctx: context.Background(),
		userID: "user-1", conversationID: "conv-1", text: "saldo",
		maxIter: maxToolIterations("openai"), meta: NewAssistantMeta(),
	}

	got := stepTrace(tr)
	loops := 0
	for _, s := range got {
		if s == stateToolLoop {
			loops++
		}
	}
	// One entry that runs the batch, one that hits the cap and exits.
	if loops != 2 {
		t.Errorf("tool_loop entries = %d, want 2 (states: %v)", loops, got)
	}
	if got[len(got)-2] != stateFinalize {
		t.Errorf("states = %v, want finalize before done", got)
	}
	if tr.iter != 1 {
		t.Errorf("iterations = %d, want 1", tr.iter)
	}
}

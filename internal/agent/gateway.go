// Package agent orchestrates chat turns: it resolves credentials, builds
// the prompt, runs the bounded tool-calling loop, and folds tool outcomes
// into the reply and its UI metadata.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/zefa-finance/zefa-backend/internal/contextpack"
	"github.com/zefa-finance/zefa-backend/internal/creds"
	"github.com/zefa-finance/zefa-backend/internal/llm"
	"github.com/zefa-finance/zefa-backend/internal/prompts"
	"github.com/zefa-finance/zefa-backend/internal/tools"
)

// Reply is the outcome of one chat turn.
type Reply struct {
	Role    string         `json:"role"`
	Content string         `json:"content"`
	Meta    *AssistantMeta `json:"metadata"`

	// ToolCalls mirrors the final response's tool requests, surfaced
	// for observability. Normally empty.
	ToolCalls []llm.ToolCall `json:"tool_calls,omitempty"`

	// ErrorCategory is set when the provider failed and the reply text
	// is a canned message rather than model output.
	ErrorCategory llm.ErrorCategory `json:"error,omitempty"`

	// NeedsAPIKey is set when no credential was available and the model
	// was never consulted.
	NeedsAPIKey bool `json:"needs_api_key,omitempty"`
}

// Config carries the loop's tunables.
type Config struct {
	ToolsMode           string // always, never, heuristic
	ToolResultsMaxChars int
}

// Gateway runs chat turns for authenticated users.
type Gateway struct {
	client   llm.Client
	executor *tools.Executor
	packs    *contextpack.Builder
	creds    *creds.Store
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time
}

// NewGateway wires a gateway.
func NewGateway(client llm.Client, executor *tools.Executor, packs *contextpack.Builder, credStore *creds.Store, cfg Config, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ToolResultsMaxChars <= 0 {
		cfg.ToolResultsMaxChars = 4000
	}
	return &Gateway{
		client:   client,
		executor: executor,
		packs:    packs,
		creds:    credStore,
		cfg:      cfg,
		logger:   logger.With("component", "agent"),
		now:      time.Now,
	}
}

// maxToolIterations bounds the tool loop per provider. Gemini gets a
// second pass so a list-then-update flow fits in one user turn.
func maxToolIterations(provider string) int {
	if provider == "gemini" {
		return 2
	}
	return 1
}

// turnState is one phase of a chat turn. Each state's step function
// returns the next state; stateDone is terminal.
type turnState int

const (
	stateResolveCredential turnState = iota
	stateBuildContext
	stateFirstCall
	stateToolLoop
	stateFinalize
	stateDone
)

func (s turnState) String() string {
	switch s {
	case stateResolveCredential:
		return "resolve_credential"
	case stateBuildContext:
		return "build_context"
	case stateFirstCall:
		return "first_call"
	case stateToolLoop:
		return "tool_loop"
	case stateFinalize:
		return "finalize"
	default:
		return "done"
	}
}

type toolOutcome struct {
	callID string
	name   string
	result map[string]any
	err    error
}

// turn carries one chat turn through the state machine.
type turn struct {
	g   *Gateway
	ctx context.Context

	userID             string
	conversationID     string
	text               string
	recent             []llm.Message
	summary            string
	includeContextPack bool

	apiKey          string
	messages        []llm.Message
	defs            []tools.Definition
	resp            *llm.ChatResponse
	iter            int
	maxIter         int
	ranTools        bool
	successfulTools []string
	meta            *AssistantMeta

	reply *Reply
	err   error
}

// ProcessMessage runs one chat turn for userID. recent is the prior
// conversation window in chronological order and summary the rolling
// summary, both already loaded by the caller. Only Gemini failures are
// folded into the reply; other provider errors are returned as errors.
func (g *Gateway) ProcessMessage(ctx context.Context, userID, conversationID, text string, recent []llm.Message, summary string, includeContextPack bool) (*Reply, error) {
	t := &turn{
		g:                  g,
		ctx:                ctx,
		userID:             userID,
		conversationID:     conversationID,
		text:               text,
		recent:             recent,
		summary:            summary,
		includeContextPack: includeContextPack,
		maxIter:            maxToolIterations(g.client.Provider()),
		meta:               NewAssistantMeta(),
	}

	for state := stateResolveCredential; state != stateDone; {
		state = t.step(state)
	}
	return t.reply, t.err
}

func (t *turn) step(s turnState) turnState {
	switch s {
	case stateResolveCredential:
		return t.resolveCredential()
	case stateBuildContext:
		return t.buildContext()
	case stateFirstCall:
		return t.firstCall()
	case stateToolLoop:
		return t.toolLoopIteration()
	case stateFinalize:
		return t.finalize()
	default:
		return stateDone
	}
}

func (t *turn) resolveCredential() turnState {
	provider := t.g.client.Provider()
	apiKey, ok := t.g.creds.Resolve(t.userID, provider)
	if !ok {
		t.g.logger.Info("no api key available", "user_id", t.userID, "provider", provider)
		t.reply = &Reply{Role: "assistant", Content: prompts.NeedAPIKey, NeedsAPIKey: true, Meta: t.meta}
		return stateDone
	}
	t.apiKey = apiKey
	return stateBuildContext
}

func (t *turn) buildContext() turnState {
	t.messages = t.g.buildMessages(t.ctx, t.userID, t.text, t.recent, t.summary, t.includeContextPack)

	attach := ShouldAttachTools(t.g.cfg.ToolsMode, t.text, t.includeContextPack)
	if !attach && ShouldForceTools(t.recent) {
		t.g.logger.Debug("forcing tools from clarification context", "conversation_id", t.conversationID)
		attach = true
	}
	if attach {
		t.defs = tools.Definitions()
	}
	return stateFirstCall
}

func (t *turn) firstCall() turnState {
	t.g.logger.Debug("first model call",
		"conversation_id", t.conversationID,
		"messages", len(t.messages),
		"tools_attached", len(t.defs) > 0,
		"context_pack", t.includeContextPack,
	)

	resp, err := t.g.client.Chat(t.ctx, t.apiKey, t.messages, t.defs)
	if err != nil {
		if t.g.client.Provider() == "gemini" {
			t.reply = t.g.errorReply(err, t.meta)
			return stateDone
		}
		t.err = fmt.Errorf("chat: %w", err)
		return stateDone
	}
	t.resp = resp
	return stateToolLoop
}

// toolLoopIteration runs one batch of tool calls plus the follow-up
// model call. It re-enters itself until the response stops requesting
// tools or the iteration cap is hit.
func (t *turn) toolLoopIteration() turnState {
	if !t.resp.HasToolCalls() || t.iter >= t.maxIter {
		return stateFinalize
	}
	t.iter++
	t.ranTools = true

	outcomes := t.g.executeToolCalls(t.ctx, t.userID, t.resp.ToolCalls, t.meta)
	for _, o := range outcomes {
		if o.err == nil {
			t.successfulTools = append(t.successfulTools, o.name)
		}
	}

	t.messages = append(t.messages, llm.Message{
		Role:      "assistant",
		Content:   t.resp.Content,
		ToolCalls: t.resp.ToolCalls,
	})
	t.messages = append(t.messages, t.g.toolResultsMessage(outcomes))

	t.g.logger.Debug("model call with tool results",
		"conversation_id", t.conversationID,
		"iteration", t.iter,
		"max_iterations", t.maxIter,
		"tool_calls", len(outcomes),
	)

	next, err := t.g.client.Chat(t.ctx, t.apiKey, t.messages, t.defs)
	if err != nil {
		if t.g.client.Provider() == "gemini" {
			t.reply = t.g.errorReply(err, t.meta)
			return stateDone
		}
		// Keep the previous response; finalize supplies the confirmation
		// text for the tools that already ran.
		t.g.logger.Error("model call after tools failed", "error", err)
		return stateFinalize
	}
	t.resp = next
	return stateToolLoop
}

func (t *turn) finalize() turnState {
	content := t.resp.Content
	if content == "" && t.ranTools {
		if len(t.successfulTools) > 0 {
			content = fallbackContent(t.successfulTools)
		} else {
			t.g.logger.Warn("no successful tools and empty model content", "conversation_id", t.conversationID)
		}
	}

	t.g.logger.Info("turn complete",
		"conversation_id", t.conversationID,
		"content_len", len(content),
		"ui_events", len(t.meta.UiEvents),
		"did_create", t.meta.DidCreateTransaction,
		"did_update", t.meta.DidUpdateTransaction,
		"did_delete", t.meta.DidDeleteTransaction,
	)

	t.reply = &Reply{Role: "assistant", Content: content, Meta: t.meta, ToolCalls: t.resp.ToolCalls}
	return stateDone
}

func (g *Gateway) buildMessages(ctx context.Context, userID, text string, recent []llm.Message, summary string, includeContextPack bool) []llm.Message {
	messages := []llm.Message{{Role: "system", Content: prompts.System}}

	if summary != "" {
		messages = append(messages, llm.Message{
			Role:    "system",
			Content: "Resumo da conversa anterior: " + summary,
		})
	}

	if includeContextPack {
		pack, err := g.packs.Build(ctx, userID, g.now())
		if err != nil {
			// The turn proceeds without the snapshot.
			g.logger.Warn("context pack build failed", "user_id", userID, "error", err)
		} else {
			messages = append(messages, llm.Message{
				Role:    "system",
				Content: "FINANCE_CONTEXT_PACK (server, scoped to user): " + pack.JSON(),
			})
		}
	}

	messages = append(messages, recent...)
	return append(messages, llm.Message{Role: "user", Content: text})
}

// executeToolCalls runs every call in the batch. A failing call becomes
// an error outcome; it never aborts the remaining calls.
func (g *Gateway) executeToolCalls(ctx context.Context, userID string, calls []llm.ToolCall, meta *AssistantMeta) []toolOutcome {
	outcomes := make([]toolOutcome, 0, len(calls))
	for _, call := range calls {
		result, err := g.executor.Execute(ctx, userID, call.Name, call.Arguments)
		if err != nil {
			g.logger.Error("tool execution failed", "tool", call.Name, "error", err)
			outcomes = append(outcomes, toolOutcome{callID: call.ID, name: call.Name, err: err})
			continue
		}
		g.trackMutation(call.Name, result, meta)
		outcomes = append(outcomes, toolOutcome{callID: call.ID, name: call.Name, result: result})
	}
	return outcomes
}

// trackMutation records write operations in the meta side channel.
func (g *Gateway) trackMutation(name string, result map[string]any, meta *AssistantMeta) {
	id, _ := result["id"].(string)

	switch name {
	case tools.ToolCreateTransaction:
		if id == "" {
			return
		}
		meta.DidCreateTransaction = true
		meta.CreatedTransactionID = id
		isIncome := result["type"] == "INCOME"
		meta.UiEvents = append(meta.UiEvents, UiEvent{
			Type:     "success_card",
			Variant:  "neon",
			Accent:   "electric_lime",
			Title:    confirmationTitle(),
			Subtitle: confirmationSubtitle(isIncome),
			Data:     map[string]any{"transaction": transactionData(result)},
		})

	case tools.ToolUpdateTransaction:
		if id == "" {
			return
		}
		meta.DidUpdateTransaction = true
		meta.UpdatedTransactionID = id
		meta.UiEvents = append(meta.UiEvents, UiEvent{
			Type:     "success_card",
			Variant:  "neon",
			Accent:   "electric_lime",
			Title:    "Atualizado.",
			Subtitle: "Transação atualizada.",
			Data:     map[string]any{"transaction": transactionData(result)},
		})

	case tools.ToolDeleteTransaction:
		if _, deleted := result["deleted"]; !deleted {
			return
		}
		meta.DidDeleteTransaction = true
		meta.DeletedTransactionID = id
		meta.UiEvents = append(meta.UiEvents, UiEvent{
			Type:     "info_card",
			Variant:  "neon",
			Accent:   "deep_indigo",
			Title:    "Removido.",
			Subtitle: "Transação excluída.",
			Data: map[string]any{
				"deleted_transaction_id": result["id"],
				"amount":                 result["amount"],
				"category":               result["category"],
			},
		})
	}
}

func transactionData(result map[string]any) map[string]any {
	return map[string]any{
		"id":          result["id"],
		"amount":      result["amount"],
		"type":        result["type"],
		"category":    result["category"],
		"description": result["description"],
		"occurred_at": result["occurred_at"],
	}
}

// toolResultsMessage folds the batch's outcomes into one synthetic user
// message: compacted results, an error hint when something failed, and
// the instruction for the follow-up call.
func (g *Gateway) toolResultsMessage(outcomes []toolOutcome) llm.Message {
	texts := make([]string, 0, len(outcomes))
	hasErrors := false
	for _, o := range outcomes {
		if o.err != nil {
			hasErrors = true
			texts = append(texts, fmt.Sprintf("ERRO na função %s: %s\n%s",
				o.name, o.err.Error(), prompts.NotFoundRetryHint))
			continue
		}
		texts = append(texts, fmt.Sprintf("Função %s executada com sucesso. Resultado:\n%s",
			o.name, compactResult(o.result, g.cfg.ToolResultsMaxChars)))
	}

	combined := strings.Join(texts, "\n\n")
	if len(combined) > g.cfg.ToolResultsMaxChars {
		combined = combined[:g.cfg.ToolResultsMaxChars] + "... (truncated)"
	}

	instruction := prompts.ToolResultsInstruction
	if hasErrors {
		instruction = prompts.ToolResultsErrorInstruction
	}

	return llm.Message{
		Role:    "user",
		Content: fmt.Sprintf("Aqui estão os resultados das funções executadas:\n\n%s\n\n%s", combined, instruction),
	}
}

// errorReply maps a provider failure to a canned pt-BR reply. Raw
// provider text is logged upstream, never shown to the user.
func (g *Gateway) errorReply(err error, meta *AssistantMeta) *Reply {
	category := llm.Categorize(err)
	msg, ok := prompts.ErrorMessages[category]
	if !ok {
		msg = prompts.ErrorMessages[llm.ErrUnknown]
	}
	g.logger.Error("provider error", "category", category, "error", err)
	return &Reply{Role: "assistant", Content: msg, ErrorCategory: category, Meta: meta}
}

// Package summarizer maintains rolling conversation summaries so that
// long chats keep fitting in the model's context window.
package summarizer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/zefa-finance/zefa-backend/internal/creds"
	"github.com/zefa-finance/zefa-backend/internal/llm"
	"github.com/zefa-finance/zefa-backend/internal/prompts"
	"github.com/zefa-finance/zefa-backend/internal/store"
)

const truncateAt = 500

// Summarizer compresses the turns that fall out of the recent window.
type Summarizer struct {
	client      llm.Client
	store       *store.Store
	creds       *creds.Store
	maxMessages int
	tokenBudget int
	logger      *slog.Logger
}

// New creates a summarizer. maxMessages is the recent window size that
// stays verbatim; tokenBudget caps the summary (roughly 4 chars/token).
func New(client llm.Client, s *store.Store, credStore *creds.Store, maxMessages, tokenBudget int, logger *slog.Logger) *Summarizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Summarizer{
		client:      client,
		store:       s,
		creds:       credStore,
		maxMessages: maxMessages,
		tokenBudget: tokenBudget,
		logger:      logger.With("component", "summarizer"),
	}
}

// MaybeSummarize refreshes the conversation summary when the message
// count exceeds the window. Best effort: a missing credential or a
// provider failure skips the refresh without surfacing an error, the
// chat turn already succeeded.
func (s *Summarizer) MaybeSummarize(ctx context.Context, userID, conversationID string) error {
	count, err := s.store.CountMessages(ctx, userID, conversationID)
	if err != nil {
		return fmt.Errorf("count messages: %w", err)
	}
	if count <= s.maxMessages {
		return nil
	}

	older, err := s.store.OldestMessages(ctx, userID, conversationID, count-s.maxMessages)
	if err != nil {
		return fmt.Errorf("load older messages: %w", err)
	}
	if len(older) == 0 {
		return nil
	}

	apiKey, ok := s.creds.Resolve(userID, s.client.Provider())
	if !ok {
		s.logger.Warn("skipping summarization, no api key", "conversation_id", conversationID)
		return nil
	}

	var b strings.Builder
	for _, msg := range older {
		if msg.Role == "system" {
			continue
		}
		content := msg.Content
		if len(content) > truncateAt {
			content = content[:truncateAt] + "..."
		}
		fmt.Fprintf(&b, "%s: %s\n", msg.Role, content)
	}

	messages := []llm.Message{
		{Role: "system", Content: prompts.Summarization},
		{Role: "user", Content: "Resuma esta conversa:\n\n" + b.String()},
	}

	resp, err := s.client.Chat(ctx, apiKey, messages, nil)
	if err != nil {
		s.logger.Error("summarization call failed", "conversation_id", conversationID, "error", err)
		return nil
	}

	summary := strings.TrimSpace(resp.Content)
	if summary == "" {
		return nil
	}
	if maxChars := s.tokenBudget * 4; len(summary) > maxChars {
		summary = summary[:maxChars] + "..."
	}

	if err := s.store.SetSummary(ctx, userID, conversationID, summary); err != nil {
		return fmt.Errorf("set summary: %w", err)
	}
	s.logger.Debug("summary updated", "conversation_id", conversationID, "summary_len", len(summary))
	return nil
}

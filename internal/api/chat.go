package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/zefa-finance/zefa-backend/internal/agent"
	"github.com/zefa-finance/zefa-backend/internal/llm"
	"github.com/zefa-finance/zefa-backend/internal/store"
)

type chatRequest struct {
	ConversationID string `json:"conversation_id"`
	Text           string `json:"text"`
}

type chatResponse struct {
	Message       store.ChatMessage    `json:"message"`
	Meta          *agent.AssistantMeta `json:"meta"`
	NeedsAPIKey   bool                 `json:"needs_api_key,omitempty"`
	ErrorCategory string               `json:"error,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request, userID string) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", s.logger)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "message text is required", s.logger)
		return
	}
	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = uuid.NewString()
	}
	ctx := r.Context()

	userMsg, err := s.store.AddMessage(ctx, userID, conversationID, "user", req.Text, "")
	if err != nil {
		s.logger.Error("persist user message failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not record message", s.logger)
		return
	}

	recentRows, err := s.store.RecentMessages(ctx, userID, conversationID, s.maxContextMessages)
	if err != nil {
		s.logger.Error("load recent messages failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not load conversation", s.logger)
		return
	}
	// The just-persisted user message goes to the gateway separately.
	recent := make([]llm.Message, 0, len(recentRows))
	for _, m := range recentRows {
		if m.ID == userMsg.ID {
			continue
		}
		recent = append(recent, llm.Message{Role: m.Role, Content: m.Content})
	}

	summary, err := s.store.GetSummary(ctx, userID, conversationID)
	if err != nil {
		s.logger.Warn("load summary failed", "error", err)
	}

	includePack := agent.WantsContextPack(req.Text)

	reply, err := s.gateway.ProcessMessage(ctx, userID, conversationID, req.Text, recent, summary, includePack)
	if err != nil {
		s.logger.Error("chat processing failed", "conversation_id", conversationID, "error", err)
		writeError(w, http.StatusBadGateway, "Erro ao processar mensagem. Por favor, tente novamente.", s.logger)
		return
	}

	metaJSON, err := json.Marshal(reply.Meta)
	if err != nil {
		metaJSON = []byte("{}")
	}
	assistantMsg, err := s.store.AddMessage(ctx, userID, conversationID, "assistant", reply.Content, string(metaJSON))
	if err != nil {
		s.logger.Error("persist assistant message failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not record reply", s.logger)
		return
	}

	// Best effort; the turn already succeeded.
	if err := s.summarizer.MaybeSummarize(ctx, userID, conversationID); err != nil {
		s.logger.Warn("summarization check failed", "conversation_id", conversationID, "error", err)
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Message:       *assistantMsg,
		Meta:          reply.Meta,
		NeedsAPIKey:   reply.NeedsAPIKey,
		ErrorCategory: string(reply.ErrorCategory),
	}, s.logger)
}

type apiKeyRequest struct {
	APIKey string `json:"api_key"`
}

func (s *Server) handleSetAPIKey(w http.ResponseWriter, r *http.Request, userID string) {
	var req apiKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", s.logger)
		return
	}
	if strings.TrimSpace(req.APIKey) == "" {
		writeError(w, http.StatusBadRequest, "api_key is required", s.logger)
		return
	}

	s.creds.Set(userID, req.APIKey)
	// Never echo the key back.
	s.logger.Info("ephemeral api key stored", "user_id", userID)
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "API key configurada temporariamente. A chave será armazenada apenas em memória e expirará em 60 minutos.",
	}, s.logger)
}

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/zefa-finance/zefa-backend/internal/store"
)

type createTransactionRequest struct {
	Amount      float64    `json:"amount"`
	Type        string     `json:"type"`
	Category    string     `json:"category"`
	Description string     `json:"description"`
	OccurredAt  *time.Time `json:"occurred_at"`
}

type updateTransactionRequest struct {
	Amount      *float64   `json:"amount"`
	Type        *string    `json:"type"`
	Category    *string    `json:"category"`
	Description *string    `json:"description"`
	OccurredAt  *time.Time `json:"occurred_at"`
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request, userID string) {
	summary, err := s.store.GetBalanceSummary(r.Context(), userID)
	if err != nil {
		s.logger.Error("balance query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not compute balance", s.logger)
		return
	}
	writeJSON(w, http.StatusOK, summary, s.logger)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request, userID string) {
	var filters store.TransactionFilters

	q := r.URL.Query()
	if v := q.Get("from"); v != "" {
		t, err := parseQueryTime(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid 'from' date", s.logger)
			return
		}
		filters.From = &t
	}
	if v := q.Get("to"); v != "" {
		t, err := parseQueryTime(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid 'to' date", s.logger)
			return
		}
		filters.To = &t
	}
	filters.Limit = 50
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 200 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 200", s.logger)
			return
		}
		filters.Limit = n
	}

	txs, err := s.store.ListTransactions(r.Context(), userID, filters)
	if err != nil {
		s.logger.Error("list transactions failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not list transactions", s.logger)
		return
	}
	if txs == nil {
		txs = []store.Transaction{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": txs,
		"count":        len(txs),
	}, s.logger)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request, userID string) {
	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", s.logger)
		return
	}
	if req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "amount must be positive", s.logger)
		return
	}
	typ := store.TransactionType(req.Type)
	if !typ.Valid() {
		writeError(w, http.StatusBadRequest, "type must be INCOME or EXPENSE", s.logger)
		return
	}
	if req.Category == "" {
		writeError(w, http.StatusBadRequest, "category is required", s.logger)
		return
	}
	occurredAt := time.Now().UTC()
	if req.OccurredAt != nil {
		occurredAt = *req.OccurredAt
	}

	tx, err := s.store.CreateTransaction(r.Context(), userID, req.Amount, typ, req.Category, req.Description, occurredAt)
	if err != nil {
		s.logger.Error("create transaction failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not create transaction", s.logger)
		return
	}
	writeJSON(w, http.StatusCreated, tx, s.logger)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request, userID string) {
	tx, err := s.store.GetTransaction(r.Context(), userID, r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "transaction not found", s.logger)
		return
	}
	if err != nil {
		s.logger.Error("get transaction failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not load transaction", s.logger)
		return
	}
	writeJSON(w, http.StatusOK, tx, s.logger)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request, userID string) {
	var req updateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", s.logger)
		return
	}

	upd := store.TransactionUpdate{
		Amount:      req.Amount,
		Category:    req.Category,
		Description: req.Description,
		OccurredAt:  req.OccurredAt,
	}
	if req.Amount != nil && *req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "amount must be positive", s.logger)
		return
	}
	if req.Type != nil {
		typ := store.TransactionType(*req.Type)
		if !typ.Valid() {
			writeError(w, http.StatusBadRequest, "type must be INCOME or EXPENSE", s.logger)
			return
		}
		upd.Type = &typ
	}
	if upd.Empty() {
		writeError(w, http.StatusBadRequest, "at least one field must be provided", s.logger)
		return
	}

	tx, err := s.store.UpdateTransaction(r.Context(), userID, r.PathValue("id"), upd)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "transaction not found", s.logger)
		return
	}
	if err != nil {
		s.logger.Error("update transaction failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not update transaction", s.logger)
		return
	}
	writeJSON(w, http.StatusOK, tx, s.logger)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request, userID string) {
	err := s.store.DeleteTransaction(r.Context(), userID, r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "transaction not found", s.logger)
		return
	}
	if err != nil {
		s.logger.Error("delete transaction failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not delete transaction", s.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parseQueryTime accepts full timestamps and plain dates.
func parseQueryTime(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", v)
}

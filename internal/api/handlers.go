package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tasosbeast/bill-split-sub001/internal/models"
)

func (s *Server) handleListFriends(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"friends":    s.ledger.Friends(),
		"selectedId": s.ledger.SelectedFriend(),
	})
}

func (s *Server) handleAddFriend(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		Tag   string `json:"tag"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	friend, err := s.ledger.AddFriend(r.Context(), req.Name, req.Email, req.Tag)
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, friend)
}

func (s *Server) handleRemoveFriend(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.RemoveFriend(r.Context(), chi.URLParam(r, "id")); err != nil {
		storeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSelectFriend(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FriendID string `json:"friendId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.ledger.SelectFriend(r.Context(), req.FriendID); err != nil {
		storeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"balances": s.ledger.Balances(),
		"list":     s.ledger.BalanceList(),
	})
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	friendID := r.URL.Query().Get("friend")
	if friendID == "" {
		writeJSON(w, http.StatusOK, map[string]any{
			"transactions": s.ledger.Snapshot().Transactions,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": s.ledger.TransactionsForFriend(friendID),
	})
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	var tx models.Transaction
	if err := json.NewDecoder(r.Body).Decode(&tx); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	created, err := s.ledger.AddTransaction(r.Context(), tx)
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var tx models.Transaction
	if err := json.NewDecoder(r.Body).Decode(&tx); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	tx.ID = chi.URLParam(r, "id")
	updated, err := s.ledger.UpdateTransaction(r.Context(), tx)
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleRemoveTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.RemoveTransaction(r.Context(), chi.URLParam(r, "id")); err != nil {
		storeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSettlementSummaries(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"settlements": s.ledger.SettlementSummaries(),
	})
}

func (s *Server) handleSettleGuard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ledger.EnsureSettle())
}

func (s *Server) handleInitiateSettlement(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Payment *models.PaymentMetadata `json:"payment"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	tx, err := s.ledger.InitiateSettlement(r.Context(), req.Payment)
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleSettlementTransition(
	transition func(context.Context, string) (models.Transaction, error),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tx, err := transition(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			storeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, tx)
	}
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"templates": s.ledger.Templates(),
	})
}

// Package api exposes the ledger store over HTTP. UI collaborators
// consume the read endpoints (balances, transactions, settlement
// summaries); the write endpoints mutate through the store and can be
// guarded by the optional passphrase auth.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tasosbeast/bill-split-sub001/internal/auth"
	"github.com/tasosbeast/bill-split-sub001/internal/middleware"
	"github.com/tasosbeast/bill-split-sub001/internal/restore"
	"github.com/tasosbeast/bill-split-sub001/internal/store"
)

// maxImportSize caps restore payloads at 8 MiB; personal ledgers are
// orders of magnitude smaller.
const maxImportSize = 8 << 20

// Server is the ledger HTTP API.
type Server struct {
	ledger         *store.Ledger
	tokens         *auth.JWTManager
	passphraseHash string
	metricsEnabled bool
}

// NewServer creates an API server over the given ledger.
func NewServer(ledger *store.Ledger) *Server {
	return &Server{ledger: ledger}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// EnableAuth guards write routes with the given passphrase hash; tokens
// are issued by POST /api/login.
func (s *Server) EnableAuth(passphraseHash string, tokens *auth.JWTManager) {
	s.passphraseHash = passphraseHash
	s.tokens = tokens
}

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Logging)
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":          "ok",
			"degradedStorage": s.ledger.FellBack(),
		})
	})

	r.Post("/api/login", s.handleLogin)

	// Read API.
	r.Get("/api/friends", s.handleListFriends)
	r.Get("/api/balances", s.handleBalances)
	r.Get("/api/transactions", s.handleListTransactions)
	r.Get("/api/settlements", s.handleSettlementSummaries)
	r.Get("/api/settlements/guard", s.handleSettleGuard)
	r.Get("/api/templates", s.handleListTemplates)
	r.Get("/api/export", s.handleExport)

	// Write API, optionally passphrase-guarded.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(s.writeGuard()))

		r.Post("/api/friends", s.handleAddFriend)
		r.Delete("/api/friends/{id}", s.handleRemoveFriend)
		r.Put("/api/selection", s.handleSelectFriend)

		r.Post("/api/transactions", s.handleAddTransaction)
		r.Put("/api/transactions/{id}", s.handleUpdateTransaction)
		r.Delete("/api/transactions/{id}", s.handleRemoveTransaction)

		r.Post("/api/settlements", s.handleInitiateSettlement)
		r.Post("/api/settlements/{id}/confirm", s.handleSettlementTransition(s.ledger.ConfirmSettlement))
		r.Post("/api/settlements/{id}/cancel", s.handleSettlementTransition(s.ledger.CancelSettlement))
		r.Post("/api/settlements/{id}/reopen", s.handleSettlementTransition(s.ledger.ReopenSettlement))

		r.Post("/api/restore", s.handleRestore)
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// writeGuard returns the token manager when auth is configured, nil for
// the open local default.
func (s *Server) writeGuard() *auth.JWTManager {
	if s.passphraseHash == "" {
		return nil
	}
	return s.tokens
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.passphraseHash == "" {
		writeError(w, http.StatusNotFound, "authentication is not configured")
		return
	}
	var req struct {
		Passphrase string `json:"passphrase"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := auth.VerifyPassphrase(s.passphraseHash, req.Passphrase); err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	token, err := s.tokens.Generate()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxImportSize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read import payload")
		return
	}
	result, err := s.ledger.Restore(r.Context(), payload)
	if err != nil {
		if errors.Is(err, restore.ErrMalformedSnapshot) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"friends":             len(result.Friends),
		"transactions":        len(result.Transactions),
		"templates":           len(result.Templates),
		"selectedId":          result.SelectedID,
		"skippedTransactions": result.Skipped,
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	payload, err := s.ledger.Export()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to export snapshot")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="splitledger-export.json"`)
	w.WriteHeader(http.StatusOK)
	w.Write(payload)
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error body.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// storeError maps store reason codes onto HTTP statuses.
func storeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrNonZeroBalance),
		errors.Is(err, store.ErrDuplicateEmail),
		errors.Is(err, store.ErrSettlementImmutable):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrInvalidFriend),
		errors.Is(err, store.ErrInvalidTransaction),
		errors.Is(err, store.ErrNoSelection),
		errors.Is(err, store.ErrNoBalance):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// corsMiddleware adds CORS headers for browser access.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Package api exposes a small authenticated REST surface over the same
// services the Telegram bot uses: account registration, login, and
// read/write access to a group's ledger.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tallybot/tallybot/internal/auth"
	"github.com/tallybot/tallybot/internal/ledger"
	"github.com/tallybot/tallybot/internal/middleware"
	"github.com/tallybot/tallybot/internal/service"
)

// Server is the HTTP API over the group and ledger services.
type Server struct {
	groups     *service.GroupService
	ledgers    *service.LedgerService
	authn      auth.Authenticator
	jwtManager *auth.JWTManager
	validate   *validator.Validate
}

// NewServer creates an API server.
func NewServer(groups *service.GroupService, ledgers *service.LedgerService, authn auth.Authenticator, jwtManager *auth.JWTManager) *Server {
	return &Server{
		groups:     groups,
		ledgers:    ledgers,
		authn:      authn,
		jwtManager: jwtManager,
		validate:   validator.New(),
	}
}

// Routes builds the router. Webhook registration is left to the caller
// so the bot handler can be mounted alongside.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logging)
	r.Use(middleware.Metrics)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(s.jwtManager))
			r.Route("/groups/{chatID}", func(r chi.Router) {
				r.Use(s.requireMembership)
				r.Get("/balances", s.handleBalances)
				r.Get("/transfers", s.handleTransfers)
				r.Get("/history", s.handleHistory)
				r.Post("/settlements", s.handleCreateSettlement)
			})
		})
	})
	return r
}

// requireMembership resolves {chatID} and rejects callers whose linked
// Telegram account is not a member of that group.
func (s *Server) requireMembership(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chatID, err := strconv.ParseInt(chi.URLParam(r, "chatID"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid group id")
			return
		}

		claims := middleware.GetClaims(r.Context())
		if claims == nil || claims.TelegramUserID == 0 {
			writeError(w, http.StatusForbidden, "no linked telegram account")
			return
		}
		member, err := s.groups.IsMember(r.Context(), chatID, claims.TelegramUserID)
		if err != nil {
			slog.Error("Failed to check membership", "chat_id", chatID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if !member {
			writeError(w, http.StatusForbidden, "not a member of this group")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func sortedIDs(balances ledger.Balances) []int64 {
	ids := make([]int64, 0, len(balances))
	for id := range balances {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func chatIDParam(r *http.Request) int64 {
	// requireMembership already validated the parameter.
	id, _ := strconv.ParseInt(chi.URLParam(r, "chatID"), 10, 64)
	return id
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeAndValidate parses a JSON body into dst and runs its
// validation tags.
func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func mapLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrInvalidSettlement):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ledger.ErrEmptyParticipants):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		slog.Error("Ledger operation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

package api

import (
	"errors"
	"net/http"

	"github.com/tallybot/tallybot/internal/auth"
	"github.com/tallybot/tallybot/internal/middleware"
	"github.com/tallybot/tallybot/internal/money"
)

type registerRequest struct {
	Email          string `json:"email" validate:"required,email"`
	DisplayName    string `json:"display_name" validate:"required,min=1,max=100"`
	Password       string `json:"password" validate:"required,min=8"`
	TelegramUserID int64  `json:"telegram_user_id" validate:"required"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	user, err := s.authn.Register(r.Context(), req.Email, req.DisplayName, req.Password, req.TelegramUserID)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailExists):
			writeError(w, http.StatusConflict, "email already registered")
		case errors.Is(err, auth.ErrWeakPassword):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, tokenResponse{Token: token})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	user, err := s.authn.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}

type balanceEntry struct {
	UserID int64        `json:"user_id"`
	Amount money.Amount `json:"amount"`
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	chatID := chatIDParam(r)
	balances, err := s.ledgers.Balances(r.Context(), chatID)
	if err != nil {
		mapLedgerError(w, err)
		return
	}

	entries := make([]balanceEntry, 0, len(balances))
	for _, id := range sortedIDs(balances) {
		entries = append(entries, balanceEntry{UserID: id, Amount: balances[id]})
	}
	writeJSON(w, http.StatusOK, map[string]any{"balances": entries})
}

type transferEntry struct {
	From   int64        `json:"from"`
	To     int64        `json:"to"`
	Amount money.Amount `json:"amount"`
}

func (s *Server) handleTransfers(w http.ResponseWriter, r *http.Request) {
	chatID := chatIDParam(r)
	transfers, err := s.ledgers.Transfers(r.Context(), chatID)
	if err != nil {
		mapLedgerError(w, err)
		return
	}

	entries := make([]transferEntry, 0, len(transfers))
	for _, t := range transfers {
		entries = append(entries, transferEntry{From: t.From, To: t.To, Amount: t.Amount})
	}
	writeJSON(w, http.StatusOK, map[string]any{"transfers": entries})
}

type historyItem struct {
	Kind        string       `json:"kind"`
	Description string       `json:"description,omitempty"`
	PaidBy      int64        `json:"paid_by,omitempty"`
	From        int64        `json:"from,omitempty"`
	To          int64        `json:"to,omitempty"`
	Amount      money.Amount `json:"amount"`
	CreatedAt   int64        `json:"created_at"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	chatID := chatIDParam(r)
	entries, err := s.ledgers.History(r.Context(), chatID, 20)
	if err != nil {
		mapLedgerError(w, err)
		return
	}

	items := make([]historyItem, 0, len(entries))
	for _, e := range entries {
		switch {
		case e.Expense != nil:
			items = append(items, historyItem{
				Kind:        "expense",
				Description: e.Expense.Description,
				PaidBy:      e.Expense.PaidBy,
				Amount:      e.Expense.Amount,
				CreatedAt:   e.CreatedAt,
			})
		case e.Settlement != nil:
			items = append(items, historyItem{
				Kind:      "settlement",
				From:      e.Settlement.From,
				To:        e.Settlement.To,
				Amount:    e.Settlement.Amount,
				CreatedAt: e.CreatedAt,
			})
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": items})
}

type createSettlementRequest struct {
	From   int64  `json:"from" validate:"required"`
	Amount string `json:"amount" validate:"required"`
}

// handleCreateSettlement records a repayment made to the caller. The
// recipient is always the authenticated user's Telegram account, so a
// member cannot forge settlements between two other people.
func (s *Server) handleCreateSettlement(w http.ResponseWriter, r *http.Request) {
	var req createSettlementRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	amount, err := money.ParsePositive(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}

	chatID := chatIDParam(r)
	claims := middleware.GetClaims(r.Context())
	settlement, err := s.ledgers.RecordSettlement(r.Context(), chatID, req.From, claims.TelegramUserID, amount)
	if err != nil {
		mapLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":         settlement.ID,
		"from":       settlement.From,
		"to":         settlement.To,
		"amount":     settlement.Amount,
		"created_at": settlement.CreatedAt,
	})
}

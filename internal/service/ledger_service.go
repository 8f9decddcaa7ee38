package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tallybot/tallybot/internal/ledger"
	"github.com/tallybot/tallybot/internal/models"
	"github.com/tallybot/tallybot/internal/money"
	"github.com/tallybot/tallybot/internal/storage"
)

var (
	settlementsRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tallybot_settlements_recorded_total",
		Help: "Settlements accepted and appended to a group ledger.",
	})
	settlementsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tallybot_settlements_rejected_total",
		Help: "Settlements rejected during validation.",
	})
)

// LedgerService exposes balance views and the settlement recorder over
// a group's stored ledger. All reads recompute from current state;
// nothing is cached.
type LedgerService struct {
	store storage.Store
	locks *groupLocks
}

// NewLedgerService creates a LedgerService with the given storage backend.
func NewLedgerService(store storage.Store) *LedgerService {
	return &LedgerService{store: store, locks: newGroupLocks()}
}

// Balances loads a group's ledger and folds it into net balances.
func (s *LedgerService) Balances(ctx context.Context, chatID int64) (ledger.Balances, error) {
	expenses, err := s.store.ListExpenses(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("loading expenses: %w", err)
	}
	settlements, err := s.store.ListSettlements(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("loading settlements: %w", err)
	}
	return ledger.ComputeBalances(expenses, settlements)
}

// Transfers returns the current suggested transfer list for a group.
func (s *LedgerService) Transfers(ctx context.Context, chatID int64) ([]ledger.Transfer, error) {
	balances, err := s.Balances(ctx, chatID)
	if err != nil {
		return nil, err
	}
	return ledger.MinimizeTransfers(balances), nil
}

// OwedTo returns the transfers currently directed at one creditor.
func (s *LedgerService) OwedTo(ctx context.Context, chatID, creditor int64) ([]ledger.Transfer, error) {
	balances, err := s.Balances(ctx, chatID)
	if err != nil {
		return nil, err
	}
	return ledger.OwedTo(balances, creditor), nil
}

// Outstanding returns how much of `from`'s debt is currently directed
// at `to` under the suggested transfer plan.
func (s *LedgerService) Outstanding(ctx context.Context, chatID, from, to int64) (money.Amount, error) {
	balances, err := s.Balances(ctx, chatID)
	if err != nil {
		return money.Zero(), err
	}
	return ledger.Outstanding(balances, from, to), nil
}

// RecordSettlement validates and appends a settlement reporting that
// `from` paid `to` the given amount.
//
// The outstanding maximum is recomputed from the ledger's current state
// under the group's lock, so two concurrent settlements cannot jointly
// overpay a debt.
func (s *LedgerService) RecordSettlement(ctx context.Context, chatID, from, to int64, amount money.Amount) (*models.Settlement, error) {
	if !amount.IsPositive() {
		settlementsRejected.Inc()
		return nil, fmt.Errorf("%w: amount %s must be positive", ledger.ErrInvalidSettlement, amount)
	}

	lock := s.locks.get(chatID)
	lock.Lock()
	defer lock.Unlock()

	balances, err := s.Balances(ctx, chatID)
	if err != nil {
		return nil, err
	}
	outstanding := ledger.Outstanding(balances, from, to)
	if !outstanding.IsPositive() {
		settlementsRejected.Inc()
		return nil, fmt.Errorf("%w: nothing outstanding from %d to %d", ledger.ErrInvalidSettlement, from, to)
	}
	if outstanding.LessThan(amount) {
		settlementsRejected.Inc()
		return nil, fmt.Errorf("%w: amount %s exceeds outstanding %s", ledger.ErrInvalidSettlement, amount, outstanding)
	}

	settlement := &models.Settlement{
		ChatID: chatID,
		From:   from,
		To:     to,
		Amount: amount,
	}
	if err := s.store.CreateSettlement(ctx, settlement); err != nil {
		return nil, fmt.Errorf("recording settlement: %w", err)
	}

	settlementsRecorded.Inc()
	slog.Info("Settlement recorded",
		"chat_id", chatID,
		"from", from,
		"to", to,
		"amount", amount.String(),
	)
	return settlement, nil
}

// HistoryEntry is one item of the merged expense/settlement timeline.
type HistoryEntry struct {
	Expense    *models.Expense
	Settlement *models.Settlement
	CreatedAt  int64
}

// History merges a group's expenses and settlements into one timeline,
// newest first, capped at limit entries (0 means no cap).
func (s *LedgerService) History(ctx context.Context, chatID int64, limit int) ([]HistoryEntry, error) {
	expenses, err := s.store.ListExpenses(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("loading expenses: %w", err)
	}
	settlements, err := s.store.ListSettlements(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("loading settlements: %w", err)
	}

	entries := make([]HistoryEntry, 0, len(expenses)+len(settlements))
	for i := range expenses {
		entries = append(entries, HistoryEntry{Expense: &expenses[i], CreatedAt: expenses[i].CreatedAt})
	}
	for i := range settlements {
		entries = append(entries, HistoryEntry{Settlement: &settlements[i], CreatedAt: settlements[i].CreatedAt})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt > entries[j].CreatedAt
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

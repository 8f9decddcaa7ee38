package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tallybot/tallybot/internal/ledger"
	"github.com/tallybot/tallybot/internal/models"
	"github.com/tallybot/tallybot/internal/money"
	"github.com/tallybot/tallybot/internal/storage"
)

var expensesRecorded = promauto.NewCounter(prometheus.CounterOpts{
	Name: "tallybot_expenses_recorded_total",
	Help: "Expenses recorded across all groups.",
})

// Free-tier limit errors. Surfaced to users as an upgrade prompt.
var (
	ErrMemberLimit  = errors.New("free group member limit reached")
	ErrExpenseLimit = errors.New("free group expense limit reached")
)

// Limits are the free-tier caps. Premium groups are uncapped.
type Limits struct {
	MaxMembersFree  int
	MaxExpensesFree int
}

// GroupService manages group tracking, the member roster and the
// expense list.
type GroupService struct {
	store  storage.Store
	limits Limits
}

// NewGroupService creates a GroupService with the given storage backend.
func NewGroupService(store storage.Store, limits Limits) *GroupService {
	return &GroupService{store: store, limits: limits}
}

// TrackGroup ensures a group exists and refreshes its title.
func (s *GroupService) TrackGroup(ctx context.Context, chatID int64, title string) error {
	return s.store.UpsertGroup(ctx, &models.Group{ChatID: chatID, Title: title})
}

// TrackMember records a member sighting, growing the roster as people
// talk, join or get added to expenses.
func (s *GroupService) TrackMember(ctx context.Context, chatID int64, member models.Member) error {
	if s.limits.MaxMembersFree > 0 {
		group, err := s.store.GetGroup(ctx, chatID)
		if err == nil && !group.Premium {
			members, err := s.store.ListMembers(ctx, chatID)
			if err != nil {
				return fmt.Errorf("loading members: %w", err)
			}
			known := false
			for _, m := range members {
				if m.UserID == member.UserID {
					known = true
					break
				}
			}
			if !known && len(members) >= s.limits.MaxMembersFree {
				return fmt.Errorf("%w: %d members", ErrMemberLimit, len(members))
			}
		}
	}
	return s.store.UpsertMember(ctx, chatID, member)
}

// UntrackMember drops a member who left the chat.
func (s *GroupService) UntrackMember(ctx context.Context, chatID, userID int64) error {
	return s.store.RemoveMember(ctx, chatID, userID)
}

// Members returns a group's roster.
func (s *GroupService) Members(ctx context.Context, chatID int64) ([]models.Member, error) {
	return s.store.ListMembers(ctx, chatID)
}

// IsMember reports whether a user is on a group's tracked roster.
func (s *GroupService) IsMember(ctx context.Context, chatID, userID int64) (bool, error) {
	members, err := s.store.ListMembers(ctx, chatID)
	if err != nil {
		return false, err
	}
	for _, m := range members {
		if m.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

// AddExpense validates and records a new shared expense.
func (s *GroupService) AddExpense(ctx context.Context, expense *models.Expense) error {
	if !expense.Amount.IsPositive() {
		return fmt.Errorf("%w: expense amount %s", money.ErrInvalidAmount, expense.Amount)
	}
	expense.Participants = models.NormalizeParticipants(expense.Participants)
	if len(expense.Participants) == 0 {
		return ledger.ErrEmptyParticipants
	}

	if s.limits.MaxExpensesFree > 0 {
		group, err := s.store.GetGroup(ctx, expense.ChatID)
		if err == nil && !group.Premium {
			existing, err := s.store.ListExpenses(ctx, expense.ChatID)
			if err != nil {
				return fmt.Errorf("loading expenses: %w", err)
			}
			if len(existing) >= s.limits.MaxExpensesFree {
				return fmt.Errorf("%w: %d expenses", ErrExpenseLimit, len(existing))
			}
		}
	}

	if err := s.store.CreateExpense(ctx, expense); err != nil {
		return fmt.Errorf("recording expense: %w", err)
	}

	expensesRecorded.Inc()
	slog.Info("Expense recorded",
		"chat_id", expense.ChatID,
		"amount", expense.Amount.String(),
		"paid_by", expense.PaidBy,
		"participants", len(expense.Participants),
	)
	return nil
}

// UpdateExpenseAmount changes one expense's amount.
func (s *GroupService) UpdateExpenseAmount(ctx context.Context, chatID int64, expenseID string, amount money.Amount) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: expense amount %s", money.ErrInvalidAmount, amount)
	}
	expense, err := s.findExpense(ctx, chatID, expenseID)
	if err != nil {
		return err
	}
	expense.Amount = amount
	return s.store.UpdateExpense(ctx, expense)
}

// UpdateExpenseDescription changes one expense's description.
func (s *GroupService) UpdateExpenseDescription(ctx context.Context, chatID int64, expenseID, description string) error {
	expense, err := s.findExpense(ctx, chatID, expenseID)
	if err != nil {
		return err
	}
	expense.Description = description
	return s.store.UpdateExpense(ctx, expense)
}

// DeleteExpense removes one expense from a group's ledger.
func (s *GroupService) DeleteExpense(ctx context.Context, chatID int64, expenseID string) error {
	return s.store.DeleteExpense(ctx, chatID, expenseID)
}

// ExpensesPaidBy lists the expenses one member fronted, for the edit flow.
func (s *GroupService) ExpensesPaidBy(ctx context.Context, chatID, userID int64) ([]models.Expense, error) {
	expenses, err := s.store.ListExpenses(ctx, chatID)
	if err != nil {
		return nil, err
	}
	var mine []models.Expense
	for _, e := range expenses {
		if e.PaidBy == userID {
			mine = append(mine, e)
		}
	}
	return mine, nil
}

// ClearExpenses wipes a group's expense list after user confirmation.
func (s *GroupService) ClearExpenses(ctx context.Context, chatID int64) error {
	if err := s.store.ClearExpenses(ctx, chatID); err != nil {
		return err
	}
	slog.Info("Expenses cleared", "chat_id", chatID)
	return nil
}

func (s *GroupService) findExpense(ctx context.Context, chatID int64, expenseID string) (*models.Expense, error) {
	expenses, err := s.store.ListExpenses(ctx, chatID)
	if err != nil {
		return nil, err
	}
	for i := range expenses {
		if expenses[i].ID == expenseID {
			return &expenses[i], nil
		}
	}
	return nil, fmt.Errorf("expense not found: %s", expenseID)
}

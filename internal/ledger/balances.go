// Package ledger computes net balances and settlement suggestions from
// a group's expense and settlement history.
package ledger

import (
	"fmt"
	"sort"

	"github.com/tallybot/tallybot/internal/models"
	"github.com/tallybot/tallybot/internal/money"
)

// Balances maps a member's Telegram user id to their signed net balance.
// Positive means the member is owed money, negative means they owe.
// Members whose activity nets to exactly zero are omitted.
type Balances map[int64]money.Amount

// ComputeBalances folds a group's full expense and settlement history
// into one net balance per member.
//
// For each expense the payer is credited the full amount and every
// participant is debited their even share; a payer who is also a
// participant gets both effects and nets to owing the other shares.
// Each settlement credits the debtor who paid and debits the creditor
// who received. The resulting values always sum to exactly zero.
func ComputeBalances(expenses []models.Expense, settlements []models.Settlement) (Balances, error) {
	balances := make(Balances)

	for _, e := range expenses {
		if !e.Amount.IsPositive() {
			return nil, fmt.Errorf("%w: expense %q has amount %s", money.ErrInvalidAmount, e.ID, e.Amount)
		}
		participants := models.NormalizeParticipants(e.Participants)
		if len(participants) == 0 {
			return nil, fmt.Errorf("%w: expense %q", ErrEmptyParticipants, e.ID)
		}

		shares, err := e.Amount.SplitEven(len(participants))
		if err != nil {
			return nil, fmt.Errorf("splitting expense %q: %w", e.ID, err)
		}

		balances[e.PaidBy] = balances[e.PaidBy].Add(e.Amount)
		for i, p := range participants {
			balances[p] = balances[p].Sub(shares[i])
		}
	}

	// Applied in timestamp order to mirror the recorded history; the
	// final sums do not depend on it.
	ordered := make([]models.Settlement, len(settlements))
	copy(ordered, settlements)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt < ordered[j].CreatedAt
	})
	for _, s := range ordered {
		if !s.Amount.IsPositive() {
			return nil, fmt.Errorf("%w: settlement %q has amount %s", money.ErrInvalidAmount, s.ID, s.Amount)
		}
		balances[s.From] = balances[s.From].Add(s.Amount)
		balances[s.To] = balances[s.To].Sub(s.Amount)
	}

	for id, b := range balances {
		if b.IsZero() {
			delete(balances, id)
		}
	}
	return balances, nil
}

package ledger

import (
	"sort"

	"github.com/tallybot/tallybot/internal/money"
)

// Transfer is one suggested pairwise payment: From pays To the Amount.
type Transfer struct {
	From   int64
	To     int64
	Amount money.Amount
}

type party struct {
	id        int64
	remaining money.Amount // positive for both debtors and creditors
}

// MinimizeTransfers converts net balances into a list of pairwise
// transfers that, if all executed, zero every balance.
//
// Greedy largest-first matching: the biggest debtor repeatedly pays the
// biggest remaining creditor until both sides are exhausted. Ties are
// broken by ascending member id so the output is stable across runs.
// Emits at most debtors+creditors-1 transfers; this is a heuristic, not
// a provably minimal transfer count.
func MinimizeTransfers(balances Balances) []Transfer {
	var debtors, creditors []party
	for id, b := range balances {
		switch {
		case b.IsNegative():
			debtors = append(debtors, party{id: id, remaining: b.Neg()})
		case b.IsPositive():
			creditors = append(creditors, party{id: id, remaining: b})
		}
	}
	sortByRemaining(debtors)
	sortByRemaining(creditors)

	var transfers []Transfer
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := money.Min(debtors[i].remaining, creditors[j].remaining)
		if amount.IsPositive() {
			transfers = append(transfers, Transfer{
				From:   debtors[i].id,
				To:     creditors[j].id,
				Amount: amount,
			})
		}
		debtors[i].remaining = debtors[i].remaining.Sub(amount)
		creditors[j].remaining = creditors[j].remaining.Sub(amount)
		if debtors[i].remaining.IsZero() {
			i++
		}
		if creditors[j].remaining.IsZero() {
			j++
		}
	}
	return transfers
}

func sortByRemaining(parties []party) {
	sort.Slice(parties, func(i, j int) bool {
		if c := parties[i].remaining.Cmp(parties[j].remaining); c != 0 {
			return c > 0
		}
		return parties[i].id < parties[j].id
	})
}

// Outstanding reports how much the current transfer list routes from
// one member to another. Zero when the pair has nothing to settle.
func Outstanding(balances Balances, from, to int64) money.Amount {
	total := money.Zero()
	for _, t := range MinimizeTransfers(balances) {
		if t.From == from && t.To == to {
			total = total.Add(t.Amount)
		}
	}
	return total
}

// OwedTo lists the transfers directed at one creditor, preserving the
// minimizer's order. Used by the settle flow to show who can pay back.
func OwedTo(balances Balances, creditor int64) []Transfer {
	var owed []Transfer
	for _, t := range MinimizeTransfers(balances) {
		if t.To == creditor {
			owed = append(owed, t)
		}
	}
	return owed
}

package models

import (
	"slices"
	"strconv"

	"github.com/tallybot/tallybot/internal/money"
)

// Expense represents a shared cost fronted by one member.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// ChatID is the group this expense belongs to.
	ChatID int64

	// Amount is the total cost. Always positive.
	Amount money.Amount

	// Description is a free-form label ("pizza", "taxi").
	Description string

	// PaidBy is the Telegram user id of the member who fronted the money.
	PaidBy int64

	// Participants are the members sharing the cost, deduplicated and
	// sorted ascending. The per-head share is Amount split evenly over
	// this slice. The payer may or may not be among them.
	Participants []int64

	// CreatedAt is the Unix timestamp when the expense was recorded.
	CreatedAt int64
}

// NormalizeParticipants deduplicates and sorts a participant list.
// The even-split remainder cents land on the first participants, so a
// stable order here keeps share assignment deterministic.
func NormalizeParticipants(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

func formatUserID(id int64) string {
	return strconv.FormatInt(id, 10)
}

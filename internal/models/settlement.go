package models

import "github.com/tallybot/tallybot/internal/money"

// Settlement represents a recorded real-world repayment between two
// group members. Settlements are append-only: they are never edited or
// deleted once recorded.
type Settlement struct {
	// ID is the unique identifier for the settlement (UUID format).
	ID string

	// ChatID is the group this settlement belongs to.
	ChatID int64

	// From is the Telegram user id of the debtor who paid back.
	From int64

	// To is the Telegram user id of the creditor who received payment.
	To int64

	// Amount is the repaid amount. Always positive and never more than
	// the outstanding amount between the pair at recording time.
	Amount money.Amount

	// CreatedAt is the Unix timestamp when the settlement was recorded.
	CreatedAt int64
}

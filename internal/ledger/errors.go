package ledger

import "errors"

var (
	// ErrEmptyParticipants indicates an expense with nobody to share it.
	// Entry flows reject this upstream; the aggregator also refuses it
	// instead of dividing by zero.
	ErrEmptyParticipants = errors.New("expense has no participants")

	// ErrInvalidSettlement indicates a settlement amount exceeding the
	// outstanding debt between the two parties, or a settlement between
	// parties with no outstanding debt.
	ErrInvalidSettlement = errors.New("invalid settlement")
)

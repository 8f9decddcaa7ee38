package bot

import (
	"sync"

	"github.com/tallybot/tallybot/internal/money"
)

// flowState identifies the step a multi-step flow is waiting on.
type flowState int

const (
	// add-expense flow
	stateExpenseAmount flowState = iota
	stateExpenseDescription
	stateExpenseParticipants

	// settle flow
	stateSettleAmount

	// edit flow
	stateEditChoose
	stateEditAmount
	stateEditDescription
)

// flow is the in-progress state of one user's multi-step interaction.
type flow struct {
	state flowState

	// add-expense flow data
	amount       money.Amount
	description  string
	participants []int64

	// settle flow data
	debtorID int64
	maxOwed  money.Amount

	// edit flow data
	expenseID string
}

type flowKey struct {
	chatID int64
	userID int64
}

// FlowManager tracks in-progress multi-step flows keyed by chat and
// user. It is an explicit object injected into the bot rather than
// package-level state so tests can run isolated instances.
type FlowManager struct {
	mu    sync.Mutex
	flows map[flowKey]*flow
}

// NewFlowManager creates an empty flow manager.
func NewFlowManager() *FlowManager {
	return &FlowManager{flows: make(map[flowKey]*flow)}
}

func (m *FlowManager) get(chatID, userID int64) (*flow, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.flows[flowKey{chatID, userID}]
	return f, ok
}

func (m *FlowManager) set(chatID, userID int64, f *flow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flows[flowKey{chatID, userID}] = f
}

func (m *FlowManager) clear(chatID, userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.flows, flowKey{chatID, userID})
}

// toggleParticipant adds or removes a participant from an in-progress
// expense and reports whether they ended up selected.
func (f *flow) toggleParticipant(userID int64) bool {
	for i, id := range f.participants {
		if id == userID {
			f.participants = append(f.participants[:i], f.participants[i+1:]...)
			return false
		}
	}
	f.participants = append(f.participants, userID)
	return true
}

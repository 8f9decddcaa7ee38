// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"

	"github.com/tallybot/tallybot/internal/models"
)

// Store defines the interface for group-ledger storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL,
// etc.) without changing the service layer.
type Store interface {
	// UpsertGroup creates a group on first sight or refreshes its title.
	UpsertGroup(ctx context.Context, group *models.Group) error

	// GetGroup retrieves a group by chat id.
	GetGroup(ctx context.Context, chatID int64) (*models.Group, error)

	// ListGroups returns every tracked group. Used by the reminder job.
	ListGroups(ctx context.Context) ([]*models.Group, error)

	// UpsertMember adds a member to a group's roster or refreshes their
	// display fields.
	UpsertMember(ctx context.Context, chatID int64, member models.Member) error

	// RemoveMember drops a member from the roster. Their past expenses
	// and settlements are untouched.
	RemoveMember(ctx context.Context, chatID, userID int64) error

	// ListMembers returns a group's roster ordered by user id.
	ListMembers(ctx context.Context, chatID int64) ([]models.Member, error)

	// CreateExpense persists a new expense. ID and CreatedAt are
	// populated by the store when unset.
	CreateExpense(ctx context.Context, expense *models.Expense) error

	// UpdateExpense rewrites an existing expense's amount, description
	// and participants.
	UpdateExpense(ctx context.Context, expense *models.Expense) error

	// DeleteExpense removes one expense from a group's ledger.
	DeleteExpense(ctx context.Context, chatID int64, expenseID string) error

	// ListExpenses returns a group's expenses ordered by creation time.
	ListExpenses(ctx context.Context, chatID int64) ([]models.Expense, error)

	// ClearExpenses wipes a group's expense list. Settlements remain.
	ClearExpenses(ctx context.Context, chatID int64) error

	// CreateSettlement appends a settlement. Settlements are append-only;
	// there is no update or delete.
	CreateSettlement(ctx context.Context, settlement *models.Settlement) error

	// ListSettlements returns a group's settlements ordered by creation time.
	ListSettlements(ctx context.Context, chatID int64) ([]models.Settlement, error)

	// CreateUser persists a new API user account.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail retrieves an API user by login email.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID retrieves an API user by id.
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// Close releases any resources held by the store.
	Close() error
}

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tallybot/tallybot/internal/models"
	"github.com/tallybot/tallybot/internal/money"
)

// CreateExpense persists a new expense and its participant list.
func (s *SQLiteStore) CreateExpense(ctx context.Context, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.CreatedAt == 0 {
		expense.CreatedAt = time.Now().Unix()
	}
	expense.Participants = models.NormalizeParticipants(expense.Participants)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO expenses (id, chat_id, amount, description, paid_by, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		expense.ID, expense.ChatID, expense.Amount.String(), expense.Description, expense.PaidBy, expense.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	if err := insertParticipants(ctx, tx, expense.ID, expense.Participants); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// UpdateExpense rewrites an expense's amount, description and participants.
func (s *SQLiteStore) UpdateExpense(ctx context.Context, expense *models.Expense) error {
	expense.Participants = models.NormalizeParticipants(expense.Participants)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"UPDATE expenses SET amount = ?, description = ?, paid_by = ? WHERE id = ? AND chat_id = ?",
		expense.Amount.String(), expense.Description, expense.PaidBy, expense.ID, expense.ChatID,
	)
	if err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("expense not found: %s", expense.ID)
	}

	_, err = tx.ExecContext(ctx, "DELETE FROM expense_participants WHERE expense_id = ?", expense.ID)
	if err != nil {
		return fmt.Errorf("failed to clear expense participants: %w", err)
	}
	if err := insertParticipants(ctx, tx, expense.ID, expense.Participants); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DeleteExpense removes one expense and its participant rows.
func (s *SQLiteStore) DeleteExpense(ctx context.Context, chatID int64, expenseID string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM expenses WHERE id = ? AND chat_id = ?",
		expenseID, chatID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("expense not found: %s", expenseID)
	}
	return nil
}

// ListExpenses returns a group's expenses ordered by creation time.
func (s *SQLiteStore) ListExpenses(ctx context.Context, chatID int64) ([]models.Expense, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, chat_id, amount, description, paid_by, created_at FROM expenses WHERE chat_id = ? ORDER BY created_at, id",
		chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []models.Expense
	for rows.Next() {
		var e models.Expense
		var amountStr string
		if err := rows.Scan(&e.ID, &e.ChatID, &amountStr, &e.Description, &e.PaidBy, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		e.Amount, err = money.Parse(amountStr)
		if err != nil {
			return nil, fmt.Errorf("corrupt amount on expense %s: %w", e.ID, err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}

	for i := range expenses {
		participants, err := s.listParticipants(ctx, expenses[i].ID)
		if err != nil {
			return nil, err
		}
		expenses[i].Participants = participants
	}
	return expenses, nil
}

// ClearExpenses wipes a group's expense list.
func (s *SQLiteStore) ClearExpenses(ctx context.Context, chatID int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM expenses WHERE chat_id = ?", chatID)
	if err != nil {
		return fmt.Errorf("failed to clear expenses: %w", err)
	}
	return nil
}

func insertParticipants(ctx context.Context, tx *sql.Tx, expenseID string, participants []int64) error {
	for _, userID := range participants {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO expense_participants (expense_id, user_id) VALUES (?, ?)",
			expenseID, userID,
		)
		if err != nil {
			return fmt.Errorf("failed to insert expense participant: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) listParticipants(ctx context.Context, expenseID string) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT user_id FROM expense_participants WHERE expense_id = ? ORDER BY user_id",
		expenseID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get expense participants: %w", err)
	}
	defer rows.Close()

	var participants []int64
	for rows.Next() {
		var userID int64
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("failed to scan expense participant: %w", err)
		}
		participants = append(participants, userID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expense participants: %w", err)
	}
	return participants, nil
}

package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tallybot/tallybot/internal/models"
	"github.com/tallybot/tallybot/internal/money"
)

// CreateSettlement appends a settlement to a group's ledger.
func (s *SQLiteStore) CreateSettlement(ctx context.Context, settlement *models.Settlement) error {
	if settlement.ID == "" {
		settlement.ID = uuid.New().String()
	}
	if settlement.CreatedAt == 0 {
		settlement.CreatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settlements (id, chat_id, from_user, to_user, amount, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		settlement.ID, settlement.ChatID, settlement.From, settlement.To,
		settlement.Amount.String(), settlement.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert settlement: %w", err)
	}
	return nil
}

// ListSettlements returns a group's settlements ordered by creation time.
func (s *SQLiteStore) ListSettlements(ctx context.Context, chatID int64) ([]models.Settlement, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, chat_id, from_user, to_user, amount, created_at
		 FROM settlements WHERE chat_id = ? ORDER BY created_at, id`,
		chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlements: %w", err)
	}
	defer rows.Close()

	var settlements []models.Settlement
	for rows.Next() {
		var st models.Settlement
		var amountStr string
		if err := rows.Scan(&st.ID, &st.ChatID, &st.From, &st.To, &amountStr, &st.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan settlement: %w", err)
		}
		st.Amount, err = money.Parse(amountStr)
		if err != nil {
			return nil, fmt.Errorf("corrupt amount on settlement %s: %w", st.ID, err)
		}
		settlements = append(settlements, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settlements: %w", err)
	}
	return settlements, nil
}

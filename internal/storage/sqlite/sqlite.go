// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/tallybot/tallybot/internal/models"
	"github.com/tallybot/tallybot/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// UpsertGroup creates a group on first sight or refreshes its title.
// Currency and premium are set on insert only: group tracking fires on
// every message with a zero-value group, and must never demote a
// premium group or reset its currency.
func (s *SQLiteStore) UpsertGroup(ctx context.Context, group *models.Group) error {
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().Unix()
	}
	if group.Currency == "" {
		group.Currency = "usd"
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO groups (chat_id, title, currency, premium, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(chat_id) DO UPDATE SET
		   title = excluded.title`,
		group.ChatID, group.Title, group.Currency, boolToInt(group.Premium), group.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert group: %w", err)
	}
	return nil
}

// GetGroup retrieves a group by chat id.
func (s *SQLiteStore) GetGroup(ctx context.Context, chatID int64) (*models.Group, error) {
	group := &models.Group{}
	var premium int
	err := s.db.QueryRowContext(ctx,
		"SELECT chat_id, title, currency, premium, created_at FROM groups WHERE chat_id = ?",
		chatID,
	).Scan(&group.ChatID, &group.Title, &group.Currency, &premium, &group.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("group not found: %d", chatID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	group.Premium = premium != 0
	return group, nil
}

// ListGroups returns every tracked group.
func (s *SQLiteStore) ListGroups(ctx context.Context) ([]*models.Group, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT chat_id, title, currency, premium, created_at FROM groups ORDER BY chat_id",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var groups []*models.Group
	for rows.Next() {
		group := &models.Group{}
		var premium int
		if err := rows.Scan(&group.ChatID, &group.Title, &group.Currency, &premium, &group.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		group.Premium = premium != 0
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}
	return groups, nil
}

// UpsertMember adds a member to the roster or refreshes their names.
func (s *SQLiteStore) UpsertMember(ctx context.Context, chatID int64, member models.Member) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO members (chat_id, user_id, username, first_name)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(chat_id, user_id) DO UPDATE SET
		   username = excluded.username,
		   first_name = excluded.first_name`,
		chatID, member.UserID, member.Username, member.FirstName,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert member: %w", err)
	}
	return nil
}

// RemoveMember drops a member from the roster.
func (s *SQLiteStore) RemoveMember(ctx context.Context, chatID, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM members WHERE chat_id = ? AND user_id = ?",
		chatID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	return nil
}

// ListMembers returns a group's roster ordered by user id.
func (s *SQLiteStore) ListMembers(ctx context.Context, chatID int64) ([]models.Member, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT user_id, username, first_name FROM members WHERE chat_id = ? ORDER BY user_id",
		chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []models.Member
	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.UserID, &m.Username, &m.FirstName); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}
	return members, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

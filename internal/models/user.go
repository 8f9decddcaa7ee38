package models

// User represents a registered account for the companion REST API.
// API users link to a Telegram user id so that group endpoints can
// check membership against the tracked roster.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string

	// Email is the login identifier (unique).
	Email string

	// DisplayName is the name shown in the web client.
	DisplayName string

	// PasswordHash is the bcrypt hash of the login password.
	PasswordHash string

	// TelegramUserID links the account to a Telegram identity.
	TelegramUserID int64

	// CreatedAt is the Unix timestamp when the account was created.
	CreatedAt int64
}

// NewUser builds an unsaved user. The store assigns ID and CreatedAt.
func NewUser(email, displayName, passwordHash string, telegramUserID int64) *User {
	return &User{
		Email:          email,
		DisplayName:    displayName,
		PasswordHash:   passwordHash,
		TelegramUserID: telegramUserID,
	}
}

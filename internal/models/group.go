package models

// Group represents one Telegram chat tracked by the bot.
type Group struct {
	// ChatID is the Telegram chat id. It is the group's primary key.
	ChatID int64

	// Title is the chat title as last seen in an update.
	Title string

	// Currency is the ISO code used when rendering amounts.
	Currency string

	// Premium marks groups without the free-tier member/expense caps.
	Premium bool

	// CreatedAt is the Unix timestamp when the group was first seen.
	CreatedAt int64
}

// Member is one tracked participant of a group.
type Member struct {
	// UserID is the Telegram user id.
	UserID int64

	// Username is the Telegram handle, without the leading @. May be empty.
	Username string

	// FirstName is the display name fallback when Username is empty.
	FirstName string
}

// DisplayName returns "@username" when a handle is known, otherwise the
// first name, otherwise the raw user id.
func (m Member) DisplayName() string {
	if m.Username != "" {
		return "@" + m.Username
	}
	if m.FirstName != "" {
		return m.FirstName
	}
	return formatUserID(m.UserID)
}

package auth

import (
	"context"

	"github.com/tallybot/tallybot/internal/models"
)

// Authenticator defines the interface for authentication implementations.
// This abstraction keeps the API layer independent of the concrete auth
// method (password today, OAuth or passkeys later).
type Authenticator interface {
	// Register creates a new account with the given email and credential,
	// linked to a Telegram user id for group membership checks.
	Register(ctx context.Context, email, displayName, credential string, telegramUserID int64) (*models.User, error)

	// Authenticate verifies the credentials and returns the user if valid.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	// ValidateCredential checks if the credential meets the
	// implementation's requirements before it is accepted.
	ValidateCredential(credential string) error
}

package auth

import (
	"context"

	"github.com/mmynk/rehabplan/internal/models"
)

// Authenticator defines the interface for authentication implementations.
// This abstraction allows swapping between different auth methods (password, passkeys, OAuth, etc.)
// without changing the service layer code.
type Authenticator interface {
	// Register creates a new active account with the USER role.
	Register(ctx context.Context, username, name, credential string) (*models.User, error)

	// Authenticate verifies the user's credentials and returns the user if successful.
	// Deactivated accounts fail with ErrInactiveAccount even when the credential matches.
	Authenticate(ctx context.Context, username, credential string) (*models.User, error)

	// ChangePassword replaces the credential of userID once current is
	// verified. A wrong current credential fails with ErrWrongPassword.
	ChangePassword(ctx context.Context, userID, current, next string) error

	// ValidateCredential checks if the credential meets the implementation's requirements.
	ValidateCredential(credential string) error
}

package usecase

import (
	"context"

	"subskit/domain/entity"
)

// UserUsecase defines the interface for account registration and lifecycle.
type UserUsecase interface {
	// Refresh re-registers the stored account, if one exists.
	Refresh(ctx context.Context) error

	// Register signs the account in with the server and stores the
	// server-confirmed verification state.
	Register(ctx context.Context, account entity.UserAccount, sendConfirmation bool) error

	// Logout detaches the account from the device on the server.
	Logout(ctx context.Context) error

	// DeleteUser removes the server-side user record.
	DeleteUser(ctx context.Context) error

	// CheckCredential asks the credential provider whether the stored
	// credential is still valid; a revoked credential deletes the local
	// account and fails with KindCredentialExpired.
	CheckCredential(ctx context.Context, userID string) error
}

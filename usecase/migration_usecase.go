package usecase

import "context"

// MigrationUsecase defines the interface for the one-shot account-linking
// migration.
type MigrationUsecase interface {
	// MigrateUser links a legacy account identified by email to this
	// install. Once the persisted migrated flag is set the call
	// short-circuits to success without touching the network.
	MigrateUser(ctx context.Context, email, name string) error
}

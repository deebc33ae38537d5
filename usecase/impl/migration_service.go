package impl

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"subskit/config"
	"subskit/domain/apierror"
	"subskit/domain/repository"
	"subskit/transport"
	"subskit/usecase"
)

type migrationService struct {
	api    transport.API
	repo   repository.StateRepository
	config *config.Config
	logger *slog.Logger
}

// MigrationServiceParams holds dependencies for MigrationService, injected by Fx.
type MigrationServiceParams struct {
	fx.In

	API    transport.API
	Repo   repository.StateRepository
	Config *config.Config
	Logger *slog.Logger
}

// NewMigrationService creates the one-shot account-linking service.
func NewMigrationService(params MigrationServiceParams) usecase.MigrationUsecase {
	return &migrationService{
		api:    params.API,
		repo:   params.Repo,
		config: params.Config,
		logger: params.Logger,
	}
}

// MigrateUser links the legacy account once. The persisted flag makes every
// later call a local no-op success; the flag is never cleared here — only an
// explicit logout or reinstall path owned by the shell may reset it.
func (s *migrationService) MigrateUser(ctx context.Context, email, name string) error {
	migrated, err := s.repo.IsUserMigrated()
	if err == nil && migrated {
		s.logger.Debug("migration already completed")

		return nil
	}

	identity, err := s.repo.DeviceIdentity()
	if err != nil || identity == nil || identity.Key == "" {
		return apierror.New(apierror.KindBadParameters)
	}

	params := map[string]any{
		"device_id": identity.Key,
		"bundle_id": s.config.App.BundleID,
		"email":     email,
	}
	if name != "" {
		params["name"] = name
	}

	if _, err := s.api.SendSigned(ctx, transport.EndpointMigrate, params); err != nil {
		s.logger.Error("migration failed", slog.Any("error", err))

		return err
	}

	if err := s.repo.SetUserMigrated(true); err != nil {
		s.logger.Error("persisting migration flag failed", slog.Any("error", err))
	}

	return nil
}

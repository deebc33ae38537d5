package impl

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subskit/domain/apierror"
	"subskit/domain/repository"
	"subskit/transport"
	"subskit/usecase"
)

func newMigrationService(repo repository.StateRepository, api *fakeAPI) usecase.MigrationUsecase {
	return NewMigrationService(MigrationServiceParams{
		API:    api,
		Repo:   repo,
		Config: testConfig(),
		Logger: testLogger(),
	})
}

func TestMigrateUser(t *testing.T) {
	t.Parallel()

	t.Run("first run posts and sets the flag", func(t *testing.T) {
		t.Parallel()

		repo := registeredRepo(t)
		api := newFakeAPI()
		svc := newMigrationService(repo, api)

		require.NoError(t, svc.MigrateUser(context.Background(), "legacy@example.com", "Legacy User"))

		calls := api.callsTo(transport.EndpointMigrate)
		require.Len(t, calls, 1)
		assert.Equal(t, "legacy@example.com", calls[0].params["email"])
		assert.Equal(t, "Legacy User", calls[0].params["name"])
		assert.Equal(t, "device-1", calls[0].params["device_id"])

		migrated, err := repo.IsUserMigrated()
		require.NoError(t, err)
		assert.True(t, migrated)
	})

	t.Run("an empty name is omitted", func(t *testing.T) {
		t.Parallel()

		api := newFakeAPI()
		svc := newMigrationService(registeredRepo(t), api)

		require.NoError(t, svc.MigrateUser(context.Background(), "legacy@example.com", ""))
		calls := api.callsTo(transport.EndpointMigrate)
		require.Len(t, calls, 1)
		assert.NotContains(t, calls[0].params, "name")
	})

	t.Run("a second run never touches the network", func(t *testing.T) {
		t.Parallel()

		repo := registeredRepo(t)
		api := newFakeAPI()
		svc := newMigrationService(repo, api)

		require.NoError(t, svc.MigrateUser(context.Background(), "legacy@example.com", ""))
		require.NoError(t, svc.MigrateUser(context.Background(), "legacy@example.com", ""))
		assert.Len(t, api.callsTo(transport.EndpointMigrate), 1)
	})

	t.Run("a failed run leaves the flag unset for retry", func(t *testing.T) {
		t.Parallel()

		repo := registeredRepo(t)
		api := newFakeAPI()
		api.fail(transport.EndpointMigrate, apierror.New(apierror.KindServerError500))
		svc := newMigrationService(repo, api)

		err := svc.MigrateUser(context.Background(), "legacy@example.com", "")
		assert.ErrorIs(t, err, apierror.New(apierror.KindServerError500))

		migrated, err := repo.IsUserMigrated()
		require.NoError(t, err)
		assert.False(t, migrated)
	})

	t.Run("missing device identity fails without network", func(t *testing.T) {
		t.Parallel()

		api := newFakeAPI()
		svc := newMigrationService(testRepo(), api)

		err := svc.MigrateUser(context.Background(), "legacy@example.com", "")
		assert.ErrorIs(t, err, apierror.New(apierror.KindBadParameters))
		assert.Empty(t, api.callsTo(transport.EndpointMigrate))
	})
}

package impl

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subskit/domain/apierror"
	"subskit/domain/entity"
	"subskit/domain/repository"
	"subskit/transport"
)

func newDeviceService(repo repository.StateRepository, api *fakeAPI) *deviceService {
	return NewDeviceService(DeviceServiceParams{
		API:    api,
		Repo:   repo,
		Config: testConfig(),
		Logger: testLogger(),
	}).(*deviceService)
}

func TestDeviceRegister(t *testing.T) {
	t.Parallel()

	t.Run("fresh install generates, uniqueness-checks and signs in", func(t *testing.T) {
		t.Parallel()

		repo := testRepo()
		api := newFakeAPI()
		api.respond(transport.EndpointCheckDeviceID, map[string]any{"next_uniq": "server-id-1"})
		svc := newDeviceService(repo, api)

		require.NoError(t, svc.Register(context.Background()))

		checks := api.callsTo(transport.EndpointCheckDeviceID)
		require.Len(t, checks, 1)
		assert.NotEmpty(t, checks[0].params["id_to_check"], "candidate id is client-generated")

		signins := api.callsTo(transport.EndpointSignInDevice)
		require.Len(t, signins, 1)
		assert.Equal(t, "server-id-1", signins[0].params["device_id"], "the server's id wins")
		assert.Equal(t, "com.example.app", signins[0].params["bundle_id"])
		assert.Equal(t, "17.0", signins[0].params["ios_version"])

		identity, err := repo.DeviceIdentity()
		require.NoError(t, err)
		require.NotNil(t, identity)
		assert.Equal(t, "server-id-1", identity.Key)
		assert.True(t, identity.ServerSynced)
	})

	t.Run("synced identity skips the uniqueness check", func(t *testing.T) {
		t.Parallel()

		repo := testRepo()
		require.NoError(t, repo.SaveDeviceIdentity(entity.DeviceIdentity{Key: "known-id", ServerSynced: true}))
		api := newFakeAPI()
		svc := newDeviceService(repo, api)

		require.NoError(t, svc.Register(context.Background()))
		assert.Empty(t, api.callsTo(transport.EndpointCheckDeviceID))

		signins := api.callsTo(transport.EndpointSignInDevice)
		require.Len(t, signins, 1)
		assert.Equal(t, "known-id", signins[0].params["device_id"])
	})

	t.Run("sign-in failure leaves the identity unsynced", func(t *testing.T) {
		t.Parallel()

		repo := testRepo()
		api := newFakeAPI()
		api.respond(transport.EndpointCheckDeviceID, map[string]any{"next_uniq": "server-id-1"})
		api.fail(transport.EndpointSignInDevice, apierror.New(apierror.KindServerError500))
		svc := newDeviceService(repo, api)

		err := svc.Register(context.Background())
		assert.ErrorIs(t, err, apierror.New(apierror.KindServerError500))

		identity, err := repo.DeviceIdentity()
		require.NoError(t, err)
		assert.Nil(t, identity, "nothing is persisted until the server acknowledged the identity")
	})

	t.Run("missing next_uniq is badResult", func(t *testing.T) {
		t.Parallel()

		api := newFakeAPI()
		api.respond(transport.EndpointCheckDeviceID, map[string]any{})
		svc := newDeviceService(testRepo(), api)

		err := svc.Register(context.Background())
		assert.ErrorIs(t, err, apierror.New(apierror.KindBadResult))
	})

	t.Run("captures the first-registered time", func(t *testing.T) {
		t.Parallel()

		repo := testRepo()
		require.NoError(t, repo.SaveDeviceIdentity(entity.DeviceIdentity{Key: "known-id", ServerSynced: true}))
		api := newFakeAPI()
		api.respond(transport.EndpointSignInDevice, map[string]any{
			"data": map[string]any{"first_registered_ms": float64(1700000000000)},
		})
		svc := newDeviceService(repo, api)

		require.Nil(t, svc.FirstRegisteredTime())
		require.NoError(t, svc.Register(context.Background()))
		require.NotNil(t, svc.FirstRegisteredTime())
		assert.Equal(t, time.UnixMilli(1700000000000), *svc.FirstRegisteredTime())
	})

	t.Run("persists the first-registered time alongside the identity", func(t *testing.T) {
		t.Parallel()

		repo := testRepo()
		require.NoError(t, repo.SaveDeviceIdentity(entity.DeviceIdentity{Key: "known-id", ServerSynced: true}))
		api := newFakeAPI()
		api.respond(transport.EndpointSignInDevice, map[string]any{
			"data": map[string]any{"first_registered_ms": float64(1700000000000)},
		})
		svc := newDeviceService(repo, api)

		require.NoError(t, svc.Register(context.Background()))

		identity, err := repo.DeviceIdentity()
		require.NoError(t, err)
		require.NotNil(t, identity)
		assert.Equal(t, int64(1700000000000), identity.FirstRegisteredMs)
	})

	t.Run("first-registered time survives an offline relaunch", func(t *testing.T) {
		t.Parallel()

		repo := testRepo()
		require.NoError(t, repo.SaveDeviceIdentity(entity.DeviceIdentity{
			Key:               "known-id",
			ServerSynced:      true,
			FirstRegisteredMs: 1700000000000,
		}))
		api := newFakeAPI()
		api.fail(transport.EndpointSignInDevice, apierror.New(apierror.KindNoConnection))
		svc := newDeviceService(repo, api)

		err := svc.Register(context.Background())
		assert.ErrorIs(t, err, apierror.New(apierror.KindNoConnection))

		require.NotNil(t, svc.FirstRegisteredTime())
		assert.Equal(t, time.UnixMilli(1700000000000), *svc.FirstRegisteredTime())
	})
}

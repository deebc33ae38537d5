package impl

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.uber.org/fx"

	"subskit/config"
	"subskit/domain/apierror"
	"subskit/domain/entity"
	"subskit/domain/repository"
	"subskit/transport"
	"subskit/usecase"
)

type deviceService struct {
	api    transport.API
	repo   repository.StateRepository
	config *config.Config
	logger *slog.Logger

	firstRegistered *time.Time
}

// DeviceServiceParams holds dependencies for DeviceService, injected by Fx.
type DeviceServiceParams struct {
	fx.In

	API    transport.API
	Repo   repository.StateRepository
	Config *config.Config
	Logger *slog.Logger
}

// NewDeviceService creates the device registration service.
func NewDeviceService(params DeviceServiceParams) usecase.DeviceUsecase {
	return &deviceService{
		api:    params.API,
		repo:   params.Repo,
		config: params.Config,
		logger: params.Logger,
	}
}

// Register creates or refreshes the device identity. A synced identity is
// re-registered as-is; a fresh one goes through the uniqueness check and
// adopts the id the server hands back before signing in, so re-installs
// collapse onto one server-side device record.
func (s *deviceService) Register(ctx context.Context) error {
	identity, err := s.repo.DeviceIdentity()
	if err != nil {
		return apierror.Wrap(apierror.KindBadParameters, err)
	}

	if identity != nil && identity.FirstRegisteredMs > 0 {
		registered := time.UnixMilli(identity.FirstRegisteredMs)
		s.firstRegistered = &registered
	}

	if identity != nil && identity.ServerSynced {
		if err := s.signIn(ctx, identity.Key); err != nil {
			return err
		}
		s.persistFirstRegistered(*identity)

		return nil
	}

	if identity == nil {
		identity = &entity.DeviceIdentity{Key: uuid.NewString()}
	}

	nextKey, err := s.checkUniqueness(ctx, identity.Key)
	if err != nil {
		return err
	}
	if nextKey != "" {
		identity.Key = nextKey
	}

	if err := s.signIn(ctx, identity.Key); err != nil {
		s.logger.Error("device registration failed", slog.Any("error", err))

		return err
	}

	identity.ServerSynced = true
	if s.firstRegistered != nil {
		identity.FirstRegisteredMs = s.firstRegistered.UnixMilli()
	}
	if err := s.repo.SaveDeviceIdentity(*identity); err != nil {
		return apierror.Wrap(apierror.KindOther, err)
	}
	s.logger.Info("device registered", slog.String("device_id", identity.Key))

	return nil
}

func (s *deviceService) FirstRegisteredTime() *time.Time {
	return s.firstRegistered
}

// persistFirstRegistered writes the server-reported registration time next
// to the identity so it survives launches that cannot reach the server.
func (s *deviceService) persistFirstRegistered(identity entity.DeviceIdentity) {
	if s.firstRegistered == nil {
		return
	}
	ms := s.firstRegistered.UnixMilli()
	if identity.FirstRegisteredMs == ms {
		return
	}

	identity.FirstRegisteredMs = ms
	if err := s.repo.SaveDeviceIdentity(identity); err != nil {
		s.logger.Warn("first registration time not persisted", slog.Any("error", err))
	}
}

// checkUniqueness asks the server whether the candidate id is unique. The
// server answers with the id the client must use, which may differ from the
// candidate.
func (s *deviceService) checkUniqueness(ctx context.Context, candidate string) (string, error) {
	envelope, err := s.api.SendSigned(ctx, transport.EndpointCheckDeviceID, map[string]any{
		"id_to_check": candidate,
	})
	if err != nil {
		return "", err
	}

	next, ok := envelope["next_uniq"].(string)
	if !ok {
		return "", apierror.New(apierror.KindBadResult)
	}

	return next, nil
}

func (s *deviceService) signIn(ctx context.Context, deviceKey string) error {
	params := map[string]any{
		"device_id":   deviceKey,
		"bundle_id":   s.config.App.BundleID,
		"ios_version": s.config.App.OSVersion,
	}
	if s.config.App.Locale != "" {
		params["locale"] = s.config.App.Locale
	}
	if s.config.App.DeviceModel != "" {
		params["device_model"] = s.config.App.DeviceModel
	}

	envelope, err := s.api.SendSigned(ctx, transport.EndpointSignInDevice, params)
	if err != nil {
		return err
	}

	if data, ok := envelope["data"].(map[string]any); ok {
		if registeredMs, ok := data["first_registered_ms"].(float64); ok {
			registered := time.UnixMilli(int64(registeredMs))
			s.firstRegistered = &registered
		}
	}

	return nil
}

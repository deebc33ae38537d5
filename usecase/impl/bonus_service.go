package impl

import (
	"context"
	"log/slog"
	"time"

	"go.uber.org/fx"

	"subskit/config"
	"subskit/domain/apierror"
	"subskit/domain/entity"
	"subskit/domain/repository"
	"subskit/transport"
	"subskit/usecase"
)

type bonusService struct {
	api    transport.API
	repo   repository.StateRepository
	cache  *entitlementStore
	config *config.Config
	logger *slog.Logger
	now    func() time.Time
}

// BonusServiceParams holds dependencies for BonusService, injected by Fx.
type BonusServiceParams struct {
	fx.In

	API    transport.API
	Repo   repository.StateRepository
	Config *config.Config
	Logger *slog.Logger
}

// NewBonusService creates the free-attempt and bonus-cycle service.
func NewBonusService(params BonusServiceParams) usecase.BonusUsecase {
	return &bonusService{
		api:    params.API,
		repo:   params.Repo,
		cache:  newEntitlementStore(),
		config: params.Config,
		logger: params.Logger,
		now:    time.Now,
	}
}

func (s *bonusService) RequestAttempts(ctx context.Context) error {
	return s.call(ctx, transport.EndpointRequestAttempts, true)
}

func (s *bonusService) ConsumeAttempts(ctx context.Context) error {
	return s.call(ctx, transport.EndpointConsumeAttempts, false)
}

func (s *bonusService) RequestBonus(ctx context.Context) error {
	return s.call(ctx, transport.EndpointRequestBonus, true)
}

func (s *bonusService) ConsumeBonus(ctx context.Context) error {
	return s.call(ctx, transport.EndpointConsumeBonus, false)
}

func (s *bonusService) State() entity.AttemptState {
	return s.cache.Attempts()
}

// call runs one counter endpoint and folds the returned counters into the
// cache. Renewal times only arrive on the request variants.
func (s *bonusService) call(ctx context.Context, endpoint transport.Endpoint, includeRenewal bool) error {
	params, err := s.baseParams()
	if err != nil {
		return err
	}

	envelope, err := s.api.SendSigned(ctx, endpoint, params)
	if err != nil {
		s.logger.Error("counter call failed",
			slog.String("endpoint", endpoint.String()), slog.Any("error", err))

		return err
	}

	data, ok := envelope["data"].(map[string]any)
	if !ok {
		return apierror.New(apierror.KindBadResult)
	}
	s.adoptCounters(data, endpoint, includeRenewal)

	return nil
}

func (s *bonusService) adoptCounters(data map[string]any, endpoint transport.Endpoint, includeRenewal bool) {
	s.cache.SetAttempts(func(state *entity.AttemptState) {
		if attempts, ok := data["remaining_attempts"].(float64); ok {
			state.AttemptsRemaining = int(attempts)
		}
		if total, ok := data["total_attempts"].(float64); ok {
			state.TotalAttemptsPerCycle = int(total)
		}
		if cycles, ok := data["remaining_cycles"].(float64); ok {
			state.CyclesRemaining = int(cycles)
		}
		if perCycle, ok := data["attempts_for_cycle"].(float64); ok {
			state.AttemptsPerCycle = int(perCycle)
		}
		if waitMs, ok := data["wait_for_ms"].(float64); ok && includeRenewal {
			renewal := s.now().Add(time.Duration(waitMs) * time.Millisecond)
			if endpoint == transport.EndpointRequestBonus {
				state.BonusRenewalTime = &renewal
			} else {
				state.NextRenewalTime = &renewal
			}
		}
	})
}

func (s *bonusService) baseParams() (map[string]any, error) {
	identity, err := s.repo.DeviceIdentity()
	if err != nil || identity == nil || identity.Key == "" {
		return nil, apierror.New(apierror.KindBadParameters)
	}

	return map[string]any{
		"device_id": identity.Key,
		"bundle_id": s.config.App.BundleID,
	}, nil
}

package impl

import (
	"context"
	"log/slog"
	"sort"

	"go.uber.org/fx"

	"subskit/config"
	"subskit/domain/apierror"
	"subskit/domain/entity"
	"subskit/domain/repository"
	"subskit/internal/errors"
	"subskit/transport"
	"subskit/usecase"
)

type consumableService struct {
	api    transport.API
	repo   repository.StateRepository
	cache  *entitlementStore
	config *config.Config
	logger *slog.Logger
}

// ConsumableServiceParams holds dependencies for ConsumableService, injected by Fx.
type ConsumableServiceParams struct {
	fx.In

	API    transport.API
	Repo   repository.StateRepository
	Config *config.Config
	Logger *slog.Logger
}

// NewConsumableService creates the consumable-balance service.
func NewConsumableService(params ConsumableServiceParams) usecase.ConsumableUsecase {
	return &consumableService{
		api:    params.API,
		repo:   params.Repo,
		cache:  newEntitlementStore(),
		config: params.Config,
		logger: params.Logger,
	}
}

func (s *consumableService) Request(ctx context.Context) error {
	params, err := s.baseParams()
	if err != nil {
		return err
	}

	envelope, err := s.api.SendSigned(ctx, transport.EndpointRequestConsumables, params)
	if err != nil {
		s.logger.Error("consumable request failed", slog.Any("error", err))

		return err
	}

	data, ok := envelope["data"].(map[string]any)
	if !ok {
		return apierror.New(apierror.KindBadResult)
	}
	amounts, ok := data["consumable_amounts"].(map[string]any)
	if !ok {
		return apierror.New(apierror.KindBadResult)
	}

	consumables := make([]entity.Consumable, 0, len(amounts))
	for productID, raw := range amounts {
		amount, ok := raw.(float64)
		if !ok {
			continue
		}
		consumables = append(consumables, entity.Consumable{ProductID: productID, Amount: int(amount)})
	}
	sort.Slice(consumables, func(i, j int) bool {
		return consumables[i].ProductID < consumables[j].ProductID
	})
	s.cache.SetConsumables(consumables)

	return nil
}

func (s *consumableService) Consume(ctx context.Context, count uint, productID string) error {
	params, err := s.baseParams()
	if err != nil {
		return err
	}
	params["product_id"] = productID
	params["amount_to_consume"] = count

	envelope, err := s.api.SendSigned(ctx, transport.EndpointConsumeProduct, params)
	if err != nil {
		// An exhaustion signal is an authoritative zero, not an unknown
		// balance; the cache must not drift above it.
		if errors.Is(err, apierror.New(apierror.KindConsumableExhausted)) {
			s.cache.UpsertConsumable(entity.Consumable{ProductID: productID, Amount: 0})
		}
		s.logger.Error("consume failed", slog.String("product_id", productID), slog.Any("error", err))

		return err
	}

	data, ok := envelope["data"].(map[string]any)
	if !ok {
		return apierror.New(apierror.KindBadResult)
	}
	left, ok := data["amounts_left"].(float64)
	if !ok {
		return apierror.New(apierror.KindBadResult)
	}
	s.cache.UpsertConsumable(entity.Consumable{ProductID: productID, Amount: int(left)})

	return nil
}

func (s *consumableService) Consumables() []entity.Consumable {
	return s.cache.Consumables()
}

func (s *consumableService) baseParams() (map[string]any, error) {
	identity, err := s.repo.DeviceIdentity()
	if err != nil || identity == nil || identity.Key == "" {
		return nil, apierror.New(apierror.KindBadParameters)
	}

	return map[string]any{
		"device_id": identity.Key,
		"bundle_id": s.config.App.BundleID,
	}, nil
}

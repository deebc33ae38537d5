package impl

import (
	"context"
	"log/slog"
	"sync/atomic"

	"go.uber.org/fx"

	"subskit/config"
	"subskit/domain/apierror"
	"subskit/domain/repository"
	"subskit/transport"
	"subskit/usecase"
)

type appInfoService struct {
	api    transport.API
	repo   repository.StateRepository
	config *config.Config
	logger *slog.Logger

	// stale flips false after the first successful app-info fetch; Ready
	// keeps refreshing in the background until then.
	stale atomic.Bool
}

// AppInfoServiceParams holds dependencies for AppInfoService, injected by Fx.
type AppInfoServiceParams struct {
	fx.In

	API    transport.API
	Repo   repository.StateRepository
	Config *config.Config
	Logger *slog.Logger
}

// NewAppInfoService creates the app metadata service.
func NewAppInfoService(params AppInfoServiceParams) usecase.AppInfoUsecase {
	svc := &appInfoService{
		api:    params.API,
		repo:   params.Repo,
		config: params.Config,
		logger: params.Logger,
	}
	svc.stale.Store(true)

	return svc
}

func (s *appInfoService) Ready(ctx context.Context) bool {
	ids, err := s.repo.ProductIDs()
	if err != nil || ids == nil {
		if err := s.Retrieve(ctx); err != nil {
			s.logger.Warn("app info refresh failed", slog.Any("error", err))
		}

		return false
	}
	if s.stale.Load() {
		if err := s.Retrieve(ctx); err != nil {
			s.logger.Warn("app info refresh failed", slog.Any("error", err))
		}
	}

	return true
}

func (s *appInfoService) Retrieve(ctx context.Context) error {
	envelope, err := s.api.SendSigned(ctx, transport.EndpointAppInfo, map[string]any{
		"bundle_id": s.config.App.BundleID,
	})
	if err != nil {
		return err
	}

	data, ok := envelope["data"].(map[string]any)
	if !ok {
		return apierror.New(apierror.KindBadResult)
	}
	s.stale.Store(false)

	if link, ok := data["eula_url"].(string); ok {
		s.save(s.repo.SaveEULALink, link)
	}
	if link, ok := data["privacy_policy_url"].(string); ok {
		s.save(s.repo.SavePrivacyPolicyLink, link)
	}
	if email, ok := data["confirmation_email"].(string); ok {
		s.save(s.repo.SaveConfirmationEmail, email)
	}

	products, ok := data["products"].([]any)
	if !ok {
		return apierror.New(apierror.KindBadResult)
	}
	ids := make([]string, 0, len(products))
	for _, item := range products {
		record, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if id, ok := record["product_id"].(string); ok {
			ids = append(ids, id)
		}
	}
	if err := s.repo.SaveProductIDs(ids); err != nil {
		return apierror.Wrap(apierror.KindOther, err)
	}

	return nil
}

func (s *appInfoService) RetrieveProductIDs(ctx context.Context) error {
	envelope, err := s.api.Send(ctx, s.config.API.BaseURL+transport.EndpointProductIDs.String(), map[string]any{
		"bundle_id": s.config.App.BundleID,
	})
	if err != nil {
		return err
	}

	data, ok := envelope["data"].(map[string]any)
	if !ok {
		return apierror.New(apierror.KindBadResult)
	}
	rawIDs, ok := data["product_ids"].([]any)
	if !ok {
		return apierror.New(apierror.KindBadResult)
	}

	ids := make([]string, 0, len(rawIDs))
	for _, raw := range rawIDs {
		if id, ok := raw.(string); ok {
			ids = append(ids, id)
		}
	}
	if err := s.repo.SaveProductIDs(ids); err != nil {
		return apierror.Wrap(apierror.KindOther, err)
	}

	return nil
}

func (s *appInfoService) ProductIDs() []string {
	ids, err := s.repo.ProductIDs()
	if err != nil {
		return nil
	}

	return ids
}

func (s *appInfoService) EULA() string {
	link, err := s.repo.EULALink()
	if err != nil {
		return ""
	}

	return link
}

func (s *appInfoService) PrivacyPolicy() string {
	link, err := s.repo.PrivacyPolicyLink()
	if err != nil {
		return ""
	}

	return link
}

func (s *appInfoService) ConfirmationEmail() string {
	email, err := s.repo.ConfirmationEmail()
	if err != nil {
		return ""
	}

	return email
}

func (s *appInfoService) save(setter func(string) error, value string) {
	if err := setter(value); err != nil {
		s.logger.Error("persisting app info failed", slog.Any("error", err))
	}
}

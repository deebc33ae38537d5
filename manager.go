// Package subskit is a client-side subscription and in-app-purchase toolkit:
// a signed API transport, a purchase/restore reconciliation workflow, an
// entitlement cache and the attempt/bonus/consumable economy behind it. The
// Manager bundles the individual usecases into one entry point; applications
// that prefer finer-grained wiring can depend on the usecase interfaces
// directly, or assemble everything through Module.
package subskit

import (
	"context"
	"log/slog"
	"time"

	"subskit/config"
	"subskit/domain/entity"
	"subskit/domain/repository"
	"subskit/domain/service"
	logs "subskit/infra/log"
	"subskit/infra/reachability"
	"subskit/infra/storage"
	"subskit/internal/errors"
	"subskit/transport"
	"subskit/usecase"
	"subskit/usecase/impl"
)

// Manager is the facade over the individual usecases.
type Manager struct {
	api        transport.API
	device     usecase.DeviceUsecase
	appInfo    usecase.AppInfoUsecase
	purchase   usecase.PurchaseUsecase
	bonus      usecase.BonusUsecase
	consumable usecase.ConsumableUsecase
	user       usecase.UserUsecase
	migration  usecase.MigrationUsecase
	logger     *slog.Logger
}

type options struct {
	kv           repository.KeyValue
	reach        service.Reachability
	credentials  service.CredentialVerifier
	logger       *slog.Logger
}

// Option customizes manual Manager construction.
type Option func(*options)

// WithKeyValue substitutes the persisted-state backend, e.g. a real keychain.
func WithKeyValue(kv repository.KeyValue) Option {
	return func(o *options) { o.kv = kv }
}

// WithReachability substitutes the connectivity probe.
func WithReachability(r service.Reachability) Option {
	return func(o *options) { o.reach = r }
}

// WithCredentialVerifier installs a credential provider for CheckCredential.
func WithCredentialVerifier(v service.CredentialVerifier) Option {
	return func(o *options) { o.credentials = v }
}

// WithLogger substitutes the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New assembles a Manager without a DI container. The platform store is the
// one collaborator that always comes from the application shell.
func New(cfg *config.Config, platform service.PlatformStore, opts ...Option) (*Manager, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if platform == nil {
		return nil, errors.New("platform store is required")
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		var err error
		logger, err = logs.New(logs.Params{Config: cfg})
		if err != nil {
			return nil, err
		}
	}

	kv := o.kv
	if kv == nil {
		var err error
		kv, err = storage.NewBackend(storage.BackendParams{Config: cfg})
		if err != nil {
			return nil, err
		}
	}

	reach := o.reach
	if reach == nil {
		var err error
		reach, err = reachability.New(reachability.Params{Config: cfg})
		if err != nil {
			return nil, err
		}
	}

	repo := storage.NewStateRepository(storage.StateRepositoryParams{KV: kv})
	api := transport.NewClient(transport.ClientParams{Config: cfg, Reachability: reach, Logger: logger})

	return &Manager{
		api:     api,
		device:  impl.NewDeviceService(impl.DeviceServiceParams{API: api, Repo: repo, Config: cfg, Logger: logger}),
		appInfo: impl.NewAppInfoService(impl.AppInfoServiceParams{API: api, Repo: repo, Config: cfg, Logger: logger}),
		purchase: impl.NewPurchaseService(impl.PurchaseServiceParams{
			API: api, Platform: platform, Repo: repo, Config: cfg, Logger: logger,
		}),
		bonus:      impl.NewBonusService(impl.BonusServiceParams{API: api, Repo: repo, Config: cfg, Logger: logger}),
		consumable: impl.NewConsumableService(impl.ConsumableServiceParams{API: api, Repo: repo, Config: cfg, Logger: logger}),
		user: impl.NewUserService(impl.UserServiceParams{
			API: api, Repo: repo, Credentials: o.credentials, Config: cfg, Logger: logger,
		}),
		migration: impl.NewMigrationService(impl.MigrationServiceParams{API: api, Repo: repo, Config: cfg, Logger: logger}),
		logger:    logger,
	}, nil
}

// Start brings the library to a usable state: device registration, product
// identifiers, catalog retrieval and the server purchase list. Registration
// and cache warm-up failures are logged and tolerated; a missing product-id
// list is not, since nothing downstream can work without it.
func (m *Manager) Start(ctx context.Context) error {
	if err := m.device.Register(ctx); err != nil {
		m.logger.Warn("device registration failed", slog.Any("error", err))
	}

	if !m.appInfo.Ready(ctx) {
		return errors.New("product identifiers unavailable")
	}
	m.purchase.Setup(m.appInfo.ProductIDs())

	if err := m.purchase.RetrieveProducts(ctx); err != nil {
		return err
	}

	if err := m.purchase.GetPurchases(ctx); err != nil {
		m.logger.Warn("purchase list refresh failed", slog.Any("error", err))
	}
	if err := m.user.Refresh(ctx); err != nil {
		m.logger.Warn("account refresh failed", slog.Any("error", err))
	}

	return nil
}

// CompareServerTime checks local clock skew against the time authority.
func (m *Manager) CompareServerTime(ctx context.Context) error {
	return m.api.CompareServerTime(ctx)
}

// Purchase runs the full purchase flow for one product.
func (m *Manager) Purchase(ctx context.Context, productID string) error {
	return m.purchase.Purchase(ctx, productID)
}

// Restore replays completed transactions through receipt verification.
func (m *Manager) Restore(ctx context.Context) error {
	return m.purchase.Restore(ctx)
}

// RetrieveProducts refreshes the product catalog from the platform store.
func (m *Manager) RetrieveProducts(ctx context.Context) error {
	return m.purchase.RetrieveProducts(ctx)
}

// GetPurchases refreshes the entitlement cache from the server.
func (m *Manager) GetPurchases(ctx context.Context) error {
	return m.purchase.GetPurchases(ctx)
}

// Products returns the last retrieved catalog.
func (m *Manager) Products() []entity.Product { return m.purchase.Products() }

// Purchases returns the cached server-confirmed entitlements.
func (m *Manager) Purchases() []entity.Purchase { return m.purchase.Purchases() }

// IsActive reports whether an unexpired entitlement for the product exists.
func (m *Manager) IsActive(productID string) bool { return m.purchase.IsActive(productID) }

// IsPurchased reports the persisted purchased flag.
func (m *Manager) IsPurchased() bool { return m.purchase.IsPurchased() }

// RequestAttempts refreshes the free-attempt counters.
func (m *Manager) RequestAttempts(ctx context.Context) error { return m.bonus.RequestAttempts(ctx) }

// ConsumeAttempts spends one free attempt.
func (m *Manager) ConsumeAttempts(ctx context.Context) error { return m.bonus.ConsumeAttempts(ctx) }

// RequestBonus refreshes the bonus-cycle counters.
func (m *Manager) RequestBonus(ctx context.Context) error { return m.bonus.RequestBonus(ctx) }

// ConsumeBonus spends one bonus cycle.
func (m *Manager) ConsumeBonus(ctx context.Context) error { return m.bonus.ConsumeBonus(ctx) }

// Attempts returns the last-known attempt and bonus counters.
func (m *Manager) Attempts() entity.AttemptState { return m.bonus.State() }

// Used reports whether any free attempts of the current cycle have been
// consumed.
func (m *Manager) Used() bool {
	state := m.bonus.State()

	return state.TotalAttemptsPerCycle > 0 && state.AttemptsRemaining < state.TotalAttemptsPerCycle
}

// RequestConsumables refreshes all consumable balances.
func (m *Manager) RequestConsumables(ctx context.Context) error { return m.consumable.Request(ctx) }

// ConsumeConsumable spends count units of a consumable product.
func (m *Manager) ConsumeConsumable(ctx context.Context, count uint, productID string) error {
	return m.consumable.Consume(ctx, count, productID)
}

// Consumables returns the last-known balances.
func (m *Manager) Consumables() []entity.Consumable { return m.consumable.Consumables() }

// RegisterUser signs an account in and stores the confirmed state.
func (m *Manager) RegisterUser(ctx context.Context, account entity.UserAccount, sendConfirmation bool) error {
	return m.user.Register(ctx, account, sendConfirmation)
}

// Logout detaches the account from this device.
func (m *Manager) Logout(ctx context.Context) error { return m.user.Logout(ctx) }

// DeleteUser removes the server-side user record.
func (m *Manager) DeleteUser(ctx context.Context) error { return m.user.DeleteUser(ctx) }

// CheckCredential validates the stored credential with the provider.
func (m *Manager) CheckCredential(ctx context.Context, userID string) error {
	return m.user.CheckCredential(ctx, userID)
}

// MigrateUser links a legacy account to this install, once.
func (m *Manager) MigrateUser(ctx context.Context, email, name string) error {
	return m.migration.MigrateUser(ctx, email, name)
}

// FirstRegisteredTime returns when the server first saw this device.
func (m *Manager) FirstRegisteredTime() *time.Time { return m.device.FirstRegisteredTime() }

// EULA returns the stored EULA link.
func (m *Manager) EULA() string { return m.appInfo.EULA() }

// PrivacyPolicy returns the stored privacy-policy link.
func (m *Manager) PrivacyPolicy() string { return m.appInfo.PrivacyPolicy() }

// ConfirmationEmail returns the stored confirmation-email address.
func (m *Manager) ConfirmationEmail() string { return m.appInfo.ConfirmationEmail() }

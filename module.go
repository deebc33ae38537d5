package subskit

import (
	"log/slog"

	"go.uber.org/fx"

	logs "subskit/infra/log"
	"subskit/infra/reachability"
	"subskit/infra/storage"
	"subskit/transport"
	"subskit/usecase"
	"subskit/usecase/impl"
)

// ManagerParams holds dependencies for the Fx-assembled Manager.
type ManagerParams struct {
	fx.In

	API        transport.API
	Device     usecase.DeviceUsecase
	AppInfo    usecase.AppInfoUsecase
	Purchase   usecase.PurchaseUsecase
	Bonus      usecase.BonusUsecase
	Consumable usecase.ConsumableUsecase
	User       usecase.UserUsecase
	Migration  usecase.MigrationUsecase
	Logger     *slog.Logger
}

// NewManager builds the facade from already-constructed usecases.
func NewManager(params ManagerParams) *Manager {
	return &Manager{
		api:        params.API,
		device:     params.Device,
		appInfo:    params.AppInfo,
		purchase:   params.Purchase,
		bonus:      params.Bonus,
		consumable: params.Consumable,
		user:       params.User,
		migration:  params.Migration,
		logger:     params.Logger,
	}
}

// Module wires the whole library for an Fx application. The application
// shell must additionally provide *config.Config and a
// service.PlatformStore; a service.CredentialVerifier is optional.
func Module() fx.Option {
	return fx.Options(
		fx.Provide(
			logs.New,
			storage.NewBackend,
			storage.NewStateRepository,
			reachability.New,
			transport.NewClient,
			impl.NewDeviceService,
			impl.NewAppInfoService,
			impl.NewPurchaseService,
			impl.NewBonusService,
			impl.NewConsumableService,
			impl.NewUserService,
			impl.NewMigrationService,
			NewManager,
		),
	)
}

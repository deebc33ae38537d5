// Command subskit-demo wires the library against a canned platform store and
// walks the startup sequence. It exists to exercise the Fx wiring end to end
// and to show an application shell what it must provide; a real shell
// replaces demoStore with its store integration.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"go.uber.org/fx"

	"subskit"
	"subskit/config"
	"subskit/domain/entity"
	"subskit/domain/service"
)

// demoStore is a stand-in for the platform in-app purchase store. Every
// payment succeeds instantly and the receipt is a fixed blob.
type demoStore struct{}

func (demoStore) CanMakePayments() bool { return true }

func (demoStore) QueryProducts(_ context.Context, ids []string) (*service.ProductQueryResult, error) {
	products := make([]entity.Product, 0, len(ids))
	for _, id := range ids {
		products = append(products, entity.Product{
			ID:           id,
			Title:        id,
			Price:        4.99,
			CurrencyCode: "USD",
		})
	}

	return &service.ProductQueryResult{Retrieved: products}, nil
}

func (demoStore) Purchase(_ context.Context, productID string, _ bool) (*service.PurchaseOutcome, error) {
	return &service.PurchaseOutcome{
		Transaction: service.Transaction{ID: "demo-tx", ProductID: productID, NeedsFinalization: true},
	}, nil
}

func (demoStore) Restore(context.Context, bool) (*service.RestoreOutcome, error) {
	return &service.RestoreOutcome{}, nil
}

func (demoStore) FetchReceipt(context.Context, bool) ([]byte, error) {
	return []byte("demo-receipt"), nil
}

func (demoStore) Finalize(context.Context, service.Transaction) error { return nil }

func newDemoStore() service.PlatformStore { return demoStore{} }

func main() {
	fx.New(
		fx.Provide(
			config.New,
			newDemoStore,
		),
		subskit.Module(),
		fx.Invoke(run),
	).Run()
}

func run(lc fx.Lifecycle, manager *subskit.Manager, shutdowner fx.Shutdowner) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := manager.Start(context.Background()); err != nil {
					slog.Error("startup failed", slog.Any("error", err))
					os.Exit(1)
				}
				for _, product := range manager.Products() {
					fmt.Printf("%s\t%s %.2f\tactive=%v\n",
						product.ID, product.CurrencyCode, product.Price,
						manager.IsActive(product.ID))
				}
				_ = shutdowner.Shutdown()
			}()

			return nil
		},
	})
}

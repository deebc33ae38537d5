// Package usecase defines the operations the library exposes to the
// application shell.
package usecase

import (
	"context"

	"subskit/domain/entity"
)

// PurchaseUsecase defines the interface for the purchase/restore
// reconciliation workflow and the entitlement cache behind it.
type PurchaseUsecase interface {
	// Setup installs the known product identifiers the catalog queries use.
	Setup(productIDs []string)

	// RetrieveProducts refreshes the in-memory product catalog from the
	// platform store.
	RetrieveProducts(ctx context.Context) error

	// GetPurchases fetches the authoritative purchase list from the server
	// and replaces the local entitlement cache wholesale.
	GetPurchases(ctx context.Context) error

	// Purchase runs the full purchase flow for one product: payments guard,
	// clock-skew gate, platform payment, receipt verification and deferred
	// transaction finalization. At most one purchase or restore may be in
	// flight per instance.
	Purchase(ctx context.Context, productID string) error

	// Restore replays completed transactions through the same verification
	// tail as Purchase.
	Restore(ctx context.Context) error

	// Products returns the last retrieved product catalog.
	Products() []entity.Product

	// Purchases returns the cached server-confirmed entitlements.
	Purchases() []entity.Purchase

	// IsActive reports whether a cached entitlement for the product is
	// unexpired. Expiry exactly at now counts as inactive.
	IsActive(productID string) bool

	// IsPurchased reports the locally persisted purchased flag.
	IsPurchased() bool
}

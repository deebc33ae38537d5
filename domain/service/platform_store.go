// Package service defines the capability interfaces the library's use cases
// depend on. Concrete implementations are supplied by the application shell
// or by the default adapters under infra.
package service

import (
	"context"

	"subskit/domain/entity"
)

// Transaction is an opaque handle to a platform-store transaction. The
// platform owns the transaction lifecycle; the library only observes
// transactions and requests their finalization.
type Transaction struct {
	ID                string // Platform transaction identifier.
	ProductID         string // Product the transaction is for.
	NeedsFinalization bool   // True until the platform is told the transaction is fully processed.
}

// PurchaseState is the platform's report of a payment attempt.
type PurchaseState int

const (
	// PurchaseStateSuccess means the payment completed.
	PurchaseStateSuccess PurchaseState = iota
	// PurchaseStateDeferred means the payment awaits external approval and
	// is treated like a success by the reconciliation flow.
	PurchaseStateDeferred
)

// PurchaseOutcome is the result of a platform purchase request.
type PurchaseOutcome struct {
	State       PurchaseState
	Transaction Transaction
}

// RestoreFailure pairs a platform error with the product it occurred on.
type RestoreFailure struct {
	Err       error
	ProductID string
}

// RestoreOutcome is the result of a platform restore pass, partitioned into
// restored transactions and per-product failures.
type RestoreOutcome struct {
	Restored []Transaction
	Failed   []RestoreFailure
}

// ProductQueryResult carries the platform's product catalog answer.
type ProductQueryResult struct {
	Retrieved  []entity.Product // Valid product descriptors.
	InvalidIDs []string         // Identifiers the store does not recognize.
}

// ErrPaymentCancelled must be returned (or wrapped) by PlatformStore
// implementations when the user dismissed the payment sheet, so the workflow
// can distinguish cancellation from genuine failure.
var ErrPaymentCancelled = cancelledError{}

type cancelledError struct{}

func (cancelledError) Error() string { return "payment cancelled by user" }

// PlatformStore is the capability interface over the platform in-app
// purchase store: product lookup, the payment sheet, the restore queue,
// receipt access, and transaction finalization.
type PlatformStore interface {
	// CanMakePayments reports whether payments are enabled for this device/user.
	CanMakePayments() bool

	// QueryProducts resolves product descriptors for the given identifiers.
	QueryProducts(ctx context.Context, ids []string) (*ProductQueryResult, error)

	// Purchase runs the payment flow for one product. Non-atomic: the
	// transaction stays open until Finalize is called by the workflow.
	Purchase(ctx context.Context, productID string, atomic bool) (*PurchaseOutcome, error)

	// Restore replays previously completed transactions. Non-atomic, like Purchase.
	Restore(ctx context.Context, atomic bool) (*RestoreOutcome, error)

	// FetchReceipt returns the current platform receipt, refreshing it from
	// the store when forceRefresh is set.
	FetchReceipt(ctx context.Context, forceRefresh bool) ([]byte, error)

	// Finalize acknowledges a transaction as fully processed so the platform
	// stops redelivering it. Must only be called after the backend has
	// recorded the transaction.
	Finalize(ctx context.Context, tx Transaction) error
}

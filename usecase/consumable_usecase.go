package usecase

import (
	"context"

	"subskit/domain/entity"
)

// ConsumableUsecase defines the interface for consumable balances.
type ConsumableUsecase interface {
	// Request reads all consumable balances from the server.
	Request(ctx context.Context) error

	// Consume atomically decrements a balance on the server. When the server
	// signals exhaustion the local balance is forced to zero even though the
	// call fails; that zero is authoritative, not unknown.
	Consume(ctx context.Context, count uint, productID string) error

	// Consumables returns the last-known balances.
	Consumables() []entity.Consumable
}

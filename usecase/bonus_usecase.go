package usecase

import (
	"context"

	"subskit/domain/entity"
)

// BonusUsecase defines the interface for the free-attempt and bonus-cycle
// economy. All counters are server-authoritative; the local state is a cache
// refreshed by every call.
type BonusUsecase interface {
	// RequestAttempts reads the current free-attempt counters.
	RequestAttempts(ctx context.Context) error

	// ConsumeAttempts atomically consumes one free attempt on the server.
	ConsumeAttempts(ctx context.Context) error

	// RequestBonus reads the current bonus-cycle counters.
	RequestBonus(ctx context.Context) error

	// ConsumeBonus atomically consumes one bonus cycle on the server.
	ConsumeBonus(ctx context.Context) error

	// State returns the last-known counters.
	State() entity.AttemptState
}

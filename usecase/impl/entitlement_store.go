// Package impl provides the concrete use-case services of the library.
package impl

import (
	"sync"
	"time"

	"subskit/domain/entity"
)

// entitlementStore is the in-memory source of truth between server syncs:
// the product catalog, the last verified purchase list, consumable balances
// and the attempt/bonus counters. Mutating workflow operations never overlap
// (the services guard that); the lock only protects concurrent readers.
type entitlementStore struct {
	mu          sync.RWMutex
	products    []entity.Product
	purchases   []entity.Purchase
	consumables []entity.Consumable
	attempts    entity.AttemptState
}

func newEntitlementStore() *entitlementStore {
	return &entitlementStore{}
}

func (s *entitlementStore) SetProducts(products []entity.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = products
}

func (s *entitlementStore) Products() []entity.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]entity.Product(nil), s.products...)
}

func (s *entitlementStore) ProductByID(id string) *entity.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.products {
		if s.products[i].ID == id {
			product := s.products[i]

			return &product
		}
	}

	return nil
}

// ReplacePurchases swaps the entire entitlement snapshot. Server responses
// replace the list wholesale; records absent from the response are dropped,
// never merged.
func (s *entitlementStore) ReplacePurchases(purchases []entity.Purchase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purchases = purchases
}

func (s *entitlementStore) Purchases() []entity.Purchase {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]entity.Purchase(nil), s.purchases...)
}

// IsActive reports whether a purchase of the product is unexpired at the
// given instant. Expiry exactly at now is not active.
func (s *entitlementStore) IsActive(productID string, now time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	nowMs := float64(now.UnixMilli())
	for i := range s.purchases {
		if s.purchases[i].ProductID == productID && s.purchases[i].ExpiresMs > nowMs {
			return true
		}
	}

	return false
}

func (s *entitlementStore) SetConsumables(consumables []entity.Consumable) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consumables = consumables
}

func (s *entitlementStore) Consumables() []entity.Consumable {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]entity.Consumable(nil), s.consumables...)
}

// UpsertConsumable replaces one balance, appending when the product was not
// cached yet.
func (s *entitlementStore) UpsertConsumable(consumable entity.Consumable) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.consumables {
		if s.consumables[i].ProductID == consumable.ProductID {
			s.consumables[i] = consumable

			return
		}
	}
	s.consumables = append(s.consumables, consumable)
}

func (s *entitlementStore) ConsumableAmount(productID string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.consumables {
		if s.consumables[i].ProductID == productID {
			return s.consumables[i].Amount, true
		}
	}

	return 0, false
}

func (s *entitlementStore) SetAttempts(update func(state *entity.AttemptState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	update(&s.attempts)
}

func (s *entitlementStore) Attempts() entity.AttemptState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.attempts
}

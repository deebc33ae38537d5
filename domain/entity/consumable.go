// Package entity contains the core business objects of the library.
package entity

// Consumable is the last-known server-authoritative balance of a depletable
// product. The amount never goes below zero.
type Consumable struct {
	ProductID string `json:"product_id"` // The consumable product.
	Amount    int    `json:"amount"`     // Remaining units.
}

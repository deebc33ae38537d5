// Package entity contains the core business objects of the library,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"encoding/json"
	"time"
)

// PurchaseType classifies a product by its entitlement lifecycle.
// The values are the server's wire codes.
type PurchaseType string

const (
	// PurchaseTypeAutoRenewable is an auto-renewing subscription.
	PurchaseTypeAutoRenewable PurchaseType = "AR"
	// PurchaseTypeNonRenewable is a fixed-duration subscription.
	PurchaseTypeNonRenewable PurchaseType = "NR"
	// PurchaseTypeConsumable is a depletable-count product.
	PurchaseTypeConsumable PurchaseType = "C"
	// PurchaseTypeNonConsumable is a permanent one-time product.
	PurchaseTypeNonConsumable PurchaseType = "NC"
)

// String returns the string representation of the PurchaseType.
func (t PurchaseType) String() string {
	return string(t)
}

// IsValid checks if the PurchaseType is a valid value.
func (t PurchaseType) IsValid() bool {
	switch t {
	case PurchaseTypeAutoRenewable, PurchaseTypeNonRenewable, PurchaseTypeConsumable, PurchaseTypeNonConsumable:
		return true
	default:
		return false
	}
}

// UnmarshalJSON decodes the wire code, falling back to auto-renewable for
// absent or unrecognized values.
func (t *PurchaseType) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed := PurchaseType(raw)
	if !parsed.IsValid() {
		parsed = PurchaseTypeAutoRenewable
	}
	*t = parsed

	return nil
}

// PurchaseStatus is the server-side notification status of a subscription.
type PurchaseStatus string

const (
	// PurchaseStatusRenewed indicates the subscription last renewed normally.
	PurchaseStatusRenewed PurchaseStatus = "renewed"
	// PurchaseStatusCanceled indicates the subscription was canceled.
	PurchaseStatusCanceled PurchaseStatus = "canceled"
)

// String returns the string representation of the PurchaseStatus.
func (s PurchaseStatus) String() string {
	return string(s)
}

// ReceiptEnvironment identifies which store environment issued the receipt.
type ReceiptEnvironment string

const (
	// ReceiptEnvironmentProduction is the regular production store.
	ReceiptEnvironmentProduction ReceiptEnvironment = "Production"
	// ReceiptEnvironmentProductionVPP is the volume-purchase production store.
	ReceiptEnvironmentProductionVPP ReceiptEnvironment = "ProductionVPP"
	// ReceiptEnvironmentSandbox is the sandbox store.
	ReceiptEnvironmentSandbox ReceiptEnvironment = "ProductionSandbox"
	// ReceiptEnvironmentSandboxVPP is the volume-purchase sandbox store.
	ReceiptEnvironmentSandboxVPP ReceiptEnvironment = "ProductionVPPSandbox"
)

// Purchase is a server-confirmed entitlement record. Instances are built
// exclusively from the server's verification responses; the platform store's
// local view is never treated as entitlement truth.
type Purchase struct {
	ProductID          string             `json:"product_id"`    // The product this entitlement covers.
	Type               PurchaseType       `json:"purchase_type"` // Lifecycle class of the product.
	NotificationStatus PurchaseStatus     `json:"-"`             // Last known renewal status.
	Environment        ReceiptEnvironment `json:"-"`             // Store environment that issued the receipt.

	OriginalPurchaseMs float64 `json:"original_purchase_date_ms"` // First purchase time, ms since epoch.
	PurchaseMs         float64 `json:"purchase_date_ms"`          // Latest purchase/renewal time, ms since epoch.
	ExpiresMs          float64 `json:"expires_date_ms"`           // Expiry time, ms since epoch.

	OriginalTransactionID string `json:"original_transaction_id"`       // Platform id of the first transaction.
	TransactionID         string `json:"transaction_id"`                // Platform id of the latest transaction.
	WebOrderLineItemID    string `json:"web_order_line_item_id"`        // Platform line-item id.
	SubscriptionGroupID   string `json:"subscription_group_identifier"` // Subscription group the product belongs to.

	IsTrialPeriod      int     `json:"is_trial_period"`          // 1 while inside a free trial.
	IsIntroOfferPeriod int     `json:"is_in_intro_offer_period"` // 1 while inside an introductory offer.
	Price              float64 `json:"-"`                        // Joined from the product catalog, not the server.
	Currency           string  `json:"-"`                        // Joined from the product catalog, not the server.

	CustomIsPromotion int `json:"custom_is_promotion"` // Promotion flag set by the backend.
	CustomPromoLevel  int `json:"custom_promo_level"`  // Promotion tier set by the backend.
	CustomPromoType   int `json:"custom_promo_type"`   // Promotion variant set by the backend.
}

// NewPurchase decodes a single server purchase record and applies the
// defaults the server omits.
func NewPurchase(raw json.RawMessage) (Purchase, error) {
	purchase := Purchase{
		NotificationStatus: PurchaseStatusRenewed,
		Environment:        ReceiptEnvironmentProduction,
		Currency:           "USD",
	}
	if err := json.Unmarshal(raw, &purchase); err != nil {
		return Purchase{}, err
	}
	if purchase.Type == "" {
		purchase.Type = PurchaseTypeAutoRenewable
	}

	return purchase, nil
}

// OriginalPurchaseTime converts the original purchase timestamp to a time.Time.
func (p Purchase) OriginalPurchaseTime() time.Time {
	return timeFromMs(p.OriginalPurchaseMs)
}

// PurchaseTime converts the latest purchase timestamp to a time.Time.
func (p Purchase) PurchaseTime() time.Time {
	return timeFromMs(p.PurchaseMs)
}

// ExpiresTime converts the expiry timestamp to a time.Time.
func (p Purchase) ExpiresTime() time.Time {
	return timeFromMs(p.ExpiresMs)
}

// IsSubscription reports whether the purchase is time-bound rather than
// count- or flag-based.
func (p Purchase) IsSubscription() bool {
	return p.Type == PurchaseTypeAutoRenewable || p.Type == PurchaseTypeNonRenewable
}

// IsTrial reports whether the entitlement is inside a free trial.
func (p Purchase) IsTrial() bool {
	return p.IsTrialPeriod == 1
}

// IsIntroOffer reports whether the entitlement is inside an introductory offer.
func (p Purchase) IsIntroOffer() bool {
	return p.IsIntroOfferPeriod == 1
}

// WithPrice returns a copy with price and currency joined from the matching
// catalog product. A nil product leaves the record unchanged.
func (p Purchase) WithPrice(product *Product) Purchase {
	if product == nil {
		return p
	}
	p.Price = roundTo(product.Price, 2)
	p.Currency = product.CurrencyCode

	return p
}

func timeFromMs(ms float64) time.Time {
	return time.UnixMilli(int64(ms))
}

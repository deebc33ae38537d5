// Package entity contains the core business objects of the library.
package entity

import "math"

// PeriodUnit is the unit of a subscription billing period.
type PeriodUnit string

const (
	// PeriodUnitDay is a daily billing unit.
	PeriodUnitDay PeriodUnit = "day"
	// PeriodUnitWeek is a weekly billing unit.
	PeriodUnitWeek PeriodUnit = "week"
	// PeriodUnitMonth is a monthly billing unit.
	PeriodUnitMonth PeriodUnit = "month"
	// PeriodUnitYear is a yearly billing unit.
	PeriodUnitYear PeriodUnit = "year"
)

// String returns the string representation of the PeriodUnit.
func (u PeriodUnit) String() string {
	return string(u)
}

// SubscriptionPeriod describes the recurring billing interval of a product.
type SubscriptionPeriod struct {
	NumberOfUnits int        // How many units make up one period.
	Unit          PeriodUnit // The unit the period is counted in.
}

// Introductory describes a product's introductory offer, if any.
type Introductory struct {
	Price         float64             // Offer price; 0 for a free trial.
	IsTrial       bool                // True when the offer is a free trial.
	Period        *SubscriptionPeriod // Duration of the offer.
	NumberOfUnits int                 // Total units the offer spans.
}

// Product is a platform-store product descriptor. Products are recomputed on
// every catalog query and never persisted; entitlement truth lives in
// Purchase records.
type Product struct {
	ID             string              // Store product identifier.
	Title          string              // Store-localized display title.
	Description    string              // Store-localized description.
	Price          float64             // Decimal price, rounded to two places.
	PriceLocale    string              // BCP 47 locale the price is formatted for.
	LocalizedPrice string              // Price formatted by the store for display.
	CurrencyCode   string              // ISO currency code of the price.
	Period         *SubscriptionPeriod // Billing period; nil for one-time products.
	Introductory   *Introductory       // Introductory offer; nil when absent.
}

func roundTo(value float64, places int) float64 {
	divisor := math.Pow(10, float64(places))

	return math.Round(value*divisor) / divisor
}

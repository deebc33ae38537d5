package usecase

import "context"

// AppInfoUsecase defines the interface for app metadata: product identifiers,
// legal links and the confirmation-email address.
type AppInfoUsecase interface {
	// Ready reports whether product identifiers are available locally,
	// kicking off a refresh when they are stale or absent.
	Ready(ctx context.Context) bool

	// Retrieve fetches app metadata from the signed app-info endpoint.
	Retrieve(ctx context.Context) error

	// RetrieveProductIDs fetches the product-id list from the unsigned
	// endpoint.
	RetrieveProductIDs(ctx context.Context) error

	// ProductIDs returns the stored product identifiers.
	ProductIDs() []string

	// EULA returns the stored EULA link, if any.
	EULA() string

	// PrivacyPolicy returns the stored privacy-policy link, if any.
	PrivacyPolicy() string

	// ConfirmationEmail returns the stored confirmation-email address, if any.
	ConfirmationEmail() string
}

// Package repository defines the persistence contracts of the library. The
// secure store behind them is an external collaborator; the library treats
// it as synchronously available key/value access with no transaction
// guarantees.
package repository

import (
	"subskit/domain/entity"
	"subskit/internal/errors"
)

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("value not found")

// KeyValue is the minimal contract of the keychain-like secure store. Values
// are opaque bytes; encryption, if any, is the implementation's concern.
type KeyValue interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
}

// StateRepository is the typed persisted state of the library: device
// identity, account, entitlement snapshot, and the one-shot flags. A nil
// pointer result with a nil error means "never stored".
type StateRepository interface {
	DeviceIdentity() (*entity.DeviceIdentity, error)
	SaveDeviceIdentity(identity entity.DeviceIdentity) error
	DeleteDeviceIdentity() error

	UserAccount() (*entity.UserAccount, error)
	SaveUserAccount(account entity.UserAccount) error
	DeleteUserAccount() error

	// Purchases is the last-known entitlement snapshot; Save replaces it
	// wholesale.
	Purchases() ([]entity.Purchase, error)
	SavePurchases(purchases []entity.Purchase) error

	IsPurchased() (bool, error)
	SetPurchased(purchased bool) error

	// IsUserMigrated gates the one-shot account-linking call. The flag is
	// never cleared by the migration service itself.
	IsUserMigrated() (bool, error)
	SetUserMigrated(migrated bool) error

	ProductIDs() ([]string, error)
	SaveProductIDs(ids []string) error

	EULALink() (string, error)
	SaveEULALink(link string) error

	PrivacyPolicyLink() (string, error)
	SavePrivacyPolicyLink(link string) error

	ConfirmationEmail() (string, error)
	SaveConfirmationEmail(email string) error
}

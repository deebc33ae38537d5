// Package storage provides the default persisted-state stores: a typed
// repository over any KeyValue backend, an encrypted file backend and a
// sqlite backend. The application shell may substitute its own KeyValue
// (a real keychain, for instance) without touching the repository.
package storage

import (
	"encoding/json"
	"strconv"

	"go.uber.org/fx"

	"subskit/domain/entity"
	"subskit/domain/repository"
	"subskit/internal/errors"
)

const (
	deviceKey            = "storage.device_id"
	userKey              = "storage.user"
	purchasedKey         = "storage.is_purchase"
	userMigratedKey      = "storage.user_migrated_key"
	purchaseListKey      = "storage.purchases_list_key"
	productIDsKey        = "storage.product_ids_key"
	eulaKey              = "storage.eula_key"
	privacyPolicyKey     = "storage.privacy_policy_key"
	confirmationEmailKey = "storage.confirmation_email_key"
)

type stateRepository struct {
	kv repository.KeyValue
}

// StateRepositoryParams holds dependencies for the state repository, injected by Fx.
type StateRepositoryParams struct {
	fx.In

	KV repository.KeyValue
}

// NewStateRepository builds the typed repository over a KeyValue backend.
func NewStateRepository(params StateRepositoryParams) repository.StateRepository {
	return &stateRepository{kv: params.KV}
}

func (r *stateRepository) DeviceIdentity() (*entity.DeviceIdentity, error) {
	return getJSON[entity.DeviceIdentity](r.kv, deviceKey)
}

func (r *stateRepository) SaveDeviceIdentity(identity entity.DeviceIdentity) error {
	return setJSON(r.kv, deviceKey, identity)
}

func (r *stateRepository) DeleteDeviceIdentity() error {
	return r.kv.Delete(deviceKey)
}

func (r *stateRepository) UserAccount() (*entity.UserAccount, error) {
	return getJSON[entity.UserAccount](r.kv, userKey)
}

func (r *stateRepository) SaveUserAccount(account entity.UserAccount) error {
	return setJSON(r.kv, userKey, account)
}

func (r *stateRepository) DeleteUserAccount() error {
	return r.kv.Delete(userKey)
}

func (r *stateRepository) Purchases() ([]entity.Purchase, error) {
	purchases, err := getJSON[[]entity.Purchase](r.kv, purchaseListKey)
	if err != nil || purchases == nil {
		return nil, err
	}

	return *purchases, nil
}

func (r *stateRepository) SavePurchases(purchases []entity.Purchase) error {
	return setJSON(r.kv, purchaseListKey, purchases)
}

func (r *stateRepository) IsPurchased() (bool, error) {
	return r.getBool(purchasedKey)
}

func (r *stateRepository) SetPurchased(purchased bool) error {
	return r.setBool(purchasedKey, purchased)
}

func (r *stateRepository) IsUserMigrated() (bool, error) {
	return r.getBool(userMigratedKey)
}

func (r *stateRepository) SetUserMigrated(migrated bool) error {
	return r.setBool(userMigratedKey, migrated)
}

func (r *stateRepository) ProductIDs() ([]string, error) {
	ids, err := getJSON[[]string](r.kv, productIDsKey)
	if err != nil || ids == nil {
		return nil, err
	}

	return *ids, nil
}

func (r *stateRepository) SaveProductIDs(ids []string) error {
	return setJSON(r.kv, productIDsKey, ids)
}

func (r *stateRepository) EULALink() (string, error) {
	return r.getString(eulaKey)
}

func (r *stateRepository) SaveEULALink(link string) error {
	return r.kv.Set(eulaKey, []byte(link))
}

func (r *stateRepository) PrivacyPolicyLink() (string, error) {
	return r.getString(privacyPolicyKey)
}

func (r *stateRepository) SavePrivacyPolicyLink(link string) error {
	return r.kv.Set(privacyPolicyKey, []byte(link))
}

func (r *stateRepository) ConfirmationEmail() (string, error) {
	return r.getString(confirmationEmailKey)
}

func (r *stateRepository) SaveConfirmationEmail(email string) error {
	return r.kv.Set(confirmationEmailKey, []byte(email))
}

func (r *stateRepository) getString(key string) (string, error) {
	value, err := r.kv.Get(key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil
		}

		return "", err
	}

	return string(value), nil
}

func (r *stateRepository) getBool(key string) (bool, error) {
	value, err := r.getString(key)
	if err != nil || value == "" {
		return false, err
	}

	return strconv.ParseBool(value)
}

func (r *stateRepository) setBool(key string, value bool) error {
	return r.kv.Set(key, []byte(strconv.FormatBool(value)))
}

func getJSON[T any](kv repository.KeyValue, key string) (*T, error) {
	raw, err := kv.Get(key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}

		return nil, err
	}

	value := new(T)
	if err := json.Unmarshal(raw, value); err != nil {
		return nil, errors.Wrapf(err, "decode stored %s", key)
	}

	return value, nil
}

func setJSON[T any](kv repository.KeyValue, key string, value T) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "encode %s", key)
	}

	return kv.Set(key, raw)
}

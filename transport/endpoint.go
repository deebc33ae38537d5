// Package transport implements the signed HTTP layer between the library and
// the entitlement backend: the endpoint table, the signed POST client with
// its single 500 retry, and the server-time comparison used by the
// clock-skew gate.
package transport

// Endpoint identifies one backend API route. The raw value is the path
// appended to the configured base URL.
type Endpoint string

const (
	// EndpointVerifyReceipt verifies a platform receipt and returns the
	// authoritative purchase list.
	EndpointVerifyReceipt Endpoint = "ios_verify_receipt"
	// EndpointSignInDevice registers or refreshes a device identity.
	EndpointSignInDevice Endpoint = "ios_device_signin/"
	// EndpointCheckDeviceID checks a candidate device id for uniqueness.
	EndpointCheckDeviceID Endpoint = "ios_check_device_id_uniqueness/"
	// EndpointSignInUser registers or refreshes a user account.
	EndpointSignInUser Endpoint = "ios_user_signin/"
	// EndpointDeleteUser deletes the server-side user record.
	EndpointDeleteUser Endpoint = "ios_delete_user/"
	// EndpointRequestAttempts reads the free-attempt counters.
	EndpointRequestAttempts Endpoint = "ios_request_free_attempt/"
	// EndpointConsumeAttempts consumes one free attempt.
	EndpointConsumeAttempts Endpoint = "ios_consume_free_attempt/"
	// EndpointRequestBonus reads the bonus-cycle counters.
	EndpointRequestBonus Endpoint = "ios_request_bonus_cycle/"
	// EndpointConsumeBonus consumes one bonus cycle.
	EndpointConsumeBonus Endpoint = "ios_consume_bonus_cycle/"
	// EndpointGetPurchases fetches the authoritative purchase list.
	EndpointGetPurchases Endpoint = "ios_get_user_purchases/"
	// EndpointAppInfo fetches app metadata (EULA, policy, product list).
	EndpointAppInfo Endpoint = "app_info"
	// EndpointProductIDs fetches the product-id list. Unsigned.
	EndpointProductIDs Endpoint = "ios_application_product_id_list"
	// EndpointLogout detaches the user account from the device.
	EndpointLogout Endpoint = "ios_user_logout"
	// EndpointMigrate links a legacy account to this install. One-shot.
	EndpointMigrate Endpoint = "ios_panda_user_transfer_login/"
	// EndpointRequestConsumables reads all consumable balances.
	EndpointRequestConsumables Endpoint = "ios_get_consumable_amounts/"
	// EndpointConsumeProduct decrements one consumable balance.
	EndpointConsumeProduct Endpoint = "ios_consume_product/"
)

// signatureQuery is the query-parameter prefix carrying the request hash.
const signatureQuery = "?signature="

// String returns the endpoint path.
func (e Endpoint) String() string {
	return string(e)
}

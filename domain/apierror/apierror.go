// Package apierror defines the closed error taxonomy every operation of the
// library settles with, and the classifier that maps server-declared error
// codes onto it. The code table is a server contract and must match the
// backend exactly.
package apierror

import "strconv"

// Kind names one failure class in the taxonomy. Two errors are considered
// equal when their kinds match; wrapped platform or transport detail is
// ignored for equality.
type Kind string

const (
	// KindNone is the absence of a server error (code 0 or no code).
	KindNone Kind = "none"
	// KindOther covers unrecognized server codes and malformed envelopes.
	KindOther Kind = "other"
	// KindSignatureInvalid means the server rejected the request signature.
	KindSignatureInvalid Kind = "signatureInvalid"
	// KindInvalidTimestamps means the signed timestamp fell outside the
	// server's tolerance window.
	KindInvalidTimestamps Kind = "invalidTimestamps"
	// KindInvalidEmail means the server rejected the submitted email.
	KindInvalidEmail Kind = "invalidEmail"
	// KindCannotConsumeAttempts means no free attempt was available to consume.
	KindCannotConsumeAttempts Kind = "cannotConsumeAttempts"
	// KindCannotConsumeBonus means no bonus cycle was available to consume.
	KindCannotConsumeBonus Kind = "cannotConsumeBonus"
	// KindEulaNotFound means the server has no EULA registered for the app.
	KindEulaNotFound Kind = "eulaNotFound"
	// KindPolicyNotFound means the server has no privacy policy registered.
	KindPolicyNotFound Kind = "policyNotFound"
	// KindConsumableExhausted means the consumable balance is authoritatively zero.
	KindConsumableExhausted Kind = "consumableExhausted"
	// KindCannotConsumeConsumable means the consume call was rejected.
	KindCannotConsumeConsumable Kind = "cannotConsumeConsumable"
	// KindBadResult means the response envelope did not carry the expected payload.
	KindBadResult Kind = "badResult"
	// KindServerError500 means the server failed twice with HTTP 500.
	KindServerError500 Kind = "serverError500"

	// KindResponseError is any other transport or decoding failure.
	KindResponseError Kind = "responseError"
	// KindNoConnection means the connectivity probe reported unreachable
	// before any network attempt.
	KindNoConnection Kind = "noConnection"
	// KindBadParameters means required parameters were missing locally; no
	// network call was made.
	KindBadParameters Kind = "badParameters"

	// KindCannotMakePayments means the platform store has payments disabled.
	KindCannotMakePayments Kind = "cannotMakePayments"
	// KindPaymentCancelled means the user dismissed the payment sheet.
	KindPaymentCancelled Kind = "paymentCancelled"
	// KindPurchaseFailed wraps a platform purchase failure.
	KindPurchaseFailed Kind = "purchaseFailed"
	// KindRestoreFailed wraps the platform failures of a restore pass.
	KindRestoreFailed Kind = "restoreFailed"
	// KindPurchaseReceiptValidationFailed means the receipt could not be
	// fetched or verified during a purchase flow.
	KindPurchaseReceiptValidationFailed Kind = "purchaseValidateReceiptFailed"
	// KindRestoreReceiptValidationFailed means the receipt could not be
	// fetched or verified during a restore flow.
	KindRestoreReceiptValidationFailed Kind = "restoreValidateReceiptFailed"

	// KindCredentialExpired means the credential provider revoked the account.
	KindCredentialExpired Kind = "credentialExpired"
	// KindOperationInFlight means a purchase or restore was started while an
	// earlier one had not settled yet.
	KindOperationInFlight Kind = "operationInFlight"
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	return string(k)
}

// Error is the single error type crossing the library's public boundary.
type Error struct {
	kind    Kind
	details []error
}

// New returns an Error of the given kind with no wrapped detail.
func New(kind Kind) *Error {
	return &Error{kind: kind}
}

// Wrap returns an Error of the given kind carrying underlying detail errors.
func Wrap(kind Kind, details ...error) *Error {
	return &Error{kind: kind, details: details}
}

// Kind returns the failure class of the error.
func (e *Error) Kind() Kind {
	return e.kind
}

// Details returns the wrapped underlying errors, if any.
func (e *Error) Details() []error {
	return e.details
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.details) == 0 {
		return string(e.kind)
	}
	msg := string(e.kind)
	for _, detail := range e.details {
		msg += ": " + detail.Error()
	}

	return msg
}

// Is reports kind-only equality, so errors.Is matches wrapped variants
// against their bare sentinels.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}

	return e.kind == other.kind
}

// Unwrap exposes the wrapped detail errors to the errors package.
func (e *Error) Unwrap() []error {
	return e.details
}

// Classify maps a numeric server error code to its Kind. Unrecognized codes
// map to KindOther; code zero means no error.
func Classify(code int) Kind {
	switch code {
	case 0:
		return KindNone
	case 1:
		return KindInvalidTimestamps
	case 30, 31:
		return KindSignatureInvalid
	case 32:
		return KindInvalidEmail
	case 73:
		return KindCannotConsumeAttempts
	case 74:
		return KindCannotConsumeBonus
	case 131:
		return KindEulaNotFound
	case 132:
		return KindPolicyNotFound
	case 158:
		return KindConsumableExhausted
	case 159:
		return KindCannotConsumeConsumable
	case 500:
		return KindServerError500
	case 1100:
		return KindBadResult
	default:
		return KindOther
	}
}

// ClassifyValue classifies the raw `code` field of a response envelope. The
// server sends codes as strings or numbers; anything non-numeric maps to
// KindOther, and an absent code (nil) means no error.
func ClassifyValue(value any) Kind {
	switch code := value.(type) {
	case nil:
		return KindNone
	case string:
		parsed, err := strconv.Atoi(code)
		if err != nil {
			return KindOther
		}

		return Classify(parsed)
	case float64:
		return Classify(int(code))
	case int:
		return Classify(code)
	default:
		return KindOther
	}
}

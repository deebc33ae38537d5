// Package entity contains the core business objects of the library.
package entity

// RegistrationSource identifies how the user account was established.
type RegistrationSource string

const (
	// RegistrationSourceNone means no account registration has happened.
	RegistrationSourceNone RegistrationSource = "none"
	// RegistrationSourceAppleID is sign-in with an Apple ID credential.
	RegistrationSourceAppleID RegistrationSource = "siwa"
	// RegistrationSourceEmailLink is sign-in through an email confirmation link.
	RegistrationSourceEmailLink RegistrationSource = "sev"
)

// String returns the string representation of the RegistrationSource.
func (s RegistrationSource) String() string {
	return string(s)
}

// IsValid checks if the RegistrationSource is a valid value.
func (s RegistrationSource) IsValid() bool {
	switch s {
	case RegistrationSourceNone, RegistrationSourceAppleID, RegistrationSourceEmailLink:
		return true
	default:
		return false
	}
}

// UserAccount is the locally persisted account record. It is created before
// the first registration call and mutated with server-confirmed verification
// state afterwards; logout deletes it.
type UserAccount struct {
	DeviceKey           string             `json:"device_id"`            // Device identity the account is bound to.
	UserID              string             `json:"user_id"`              // Provider-scoped user id, if known.
	AuthCode            string             `json:"auth_code"`            // One-shot authorization code from the credential provider.
	IdentityToken       string             `json:"identity_token"`       // Raw identity token (JWT) from the credential provider.
	GivenName           string             `json:"given_name"`           // Given name, if the provider shared it.
	FamilyName          string             `json:"family_name"`          // Family name, if the provider shared it.
	DisplayName         string             `json:"name"`                 // Display name, if known.
	Email               string             `json:"email"`                // Email address, if known.
	Source              RegistrationSource `json:"source"`               // How the account was established.
	IsVerified          bool               `json:"is_verified"`          // Server-confirmed email verification state.
	ConfirmationPending bool               `json:"confirmation_pending"` // True while an emailed confirmation code is still valid.
}

package service

import "context"

// CredentialState is the provider's answer about a stored credential.
type CredentialState int

const (
	// CredentialAuthorized means the credential is still valid.
	CredentialAuthorized CredentialState = iota
	// CredentialRevoked means the provider revoked the credential.
	CredentialRevoked
	// CredentialNotFound means the provider has no record of the credential.
	CredentialNotFound
)

// CredentialVerifier is the single pass/fail signal the platform's
// credential provider exposes. Everything beyond this check is out of scope.
type CredentialVerifier interface {
	// State reports whether the given provider user id still holds a valid
	// credential.
	State(ctx context.Context, userID string) (CredentialState, error)
}

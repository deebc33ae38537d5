package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"subskit/internal/errors"
)

// Signer computes the keyed hash embedded in every signed request URL.
type Signer struct {
	key []byte
}

// NewSigner derives the signing key from the obfuscated table and the
// configured salt character.
func NewSigner(salt byte) *Signer {
	return &Signer{key: []byte(SecretKey(salt))}
}

// CanonicalJSON serializes the parameter map in the canonical form both
// sides hash: encoding/json map output, which orders keys lexicographically
// with no extraneous whitespace. The ordering is an integration contract
// with the server; changing it breaks every signature.
func CanonicalJSON(params map[string]any) ([]byte, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return nil, errors.Wrap(err, "marshal signing payload")
	}

	return body, nil
}

// Hash returns the hex HMAC-SHA256 of the canonical serialization of params.
// The caller is expected to have added the timestamp field already.
func (s *Signer) Hash(params map[string]any) (string, error) {
	if len(s.key) == 0 {
		return "", errors.New("signer has no key")
	}
	payload, err := CanonicalJSON(params)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, s.key)
	mac.Write(payload)

	return hex.EncodeToString(mac.Sum(nil)), nil
}

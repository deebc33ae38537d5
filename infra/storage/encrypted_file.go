package storage

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"subskit/domain/repository"
	"subskit/internal/errors"
)

// hkdf salt for the file-store key derivation; changing it invalidates every
// existing store file.
var fileStoreSalt = []byte("subskit.storage.v1")

// encryptedFileStore is a keychain-like KeyValue backend: one file holding
// the whole map, sealed with ChaCha20-Poly1305 under a key derived from the
// configured passphrase. Writes rewrite the file atomically.
type encryptedFileStore struct {
	mu   sync.Mutex
	path string
	key  []byte
}

// NewEncryptedFileStore opens (or prepares to create) the encrypted store at
// path, deriving the sealing key from the passphrase.
func NewEncryptedFileStore(path, passphrase string) (repository.KeyValue, error) {
	if path == "" || passphrase == "" {
		return nil, errors.New("encrypted store requires a path and a passphrase")
	}

	key := make([]byte, chacha20poly1305.KeySize)
	reader := hkdf.New(sha256.New, []byte(passphrase), fileStoreSalt, nil)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, errors.Wrap(err, "derive store key")
	}

	return &encryptedFileStore{path: path, key: key}, nil
}

func (s *encryptedFileStore) Get(key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return nil, err
	}
	value, ok := values[key]
	if !ok {
		return nil, repository.ErrNotFound
	}

	return value, nil
}

func (s *encryptedFileStore) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}
	values[key] = value

	return s.flush(values)
}

func (s *encryptedFileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}
	delete(values, key)

	return s.flush(values)
}

func (s *encryptedFileStore) load() (map[string][]byte, error) {
	sealed, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string][]byte{}, nil
		}

		return nil, errors.Wrap(err, "read store file")
	}

	aead, err := chacha20poly1305.New(s.key)
	if err != nil {
		return nil, errors.Wrap(err, "init cipher")
	}
	if len(sealed) < aead.NonceSize() {
		return nil, errors.New("store file truncated")
	}

	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errors.Wrap(err, "unseal store file")
	}

	values := map[string][]byte{}
	if err := json.Unmarshal(plaintext, &values); err != nil {
		return nil, errors.Wrap(err, "decode store file")
	}

	return values, nil
}

func (s *encryptedFileStore) flush(values map[string][]byte) error {
	plaintext, err := json.Marshal(values)
	if err != nil {
		return errors.Wrap(err, "encode store file")
	}

	aead, err := chacha20poly1305.New(s.key)
	if err != nil {
		return errors.Wrap(err, "init cipher")
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return errors.Wrap(err, "generate nonce")
	}
	sealed := append(nonce, aead.Seal(nil, nonce, plaintext, nil)...)

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return errors.Wrap(err, "create store directory")
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, sealed, 0o600); err != nil {
		return errors.Wrap(err, "write store file")
	}

	return errors.Wrap(os.Rename(tmp, s.path), "replace store file")
}

package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subskit/domain/repository"
)

func TestEncryptedFileStore(t *testing.T) {
	t.Parallel()

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "state.bin")
		store, err := NewEncryptedFileStore(path, "passphrase")
		require.NoError(t, err)

		require.NoError(t, store.Set("k1", []byte("v1")))
		value, err := store.Get("k1")
		require.NoError(t, err)
		assert.Equal(t, []byte("v1"), value)

		require.NoError(t, store.Delete("k1"))
		_, err = store.Get("k1")
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("missing key before any write", func(t *testing.T) {
		t.Parallel()

		store, err := NewEncryptedFileStore(filepath.Join(t.TempDir(), "state.bin"), "passphrase")
		require.NoError(t, err)

		_, err = store.Get("absent")
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("values survive reopening", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "state.bin")
		store, err := NewEncryptedFileStore(path, "passphrase")
		require.NoError(t, err)
		require.NoError(t, store.Set("k1", []byte("v1")))

		reopened, err := NewEncryptedFileStore(path, "passphrase")
		require.NoError(t, err)
		value, err := reopened.Get("k1")
		require.NoError(t, err)
		assert.Equal(t, []byte("v1"), value)
	})

	t.Run("file bytes are sealed", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "state.bin")
		store, err := NewEncryptedFileStore(path, "passphrase")
		require.NoError(t, err)
		require.NoError(t, store.Set("secret-key", []byte("secret-value")))

		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.NotContains(t, string(raw), "secret-key")
		assert.NotContains(t, string(raw), "secret-value")
	})

	t.Run("wrong passphrase cannot open the store", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "state.bin")
		store, err := NewEncryptedFileStore(path, "passphrase")
		require.NoError(t, err)
		require.NoError(t, store.Set("k1", []byte("v1")))

		other, err := NewEncryptedFileStore(path, "different")
		require.NoError(t, err)
		_, err = other.Get("k1")
		assert.Error(t, err)
	})

	t.Run("rejects missing path or passphrase", func(t *testing.T) {
		t.Parallel()

		_, err := NewEncryptedFileStore("", "passphrase")
		assert.Error(t, err)
		_, err = NewEncryptedFileStore("state.bin", "")
		assert.Error(t, err)
	})
}

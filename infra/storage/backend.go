package storage

import (
	"go.uber.org/fx"

	"subskit/config"
	"subskit/domain/repository"
)

// BackendParams holds dependencies for the default KeyValue backend, injected by Fx.
type BackendParams struct {
	fx.In

	Config *config.Config
}

// NewBackend picks the KeyValue backend from configuration. Without a
// storage section it falls back to the in-memory store.
func NewBackend(params BackendParams) (repository.KeyValue, error) {
	cfg := params.Config.Storage
	if cfg == nil {
		return NewMemoryStore(), nil
	}

	switch cfg.Driver {
	case "sqlite":
		return NewSQLiteStore(cfg.Path)
	case "file":
		return NewEncryptedFileStore(cfg.Path, cfg.Passphrase)
	default:
		return NewMemoryStore(), nil
	}
}

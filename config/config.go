// Package config loads the library configuration from yaml files with
// environment-variable overrides.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

// DefaultSigningSalt seeds the signing-key decode when no salt is
// configured. The transport falls back to it too, so the value lives here
// only.
const DefaultSigningSalt = "$"

const (
	defaultPath            = "."
	defaultSkewToleranceMs = 60_000
	defaultRequestTimeout  = 30 * time.Second
)

type Config struct {
	Env struct {
		Env         string `json:"env" yaml:"env"`
		ServiceName string `json:"serviceName" yaml:"serviceName"`
		Debug       bool   `json:"debug" yaml:"debug"`
		Log         Log    `json:"log" yaml:"log"`
	} `json:"env" yaml:"env"`

	API struct {
		// BaseURL is the root of all signed endpoints.
		BaseURL string `json:"baseUrl" yaml:"baseUrl" validate:"required,url"`
		// TimeAuthorityURL is the unsigned server-time endpoint used by the
		// clock-skew gate.
		TimeAuthorityURL string `json:"timeAuthorityUrl" yaml:"timeAuthorityUrl" validate:"required,url"`
		// SigningSalt is the salt character fed into the signing-key
		// derivation. Must match the server deployment.
		SigningSalt string `json:"signingSalt" yaml:"signingSalt"`
		// SkewToleranceMs is the fallback clock-skew tolerance when the time
		// authority does not supply one.
		SkewToleranceMs int64         `json:"skewToleranceMs" yaml:"skewToleranceMs"`
		RequestTimeout  time.Duration `json:"requestTimeout" yaml:"requestTimeout"`
	} `json:"api" yaml:"api"`

	App struct {
		// BundleID identifies the application to the backend on every call.
		BundleID string `json:"bundleId" yaml:"bundleId" validate:"required"`
		// Locale, DeviceModel and OSVersion are reported during device
		// registration.
		Locale      string `json:"locale" yaml:"locale"`
		DeviceModel string `json:"deviceModel" yaml:"deviceModel"`
		OSVersion   string `json:"osVersion" yaml:"osVersion"`
	} `json:"app" yaml:"app"`

	Storage *StorageConfig `json:"storage" yaml:"storage"`
}

// StorageConfig selects and parameterizes the default persisted-state store.
type StorageConfig struct {
	// Driver is "file" for the encrypted file store or "sqlite" for the
	// gorm-backed store.
	Driver string `json:"driver" yaml:"driver" validate:"omitempty,oneof=file sqlite"`
	// Path is the backing file location.
	Path string `json:"path" yaml:"path"`
	// Passphrase protects the encrypted file store.
	Passphrase string `json:"passphrase" yaml:"passphrase"`
}

type Log struct {
	Pretty bool   `json:"pretty" yaml:"pretty"`
	Level  string `json:"level" yaml:"level"`
}

// LoadWithEnv loads .yaml files through koanf.
func LoadWithEnv[T any](currEnv string, configPath ...string) (*T, error) {
	cfg := new(T)
	koanfInstance := koanf.New(".")

	// Build list of paths to search for config file
	searchPaths := []string{defaultPath}
	if len(configPath) != 0 {
		pwd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "os.Getwd")
		}
		for _, path := range configPath {
			abs := filepath.Join(pwd, path)
			searchPaths = append(searchPaths, abs)
		}
	}

	// Try to find and load the config file
	var configFile string
	var found bool
	for _, path := range searchPaths {
		candidate := filepath.Join(path, currEnv+".yaml")
		if _, err := os.Stat(candidate); err == nil {
			configFile = candidate
			found = true

			break
		}
	}

	if !found {
		return nil, errors.Errorf("config file %s.yaml not found in any search path", currEnv)
	}

	// Load YAML config file
	if err := koanfInstance.Load(file.Provider(configFile), yaml.Parser()); err != nil {
		return nil, errors.Wrapf(err, "read %s config failed", currEnv)
	}

	existingConfigMap := koanfInstance.Raw()

	// Load environment variables
	if err := koanfInstance.Load(env.Provider(".", env.Opt{
		TransformFunc: func(k, v string) (string, any) {
			// Convert ENV_VAR_NAME to path and align each segment with existing YAML keys.
			// Example: API_BASEURL -> api.baseUrl (not api.baseurl)
			key := canonicalizeEnvKey(k, existingConfigMap)

			return key, v
		},
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load env variables failed")
	}

	// Unmarshal into the config struct (case-insensitive to match env vars)
	if err := koanfInstance.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
			MatchName: func(mapKey, fieldName string) bool {
				// Case-insensitive matching for env var overrides
				return strings.EqualFold(mapKey, fieldName)
			},
		},
	}); err != nil {
		return nil, errors.Wrapf(err, "unmarshal %s config failed", currEnv)
	}

	return cfg, nil
}

func New() (*Config, error) {
	cfg, err := LoadWithEnv[Config]("config", "config", "../config", "../../config")
	if err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()

	if err := validator.New().Struct(cfg); err != nil {
		return nil, errors.Wrap(err, "validate config")
	}

	return cfg, nil
}

// ApplyDefaults fills the optional fields a shell may omit.
func (c *Config) ApplyDefaults() {
	if strings.TrimSpace(c.API.SigningSalt) == "" {
		c.API.SigningSalt = DefaultSigningSalt
	}
	if c.API.SkewToleranceMs <= 0 {
		c.API.SkewToleranceMs = defaultSkewToleranceMs
	}
	if c.API.RequestTimeout <= 0 {
		c.API.RequestTimeout = defaultRequestTimeout
	}
}

func canonicalizeEnvKey(rawKey string, existing map[string]any) string {
	segments := strings.Split(strings.ToLower(rawKey), "_")
	canonical := make([]string, 0, len(segments))
	current := existing

	for _, segment := range segments {
		if segment == "" {
			continue
		}

		if matched, next, ok := findExistingSegment(current, segment); ok {
			canonical = append(canonical, matched)
			current = next
		} else {
			canonical = append(canonical, segment)
			current = nil
		}
	}

	return strings.Join(canonical, ".")
}

func findExistingSegment(current map[string]any, segment string) (matched string, next map[string]any, ok bool) {
	if len(current) == 0 {
		return "", nil, false
	}

	needle := normalizeToken(segment)
	for key, value := range current {
		if normalizeToken(key) != needle {
			continue
		}

		child, _ := value.(map[string]any)

		return key, child, true
	}

	return "", nil, false
}

func normalizeToken(s string) string {
	var normalized strings.Builder
	normalized.Grow(len(s))

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		normalized.WriteRune(unicode.ToLower(r))
	}

	return normalized.String()
}

package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	env "github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "APP_"

// ErrInvalidProfile is returned for a profile name that is empty or is not a
// plain file name inside the config directory.
var ErrInvalidProfile = errors.New("invalid config profile")

// Option configures Load.
type Option func(*loadOptions)

type loadOptions struct {
	configDir string
}

// WithConfigDir reads the YAML files from dir instead of ./configs.
func WithConfigDir(dir string) Option {
	return func(o *loadOptions) { o.configDir = dir }
}

// Load builds the Config for profile. Later layers override earlier ones:
//
//  1. built-in defaults
//  2. {configDir}/base.yaml
//  3. {configDir}/{profile}.yaml
//  4. APP_* environment variables
//
// An environment variable names a key by joining its path with underscores,
// so APP_STORAGE_POSTGRES_DSN sets storage.postgres.dsn and
// APP_CLIENT_RETRY_MAX_ATTEMPTS sets client.retry.max_attempts. Keys that
// contain underscores themselves are resolved against the keys the lower
// layers defined.
func Load(profile string, opts ...Option) (*Config, error) {
	if profile = strings.TrimSpace(profile); profile == "" || profile != filepath.Base(profile) ||
		strings.HasPrefix(profile, ".") || strings.ContainsAny(profile, `/\`) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidProfile, profile)
	}

	o := loadOptions{configDir: "configs"}
	for _, opt := range opts {
		opt(&o)
	}

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}
	for _, name := range []string{"base", profile} {
		path := filepath.Join(o.configDir, name+".yaml")
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(".", env.Opt{
		Prefix:        envPrefix,
		TransformFunc: envKeyMapper(k.Keys()),
	}), nil); err != nil {
		return nil, fmt.Errorf("loading %s* environment: %w", envPrefix, err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config for profile %q: %w", profile, err)
	}
	return &cfg, nil
}

// envKeyMapper maps APP_SERVER_READ_TIMEOUT to "server.read_timeout" when
// that key is known, and falls back to turning every underscore into a dot.
func envKeyMapper(known []string) func(key, value string) (string, any) {
	byEnvName := make(map[string]string, len(known))
	for _, key := range known {
		byEnvName[strings.ReplaceAll(key, ".", "_")] = key
	}
	return func(key, value string) (string, any) {
		name := strings.ToLower(strings.TrimPrefix(key, envPrefix))
		if known, ok := byEnvName[name]; ok {
			return known, value
		}
		return strings.ReplaceAll(name, "_", "."), value
	}
}

// Package secrets resolves credentials, such as the graph store password,
// that should not live in the config file.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
)

// SecretKey identifies a secret fascraft knows how to look up.
type SecretKey string

const (
	SecretGraphPassword SecretKey = "graph_password"
	SecretNeo4jPassword SecretKey = "neo4j_password"
)

// ErrNotFound is returned when no provider holds the secret.
var ErrNotFound = errors.New("secret not found")

// Provider is a secret backend.
type Provider interface {
	Get(ctx context.Context, key string) (string, error)
	Name() string
}

// Config configures the secrets manager.
type Config struct {
	// Provider is "env" or "file".
	Provider string `mapstructure:"provider"`
	// File is the JSON secrets file read by the file provider.
	File      string `mapstructure:"file"`
	EnvPrefix string `mapstructure:"env_prefix"`
}

// DefaultConfig returns the env-based configuration.
func DefaultConfig() *Config {
	return &Config{
		Provider:  "env",
		EnvPrefix: "FASCRAFT_",
	}
}

// Manager reads from a primary provider, falls back to the environment and
// caches what it finds.
type Manager struct {
	primary  Provider
	fallback Provider
	cache    map[string]string
	cacheMu  sync.RWMutex
}

// NewManager creates a secrets manager from cfg. A nil cfg uses the
// environment only.
func NewManager(cfg *Config) (*Manager, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	env := NewEnvProvider(cfg.EnvPrefix)
	m := &Manager{primary: env, cache: make(map[string]string)}

	switch cfg.Provider {
	case "env", "":
	case "file":
		fp, err := NewFileProvider(cfg.File)
		if err != nil {
			return nil, fmt.Errorf("create file provider: %w", err)
		}
		m.primary, m.fallback = fp, env
	default:
		return nil, fmt.Errorf("unknown secrets provider: %s", cfg.Provider)
	}
	return m, nil
}

// Get retrieves a secret, trying the primary provider then the fallback.
func (m *Manager) Get(ctx context.Context, key string) (string, error) {
	m.cacheMu.RLock()
	val, ok := m.cache[key]
	m.cacheMu.RUnlock()
	if ok {
		return val, nil
	}

	for _, p := range []Provider{m.primary, m.fallback} {
		if p == nil {
			continue
		}
		if val, err := p.Get(ctx, key); err == nil && val != "" {
			m.cacheMu.Lock()
			m.cache[key] = val
			m.cacheMu.Unlock()
			return val, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, key)
}

// Lookup returns the first of keys that resolves.
func (m *Manager) Lookup(ctx context.Context, keys ...SecretKey) (string, error) {
	for _, k := range keys {
		if val, err := m.Get(ctx, string(k)); err == nil {
			return val, nil
		}
	}
	return "", fmt.Errorf("%w: %v", ErrNotFound, keys)
}

// GetOrDefault retrieves a secret or returns defaultVal.
func (m *Manager) GetOrDefault(ctx context.Context, key, defaultVal string) string {
	val, err := m.Get(ctx, key)
	if err != nil {
		return defaultVal
	}
	return val
}

// ClearCache forgets every cached secret.
func (m *Manager) ClearCache() {
	m.cacheMu.Lock()
	m.cache = make(map[string]string)
	m.cacheMu.Unlock()
}

// EnvProvider reads secrets from environment variables.
type EnvProvider struct {
	prefix string
}

// NewEnvProvider creates an environment-based provider. Keys are upper-cased
// and looked up with the prefix first, then without it.
func NewEnvProvider(prefix string) *EnvProvider {
	if prefix == "" {
		prefix = "FASCRAFT_"
	}
	return &EnvProvider{prefix: prefix}
}

func (p *EnvProvider) Name() string { return "env" }

func (p *EnvProvider) Get(ctx context.Context, key string) (string, error) {
	envKey := p.prefix + strings.ToUpper(key)
	if val := os.Getenv(envKey); val != "" {
		return val, nil
	}
	if val := os.Getenv(strings.ToUpper(key)); val != "" {
		return val, nil
	}
	return "", fmt.Errorf("env var not found: %s", envKey)
}

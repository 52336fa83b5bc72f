package types

import (
	"errors"
	"time"
)

// Config selects the backend a session talks to and tunes the mutation
// handler.
type Config struct {
	Backend  string         `json:"backend" yaml:"backend" mapstructure:"backend"`
	DataDir  string         `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`
	API      APIConfig      `json:"api" yaml:"api" mapstructure:"api"`
	Mutation MutationConfig `json:"mutation" yaml:"mutation" mapstructure:"mutation"`
}

// APIConfig configures the REST backend.
type APIConfig struct {
	BaseURL string        `json:"base_url" yaml:"base_url" mapstructure:"base_url"`
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// MutationConfig configures optimistic mutations. A zero ConfirmTimeout
// waits for the backend indefinitely.
type MutationConfig struct {
	ConfirmTimeout time.Duration `json:"confirm_timeout" yaml:"confirm_timeout" mapstructure:"confirm_timeout"`
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
	BackendHTTP   = "http"
)

// Config validation errors.
var (
	ErrBackendEmpty    = errors.New("backend must not be empty")
	ErrBackendUnknown  = errors.New("unknown backend")
	ErrBaseURLEmpty    = errors.New("api.base_url must be set for the http backend")
	ErrTimeoutNegative = errors.New("timeouts must not be negative")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite: true,
	BackendHTTP:   true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if c.Backend == BackendHTTP && c.API.BaseURL == "" {
		return ErrBaseURLEmpty
	}
	if c.API.Timeout < 0 || c.Mutation.ConfirmTimeout < 0 {
		return ErrTimeoutNegative
	}
	return nil
}

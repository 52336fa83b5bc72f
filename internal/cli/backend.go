package cli

import (
	"fmt"
	"net/url"

	"github.com/mesh-intelligence/marketdesk/internal/api"
	"github.com/mesh-intelligence/marketdesk/internal/sqlite"
	"github.com/mesh-intelligence/marketdesk/pkg/types"
)

// openRemote returns the backend selected by the configuration and a
// function that releases it.
func (a *app) openRemote() (types.Remote, func(), error) {
	switch a.config.Backend {
	case types.BackendHTTP:
		base, err := url.Parse(a.config.API.BaseURL)
		if err != nil || base.Scheme == "" || base.Host == "" {
			return nil, nil, userError(fmt.Errorf("invalid api.base_url %q", a.config.API.BaseURL))
		}
		opts := []api.OptionFunc{api.WithBaseURL(base)}
		if a.config.API.Timeout > 0 {
			opts = append(opts, api.WithTimeout(a.config.API.Timeout))
		}
		return api.New(opts...), func() {}, nil
	default:
		backend, err := a.attachSQLite()
		if err != nil {
			return nil, nil, err
		}
		return backend, func() { backend.Detach() }, nil
	}
}

// attachSQLite attaches the local backend on the configured data
// directory. The caller must Detach it.
func (a *app) attachSQLite() (*sqlite.Backend, error) {
	backend := sqlite.NewBackend(sqlite.WithLogger(a.logger))
	cfg := a.config
	cfg.Backend = types.BackendSQLite
	if err := backend.Attach(cfg); err != nil {
		return nil, sysError(fmt.Errorf("attach backend: %w", err))
	}
	return backend, nil
}

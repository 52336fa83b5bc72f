package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/mesh-intelligence/marketdesk/internal/paths"
	"github.com/mesh-intelligence/marketdesk/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	envPrefix = "MARKETDESK"

	cfgKeyBackend        = "backend"
	cfgKeyDataDir        = "data_dir"
	cfgKeyAPIBaseURL     = "api.base_url"
	cfgKeyAPITimeout     = "api.timeout"
	cfgKeyConfirmTimeout = "mutation.confirm_timeout"

	defaultBackend        = types.BackendSQLite
	defaultAPITimeout     = 30 * time.Second
	defaultConfirmTimeout = 15 * time.Second
)

// defaultConfigYAML is the content written to config.yaml on first run.
const defaultConfigYAML = `# desk configuration

# Backend: sqlite (local data directory) or http (REST API)
backend: sqlite

# Data directory of the sqlite backend (optional; overridable by --data-dir)
# data_dir:

api:
  # Root of the REST API; records live at {base_url}/{kind}
  # base_url: https://market.example.com/api/v1
  timeout: 30s

mutation:
  # How long an optimistic edit waits for the backend before rolling back
  confirm_timeout: 15s
`

// loadConfig reads config.yaml from configDir using Viper, creating the
// directory and a default file on first run. Every key can be overridden
// by a MARKETDESK_ environment variable, e.g. MARKETDESK_API_BASE_URL.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyBackend, defaultBackend)
	v.SetDefault(cfgKeyDataDir, "")
	v.SetDefault(cfgKeyAPIBaseURL, "")
	v.SetDefault(cfgKeyAPITimeout, defaultAPITimeout)
	v.SetDefault(cfgKeyConfirmTimeout, defaultConfirmTimeout)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// ensureDefaultConfigFile creates a default config.yaml if the file does not
// exist in the config directory.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}

// decodeConfig turns the loaded settings into a validated types.Config. The
// data directory follows paths.ResolveDataDir precedence with dataDirFlag
// as the flag value.
func decodeConfig(v *viper.Viper, dataDirFlag string) (types.Config, error) {
	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, userError(fmt.Errorf("decode config: %w", err))
	}

	dataDir, err := paths.ResolveDataDir(dataDirFlag, cfg.DataDir)
	if err != nil {
		return types.Config{}, sysError(fmt.Errorf("resolve data dir: %w", err))
	}
	cfg.DataDir = dataDir

	if err := cfg.Validate(); err != nil {
		return types.Config{}, userError(fmt.Errorf("invalid config: %w", err))
	}
	return cfg, nil
}

package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/kbukum/vaultkit/errors"
	"github.com/kbukum/vaultkit/logger"
	"github.com/kbukum/vaultkit/observability"
	"github.com/kbukum/vaultkit/security"
	"github.com/kbukum/vaultkit/validation"
	"github.com/kbukum/vaultkit/version"
)

// DefaultAddress is the Vault address used when none is configured.
const DefaultAddress = "https://127.0.0.1:8200"

// TokenHelperFile is the file, relative to the home directory, holding the
// token written by `vault login`.
const TokenHelperFile = ".vault-token"

// VaultConfig holds the connection settings for one Vault server.
type VaultConfig struct {
	Address       string        `yaml:"address" mapstructure:"address" json:"address" validate:"required,http_url"`
	Token         string        `yaml:"token" mapstructure:"token" json:"-"`
	Namespace     string        `yaml:"namespace" mapstructure:"namespace" json:"namespace"`
	CACert        string        `yaml:"ca_cert" mapstructure:"ca_cert" json:"ca_cert"`
	CAPath        string        `yaml:"ca_path" mapstructure:"ca_path" json:"ca_path"`
	ClientCert    string        `yaml:"client_cert" mapstructure:"client_cert" json:"client_cert"`
	ClientKey     string        `yaml:"client_key" mapstructure:"client_key" json:"client_key"`
	TLSServerName string        `yaml:"tls_server_name" mapstructure:"tls_server_name" json:"tls_server_name"`
	SkipVerify    bool          `yaml:"skip_verify" mapstructure:"skip_verify" json:"skip_verify"`
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout" json:"timeout" validate:"gte=0"`
	Proxy         string        `yaml:"proxy" mapstructure:"proxy" json:"proxy" validate:"omitempty,url"`
	StrictHTTP    bool          `yaml:"strict_http" mapstructure:"strict_http" json:"strict_http"`
	MaxRedirects  int           `yaml:"max_redirects" mapstructure:"max_redirects" json:"max_redirects" validate:"gte=0"`
	Logging       logger.Config `yaml:"logging" mapstructure:"logging" json:"-"`

	// Service names the program embedding vaultkit in telemetry.
	Service   BaseConfig                    `yaml:"service" mapstructure:"service" json:"-"`
	Telemetry observability.TelemetryConfig `yaml:"telemetry" mapstructure:"telemetry" json:"-"`
}

// vaultEnv maps VaultConfig keys to the environment variables the Vault CLI
// reads, followed by vaultkit's own.
var vaultEnv = map[string]string{
	"address":         "VAULT_ADDR",
	"token":           "VAULT_TOKEN",
	"namespace":       "VAULT_NAMESPACE",
	"ca_cert":         "VAULT_CACERT",
	"ca_path":         "VAULT_CAPATH",
	"client_cert":     "VAULT_CLIENT_CERT",
	"client_key":      "VAULT_CLIENT_KEY",
	"tls_server_name": "VAULT_TLS_SERVER_NAME",
	"skip_verify":     "VAULT_SKIP_VERIFY",
	"timeout":         "VAULT_CLIENT_TIMEOUT",
	"proxy":           "VAULT_HTTP_PROXY",
	"strict_http":     "VAULT_STRICT_HTTP",
	"max_redirects":   "VAULT_MAX_REDIRECTS",

	"logging.level":      "VAULTKIT_LOG_LEVEL",
	"logging.format":     "VAULTKIT_LOG_FORMAT",
	"telemetry.enabled":  "VAULTKIT_TELEMETRY",
	"telemetry.endpoint": "OTEL_EXPORTER_OTLP_ENDPOINT",
	"service.name":       "OTEL_SERVICE_NAME",
}

// ApplyDefaults applies default values to the Vault configuration.
func (c *VaultConfig) ApplyDefaults() {
	if c.Address == "" {
		c.Address = DefaultAddress
	}
	c.Address = strings.TrimRight(c.Address, "/")
	c.Logging.ApplyDefaults()

	if c.Service.Name == "" {
		c.Service.Name = "vaultkit"
	}
	if c.Service.Version == "" {
		c.Service.Version = version.GetVersionInfo().Version
	}
	c.Service.ApplyDefaults()
	if c.Telemetry.Environment == "" {
		c.Telemetry.Environment = c.Service.Environment
	}
	c.Telemetry.ApplyDefaults()
}

// Validate validates the Vault configuration.
func (c *VaultConfig) Validate() error {
	if err := validation.Validate(c); err != nil {
		return errors.Wrap(errors.KindConfig, err, "invalid vault configuration")
	}
	if (c.ClientCert == "") != (c.ClientKey == "") {
		return errors.New(errors.KindConfig, "client_cert and client_key must be set together")
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	if err := c.Service.Validate(); err != nil {
		return err
	}
	return c.Telemetry.Validate()
}

// TLS returns the TLS settings, or nil when none are configured.
func (c *VaultConfig) TLS() *security.TLSConfig {
	tlsCfg := &security.TLSConfig{
		SkipVerify: c.SkipVerify,
		CAFile:     c.CACert,
		CAPath:     c.CAPath,
		CertFile:   c.ClientCert,
		KeyFile:    c.ClientKey,
		ServerName: c.TLSServerName,
	}
	if !tlsCfg.IsEnabled() {
		return nil
	}
	return tlsCfg
}

// LoadVault loads a VaultConfig from the config file's "vault" section and
// the VAULT_* environment, then applies defaults and validates it.
func LoadVault(opts ...LoaderOption) (*VaultConfig, error) {
	lc := newLoaderConfig(opts)
	resolver := &Resolver{FileSystem: lc.FileSystem}
	files := resolver.ResolveFiles("vaultkit", lc)

	v := newViper(files, lc.FileSystem)
	for key, env := range vaultEnv {
		if err := v.BindEnv("vault."+key, env); err != nil {
			return nil, errors.Wrap(errors.KindConfig, err, "binding "+env)
		}
	}

	var root struct {
		Vault VaultConfig `mapstructure:"vault"`
	}
	if err := unmarshal(v, &root); err != nil {
		return nil, errors.Wrap(errors.KindConfig, err, "invalid vault configuration")
	}
	cfg := &root.Vault
	cfg.Token = strings.TrimSpace(cfg.Token)

	if cfg.Token == "" {
		cfg.Token = readTokenHelper(lc)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// readTokenHelper returns the trimmed contents of the token helper file, or
// "" when it is missing.
func readTokenHelper(lc LoaderConfig) string {
	path := lc.TokenFile
	if path == "" {
		home, err := lc.FileSystem.HomeDir()
		if err != nil || home == "" {
			return ""
		}
		path = filepath.Join(home, TokenHelperFile)
	}
	if !lc.FileSystem.Exists(path) {
		return ""
	}
	data, err := lc.FileSystem.ReadFile(path)
	if err != nil {
		logger.Get("config").Warn("failed to read token helper file", logger.Fields("file", path, "error", err.Error()))
		return ""
	}
	return strings.TrimSpace(string(data))
}

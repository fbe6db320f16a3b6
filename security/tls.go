package security

import (
	"crypto/tls"

	"github.com/hashicorp/go-rootcerts"

	"github.com/kbukum/vaultkit/errors"
)

// TLSConfig is the TLS material presented to Vault. A nil or zero value
// means the transport's defaults: system roots and no client certificate.
type TLSConfig struct {
	// SkipVerify is VAULT_SKIP_VERIFY. Never set it against production.
	SkipVerify bool `yaml:"skip_verify" mapstructure:"skip_verify"`

	// CA sources, tried by go-rootcerts in this order: CAPEM, CAFile
	// (VAULT_CACERT), CAPath (VAULT_CAPATH).
	CAFile string `yaml:"ca_file" mapstructure:"ca_file"`
	CAPath string `yaml:"ca_path" mapstructure:"ca_path"`
	CAPEM  []byte `yaml:"-" mapstructure:"-"`

	// CertFile and KeyFile are the client pair for the cert auth method
	// (VAULT_CLIENT_CERT, VAULT_CLIENT_KEY).
	CertFile string `yaml:"cert_file" mapstructure:"cert_file"`
	KeyFile  string `yaml:"key_file" mapstructure:"key_file"`

	// ServerName is VAULT_TLS_SERVER_NAME.
	ServerName string `yaml:"server_name" mapstructure:"server_name"`

	// MinVersion defaults to TLS 1.2.
	MinVersion uint16 `yaml:"min_version" mapstructure:"min_version"`
}

// IsEnabled reports whether any setting differs from the defaults.
func (c *TLSConfig) IsEnabled() bool {
	return c != nil && (c.SkipVerify || c.hasCA() || c.CertFile != "" || c.ServerName != "")
}

func (c *TLSConfig) hasCA() bool {
	return c.CAFile != "" || c.CAPath != "" || len(c.CAPEM) > 0
}

// Validate requires the client certificate and key to come as a pair.
func (c *TLSConfig) Validate() error {
	if c != nil && (c.CertFile == "") != (c.KeyFile == "") {
		return errors.New(errors.KindConfig, "security/tls: cert_file and key_file must be set together").
			WithDetail("field", "cert_file")
	}
	return nil
}

// Build returns the *tls.Config for the transport, or nil when IsEnabled
// is false. Unreadable CA or client material is a KindConfig error.
func (c *TLSConfig) Build() (*tls.Config, error) {
	if !c.IsEnabled() {
		return nil, nil
	}

	out := &tls.Config{
		InsecureSkipVerify: c.SkipVerify, //nolint:gosec // VAULT_SKIP_VERIFY
		ServerName:         c.ServerName,
		MinVersion:         c.MinVersion,
	}
	if out.MinVersion == 0 {
		out.MinVersion = tls.VersionTLS12
	}

	if c.hasCA() {
		err := rootcerts.ConfigureTLS(out, &rootcerts.Config{
			CAFile:        c.CAFile,
			CAPath:        c.CAPath,
			CACertificate: c.CAPEM,
		})
		if err != nil {
			return nil, errors.Wrap(errors.KindConfig, err, "security/tls: loading CA certificates")
		}
	}

	if c.CertFile != "" && c.KeyFile != "" {
		pair, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
		if err != nil {
			return nil, errors.Wrap(errors.KindConfig, err, "security/tls: loading client certificate").
				WithDetail("cert_file", c.CertFile)
		}
		out.Certificates = []tls.Certificate{pair}
	}
	return out, nil
}

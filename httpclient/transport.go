package httpclient

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	stderrors "errors"
	"net"
	"net/http"
	"net/url"

	cleanhttp "github.com/hashicorp/go-cleanhttp"
	"golang.org/x/net/http2"

	"github.com/kbukum/vaultkit/errors"
)

// newHTTPClient builds the client the adapter sends with. The second return
// value reports whether the adapter owns the transport.
func newHTTPClient(cfg Config) (*http.Client, bool, error) {
	if cfg.HTTPClient != nil {
		c := *cfg.HTTPClient
		c.CheckRedirect = noFollow
		return &c, false, nil
	}

	transport := cleanhttp.DefaultPooledTransport()

	tlsCfg, err := cfg.TLS.Build()
	if err != nil {
		return nil, false, errors.Wrap(errors.KindConfig, err, "httpclient: building tls config")
	}
	if tlsCfg != nil {
		transport.TLSClientConfig = tlsCfg
	}

	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, false, errors.Wrap(errors.KindConfig, err, "httpclient: invalid proxy url")
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	if err := http2.ConfigureTransport(transport); err != nil {
		return nil, false, errors.Wrap(errors.KindConfig, err, "httpclient: enabling http2")
	}

	return &http.Client{
		Transport:     transport,
		Timeout:       cfg.Timeout,
		CheckRedirect: noFollow,
	}, true, nil
}

// noFollow hands every 3xx back to the adapter, which re-issues the
// original verb itself.
func noFollow(*http.Request, []*http.Request) error {
	return http.ErrUseLastResponse
}

// transportError classifies a failed exchange as KindTimeout or KindTransport.
func transportError(err error, method, target string) *errors.VaultError {
	var (
		netErr    net.Error
		dnsErr    *net.DNSError
		verifyErr *tls.CertificateVerificationError
		unknownCA x509.UnknownAuthorityError
		hostErr   x509.HostnameError
		recordErr tls.RecordHeaderError
	)

	kind := errors.KindTransport
	msg := "request failed"
	switch {
	case stderrors.Is(err, context.DeadlineExceeded),
		stderrors.As(err, &netErr) && netErr.Timeout():
		kind, msg = errors.KindTimeout, "request timed out"
	case stderrors.Is(err, context.Canceled):
		msg = "request canceled"
	case stderrors.As(err, &dnsErr):
		msg = "dns lookup failed"
	case stderrors.As(err, &verifyErr), stderrors.As(err, &unknownCA),
		stderrors.As(err, &hostErr), stderrors.As(err, &recordErr):
		msg = "tls handshake failed"
	}
	return errors.Wrap(kind, err, msg).WithRequest(method, target)
}

package vault

import (
	"context"
	"net/http"
)

// PKI is the pki secrets engine, mounted at "pki" by default. Its
// certificate endpoints answer with PEM text, not JSON.
type PKI struct{ category }

// ReadCACertificate returns the issuing CA certificate as PEM.
func (p *PKI) ReadCACertificate(ctx context.Context, opts ...CallOption) (string, error) {
	return p.readPEM(ctx, "ca/pem", opts)
}

// ReadCAChain returns the CA chain as concatenated PEM blocks.
func (p *PKI) ReadCAChain(ctx context.Context, opts ...CallOption) (string, error) {
	return p.readPEM(ctx, "ca_chain", opts)
}

// ReadCRL returns the current CRL as PEM.
func (p *PKI) ReadCRL(ctx context.Context, opts ...CallOption) (string, error) {
	return p.readPEM(ctx, "crl/pem", opts)
}

func (p *PKI) readPEM(ctx context.Context, endpoint string, opts []CallOption) (string, error) {
	o := newCallOptions("pki", opts)
	resp, err := p.do(ctx, http.MethodGet, apiPath(o.mount, endpoint), nil, o.request())
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

package vaulttest

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/kbukum/vaultkit/component"
	"github.com/kbukum/vaultkit/errors"
	"github.com/kbukum/vaultkit/observability"
	"github.com/kbukum/vaultkit/security/tlstest"
	"github.com/kbukum/vaultkit/testutil"
)

// Version is reported by sys/health.
const Version = "1.16.0"

func init() {
	gin.SetMode(gin.TestMode)
}

// Request is one request the server received.
type Request struct {
	Method    string
	Path      string
	Query     url.Values
	Header    http.Header
	Body      []byte
	Namespace string
}

// Server is an in-memory Vault serving the endpoints vaultkit talks to.
type Server struct {
	t         testing.TB
	rootToken string
	useTLS    bool
	mutualTLS bool
	certs     *tlstest.TLSCerts
	crl       []byte
	jwtKey    []byte

	engine *gin.Engine
	srv    *httptest.Server

	mu       sync.Mutex
	state    *state
	requests []Request
}

var _ testutil.TestComponent = (*Server)(nil)

// Option configures a Server.
type Option func(*Server)

// WithRootToken fixes the root token instead of generating one.
func WithRootToken(token string) Option {
	return func(s *Server) { s.rootToken = token }
}

// WithTLS serves over TLS with a certificate signed by Certs().CAFile.
func WithTLS() Option {
	return func(s *Server) { s.useTLS = true }
}

// WithClientAuth serves over TLS and requires a client certificate signed
// by the same CA, such as Certs().ClientCertFile.
func WithClientAuth() Option {
	return func(s *Server) { s.useTLS, s.mutualTLS = true, true }
}

// New creates a stopped Server. The CA it reports through the pki mount
// is also the one that signs its TLS certificate.
func New(t testing.TB, opts ...Option) *Server {
	t.Helper()
	s := &Server{
		t:      t,
		certs:  tlstest.GenerateTLSCerts(t),
		jwtKey: []byte(newID()),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.crl = s.certs.CRLPEM(t)
	if s.rootToken == "" {
		s.rootToken = newToken()
	}
	s.state = newState(s.rootToken)
	s.engine = s.routes()
	return s
}

// Run creates and starts a Server and stops it when the test ends.
func Run(t testing.TB, opts ...Option) *Server {
	t.Helper()
	s := New(t, opts...)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("vaulttest: start: %v", err)
	}
	t.Cleanup(func() { _ = s.Stop(context.Background()) })
	return s
}

// Name returns the component name.
func (s *Server) Name() string { return "vaulttest" }

// Start begins serving on a loopback port.
func (s *Server) Start(_ context.Context) error {
	if s.srv != nil {
		return errors.New(errors.KindConfig, "vaulttest: already started")
	}
	srv := httptest.NewUnstartedServer(s.engine)
	if s.useTLS {
		srv.TLS = &tls.Config{
			Certificates: []tls.Certificate{s.certs.ServerTLS},
			MinVersion:   tls.VersionTLS12,
		}
		if s.mutualTLS {
			srv.TLS.ClientAuth = tls.RequireAndVerifyClientCert
			srv.TLS.ClientCAs = s.certs.CertPool
		}
		srv.StartTLS()
	} else {
		srv.Start()
	}
	s.srv = srv
	return nil
}

// Stop shuts the listener down.
func (s *Server) Stop(_ context.Context) error {
	if s.srv == nil {
		return nil
	}
	s.srv.Close()
	s.srv = nil
	return nil
}

// Health reports up while serving.
func (s *Server) Health(_ context.Context) component.Health {
	h := component.Health{Name: s.Name(), Status: observability.HealthStatusUp}
	if s.srv == nil {
		h.Status = observability.HealthStatusDown
		h.Message = "not started"
	}
	return h
}

// Reset drops every token, secret, role and mount change, keeping the
// root token.
func (s *Server) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = newState(s.rootToken)
	s.requests = nil
	return nil
}

// Snapshot captures the server state.
func (s *Server) Snapshot(_ context.Context) (interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone(), nil
}

// Restore returns to a state captured by Snapshot.
func (s *Server) Restore(_ context.Context, snapshot interface{}) error {
	st, ok := snapshot.(*state)
	if !ok {
		return errors.Newf(errors.KindValidation, "vaulttest: cannot restore from %T", snapshot)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st.clone()
	return nil
}

// URL returns the base address, e.g. http://127.0.0.1:41234.
func (s *Server) URL() string {
	if s.srv == nil {
		return ""
	}
	return s.srv.URL
}

// RootToken returns the token with the root policy.
func (s *Server) RootToken() string { return s.rootToken }

// Certs returns the CA and leaf certificate material.
func (s *Server) Certs() *tlstest.TLSCerts { return s.certs }

// CAPEM returns the CA certificate the pki mount serves.
func (s *Server) CAPEM() string {
	return string(s.certs.CAPEM())
}

// AddAppRole creates an approle role bound to a secret ID and returns both.
func (s *Server) AddAppRole(name string, policies ...string) (roleID, secretID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	role := &appRole{
		RoleID:       newID(),
		BindSecretID: true,
		Policies:     policies,
		SecretIDs:    map[string]map[string]string{},
	}
	secretID = newID()
	role.SecretIDs[secretID] = nil
	s.state.roles[name] = role
	return role.RoleID, secretID
}

// AddUser creates a userpass user.
func (s *Server) AddUser(username, password string, policies ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.users[username] = user{Password: password, Policies: policies}
}

// AddJWTRole creates a jwt auth role.
func (s *Server) AddJWTRole(role string, policies ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.jwtRoles[role] = policies
}

// SignJWT signs claims with the key the jwt auth method trusts.
func (s *Server) SignJWT(claims jwt.MapClaims) string {
	s.t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtKey)
	if err != nil {
		s.t.Fatalf("vaulttest: sign jwt: %v", err)
	}
	return signed
}

// SetSealed makes every endpoint except sys/health answer 503.
func (s *Server) SetSealed(sealed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.sealed = sealed
}

// SetStandby makes the server redirect every request except sys/health
// to the /active prefix with a 307.
func (s *Server) SetStandby(standby bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.standby = standby
}

// HasToken reports whether token is a live client token.
func (s *Server) HasToken(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.state.tokens[token]
	return ok
}

// Requests returns the requests received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// LastRequest returns the most recent request. It fails the test when
// nothing was received.
func (s *Server) LastRequest() Request {
	s.t.Helper()
	reqs := s.Requests()
	if len(reqs) == 0 {
		s.t.Fatal("vaulttest: no requests received")
	}
	return reqs[len(reqs)-1]
}

// record keeps a copy of every request and buffers its body for handlers.
func (s *Server) record() gin.HandlerFunc {
	return func(c *gin.Context) {
		body, _ := io.ReadAll(c.Request.Body)
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		c.Set(bodyKey, body)

		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:    c.Request.Method,
			Path:      c.Request.URL.Path,
			Query:     c.Request.URL.Query(),
			Header:    c.Request.Header.Clone(),
			Body:      body,
			Namespace: namespace(c),
		})
		s.mu.Unlock()
		c.Next()
	}
}

func newState(rootToken string) *state {
	st := &state{
		tokens:    map[string]*tokenEntry{},
		accessors: map[string]string{},
		wraps:     map[string]*wrapEntry{},
		kv1:       map[string]map[string]any{},
		kv2:       map[string]*kvSecret{},
		mounts: map[string]mount{
			"secret": {Type: "kv", Version: 2, Description: "key/value secret storage"},
			"kv":     {Type: "kv", Version: 1, Description: "key/value secret storage"},
			"pki":    {Type: "pki", Description: "certificates"},
		},
		authMounts: map[string]string{
			"token":    "token",
			"approle":  "approle",
			"userpass": "userpass",
			"jwt":      "jwt",
		},
		roles:    map[string]*appRole{},
		users:    map[string]user{},
		jwtRoles: map[string][]string{},
	}
	st.addToken(&tokenEntry{
		ID:          rootToken,
		DisplayName: "root",
		Policies:    []string{"root"},
		Path:        "auth/token/root",
		Orphan:      true,
		Created:     time.Now(),
	})
	return st
}

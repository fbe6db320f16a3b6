package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/kbukum/vaultkit/errors"
	"github.com/kbukum/vaultkit/logger"
	"github.com/kbukum/vaultkit/observability"
	"github.com/kbukum/vaultkit/resilience"
	"github.com/kbukum/vaultkit/version"
)

// Requester is what the facade and the concurrent adapter build on.
type Requester interface {
	Do(ctx context.Context, req Request) (*Response, error)
	Token() string
	SetToken(token string)
	Close(ctx context.Context) error
}

// Adapter sends Vault requests over HTTP and returns the raw envelope.
// It is safe for concurrent use.
type Adapter struct {
	config      Config
	httpClient  *http.Client
	ownsClient  bool
	userAgent   string
	log         *logger.Logger
	instruments *observability.RequestInstruments
	cb          *resilience.CircuitBreaker
	rl          *resilience.RateLimiter

	token     atomic.Pointer[string]
	closed    atomic.Bool
	closeOnce sync.Once
}

var _ Requester = (*Adapter)(nil)

// Option customizes an Adapter beyond its Config.
type Option func(*options)

type options struct {
	meter     metric.Meter
	userAgent string
}

// WithMeter records request metrics on meter instead of the global one.
func WithMeter(meter metric.Meter) Option {
	return func(o *options) { o.meter = meter }
}

// WithUserAgent replaces the default User-Agent.
func WithUserAgent(ua string) Option {
	return func(o *options) { o.userAgent = ua }
}

// New creates a Vault adapter with the given configuration.
func New(cfg Config, opts ...Option) (*Adapter, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{meter: observability.Meter(), userAgent: version.UserAgent()}
	for _, opt := range opts {
		opt(&o)
	}

	httpClient, owns, err := newHTTPClient(cfg)
	if err != nil {
		return nil, err
	}

	instruments, err := observability.NewRequestInstruments(o.meter)
	if err != nil {
		return nil, err
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Get("vault-adapter")
	}

	a := &Adapter{
		config:      cfg,
		httpClient:  httpClient,
		ownsClient:  owns,
		userAgent:   o.userAgent,
		log:         log,
		instruments: instruments,
	}
	a.SetToken(cfg.Token)

	if cfg.CircuitBreaker != nil {
		a.cb = resilience.NewCircuitBreaker(*cfg.CircuitBreaker)
	}
	if cfg.RateLimiter != nil {
		a.rl = resilience.NewRateLimiter(*cfg.RateLimiter)
	}

	return a, nil
}

// Config returns the adapter configuration with defaults applied.
func (a *Adapter) Config() Config { return a.config }

// Token returns the current client token.
func (a *Adapter) Token() string {
	if t := a.token.Load(); t != nil {
		return *t
	}
	return ""
}

// SetToken replaces the client token. Last write wins.
func (a *Adapter) SetToken(token string) {
	a.token.Store(&token)
}

// Get sends a GET request.
func (a *Adapter) Get(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return a.Do(ctx, NewRequest(http.MethodGet, path, nil, opts...))
}

// Post sends a POST request with a JSON body.
func (a *Adapter) Post(ctx context.Context, path string, body any, opts ...RequestOption) (*Response, error) {
	return a.Do(ctx, NewRequest(http.MethodPost, path, body, opts...))
}

// Put sends a PUT request with a JSON body.
func (a *Adapter) Put(ctx context.Context, path string, body any, opts ...RequestOption) (*Response, error) {
	return a.Do(ctx, NewRequest(http.MethodPut, path, body, opts...))
}

// Delete sends a DELETE request.
func (a *Adapter) Delete(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return a.Do(ctx, NewRequest(http.MethodDelete, path, nil, opts...))
}

// List sends a LIST request.
func (a *Adapter) List(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return a.Do(ctx, NewRequest(MethodList, path, nil, opts...))
}

// Head sends a HEAD request.
func (a *Adapter) Head(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return a.Do(ctx, NewRequest(http.MethodHead, path, nil, opts...))
}

// Login sends a POST request and stores the client token it returns.
// AuthClientToken is used unless WithLogin supplies another extractor.
func (a *Adapter) Login(ctx context.Context, path string, body any, opts ...RequestOption) (*Response, error) {
	req := NewRequest(http.MethodPost, path, body, opts...)
	if req.Login == nil {
		req.Login = AuthClientToken
	}
	return a.Do(ctx, req)
}

// Do sends req, following redirects, and returns the envelope. Non-2xx
// responses come back together with an *errors.HTTPError unless
// exceptions are suppressed.
func (a *Adapter) Do(ctx context.Context, req Request) (resp *Response, err error) {
	req.Method = strings.ToUpper(methodOrGet(req.Method))
	if a.closed.Load() {
		return nil, errors.New(errors.KindClosed, "adapter is closed").WithRequest(req.Method, req.Path)
	}

	ctx, span := observability.StartRequestSpan(ctx, req.Method, req.Path, a.config.Namespace)
	if req.WrapTTL != "" {
		observability.SetSpanAttribute(ctx, observability.AttrWrapTTL, req.WrapTTL)
	}
	start := time.Now()
	a.instruments.RequestStarted(ctx)
	defer func() {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		outcome := "ok"
		if err != nil {
			outcome = errors.KindOf(err).String()
		}
		a.instruments.RequestFinished(ctx, req.Method, status, outcome, time.Since(start))
		observability.EndRequestSpan(span, status, err)
	}()

	err = errors.Guard(func() error {
		var dispatchErr error
		resp, dispatchErr = a.dispatch(ctx, req)
		return dispatchErr
	})
	if err != nil {
		if _, isHTTP := errors.AsHTTPError(err); isHTTP && !req.raise(a.config.IgnoreExceptions) {
			err = nil
		}
		return resp, err
	}

	if req.Login != nil && resp.IsSuccess() {
		if err := a.captureToken(ctx, req.Login, resp); err != nil {
			return resp, err
		}
	}
	return resp, nil
}

// dispatch applies retry, rate limiting and the circuit breaker around one
// exchange. Retry returns the zero value on failure, so the last envelope
// is kept aside.
func (a *Adapter) dispatch(ctx context.Context, req Request) (*Response, error) {
	var last *Response
	attempt := func() (*Response, error) {
		resp, err := a.doOnce(ctx, req)
		last = resp
		return resp, err
	}

	var err error
	if a.config.Retry != nil {
		_, err = resilience.Retry(ctx, a.retryConfig(ctx, req), attempt)
	} else {
		_, err = attempt()
	}
	if err != nil {
		if _, ok := errors.AsHTTPError(err); ok && last != nil {
			return last, err
		}
		return nil, errors.Normalize(err)
	}
	return last, nil
}

// retryConfig logs each retry ahead of any OnRetry the caller set.
func (a *Adapter) retryConfig(ctx context.Context, req Request) resilience.RetryConfig {
	cfg := *a.config.Retry
	next := cfg.OnRetry
	cfg.OnRetry = func(attempt int, err error, wait time.Duration) {
		fields := logger.MergeWithError(a.requestFields(req.Method, req.Path), err)
		fields[logger.FieldAttempt] = attempt
		a.log.WithContext(ctx).Debug("retrying vault request", logger.MergeWithDuration(fields, wait))
		if next != nil {
			next(attempt, err, wait)
		}
	}
	return cfg
}

// doOnce executes a single exchange with the rate limiter and circuit breaker.
func (a *Adapter) doOnce(ctx context.Context, req Request) (*Response, error) {
	if a.rl != nil {
		if err := a.rl.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, errors.Normalize(ctx.Err())
			}
			return nil, errors.Wrap(errors.KindTransport, err, "rate limited").
				WithRequest(req.Method, req.Path)
		}
	}

	if a.cb != nil {
		var resp *Response
		err := a.cb.Execute(func() error {
			var execErr error
			resp, execErr = a.exchange(ctx, req)
			return execErr
		})
		if err != nil && resp == nil {
			if _, ok := errors.AsVaultError(err); !ok {
				return nil, errors.Wrap(errors.KindTransport, err, "circuit breaker rejected request").
					WithRequest(req.Method, req.Path)
			}
		}
		return resp, err
	}

	return a.exchange(ctx, req)
}

// exchange sends req and follows redirects, re-issuing the same verb,
// body and headers at each Location.
func (a *Adapter) exchange(ctx context.Context, req Request) (*Response, error) {
	method, target, err := a.resolve(req)
	if err != nil {
		return nil, err
	}
	body, err := encodeBody(req)
	if err != nil {
		return nil, errors.Wrap(errors.KindInternal, err, "encoding request body").
			WithRequest(method, target)
	}
	header := a.buildHeader(req)

	for hops := 0; ; hops++ {
		start := time.Now()
		res, data, err := a.send(ctx, method, target, header, body)
		if err != nil {
			a.log.WithContext(ctx).Debug("vault request failed", logger.MergeWithError(
				logger.MergeWithDuration(a.requestFields(method, target), time.Since(start)), err))
			return nil, err
		}

		fields := logger.MergeWithDuration(a.requestFields(method, target), time.Since(start))
		fields[logger.FieldStatus] = res.StatusCode
		a.log.WithContext(ctx).Debug("vault request", fields)

		location := res.Header.Get("Location")
		if isRedirect(res.StatusCode) && location != "" && !a.config.DisableRedirects {
			if hops >= a.config.MaxRedirects {
				return nil, errors.Newf(errors.KindRedirect, "stopped after %d redirects", hops).
					WithRequest(method, target)
			}
			next, err := res.Request.URL.Parse(location)
			if err != nil {
				return nil, errors.Wrap(errors.KindRedirect, err, "invalid redirect location").
					WithRequest(method, target)
			}
			if !isAbsoluteURL(location) {
				next.Path = collapseSlashes(next.Path)
				next.RawPath = collapseSlashes(next.RawPath)
			}
			fields := a.requestFields(method, target)
			fields[logger.FieldRedirects] = hops + 1
			fields["location"] = next.String()
			a.log.WithContext(ctx).Debug("following vault redirect", fields)
			target = next.String()
			a.instruments.RedirectFollowed(ctx)
			observability.SetSpanAttribute(ctx, observability.AttrRedirects, hops+1)
			continue
		}

		resp := NewResponse(method, target, res.StatusCode, res.Header, data)
		resp.Status = res.Status
		if !resp.IsSuccess() {
			return resp, errors.FromResponse(method, target, res.StatusCode, data)
		}
		return resp, nil
	}
}

// send performs one network exchange and reads the whole body.
func (a *Adapter) send(ctx context.Context, method, target string, header http.Header, body []byte) (*http.Response, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, nil, errors.Wrap(errors.KindValidation, err, "invalid request").
			WithRequest(method, target)
	}
	httpReq.Header = header.Clone()

	res, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, nil, transportError(err, method, target)
	}
	defer func() { _ = res.Body.Close() }()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, nil, transportError(err, method, target)
	}
	return res, data, nil
}

// resolve returns the wire method and the full URL for req.
func (a *Adapter) resolve(req Request) (string, string, error) {
	target := a.resolvePath(req.Path)
	u, err := url.Parse(target)
	if err != nil {
		return "", "", errors.Wrap(errors.KindValidation, err, "invalid request path").
			WithRequest(req.Method, target)
	}

	method := req.Method
	query := u.Query()
	for k, vs := range req.Query {
		for _, v := range vs {
			query.Add(k, v)
		}
	}
	if method == MethodList && a.config.StrictHTTP {
		method = http.MethodGet
		query.Set("list", "true")
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return method, u.String(), nil
}

// resolvePath joins a relative path to the address. Every "//" in a
// relative path collapses to "/", so a key such as
// "secret/http://example.com" addresses the same secret on every verb.
func (a *Adapter) resolvePath(path string) string {
	if isAbsoluteURL(path) {
		return path
	}
	return a.config.Address + "/" + strings.TrimPrefix(collapseSlashes(path), "/")
}

func isAbsoluteURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// collapseSlashes turns every run of slashes into one, as the Vault CLI
// does. Relative redirect locations get the same treatment.
func collapseSlashes(path string) string {
	for strings.Contains(path, "//") {
		path = strings.ReplaceAll(path, "//", "/")
	}
	return path
}

// buildHeader layers defaults, namespace, token and per-call headers.
func (a *Adapter) buildHeader(req Request) http.Header {
	h := make(http.Header)
	h.Set("User-Agent", a.userAgent)
	h.Set("X-Vault-Request", "true")
	for k, v := range a.config.Headers {
		h.Set(k, v)
	}
	if a.config.Namespace != "" {
		h.Set("X-Vault-Namespace", a.config.Namespace)
	}
	if !req.NoAuth {
		if token := a.Token(); token != "" {
			h.Set("X-Vault-Token", token)
		}
	}
	if req.WrapTTL != "" {
		h.Set("X-Vault-Wrap-TTL", req.WrapTTL)
	}
	if req.RawBody == nil && req.Body != nil {
		h.Set("Content-Type", "application/json")
	}
	for k, v := range req.Headers {
		h.Set(k, v)
	}
	return h
}

func encodeBody(req Request) ([]byte, error) {
	if req.RawBody != nil {
		return req.RawBody, nil
	}
	if req.Body == nil {
		return nil, nil
	}
	return json.Marshal(req.Body)
}

func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

func (a *Adapter) captureToken(ctx context.Context, extractor TokenExtractor, resp *Response) error {
	token, err := extractor.ExtractToken(resp)
	if err != nil {
		return errors.Normalize(err)
	}
	if token == "" {
		return nil
	}
	a.SetToken(token)
	a.instruments.TokenUpdated(ctx)
	a.log.WithContext(ctx).Debug("client token updated", logger.Fields(
		logger.FieldURL, resp.URL,
		logger.FieldToken, logger.RedactToken(token),
	))
	return nil
}

func (a *Adapter) requestFields(method, target string) map[string]interface{} {
	return logger.RequestFields(method, target, a.config.Namespace)
}

// IsAvailable reports whether the adapter can accept requests.
func (a *Adapter) IsAvailable(_ context.Context) bool {
	if a.closed.Load() {
		return false
	}
	return a.cb == nil || a.cb.State() != resilience.StateOpen
}

// Close releases idle connections. It is idempotent; requests sent after
// Close fail with KindClosed.
func (a *Adapter) Close(_ context.Context) error {
	a.closeOnce.Do(func() {
		a.closed.Store(true)
		if a.ownsClient {
			a.httpClient.CloseIdleConnections()
		}
	})
	return nil
}

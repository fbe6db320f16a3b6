package httpclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/kbukum/vaultkit/errors"
	"github.com/kbukum/vaultkit/logger"
	"github.com/kbukum/vaultkit/observability"
	"github.com/kbukum/vaultkit/resilience"
)

func newTestAdapter(t *testing.T, address string, mutate func(*Config)) *Adapter {
	t.Helper()
	cfg := Config{Address: address, Logger: logger.Nop()}
	if mutate != nil {
		mutate(&cfg)
	}
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	return a
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestAdapter_Get_InjectsHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/secret/foo" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if ua := r.Header.Get("User-Agent"); !strings.HasPrefix(ua, "vaultkit/") {
			t.Errorf("User-Agent = %q", ua)
		}
		if r.Header.Get("X-Vault-Request") != "true" {
			t.Error("missing X-Vault-Request")
		}
		if r.Header.Get("X-Vault-Token") != "s.root" {
			t.Errorf("token = %q", r.Header.Get("X-Vault-Token"))
		}
		if r.Header.Get("X-Vault-Namespace") != "team-a" {
			t.Errorf("namespace = %q", r.Header.Get("X-Vault-Namespace"))
		}
		if r.Header.Get("X-Team") != "platform" {
			t.Errorf("custom header = %q", r.Header.Get("X-Team"))
		}
		writeJSON(w, 200, map[string]any{"data": map[string]any{"foo": "bar"}})
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL+"/", func(c *Config) {
		c.Token = "s.root"
		c.Namespace = "team-a"
		c.Headers = map[string]string{"X-Team": "platform"}
	})

	resp, err := a.Get(context.Background(), "v1/secret/foo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Data()["foo"] != "bar" {
		t.Errorf("data = %v", resp.Data())
	}
	if resp.Method != http.MethodGet || !strings.HasSuffix(resp.URL, "/v1/secret/foo") {
		t.Errorf("envelope request = %s %s", resp.Method, resp.URL)
	}
}

func TestAdapter_PerCallHeadersWin(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL, func(c *Config) { c.Token = "s.default" })
	_, err := a.Get(context.Background(), "/v1/sys/mounts", WithHeader("X-Vault-Token", "s.override"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Get("X-Vault-Token") != "s.override" {
		t.Errorf("token = %q", got.Get("X-Vault-Token"))
	}
}

func TestAdapter_WithoutAuth(t *testing.T) {
	var sawToken atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawToken.Store(r.Header.Get("X-Vault-Token") != "")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL, func(c *Config) { c.Token = "s.root" })
	if _, err := a.Get(context.Background(), "/v1/sys/health", WithoutAuth()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sawToken.Load() {
		t.Error("token should be suppressed")
	}
}

func TestAdapter_DoubledSeparatorsCollapse(t *testing.T) {
	var mu sync.Mutex
	var paths []string
	store := map[string][]byte{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		paths = append(paths, r.URL.Path)
		switch r.Method {
		case http.MethodPut:
			body, _ := io.ReadAll(r.Body)
			store[r.URL.Path] = body
			w.WriteHeader(http.StatusNoContent)
		case http.MethodGet:
			body, ok := store[r.URL.Path]
			if !ok {
				writeJSON(w, 404, map[string]any{"errors": []string{}})
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"data":` + string(body) + `}`))
		}
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL, nil)
	ctx := context.Background()
	if _, err := a.Put(ctx, "/v1/secret/http://example.com", map[string]any{"k": "v"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	resp, err := a.Get(ctx, "/v1/secret/http://example.com")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if resp.Data()["k"] != "v" {
		t.Errorf("data = %v", resp.Data())
	}
	for _, p := range paths {
		if p != "/v1/secret/http:/example.com" {
			t.Errorf("path = %q", p)
		}
	}
}

func TestAdapter_AbsoluteURLUsedVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1//raw" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	a := newTestAdapter(t, "http://127.0.0.1:1", nil)
	if _, err := a.Get(context.Background(), srv.URL+"/v1//raw"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAdapter_List(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		listing := r.Method == MethodList || (r.Method == http.MethodGet && r.URL.Query().Get("list") == "true")
		if !listing {
			t.Errorf("not a list request: %s %s", r.Method, r.URL.RawQuery)
		}
		writeJSON(w, 200, map[string]any{"data": map[string]any{"keys": []string{"a", "b/"}}})
	})
	srv := httptest.NewServer(handler)
	defer srv.Close()

	ctx := context.Background()
	loose := newTestAdapter(t, srv.URL, nil)
	strict := newTestAdapter(t, srv.URL, func(c *Config) { c.StrictHTTP = true })

	r1, err := loose.List(ctx, "/v1/secret/metadata")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	r2, err := strict.List(ctx, "/v1/secret/metadata")
	if err != nil {
		t.Fatalf("strict list: %v", err)
	}
	if r1.Text() != r2.Text() {
		t.Errorf("results differ: %s vs %s", r1.Text(), r2.Text())
	}
	if r2.Method != http.MethodGet {
		t.Errorf("strict wire method = %s", r2.Method)
	}
}

func TestAdapter_QueryMerged(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("version") != "2" || q.Get("list") != "true" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL, func(c *Config) { c.StrictHTTP = true })
	if _, err := a.List(context.Background(), "/v1/kv/metadata?version=2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAdapter_WrapTTLHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Vault-Wrap-TTL") != "10s" {
			t.Errorf("wrap ttl = %q", r.Header.Get("X-Vault-Wrap-TTL"))
		}
		writeJSON(w, 200, map[string]any{"wrap_info": map[string]any{
			"token": "s.wrap", "ttl": 10, "creation_time": "2024-01-02T03:04:05Z",
		}})
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL, nil)
	resp, err := a.Post(context.Background(), "/v1/auth/approle/role/app/secret-id", nil, WithWrapTTL("10s"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.IsWrapped() || resp.WrapInfo().TTL != 10 {
		t.Errorf("wrap info = %+v", resp.WrapInfo())
	}
}

func TestAdapter_Redirect_PreservesVerbAndBody(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if r.URL.Path == "/v1/secret/foo" {
			w.Header().Set("Location", "/active/v1/secret/foo")
			w.WriteHeader(http.StatusTemporaryRedirect)
			return
		}
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), `"foo":"bar"`) {
			t.Errorf("body lost on redirect: %s", body)
		}
		if r.Header.Get("X-Vault-Token") != "s.root" {
			t.Error("token lost on redirect")
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL, func(c *Config) { c.Token = "s.root" })
	resp, err := a.Post(context.Background(), "/v1/secret/foo", map[string]any{"foo": "bar"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hits.Load() != 2 {
		t.Errorf("hits = %d", hits.Load())
	}
	if !strings.HasSuffix(resp.URL, "/active/v1/secret/foo") {
		t.Errorf("final url = %s", resp.URL)
	}
}

func TestAdapter_Redirect_CollapsesRelativeLocation(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if len(paths) == 1 {
			w.Header().Set("Location", "/v1//secret//x")
			w.WriteHeader(http.StatusTemporaryRedirect)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL, nil)
	if _, err := a.Get(context.Background(), "/v1/secret/x"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(paths) != 2 || paths[1] != "/v1/secret/x" {
		t.Errorf("paths = %v", paths)
	}
}

func TestAdapter_Redirect_Exhausted(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Location", r.URL.Path)
		w.WriteHeader(http.StatusTemporaryRedirect)
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL, func(c *Config) { c.MaxRedirects = 2 })
	resp, err := a.Get(context.Background(), "/v1/loop")
	if errors.KindOf(err) != errors.KindRedirect {
		t.Fatalf("expected redirect error, got %v", err)
	}
	if resp != nil {
		t.Error("expected no envelope")
	}
	if hits.Load() != 3 {
		t.Errorf("hits = %d", hits.Load())
	}
}

func TestAdapter_DisableRedirects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "/elsewhere")
		w.WriteHeader(http.StatusTemporaryRedirect)
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL, func(c *Config) { c.DisableRedirects = true })
	resp, err := a.Get(context.Background(), "/v1/secret/foo")
	if code, ok := errors.StatusCode(err); !ok || code != http.StatusTemporaryRedirect {
		t.Fatalf("expected 307 HTTPError, got %v", err)
	}
	if resp == nil || resp.Header.Get("Location") != "/elsewhere" {
		t.Error("expected 307 envelope")
	}
}

func TestAdapter_NonSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 403, map[string]any{"errors": []string{"permission denied"}})
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL, nil)
	resp, err := a.Get(context.Background(), "/v1/secret/foo")
	if !errors.IsPermissionDenied(err) {
		t.Fatalf("expected permission denied, got %v", err)
	}
	he, _ := errors.AsHTTPError(err)
	if len(he.Errors) != 1 || he.Errors[0] != "permission denied" {
		t.Errorf("errors = %v", he.Errors)
	}
	if resp == nil || resp.StatusCode != 403 {
		t.Error("envelope should accompany the error")
	}
}

func TestAdapter_SuppressedExceptions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 503, map[string]any{"sealed": true})
	}))
	defer srv.Close()

	ctx := context.Background()
	ignoring := newTestAdapter(t, srv.URL, func(c *Config) { c.IgnoreExceptions = true })
	resp, err := ignoring.Get(ctx, "/v1/sys/health")
	if err != nil || resp.StatusCode != 503 {
		t.Fatalf("expected suppressed 503, got %v, %v", resp, err)
	}
	if _, err := ignoring.Get(ctx, "/v1/sys/health", WithRaiseException(true)); !errors.IsServerError(err) {
		t.Errorf("per-call raise should win, got %v", err)
	}

	raising := newTestAdapter(t, srv.URL, nil)
	resp, err = raising.Get(ctx, "/v1/sys/health", WithRaiseException(false))
	if err != nil || resp.Get("sealed") != true {
		t.Errorf("expected suppressed response, got %v, %v", resp, err)
	}
}

func TestAdapter_Login_CapturesToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/auth/approle/login" {
			writeJSON(w, 200, map[string]any{"auth": map[string]any{"client_token": "t1"}})
			return
		}
		writeJSON(w, 400, map[string]any{"errors": []string{"invalid role"}})
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL, nil)
	ctx := context.Background()
	if _, err := a.Login(ctx, "/v1/auth/approle/login", map[string]any{"role_id": "r"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	if a.Token() != "t1" {
		t.Errorf("token = %q", a.Token())
	}

	if _, err := a.Login(ctx, "/v1/auth/userpass/login/bob", nil); !errors.IsBadRequest(err) {
		t.Errorf("expected bad request, got %v", err)
	}
	if a.Token() != "t1" {
		t.Errorf("failed login must not change token, got %q", a.Token())
	}
}

func TestAdapter_Login_CustomExtractor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, map[string]any{"data": map[string]any{"token": "t2"}})
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL, nil)
	if _, err := a.Login(context.Background(), "/v1/custom/login", nil, WithLogin(DataField("token"))); err != nil {
		t.Fatalf("login: %v", err)
	}
	if a.Token() != "t2" {
		t.Errorf("token = %q", a.Token())
	}
}

func TestAdapter_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	address := srv.URL
	srv.Close()

	a := newTestAdapter(t, address, nil)
	resp, err := a.Get(context.Background(), "/v1/sys/health")
	if !errors.IsTransport(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if resp != nil {
		t.Error("expected no envelope")
	}
	ve, _ := errors.AsVaultError(err)
	if ve.Cause == nil {
		t.Error("native error should be kept as cause")
	}
}

func TestAdapter_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL, func(c *Config) { c.Timeout = 50 * time.Millisecond })
	_, err := a.Get(context.Background(), "/v1/slow")
	if !errors.IsTimeout(err) {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestAdapter_BodyEncodingError(t *testing.T) {
	a := newTestAdapter(t, "http://127.0.0.1:1", nil)
	_, err := a.Post(context.Background(), "/v1/secret/foo", map[string]any{"bad": make(chan int)})
	if errors.KindOf(err) != errors.KindInternal {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestAdapter_Retry(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			writeJSON(w, 503, map[string]any{"errors": []string{"Vault is sealed"}})
			return
		}
		writeJSON(w, 200, map[string]any{"data": map[string]any{}})
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL, func(c *Config) {
		c.Retry = &resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
	})
	resp, err := a.Get(context.Background(), "/v1/secret/foo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != 200 || hits.Load() != 3 {
		t.Errorf("status = %d, hits = %d", resp.StatusCode, hits.Load())
	}
}

func TestAdapter_RetrySkipsClientErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, 404, map[string]any{"errors": []string{}})
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL, func(c *Config) {
		c.Retry = &resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond}
	})
	resp, err := a.Get(context.Background(), "/v1/secret/missing")
	if !errors.IsNotFound(err) || resp == nil {
		t.Fatalf("expected 404 with envelope, got %v, %v", resp, err)
	}
	if hits.Load() != 1 {
		t.Errorf("hits = %d", hits.Load())
	}
}

func TestAdapter_CircuitBreakerOpens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 500, map[string]any{"errors": []string{"boom"}})
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL, func(c *Config) {
		cb := resilience.DefaultCircuitBreakerConfig("vault")
		cb.MaxFailures = 2
		cb.Timeout = time.Minute
		c.CircuitBreaker = &cb
	})
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := a.Get(ctx, "/v1/secret/foo"); !errors.IsServerError(err) {
			t.Fatalf("attempt %d: expected server error, got %v", i, err)
		}
	}
	if a.IsAvailable(ctx) {
		t.Error("breaker should be open")
	}
	if _, err := a.Get(ctx, "/v1/secret/foo"); !errors.IsTransport(err) {
		t.Errorf("expected rejection, got %v", err)
	}
}

func TestAdapter_Close(t *testing.T) {
	a := newTestAdapter(t, "http://127.0.0.1:1", nil)
	ctx := context.Background()
	if err := a.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := a.Close(ctx); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if _, err := a.Get(ctx, "/v1/sys/health"); errors.KindOf(err) != errors.KindClosed {
		t.Errorf("expected closed error, got %v", err)
	}
	if a.IsAvailable(ctx) {
		t.Error("closed adapter should be unavailable")
	}
}

func TestAdapter_InjectedHTTPClient(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.Header().Set("Location", "/next")
			w.WriteHeader(http.StatusFound)
			return
		}
		if r.Method != http.MethodDelete {
			t.Errorf("method = %s", r.Method)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := srv.Client()
	a := newTestAdapter(t, srv.URL, func(c *Config) { c.HTTPClient = client })
	if _, err := a.Delete(context.Background(), "/v1/secret/foo"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.CheckRedirect != nil {
		t.Error("caller's client must not be modified")
	}
}

func TestAdapter_RecordsMetrics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	a, err := New(Config{Address: srv.URL, Logger: logger.Nop()}, WithMeter(provider.Meter("test")))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close(context.Background())

	if _, err := a.Get(context.Background(), "/v1/sys/health"); err != nil {
		t.Fatalf("get: %v", err)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	found := false
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != observability.MetricRequests {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok || len(sum.DataPoints) != 1 || sum.DataPoints[0].Value != 1 {
				t.Errorf("unexpected requests metric: %+v", m.Data)
			}
			found = true
		}
	}
	if !found {
		t.Error("requests metric not recorded")
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing address", Config{}},
		{"not http", Config{Address: "ftp://vault"}},
		{"negative redirects", Config{Address: "http://vault", MaxRedirects: -1}},
		{"bad proxy", Config{Address: "http://vault", Proxy: "::"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			if errors.KindOf(err) != errors.KindConfig {
				t.Errorf("expected config error, got %v", err)
			}
		})
	}
}

package vaulttest

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	bodyKey  = "vaulttest.body"
	tokenKey = "vaulttest.token"

	headerToken     = "X-Vault-Token"
	headerNamespace = "X-Vault-Namespace"
	headerWrapTTL   = "X-Vault-Wrap-TTL"

	activePrefix = "/active"
)

// handler runs with the state lock held and returns the status and body
// to send. A zero status means the handler wrote the response itself.
type handler func(c *gin.Context, st *state) (int, gin.H)

func (s *Server) routes() *gin.Engine {
	e := gin.New()
	e.RedirectTrailingSlash = false
	e.RedirectFixedPath = false
	e.Use(gin.Recovery(), s.record(), s.guard(), s.authenticate())

	for _, prefix := range []string{"/v1", activePrefix + "/v1"} {
		g := e.Group(prefix)
		g.GET("/sys/health", s.handle(s.health))
		g.GET("/sys/mounts", s.handle(s.listMounts))
		g.POST("/sys/mounts/:path", s.handle(s.enableMount))
		g.DELETE("/sys/mounts/:path", s.handle(s.disableMount))

		w := g.Group("/sys/wrapping")
		w.POST("/wrap", s.handle(s.wrapData))
		w.POST("/unwrap", s.handle(s.unwrap))
		w.POST("/lookup", s.handle(s.lookupWrapping))
		w.POST("/rewrap", s.handle(s.rewrap))
	}

	// Auth methods and secrets engines live at mount paths, so they are
	// dispatched from the mount tables. Unknown verbs like LIST land here too.
	e.NoRoute(s.handle(s.dispatch))
	return e
}

func (s *Server) handle(h handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		defer s.mu.Unlock()
		status, body := h(c, s.state)
		s.reply(c, status, body)
	}
}

// reply writes body, response-wrapping a successful one when the request
// asked for it. Called with the state lock held.
func (s *Server) reply(c *gin.Context, status int, body gin.H) {
	switch {
	case status == 0:
		return
	case body == nil:
		c.Status(status)
		return
	}
	ttlHeader := c.GetHeader(headerWrapTTL)
	if ttlHeader == "" || status < 200 || status >= 300 {
		c.JSON(status, body)
		return
	}
	ttl, err := parseSeconds(ttlHeader)
	if err != nil || ttl <= 0 {
		c.JSON(http.StatusBadRequest, failure("invalid wrap TTL "+strconv.Quote(ttlHeader)))
		return
	}
	w := s.state.wrap(body, ttl, relPath(c))
	out := envelope(nil)
	out["wrap_info"] = w.info()
	c.JSON(http.StatusOK, out)
}

// guard applies the sealed and standby modes.
func (s *Server) guard() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		sealed, standby := s.state.sealed, s.state.standby
		s.mu.Unlock()

		if relPath(c) == "sys/health" {
			c.Next()
			return
		}
		if sealed {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, failure("Vault is sealed"))
			return
		}
		if standby && !strings.HasPrefix(c.Request.URL.Path, activePrefix+"/") {
			c.Header("Location", activePrefix+c.Request.URL.RequestURI())
			c.AbortWithStatus(http.StatusTemporaryRedirect)
			return
		}
		c.Next()
	}
}

// authenticate rejects requests without a live client token. Logins and
// sys/health are open; wrapping lookup and unwrap also accept a wrapping
// token in place of a client token.
func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		rel := relPath(c)
		if isOpen(rel) {
			c.Next()
			return
		}
		token := c.GetHeader(headerToken)

		s.mu.Lock()
		entry, ok := s.state.tokens[token]
		_, wrapped := s.state.wraps[token]
		s.mu.Unlock()

		switch {
		case ok:
			c.Set(tokenKey, entry)
		case wrapped && (rel == "sys/wrapping/unwrap" || rel == "sys/wrapping/lookup"):
		case rel == "sys/wrapping/lookup":
		default:
			c.AbortWithStatusJSON(http.StatusForbidden, failure("permission denied"))
			return
		}
		c.Next()
	}
}

func isOpen(rel string) bool {
	if rel == "sys/health" {
		return true
	}
	parts := strings.Split(rel, "/")
	return len(parts) >= 3 && parts[0] == "auth" && parts[2] == "login"
}

// dispatch routes auth methods and secrets engines by mount.
func (s *Server) dispatch(c *gin.Context, st *state) (int, gin.H) {
	rel := relPath(c)
	if rest, ok := strings.CutPrefix(rel, "auth/"); ok {
		mountName, sub, _ := strings.Cut(rest, "/")
		switch st.authMounts[mountName] {
		case "token":
			return s.tokenMethod(c, st, sub)
		case "approle":
			return s.appRoleMethod(c, st, sub)
		case "userpass":
			return s.userpassMethod(c, st, sub)
		case "jwt":
			return s.jwtMethod(c, st, sub)
		}
		return noHandler(rel)
	}

	name, m, sub, ok := st.mountFor(rel)
	if !ok {
		return noHandler(rel)
	}
	switch {
	case m.Type == "kv" && m.Version == 2:
		return s.kvV2(c, st, name, sub)
	case m.Type == "kv":
		return s.kvV1(c, st, name, sub)
	case m.Type == "pki":
		return s.pki(c, sub)
	}
	return noHandler(rel)
}

func noHandler(rel string) (int, gin.H) {
	return http.StatusNotFound, failure("no handler for route " + strconv.Quote(rel))
}

// relPath strips the /v1 (or /active/v1) prefix.
func relPath(c *gin.Context) string {
	p := strings.TrimPrefix(c.Request.URL.Path, activePrefix)
	rel, ok := strings.CutPrefix(p, "/v1/")
	if !ok {
		return ""
	}
	return strings.TrimSuffix(rel, "/")
}

func namespace(c *gin.Context) string {
	return strings.Trim(c.GetHeader(headerNamespace), "/")
}

func currentToken(c *gin.Context) *tokenEntry {
	v, ok := c.Get(tokenKey)
	if !ok {
		return nil
	}
	t, _ := v.(*tokenEntry)
	return t
}

func isList(c *gin.Context) bool {
	return c.Request.Method == "LIST" ||
		(c.Request.Method == http.MethodGet && c.Query("list") == "true")
}

// bind decodes the buffered request body into v. An empty body leaves v
// untouched.
func bind(c *gin.Context, v any) bool {
	raw, _ := c.Get(bodyKey)
	body, _ := raw.([]byte)
	if len(body) == 0 {
		return true
	}
	return json.Unmarshal(body, v) == nil
}

func envelope(data any) gin.H {
	return gin.H{
		"request_id":     uuid.NewString(),
		"lease_id":       "",
		"renewable":      false,
		"lease_duration": 0,
		"data":           data,
		"wrap_info":      nil,
		"warnings":       nil,
		"auth":           nil,
	}
}

func authEnvelope(t *tokenEntry) gin.H {
	out := envelope(nil)
	out["auth"] = t.auth()
	return out
}

func failure(msgs ...string) gin.H {
	return gin.H{"errors": msgs}
}

func badRequest(msg string) (int, gin.H) {
	return http.StatusBadRequest, failure(msg)
}

func invalidBody() (int, gin.H) {
	return badRequest("failed to parse JSON input")
}

// parseSeconds accepts "90", "90s" or any time.ParseDuration string.
func parseSeconds(v string) (int, error) {
	if n, err := strconv.Atoi(v); err == nil {
		return n, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	return int(d / time.Second), nil
}

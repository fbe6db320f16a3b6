package vaulttest

import (
	"encoding/json"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// defaultTTL is the lease of tokens issued without an explicit ttl.
const defaultTTL = 768 * 60 * 60

func (s *Server) tokenMethod(c *gin.Context, st *state, sub string) (int, gin.H) {
	method := c.Request.Method
	switch {
	case sub == "create" && method == http.MethodPost:
		return s.createToken(c, st, false)
	case sub == "create-orphan" && method == http.MethodPost:
		return s.createToken(c, st, true)
	case sub == "lookup-self" && method == http.MethodGet:
		return http.StatusOK, envelope(currentToken(c).data())
	case sub == "lookup" && method == http.MethodPost:
		var body struct {
			Token string `json:"token"`
		}
		if !bind(c, &body) {
			return invalidBody()
		}
		t, ok := st.tokens[body.Token]
		if !ok {
			return http.StatusForbidden, failure("bad token")
		}
		return http.StatusOK, envelope(t.data())
	case sub == "lookup-accessor" && method == http.MethodPost:
		t, status, body := byAccessor(c, st)
		if t == nil {
			return status, body
		}
		data := t.data()
		data["id"] = ""
		return http.StatusOK, envelope(data)
	case sub == "revoke-accessor" && method == http.MethodPost:
		t, status, body := byAccessor(c, st)
		if t == nil {
			return status, body
		}
		st.revoke(t.ID)
		return http.StatusNoContent, nil
	case sub == "renew-self" && method == http.MethodPost:
		return renewSelf(c)
	case sub == "revoke-self" && method == http.MethodPost:
		st.revoke(currentToken(c).ID)
		return http.StatusNoContent, nil
	}
	return noHandler("auth/token/" + sub)
}

func (s *Server) createToken(c *gin.Context, st *state, orphan bool) (int, gin.H) {
	var body struct {
		Policies    []string          `json:"policies"`
		TTL         string            `json:"ttl"`
		DisplayName string            `json:"display_name"`
		Meta        map[string]string `json:"meta"`
		NumUses     int               `json:"num_uses"`
		NoParent    bool              `json:"no_parent"`
		Renewable   *bool             `json:"renewable"`
	}
	if !bind(c, &body) {
		return invalidBody()
	}
	parent := currentToken(c)
	t := &tokenEntry{
		ID:          newToken(),
		DisplayName: "token",
		Path:        "auth/token/create",
		Policies:    body.Policies,
		Meta:        body.Meta,
		TTL:         defaultTTL,
		NumUses:     body.NumUses,
		Renewable:   true,
		Orphan:      orphan || body.NoParent,
		Created:     time.Now(),
	}
	if len(t.Policies) == 0 {
		t.Policies = slices.Clone(parent.Policies)
	}
	if body.DisplayName != "" {
		t.DisplayName = "token-" + body.DisplayName
	}
	if body.TTL != "" {
		ttl, err := parseSeconds(body.TTL)
		if err != nil {
			return badRequest("invalid ttl " + body.TTL)
		}
		t.TTL = ttl
	}
	if body.Renewable != nil {
		t.Renewable = *body.Renewable
	}
	st.addToken(t)
	return http.StatusOK, authEnvelope(t)
}

func byAccessor(c *gin.Context, st *state) (*tokenEntry, int, gin.H) {
	var body struct {
		Accessor string `json:"accessor"`
	}
	if !bind(c, &body) {
		status, out := invalidBody()
		return nil, status, out
	}
	id, ok := st.accessors[body.Accessor]
	if !ok {
		status, out := badRequest("invalid accessor")
		return nil, status, out
	}
	return st.tokens[id], 0, nil
}

func renewSelf(c *gin.Context) (int, gin.H) {
	var body struct {
		Increment any `json:"increment"`
	}
	if !bind(c, &body) {
		return invalidBody()
	}
	t := currentToken(c)
	if !t.Renewable {
		return badRequest("lease is not renewable")
	}
	switch inc := body.Increment.(type) {
	case string:
		ttl, err := parseSeconds(inc)
		if err != nil {
			return badRequest("invalid increment " + inc)
		}
		t.TTL = ttl
	case float64:
		t.TTL = int(inc)
	}
	return http.StatusOK, authEnvelope(t)
}

func (s *Server) appRoleMethod(c *gin.Context, st *state, sub string) (int, gin.H) {
	parts := strings.Split(sub, "/")
	method := c.Request.Method
	switch {
	case sub == "login" && method == http.MethodPost:
		var body struct {
			RoleID   string `json:"role_id"`
			SecretID string `json:"secret_id"`
		}
		if !bind(c, &body) {
			return invalidBody()
		}
		name, role := roleByID(st, body.RoleID)
		if role == nil {
			return badRequest("invalid role ID")
		}
		if role.BindSecretID {
			if _, ok := role.SecretIDs[body.SecretID]; !ok {
				return badRequest("invalid secret id")
			}
		}
		t := login(st, "auth/approle/login", "approle", role.Policies, map[string]string{"role_name": name})
		return http.StatusOK, authEnvelope(t)

	case len(parts) == 3 && parts[0] == "role" && parts[2] == "role-id" && method == http.MethodGet:
		role, ok := st.roles[parts[1]]
		if !ok {
			return http.StatusNotFound, failure()
		}
		return http.StatusOK, envelope(gin.H{"role_id": role.RoleID})

	case len(parts) == 3 && parts[0] == "role" && parts[2] == "secret-id" && method == http.MethodPost:
		role, ok := st.roles[parts[1]]
		if !ok {
			return badRequest("role \"" + parts[1] + "\" does not exist")
		}
		var body struct {
			Metadata string `json:"metadata"`
		}
		if !bind(c, &body) {
			return invalidBody()
		}
		var meta map[string]string
		if body.Metadata != "" {
			if err := json.Unmarshal([]byte(body.Metadata), &meta); err != nil {
				return badRequest("failed to parse metadata")
			}
		}
		secretID := newID()
		role.SecretIDs[secretID] = meta
		return http.StatusOK, envelope(gin.H{
			"secret_id":          secretID,
			"secret_id_accessor": newID(),
			"secret_id_ttl":      0,
			"secret_id_num_uses": 0,
		})
	}
	return noHandler("auth/approle/" + sub)
}

func roleByID(st *state, roleID string) (string, *appRole) {
	for name, r := range st.roles {
		if r.RoleID == roleID {
			return name, r
		}
	}
	return "", nil
}

func (s *Server) userpassMethod(c *gin.Context, st *state, sub string) (int, gin.H) {
	username, ok := strings.CutPrefix(sub, "login/")
	if !ok || c.Request.Method != http.MethodPost {
		return noHandler("auth/userpass/" + sub)
	}
	var body struct {
		Password string `json:"password"`
	}
	if !bind(c, &body) {
		return invalidBody()
	}
	u, ok := st.users[username]
	if !ok || u.Password != body.Password {
		return badRequest("invalid username or password")
	}
	t := login(st, "auth/userpass/login/"+username, "userpass-"+username, u.Policies, map[string]string{"username": username})
	return http.StatusOK, authEnvelope(t)
}

func (s *Server) jwtMethod(c *gin.Context, st *state, sub string) (int, gin.H) {
	if sub != "login" || c.Request.Method != http.MethodPost {
		return noHandler("auth/jwt/" + sub)
	}
	var body struct {
		Role string `json:"role"`
		JWT  string `json:"jwt"`
	}
	if !bind(c, &body) {
		return invalidBody()
	}
	policies, ok := st.jwtRoles[body.Role]
	if !ok {
		return badRequest("role \"" + body.Role + "\" could not be found")
	}
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(body.JWT, claims, func(*jwt.Token) (any, error) {
		return s.jwtKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return badRequest("error validating token: " + err.Error())
	}
	subject, _ := claims.GetSubject()
	t := login(st, "auth/jwt/login", "jwt-"+subject, policies, map[string]string{"role": body.Role})
	return http.StatusOK, authEnvelope(t)
}

func login(st *state, path, displayName string, policies []string, meta map[string]string) *tokenEntry {
	t := &tokenEntry{
		ID:          newToken(),
		DisplayName: displayName,
		Path:        path,
		Policies:    append([]string{"default"}, policies...),
		Meta:        meta,
		TTL:         defaultTTL,
		Renewable:   true,
		Orphan:      true,
		Created:     time.Now(),
	}
	st.addToken(t)
	return t
}

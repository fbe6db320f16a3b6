package vaulttest

import (
	"maps"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type tokenEntry struct {
	ID          string
	Accessor    string
	DisplayName string
	Path        string
	Policies    []string
	Meta        map[string]string
	TTL         int
	NumUses     int
	Renewable   bool
	Orphan      bool
	Created     time.Time
}

func (t *tokenEntry) data() gin.H {
	return gin.H{
		"id":            t.ID,
		"accessor":      t.Accessor,
		"display_name":  t.DisplayName,
		"path":          t.Path,
		"policies":      t.Policies,
		"meta":          t.Meta,
		"ttl":           t.TTL,
		"creation_ttl":  t.TTL,
		"num_uses":      t.NumUses,
		"renewable":     t.Renewable,
		"orphan":        t.Orphan,
		"creation_time": t.Created.Unix(),
		"type":          "service",
	}
}

func (t *tokenEntry) auth() gin.H {
	return gin.H{
		"client_token":   t.ID,
		"accessor":       t.Accessor,
		"policies":       t.Policies,
		"token_policies": t.Policies,
		"metadata":       t.Meta,
		"lease_duration": t.TTL,
		"renewable":      t.Renewable,
		"entity_id":      "",
		"token_type":     "service",
		"orphan":         t.Orphan,
	}
}

type wrapEntry struct {
	Token        string
	Accessor     string
	CreationPath string
	TTL          int
	Created      time.Time
	Payload      gin.H
}

func (w *wrapEntry) info() gin.H {
	return gin.H{
		"token":         w.Token,
		"accessor":      w.Accessor,
		"ttl":           w.TTL,
		"creation_time": w.Created.UTC().Format(time.RFC3339Nano),
		"creation_path": w.CreationPath,
	}
}

type kvVersion struct {
	Data    map[string]any
	Created time.Time
	Deleted time.Time
}

func (v kvVersion) metadata(version int) gin.H {
	deleted := ""
	if !v.Deleted.IsZero() {
		deleted = v.Deleted.UTC().Format(time.RFC3339Nano)
	}
	return gin.H{
		"created_time":  v.Created.UTC().Format(time.RFC3339Nano),
		"deletion_time": deleted,
		"destroyed":     false,
		"version":       version,
	}
}

// kvSecret holds every version of a v2 secret; Versions[i] is version i+1.
type kvSecret struct {
	Versions []kvVersion
}

func (k *kvSecret) current() int { return len(k.Versions) }

type mount struct {
	Type        string
	Version     int
	Description string
}

type appRole struct {
	RoleID       string
	BindSecretID bool
	Policies     []string
	SecretIDs    map[string]map[string]string
}

type user struct {
	Password string
	Policies []string
}

// state is everything Reset, Snapshot and Restore operate on.
type state struct {
	tokens     map[string]*tokenEntry
	accessors  map[string]string
	wraps      map[string]*wrapEntry
	kv1        map[string]map[string]any
	kv2        map[string]*kvSecret
	mounts     map[string]mount
	authMounts map[string]string
	roles      map[string]*appRole
	users      map[string]user
	jwtRoles   map[string][]string
	sealed     bool
	standby    bool
}

func (st *state) addToken(t *tokenEntry) {
	if t.Accessor == "" {
		t.Accessor = newID()
	}
	st.tokens[t.ID] = t
	st.accessors[t.Accessor] = t.ID
}

func (st *state) revoke(token string) {
	if t, ok := st.tokens[token]; ok {
		delete(st.accessors, t.Accessor)
		delete(st.tokens, token)
	}
}

func (st *state) wrap(payload gin.H, ttl int, creationPath string) *wrapEntry {
	w := &wrapEntry{
		Token:        newToken(),
		Accessor:     newID(),
		CreationPath: creationPath,
		TTL:          ttl,
		Created:      time.Now(),
		Payload:      payload,
	}
	st.wraps[w.Token] = w
	return w
}

// mountFor returns the longest mount that prefixes rel and the remainder.
func (st *state) mountFor(rel string) (string, mount, string, bool) {
	best := ""
	for name := range st.mounts {
		if (rel == name || strings.HasPrefix(rel, name+"/")) && len(name) > len(best) {
			best = name
		}
	}
	if best == "" {
		return "", mount{}, "", false
	}
	rest := strings.TrimPrefix(strings.TrimPrefix(rel, best), "/")
	return best, st.mounts[best], rest, true
}

func (st *state) clone() *state {
	out := &state{
		tokens:     make(map[string]*tokenEntry, len(st.tokens)),
		accessors:  maps.Clone(st.accessors),
		wraps:      make(map[string]*wrapEntry, len(st.wraps)),
		kv1:        make(map[string]map[string]any, len(st.kv1)),
		kv2:        make(map[string]*kvSecret, len(st.kv2)),
		mounts:     maps.Clone(st.mounts),
		authMounts: maps.Clone(st.authMounts),
		roles:      make(map[string]*appRole, len(st.roles)),
		users:      maps.Clone(st.users),
		jwtRoles:   maps.Clone(st.jwtRoles),
		sealed:     st.sealed,
		standby:    st.standby,
	}
	for k, t := range st.tokens {
		cp := *t
		cp.Policies = slices.Clone(t.Policies)
		cp.Meta = maps.Clone(t.Meta)
		out.tokens[k] = &cp
	}
	for k, w := range st.wraps {
		cp := *w
		cp.Payload = maps.Clone(w.Payload)
		out.wraps[k] = &cp
	}
	for k, v := range st.kv1 {
		out.kv1[k] = maps.Clone(v)
	}
	for k, sec := range st.kv2 {
		out.kv2[k] = &kvSecret{Versions: slices.Clone(sec.Versions)}
	}
	for k, r := range st.roles {
		cp := *r
		cp.Policies = slices.Clone(r.Policies)
		cp.SecretIDs = maps.Clone(r.SecretIDs)
		out.roles[k] = &cp
	}
	return out
}

// listKeys returns the immediate children of prefix among keys, folders
// with a trailing slash.
func listKeys(keys []string, prefix string) []string {
	seen := map[string]bool{}
	var out []string
	for _, k := range keys {
		rest, ok := strings.CutPrefix(k, prefix)
		if !ok || rest == "" {
			continue
		}
		if i := strings.Index(rest, "/"); i >= 0 {
			rest = rest[:i+1]
		}
		if !seen[rest] {
			seen[rest] = true
			out = append(out, rest)
		}
	}
	sort.Strings(out)
	return out
}

func newID() string { return uuid.NewString() }

func newToken() string {
	return "hvs." + strings.ReplaceAll(uuid.NewString(), "-", "")
}

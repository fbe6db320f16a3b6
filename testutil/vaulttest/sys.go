package vaulttest

import (
	"maps"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func (s *Server) health(c *gin.Context, st *state) (int, gin.H) {
	status := http.StatusOK
	switch {
	case st.sealed:
		status = http.StatusServiceUnavailable
	case st.standby && c.Query("standbyok") != "true":
		status = http.StatusTooManyRequests
	}
	return status, gin.H{
		"initialized":         true,
		"sealed":              st.sealed,
		"standby":             st.standby,
		"performance_standby": false,
		"replication_dr_mode": "disabled",
		"server_time_utc":     time.Now().Unix(),
		"version":             Version,
		"cluster_name":        "vaulttest",
	}
}

func (s *Server) listMounts(_ *gin.Context, st *state) (int, gin.H) {
	data := gin.H{}
	for name, m := range st.mounts {
		entry := gin.H{"type": m.Type, "description": m.Description, "options": nil}
		if m.Type == "kv" {
			entry["options"] = gin.H{"version": strconv.Itoa(m.Version)}
		}
		data[name+"/"] = entry
	}
	out := envelope(data)
	maps.Copy(out, data)
	return http.StatusOK, out
}

func (s *Server) enableMount(c *gin.Context, st *state) (int, gin.H) {
	var body struct {
		Type        string            `json:"type"`
		Description string            `json:"description"`
		Options     map[string]string `json:"options"`
	}
	if !bind(c, &body) {
		return invalidBody()
	}
	name := strings.Trim(c.Param("path"), "/")
	if _, ok := st.mounts[name]; ok {
		return badRequest("path is already in use at " + name + "/")
	}
	m := mount{Type: body.Type, Description: body.Description}
	switch body.Type {
	case "kv":
		m.Version = 1
		if body.Options["version"] == "2" {
			m.Version = 2
		}
	case "kv-v2":
		m.Type, m.Version = "kv", 2
	case "pki":
	default:
		return badRequest("plugin not found in the catalog: " + body.Type)
	}
	st.mounts[name] = m
	return http.StatusNoContent, nil
}

func (s *Server) disableMount(c *gin.Context, st *state) (int, gin.H) {
	delete(st.mounts, strings.Trim(c.Param("path"), "/"))
	return http.StatusNoContent, nil
}

func (s *Server) wrapData(c *gin.Context, _ *state) (int, gin.H) {
	if c.GetHeader(headerWrapTTL) == "" {
		return badRequest("must include a wrap TTL")
	}
	data := map[string]any{}
	if !bind(c, &data) {
		return invalidBody()
	}
	return http.StatusOK, envelope(data)
}

type wrappingBody struct {
	Token string `json:"token"`
}

// wrappingToken reads the token from the body, falling back to the header.
func wrappingToken(c *gin.Context) (string, bool) {
	var body wrappingBody
	if !bind(c, &body) {
		return "", false
	}
	if body.Token != "" {
		return body.Token, true
	}
	return c.GetHeader(headerToken), true
}

func (s *Server) unwrap(c *gin.Context, st *state) (int, gin.H) {
	token, ok := wrappingToken(c)
	if !ok {
		return invalidBody()
	}
	w, ok := st.wraps[token]
	if !ok {
		return badRequest("wrapping token is not valid or does not exist")
	}
	delete(st.wraps, token)
	out := maps.Clone(w.Payload)
	out["request_id"] = uuid.NewString()
	return http.StatusOK, out
}

func (s *Server) lookupWrapping(c *gin.Context, st *state) (int, gin.H) {
	token, ok := wrappingToken(c)
	if !ok {
		return invalidBody()
	}
	w, ok := st.wraps[token]
	if !ok {
		return badRequest("wrapping token is not valid or does not exist")
	}
	return http.StatusOK, envelope(gin.H{
		"creation_path": w.CreationPath,
		"creation_time": w.Created.UTC().Format(time.RFC3339Nano),
		"creation_ttl":  w.TTL,
	})
}

func (s *Server) rewrap(c *gin.Context, st *state) (int, gin.H) {
	token, ok := wrappingToken(c)
	if !ok {
		return invalidBody()
	}
	w, ok := st.wraps[token]
	if !ok {
		return badRequest("wrapping token is not valid or does not exist")
	}
	delete(st.wraps, token)
	next := st.wrap(w.Payload, w.TTL, w.CreationPath)
	out := envelope(nil)
	out["wrap_info"] = next.info()
	// Sent as is; the wrap TTL header must not wrap the new wrap_info again.
	c.JSON(http.StatusOK, out)
	return 0, nil
}

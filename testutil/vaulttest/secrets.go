package vaulttest

import (
	"maps"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

func kvKey(ns, mountName, p string) string {
	return ns + "|" + mountName + "/" + strings.Trim(p, "/")
}

func kvPrefix(ns, mountName, p string) string {
	prefix := ns + "|" + mountName + "/"
	if p = strings.Trim(p, "/"); p != "" {
		prefix += p + "/"
	}
	return prefix
}

func listResponse(keys []string) (int, gin.H) {
	if len(keys) == 0 {
		return http.StatusNotFound, failure()
	}
	return http.StatusOK, envelope(gin.H{"keys": keys})
}

func (s *Server) kvV1(c *gin.Context, st *state, mountName, p string) (int, gin.H) {
	ns := namespace(c)
	if isList(c) {
		return listResponse(listKeys(slices.Collect(maps.Keys(st.kv1)), kvPrefix(ns, mountName, p)))
	}
	if p == "" {
		return http.StatusMethodNotAllowed, failure("unsupported operation")
	}
	key := kvKey(ns, mountName, p)
	switch c.Request.Method {
	case http.MethodGet:
		data, ok := st.kv1[key]
		if !ok {
			return http.StatusNotFound, failure()
		}
		return http.StatusOK, envelope(data)
	case http.MethodPut, http.MethodPost:
		data := map[string]any{}
		if !bind(c, &data) {
			return invalidBody()
		}
		st.kv1[key] = data
		return http.StatusNoContent, nil
	case http.MethodDelete:
		delete(st.kv1, key)
		return http.StatusNoContent, nil
	}
	return http.StatusMethodNotAllowed, failure("unsupported operation")
}

func (s *Server) kvV2(c *gin.Context, st *state, mountName, sub string) (int, gin.H) {
	ns := namespace(c)
	kind, p, _ := strings.Cut(sub, "/")
	key := kvKey(ns, mountName, p)

	switch {
	case kind == "metadata" && isList(c):
		return listResponse(listKeys(slices.Collect(maps.Keys(st.kv2)), kvPrefix(ns, mountName, p)))

	case kind == "data" && p != "" && c.Request.Method == http.MethodGet:
		sec, ok := st.kv2[key]
		if !ok {
			return http.StatusNotFound, failure()
		}
		version := sec.current()
		if v := c.Query("version"); v != "" && v != "0" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 || n > sec.current() {
				return http.StatusNotFound, failure()
			}
			version = n
		}
		entry := sec.Versions[version-1]
		if !entry.Deleted.IsZero() {
			return http.StatusNotFound, failure()
		}
		return http.StatusOK, envelope(gin.H{"data": entry.Data, "metadata": entry.metadata(version)})

	case kind == "data" && p != "" && (c.Request.Method == http.MethodPost || c.Request.Method == http.MethodPut):
		var body struct {
			Data    map[string]any `json:"data"`
			Options struct {
				CAS *int `json:"cas"`
			} `json:"options"`
		}
		if !bind(c, &body) {
			return invalidBody()
		}
		if body.Data == nil {
			return badRequest("no data provided")
		}
		sec, ok := st.kv2[key]
		if !ok {
			sec = &kvSecret{}
		}
		if cas := body.Options.CAS; cas != nil && *cas != sec.current() {
			return badRequest("check-and-set parameter did not match the current version")
		}
		sec.Versions = append(sec.Versions, kvVersion{Data: body.Data, Created: time.Now()})
		st.kv2[key] = sec
		return http.StatusOK, envelope(sec.Versions[sec.current()-1].metadata(sec.current()))

	case kind == "data" && p != "" && c.Request.Method == http.MethodDelete:
		if sec, ok := st.kv2[key]; ok {
			sec.Versions[sec.current()-1].Deleted = time.Now()
		}
		return http.StatusNoContent, nil

	case kind == "metadata" && p != "" && c.Request.Method == http.MethodGet:
		sec, ok := st.kv2[key]
		if !ok {
			return http.StatusNotFound, failure()
		}
		versions := gin.H{}
		for i, v := range sec.Versions {
			versions[strconv.Itoa(i+1)] = v.metadata(i + 1)
		}
		first := sec.Versions[0].Created.UTC().Format(time.RFC3339Nano)
		last := sec.Versions[sec.current()-1].Created.UTC().Format(time.RFC3339Nano)
		return http.StatusOK, envelope(gin.H{
			"current_version": sec.current(),
			"oldest_version":  1,
			"created_time":    first,
			"updated_time":    last,
			"versions":        versions,
		})

	case kind == "metadata" && p != "" && c.Request.Method == http.MethodDelete:
		delete(st.kv2, key)
		return http.StatusNoContent, nil
	}
	return noHandler(mountName + "/" + sub)
}

// pki serves the CA material as PEM text, the way Vault does.
func (s *Server) pki(c *gin.Context, sub string) (int, gin.H) {
	if c.Request.Method != http.MethodGet {
		return noHandler("pki/" + sub)
	}
	switch sub {
	case "ca/pem", "ca_chain":
		c.Data(http.StatusOK, "application/pem-file", []byte(s.CAPEM()))
		return 0, nil
	case "crl/pem":
		c.Data(http.StatusOK, "application/pem-file", s.crl)
		return 0, nil
	}
	return noHandler("pki/" + sub)
}

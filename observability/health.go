package observability

import (
	"maps"
	"time"
)

// HealthStatus is the coarse state a health check reports.
type HealthStatus string

const (
	HealthStatusUp       HealthStatus = "up"
	HealthStatusDown     HealthStatus = "down"
	HealthStatusDegraded HealthStatus = "degraded"
)

// severity orders statuses so the worst one wins when they are combined.
func (s HealthStatus) severity() int {
	switch s {
	case HealthStatusDown:
		return 2
	case HealthStatusDegraded:
		return 1
	}
	return 0
}

// Health is one component's check result. For Vault, Details carries the
// sys/health status code and server version.
type Health struct {
	Name    string            `json:"name"`
	Status  HealthStatus      `json:"status"`
	Message string            `json:"message,omitempty"`
	Latency time.Duration     `json:"latency,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// WithDetail returns a copy of h with key set; h itself is left untouched.
func (h Health) WithDetail(key, value string) Health {
	details := maps.Clone(h.Details)
	if details == nil {
		details = make(map[string]string, 1)
	}
	details[key] = value
	h.Details = details
	return h
}

// ServiceHealth is the rolled-up health of a program and its components.
type ServiceHealth struct {
	Service    string       `json:"service"`
	Status     HealthStatus `json:"status"`
	Version    string       `json:"version,omitempty"`
	Components []Health     `json:"components,omitempty"`
}

// NewServiceHealth starts a report in the up state.
func NewServiceHealth(service, version string) *ServiceHealth {
	return &ServiceHealth{Service: service, Version: version, Status: HealthStatusUp}
}

// AddComponent appends h and lowers the overall status to h's when h is
// worse.
func (sh *ServiceHealth) AddComponent(h Health) {
	sh.Components = append(sh.Components, h)
	if h.Status.severity() > sh.Status.severity() {
		sh.Status = h.Status
	}
}

// Package status implements the status monitoring core: the component data
// model, the aggregator state machine, and document persistence.
package status

import "time"

// ComponentStatus represents the health of a single monitored component.
type ComponentStatus string

// Component statuses.
const (
	StatusOnline   ComponentStatus = "online"
	StatusOffline  ComponentStatus = "offline"
	StatusDegraded ComponentStatus = "degraded"
	StatusUnknown  ComponentStatus = "unknown"
)

// IsValid checks if the component status is valid.
func (s ComponentStatus) IsValid() bool {
	switch s {
	case StatusOnline, StatusOffline, StatusDegraded, StatusUnknown:
		return true
	}
	return false
}

// IsUnhealthy reports whether the status should have an open incident
// attached to it.
func (s ComponentStatus) IsUnhealthy() bool {
	return s == StatusOffline || s == StatusDegraded
}

// IncidentStatus represents the lifecycle state of an incident.
type IncidentStatus string

// Incident statuses.
const (
	IncidentInvestigating IncidentStatus = "investigating"
	IncidentResolved      IncidentStatus = "resolved"
)

// CheckConfig is one monitored component as declared in status-config.json.
// It is loaded once per run and immutable during the run.
type CheckConfig struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	URL         string `json:"url"`
	Expect      int    `json:"expect,omitempty"`
	Description string `json:"description,omitempty"`
}

// AlertConfig controls webhook notifications.
type AlertConfig struct {
	NotifyOnChange bool `json:"notify_on_change"`
}

// Config is the component check configuration document.
type Config struct {
	Components  []CheckConfig `json:"components"`
	Alerts      AlertConfig   `json:"alerts"`
	GitHubToken string        `json:"github_token,omitempty"`
	GitHubRepo  string        `json:"github_repo,omitempty"`
}

// Component is the status record produced for one configured component per
// run. The current set replaces the previous set wholesale.
type Component struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Status      ComponentStatus `json:"status"`
	Description string          `json:"description"`
	CheckedAt   time.Time       `json:"checked_at"`
	Details     string          `json:"details,omitempty"`
	TLSExpires  *time.Time      `json:"tls_expires,omitempty"`
}

// Incident is a tracked unhealthy period for one component, optionally
// mirrored to an external issue. Incidents are the only entity with
// cross-run mutable state.
type Incident struct {
	ID          string         `json:"id"`
	ComponentID string         `json:"component_id"`
	Title       string         `json:"title"`
	Status      IncidentStatus `json:"status"`
	Issue       string         `json:"issue,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	ResolvedAt  *time.Time     `json:"resolved_at,omitempty"`
}

// IsOpen reports whether the incident is still active.
func (i *Incident) IsOpen() bool {
	return i.Status != IncidentResolved
}

// Document is the persisted status document, the sole source of truth read
// by the query endpoint and the poller.
type Document struct {
	Summary    string          `json:"summary"`
	Status     ComponentStatus `json:"status"`
	UpdatedAt  time.Time       `json:"updated_at"`
	Components []Component     `json:"components"`
	Incidents  []Incident      `json:"incidents"`
}

// OpenIncident returns the open incident for the given component id, or nil.
// At most one open incident exists per component at any time.
func (d *Document) OpenIncident(componentID string) *Incident {
	for i := range d.Incidents {
		if d.Incidents[i].ComponentID == componentID && d.Incidents[i].IsOpen() {
			return &d.Incidents[i]
		}
	}
	return nil
}

// ComponentByID returns the component record with the given id, or nil.
func (d *Document) ComponentByID(id string) *Component {
	for i := range d.Components {
		if d.Components[i].ID == id {
			return &d.Components[i]
		}
	}
	return nil
}

// ComponentState is the per-component slice of a history entry.
type ComponentState struct {
	ID     string          `json:"id"`
	Status ComponentStatus `json:"status"`
}

// HistoryEntry is one append-only audit record of an aggregator run.
type HistoryEntry struct {
	Time       time.Time        `json:"time"`
	Status     ComponentStatus  `json:"status"`
	Summary    string           `json:"summary"`
	Components []ComponentState `json:"components"`
}

// HistoryLimit caps the rolling history log; oldest entries are evicted
// first.
const HistoryLimit = 200

// Overall derives the overall status from a component set: offline if any
// component is offline, else degraded if any is degraded, else online.
func Overall(components []Component) ComponentStatus {
	overall := StatusOnline
	for _, c := range components {
		switch c.Status {
		case StatusOffline:
			return StatusOffline
		case StatusDegraded:
			overall = StatusDegraded
		}
	}
	return overall
}

// Summarize returns the human summary line for an overall status.
func Summarize(overall ComponentStatus) string {
	if overall == StatusOffline {
		return "Some services are down"
	}
	return "All systems operational"
}

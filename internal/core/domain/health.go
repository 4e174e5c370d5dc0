package domain

// Health states.
const (
	HealthOK          = "ok"
	HealthDegraded    = "degraded"
	HealthUnavailable = "unavailable"
	HealthDisabled    = "disabled"
)

// ComponentHealth reports one dependency.
type ComponentHealth struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Backend string `json:"backend,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// Health summarises the service. Status is ok when every component is ok,
// degraded when only synthesis is missing, and unavailable otherwise.
type Health struct {
	Status     string            `json:"status"`
	Components []ComponentHealth `json:"components"`
}

package model

// SessionState is owned by the session controller.
type SessionState int

// Session states.
const (
	StateIdle SessionState = iota
	StateModeSelected
	StateInitializing
	StateRunning
	StateStopping
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateModeSelected:
		return "mode_selected"
	case StateInitializing:
		return "initializing"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Active reports whether a session holds resources in this state.
func (s SessionState) Active() bool {
	return s == StateInitializing || s == StateRunning || s == StateStopping
}

// DisplayUpdate is what the display sink receives on every change.
type DisplayUpdate struct {
	SessionID         string  `json:"session_id,omitempty"`
	State             string  `json:"state"`
	Mode              Mode    `json:"mode,omitempty"`
	ModeName          string  `json:"mode_name,omitempty"`
	Feature           Feature `json:"feature,omitempty"`
	FeatureName       string  `json:"feature_name,omitempty"`
	ResultLabel       string  `json:"result_label,omitempty"`
	ConfidencePercent int     `json:"confidence_percent"`
	Detecting         bool    `json:"detecting"`
	Mock              bool    `json:"mock"`
}

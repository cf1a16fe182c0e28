package flow

// Status is the state of a flow. Idle, Success and Error are shared by every flow;
// each flow defines its own in-progress statuses.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Terminal reports whether s is a resting state
func (s Status) Terminal() bool {
	return s == StatusIdle || s == StatusSuccess || s == StatusError
}

func (s Status) String() string {
	return string(s)
}

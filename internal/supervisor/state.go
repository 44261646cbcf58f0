package supervisor

// State names a point in the Ensure lifecycle, for logs and audit events.
type State int

const (
	StateIdle State = iota
	StateDiscovering
	StateReusing
	StateStarting
	StateProbing
	StateRestarting
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDiscovering:
		return "discovering"
	case StateReusing:
		return "reusing"
	case StateStarting:
		return "starting"
	case StateProbing:
		return "probing"
	case StateRestarting:
		return "restarting"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

type stepKind int

const (
	stepOK stepKind = iota
	stepAdvisory
	stepFatal
)

// stepResult is the outcome of one lifecycle step. Advisory failures are
// logged and the lifecycle continues; fatal failures end it.
type stepResult struct {
	kind stepKind
	err  error
}

func ok() stepResult { return stepResult{kind: stepOK} }

func advisory(err error) stepResult {
	if err == nil {
		return ok()
	}
	return stepResult{kind: stepAdvisory, err: err}
}

func fatal(err error) stepResult {
	return stepResult{kind: stepFatal, err: err}
}

func (r stepResult) failed() bool { return r.kind != stepOK }

package census

import "fmt"

// ConfigurationError reports missing or structurally invalid task input.
// It is detected before any request is sent to Census and never retried.
type ConfigurationError struct {
	Reason string
}

func (e ConfigurationError) Error() string {
	return e.Reason
}

// Phases of a sync invocation, for error reporting.
const (
	PhaseTrigger = "trigger"
	PhasePoll    = "poll"
)

// RemoteServiceError reports a failed or malformed response from the Census
// API. It is fatal to the invocation; the task never retries, an outer
// workflow engine is expected to supply retries if wanted.
type RemoteServiceError struct {
	Phase      string // PhaseTrigger or PhasePoll
	StatusCode int    // zero if the request never produced a response
	Body       string // response body verbatim, trigger phase only
	LogURL     string // sync-history page in the Census UI, poll phase only
	Reason     string
}

func (e RemoteServiceError) Error() string {
	s := fmt.Sprintf("census %s failed: %s", e.Phase, e.Reason)
	if e.LogURL != "" {
		s = fmt.Sprintf("%s, please visit Census Logs at %s to see more", s, e.LogURL)
	}
	return s
}

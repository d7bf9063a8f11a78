package census

import (
	"fmt"
	"regexp"
)

// apiTriggerPattern matches the API trigger URL shown on a sync's
// configuration page in Census. The whole value must match and matching is
// case sensitive, because the embedded secret token is case sensitive.
var apiTriggerPattern = regexp.MustCompile(`^https://bearer:secret-token:([^@]+)@([A-Za-z0-9.-]+)/api/v1/syncs/([0-9]+)/trigger$`)

// APITrigger is a parsed and validated Census API trigger URL.
// It is immutable once parsed and carries everything needed to derive the
// sync run status endpoint and the sync-history page for the same sync.
type APITrigger struct {
	raw    string
	secret string
	host   string
	syncID string
}

// ParseAPITrigger validates an API trigger URL without any network I/O.
// Failures are ConfigurationErrors.
func ParseAPITrigger(apitrigger string) (APITrigger, error) {
	var result APITrigger
	if apitrigger == "" {
		return result, ConfigurationError{
			Reason: "a value for APITrigger must be provided, see the sync configuration page in Census",
		}
	}
	groups := apiTriggerPattern.FindStringSubmatch(apitrigger)
	if groups == nil {
		return result, ConfigurationError{
			Reason: "invalid APITrigger, paste it directly from the sync configuration page in Census (it is CaSe SenSITiVe)",
		}
	}
	result = APITrigger{
		raw:    apitrigger,
		secret: groups[1],
		host:   groups[2],
		syncID: groups[3],
	}
	return result, nil
}

// SyncID returns the numeric sync identifier from the trigger URL.
func (t APITrigger) SyncID() string {
	return t.syncID
}

// TriggerURL returns the trigger endpoint verbatim.
func (t APITrigger) TriggerURL() string {
	return t.raw
}

// StatusURL returns the sync run status endpoint for the given run,
// reusing the credential embedded in the trigger URL.
func (t APITrigger) StatusURL(syncRunID string) string {
	return fmt.Sprintf("https://bearer:secret-token:%s@%s/api/v1/sync_runs/%s", t.secret, t.host, syncRunID)
}

// LogURL returns the sync-history page in the Census UI for this sync.
func (t APITrigger) LogURL() string {
	return fmt.Sprintf("https://%s/syncs/%s/sync-history", t.host, t.syncID)
}

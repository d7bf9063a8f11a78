package census

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// JSON keys recognised inside composite sync env vars.
const (
	APITriggerKey             = "API_TRIGGER"
	PollStatusEverySecondsKey = "POLL_STATUS_EVERY_SECONDS"
)

// SyncEnvVar represents a sync registered in the environment: an env var
// whose value is a JSON object containing at least an API_TRIGGER key.
type SyncEnvVar struct {
	Name       string // env var name (e.g. "CRM_NIGHTLY_SYNC")
	APITrigger string
	SyncID     string
}

// FindAllSyncEnvVars scans environment variables for JSON values containing
// an API_TRIGGER key that parses as a valid trigger URL.
// Returns one entry per matching env var.
func FindAllSyncEnvVars() []SyncEnvVar {
	var result []SyncEnvVar
	for _, env := range os.Environ() {
		parts := strings.SplitN(env, "=", 2)
		if len(parts) != 2 {
			continue
		}
		name, value := parts[0], parts[1]

		var m map[string]string
		// Most env vars are plain strings (e.g. PATH), not JSON — skip those silently
		if err := json.Unmarshal([]byte(value), &m); err != nil {
			continue
		}

		apitrigger, ok := m[APITriggerKey]
		if !ok {
			continue
		}
		trigger, err := ParseAPITrigger(apitrigger)
		if err != nil {
			continue
		}

		result = append(result, SyncEnvVar{Name: name, APITrigger: apitrigger, SyncID: trigger.SyncID()})
	}
	return result
}

// FindSyncEnvVar finds the env var registering the sync with the given id.
// Returns an empty name if none matches, and an error if more than one does.
func FindSyncEnvVar(syncID string) (SyncEnvVar, error) {
	var matches []SyncEnvVar
	for _, v := range FindAllSyncEnvVars() {
		if v.SyncID == syncID {
			matches = append(matches, v)
		}
	}

	if len(matches) == 0 {
		return SyncEnvVar{}, nil
	}
	if len(matches) > 1 {
		names := make([]string, len(matches))
		for i, m := range matches {
			names[i] = m.Name
		}
		return SyncEnvVar{}, fmt.Errorf("found multiple env vars with sync id %q: %s", syncID, strings.Join(names, ", "))
	}

	return matches[0], nil
}

// LoadTaskConfigFromEnvironment builds a TaskConfig for the given sync id
// from its environment registration.
func LoadTaskConfigFromEnvironment(syncID string) (TaskConfig, error) {
	var result TaskConfig

	match, err := FindSyncEnvVar(syncID)
	if err != nil {
		return result, fmt.Errorf("failed to find sync env var %w", err)
	}
	if match.Name == "" {
		return result, fmt.Errorf("no env var found with sync id %q", syncID)
	}

	result.APITrigger = match.APITrigger

	compev := JSONCompositeEnvVar{Parent: match.Name}
	if s, exists := compev.LookupEnv(PollStatusEverySecondsKey); exists {
		n, err := strconv.Atoi(s)
		if err != nil {
			return result, fmt.Errorf("invalid %s in env var %q %w", PollStatusEverySecondsKey, match.Name, err)
		}
		result.PollStatusEverySeconds = n
	}

	return result, nil
}

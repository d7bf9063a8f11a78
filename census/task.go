// Package census runs Census connector sync jobs to completion: it POSTs a
// sync's API trigger, then polls the sync run's status endpoint until the
// run reaches a terminal status, returning the final payload verbatim.
package census

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/carlmjohnson/requests"
	"github.com/tidwall/gjson"
)

// HTTPRequestTimeout is the default timeout for each individual request to
// the Census API. It does not bound the sync itself, which may run for hours.
const HTTPRequestTimeout = 60 * time.Second

const (
	// MinPollInterval is the floor applied to PollStatusEvery regardless of
	// what the caller asks for, to keep the request rate reasonable.
	MinPollInterval = 5 * time.Second

	// DefaultPollInterval is used when the caller does not set PollStatusEvery.
	DefaultPollInterval = 60 * time.Second
)

// StatusWorking is the only non-terminal sync run status. Any other value
// reported by Census ("completed", "failed", ...) ends the poll loop.
const StatusWorking = "working"

// SyncTask runs one Census connector sync to completion.
//
// APITrigger is required and must be copied verbatim from the API trigger
// section of the sync's configuration page in Census. The zero value of the
// remaining fields is usable: requests go through a default client with
// HTTPRequestTimeout and progress is written to the standard logger.
type SyncTask struct {
	APITrigger      string
	PollStatusEvery time.Duration

	Client *http.Client
	Logger *log.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

func (t SyncTask) effectivePollInterval() time.Duration {
	if t.PollStatusEvery == 0 {
		return DefaultPollInterval
	}
	if t.PollStatusEvery < MinPollInterval {
		return MinPollInterval
	}
	return t.PollStatusEvery
}

// Run triggers the sync and blocks until it reaches a terminal status,
// polling the sync run's status endpoint at the effective interval
// (PollStatusEvery clamped to MinPollInterval, or DefaultPollInterval when
// unset). It returns the final payload reported by Census, untouched.
//
// There is no retry and no overall timeout: any HTTP failure or malformed
// response ends the invocation, and a sync that never leaves "working" is
// polled indefinitely. Cancel ctx to stop early; cancellation aborts the
// sleep between polls as well as any in-flight request.
func (t SyncTask) Run(ctx context.Context) (SyncResult, error) {
	trigger, err := ParseAPITrigger(t.APITrigger)
	if err != nil {
		return SyncResult{}, err
	}

	logger := t.Logger
	if logger == nil {
		logger = log.Default()
	}
	client := t.Client
	if client == nil {
		client = &http.Client{Timeout: HTTPRequestTimeout}
	}
	sleep := t.sleep
	if sleep == nil {
		sleep = sleepContext
	}

	statusCode, body, err := fetch(ctx, client, trigger.TriggerURL(), http.MethodPost)
	if err != nil {
		return SyncResult{}, RemoteServiceError{
			Phase:  PhaseTrigger,
			Reason: fmt.Sprintf("POST %v", err),
		}
	}
	if statusCode != http.StatusOK {
		return SyncResult{}, RemoteServiceError{
			Phase:      PhaseTrigger,
			StatusCode: statusCode,
			Body:       body,
			Reason:     fmt.Sprintf("sent POST, failed with status code %d: %s", statusCode, body),
		}
	}
	syncRunID := gjson.Get(body, "data.sync_run_id")
	if !syncRunID.Exists() {
		return SyncResult{}, RemoteServiceError{
			Phase:      PhaseTrigger,
			StatusCode: statusCode,
			Body:       body,
			Reason:     "response is missing data.sync_run_id",
		}
	}

	interval := t.effectivePollInterval()
	logger.Printf("Started Census sync %s, poll interval set to %v.", trigger.SyncID(), interval)

	statusURL := trigger.StatusURL(syncRunID.String())
	logURL := trigger.LogURL()

	start := time.Now()
	for {
		if err := sleep(ctx, interval); err != nil {
			return SyncResult{}, err
		}
		statusCode, body, err := fetch(ctx, client, statusURL, http.MethodGet)
		if err != nil {
			return SyncResult{}, RemoteServiceError{
				Phase:  PhasePoll,
				LogURL: logURL,
				Reason: fmt.Sprintf("GET %v", err),
			}
		}
		data := gjson.Get(body, "data")
		if statusCode != http.StatusOK || !data.Exists() {
			return SyncResult{}, RemoteServiceError{
				Phase:      PhasePoll,
				StatusCode: statusCode,
				LogURL:     logURL,
				Reason:     "getting status of sync failed",
			}
		}
		if data.Get("status").String() == StatusWorking {
			logger.Printf("Sync %s still running after %.2f seconds.", trigger.SyncID(), time.Since(start).Seconds())
			continue
		}
		result := newSyncResult(data.Raw)
		result.Elapsed = time.Since(start)
		result.LogURL = logURL
		logger.Printf("Sync %s has finished running after %.2f seconds.", trigger.SyncID(), result.Elapsed.Seconds())
		logger.Printf("View details here: %s.", logURL)
		return result, nil
	}
}

// fetch issues one request and hands back the status code and body verbatim,
// leaving classification to the caller. The validator is a no-op so that
// non-2xx responses still surface their body.
func fetch(ctx context.Context, client *http.Client, rawurl string, method string) (statusCode int, body string, err error) {
	err = requests.
		URL(rawurl).
		Client(client).
		Method(method).
		AddValidator(func(res *http.Response) error {
			statusCode = res.StatusCode
			return nil
		}).
		ToString(&body).
		Fetch(ctx)
	return statusCode, body, err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

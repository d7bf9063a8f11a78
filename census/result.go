package census

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/iancoleman/strcase"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// SyncResult is the final sync run payload reported by Census.
//
// Raw holds the provider's data object verbatim; the typed fields are a
// convenience parsed from it. Pointer fields are nil when Census reports null
// or omits the field. Statuses other than "completed" and "failed" are
// possible and are passed through as-is.
type SyncResult struct {
	Raw string

	Status           string
	ErrorMessage     *string
	RecordsFailed    *int64
	RecordsInvalid   *int64
	RecordsProcessed *int64
	RecordsUpdated   *int64

	// Advisory run metadata, not part of the Census payload.
	Elapsed time.Duration
	LogURL  string
}

func newSyncResult(raw string) SyncResult {
	return SyncResult{
		Raw:              raw,
		Status:           gjson.Get(raw, "status").String(),
		ErrorMessage:     stringField(raw, "error_message"),
		RecordsFailed:    intField(raw, "records_failed"),
		RecordsInvalid:   intField(raw, "records_invalid"),
		RecordsProcessed: intField(raw, "records_processed"),
		RecordsUpdated:   intField(raw, "records_updated"),
	}
}

func stringField(raw string, path string) *string {
	v := gjson.Get(raw, path)
	if !v.Exists() || v.Type == gjson.Null {
		return nil
	}
	s := v.String()
	return &s
}

func intField(raw string, path string) *int64 {
	v := gjson.Get(raw, path)
	if !v.Exists() || v.Type == gjson.Null {
		return nil
	}
	i := v.Int()
	return &i
}

// Annotated returns the raw payload with log_url and elapsed_seconds added,
// leaving the provider's own fields untouched.
func (r SyncResult) Annotated() (string, error) {
	s, err := sjson.Set(r.Raw, "log_url", r.LogURL)
	if err != nil {
		return "", fmt.Errorf("failed to annotate sync result %w", err)
	}
	s, err = sjson.Set(s, "elapsed_seconds", math.Round(r.Elapsed.Seconds()*100)/100)
	if err != nil {
		return "", fmt.Errorf("failed to annotate sync result %w", err)
	}
	return s, nil
}

// Summary renders the payload as human-readable lines, one per field, with
// snake_case field names converted to labels
// (e.g. "records_processed" becomes "Records Processed").
func (r SyncResult) Summary() string {
	var b strings.Builder
	gjson.Parse(r.Raw).ForEach(func(key, value gjson.Result) bool {
		parts := strings.Split(key.String(), "_")
		for i, p := range parts {
			parts[i] = strcase.ToCamel(p)
		}
		label := strings.Join(parts, " ")
		if value.Type == gjson.Null {
			fmt.Fprintf(&b, "%s: none\n", label)
		} else {
			fmt.Fprintf(&b, "%s: %s\n", label, value.String())
		}
		return true
	})
	return b.String()
}

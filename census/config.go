package census

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/config"
)

// TaskConfig holds sync task settings loaded from YAML sources and/or
// environment variables.
type TaskConfig struct {
	APITrigger             string
	PollStatusEverySeconds int
}

// Task builds a SyncTask from the config.
func (c TaskConfig) Task() SyncTask {
	return SyncTask{
		APITrigger:      c.APITrigger,
		PollStatusEvery: time.Duration(c.PollStatusEverySeconds) * time.Second,
	}
}

type TaskConfigUnmarshaler interface {
	Unmarshal(compev CompositeEnvVar, sources ...io.Reader) (TaskConfig, error)
}

type CompositeEnvVar interface {
	LookupEnv(child string) (string, bool)
}

// JSONCompositeEnvVar reads children from an env var whose value is a JSON
// object of strings, e.g.
//
//	CRM_NIGHTLY_SYNC={"API_TRIGGER":"https://...","POLL_STATUS_EVERY_SECONDS":"30"}
type JSONCompositeEnvVar struct {
	Parent string
}

func (c JSONCompositeEnvVar) LookupEnv(child string) (string, bool) {
	if c.Parent != "" {
		s := os.Getenv(c.Parent)
		if s != "" {
			m := make(map[string]string)
			err := json.Unmarshal([]byte(s), &m)
			if err == nil {
				v, exists := m[child]
				return v, exists
			}
		}
	}
	return "", false
}

// OSEnvVar looks children up directly in the process environment.
type OSEnvVar struct{}

func (OSEnvVar) LookupEnv(child string) (string, bool) {
	return os.LookupEnv(child)
}

// YAMLTaskConfigUnmarshaler loads a TaskConfig from YAML sources with
// ${VAR} references expanded through the supplied CompositeEnvVar.
// Later sources override earlier ones.
type YAMLTaskConfigUnmarshaler struct{}

func (u YAMLTaskConfigUnmarshaler) Unmarshal(compev CompositeEnvVar, sources ...io.Reader) (TaskConfig, error) {
	var result TaskConfig
	var options []config.YAMLOption
	for _, s := range sources {
		options = append(options, config.Source(s))
	}
	options = append(options, config.Expand(compev.LookupEnv))
	yaml, err := config.NewYAML(options...)
	if err != nil {
		return result, fmt.Errorf("failed to read yaml config %w", err)
	}
	readError := func(key string, cause error) error {
		return fmt.Errorf("failed to read '%s' from yaml config %w", key, cause)
	}
	key := "apiTrigger"
	result.APITrigger = yaml.Get(key).String()
	key = "pollStatusEverySeconds"
	if yaml.Get(key).HasValue() {
		err = yaml.Get(key).Populate(&result.PollStatusEverySeconds)
		if err != nil {
			return result, readError(key, err)
		}
	}
	return result, nil
}

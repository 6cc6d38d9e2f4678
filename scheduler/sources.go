package scheduler

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SourceConfig is one source's scheduling overrides, loaded from an
// optional YAML file layered on top of the env-var defaults in
// config.Config (the teacher's env-first-then-file layering idiom).
type SourceConfig struct {
	Name     string `yaml:"name"`
	Schedule string `yaml:"schedule,omitempty"` // cron expression override
	Disabled bool   `yaml:"disabled,omitempty"`
}

// SourcesFile is the top-level shape of the optional sources YAML.
type SourcesFile struct {
	Sources []SourceConfig `yaml:"sources"`
}

// LoadSourcesFile reads a YAML sources file. A missing file (or an
// empty path) is not an error; it yields an empty SourcesFile, which
// leaves cmd/ingestor with no sources to register.
func LoadSourcesFile(path string) (SourcesFile, error) {
	if path == "" {
		return SourcesFile{}, nil
	}
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return SourcesFile{}, nil
	}
	if err != nil {
		return SourcesFile{}, fmt.Errorf("read sources file: %w", err)
	}
	var f SourcesFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return SourcesFile{}, fmt.Errorf("parse sources file: %w", err)
	}
	return f, nil
}

// ResolveAllowDeny validates that enabled/disabled lists are disjoint
// and returns the set of source names that should run, given the full
// registered source name list.
func ResolveAllowDeny(all []string, enabled, disabled []string) ([]string, error) {
	disabledSet := make(map[string]struct{}, len(disabled))
	for _, d := range disabled {
		disabledSet[d] = struct{}{}
	}
	enabledSet := make(map[string]struct{}, len(enabled))
	for _, e := range enabled {
		enabledSet[e] = struct{}{}
		if _, clash := disabledSet[e]; clash {
			return nil, fmt.Errorf("source %q listed in both enabled and disabled sources", e)
		}
	}

	useAllowList := len(enabledSet) > 0
	var out []string
	for _, name := range all {
		if _, blocked := disabledSet[name]; blocked {
			continue
		}
		if useAllowList {
			if _, allowed := enabledSet[name]; !allowed {
				continue
			}
		}
		out = append(out, name)
	}
	return out, nil
}

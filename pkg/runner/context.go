package runner

import (
	"fmt"
	"maps"
	"os"

	"gopkg.in/yaml.v3"
)

// Environment variables exported to every step process.
const (
	EnvRunID   = "EVALRUN_RUN_ID"
	EnvWorkDir = "EVALRUN_WORK_DIR"
)

// LoadContextFile reads a YAML file of template values for step commands.
func LoadContextFile(filename string) (map[string]any, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading context file: %w", err)
	}

	var ctx map[string]any
	if err := yaml.Unmarshal(data, &ctx); err != nil {
		return nil, fmt.Errorf("parsing context file: %w", err)
	}

	if ctx == nil {
		ctx = make(map[string]any)
	}

	return ctx, nil
}

// MergeContext performs a shallow merge of overrides over base.
// The config file's context is the base; a -context-file overrides it.
func MergeContext(base, overrides map[string]any) map[string]any {
	merged := make(map[string]any, len(base)+len(overrides))
	maps.Copy(merged, base)
	maps.Copy(merged, overrides)
	return merged
}

func stepEnv(runID, workDir string) []string {
	return []string{
		EnvRunID + "=" + runID,
		EnvWorkDir + "=" + workDir,
	}
}

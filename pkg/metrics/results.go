package metrics

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Inputs names the per-metric result files read by the summary.
type Inputs struct {
	ToolName         string
	Schema           string
	ObsParam         string
	Duplicate        string
	StateConsistency string
}

// Results holds the decoded per-metric result files. A nil field means the
// file was missing or unreadable.
type Results struct {
	ToolName         *ToolNameResult
	Schema           *SchemaResult
	ObsParam         *ObsParamResult
	Duplicate        *DuplicateResult
	StateConsistency *StateConsistencyResult
}

type ToolNameResult struct {
	PerFile []struct {
		File    string  `json:"file"`
		AccTool float64 `json:"Acc_tool"`
	} `json:"per_file_results"`
}

type SchemaResult struct {
	PerFile []struct {
		File                  string `json:"file"`
		TotalCalls            int    `json:"total_calls"`
		ActionValidCalls      int    `json:"action_valid_calls"`
		ObservationValidCalls int    `json:"observation_valid_calls"`
	} `json:"per_file_results"`
}

type ObsParamResult struct {
	PerFile []struct {
		File        string  `json:"file"`
		AccParamObs float64 `json:"Acc_param_obs"`
	} `json:"per_file_results"`
}

type DuplicateResult struct {
	PerFile []struct {
		File        string  `json:"file"`
		RateToolDup float64 `json:"Rate_tool_dup"`
	} `json:"per_file_results"`
}

type ConsistencyScore struct {
	ConsistencyRate float64 `json:"consistency_rate"`
}

type StateConsistencyResult struct {
	PerFile []struct {
		File      string           `json:"file"`
		SameTool  ConsistencyScore `json:"same_tool"`
		CrossTool ConsistencyScore `json:"cross_tool"`
	} `json:"per_file_results"`
}

// LoadResults reads every input relative to dir. Missing or malformed files
// are logged and left nil so the summary covers whatever is available.
func LoadResults(dir string, in Inputs) Results {
	return Results{
		ToolName:         loadResult[ToolNameResult](dir, in.ToolName),
		Schema:           loadResult[SchemaResult](dir, in.Schema),
		ObsParam:         loadResult[ObsParamResult](dir, in.ObsParam),
		Duplicate:        loadResult[DuplicateResult](dir, in.Duplicate),
		StateConsistency: loadResult[StateConsistencyResult](dir, in.StateConsistency),
	}
}

func loadResult[T any](dir, name string) *T {
	if name == "" {
		return nil
	}
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}

	v, err := readJSON[T](path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Warn("result file not found", "path", path)
		} else {
			slog.Warn("could not read result file", "path", path, "error", err)
		}
		return nil
	}
	return v
}

func readJSON[T any](path string) (*T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return &v, nil
}

package api

// Result files written by the metric programs.
const (
	ToolNameResult         = "tool_name_accuracy_result.json"
	SchemaResult           = "schema_validation_accuracy_result.json"
	QueryParamResult       = "query_param_accuracy_result.json"
	ObsParamResult         = "obs_param_accuracy_result.json"
	DuplicateResult        = "duplicate_call_rate_result.json"
	StateConsistencyResult = "state_consistency_result.json"
)

type builtinMetric struct {
	name   string
	label  string
	script string
	result string
}

var builtinMetrics = []builtinMetric{
	{"tool_name_accuracy", "tool name accuracy", "tool_name_accuracy.py", ToolNameResult},
	{"schema_validation_accuracy", "schema validity accuracy", "schema_validation_accuracy.py", SchemaResult},
	{"query_param_accuracy", "query parameter reference accuracy", "query_param_accuracy.py", QueryParamResult},
	{"obs_param_accuracy", "observation parameter reference accuracy", "obs_param_accuracy.py", ObsParamResult},
	{"duplicate_call_rate", "duplicate call rate", "duplicate_call_rate.py", DuplicateResult},
	{"state_consistency", "state consistency", "state_consistency.py", StateConsistencyResult},
}

// DefaultRunConfig returns the built-in sequence: six metric programs run with
// the configured python interpreter, then the native CSV summary.
func DefaultRunConfig() *RunConfig {
	cfg := &RunConfig{
		Context: map[string]any{
			"python":    "python",
			"scriptDir": ".",
		},
		Steps: make([]StepConfig, 0, len(builtinMetrics)),
		Aggregate: StepConfig{
			Name:     "metrics_summary",
			Label:    "metrics summary",
			Type:     StepTypeSummary,
			Artifact: DefaultSummaryOutput,
			Summary:  &SummaryConfig{},
		},
	}

	for _, m := range builtinMetrics {
		cfg.Steps = append(cfg.Steps, StepConfig{
			Name:     m.name,
			Label:    m.label,
			Type:     StepTypeExec,
			Artifact: m.result,
			Exec: &ExecConfig{
				Command: "{{ .python }}",
				Args:    []string{`{{ .scriptDir }}/` + m.script},
			},
		})
	}

	return cfg
}

// WithDefaults fills empty summary inputs with the default result names.
func (s SummaryConfig) WithDefaults() SummaryConfig {
	if s.ToolName == "" {
		s.ToolName = ToolNameResult
	}
	if s.Schema == "" {
		s.Schema = SchemaResult
	}
	if s.ObsParam == "" {
		s.ObsParam = ObsParamResult
	}
	if s.Duplicate == "" {
		s.Duplicate = DuplicateResult
	}
	if s.StateConsistency == "" {
		s.StateConsistency = StateConsistencyResult
	}
	if s.Output == "" {
		s.Output = DefaultSummaryOutput
	}
	return s
}

package api

const (
	StepTypeExec    = "exec"
	StepTypeSummary = "summary"

	DefaultSummaryOutput = "metrics_summary.csv"
)

// RunConfig is the evalrun configuration format.
type RunConfig struct {
	Context   map[string]any `yaml:"context"`
	Steps     []StepConfig   `yaml:"steps"`
	Aggregate StepConfig     `yaml:"aggregate"`

	// Set by the loader, not from YAML.
	FilePath string `yaml:"-"`
}

// StepConfig defines a single step of a run.
type StepConfig struct {
	Name     string         `yaml:"name"`
	Label    string         `yaml:"label"`
	Type     string         `yaml:"type"`
	Artifact string         `yaml:"artifact"`
	Exec     *ExecConfig    `yaml:"exec,omitempty"`
	Summary  *SummaryConfig `yaml:"summary,omitempty"`
}

// DisplayName returns the label, falling back to the name.
func (s StepConfig) DisplayName() string {
	if s.Label != "" {
		return s.Label
	}
	return s.Name
}

// ExecConfig configures an external program step.
// Command, Args and Env values are Go templates rendered against the run context.
type ExecConfig struct {
	Command string            `yaml:"command"`
	Args    []string          `yaml:"args"`
	Env     map[string]string `yaml:"env"`
	Dir     string            `yaml:"dir"`
}

// SummaryConfig configures the native CSV aggregation step.
// Empty inputs fall back to the default result file names.
type SummaryConfig struct {
	ToolName         string `yaml:"toolName"`
	Schema           string `yaml:"schema"`
	ObsParam         string `yaml:"obsParam"`
	Duplicate        string `yaml:"duplicate"`
	StateConsistency string `yaml:"stateConsistency"`
	Output           string `yaml:"output"`
}

// Manifest returns the expected artifact names in step order,
// followed by the aggregate step's artifact.
func (c *RunConfig) Manifest() []string {
	manifest := make([]string, 0, len(c.Steps)+1)
	for _, s := range c.Steps {
		if s.Artifact != "" {
			manifest = append(manifest, s.Artifact)
		}
	}
	if c.Aggregate.Artifact != "" {
		manifest = append(manifest, c.Aggregate.Artifact)
	}
	return manifest
}

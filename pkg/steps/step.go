package steps

import "io"

// StepContext provides the runtime context for a step.
type StepContext struct {
	WorkDir      string
	TemplateData map[string]any
	Env          []string  // extra KEY=VALUE pairs for child processes
	Stdout       io.Writer // nil discards
	Stderr       io.Writer // nil discards
}

// StepResult holds the outcome of a successful step.
type StepResult struct {
	Artifacts []string // paths relative to WorkDir written by the step
}

// Step is the interface all run steps implement.
type Step interface {
	Name() string
	Run(ctx StepContext) (*StepResult, error)
}

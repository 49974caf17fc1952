package api

import (
	"fmt"
)

var validStepTypes = map[string]bool{
	StepTypeExec:    true,
	StepTypeSummary: true,
}

// Validate checks the run configuration for errors.
func (c *RunConfig) Validate() error {
	if len(c.Steps) == 0 {
		return fmt.Errorf("config has no steps")
	}

	names := make(map[string]int)

	for i, step := range c.Steps {
		if err := validateStep(step, i, names); err != nil {
			return err
		}
	}

	if c.Aggregate.Name == "" && c.Aggregate.Type == "" {
		return fmt.Errorf("aggregate step is required")
	}
	if err := validateStep(c.Aggregate, len(c.Steps), names); err != nil {
		return fmt.Errorf("aggregate: %w", err)
	}

	return nil
}

func validateStep(step StepConfig, i int, names map[string]int) error {
	if step.Name == "" {
		return fmt.Errorf("step %d: name is required", i)
	}
	if prev, exists := names[step.Name]; exists {
		return fmt.Errorf("step %d: duplicate step name %q (first defined at step %d)", i, step.Name, prev)
	}
	names[step.Name] = i

	if !validStepTypes[step.Type] {
		return fmt.Errorf("step %q: unknown type %q", step.Name, step.Type)
	}

	if err := validateStepConfig(step); err != nil {
		return fmt.Errorf("step %q: %w", step.Name, err)
	}
	return nil
}

func validateStepConfig(step StepConfig) error {
	switch step.Type {
	case StepTypeExec:
		if step.Exec == nil {
			return fmt.Errorf("exec config is required")
		}
		if step.Exec.Command == "" {
			return fmt.Errorf("exec.command is required")
		}
	case StepTypeSummary:
		if step.Summary == nil {
			return fmt.Errorf("summary config is required")
		}
	}
	return nil
}

package steps

import (
	"fmt"

	"github.com/systemstart/evalrun/pkg/api"
)

// NewStep creates a Step implementation from a StepConfig.
func NewStep(cfg api.StepConfig) (Step, error) {
	switch cfg.Type {
	case api.StepTypeExec:
		return NewExecStep(cfg.Name, cfg.Exec), nil
	case api.StepTypeSummary:
		return NewSummaryStep(cfg.Name, cfg.Summary), nil
	default:
		return nil, fmt.Errorf("unknown step type: %s", cfg.Type)
	}
}

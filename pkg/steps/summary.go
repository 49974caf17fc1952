package steps

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/systemstart/evalrun/pkg/api"
	"github.com/systemstart/evalrun/pkg/metrics"
)

type summaryStep struct {
	name string
	cfg  api.SummaryConfig
}

// NewSummaryStep creates a step that folds the metric result files into a CSV.
func NewSummaryStep(name string, cfg *api.SummaryConfig) Step {
	var c api.SummaryConfig
	if cfg != nil {
		c = *cfg
	}
	return &summaryStep{name: name, cfg: c.WithDefaults()}
}

func (s *summaryStep) Name() string { return s.name }

func (s *summaryStep) Run(ctx StepContext) (*StepResult, error) {
	res := metrics.LoadResults(ctx.WorkDir, metrics.Inputs{
		ToolName:         s.cfg.ToolName,
		Schema:           s.cfg.Schema,
		ObsParam:         s.cfg.ObsParam,
		Duplicate:        s.cfg.Duplicate,
		StateConsistency: s.cfg.StateConsistency,
	})

	summary, err := metrics.Summarize(res)
	if err != nil {
		return nil, err
	}

	slog.Info("extracted metrics", "step", s.name, "files", len(summary.Rows))

	out := s.cfg.Output
	if !filepath.IsAbs(out) {
		out = filepath.Join(ctx.WorkDir, out)
	}
	if err := summary.WriteCSVFile(out); err != nil {
		return nil, fmt.Errorf("writing summary: %w", err)
	}

	avg := summary.Average
	slog.Info("average metrics",
		"step", s.name,
		"toolAcc", avg.ToolAcc,
		"actionValidRate", avg.ActionValidRate,
		"obsValidRate", avg.ObsValidRate,
		"obsParamAcc", avg.ObsParamAcc,
		"noDupRate", avg.NoDupRate,
		"sameToolConsistency", avg.SameToolConsistency,
		"crossToolConsistency", avg.CrossToolConsistency,
		"overallAcc", avg.OverallAcc,
	)

	return &StepResult{Artifacts: []string{s.cfg.Output}}, nil
}

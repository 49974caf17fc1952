package runner

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/systemstart/evalrun/pkg/api"
	"github.com/systemstart/evalrun/pkg/steps"
)

// State is the runner's position in a run.
type State int

const (
	NotStarted State = iota
	RunningStep
	Aggregating
	Completed
	Aborted
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not-started"
	case RunningStep:
		return "running"
	case Aggregating:
		return "aggregating"
	case Completed:
		return "completed"
	case Aborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == Completed || s == Aborted
}

// RunResult records one executed step.
type RunResult struct {
	Index    int // 1-based
	Name     string
	Label    string
	Success  bool
	Start    time.Time
	End      time.Time
	ExitCode int
	Err      error
}

// Duration is the wall-clock time the step took.
func (r RunResult) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// Report is the outcome of Run.
type Report struct {
	RunID     string
	State     State
	Total     int // metric steps plus the aggregate step
	Results   []RunResult
	Elapsed   time.Duration
	Manifest  []string
	Artifacts []ArtifactStatus // filled once the run completes
}

// Succeeded reports whether every step, including aggregation, passed.
func (r *Report) Succeeded() bool {
	return r.State == Completed
}

// StepError is returned when a step fails. It aborts the run.
type StepError struct {
	Index    int // 1-based
	Name     string
	Label    string
	ExitCode int // -1 when the step did not exit with a status
	Err      error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d %q failed: %v", e.Index, e.Name, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Options configures a Runner.
type Options struct {
	WorkDir string
	Context map[string]any // overrides the config's context
	RunID   string         // generated when empty
	DryRun  bool
	Logger  *slog.Logger
	Stdout  io.Writer // step process output
	Stderr  io.Writer
}

// Runner executes a RunConfig's steps in order, stopping at the first failure.
type Runner struct {
	cfg     *api.RunConfig
	opts    Options
	log     *slog.Logger
	newStep func(api.StepConfig) (steps.Step, error)
	now     func() time.Time
}

// New creates a Runner for cfg.
func New(cfg *api.RunConfig, opts Options) *Runner {
	if opts.RunID == "" {
		opts.RunID = uuid.New().String()
	}
	if opts.WorkDir == "" {
		opts.WorkDir = "."
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		cfg:     cfg,
		opts:    opts,
		log:     logger.With("run", opts.RunID),
		newStep: steps.NewStep,
		now:     time.Now,
	}
}

// Run executes every metric step and then the aggregate step. The returned
// Report is non-nil even on failure; the error is a *StepError when a step failed.
func (r *Runner) Run() (*Report, error) {
	start := r.now()

	report := &Report{
		RunID:    r.opts.RunID,
		State:    NotStarted,
		Total:    len(r.cfg.Steps) + 1,
		Manifest: r.cfg.Manifest(),
	}

	workDir, err := filepath.Abs(r.opts.WorkDir)
	if err != nil {
		return report, fmt.Errorf("resolving work directory: %w", err)
	}

	if r.opts.DryRun {
		r.plan(report)
		return report, nil
	}

	sctx := steps.StepContext{
		WorkDir:      workDir,
		TemplateData: MergeContext(r.cfg.Context, r.opts.Context),
		Env:          stepEnv(r.opts.RunID, workDir),
		Stdout:       r.opts.Stdout,
		Stderr:       r.opts.Stderr,
	}

	r.log.Info("starting run", "steps", report.Total, "workDir", workDir)

	for i, stepCfg := range r.cfg.Steps {
		r.transition(report, RunningStep)
		if err := r.runStep(report, i+1, stepCfg, sctx); err != nil {
			r.abort(report, start)
			return report, err
		}
	}

	r.transition(report, Aggregating)
	if err := r.runStep(report, report.Total, r.cfg.Aggregate, sctx); err != nil {
		r.abort(report, start)
		return report, err
	}

	r.transition(report, Completed)
	report.Elapsed = r.elapsed(start)
	report.Artifacts = CheckArtifacts(workDir, report.Manifest)

	r.log.Info("run completed", "elapsed", report.Elapsed.Round(time.Second))
	return report, nil
}

func (r *Runner) runStep(report *Report, index int, stepCfg api.StepConfig, sctx steps.StepContext) error {
	label := stepCfg.DisplayName()
	r.log.Info("running step", "index", index, "total", report.Total, "step", label)

	result := RunResult{
		Index: index,
		Name:  stepCfg.Name,
		Label: label,
		Start: r.now(),
	}

	stepErr := r.execute(stepCfg, sctx)

	result.End = r.now()
	if stepErr != nil {
		stepErr.Index = index
		result.ExitCode = stepErr.ExitCode
		result.Err = stepErr
		report.Results = append(report.Results, result)

		r.log.Error("step failed", "index", index, "total", report.Total, "step", label, "exitCode", stepErr.ExitCode, "error", stepErr.Err)
		return stepErr
	}

	result.Success = true
	report.Results = append(report.Results, result)
	r.log.Info("step succeeded", "index", index, "total", report.Total, "step", label, "duration", result.Duration().Round(time.Millisecond))
	return nil
}

func (r *Runner) execute(stepCfg api.StepConfig, sctx steps.StepContext) *StepError {
	fail := func(err error, code int) *StepError {
		return &StepError{Name: stepCfg.Name, Label: stepCfg.DisplayName(), ExitCode: code, Err: err}
	}

	step, err := r.newStep(stepCfg)
	if err != nil {
		return fail(fmt.Errorf("creating step: %w", err), -1)
	}

	result, err := step.Run(sctx)
	if err != nil {
		return fail(err, steps.ExitCode(err))
	}

	if result != nil {
		for _, a := range result.Artifacts {
			r.log.Debug("step wrote artifact", "step", stepCfg.Name, "path", a)
		}
	}
	return nil
}

func (r *Runner) plan(report *Report) {
	for i, s := range r.cfg.Steps {
		r.log.Info("would run step", "index", i+1, "total", report.Total, "step", s.DisplayName(), "type", s.Type)
	}
	r.log.Info("would run aggregate step", "index", report.Total, "total", report.Total, "step", r.cfg.Aggregate.DisplayName(), "type", r.cfg.Aggregate.Type)
}

func (r *Runner) transition(report *Report, next State) {
	if report.State != next {
		r.log.Debug("state transition", "from", report.State, "to", next)
	}
	report.State = next
}

func (r *Runner) abort(report *Report, start time.Time) {
	r.transition(report, Aborted)
	report.Elapsed = r.elapsed(start)
}

func (r *Runner) elapsed(start time.Time) time.Duration {
	d := r.now().Sub(start)
	if d < 0 {
		return 0
	}
	return d
}

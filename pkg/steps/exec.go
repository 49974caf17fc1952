package steps

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/systemstart/evalrun/pkg/api"
)

// stderrTailSize bounds how much of a failing process's stderr ends up in the error.
const stderrTailSize = 2048

type execStep struct {
	name string
	cfg  *api.ExecConfig
}

// NewExecStep creates a step that runs an external program.
func NewExecStep(name string, cfg *api.ExecConfig) Step {
	return &execStep{name: name, cfg: cfg}
}

func (s *execStep) Name() string { return s.name }

func (s *execStep) Run(ctx StepContext) (*StepResult, error) {
	command, err := render(s.name+".command", s.cfg.Command, ctx.TemplateData)
	if err != nil {
		return nil, fmt.Errorf("rendering command: %w", err)
	}

	dir := ctx.WorkDir
	if s.cfg.Dir != "" {
		dir = s.cfg.Dir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(ctx.WorkDir, dir)
		}
	}

	path, err := resolveCommand(command, dir)
	if err != nil {
		return nil, err
	}

	args := make([]string, 0, len(s.cfg.Args))
	for i, a := range s.cfg.Args {
		rendered, err := render(fmt.Sprintf("%s.args[%d]", s.name, i), a, ctx.TemplateData)
		if err != nil {
			return nil, fmt.Errorf("rendering argument %d: %w", i, err)
		}
		args = append(args, rendered)
	}

	env, err := s.environ(ctx)
	if err != nil {
		return nil, err
	}

	slog.Debug("running command", "step", s.name, "command", path, "args", args, "dir", dir)

	cmd := exec.Command(path, args...)
	cmd.Dir = dir
	cmd.Env = env

	stderr := &tailBuffer{max: stderrTailSize}
	cmd.Stdout = orDiscard(ctx.Stdout)
	cmd.Stderr = io.MultiWriter(orDiscard(ctx.Stderr), stderr)

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s failed: %w\nstderr: %s", filepath.Base(path), err, stderr)
	}

	return &StepResult{}, nil
}

func (s *execStep) environ(ctx StepContext) ([]string, error) {
	env := append(os.Environ(), ctx.Env...)

	keys := make([]string, 0, len(s.cfg.Env))
	for k := range s.cfg.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v, err := render(s.name+".env."+k, s.cfg.Env[k], ctx.TemplateData)
		if err != nil {
			return nil, fmt.Errorf("rendering env %s: %w", k, err)
		}
		env = append(env, k+"="+v)
	}
	return env, nil
}

// ExitCode extracts the process exit code from a step error, or -1 if the
// error did not come from a process exiting.
func ExitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

func orDiscard(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}
	return w
}

// resolveCommand looks bare names up in PATH. Commands containing a path
// separator are taken relative to dir, where the process will run.
func resolveCommand(command, dir string) (string, error) {
	if !strings.ContainsAny(command, `/`+string(filepath.Separator)) {
		path, err := exec.LookPath(command)
		if err != nil {
			return "", fmt.Errorf("%s not found in PATH: %w", command, err)
		}
		return path, nil
	}

	path := command
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("%s not found: %w", command, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", command)
	}
	return path, nil
}

// tailBuffer keeps only the last max bytes written to it.
type tailBuffer struct {
	buf []byte
	max int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if n >= t.max {
		t.buf = append(t.buf[:0], p[n-t.max:]...)
		return n, nil
	}

	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return n, nil
}

func (t *tailBuffer) String() string {
	return string(bytes.TrimSpace(t.buf))
}

package steps

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/systemstart/evalrun/pkg/api"
)

func skipWithoutShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not in PATH")
	}
}

func TestExecStep_Run(t *testing.T) {
	skipWithoutShell(t)

	dir := t.TempDir()
	var stdout bytes.Buffer

	step := NewExecStep("tool_name_accuracy", &api.ExecConfig{
		Command: "sh",
		Args:    []string{"-c", `echo '{"overall": {}}' > tool_name_accuracy_result.json && echo done`},
	})

	result, err := step.Run(StepContext{WorkDir: dir, Stdout: &stdout})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil {
		t.Fatal("expected non-nil result")
	}
	if strings.TrimSpace(stdout.String()) != "done" {
		t.Errorf("expected stdout 'done', got %q", stdout.String())
	}
	if _, err := os.Stat(filepath.Join(dir, "tool_name_accuracy_result.json")); err != nil {
		t.Errorf("expected artifact in work dir: %v", err)
	}
}

func TestExecStep_TemplatedArgsAndEnv(t *testing.T) {
	skipWithoutShell(t)

	dir := t.TempDir()
	var stdout bytes.Buffer

	step := NewExecStep("render", &api.ExecConfig{
		Command: "{{ .shell }}",
		Args:    []string{"-c", `echo "$DATASET {{ .name | upper }}"`},
		Env:     map[string]string{"DATASET": "{{ .dataset }}"},
	})

	ctx := StepContext{
		WorkDir: dir,
		TemplateData: map[string]any{
			"shell":   "sh",
			"name":    "metrics",
			"dataset": "data1",
		},
		Stdout: &stdout,
	}

	if _, err := step.Run(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.TrimSpace(stdout.String()); got != "data1 METRICS" {
		t.Errorf("expected 'data1 METRICS', got %q", got)
	}
}

func TestExecStep_ContextEnv(t *testing.T) {
	skipWithoutShell(t)

	var stdout bytes.Buffer
	step := NewExecStep("env", &api.ExecConfig{
		Command: "sh",
		Args:    []string{"-c", `echo "$EVALRUN_RUN_ID"`},
	})

	ctx := StepContext{
		WorkDir: t.TempDir(),
		Env:     []string{"EVALRUN_RUN_ID=abc"},
		Stdout:  &stdout,
	}
	if _, err := step.Run(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.TrimSpace(stdout.String()); got != "abc" {
		t.Errorf("expected 'abc', got %q", got)
	}
}

func TestExecStep_RelativeDir(t *testing.T) {
	skipWithoutShell(t)

	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "scripts"), 0o750); err != nil {
		t.Fatal(err)
	}

	step := NewExecStep("pwd", &api.ExecConfig{
		Command: "sh",
		Args:    []string{"-c", "touch marker"},
		Dir:     "scripts",
	})
	if _, err := step.Run(StepContext{WorkDir: dir}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "scripts", "marker")); err != nil {
		t.Errorf("expected marker in scripts dir: %v", err)
	}
}

func TestExecStep_NonZeroExit(t *testing.T) {
	skipWithoutShell(t)

	step := NewExecStep("broken", &api.ExecConfig{
		Command: "sh",
		Args:    []string{"-c", "echo boom >&2; exit 3"},
	})

	_, err := step.Run(StepContext{WorkDir: t.TempDir()})
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}
	if code := ExitCode(err); code != 3 {
		t.Errorf("ExitCode() = %d, want 3", code)
	}
	if !strings.Contains(err.Error(), "stderr: boom") {
		t.Errorf("expected stderr in error, got: %v", err)
	}
}

func TestExecStep_CommandNotFound(t *testing.T) {
	step := NewExecStep("missing", &api.ExecConfig{Command: "evalrun-no-such-binary"})

	_, err := step.Run(StepContext{WorkDir: t.TempDir()})
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
	if !strings.Contains(err.Error(), "not found in PATH") {
		t.Errorf("unexpected error: %v", err)
	}
	if code := ExitCode(err); code != -1 {
		t.Errorf("ExitCode() = %d, want -1", code)
	}
}

func TestExecStep_MissingTemplateKey(t *testing.T) {
	step := NewExecStep("tmpl", &api.ExecConfig{Command: "{{ .python }}"})

	_, err := step.Run(StepContext{WorkDir: t.TempDir(), TemplateData: map[string]any{}})
	if err == nil {
		t.Fatal("expected error for missing template key")
	}
	if !strings.Contains(err.Error(), "rendering command") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestExecStep_RelativeCommand(t *testing.T) {
	skipWithoutShell(t)

	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "bin"), 0o750); err != nil {
		t.Fatal(err)
	}
	writeTestFile(t, filepath.Join(dir, "bin"), "metric.sh", "#!/bin/sh\necho ok\n")
	if err := os.Chmod(filepath.Join(dir, "bin", "metric.sh"), 0o750); err != nil {
		t.Fatal(err)
	}

	var stdout bytes.Buffer
	step := NewExecStep("metric", &api.ExecConfig{Command: "./bin/metric.sh"})
	if _, err := step.Run(StepContext{WorkDir: dir, Stdout: &stdout}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.TrimSpace(stdout.String()); got != "ok" {
		t.Errorf("stdout = %q, want %q", got, "ok")
	}
}

func TestExecStep_RelativeCommandResolvedAgainstDir(t *testing.T) {
	skipWithoutShell(t)

	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "scripts"), 0o750); err != nil {
		t.Fatal(err)
	}
	writeTestFile(t, filepath.Join(dir, "scripts"), "metric.sh", "#!/bin/sh\ntouch marker\n")
	if err := os.Chmod(filepath.Join(dir, "scripts", "metric.sh"), 0o750); err != nil {
		t.Fatal(err)
	}

	step := NewExecStep("metric", &api.ExecConfig{Command: "./metric.sh", Dir: "scripts"})
	if _, err := step.Run(StepContext{WorkDir: dir}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "scripts", "marker")); err != nil {
		t.Errorf("expected marker in scripts dir: %v", err)
	}
}

func TestExecStep_RelativeCommandMissing(t *testing.T) {
	step := NewExecStep("metric", &api.ExecConfig{Command: "./bin/absent.sh"})
	_, err := step.Run(StepContext{WorkDir: t.TempDir()})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "./bin/absent.sh not found") {
		t.Errorf("error = %v", err)
	}
	if ExitCode(err) != -1 {
		t.Errorf("ExitCode() = %d, want -1", ExitCode(err))
	}
}

func TestExecStep_StderrTailIsBounded(t *testing.T) {
	skipWithoutShell(t)

	// 3000 'x' bytes followed by a marker; only the last stderrTailSize bytes survive.
	step := NewExecStep("noisy", &api.ExecConfig{
		Command: "sh",
		Args:    []string{"-c", `i=0; while [ $i -lt 300 ]; do printf xxxxxxxxxx >&2; i=$((i+1)); done; echo END >&2; exit 2`},
	})
	_, err := step.Run(StepContext{WorkDir: t.TempDir()})
	if err == nil {
		t.Fatal("expected error")
	}

	msg := err.Error()
	_, stderr, ok := strings.Cut(msg, "stderr: ")
	if !ok {
		t.Fatalf("error has no stderr section: %v", err)
	}
	if len(stderr) > stderrTailSize {
		t.Errorf("stderr section is %d bytes, want at most %d", len(stderr), stderrTailSize)
	}
	if !strings.HasSuffix(stderr, "END") {
		t.Errorf("stderr section should end with the last output, got ...%q", stderr[len(stderr)-10:])
	}
}

func TestTailBuffer(t *testing.T) {
	tests := []struct {
		name   string
		max    int
		writes []string
		want   string
	}{
		{name: "short", max: 3, writes: []string{"ab"}, want: "ab"},
		{name: "trims space", max: 8, writes: []string{"  abc \n"}, want: "abc"},
		{name: "single large write", max: 3, writes: []string{"abcdef"}, want: "def"},
		{name: "across writes", max: 4, writes: []string{"ab", "cd", "ef"}, want: "cdef"},
		{name: "exact fill", max: 4, writes: []string{"abcd"}, want: "abcd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &tailBuffer{max: tt.max}
			for _, w := range tt.writes {
				n, err := b.Write([]byte(w))
				if err != nil || n != len(w) {
					t.Fatalf("Write(%q) = %d, %v", w, n, err)
				}
				if len(b.buf) > tt.max {
					t.Fatalf("buffer grew to %d bytes, max %d", len(b.buf), tt.max)
				}
			}
			if got := b.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/systemstart/evalrun/pkg/api"
	"github.com/systemstart/evalrun/pkg/logging"
	"github.com/systemstart/evalrun/pkg/report"
	"github.com/systemstart/evalrun/pkg/runner"
)

var version = "dev"

const (
	_ = iota
	exitStepFailed
	exitDotenvError
	exitLoadConfigurationFileFailed
	exitLoggingSetupFailed
	exitWorkDirectoryCheckFailed
	exitWorkDirectoryNotADirectory
	exitLoadContextFailed
	exitRunFailed
)

var (
	configFile   string
	workDir      string
	contextFile  string
	logFile      string
	loggingType  string
	logLevel     string
	dryRun       bool
	showManifest bool
	showVersion  bool

	closeLog = func() error { return nil }
)

func init() {
	flag.StringVar(
		&configFile,
		"config",
		"",
		"run configuration YAML (default: built-in metric sequence)")
	flag.StringVar(
		&workDir,
		"work-dir",
		".",
		"directory the steps run in and write their artifacts to")
	flag.StringVar(
		&contextFile,
		"context-file",
		"",
		"YAML file of template values overriding the config context")
	flag.StringVar(
		&logFile,
		"log-file",
		"",
		"also append all output to this file")
	flag.StringVar(
		&loggingType,
		"logging-type",
		"tint",
		"logging type: json, text or tint")
	flag.StringVar(
		&logLevel,
		"log-level",
		"info",
		"logging level: debug, info, warn, error")
	flag.BoolVar(
		&dryRun,
		"dry-run",
		false,
		"print the step plan without running anything")
	flag.BoolVar(
		&showManifest,
		"manifest",
		false,
		"print the expected artifact names and exit")
	flag.BoolVar(
		&showVersion,
		"version",
		false,
		"print version and exit")
}

func main() {
	flag.Parse()

	if showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	out, closer, err := logging.Tee(logFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitLoggingSetupFailed)
	}
	closeLog = closer

	if err := logging.Initialize(loggingType, logLevel, out); err != nil {
		fmt.Fprintln(os.Stderr, err)
		exit(exitLoggingSetupFailed)
	}

	includeEnv()
	checkWorkDirectory()

	cfg := loadConfiguration()

	if showManifest {
		for _, name := range cfg.Manifest() {
			fmt.Fprintln(out, name)
		}
		exit(0)
	}

	exit(run(cfg, out))
}

// exit closes the log file before terminating.
func exit(code int) {
	flushLog()
	os.Exit(code)
}

func flushLog() {
	if err := closeLog(); err != nil {
		slog.Warn("failed to close log file", "filename", logFile, "error", err)
	}
	closeLog = func() error { return nil }
}

func run(cfg *api.RunConfig, out io.Writer) int {
	r := runner.New(cfg, runner.Options{
		WorkDir: workDir,
		Context: loadContext(),
		DryRun:  dryRun,
		Stdout:  out,
		Stderr:  out,
	})

	rep, err := r.Run()
	if rep != nil && !dryRun {
		if pErr := report.Print(out, rep); pErr != nil {
			slog.Warn("failed to print report", "error", pErr)
		}
	}
	return exitCode(err)
}

// exitCode mirrors a failed step's own exit status when it has one.
func exitCode(err error) int {
	if err == nil {
		return 0
	}

	var stepErr *runner.StepError
	if errors.As(err, &stepErr) {
		if stepErr.ExitCode > 0 {
			return stepErr.ExitCode
		}
		return exitStepFailed
	}

	slog.Error("run failed", "error", err)
	return exitRunFailed
}

func loadConfiguration() *api.RunConfig {
	if configFile == "" {
		slog.Debug("using built-in metric sequence")
		return api.DefaultRunConfig()
	}

	cfg, err := api.LoadRunConfig(configFile)
	if err != nil {
		slog.Error("failed to load configuration", "filename", configFile, "error", err)
		exit(exitLoadConfigurationFileFailed)
	}
	return cfg
}

func loadContext() map[string]any {
	if contextFile == "" {
		return nil
	}

	ctx, err := runner.LoadContextFile(contextFile)
	if err != nil {
		slog.Error("failed to load context file", "filename", contextFile, "error", err)
		exit(exitLoadContextFailed)
	}
	return ctx
}

func includeEnv() {
	err := godotenv.Load()
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Error("failed to load .env", "error", err)
			exit(exitDotenvError)
		}
		slog.Debug("no .env file found")
	} else {
		slog.Info("using .env file")
	}
}

func checkWorkDirectory() {
	st, err := os.Stat(workDir)
	if err != nil {
		slog.Error("failed to check work directory", "directory", workDir, "error", err)
		exit(exitWorkDirectoryCheckFailed)
	}

	if !st.IsDir() {
		slog.Error("-work-dir is not a directory", "directory", workDir)
		exit(exitWorkDirectoryNotADirectory)
	}
}

package runner

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// ArtifactStatus reports which files matched one manifest entry.
type ArtifactStatus struct {
	Name    string
	Matches []string
}

// Present reports whether at least one file matched.
func (a ArtifactStatus) Present() bool {
	return len(a.Matches) > 0
}

// CheckArtifacts resolves each manifest entry against workDir. Entries may
// be doublestar patterns. Nothing is enforced; missing artifacts are only logged.
func CheckArtifacts(workDir string, manifest []string) []ArtifactStatus {
	fsys := os.DirFS(workDir)
	statuses := make([]ArtifactStatus, 0, len(manifest))

	for _, name := range manifest {
		status := ArtifactStatus{Name: name}

		switch {
		case filepath.IsAbs(name):
			if _, err := os.Stat(name); err == nil {
				status.Matches = []string{name}
			}
		case !doublestar.ValidatePattern(filepath.ToSlash(name)):
			slog.Warn("invalid artifact pattern", "pattern", name)
		default:
			matches, err := doublestar.Glob(fsys, filepath.ToSlash(name), doublestar.WithFilesOnly())
			if err != nil {
				slog.Warn("could not resolve artifact", "pattern", name, "error", err)
			}
			status.Matches = matches
		}

		if !status.Present() {
			slog.Debug("artifact not found", "artifact", name, "workDir", workDir)
		}
		statuses = append(statuses, status)
	}

	return statuses
}

package api

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoadRunConfig reads a run configuration file, fills in defaults, sets
// FilePath, and validates it. Unknown keys are rejected.
func LoadRunConfig(filename string) (*RunConfig, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	c, err := decodeRunConfig(f)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", filename, err)
	}

	absPath, err := filepath.Abs(filename)
	if err != nil {
		return nil, fmt.Errorf("resolving absolute path: %w", err)
	}
	c.FilePath = absPath

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validating config %s: %w", filename, err)
	}

	return c, nil
}

func decodeRunConfig(r io.Reader) (*RunConfig, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var c RunConfig
	if err := dec.Decode(&c); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("file is empty")
		}
		return nil, err
	}

	// Without an aggregate the run ends with the built-in CSV summary.
	if c.Aggregate.Name == "" && c.Aggregate.Type == "" {
		c.Aggregate = DefaultRunConfig().Aggregate
	}

	// "type: summary" alone means the default result names and output.
	defaultSummary(&c.Aggregate)
	for i := range c.Steps {
		defaultSummary(&c.Steps[i])
	}

	return &c, nil
}

func defaultSummary(s *StepConfig) {
	if s.Type == StepTypeSummary && s.Summary == nil {
		s.Summary = &SummaryConfig{}
	}
}

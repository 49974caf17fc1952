package metrics

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// AverageLabel is the file column value of the averages row.
const AverageLabel = "AVERAGE"

// ErrNoMetrics is returned when none of the inputs yielded a per-file entry.
var ErrNoMetrics = errors.New("no metric data extracted")

var header = []string{
	"File Path",
	"Tool Accuracy",
	"Action Valid Rate",
	"Obs Valid Rate",
	"Obs Param Accuracy",
	"No Duplicate Rate",
	"Same Tool Consistency",
	"Cross Tool Consistency",
	"Overall Accuracy",
}

// Row is one line of the summary CSV. Metrics a file has no value for are 0.
type Row struct {
	File                 string
	ToolAcc              float64
	ActionValidRate      float64
	ObsValidRate         float64
	ObsParamAcc          float64
	NoDupRate            float64
	SameToolConsistency  float64
	CrossToolConsistency float64
	OverallAcc           float64
}

func (r Row) values() []float64 {
	return []float64{
		r.ToolAcc,
		r.ActionValidRate,
		r.ObsValidRate,
		r.ObsParamAcc,
		r.NoDupRate,
		r.SameToolConsistency,
		r.CrossToolConsistency,
		r.OverallAcc,
	}
}

func (r Row) record() []string {
	rec := make([]string, 0, len(header))
	rec = append(rec, r.File)
	for _, v := range r.values() {
		rec = append(rec, formatFloat(v))
	}
	return rec
}

// Summary is the aggregated view over all per-file rows.
type Summary struct {
	Average Row
	Rows    []Row // sorted by File
}

// partial tracks which metrics a file actually appeared in.
type partial struct {
	toolAcc, actionValid, obsValid, obsParam, noDup, sameTool, crossTool *float64
}

func (p *partial) present() []float64 {
	var out []float64
	for _, v := range []*float64{p.toolAcc, p.actionValid, p.obsValid, p.obsParam, p.noDup, p.sameTool, p.crossTool} {
		if v != nil {
			out = append(out, *v)
		}
	}
	return out
}

func ptr(v float64) *float64 { return &v }

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func ratio(n, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(n) / float64(total)
}

// Extract builds one row per file seen in any result. OverallAcc is the
// mean of the metrics that file has.
func Extract(res Results) []Row {
	files := make(map[string]*partial)
	get := func(file string) *partial {
		p, ok := files[file]
		if !ok {
			p = &partial{}
			files[file] = p
		}
		return p
	}

	if res.ToolName != nil {
		for _, f := range res.ToolName.PerFile {
			get(f.File).toolAcc = ptr(f.AccTool)
		}
	}
	if res.Schema != nil {
		for _, f := range res.Schema.PerFile {
			p := get(f.File)
			p.actionValid = ptr(ratio(f.ActionValidCalls, f.TotalCalls))
			p.obsValid = ptr(ratio(f.ObservationValidCalls, f.TotalCalls))
		}
	}
	if res.ObsParam != nil {
		for _, f := range res.ObsParam.PerFile {
			get(f.File).obsParam = ptr(f.AccParamObs)
		}
	}
	if res.Duplicate != nil {
		for _, f := range res.Duplicate.PerFile {
			get(f.File).noDup = ptr(1 - f.RateToolDup)
		}
	}
	if res.StateConsistency != nil {
		for _, f := range res.StateConsistency.PerFile {
			p := get(f.File)
			p.sameTool = ptr(f.SameTool.ConsistencyRate)
			p.crossTool = ptr(f.CrossTool.ConsistencyRate)
		}
	}

	rows := make([]Row, 0, len(files))
	for file, p := range files {
		rows = append(rows, Row{
			File:                 file,
			ToolAcc:              deref(p.toolAcc),
			ActionValidRate:      deref(p.actionValid),
			ObsValidRate:         deref(p.obsValid),
			ObsParamAcc:          deref(p.obsParam),
			NoDupRate:            deref(p.noDup),
			SameToolConsistency:  deref(p.sameTool),
			CrossToolConsistency: deref(p.crossTool),
			OverallAcc:           mean(p.present()),
		})
	}

	slices.SortFunc(rows, func(a, b Row) int { return strings.Compare(a.File, b.File) })
	return rows
}

// Average returns the column-wise mean of rows, labelled AverageLabel.
func Average(rows []Row) Row {
	avg := Row{File: AverageLabel}
	if len(rows) == 0 {
		return avg
	}

	for _, r := range rows {
		avg.ToolAcc += r.ToolAcc
		avg.ActionValidRate += r.ActionValidRate
		avg.ObsValidRate += r.ObsValidRate
		avg.ObsParamAcc += r.ObsParamAcc
		avg.NoDupRate += r.NoDupRate
		avg.SameToolConsistency += r.SameToolConsistency
		avg.CrossToolConsistency += r.CrossToolConsistency
		avg.OverallAcc += r.OverallAcc
	}

	n := float64(len(rows))
	avg.ToolAcc /= n
	avg.ActionValidRate /= n
	avg.ObsValidRate /= n
	avg.ObsParamAcc /= n
	avg.NoDupRate /= n
	avg.SameToolConsistency /= n
	avg.CrossToolConsistency /= n
	avg.OverallAcc /= n
	return avg
}

// Summarize extracts rows and averages them.
func Summarize(res Results) (*Summary, error) {
	rows := Extract(res)
	if len(rows) == 0 {
		return nil, ErrNoMetrics
	}
	return &Summary{Average: Average(rows), Rows: rows}, nil
}

// WriteCSV writes the header, the averages row and then every file row.
func (s *Summary) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if err := cw.Write(s.Average.record()); err != nil {
		return fmt.Errorf("writing average row: %w", err)
	}
	for _, r := range s.Rows {
		if err := cw.Write(r.record()); err != nil {
			return fmt.Errorf("writing row %s: %w", r.File, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}
	return nil
}

// WriteCSVFile writes the summary to path, creating parent directories.
func (s *Summary) WriteCSVFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating parent directories: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating summary file: %w", err)
	}

	writeErr := s.WriteCSV(f)

	if closeErr := f.Close(); closeErr != nil {
		if writeErr != nil {
			return writeErr
		}
		return fmt.Errorf("closing summary file: %w", closeErr)
	}
	return writeErr
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// formatFloat renders v the way the metric scripts print floats: the
// shortest round-tripping digits, scientific notation when the decimal
// exponent is below -4 or at least 16, and a trailing ".0" on whole numbers.
func formatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}

	sci := strconv.FormatFloat(v, 'e', -1, 64)
	_, e, _ := strings.Cut(sci, "e")
	if exp, err := strconv.Atoi(e); err == nil && (exp < -4 || exp >= 16) {
		return sci
	}

	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

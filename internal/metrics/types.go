// Package metrics runs the per-language analysis tools and normalizes their
// output into Result values.
package metrics

import (
	"unicode/utf8"

	"github.com/blackwell-systems/btar/internal/lang"
)

// Kind is one of the three measured dimensions.
type Kind string

const (
	TypeStrictness Kind = "type_strictness"
	LintErrors     Kind = "lint_errors"
	TestCoverage   Kind = "test_coverage"
)

// Unavailable is the value of a metric that could not be measured.
const Unavailable = -1.0

// maxRawLen caps the diagnostic text kept on a Result.
const maxRawLen = 1000

// Result is one measurement. Value is an error count or a coverage
// percentage; it is Unavailable exactly when Success is false.
type Result struct {
	Metric  Kind    `json:"metric" yaml:"metric"`
	Tool    string  `json:"tool" yaml:"tool"`
	Value   float64 `json:"value" yaml:"value"`
	Success bool    `json:"success" yaml:"success"`
	Raw     string  `json:"raw,omitempty" yaml:"raw,omitempty"`
}

// Usable reports whether the result may be aggregated.
func (r Result) Usable() bool {
	return r.Success && r.Value >= 0
}

func measured(kind Kind, tool string, value float64) Result {
	return Result{Metric: kind, Tool: tool, Value: value, Success: true}
}

func unavailable(kind Kind, tool, raw string) Result {
	return Result{Metric: kind, Tool: tool, Value: Unavailable, Raw: truncate(raw)}
}

// truncate cuts s to at most maxRawLen bytes on a rune boundary.
func truncate(s string) string {
	if len(s) <= maxRawLen {
		return s
	}
	n := maxRawLen
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// ByLanguage maps a language to its result for one metric kind.
type ByLanguage map[lang.Language]Result

// Metrics groups the per-language results of each kind.
type Metrics struct {
	TypeStrictness ByLanguage `json:"typeStrictness" yaml:"type_strictness"`
	LintErrors     ByLanguage `json:"lintErrors" yaml:"lint_errors"`
	Coverage       ByLanguage `json:"coverage" yaml:"coverage"`
}

// Summary aggregates the usable results of a report.
type Summary struct {
	TotalTypeErrors   int     `json:"totalTypeErrors" yaml:"total_type_errors"`
	TotalLintErrors   int     `json:"totalLintErrors" yaml:"total_lint_errors"`
	AverageCoverage   float64 `json:"averageCoverage" yaml:"average_coverage"`
	CoverageLanguages int     `json:"coverageLanguages" yaml:"coverage_languages"`
}

// HasCoverage reports whether at least one language produced a coverage figure.
func (s Summary) HasCoverage() bool {
	return s.CoverageLanguages > 0
}

// Report is the full measurement of a directory.
type Report struct {
	Languages []lang.Language `json:"languages" yaml:"languages"`
	Metrics   Metrics         `json:"metrics" yaml:"metrics"`
	Summary   Summary         `json:"summary" yaml:"summary"`
}

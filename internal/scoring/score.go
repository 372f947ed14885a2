// Package scoring turns a metrics summary into a 0-100 readiness score.
package scoring

import (
	"math"

	"github.com/blackwell-systems/btar/internal/metrics"
)

// Dimension maxima. They sum to 100.
const (
	MaxTypeStrictness = 30
	MaxLintErrors     = 30
	MaxCoverage       = 40
)

// Interpretation is the band a score falls in.
type Interpretation string

const (
	Excellent Interpretation = "excellent"
	Good      Interpretation = "good"
	NeedsWork Interpretation = "needs-work"
	Poor      Interpretation = "poor"
)

// Breakdown holds the points earned in each dimension.
type Breakdown struct {
	TypeStrictness int `json:"typeStrictness" yaml:"type_strictness"`
	LintErrors     int `json:"lintErrors" yaml:"lint_errors"`
	Coverage       int `json:"coverage" yaml:"coverage"`
}

// Total is the sum of the dimension points.
func (b Breakdown) Total() int {
	return b.TypeStrictness + b.LintErrors + b.Coverage
}

// Result is a computed score.
type Result struct {
	Score          int            `json:"score" yaml:"score"`
	Breakdown      Breakdown      `json:"breakdown" yaml:"breakdown"`
	Interpretation Interpretation `json:"interpretation" yaml:"interpretation"`
}

// Compute scores a summary.
//
// Scoring breakdown:
//   - Type strictness: 0-30 points, decaying logarithmically with type errors
//   - Lint errors:     0-30 points, decaying logarithmically with lint errors
//   - Test coverage:   0-40 points, linear in average coverage
//
// Without any coverage measurement the coverage dimension scores 0 and the
// other two are not re-weighted, so the score caps at 60.
func Compute(s metrics.Summary) Result {
	b := Breakdown{
		TypeStrictness: ErrorPoints(s.TotalTypeErrors, MaxTypeStrictness),
		LintErrors:     ErrorPoints(s.TotalLintErrors, MaxLintErrors),
	}
	if s.HasCoverage() {
		b.Coverage = CoveragePoints(s.AverageCoverage, MaxCoverage)
	}

	score := b.Total()
	return Result{
		Score:          score,
		Breakdown:      b,
		Interpretation: Interpret(score),
	}
}

// ErrorPoints awards maxPoints for zero errors and
// maxPoints/(1+log10(1+n)) otherwise.
func ErrorPoints(errors, maxPoints int) int {
	if errors <= 0 {
		return maxPoints
	}
	return int(math.Round(float64(maxPoints) / (1 + math.Log10(1+float64(errors)))))
}

// CoveragePoints scales a coverage percentage linearly onto [0, maxPoints].
func CoveragePoints(coverage float64, maxPoints int) int {
	if coverage <= 0 || math.IsNaN(coverage) {
		return 0
	}
	c := math.Min(coverage, 100)
	return int(math.Round(c / 100 * float64(maxPoints)))
}

// Interpret maps a score to its band.
func Interpret(score int) Interpretation {
	switch {
	case score >= 90:
		return Excellent
	case score >= 70:
		return Good
	case score >= 50:
		return NeedsWork
	default:
		return Poor
	}
}

package suggest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/btar/internal/lang"
	"github.com/blackwell-systems/btar/internal/metrics"
	"github.com/blackwell-systems/btar/internal/scoring"
)

func score(s int, band scoring.Interpretation) scoring.Result {
	ts := min(30, s*3/10)
	le := min(30, s*3/10)
	return scoring.Result{
		Score:          s,
		Breakdown:      scoring.Breakdown{TypeStrictness: ts, LintErrors: le, Coverage: max(0, s-ts-le)},
		Interpretation: band,
	}
}

type reportOpts struct {
	typeErrors  float64
	lintErrors  float64
	coverage    float64
	noCoverage  bool
	missingLint bool
}

func report(o reportOpts) metrics.Report {
	cov := metrics.Result{Metric: metrics.TestCoverage, Tool: "c8", Value: o.coverage, Success: true}
	if o.noCoverage {
		cov = metrics.Result{Metric: metrics.TestCoverage, Tool: "c8", Value: metrics.Unavailable}
	}
	lint := metrics.Result{Metric: metrics.LintErrors, Tool: "eslint", Value: o.lintErrors, Success: true}
	if o.missingLint {
		lint = metrics.Result{Metric: metrics.LintErrors, Tool: "eslint", Value: metrics.Unavailable}
	}
	return metrics.NewReport(
		[]lang.Language{lang.TypeScript},
		metrics.ByLanguage{lang.TypeScript: {Metric: metrics.TypeStrictness, Tool: "tsc", Value: o.typeErrors, Success: true}},
		metrics.ByLanguage{lang.TypeScript: lint},
		metrics.ByLanguage{lang.TypeScript: cov},
	)
}

func byCategory(recs []Recommendation, c Category) []Recommendation {
	var out []Recommendation
	for _, r := range recs {
		if r.Category == c {
			out = append(out, r)
		}
	}
	return out
}

func anyMessage(recs []Recommendation, words ...string) bool {
	for _, r := range recs {
		msg := strings.ToLower(r.Message)
		for _, w := range words {
			if strings.Contains(msg, w) {
				return true
			}
		}
	}
	return false
}

// --- Structure ---

func TestGenerate_FieldsAreValid(t *testing.T) {
	recs := Generate(score(60, scoring.NeedsWork), report(reportOpts{typeErrors: 10, lintErrors: 20, coverage: 50}))
	require.NotEmpty(t, recs)
	for _, r := range recs {
		assert.True(t, ValidTier(r.Tier))
		assert.Contains(t, []Category{CategoryTypeStrictness, CategoryLintErrors, CategoryTestCoverage, CategoryGeneral}, r.Category)
		assert.Contains(t, []Impact{High, Medium, Low}, r.Impact)
		assert.NotEmpty(t, r.Message)
	}
}

// --- Excellent ---

func TestExcellent_Maintenance(t *testing.T) {
	recs := Generate(score(95, scoring.Excellent), report(reportOpts{coverage: 95}))
	assert.True(t, anyMessage(recs, "excellent", "maintain", "consider"))
}

func TestExcellent_AdvancedPracticeAtPerfectScore(t *testing.T) {
	recs := Generate(score(100, scoring.Excellent), report(reportOpts{coverage: 100}))
	assert.True(t, anyMessage(recs, "property", "mutation", "benchmark"))
	assert.Empty(t, byCategory(recs, CategoryTestCoverage))
}

func TestExcellent_MostlyLowImpact(t *testing.T) {
	recs := Generate(score(92, scoring.Excellent), report(reportOpts{lintErrors: 2, coverage: 90}))
	var low int
	for _, r := range recs {
		if r.Impact == Low {
			low++
		}
		assert.Contains(t, []Tier{P2, P3}, r.Tier)
	}
	assert.GreaterOrEqual(t, low*2, len(recs))
}

// --- Good ---

func TestGood_FixesRemainingErrors(t *testing.T) {
	recs := Generate(score(75, scoring.Good), report(reportOpts{typeErrors: 5, lintErrors: 10, coverage: 70}))
	assert.NotEmpty(t, byCategory(recs, CategoryTypeStrictness))
	assert.NotEmpty(t, byCategory(recs, CategoryLintErrors))
}

func TestGood_MessagesIncludeCounts(t *testing.T) {
	recs := Generate(score(78, scoring.Good), report(reportOpts{typeErrors: 7, lintErrors: 15, coverage: 75}))
	assert.True(t, anyMessage(recs, "7 type errors"))
	assert.True(t, anyMessage(recs, "15 lint errors"))
}

func TestGood_CoverageBelowTarget(t *testing.T) {
	recs := Generate(score(72, scoring.Good), report(reportOpts{lintErrors: 5, coverage: 65}))
	cov := byCategory(recs, CategoryTestCoverage)
	require.NotEmpty(t, cov)
	assert.Equal(t, P2, cov[0].Tier)
	assert.Equal(t, Medium, cov[0].Impact)
}

func TestGood_NothingToFixStillRecommends(t *testing.T) {
	recs := Generate(score(89, scoring.Good), report(reportOpts{coverage: 100}))
	require.Len(t, recs, 1)
	assert.Equal(t, P2, recs[0].Tier)
	assert.Equal(t, CategoryGeneral, recs[0].Category)
}

// --- Needs work ---

func TestNeedsWork_Tiers(t *testing.T) {
	recs := Generate(score(52, scoring.NeedsWork), report(reportOpts{typeErrors: 25, lintErrors: 50, coverage: 30}))
	assert.Equal(t, P0, byCategory(recs, CategoryTypeStrictness)[0].Tier)
	assert.Equal(t, P1, byCategory(recs, CategoryLintErrors)[0].Tier)
	cov := byCategory(recs, CategoryTestCoverage)
	require.NotEmpty(t, cov)
	assert.Equal(t, P2, cov[0].Tier)
	assert.Equal(t, High, cov[0].Impact)
}

func TestNeedsWork_CoverageAboveHalfIsMedium(t *testing.T) {
	recs := Generate(score(65, scoring.NeedsWork), report(reportOpts{typeErrors: 3, coverage: 60}))
	assert.Equal(t, Medium, byCategory(recs, CategoryTestCoverage)[0].Impact)
}

func TestNeedsWork_MissingCoverageSuggestsSetup(t *testing.T) {
	recs := Generate(score(60, scoring.NeedsWork), report(reportOpts{typeErrors: 10, lintErrors: 20, noCoverage: true}))
	cov := byCategory(recs, CategoryTestCoverage)
	require.NotEmpty(t, cov)
	assert.True(t, anyMessage(cov, "set up", "add", "configure"))
	assert.False(t, anyMessage(cov, "increase"))
}

// --- Poor ---

func TestPoor_FoundationFirst(t *testing.T) {
	recs := Generate(score(25, scoring.Poor), report(reportOpts{typeErrors: 150, lintErrors: 100, coverage: 5}))
	types := byCategory(recs, CategoryTypeStrictness)
	require.NotEmpty(t, types)
	assert.Equal(t, P0, types[0].Tier)
	assert.Equal(t, High, types[0].Impact)
	assert.True(t, anyMessage(recs, "foundation"))
	assert.NotEmpty(t, byCategory(recs, CategoryLintErrors))
}

func TestPoor_FewErrorsAreFixedDirectly(t *testing.T) {
	recs := Generate(score(45, scoring.Poor), report(reportOpts{typeErrors: 3, lintErrors: 4, coverage: 0}))
	assert.False(t, anyMessage(recs, "foundation"))
	assert.True(t, anyMessage(recs, "fix 3 type errors"))
}

func TestPoor_DefersCoverage(t *testing.T) {
	recs := Generate(score(28, scoring.Poor), report(reportOpts{typeErrors: 100, lintErrors: 150, coverage: 5}))
	for _, r := range byCategory(recs, CategoryTestCoverage) {
		assert.Equal(t, P3, r.Tier)
		assert.Equal(t, Low, r.Impact)
	}
}

// --- Ordering ---

func TestGenerate_OrderedByTierThenImpact(t *testing.T) {
	recs := Generate(score(60, scoring.NeedsWork), report(reportOpts{typeErrors: 15, lintErrors: 25, coverage: 40}))
	for i := 1; i < len(recs); i++ {
		prev, cur := recs[i-1], recs[i]
		assert.LessOrEqual(t, tierOrder[prev.Tier], tierOrder[cur.Tier])
		if prev.Tier == cur.Tier {
			assert.LessOrEqual(t, impactOrder[prev.Impact], impactOrder[cur.Impact])
		}
	}
}

// --- Tool hints ---

func TestLintRecommendationsCarryFixCommand(t *testing.T) {
	recs := Generate(score(70, scoring.Good), report(reportOpts{lintErrors: 15, coverage: 70}))
	lint := byCategory(recs, CategoryLintErrors)
	require.NotEmpty(t, lint)
	assert.Contains(t, lint[0].Tool, "eslint")
	assert.Contains(t, lint[0].Tool, "--fix")
}

func TestLintFixHint_MixedProjects(t *testing.T) {
	lintResult := func(tool string, n float64) metrics.Result {
		return metrics.Result{Metric: metrics.LintErrors, Tool: tool, Value: n, Success: true}
	}
	full := metrics.Result{Metric: metrics.TestCoverage, Tool: "cov", Value: 100, Success: true}

	tests := []struct {
		name       string
		languages  []lang.Language
		python, ts float64
		want       string
	}{
		{"tie prefers eslint", []lang.Language{lang.Python, lang.TypeScript}, 1, 1, "npx eslint . --fix"},
		{"eslint despite fewer errors", []lang.Language{lang.Python, lang.TypeScript}, 9, 1, "npx eslint . --fix"},
		{"clean typescript falls back to worst", []lang.Language{lang.Python, lang.TypeScript}, 3, 0, "ruff check . --fix"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep := metrics.NewReport(tt.languages,
				metrics.ByLanguage{},
				metrics.ByLanguage{lang.Python: lintResult("ruff", tt.python), lang.TypeScript: lintResult("eslint", tt.ts)},
				metrics.ByLanguage{lang.Python: full, lang.TypeScript: full},
			)
			recs := Generate(scoring.Compute(rep.Summary), rep)
			lint := byCategory(recs, CategoryLintErrors)
			require.Len(t, lint, 1)
			assert.Equal(t, tt.want, lint[0].Tool)
		})
	}
}

func TestTypeRecommendationsCarryChecker(t *testing.T) {
	recs := Generate(score(70, scoring.Good), report(reportOpts{typeErrors: 2, coverage: 70}))
	assert.Equal(t, "npx tsc --noEmit", byCategory(recs, CategoryTypeStrictness)[0].Tool)
}

// --- Edge cases ---

func TestGenerate_NeverFixZero(t *testing.T) {
	recs := Generate(score(92, scoring.Excellent), report(reportOpts{coverage: 92}))
	require.NotEmpty(t, recs)
	assert.False(t, anyMessage(recs, "fix 0", " 0 type", " 0 lint"))
}

func TestGenerate_AlwaysAtLeastOne(t *testing.T) {
	cases := []struct {
		score int
		band  scoring.Interpretation
	}{
		{0, scoring.Poor}, {25, scoring.Poor}, {50, scoring.NeedsWork}, {75, scoring.Good}, {100, scoring.Excellent},
	}
	for _, c := range cases {
		errs := float64(max(0, 100-c.score))
		recs := Generate(score(c.score, c.band), report(reportOpts{typeErrors: errs, lintErrors: errs, coverage: float64(c.score)}))
		assert.NotEmpty(t, recs, "score %d", c.score)
	}
	assert.NotEmpty(t, Generate(score(0, scoring.Poor), metrics.NewReport(nil, nil, nil, nil)))
}

func TestGenerate_UnknownBandFallsBackToScore(t *testing.T) {
	recs := Generate(scoring.Result{Score: 40}, report(reportOpts{typeErrors: 200, coverage: 10}))
	assert.Equal(t, P0, recs[0].Tier)
}

func TestToolingGaps(t *testing.T) {
	recs := Generate(score(75, scoring.Good), report(reportOpts{missingLint: true, coverage: 90}))
	assert.True(t, anyMessage(recs, "install or repair eslint"))
}

package suggest

import (
	"fmt"
	"strings"

	"github.com/blackwell-systems/btar/internal/fixer"
	"github.com/blackwell-systems/btar/internal/lang"
	"github.com/blackwell-systems/btar/internal/metrics"
)

const (
	// manyErrors switches poor-band advice from fixing errors one by one to
	// establishing the tooling first.
	manyErrors = 50

	// coverageTarget is the coverage the good band works towards.
	coverageTarget = 80.0

	// lowCoverage marks needs-work coverage as high impact.
	lowCoverage = 50.0
)

// Poor defers coverage until type and lint errors are under control.
func Poor(ctx *AnalysisContext) []Recommendation {
	s := ctx.Report.Summary
	var recs []Recommendation

	if n := s.TotalTypeErrors; n > 0 {
		msg := fmt.Sprintf("Fix %s before anything else.", plural(n, "type error"))
		if n > manyErrors {
			msg = fmt.Sprintf("Establish foundational type checking: %s. Enable strict checking one module at a time and keep new code clean.", plural(n, "type error"))
		}
		recs = append(recs, typeRec(ctx, P0, High, msg))
	}
	if n := s.TotalLintErrors; n > 0 {
		msg := fmt.Sprintf("Fix %s; run the auto-fixer first.", plural(n, "lint error"))
		if n > manyErrors {
			msg = fmt.Sprintf("Establish foundational linting: %s. Agree on a shared config and auto-fix in bulk.", plural(n, "lint error"))
		}
		recs = append(recs, lintRec(ctx, P1, High, msg))
	}
	switch {
	case !s.HasCoverage():
		recs = append(recs, Recommendation{Tier: P3, Category: CategoryTestCoverage, Impact: Low,
			Message: "Set up coverage tooling once type and lint errors are under control."})
	case s.AverageCoverage < 100:
		recs = append(recs, Recommendation{Tier: P3, Category: CategoryTestCoverage, Impact: Low,
			Message: fmt.Sprintf("Defer raising coverage (%s) until type and lint errors are under control.", percent(s.AverageCoverage))})
	}
	return append(recs, toolingGaps(ctx, P1, Medium)...)
}

// NeedsWork addresses all three dimensions in order.
func NeedsWork(ctx *AnalysisContext) []Recommendation {
	s := ctx.Report.Summary
	var recs []Recommendation

	if n := s.TotalTypeErrors; n > 0 {
		recs = append(recs, typeRec(ctx, P0, High, fmt.Sprintf("Fix %s.", plural(n, "type error"))))
	}
	if n := s.TotalLintErrors; n > 0 {
		recs = append(recs, lintRec(ctx, P1, High, fmt.Sprintf("Fix %s; run the auto-fixer first.", plural(n, "lint error"))))
	}
	switch {
	case !s.HasCoverage():
		recs = append(recs, Recommendation{Tier: P2, Category: CategoryTestCoverage, Impact: High,
			Message: "Set up coverage tooling so test coverage can be measured."})
	case s.AverageCoverage < lowCoverage:
		recs = append(recs, Recommendation{Tier: P2, Category: CategoryTestCoverage, Impact: High,
			Message: fmt.Sprintf("Increase test coverage from %s; start with the most changed code.", percent(s.AverageCoverage))})
	case s.AverageCoverage < 100:
		recs = append(recs, Recommendation{Tier: P2, Category: CategoryTestCoverage, Impact: Medium,
			Message: fmt.Sprintf("Increase test coverage from %s towards %s.", percent(s.AverageCoverage), percent(coverageTarget))})
	}
	return append(recs, toolingGaps(ctx, P1, Medium)...)
}

// Good cleans up what is left.
func Good(ctx *AnalysisContext) []Recommendation {
	s := ctx.Report.Summary
	var recs []Recommendation

	if n := s.TotalTypeErrors; n > 0 {
		recs = append(recs, typeRec(ctx, P1, Medium, fmt.Sprintf("Fix the remaining %s.", plural(n, "type error"))))
	}
	if n := s.TotalLintErrors; n > 0 {
		recs = append(recs, lintRec(ctx, P1, Medium, fmt.Sprintf("Fix the remaining %s.", plural(n, "lint error"))))
	}
	switch {
	case !s.HasCoverage():
		recs = append(recs, Recommendation{Tier: P2, Category: CategoryTestCoverage, Impact: Medium,
			Message: "Set up coverage tooling; coverage is the largest share of the score."})
	case s.AverageCoverage < coverageTarget:
		recs = append(recs, Recommendation{Tier: P2, Category: CategoryTestCoverage, Impact: Medium,
			Message: fmt.Sprintf("Increase test coverage from %s to %s.", percent(s.AverageCoverage), percent(coverageTarget))})
	case s.AverageCoverage < 100:
		recs = append(recs, Recommendation{Tier: P3, Category: CategoryTestCoverage, Impact: Low,
			Message: fmt.Sprintf("Cover the remaining gaps (currently %s).", percent(s.AverageCoverage))})
	}
	return append(recs, toolingGaps(ctx, P1, Medium)...)
}

// Excellent keeps everything optional and always suggests a next practice.
func Excellent(ctx *AnalysisContext) []Recommendation {
	s := ctx.Report.Summary
	recs := []Recommendation{{
		Tier:     P2,
		Category: CategoryGeneral,
		Impact:   Low,
		Message:  fmt.Sprintf("Excellent score (%d). Maintain it by running btar analyze --ratchet in CI.", ctx.Score.Score),
	}}

	if n := s.TotalTypeErrors; n > 0 {
		recs = append(recs, typeRec(ctx, P2, Low, fmt.Sprintf("Clean up the last %s.", plural(n, "type error"))))
	}
	if n := s.TotalLintErrors; n > 0 {
		recs = append(recs, lintRec(ctx, P2, Low, fmt.Sprintf("Clean up the last %s.", plural(n, "lint error"))))
	}
	switch {
	case !s.HasCoverage():
		recs = append(recs, Recommendation{Tier: P2, Category: CategoryTestCoverage, Impact: Low,
			Message: "Set up coverage tooling to confirm the tests exercise the code."})
	case s.AverageCoverage < 100:
		recs = append(recs, Recommendation{Tier: P3, Category: CategoryTestCoverage, Impact: Low,
			Message: fmt.Sprintf("Push coverage from %s on the critical paths.", percent(s.AverageCoverage))})
	}

	recs = append(recs, Recommendation{
		Tier:     P3,
		Category: CategoryGeneral,
		Impact:   Low,
		Message:  "Consider property-based or mutation testing to check test quality beyond line coverage.",
	})
	return append(recs, toolingGaps(ctx, P2, Low)...)
}

// typeRec points at the type checker of the language with the most errors.
func typeRec(ctx *AnalysisContext, tier Tier, impact Impact, msg string) Recommendation {
	r := Recommendation{Tier: tier, Category: CategoryTypeStrictness, Impact: impact, Message: msg}
	if l, ok := ctx.Report.WorstType(); ok {
		if p, ok := metrics.TypeProfile(lang.Detected{Language: l}); ok {
			r.Tool = strings.Join(p.Command, " ")
		}
	}
	return r
}

// lintRec points at an auto-fixer. ESLint wins whenever a JS-family language
// has lint errors; otherwise the language with the most errors is used.
func lintRec(ctx *AnalysisContext, tier Tier, impact Impact, msg string) Recommendation {
	r := Recommendation{Tier: tier, Category: CategoryLintErrors, Impact: impact, Message: msg}
	if l, ok := jsWithLintErrors(ctx.Report); ok {
		r.Tool = fixer.Command(l)
	} else if l, ok := ctx.Report.WorstLint(); ok {
		r.Tool = fixer.Command(l)
	}
	return r
}

func jsWithLintErrors(rep metrics.Report) (lang.Language, bool) {
	for _, l := range rep.Languages {
		if !l.JSFamily() {
			continue
		}
		if res, ok := rep.Metrics.LintErrors[l]; ok && res.Usable() && res.Value > 0 {
			return l, true
		}
	}
	return "", false
}

type dimension struct {
	results metrics.ByLanguage
	what    string
}

// toolingGaps reports tools that could not produce a figure. A missing
// checker scores as zero errors, so the score overstates the project.
func toolingGaps(ctx *AnalysisContext, tier Tier, impact Impact) []Recommendation {
	rep := ctx.Report
	dims := []dimension{
		{rep.Metrics.TypeStrictness, "type errors"},
		{rep.Metrics.LintErrors, "lint errors"},
	}
	// Without any coverage figure the coverage advice already says to set it up.
	if rep.Summary.HasCoverage() {
		dims = append(dims, dimension{rep.Metrics.Coverage, "coverage"})
	}

	var recs []Recommendation
	for _, l := range rep.Languages {
		for _, d := range dims {
			res, ok := d.results[l]
			if !ok || res.Usable() || res.Tool == "" {
				continue
			}
			recs = append(recs, Recommendation{
				Tier:     tier,
				Category: CategoryGeneral,
				Impact:   impact,
				Message:  fmt.Sprintf("Install or repair %s so %s can be measured for %s.", res.Tool, d.what, l),
			})
		}
	}
	return recs
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

func percent(v float64) string {
	return strings.TrimSuffix(strings.TrimSuffix(fmt.Sprintf("%.1f", v), "0"), ".") + "%"
}

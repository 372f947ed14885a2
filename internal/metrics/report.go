package metrics

import (
	"math"

	"github.com/blackwell-systems/btar/internal/lang"
)

// NewReport builds a report and its summary. Only usable results count
// towards the totals and the coverage average.
func NewReport(languages []lang.Language, typeResults, lintResults, coverageResults ByLanguage) Report {
	r := Report{
		Languages: languages,
		Metrics: Metrics{
			TypeStrictness: orEmpty(typeResults),
			LintErrors:     orEmpty(lintResults),
			Coverage:       orEmpty(coverageResults),
		},
	}
	r.Summary = Summarize(r.Metrics)
	return r
}

// Summarize aggregates usable results. The coverage average is rounded to
// one decimal place.
func Summarize(m Metrics) Summary {
	var s Summary
	for _, res := range m.TypeStrictness {
		if res.Usable() {
			s.TotalTypeErrors += int(res.Value)
		}
	}
	for _, res := range m.LintErrors {
		if res.Usable() {
			s.TotalLintErrors += int(res.Value)
		}
	}

	var sum float64
	for _, res := range m.Coverage {
		if res.Usable() {
			sum += res.Value
			s.CoverageLanguages++
		}
	}
	if s.CoverageLanguages > 0 {
		s.AverageCoverage = math.Round(sum/float64(s.CoverageLanguages)*10) / 10
	}
	return s
}

// Failed returns every result in the report that could not be measured.
func (r Report) Failed() []Result {
	var out []Result
	for _, l := range r.Languages {
		for _, m := range []ByLanguage{r.Metrics.TypeStrictness, r.Metrics.LintErrors, r.Metrics.Coverage} {
			if res, ok := m[l]; ok && !res.Usable() {
				out = append(out, res)
			}
		}
	}
	return out
}

// WorstLint returns the language with the most lint errors, if any has more
// than zero.
func (r Report) WorstLint() (lang.Language, bool) {
	return r.worst(r.Metrics.LintErrors)
}

// WorstType returns the language with the most type errors, if any has more
// than zero.
func (r Report) WorstType() (lang.Language, bool) {
	return r.worst(r.Metrics.TypeStrictness)
}

func (r Report) worst(m ByLanguage) (lang.Language, bool) {
	var worst lang.Language
	var most float64
	for _, l := range r.Languages {
		res, ok := m[l]
		if ok && res.Usable() && res.Value > most {
			worst, most = l, res.Value
		}
	}
	return worst, most > 0
}

func orEmpty(m ByLanguage) ByLanguage {
	if m == nil {
		return ByLanguage{}
	}
	return m
}

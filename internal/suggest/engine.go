package suggest

import (
	"github.com/blackwell-systems/btar/internal/metrics"
	"github.com/blackwell-systems/btar/internal/scoring"
)

// Engine dispatches on the score's interpretation band.
type Engine struct {
	strategies map[scoring.Interpretation]Strategy
}

// NewEngine creates an engine with the built-in strategy for every band.
func NewEngine() *Engine {
	return &Engine{
		strategies: map[scoring.Interpretation]Strategy{
			scoring.Poor:      Poor,
			scoring.NeedsWork: NeedsWork,
			scoring.Good:      Good,
			scoring.Excellent: Excellent,
		},
	}
}

// Run returns the recommendations for a score, ranked. The list is never
// empty.
func (e *Engine) Run(ctx *AnalysisContext) []Recommendation {
	strategy, ok := e.strategies[ctx.Score.Interpretation]
	if !ok {
		strategy = e.strategies[scoring.Interpret(ctx.Score.Score)]
	}

	var recs []Recommendation
	if strategy != nil {
		recs = strategy(ctx)
	}
	if len(recs) == 0 {
		recs = []Recommendation{{
			Tier:     P2,
			Category: CategoryGeneral,
			Impact:   Medium,
			Message:  "No outstanding issues in measured dimensions. Save a baseline and enforce it in CI so the score only moves up.",
		}}
	}
	return Rank(recs)
}

// Generate is a convenience wrapper around a default engine.
func Generate(score scoring.Result, report metrics.Report) []Recommendation {
	return NewEngine().Run(&AnalysisContext{Score: score, Report: report})
}

// Package suggest turns a score and its metrics into a prioritized list of
// recommendations.
package suggest

import (
	"github.com/blackwell-systems/btar/internal/metrics"
	"github.com/blackwell-systems/btar/internal/scoring"
)

// Tier is a recommendation's priority. P0 is the most urgent.
type Tier string

const (
	P0 Tier = "P0"
	P1 Tier = "P1"
	P2 Tier = "P2"
	P3 Tier = "P3"
)

// Category is the dimension a recommendation addresses.
type Category string

const (
	CategoryTypeStrictness Category = "type-strictness"
	CategoryLintErrors     Category = "lint-errors"
	CategoryTestCoverage   Category = "test-coverage"
	CategoryGeneral        Category = "general"
)

// Impact is the expected effect of acting on a recommendation.
type Impact string

const (
	High   Impact = "high"
	Medium Impact = "medium"
	Low    Impact = "low"
)

// Recommendation is one actionable item.
type Recommendation struct {
	Tier     Tier     `json:"tier" yaml:"tier"`
	Category Category `json:"category" yaml:"category"`
	Message  string   `json:"message" yaml:"message"`
	Impact   Impact   `json:"impact" yaml:"impact"`
	Tool     string   `json:"tool,omitempty" yaml:"tool,omitempty"`
}

// AnalysisContext is everything a strategy may look at.
type AnalysisContext struct {
	Score  scoring.Result
	Report metrics.Report
}

// Strategy produces the recommendations for one interpretation band.
type Strategy func(ctx *AnalysisContext) []Recommendation

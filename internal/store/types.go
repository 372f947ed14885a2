// Package store provides SQLite access to the history of analysis runs.
package store

import (
	"time"

	"github.com/blackwell-systems/btar/internal/lang"
	"github.com/blackwell-systems/btar/internal/metrics"
	"github.com/blackwell-systems/btar/internal/scoring"
	"github.com/blackwell-systems/btar/internal/suggest"
)

// Run is one recorded analysis of a directory.
type Run struct {
	ID              string                   `json:"id" yaml:"id"`
	TakenAt         time.Time                `json:"taken_at" yaml:"taken_at"`
	Directory       string                   `json:"directory" yaml:"directory"`
	Score           int                      `json:"score" yaml:"score"`
	Breakdown       scoring.Breakdown        `json:"breakdown" yaml:"breakdown"`
	Interpretation  scoring.Interpretation   `json:"interpretation" yaml:"interpretation"`
	Version         string                   `json:"version" yaml:"version"`
	Metrics         []MetricRow              `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Recommendations []suggest.Recommendation `json:"recommendations,omitempty" yaml:"recommendations,omitempty"`
}

// MetricRow is a stored measurement together with its language.
type MetricRow struct {
	Language       lang.Language `json:"language" yaml:"language"`
	metrics.Result `yaml:",inline"`
}

// RunDiff represents the comparison between two runs.
type RunDiff struct {
	Previous *Run         `json:"previous"`
	Current  *Run         `json:"current"`
	Deltas   []ScoreDelta `json:"deltas"`
}

// Direction labels a delta.
type Direction string

const (
	Improved  Direction = "improved"
	Regressed Direction = "regressed"
	Unchanged Direction = "unchanged"
)

// ScoreDelta represents the change in one score dimension between runs.
type ScoreDelta struct {
	Name      string    `json:"name"`
	Previous  int       `json:"previous"`
	Current   int       `json:"current"`
	Delta     int       `json:"delta"`
	Direction Direction `json:"direction"`
}

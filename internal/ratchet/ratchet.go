// Package ratchet persists a baseline score and detects regressions against it.
package ratchet

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/invopop/jsonschema"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/blackwell-systems/btar/internal/scoring"
)

// FileName is the default baseline file, relative to the analyzed directory.
const FileName = ".btar-score"

// timestampFormat matches ISO-8601 with millisecond precision in UTC.
const timestampFormat = "2006-01-02T15:04:05.000Z07:00"

// State is the persisted baseline.
type State struct {
	Score     int               `json:"score" jsonschema:"minimum=0,maximum=100"`
	Timestamp string            `json:"timestamp" jsonschema:"format=date-time"`
	Breakdown scoring.Breakdown `json:"breakdown"`
}

// Store reads and writes a baseline file.
type Store struct {
	path string
	now  func() time.Time
}

// New returns a Store for the baseline file name inside dir. An empty name
// uses FileName; an absolute name is used as is.
func New(dir, name string) *Store {
	if name == "" {
		name = FileName
	}
	path := name
	if !filepath.IsAbs(name) {
		path = filepath.Join(dir, name)
	}
	return &Store{path: path, now: time.Now}
}

// Path returns the baseline file location.
func (s *Store) Path() string {
	return s.path
}

// Load returns the baseline and true, or false when there is no usable
// baseline. A missing file, unparseable JSON and a document with the wrong
// shape all count as no baseline.
func (s *Store) Load() (State, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		log.WithField("path", s.path).WithError(err).Debug("no baseline")
		return State{}, false
	}
	if err := validate(data); err != nil {
		log.WithField("path", s.path).WithError(err).Debug("ignoring baseline")
		return State{}, false
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		log.WithField("path", s.path).WithError(err).Debug("ignoring baseline")
		return State{}, false
	}
	return st, true
}

// validate checks the field types a baseline must have. Extra fields are
// allowed.
func validate(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("invalid JSON")
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return fmt.Errorf("baseline is not an object")
	}
	fields := []struct {
		path string
		typ  gjson.Type
	}{
		{"score", gjson.Number},
		{"timestamp", gjson.String},
		{"breakdown.typeStrictness", gjson.Number},
		{"breakdown.lintErrors", gjson.Number},
		{"breakdown.coverage", gjson.Number},
	}
	for _, f := range fields {
		if v := doc.Get(f.path); v.Type != f.typ {
			return fmt.Errorf("field %s: want %s, got %s", f.path, f.typ, v.Type)
		}
	}
	return nil
}

// Save overwrites the baseline with r and a fresh timestamp.
func (s *Store) Save(r scoring.Result) (State, error) {
	st := State{
		Score:     r.Score,
		Timestamp: s.now().UTC().Format(timestampFormat),
		Breakdown: r.Breakdown,
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return State{}, fmt.Errorf("encoding baseline: %w", err)
	}
	if err := os.WriteFile(s.path, append(data, '\n'), 0o644); err != nil {
		return State{}, fmt.Errorf("writing baseline %s: %w", s.path, err)
	}
	return st, nil
}

// Check is the outcome of comparing a score with the baseline.
type Check struct {
	Passed  bool   `json:"passed" yaml:"passed"`
	Message string `json:"message" yaml:"message"`
	Delta   int    `json:"delta" yaml:"delta"`
}

// CheckRegression compares current with baseline. Any drop fails.
func CheckRegression(current scoring.Result, baseline State) Check {
	delta := current.Score - baseline.Score
	switch {
	case delta > 0:
		return Check{
			Passed:  true,
			Delta:   delta,
			Message: fmt.Sprintf("Score improved: %d (was %d, +%d)", current.Score, baseline.Score, delta),
		}
	case delta == 0:
		return Check{
			Passed:  true,
			Message: fmt.Sprintf("Score maintained at %d", current.Score),
		}
	}
	return Check{
		Passed:  false,
		Delta:   delta,
		Message: fmt.Sprintf("Score regression: %d < %d (%d points)", current.Score, baseline.Score, delta),
	}
}

// Schema returns the JSON Schema of the baseline file.
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
		DoNotReference:            true,
	}
	return reflector.Reflect(&State{})
}

package ratchet

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/btar/internal/scoring"
)

func result(score int) scoring.Result {
	return scoring.Result{
		Score:          score,
		Breakdown:      scoring.Breakdown{TypeStrictness: 30, LintErrors: score - 30, Coverage: 0},
		Interpretation: scoring.Interpret(score),
	}
}

func writeBaseline(t *testing.T, dir, content string) *Store {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644))
	return New(dir, "")
}

// --- Load / Save ---

func TestSaveThenLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, "")
	s.now = func() time.Time { return time.Date(2026, 3, 1, 12, 30, 0, 123e6, time.FixedZone("X", 3600)) }

	saved, err := s.Save(result(55))
	require.NoError(t, err)
	assert.Equal(t, "2026-03-01T11:30:00.123Z", saved.Timestamp)

	loaded, ok := s.Load()
	require.True(t, ok)
	assert.Equal(t, 55, loaded.Score)
	assert.Equal(t, result(55).Breakdown, loaded.Breakdown)
	assert.Equal(t, saved, loaded)
}

func TestSave_OverwritesWholesale(t *testing.T) {
	s := writeBaseline(t, t.TempDir(), `{"score":90,"timestamp":"x","breakdown":{"typeStrictness":30,"lintErrors":30,"coverage":30},"note":"keep?"}`)
	_, err := s.Save(result(40))
	require.NoError(t, err)

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.NotContains(t, raw, "note")
	assert.Equal(t, 40.0, raw["score"])
}

func TestLoad_Missing(t *testing.T) {
	_, ok := New(t.TempDir(), "").Load()
	assert.False(t, ok)
}

func TestLoad_InvalidBaselinesAreAbsent(t *testing.T) {
	tests := map[string]string{
		"corrupt json":        `{"score": 80,`,
		"not an object":       `[80]`,
		"score is string":     `{"score":"80","timestamp":"t","breakdown":{"typeStrictness":1,"lintErrors":1,"coverage":1}}`,
		"missing timestamp":   `{"score":80,"breakdown":{"typeStrictness":1,"lintErrors":1,"coverage":1}}`,
		"breakdown null":      `{"score":80,"timestamp":"t","breakdown":null}`,
		"coverage missing":    `{"score":80,"timestamp":"t","breakdown":{"typeStrictness":1,"lintErrors":1}}`,
		"lint errors boolean": `{"score":80,"timestamp":"t","breakdown":{"typeStrictness":1,"lintErrors":true,"coverage":1}}`,
		"fractional score":    `{"score":80.5,"timestamp":"t","breakdown":{"typeStrictness":1,"lintErrors":1,"coverage":1}}`,
		"empty file":          ``,
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, ok := writeBaseline(t, t.TempDir(), content).Load()
			assert.False(t, ok)
		})
	}
}

func TestLoad_IgnoresUnknownFields(t *testing.T) {
	s := writeBaseline(t, t.TempDir(), `{"score":72,"timestamp":"2026-01-01T00:00:00.000Z","breakdown":{"typeStrictness":30,"lintErrors":20,"coverage":22,"future":1},"version":"2"}`)
	st, ok := s.Load()
	require.True(t, ok)
	assert.Equal(t, 72, st.Score)
	assert.Equal(t, 22, st.Breakdown.Coverage)
}

func TestNew_CustomName(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, filepath.Join(dir, "score.json"), New(dir, "score.json").Path())
	abs := filepath.Join(t.TempDir(), "elsewhere.json")
	assert.Equal(t, abs, New(dir, abs).Path())
}

// --- CheckRegression ---

func TestCheckRegression_Sign(t *testing.T) {
	for _, base := range []int{0, 50, 70, 100} {
		for _, cur := range []int{0, 50, 70, 100} {
			c := CheckRegression(scoring.Result{Score: cur}, State{Score: base})
			switch {
			case cur > base:
				assert.True(t, c.Passed)
				assert.Positive(t, c.Delta)
			case cur < base:
				assert.False(t, c.Passed)
				assert.Negative(t, c.Delta)
			default:
				assert.True(t, c.Passed)
				assert.Zero(t, c.Delta)
			}
		}
	}
}

func TestCheckRegression_Messages(t *testing.T) {
	c := CheckRegression(scoring.Result{Score: 65}, State{Score: 70})
	assert.False(t, c.Passed)
	assert.Equal(t, -5, c.Delta)
	assert.Contains(t, c.Message, "65")
	assert.Contains(t, c.Message, "70")
	assert.Equal(t, "Score regression: 65 < 70 (-5 points)", c.Message)

	assert.Equal(t, "Score improved: 80 (was 70, +10)", CheckRegression(scoring.Result{Score: 80}, State{Score: 70}).Message)
	assert.Equal(t, "Score maintained at 70", CheckRegression(scoring.Result{Score: 70}, State{Score: 70}).Message)
}

// --- Schema ---

func TestSchema_DescribesBaseline(t *testing.T) {
	data, err := json.Marshal(Schema())
	require.NoError(t, err)
	s := string(data)
	assert.Contains(t, s, `"score"`)
	assert.Contains(t, s, `"typeStrictness"`)
	assert.Contains(t, s, `"date-time"`)
}

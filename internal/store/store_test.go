package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/btar/internal/lang"
	"github.com/blackwell-systems/btar/internal/metrics"
	"github.com/blackwell-systems/btar/internal/scoring"
	"github.com/blackwell-systems/btar/internal/suggest"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func sampleRun(dir string, score int, at time.Time) *Run {
	report := metrics.NewReport(
		[]lang.Language{lang.Go},
		metrics.ByLanguage{lang.Go: {Metric: metrics.TypeStrictness, Tool: "go vet", Value: 2, Success: true}},
		metrics.ByLanguage{lang.Go: {Metric: metrics.LintErrors, Tool: "golangci-lint", Value: metrics.Unavailable, Raw: "golangci-lint not found"}},
		metrics.ByLanguage{lang.Go: {Metric: metrics.TestCoverage, Tool: "go test", Value: 71.5, Success: true}},
	)
	res := scoring.Result{
		Score:          score,
		Breakdown:      scoring.Breakdown{TypeStrictness: 20, LintErrors: 30, Coverage: score - 50},
		Interpretation: scoring.Interpret(score),
	}
	recs := []suggest.Recommendation{
		{Tier: suggest.P1, Category: suggest.CategoryTypeStrictness, Impact: suggest.Medium, Message: "Fix the remaining 2 type errors.", Tool: "go vet ./..."},
		{Tier: suggest.P2, Category: suggest.CategoryTestCoverage, Impact: suggest.Medium, Message: "Increase test coverage from 71.5% to 80%."},
	}
	r := NewRun(dir, "1.0.0", res, report, recs)
	r.TakenAt = at
	return r
}

// --- Migrations ---

func TestMigrate_Idempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Migrate())

	v, err := db.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, currentSchemaVersion, v)
}

func TestOpen_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	db, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	require.NoError(t, db.RecordRun(sampleRun("/repo", 80, time.Now())))
	assert.FileExists(t, path)
}

// --- Record and read ---

func TestRecordRun_RoundTrip(t *testing.T) {
	db := openTestDB(t)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	run := sampleRun("/repo", 81, at)

	require.NoError(t, db.RecordRun(run))
	require.NotEmpty(t, run.ID)

	got, err := db.GetRun(run.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "/repo", got.Directory)
	assert.Equal(t, 81, got.Score)
	assert.Equal(t, run.Breakdown, got.Breakdown)
	assert.Equal(t, scoring.Good, got.Interpretation)
	assert.Equal(t, "1.0.0", got.Version)
	assert.True(t, at.Equal(got.TakenAt))

	require.Len(t, got.Metrics, 3)
	assert.Equal(t, lang.Go, got.Metrics[0].Language)
	assert.Equal(t, metrics.TypeStrictness, got.Metrics[0].Metric)
	assert.Equal(t, 2.0, got.Metrics[0].Value)
	assert.False(t, got.Metrics[1].Success)
	assert.Equal(t, metrics.Unavailable, got.Metrics[1].Value)
	assert.Equal(t, "golangci-lint not found", got.Metrics[1].Raw)

	assert.Equal(t, run.Recommendations, got.Recommendations)
}

func TestGetRun_Missing(t *testing.T) {
	db := openTestDB(t)
	got, err := db.GetRun("does-not-exist")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRecordRun_DuplicateIDFails(t *testing.T) {
	db := openTestDB(t)
	run := sampleRun("/repo", 70, time.Now())
	require.NoError(t, db.RecordRun(run))

	again := sampleRun("/repo", 75, time.Now())
	again.ID = run.ID
	require.Error(t, db.RecordRun(again))

	runs, err := db.ListRuns("/repo", 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1, "failed insert leaves no partial run")
}

// --- Listing ---

func TestListRuns_NewestFirstPerDirectory(t *testing.T) {
	db := openTestDB(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, score := range []int{60, 70, 80} {
		require.NoError(t, db.RecordRun(sampleRun("/a", score, base.Add(time.Duration(i)*time.Hour))))
	}
	require.NoError(t, db.RecordRun(sampleRun("/b", 99, base)))

	runs, err := db.ListRuns("/a", 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, []int{80, 70, 60}, []int{runs[0].Score, runs[1].Score, runs[2].Score})
	assert.Empty(t, runs[0].Metrics)

	limited, err := db.ListRuns("/a", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestRunN(t *testing.T) {
	db := openTestDB(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.RecordRun(sampleRun("/a", 60, base)))
	require.NoError(t, db.RecordRun(sampleRun("/a", 75, base.Add(time.Minute))))

	latest, err := db.RunN("/a", 1)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, 75, latest.Score)
	assert.Len(t, latest.Recommendations, 2)

	prev, err := db.RunN("/a", 2)
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, 60, prev.Score)

	none, err := db.RunN("/a", 3)
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = db.RunN("/a", 0)
	assert.Error(t, err)
}

func TestDeleteRuns_KeepsNewest(t *testing.T) {
	db := openTestDB(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		require.NoError(t, db.RecordRun(sampleRun("/a", 60+i, base.Add(time.Duration(i)*time.Hour))))
	}

	n, err := db.DeleteRuns("/a", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	runs, err := db.ListRuns("/a", 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 63, runs[0].Score)

	got, err := db.GetRun(runs[0].ID)
	require.NoError(t, err)
	assert.Len(t, got.Metrics, 3)
}

// --- Diff ---

func TestDiff(t *testing.T) {
	prev := &Run{Score: 70, Breakdown: scoring.Breakdown{TypeStrictness: 20, LintErrors: 25, Coverage: 25}}
	cur := &Run{Score: 72, Breakdown: scoring.Breakdown{TypeStrictness: 23, LintErrors: 23, Coverage: 26}}

	d := Diff(prev, cur)
	require.Len(t, d.Deltas, 4)

	want := []struct {
		name  string
		delta int
		dir   Direction
	}{
		{"score", 2, Improved},
		{"type_strictness", 3, Improved},
		{"lint_errors", -2, Regressed},
		{"coverage", 1, Improved},
	}
	for i, w := range want {
		assert.Equal(t, w.name, d.Deltas[i].Name)
		assert.Equal(t, w.delta, d.Deltas[i].Delta)
		assert.Equal(t, w.dir, d.Deltas[i].Direction)
	}

	same := Diff(prev, prev)
	for _, delta := range same.Deltas {
		assert.Equal(t, Unchanged, delta.Direction)
	}
}

package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/btar/internal/lang"
)

const sampleJacoco = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<!DOCTYPE report PUBLIC "-//JACOCO//DTD Report 1.1//EN" "report.dtd">
<report name="app">
  <package name="com/example">
    <class name="com/example/App">
      <counter type="LINE" missed="1" covered="1"/>
    </class>
    <counter type="LINE" missed="9" covered="1"/>
  </package>
  <counter type="INSTRUCTION" missed="40" covered="60"/>
  <counter type="LINE" missed="25" covered="75"/>
  <counter type="METHOD" missed="2" covered="8"/>
</report>`

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// --- JaCoCo ---

func TestParseJacoco_UsesReportLevelCounter(t *testing.T) {
	v, ok := ParseJacoco([]byte(sampleJacoco))
	assert.True(t, ok)
	assert.Equal(t, 75.0, v)
}

func TestParseJacoco_RoundsToOneDecimal(t *testing.T) {
	v, ok := ParseJacoco([]byte(`<report name="x"><counter type="LINE" missed="1" covered="2"/></report>`))
	assert.True(t, ok)
	assert.Equal(t, 66.7, v)
}

func TestParseJacoco_EmptyAndInvalid(t *testing.T) {
	v, ok := ParseJacoco([]byte(`<report name="x"><counter type="LINE" missed="0" covered="0"/></report>`))
	assert.True(t, ok)
	assert.Equal(t, 0.0, v)

	_, ok = ParseJacoco([]byte(`<report name="x"></report>`))
	assert.False(t, ok)

	_, ok = ParseJacoco([]byte(`not xml`))
	assert.False(t, ok)
}

// --- JS runner detection ---

func TestDetectJSCoverage(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		want  string
	}{
		{"vitest config", map[string]string{"vitest.config.mts": "export default {}"}, "vitest"},
		{"vitest dependency", map[string]string{"package.json": `{"devDependencies":{"vitest":"^1.0.0"}}`}, "vitest"},
		{"jest dependency", map[string]string{"package.json": `{"dependencies":{"jest":"^29.0.0"}}`}, "jest"},
		{"plain package", map[string]string{"package.json": `{"name":"x"}`}, "c8"},
		{"malformed package", map[string]string{"package.json": `{`}, "c8"},
		{"nothing", nil, "c8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for name, content := range tt.files {
				writeFile(t, dir, name, content)
			}
			assert.Equal(t, tt.want, detectJSCoverage(dir).Tool)
		})
	}
}

// --- Gradle detection ---

func TestDetectGradleCoverage(t *testing.T) {
	withTests := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(withTests, "src", "test"), 0o755))

	android := lang.Detected{Language: lang.Kotlin, BuildSystem: lang.Gradle, Android: true}
	plain := lang.Detected{Language: lang.Java, BuildSystem: lang.Gradle}

	assert.Equal(t, []string{"./gradlew", "test", "jacocoTestReport"}, detectGradleCoverage(withTests, android).Command)
	assert.Equal(t, "jacoco (android)", detectGradleCoverage(t.TempDir(), android).Tool)
	assert.Equal(t, "jacoco (gradle)", detectGradleCoverage(t.TempDir(), plain).Tool)
}

func TestReadReports_FirstPositiveWins(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "build/reports/jacoco/test/jacocoTestReport.xml", `<report name="x"><counter type="LINE" missed="5" covered="0"/></report>`)
	writeFile(t, dir, "build/reports/coverage/debug/report.xml", `<report name="x"><counter type="LINE" missed="1" covered="3"/></report>`)
	assert.Equal(t, 75.0, readReports(dir, jacocoGradleReports))
	assert.Equal(t, 0.0, readReports(t.TempDir(), jacocoGradleReports))
}

func TestProfiles_ExecutionOrder(t *testing.T) {
	ps := Profiles(t.TempDir(), lang.Detected{Language: lang.Ruby})
	require.Len(t, ps, 2)
	assert.Equal(t, "rubocop", ps[0].Tool)
	assert.Equal(t, "simplecov", ps[1].Tool)
}

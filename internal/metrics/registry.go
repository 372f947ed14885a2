package metrics

import (
	"regexp"

	"github.com/blackwell-systems/btar/internal/lang"
)

// Profile describes how to measure one metric with one tool.
type Profile struct {
	Tool    string
	Command []string
	Parse   Parser

	// VersionCommand prints the tool version. MinVersion and BelowVersion
	// bound the versions whose output format the parser understands; either
	// may be empty.
	VersionCommand []string
	MinVersion     string
	BelowVersion   string

	// Reports lists report files, relative to the project directory, that
	// hold the figure when the tool's own output does not.
	Reports []string
}

// Executable is the program the profile starts.
func (p Profile) Executable() string {
	if len(p.Command) == 0 {
		return ""
	}
	return p.Command[0]
}

// NoTypeChecker is the tool label for languages without static types.
const NoTypeChecker = "n/a"

var (
	foundErrorsRe = regexp.MustCompile(`(?i)Found (\d+) errors?`)
	tscLineRe     = regexp.MustCompile(`error TS\d+:`)
	mypyLineRe    = regexp.MustCompile(`:\d+: error:`)
	goVetLineRe   = regexp.MustCompile(`\.go:\d+:\d*:`)
	javacLineRe   = regexp.MustCompile(`: error:`)

	androidSummaryRe = regexp.MustCompile(`(\d+)\s+errors?`)
	androidLineRe    = regexp.MustCompile(`Error:`)

	c8AllFilesRe     = regexp.MustCompile(`All files[^|]*\|\s*([\d.]+)`)
	c8TotalRe        = regexp.MustCompile(`(?i)(?:total|coverage)[^:]*:\s*([\d.]+)%`)
	pytestTotalRe    = regexp.MustCompile(`(?m)^TOTAL\s+.*?(\d+)%`)
	pytestOverallRe  = regexp.MustCompile(`(?i)(?:total|overall)\s+coverage[:\s]*([\d.]+)%`)
	goUnitRe         = regexp.MustCompile(`coverage:\s*([\d.]+)%\s+of\s+statements`)
	goAnyRe          = regexp.MustCompile(`coverage:\s*([\d.]+)%`)
	istanbulLinesRe  = regexp.MustCompile(`(?m)^Lines\s*:\s*([\d.]+)%`)
	genericLineCovRe = regexp.MustCompile(`(?i)(?:line\s+)?coverage[:\s]*([\d.]+)%`)
	genericTotalRe   = regexp.MustCompile(`(?i)total[:\s]*([\d.]+)%`)
	genericBareRe    = regexp.MustCompile(`(?m)^[\s]*(\d+(?:\.\d+)?)\s*%`)
)

func genericCoverage() Parser {
	return PercentSummary(genericLineCovRe, genericTotalRe, genericBareRe)
}

func c8Coverage() Parser {
	return PercentSummary(c8AllFilesRe, c8TotalRe)
}

// typeProfiles maps each typed language to its type checker.
var typeProfiles = map[lang.Language]Profile{
	lang.TypeScript: {
		Tool:    "tsc",
		Command: []string{"npx", "tsc", "--noEmit"},
		Parse:   CompilerText(foundErrorsRe, tscLineRe),
	},
	lang.Python: {
		Tool:           "mypy",
		Command:        []string{"mypy", "."},
		Parse:          CompilerText(foundErrorsRe, mypyLineRe),
		VersionCommand: []string{"mypy", "--version"},
	},
	lang.Go: {
		Tool:           "go vet",
		Command:        []string{"go", "vet", "./..."},
		Parse:          CompilerText(nil, goVetLineRe),
		VersionCommand: []string{"go", "version"},
	},
	lang.Java: {
		Tool:           "javac",
		Command:        []string{"javac", "-Xlint:all", "-d", "/tmp", "-sourcepath", "."},
		Parse:          CompilerText(nil, javacLineRe),
		VersionCommand: []string{"javac", "-version"},
	},
	lang.Kotlin: {
		Tool:           "kotlinc",
		Command:        []string{"kotlinc", "-Werror"},
		Parse:          CompilerText(nil, javacLineRe),
		VersionCommand: []string{"kotlinc", "-version"},
	},
	lang.Swift: {
		Tool:           "swift build",
		Command:        []string{"swift", "build"},
		Parse:          CompilerText(nil, javacLineRe),
		VersionCommand: []string{"swift", "--version"},
	},
}

var eslintProfile = Profile{
	Tool:    "eslint",
	Command: []string{"npx", "eslint", ".", "--format", "json"},
	Parse:   JSONRecordSum("errorCount"),
}

// lintProfiles maps each language to its linter.
var lintProfiles = map[lang.Language]Profile{
	lang.TypeScript: eslintProfile,
	lang.JavaScript: eslintProfile,
	lang.Python: {
		Tool:           "ruff",
		Command:        []string{"ruff", "check", ".", "--output-format", "json"},
		Parse:          JSONArrayLength(),
		VersionCommand: []string{"ruff", "--version"},
		MinVersion:     "v0.1.0",
	},
	lang.Go: {
		Tool:           "golangci-lint",
		Command:        []string{"golangci-lint", "run", "--out-format", "json"},
		Parse:          JSONNestedLength("Issues"),
		VersionCommand: []string{"golangci-lint", "--version"},
		MinVersion:     "v1.50.0",
		BelowVersion:   "v2.0.0",
	},
	lang.Java: {
		Tool:           "checkstyle",
		Command:        []string{"checkstyle", "-c", "/google_checks.xml", "-f", "xml", "src/main/java"},
		Parse:          XMLElementCount("error"),
		VersionCommand: []string{"checkstyle", "--version"},
	},
	lang.Swift: {
		Tool:           "swiftlint",
		Command:        []string{"swiftlint", "lint", "--reporter", "json"},
		Parse:          JSONSeverityCount("severity", "error"),
		VersionCommand: []string{"swiftlint", "version"},
	},
	lang.Kotlin: {
		Tool:           "ktlint",
		Command:        []string{"ktlint", "--reporter=json"},
		Parse:          JSONNestedSum("", "errors"),
		VersionCommand: []string{"ktlint", "--version"},
	},
	lang.Ruby: {
		Tool:           "rubocop",
		Command:        []string{"rubocop", "--format", "json"},
		Parse:          JSONNestedSum("files", "offenses"),
		VersionCommand: []string{"rubocop", "--version"},
	},
	lang.PHP: {
		Tool:           "phpcs",
		Command:        []string{"phpcs", "--report=json", "."},
		Parse:          JSONField("totals.errors"),
		VersionCommand: []string{"phpcs", "--version"},
	},
}

// androidLintProfile replaces the language linter for Gradle JVM projects.
var androidLintProfile = Profile{
	Tool:    "android-lint",
	Command: []string{"./gradlew", "lint"},
	Parse:   SummaryText(androidSummaryRe, androidLineRe),
}

var jacocoGradleReports = []string{
	"build/reports/jacoco/test/jacocoTestReport.xml",
	"build/reports/coverage/debug/report.xml",
	"build/reports/jacoco/jacocoTestReport.xml",
}

var (
	c8Profile = Profile{
		Tool:    "c8",
		Command: []string{"npx", "c8", "--reporter=text-summary", "npm", "test"},
		Parse:   c8Coverage(),
	}
	vitestProfile = Profile{
		Tool:    "vitest",
		Command: []string{"npx", "vitest", "run", "--coverage"},
		Parse:   c8Coverage(),
	}
	jestProfile = Profile{
		Tool:    "jest",
		Command: []string{"npx", "jest", "--coverage", "--coverageReporters=text-summary"},
		Parse:   PercentSummary(istanbulLinesRe, genericLineCovRe, genericTotalRe, genericBareRe),
	}

	// JVM tests: the figure comes only from the JaCoCo report.
	jacocoGradleProfile = Profile{
		Tool:    "jacoco (gradle)",
		Command: []string{"./gradlew", "test", "jacocoTestReport"},
		Parse:   Constant(0),
		Reports: jacocoGradleReports,
	}
	// Instrumented tests on a device or emulator.
	jacocoAndroidProfile = Profile{
		Tool:    "jacoco (android)",
		Command: []string{"./gradlew", "createDebugCoverageReport"},
		Parse:   Constant(0),
		Reports: jacocoGradleReports,
	}
	// Gradle without a JVM test tree; fall back to reading the console.
	jacocoGradleTextProfile = Profile{
		Tool:    "jacoco (gradle)",
		Command: []string{"./gradlew", "test", "jacocoTestReport"},
		Parse:   genericCoverage(),
		Reports: jacocoGradleReports,
	}
)

// coverageProfiles maps each language to its default coverage tool.
var coverageProfiles = map[lang.Language]Profile{
	lang.TypeScript: c8Profile,
	lang.JavaScript: c8Profile,
	lang.Python: {
		Tool:           "pytest-cov",
		Command:        []string{"pytest", "--cov=.", "--cov-report=term-missing", "-q"},
		Parse:          PercentSummary(pytestTotalRe, pytestOverallRe),
		VersionCommand: []string{"pytest", "--version"},
	},
	lang.Go: {
		Tool:    "go test",
		Command: []string{"go", "test", "-cover", "./..."},
		Parse:   PercentPerUnit(goUnitRe, goAnyRe),
	},
	lang.Java: {
		Tool:           "jacoco",
		Command:        []string{"mvn", "test", "jacoco:report"},
		Parse:          genericCoverage(),
		VersionCommand: []string{"mvn", "--version"},
		Reports:        []string{"target/site/jacoco/jacoco.xml"},
	},
	lang.Kotlin: jacocoGradleTextProfile,
	lang.Swift: {
		Tool:    "swift test",
		Command: []string{"swift", "test", "--enable-code-coverage"},
		Parse:   genericCoverage(),
	},
	lang.Ruby: {
		Tool:    "simplecov",
		Command: []string{"bundle", "exec", "rspec", "--format", "progress"},
		Parse:   genericCoverage(),
	},
	lang.PHP: {
		Tool:    "phpunit",
		Command: []string{"./vendor/bin/phpunit", "--coverage-text"},
		Parse:   genericCoverage(),
	},
}

// TypeProfile returns the type checker for a language. It reports false for
// languages without static types.
func TypeProfile(d lang.Detected) (Profile, bool) {
	p, ok := typeProfiles[d.Language]
	return p, ok
}

// LintProfile returns the linter for a detected language.
func LintProfile(d lang.Detected) (Profile, bool) {
	if gradleJVM(d) {
		return androidLintProfile, true
	}
	p, ok := lintProfiles[d.Language]
	return p, ok
}

// CoverageProfile returns the coverage tool for a detected language. Some
// choices depend on files present in dir.
func CoverageProfile(dir string, d lang.Detected) (Profile, bool) {
	switch {
	case d.Language.JSFamily():
		return detectJSCoverage(dir), true
	case gradleJVM(d):
		return detectGradleCoverage(dir, d), true
	}
	p, ok := coverageProfiles[d.Language]
	return p, ok
}

// Profiles returns every profile that would run for d, in execution order.
func Profiles(dir string, d lang.Detected) []Profile {
	var out []Profile
	if p, ok := TypeProfile(d); ok {
		out = append(out, p)
	}
	if p, ok := LintProfile(d); ok {
		out = append(out, p)
	}
	if p, ok := CoverageProfile(dir, d); ok {
		out = append(out, p)
	}
	return out
}

func gradleJVM(d lang.Detected) bool {
	return d.UsesGradle() && (d.Language == lang.Java || d.Language == lang.Kotlin)
}

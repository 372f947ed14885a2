package metrics

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/blackwell-systems/btar/internal/lang"
	"github.com/blackwell-systems/btar/internal/runner"
)

// Timeouts bounds each kind of tool run.
type Timeouts struct {
	TypeCheck  time.Duration
	Lint       time.Duration
	GradleLint time.Duration
	Coverage   time.Duration
}

// DefaultTimeouts gives coverage, which runs the whole test suite, far more
// time than the static checks.
var DefaultTimeouts = Timeouts{
	TypeCheck:  2 * time.Minute,
	Lint:       2 * time.Minute,
	GradleLint: 3 * time.Minute,
	Coverage:   10 * time.Minute,
}

// AndroidDeviceMessage is the diagnostic for instrumented tests that could
// not find a device.
const AndroidDeviceMessage = "No connected Android device/emulator for instrumented tests. Use JVM tests (src/test/) instead."

// Measurer runs the analysis tools for a directory.
type Measurer struct {
	runner   runner.Runner
	timeouts Timeouts
}

// NewMeasurer returns a Measurer. Zero timeouts fall back to DefaultTimeouts.
func NewMeasurer(r runner.Runner, t Timeouts) *Measurer {
	if t.TypeCheck <= 0 {
		t.TypeCheck = DefaultTimeouts.TypeCheck
	}
	if t.Lint <= 0 {
		t.Lint = DefaultTimeouts.Lint
	}
	if t.GradleLint <= 0 {
		t.GradleLint = DefaultTimeouts.GradleLint
	}
	if t.Coverage <= 0 {
		t.Coverage = DefaultTimeouts.Coverage
	}
	return &Measurer{runner: r, timeouts: t}
}

// TypeStrictness counts type-checker errors. Languages without static
// types report zero without running anything.
func (m *Measurer) TypeStrictness(ctx context.Context, dir string, d lang.Detected) Result {
	p, ok := TypeProfile(d)
	if !ok {
		return measured(TypeStrictness, NoTypeChecker, 0)
	}
	return m.measure(ctx, TypeStrictness, dir, p, m.timeouts.TypeCheck)
}

// LintErrors counts linter errors. Warnings are not counted.
func (m *Measurer) LintErrors(ctx context.Context, dir string, d lang.Detected) Result {
	p, ok := LintProfile(d)
	if !ok {
		return unavailable(LintErrors, "", fmt.Sprintf("no linter for %s", d.Language))
	}
	timeout := m.timeouts.Lint
	if gradleJVM(d) {
		timeout = m.timeouts.GradleLint
	}
	return m.measure(ctx, LintErrors, dir, p, timeout)
}

// Coverage measures line coverage as a percentage.
func (m *Measurer) Coverage(ctx context.Context, dir string, d lang.Detected) Result {
	p, ok := CoverageProfile(dir, d)
	if !ok {
		return unavailable(TestCoverage, "", fmt.Sprintf("no coverage tool for %s", d.Language))
	}
	return m.measure(ctx, TestCoverage, dir, p, m.timeouts.Coverage)
}

func (m *Measurer) measure(ctx context.Context, kind Kind, dir string, p Profile, timeout time.Duration) Result {
	res := m.runner.Run(ctx, runner.Options{Command: p.Command, Dir: dir, Timeout: timeout})

	logger := log.WithFields(log.Fields{"metric": kind, "tool": p.Tool, "dir": dir})

	if res.NotFound() {
		logger.Debug("tool not found")
		raw := res.Stderr
		if raw == "" {
			raw = p.Tool + " not found"
		}
		return unavailable(kind, p.Tool, raw)
	}
	if res.TimedOut {
		logger.Warn("tool timed out")
		return unavailable(kind, p.Tool, fmt.Sprintf("%s timed out after %s", p.Tool, timeout))
	}
	if len(p.Reports) > 0 && missingDevice(res.Stderr) {
		return unavailable(kind, p.Tool, AndroidDeviceMessage)
	}

	out := Output{Stdout: res.Stdout, Stderr: res.Stderr, ExitCode: res.ExitCode}

	var value float64
	if len(p.Reports) > 0 {
		value = readReports(dir, p.Reports)
	}
	if value <= 0 {
		value = p.Parse(out)
	}

	if value < 0 {
		logger.WithField("exit", res.ExitCode).Debug("unparseable tool output")
		raw := res.Stdout
		if raw == "" {
			raw = res.Stderr
		}
		return unavailable(kind, p.Tool, raw)
	}

	r := measured(kind, p.Tool, value)
	if res.ExitCode != 0 {
		r.Raw = truncate(out.Combined())
	}
	return r
}

// Progress receives measurement events from RunAll. Any field may be nil.
type Progress struct {
	Start  func(l lang.Language, kind Kind, tool string)
	Finish func(l lang.Language, r Result)
}

// RunAll measures every language in turn, running type checks, lint and
// coverage one after another, and aggregates the results.
func (m *Measurer) RunAll(ctx context.Context, dir string, detected []lang.Detected, progress *Progress) Report {
	typeResults := ByLanguage{}
	lintResults := ByLanguage{}
	coverageResults := ByLanguage{}

	steps := []struct {
		kind    Kind
		measure func(context.Context, string, lang.Detected) Result
		into    ByLanguage
	}{
		{TypeStrictness, m.TypeStrictness, typeResults},
		{LintErrors, m.LintErrors, lintResults},
		{TestCoverage, m.Coverage, coverageResults},
	}

	for _, d := range detected {
		for _, step := range steps {
			if progress != nil && progress.Start != nil {
				progress.Start(d.Language, step.kind, m.toolFor(dir, d, step.kind))
			}
			r := step.measure(ctx, dir, d)
			step.into[d.Language] = r
			if progress != nil && progress.Finish != nil {
				progress.Finish(d.Language, r)
			}
		}
	}

	return NewReport(lang.Names(detected), typeResults, lintResults, coverageResults)
}

func (m *Measurer) toolFor(dir string, d lang.Detected, kind Kind) string {
	var p Profile
	var ok bool
	switch kind {
	case TypeStrictness:
		p, ok = TypeProfile(d)
		if !ok {
			return NoTypeChecker
		}
	case LintErrors:
		p, ok = LintProfile(d)
	case TestCoverage:
		p, ok = CoverageProfile(dir, d)
	}
	if !ok {
		return ""
	}
	return p.Tool
}

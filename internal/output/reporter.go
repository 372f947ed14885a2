package output

import (
	"fmt"
	"io"

	"github.com/blackwell-systems/btar/internal/lang"
	"github.com/blackwell-systems/btar/internal/metrics"
)

// Symbols used by Reporter.
const (
	SymbolSuccess  = "✓"
	SymbolError    = "✗"
	SymbolProgress = "→"
	SymbolInfo     = "•"
	SymbolBranch   = "├─"
	SymbolCorner   = "└─"
)

// Reporter writes line-oriented progress. Quiet suppresses everything except
// errors, which go to errW.
type Reporter struct {
	w     io.Writer
	errW  io.Writer
	quiet bool
}

// NewReporter creates a reporter writing progress to w and errors to errW.
func NewReporter(w, errW io.Writer, quiet bool) *Reporter {
	return &Reporter{w: w, errW: errW, quiet: quiet}
}

func (r *Reporter) printf(format string, args ...any) {
	if r.quiet {
		return
	}
	_, _ = fmt.Fprintf(r.w, format, args...)
}

// Start announces a step.
func (r *Reporter) Start(msg string) {
	r.printf("%s %s\n", StyleMuted.Render(SymbolProgress), msg)
}

// Success reports a finished step.
func (r *Reporter) Success(msg string) {
	r.printf("%s %s\n", StyleSuccess.Render(SymbolSuccess), msg)
}

// Error reports a failure. It is shown even when quiet.
func (r *Reporter) Error(msg string) {
	_, _ = fmt.Fprintf(r.errW, "%s %s\n", StyleError.Render(SymbolError), msg)
}

// Info prints a note.
func (r *Reporter) Info(msg string) {
	r.printf("%s %s\n", StyleMuted.Render(SymbolInfo), msg)
}

// Section starts a titled block.
func (r *Reporter) Section(title string) {
	r.printf("\n  %s\n", StyleBold.Render(title))
}

// Summary prints a label and value inside a section.
func (r *Reporter) Summary(label string, value any) {
	r.printf("    %s: %v\n", label, value)
}

// Metric prints one measurement under the language being analyzed.
func (r *Reporter) Metric(res metrics.Result) {
	if !res.Usable() {
		r.printf("      %s %s: %s %s\n", SymbolCorner, res.Metric,
			StyleError.Render("unavailable"), StyleError.Render("("+res.Tool+" not available)"))
		return
	}

	value := FormatValue(res)
	style := StyleWarning
	if good(res) {
		style = StyleSuccess
	}
	r.printf("      %s %s: %s %s\n", SymbolCorner, res.Metric, style.Render(value), StyleMuted.Render("("+res.Tool+")"))
}

// good means no errors, or coverage of at least 70%.
func good(res metrics.Result) bool {
	if res.Metric == metrics.TestCoverage {
		return res.Value >= 70
	}
	return res.Value == 0
}

// FormatValue renders a usable result: error counts as integers, coverage
// as a percentage.
func FormatValue(res metrics.Result) string {
	if !res.Usable() {
		return "n/a"
	}
	if res.Metric == metrics.TestCoverage {
		return fmt.Sprintf("%.1f%%", res.Value)
	}
	return fmt.Sprintf("%.0f", res.Value)
}

// Progress adapts the reporter to the measurer's callbacks.
func (r *Reporter) Progress() metrics.Progress {
	var current lang.Language
	return metrics.Progress{
		Start: func(l lang.Language, kind metrics.Kind, tool string) {
			if l != current {
				current = l
				r.printf("  %s %s\n", SymbolBranch, StyleBold.Render(string(l)))
			}
		},
		Finish: func(_ lang.Language, res metrics.Result) {
			r.Metric(res)
		},
	}
}

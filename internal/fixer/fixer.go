// Package fixer runs each language's auto-fix tool and reports what it did.
package fixer

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/blackwell-systems/btar/internal/lang"
	"github.com/blackwell-systems/btar/internal/runner"
)

// DefaultTimeout bounds a single fix run.
const DefaultTimeout = 2 * time.Minute

// UnknownFiles is FilesModified for tools that do not report a count.
const UnknownFiles = -1

// Result is the outcome of one auto-fix run.
type Result struct {
	Language      lang.Language `json:"language" yaml:"language"`
	Tool          string        `json:"tool" yaml:"tool"`
	Success       bool          `json:"success" yaml:"success"`
	FilesModified int           `json:"filesModified" yaml:"files_modified"`
	Message       string        `json:"message" yaml:"message"`
}

// output is what a fix parser sees of a tool run.
type output struct {
	stdout   string
	stderr   string
	exitCode int
}

type tool struct {
	name    string
	command []string
	parse   func(out output) Result
}

var tools = map[lang.Language]tool{
	lang.TypeScript: {"eslint", []string{"npx", "eslint", ".", "--fix"}, parseEslint},
	lang.JavaScript: {"eslint", []string{"npx", "eslint", ".", "--fix"}, parseEslint},
	lang.Python:     {"ruff", []string{"ruff", "check", ".", "--fix"}, parseRuff},
	lang.Go:         {"gofmt", []string{"gofmt", "-w", "."}, exitOnly("gofmt")},
	lang.Java:       {"google-java-format", []string{"google-java-format", "--replace", "--glob", "**/*.java"}, exitOnly("google-java-format")},
	lang.Swift:      {"swiftformat", []string{"swiftformat", "."}, parseSwiftformat},
	lang.Kotlin:     {"ktlint", []string{"ktlint", "--format"}, exitOnly("ktlint")},
	lang.Ruby:       {"rubocop", []string{"rubocop", "--autocorrect"}, parseRubocop},
	lang.PHP:        {"php-cs-fixer", []string{"php-cs-fixer", "fix", "."}, parsePHPCSFixer},
}

// Command returns the printable fix command for a language, or "" if the
// language has no fixer.
func Command(l lang.Language) string {
	t, ok := tools[l]
	if !ok {
		return ""
	}
	return strings.Join(t.command, " ")
}

// Tool returns the fixer name for a language.
func Tool(l lang.Language) string {
	return tools[l].name
}

// Fixer runs auto-fix tools through a runner.
type Fixer struct {
	runner  runner.Runner
	timeout time.Duration
}

// New returns a Fixer. A zero timeout uses DefaultTimeout.
func New(r runner.Runner, timeout time.Duration) *Fixer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Fixer{runner: r, timeout: timeout}
}

// Fix runs the auto-fix tool for l in dir.
func (f *Fixer) Fix(ctx context.Context, dir string, l lang.Language) Result {
	t, ok := tools[l]
	if !ok {
		return Result{Language: l, Message: fmt.Sprintf("no auto-fix tool for %s", l)}
	}

	res := f.runner.Run(ctx, runner.Options{Command: t.command, Dir: dir, Timeout: f.timeout})
	log.WithFields(log.Fields{"lang": l, "tool": t.name, "exit": res.ExitCode}).Debug("fix finished")

	var r Result
	switch {
	case res.NotFound():
		r = Result{Tool: t.name, Message: fmt.Sprintf("%s not found. Install it to enable auto-fix.", t.name)}
	case res.TimedOut:
		r = Result{Tool: t.name, Message: fmt.Sprintf("%s timed out", t.name)}
	default:
		r = t.parse(output{stdout: res.Stdout, stderr: res.Stderr, exitCode: res.ExitCode})
		r.Tool = t.name
	}
	r.Language = l
	return r
}

// FixAll runs the fixers for each language in order.
func (f *Fixer) FixAll(ctx context.Context, dir string, languages []lang.Language) []Result {
	results := make([]Result, 0, len(languages))
	for _, l := range languages {
		results = append(results, f.Fix(ctx, dir, l))
	}
	return results
}

// ---------------------------------------------------------------------------
// Output parsers
// ---------------------------------------------------------------------------

var (
	ruffFixedRe        = regexp.MustCompile(`(?i)Fixed (\d+) errors?`)
	ruffFilesRe        = regexp.MustCompile(`(?i)in (\d+) files?`)
	rubocopCorrectedRe = regexp.MustCompile(`(?i)(\d+) offenses? corrected`)
	rubocopFilesRe     = regexp.MustCompile(`(?i)(\d+) files? inspected`)
)

func failure(out output, fallback string) Result {
	msg := strings.TrimSpace(out.stderr)
	if msg == "" {
		msg = fallback
	}
	return Result{Message: msg}
}

// exitOnly is for tools whose only signal is the exit code.
func exitOnly(name string) func(output) Result {
	return func(out output) Result {
		if out.exitCode == 0 {
			return Result{Success: true, FilesModified: UnknownFiles, Message: name + " completed successfully"}
		}
		return failure(out, name+" failed")
	}
}

// parseEslint treats exit 1 as a completed run with unfixable problems left.
func parseEslint(out output) Result {
	switch out.exitCode {
	case 0:
		return Result{Success: true, FilesModified: UnknownFiles, Message: "ESLint fix completed successfully"}
	case 1:
		return Result{Success: true, FilesModified: UnknownFiles, Message: "ESLint fix completed with remaining unfixable issues"}
	}
	return failure(out, "ESLint fix failed")
}

func parseRuff(out output) Result {
	text := out.stdout + out.stderr
	fixed := ruffFixedRe.FindStringSubmatch(text)
	if out.exitCode != 0 && fixed == nil {
		return failure(out, "Ruff fix failed")
	}
	r := Result{Success: true, FilesModified: firstInt(ruffFilesRe, text), Message: "Ruff fix completed"}
	if fixed != nil {
		r.Message = fmt.Sprintf("Ruff fixed %s errors", fixed[1])
	}
	return r
}

func parseRubocop(out output) Result {
	corrected := rubocopCorrectedRe.FindStringSubmatch(out.stdout)
	if out.exitCode != 0 && corrected == nil {
		msg := strings.TrimSpace(out.stderr)
		if msg == "" {
			msg = strings.TrimSpace(out.stdout)
		}
		if msg == "" {
			msg = "RuboCop auto-correct failed"
		}
		return Result{Message: msg}
	}
	r := Result{Success: true, FilesModified: firstInt(rubocopFilesRe, out.stdout), Message: "RuboCop auto-correct completed"}
	if corrected != nil {
		r.Message = fmt.Sprintf("RuboCop corrected %s offenses", corrected[1])
	}
	return r
}

// parseSwiftformat counts the file paths it prints.
func parseSwiftformat(out output) Result {
	if out.exitCode != 0 {
		return failure(out, "SwiftFormat failed")
	}
	n := countLines(out.stdout, func(l string) bool { return l != "" })
	return Result{Success: true, FilesModified: orUnknown(n), Message: "SwiftFormat completed successfully"}
}

// parsePHPCSFixer counts the PHP files it lists.
func parsePHPCSFixer(out output) Result {
	if out.exitCode != 0 {
		return failure(out, "PHP-CS-Fixer failed")
	}
	n := countLines(out.stdout, func(l string) bool { return strings.Contains(l, ".php") })
	if n == 0 {
		return Result{Success: true, FilesModified: UnknownFiles, Message: "PHP-CS-Fixer completed"}
	}
	return Result{Success: true, FilesModified: n, Message: fmt.Sprintf("PHP-CS-Fixer fixed %d files", n)}
}

func firstInt(re *regexp.Regexp, text string) int {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return UnknownFiles
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return UnknownFiles
	}
	return n
}

func countLines(text string, keep func(string) bool) int {
	var n int
	for _, l := range strings.Split(text, "\n") {
		if keep(strings.TrimSpace(l)) {
			n++
		}
	}
	return n
}

func orUnknown(n int) int {
	if n == 0 {
		return UnknownFiles
	}
	return n
}

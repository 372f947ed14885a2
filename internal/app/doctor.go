package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/mod/semver"

	"github.com/blackwell-systems/btar/internal/fixer"
	"github.com/blackwell-systems/btar/internal/lang"
	"github.com/blackwell-systems/btar/internal/metrics"
	"github.com/blackwell-systems/btar/internal/output"
	"github.com/blackwell-systems/btar/internal/ratchet"
	"github.com/blackwell-systems/btar/internal/runner"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor [directory]",
	Short: "Check that every tool btar needs is installed",
	Long: `For each configured language, check that the type checker, linter,
coverage tool and auto-fixer are on PATH and, where btar depends on a
particular output format, that the installed version is supported. Prints a
pass/fail line for each check and a summary of how many checks passed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

// lookPath is exec.LookPath; tests replace it.
var lookPath = exec.LookPath

// doctorCheck holds the result of a single health check.
type doctorCheck struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Message string `json:"message"`
}

// doctorOutput is the JSON-serializable result of the doctor command.
type doctorOutput struct {
	Checks      []doctorCheck `json:"checks"`
	PassedCount int           `json:"passed"`
	TotalCount  int           `json:"total"`
}

func runDoctor(cmd *cobra.Command, args []string) error {
	s, err := newSession(args)
	if err != nil {
		return err
	}

	var checks []doctorCheck
	checks = append(checks, checkConfigFile(s.cfg.File))
	checks = append(checks, checkBaseline(ratchet.New(s.dir, s.cfg.Ratchet.File)))

	detected, err := s.languages()
	if err != nil {
		checks = append(checks, doctorCheck{Name: "Languages", Message: err.Error()})
	} else {
		checks = append(checks, doctorCheck{Name: "Languages", Passed: true, Message: joinLanguages(detected)})
		r := newRunner()
		for _, d := range detected {
			checks = append(checks, checkTools(cmd.Context(), r, s.dir, d, s.cfg.Timeouts.Default)...)
		}
	}

	passed := 0
	for _, c := range checks {
		if c.Passed {
			passed++
		}
	}

	out := cmd.OutOrStdout()
	if flagJSON {
		return writeStructured(out, formatJSON, doctorOutput{
			Checks:      checks,
			PassedCount: passed,
			TotalCount:  len(checks),
		})
	}

	_, _ = fmt.Fprintln(out, output.Section("Doctor"))
	_, _ = fmt.Fprintln(out)
	for _, c := range checks {
		renderDoctorCheck(out, c)
	}
	_, _ = fmt.Fprintln(out)

	summary := fmt.Sprintf("%d/%d checks passed", passed, len(checks))
	if passed == len(checks) {
		_, _ = fmt.Fprintf(out, " %s\n\n", output.StyleSuccess.Render(summary))
	} else {
		_, _ = fmt.Fprintf(out, " %s\n\n", output.StyleWarning.Render(summary))
	}
	return nil
}

// renderDoctorCheck prints a single check result line.
func renderDoctorCheck(w io.Writer, c doctorCheck) {
	indicator := output.StyleSuccess.Render(output.SymbolSuccess)
	if !c.Passed {
		indicator = output.StyleWarning.Render(output.SymbolError)
	}
	label := output.StyleBold.Render(c.Name)
	detail := output.StyleMuted.Render(c.Message)
	_, _ = fmt.Fprintf(w, "  %s  %-30s %s\n", indicator, label, detail)
}

func checkConfigFile(path string) doctorCheck {
	if path == "" {
		return doctorCheck{Name: "Config file", Passed: true, Message: "none, using defaults"}
	}
	return doctorCheck{Name: "Config file", Passed: true, Message: path}
}

// checkBaseline passes without a baseline; only an unreadable one fails.
func checkBaseline(b *ratchet.Store) doctorCheck {
	if _, err := os.Stat(b.Path()); err != nil {
		return doctorCheck{Name: "Baseline", Passed: true, Message: "not saved yet"}
	}
	st, ok := b.Load()
	if !ok {
		return doctorCheck{Name: "Baseline", Message: fmt.Sprintf("%s is not a valid baseline", b.Path())}
	}
	return doctorCheck{Name: "Baseline", Passed: true, Message: fmt.Sprintf("score %d saved %s", st.Score, st.Timestamp)}
}

// checkTools checks every tool a language needs, once per executable.
func checkTools(ctx context.Context, r runner.Runner, dir string, d lang.Detected, timeout time.Duration) []doctorCheck {
	var checks []doctorCheck
	seen := make(map[string]bool)

	profiles := metrics.Profiles(dir, d)
	if cmd := fixer.Command(d.Language); cmd != "" {
		profiles = append(profiles, metrics.Profile{Tool: fixer.Tool(d.Language), Command: strings.Fields(cmd)})
	}

	for _, p := range profiles {
		exe := p.Executable()
		if exe == "" || seen[p.Tool+"\x00"+exe] {
			continue
		}
		seen[p.Tool+"\x00"+exe] = true
		checks = append(checks, checkTool(ctx, r, dir, d.Language, p, timeout))
	}
	return checks
}

func checkTool(ctx context.Context, r runner.Runner, dir string, l lang.Language, p metrics.Profile, timeout time.Duration) doctorCheck {
	name := fmt.Sprintf("%s: %s", l, p.Tool)
	exe := p.Executable()

	if strings.HasPrefix(exe, "./") {
		if _, err := os.Stat(filepath.Join(dir, exe)); err != nil {
			return doctorCheck{Name: name, Message: fmt.Sprintf("%s not found in %s", exe, dir)}
		}
	} else if _, err := lookPath(exe); err != nil {
		return doctorCheck{Name: name, Message: fmt.Sprintf("%s not found on PATH", exe)}
	}

	if len(p.VersionCommand) == 0 {
		return doctorCheck{Name: name, Passed: true, Message: exe}
	}

	res := r.Run(ctx, runner.Options{Command: p.VersionCommand, Dir: dir, Timeout: timeout})
	version := parseVersion(res.Stdout + "\n" + res.Stderr)
	if version == "" {
		// Installed but silent about its version; only pinned tools care.
		if p.MinVersion == "" && p.BelowVersion == "" {
			return doctorCheck{Name: name, Passed: true, Message: exe}
		}
		return doctorCheck{Name: name, Message: "could not determine version"}
	}

	if msg, ok := versionSupported(version, p.MinVersion, p.BelowVersion); !ok {
		return doctorCheck{Name: name, Message: msg}
	}
	return doctorCheck{Name: name, Passed: true, Message: version}
}

var versionRe = regexp.MustCompile(`(\d+)\.(\d+)(?:\.(\d+))?`)

// parseVersion extracts the first dotted version in text as a semver
// string, e.g. "golangci-lint has version 1.55.2 built..." -> "v1.55.2".
func parseVersion(text string) string {
	m := versionRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	v := "v" + m[1] + "." + m[2]
	if m[3] != "" {
		v += "." + m[3]
	}
	if !semver.IsValid(v) {
		return ""
	}
	return v
}

// versionSupported checks min <= version < below; empty bounds are open.
func versionSupported(version, minVersion, belowVersion string) (string, bool) {
	if minVersion != "" && semver.Compare(version, minVersion) < 0 {
		return fmt.Sprintf("%s is older than the supported %s", version, minVersion), false
	}
	if belowVersion != "" && semver.Compare(version, belowVersion) >= 0 {
		return fmt.Sprintf("%s is not supported, need below %s", version, belowVersion), false
	}
	return "", true
}

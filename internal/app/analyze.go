package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/btar/internal/lang"
	"github.com/blackwell-systems/btar/internal/metrics"
	"github.com/blackwell-systems/btar/internal/output"
	"github.com/blackwell-systems/btar/internal/ratchet"
	"github.com/blackwell-systems/btar/internal/scoring"
	"github.com/blackwell-systems/btar/internal/store"
	"github.com/blackwell-systems/btar/internal/suggest"
)

var (
	analyzeRatchet      bool
	analyzeSaveBaseline bool
	analyzeRecord       bool
	analyzeFormat       string
)

// errRegression makes the command exit nonzero after the report is printed.
var errRegression = errors.New("score regressed below the baseline")

var analyzeCmd = &cobra.Command{
	Use:   "analyze [directory]",
	Short: "Measure, score and recommend",
	Long: `Run the type checker, linter and coverage tool of every configured
language, compute the 0-100 score and print prioritized recommendations.

With --ratchet the command fails when the score is below the saved baseline.
With --save-baseline the new score becomes the baseline.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeRatchet, "ratchet", false, "Fail if the score is below the saved baseline")
	analyzeCmd.Flags().BoolVar(&analyzeSaveBaseline, "save-baseline", false, "Save the score as the new baseline")
	analyzeCmd.Flags().BoolVar(&analyzeRecord, "record", false, "Record the run in the history database")
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", formatText, "Output format: text, json or yaml")
	rootCmd.AddCommand(analyzeCmd)
}

// analysis is the full result of one analyze run.
type analysis struct {
	Directory       string                   `json:"directory" yaml:"directory"`
	Languages       []lang.Detected          `json:"languages" yaml:"languages"`
	Metrics         metrics.Metrics          `json:"metrics" yaml:"metrics"`
	Summary         metrics.Summary          `json:"summary" yaml:"summary"`
	Score           scoring.Result           `json:"score" yaml:"score"`
	Recommendations []suggest.Recommendation `json:"recommendations" yaml:"recommendations"`
	Baseline        *ratchet.State           `json:"baseline,omitempty" yaml:"baseline,omitempty"`
	Ratchet         *ratchet.Check           `json:"ratchet,omitempty" yaml:"ratchet,omitempty"`
	RunID           string                   `json:"runId,omitempty" yaml:"run_id,omitempty"`
}

// measure runs every tool and derives the score and recommendations.
func (s *session) measure(ctx context.Context, detected []lang.Detected, progress *metrics.Progress) *analysis {
	m := metrics.NewMeasurer(newRunner(), s.cfg.Timeouts.Measure())
	report := m.RunAll(ctx, s.dir, detected, progress)
	score := scoring.Compute(report.Summary)

	log.WithFields(log.Fields{
		"score":          score.Score,
		"interpretation": score.Interpretation,
		"failed":         len(report.Failed()),
	}).Debug("analysis complete")

	return &analysis{
		Directory:       s.dir,
		Languages:       detected,
		Metrics:         report.Metrics,
		Summary:         report.Summary,
		Score:           score,
		Recommendations: suggest.Generate(score, report),
	}
}

func (a *analysis) report() metrics.Report {
	return metrics.Report{
		Languages: lang.Names(a.Languages),
		Metrics:   a.Metrics,
		Summary:   a.Summary,
	}
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	format, err := resolveFormat(analyzeFormat)
	if err != nil {
		return err
	}
	s, err := newSession(args)
	if err != nil {
		return err
	}
	detected, err := s.languages()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	rep := output.NewReporter(out, cmd.ErrOrStderr(), format != formatText)
	rep.Start(fmt.Sprintf("Analyzing %s (%s)", s.dir, joinLanguages(detected)))
	progress := rep.Progress()

	a := s.measure(cmd.Context(), detected, &progress)

	baseline := ratchet.New(s.dir, s.cfg.Ratchet.File)
	if analyzeRatchet {
		if st, ok := baseline.Load(); ok {
			check := ratchet.CheckRegression(a.Score, st)
			a.Baseline = &st
			a.Ratchet = &check
		} else {
			log.WithField("path", baseline.Path()).Info("no baseline, ratchet check skipped")
		}
	}

	if analyzeRecord || s.cfg.History.Enabled {
		id, err := s.record(a)
		if err != nil {
			return err
		}
		a.RunID = id
	}

	if format == formatText {
		renderAnalysis(out, a, s.cfg.Output.Width)
	} else if err := writeStructured(out, format, a); err != nil {
		return err
	}

	if a.Ratchet != nil && !a.Ratchet.Passed {
		return errRegression
	}

	if analyzeSaveBaseline {
		st, err := baseline.Save(a.Score)
		if err != nil {
			return err
		}
		rep.Success(fmt.Sprintf("Baseline saved: %d (%s)", st.Score, baseline.Path()))
	}
	return nil
}

// record stores the run in the history database and returns its ID.
func (s *session) record(a *analysis) (string, error) {
	db, err := store.Open(s.cfg.History.DBPath)
	if err != nil {
		return "", fmt.Errorf("opening history database: %w", err)
	}
	defer func() { _ = db.Close() }()

	run := store.NewRun(s.dir, appVersion, a.Score, a.report(), a.Recommendations)
	if err := db.RecordRun(run); err != nil {
		return "", fmt.Errorf("recording run: %w", err)
	}
	log.WithField("id", run.ID).Debug("run recorded")
	return run.ID, nil
}

func joinLanguages(detected []lang.Detected) string {
	names := make([]string, 0, len(detected))
	for _, d := range detected {
		name := string(d.Language)
		if d.Android {
			name += ":android"
		} else if d.BuildSystem != lang.DefaultBuildSystem(d.Language) {
			name += ":" + string(d.BuildSystem)
		}
		names = append(names, name)
	}
	return strings.Join(names, ", ")
}

func renderAnalysis(w io.Writer, a *analysis, width int) {
	_, _ = fmt.Fprintln(w, output.Section("Metrics"))
	_, _ = fmt.Fprintln(w)

	tbl := output.NewTable("Language", "Type errors", "Lint errors", "Coverage")
	for _, d := range a.Languages {
		l := d.Language
		tbl.AddRow(string(l),
			cell(a.Metrics.TypeStrictness[l]),
			cell(a.Metrics.LintErrors[l]),
			cell(a.Metrics.Coverage[l]),
		)
	}
	tbl.Fprint(w)

	_, _ = fmt.Fprintln(w, output.Section("Score"))
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintf(w, " %s  %s\n\n", output.ScoreBar(a.Score.Score, 20),
		output.ScoreStyle(a.Score.Score).Render(string(a.Score.Interpretation)))
	b := a.Score.Breakdown
	_, _ = fmt.Fprintf(w, "   %s %2d/%d\n", output.StyleLabel.Render("Type strictness"), b.TypeStrictness, scoring.MaxTypeStrictness)
	_, _ = fmt.Fprintf(w, "   %s %2d/%d\n", output.StyleLabel.Render("Lint errors"), b.LintErrors, scoring.MaxLintErrors)
	_, _ = fmt.Fprintf(w, "   %s %2d/%d\n", output.StyleLabel.Render("Coverage"), b.Coverage, scoring.MaxCoverage)

	if a.Ratchet != nil {
		style := output.StyleSuccess
		if !a.Ratchet.Passed {
			style = output.StyleError
		}
		_, _ = fmt.Fprintf(w, "\n %s\n", style.Render(a.Ratchet.Message))
	}

	renderRecommendations(w, a.Recommendations, width)
}

func cell(r metrics.Result) string {
	if r.Tool == "" {
		return "-"
	}
	if !r.Usable() {
		return output.StyleError.Render("n/a") + " " + output.StyleMuted.Render("("+r.Tool+")")
	}
	return output.FormatValue(r) + " " + output.StyleMuted.Render("("+r.Tool+")")
}

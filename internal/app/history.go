package app

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/btar/internal/output"
	"github.com/blackwell-systems/btar/internal/store"
)

var (
	historyLimit   int
	historyCompare int
	historyPrune   int
)

var historyCmd = &cobra.Command{
	Use:   "history [directory]",
	Short: "Show recorded scores over time",
	Long: `List the runs recorded with 'btar analyze --record' (or history.enabled
in the config) for a directory, newest first, with the change from the run
before each one. The latest run is then compared dimension by dimension
against the Nth previous run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "Number of runs to list (0 = all)")
	historyCmd.Flags().IntVar(&historyCompare, "compare", 1, "Compare the latest run against the Nth previous run")
	historyCmd.Flags().IntVar(&historyPrune, "prune", 0, "Delete all but the N most recent runs before listing")
	rootCmd.AddCommand(historyCmd)
}

// historyOutput is the JSON-serializable result of the history command.
type historyOutput struct {
	Runs []store.Run    `json:"runs"`
	Diff *store.RunDiff `json:"diff,omitempty"`
}

func runHistory(cmd *cobra.Command, args []string) error {
	if historyCompare < 1 {
		return fmt.Errorf("--compare must be at least 1")
	}
	s, err := newSession(args)
	if err != nil {
		return err
	}

	db, err := store.Open(s.cfg.History.DBPath)
	if err != nil {
		return fmt.Errorf("opening history database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if historyPrune > 0 {
		if _, err := db.DeleteRuns(s.dir, historyPrune); err != nil {
			return fmt.Errorf("pruning history: %w", err)
		}
	}

	runs, err := db.ListRuns(s.dir, historyLimit)
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}

	var diff *store.RunDiff
	if len(runs) > 0 {
		latest, err := db.RunN(s.dir, 1)
		if err != nil {
			return err
		}
		prev, err := db.RunN(s.dir, historyCompare+1)
		if err != nil {
			return err
		}
		if latest != nil && prev != nil {
			diff = store.Diff(prev, latest)
		}
	}

	out := cmd.OutOrStdout()
	if flagJSON {
		if runs == nil {
			runs = []store.Run{}
		}
		return writeStructured(out, formatJSON, historyOutput{Runs: runs, Diff: diff})
	}

	renderHistory(out, s.dir, runs, diff)
	return nil
}

func renderHistory(w io.Writer, dir string, runs []store.Run, diff *store.RunDiff) {
	_, _ = fmt.Fprintln(w, output.Section("History: "+dir))
	_, _ = fmt.Fprintln(w)

	if len(runs) == 0 {
		_, _ = fmt.Fprintln(w, " No runs recorded. Use 'btar analyze --record' to start tracking.")
		return
	}

	tbl := output.NewTable("When", "Score", "Band", "Trend", "Version")
	for i, r := range runs {
		trend := ""
		if i+1 < len(runs) {
			trend = output.TrendArrow(r.Score - runs[i+1].Score)
		}
		tbl.AddRow(
			r.TakenAt.Local().Format("2006-01-02 15:04"),
			output.ScoreStyle(r.Score).Render(fmt.Sprint(r.Score)),
			string(r.Interpretation),
			trend,
			r.Version,
		)
	}
	tbl.Fprint(w)

	if diff == nil {
		return
	}

	_, _ = fmt.Fprintf(w, "\n Latest vs %s\n\n", diff.Previous.TakenAt.Local().Format("2006-01-02 15:04"))
	dt := output.NewTable("Dimension", "Previous", "Current", "Trend")
	for _, d := range diff.Deltas {
		dt.AddRow(d.Name, fmt.Sprint(d.Previous), fmt.Sprint(d.Current), output.TrendArrow(d.Delta))
	}
	dt.Fprint(w)
}

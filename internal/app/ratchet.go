package app

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/btar/internal/output"
	"github.com/blackwell-systems/btar/internal/ratchet"
)

var ratchetCmd = &cobra.Command{
	Use:   "ratchet",
	Short: "Inspect and manage the score baseline",
	Long: `The baseline is a small JSON file (.btar-score by default) holding the
last saved score. 'btar analyze --ratchet' fails when the score drops below it.`,
}

var ratchetShowCmd = &cobra.Command{
	Use:   "show [directory]",
	Short: "Print the saved baseline",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRatchetShow,
}

var ratchetSaveCmd = &cobra.Command{
	Use:   "save [directory]",
	Short: "Measure the directory and save its score as the baseline",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRatchetSave,
}

var ratchetSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schema of the baseline file",
	Args:  cobra.NoArgs,
	RunE:  runRatchetSchema,
}

func init() {
	ratchetCmd.AddCommand(ratchetShowCmd, ratchetSaveCmd, ratchetSchemaCmd)
	rootCmd.AddCommand(ratchetCmd)
}

func runRatchetShow(cmd *cobra.Command, args []string) error {
	s, err := newSession(args)
	if err != nil {
		return err
	}
	baseline := ratchet.New(s.dir, s.cfg.Ratchet.File)
	st, ok := baseline.Load()

	out := cmd.OutOrStdout()
	if flagJSON {
		if !ok {
			return writeStructured(out, formatJSON, nil)
		}
		return writeStructured(out, formatJSON, st)
	}

	if !ok {
		_, _ = fmt.Fprintf(out, " No baseline at %s. Run 'btar ratchet save' to create one.\n", baseline.Path())
		return nil
	}
	_, _ = fmt.Fprintf(out, " Baseline %s  saved %s\n", output.ScoreBar(st.Score, 20), st.Timestamp)
	_, _ = fmt.Fprintf(out, "   type strictness %d, lint errors %d, coverage %d\n",
		st.Breakdown.TypeStrictness, st.Breakdown.LintErrors, st.Breakdown.Coverage)
	return nil
}

func runRatchetSave(cmd *cobra.Command, args []string) error {
	s, err := newSession(args)
	if err != nil {
		return err
	}
	detected, err := s.languages()
	if err != nil {
		return err
	}

	a := s.measure(cmd.Context(), detected, nil)
	baseline := ratchet.New(s.dir, s.cfg.Ratchet.File)
	st, err := baseline.Save(a.Score)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if flagJSON {
		return writeStructured(out, formatJSON, st)
	}
	_, _ = fmt.Fprintf(out, " %s Baseline saved: %d (%s)\n", output.StyleSuccess.Render(output.SymbolSuccess), st.Score, baseline.Path())
	return nil
}

func runRatchetSchema(cmd *cobra.Command, args []string) error {
	data, err := json.MarshalIndent(ratchet.Schema(), "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}

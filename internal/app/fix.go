package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/btar/internal/fixer"
	"github.com/blackwell-systems/btar/internal/lang"
	"github.com/blackwell-systems/btar/internal/output"
)

var fixCmd = &cobra.Command{
	Use:   "fix [directory]",
	Short: "Run each language's auto-fixer",
	Long: `Run the auto-fix tool of every configured language (eslint --fix,
ruff --fix, gofmt -w, rubocop --autocorrect, ...). Restrict the languages
with --lang. Exits nonzero if any fixer fails.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFix,
}

func init() {
	rootCmd.AddCommand(fixCmd)
}

func runFix(cmd *cobra.Command, args []string) error {
	s, err := newSession(args)
	if err != nil {
		return err
	}
	detected, err := s.languages()
	if err != nil {
		return err
	}

	f := fixer.New(newRunner(), s.cfg.Timeouts.Fix)
	results := f.FixAll(cmd.Context(), s.dir, lang.Names(detected))

	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
		}
	}

	out := cmd.OutOrStdout()
	if flagJSON {
		if err := writeStructured(out, formatJSON, results); err != nil {
			return err
		}
	} else {
		_, _ = fmt.Fprintln(out, output.Section("Fix"))
		_, _ = fmt.Fprintln(out)
		tbl := output.NewTable("", "Language", "Tool", "Files", "Message")
		for _, r := range results {
			mark := output.StyleSuccess.Render(output.SymbolSuccess)
			if !r.Success {
				mark = output.StyleError.Render(output.SymbolError)
			}
			files := "?"
			if r.FilesModified != fixer.UnknownFiles {
				files = fmt.Sprint(r.FilesModified)
			}
			tbl.AddRow(mark, string(r.Language), r.Tool, files, r.Message)
		}
		tbl.Fprint(out)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d fixers failed", failed, len(results))
	}
	return nil
}

package app

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/btar/internal/output"
	"github.com/blackwell-systems/btar/internal/suggest"
)

var (
	suggestTier     string
	suggestCategory string
	suggestLimit    int
	suggestFormat   string
)

var suggestCmd = &cobra.Command{
	Use:   "suggest [directory]",
	Short: "Print prioritized recommendations",
	Long: `Measure the directory and print only the recommendations, ordered by
tier (P0 first) and then impact. Use --tier to hide lower priorities.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSuggest,
}

func init() {
	suggestCmd.Flags().StringVar(&suggestTier, "tier", "", "Show only this tier and above (P0, P1, P2, P3)")
	suggestCmd.Flags().StringVar(&suggestCategory, "category", "", "Filter by category (type-strictness, lint-errors, test-coverage, general)")
	suggestCmd.Flags().IntVar(&suggestLimit, "limit", 0, "Maximum number of recommendations to show")
	suggestCmd.Flags().StringVar(&suggestFormat, "format", formatText, "Output format: text, json or yaml")
	rootCmd.AddCommand(suggestCmd)
}

func runSuggest(cmd *cobra.Command, args []string) error {
	format, err := resolveFormat(suggestFormat)
	if err != nil {
		return err
	}
	filter := suggest.Filter{
		MaxTier:  suggest.Tier(suggestTier),
		Category: suggest.Category(suggestCategory),
		Limit:    suggestLimit,
	}
	if filter.MaxTier != "" && !suggest.ValidTier(filter.MaxTier) {
		return fmt.Errorf("unknown tier %q", suggestTier)
	}

	s, err := newSession(args)
	if err != nil {
		return err
	}
	detected, err := s.languages()
	if err != nil {
		return err
	}

	a := s.measure(cmd.Context(), detected, nil)
	recs := filter.Apply(a.Recommendations)

	out := cmd.OutOrStdout()
	if format != formatText {
		if recs == nil {
			recs = []suggest.Recommendation{}
		}
		return writeStructured(out, format, recs)
	}

	_, _ = fmt.Fprintf(out, " Score %d (%s)\n", a.Score.Score, a.Score.Interpretation)
	renderRecommendations(out, recs, s.cfg.Output.Width)
	return nil
}

var tierStyles = map[suggest.Tier]*lipgloss.Style{
	suggest.P0: &output.StyleError,
	suggest.P1: &output.StyleWarning,
	suggest.P2: &output.StyleHeader,
	suggest.P3: &output.StyleMuted,
}

func renderRecommendations(w io.Writer, recs []suggest.Recommendation, width int) {
	_, _ = fmt.Fprintln(w, output.Section("Recommendations"))
	_, _ = fmt.Fprintln(w)

	if len(recs) == 0 {
		_, _ = fmt.Fprintln(w, " No recommendations match.")
		return
	}

	wrap := lipgloss.NewStyle()
	if width > 12 {
		wrap = wrap.Width(width - 8)
	}

	for _, r := range recs {
		tier := string(r.Tier)
		if style, ok := tierStyles[r.Tier]; ok {
			tier = style.Render(tier)
		}
		_, _ = fmt.Fprintf(w, "  %s  %s %s\n", tier,
			output.StyleBold.Render(string(r.Category)),
			output.StyleMuted.Render("("+string(r.Impact)+" impact)"))
		_, _ = fmt.Fprintf(w, "%s\n", indent(wrap.Render(r.Message), "      "))
		if r.Tool != "" {
			_, _ = fmt.Fprintf(w, "      %s %s\n", output.SymbolProgress, output.StyleMuted.Render(r.Tool))
		}
	}
	_, _ = fmt.Fprintln(w)
}

func indent(text, prefix string) string {
	return prefix + strings.ReplaceAll(text, "\n", "\n"+prefix)
}

package app

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/btar/internal/mcp"
	"github.com/blackwell-systems/btar/internal/ratchet"
	"github.com/blackwell-systems/btar/internal/store"
	"github.com/blackwell-systems/btar/internal/suggest"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run an MCP stdio server exposing analysis to editors and agents",
	Long: `Start a Model Context Protocol stdio server. Each tool takes the project
directory as an argument and loads that project's .btar.yaml:

  analyze       Metrics, score and recommendations
  suggest       Recommendations filtered by tier, category and limit
  get_baseline  The saved ratchet baseline
  get_history   Recorded runs, newest first

Register it with an MCP client as:
  {"mcpServers":{"btar":{"command":"btar","args":["mcp"]}}}`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	srv := mcp.NewServer(mcpBackend{}, appVersion)
	return srv.Run(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
}

// mcpBackend serves MCP tool calls with the same sessions the commands use.
type mcpBackend struct{}

func (mcpBackend) analyze(ctx context.Context, dir string, languages []string) (*session, *analysis, error) {
	s, err := newSession([]string{dir})
	if err != nil {
		return nil, nil, err
	}
	detected, err := s.cfg.ResolveLanguages(languages)
	if err != nil {
		return nil, nil, err
	}
	return s, s.measure(ctx, detected, nil), nil
}

func (b mcpBackend) Analyze(ctx context.Context, dir string, languages []string) (any, error) {
	s, a, err := b.analyze(ctx, dir, languages)
	if err != nil {
		return nil, err
	}
	if s.cfg.History.Enabled {
		id, err := s.record(a)
		if err != nil {
			return nil, err
		}
		a.RunID = id
	}
	return a, nil
}

func (b mcpBackend) Suggest(ctx context.Context, dir string, languages []string, f suggest.Filter) ([]suggest.Recommendation, error) {
	_, a, err := b.analyze(ctx, dir, languages)
	if err != nil {
		return nil, err
	}
	return f.Apply(a.Recommendations), nil
}

func (mcpBackend) Baseline(dir string) (*ratchet.State, error) {
	s, err := newSession([]string{dir})
	if err != nil {
		return nil, err
	}
	st, ok := ratchet.New(s.dir, s.cfg.Ratchet.File).Load()
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (mcpBackend) History(dir string, limit int) ([]store.Run, error) {
	s, err := newSession([]string{dir})
	if err != nil {
		return nil, err
	}
	db, err := store.Open(s.cfg.History.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	defer func() { _ = db.Close() }()
	return db.ListRuns(s.dir, limit)
}

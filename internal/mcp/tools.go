package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/blackwell-systems/btar/internal/ratchet"
	"github.com/blackwell-systems/btar/internal/store"
	"github.com/blackwell-systems/btar/internal/suggest"
)

// Backend performs the work behind each tool. The command layer implements it
// so tools resolve directories, config and languages the same way the CLI does.
type Backend interface {
	// Analyze measures dir and returns the full analysis document.
	Analyze(ctx context.Context, dir string, languages []string) (any, error)
	// Suggest measures dir and returns the filtered recommendations.
	Suggest(ctx context.Context, dir string, languages []string, f suggest.Filter) ([]suggest.Recommendation, error)
	// Baseline returns the saved baseline of dir, or nil if there is none.
	Baseline(dir string) (*ratchet.State, error)
	// History returns the recorded runs of dir, newest first.
	History(dir string, limit int) ([]store.Run, error)
}

type analyzeArgs struct {
	Directory string   `json:"directory" jsonschema:"description=Project directory to analyze"`
	Languages []string `json:"languages,omitempty" jsonschema:"description=Languages as lang[:build-system]; defaults to the project config"`
}

type suggestArgs struct {
	Directory string   `json:"directory" jsonschema:"description=Project directory to analyze"`
	Languages []string `json:"languages,omitempty" jsonschema:"description=Languages as lang[:build-system]; defaults to the project config"`
	Tier      string   `json:"tier,omitempty" jsonschema:"enum=P0,enum=P1,enum=P2,enum=P3,description=Show only recommendations at or above this tier"`
	Category  string   `json:"category,omitempty" jsonschema:"enum=type-strictness,enum=lint-errors,enum=test-coverage,enum=general"`
	Limit     int      `json:"limit,omitempty" jsonschema:"minimum=0"`
}

type baselineArgs struct {
	Directory string `json:"directory" jsonschema:"description=Project directory holding the baseline file"`
}

type historyArgs struct {
	Directory string `json:"directory" jsonschema:"description=Project directory whose runs to list"`
	Limit     int    `json:"limit,omitempty" jsonschema:"minimum=0,description=Number of runs or 0 for all"`
}

// baselineResult distinguishes "no baseline" from a zero score.
type baselineResult struct {
	Found    bool           `json:"found"`
	Baseline *ratchet.State `json:"baseline,omitempty"`
}

type historyResult struct {
	Runs []store.Run `json:"runs"`
}

var errNoDirectory = errors.New("directory is required")

// addTools registers the btar tools on s.
func addTools(s *Server) {
	s.registerTool(toolDef{
		Name:        "analyze",
		Description: "Run type checkers, linters and coverage tools on a project and return metrics, the 0-100 score and recommendations.",
		InputSchema: inputSchema(&analyzeArgs{}),
		Handler:     s.handleAnalyze,
	})
	s.registerTool(toolDef{
		Name:        "suggest",
		Description: "Analyze a project and return its prioritized recommendations, optionally filtered by tier and category.",
		InputSchema: inputSchema(&suggestArgs{}),
		Handler:     s.handleSuggest,
	})
	s.registerTool(toolDef{
		Name:        "get_baseline",
		Description: "Return the saved ratchet baseline of a project.",
		InputSchema: inputSchema(&baselineArgs{}),
		Handler:     s.handleBaseline,
	})
	s.registerTool(toolDef{
		Name:        "get_history",
		Description: "Return the recorded score history of a project, newest first.",
		InputSchema: inputSchema(&historyArgs{}),
		Handler:     s.handleHistory,
	})
}

// inputSchema reflects an argument struct into an inline JSON Schema.
func inputSchema(v any) json.RawMessage {
	reflector := jsonschema.Reflector{DoNotReference: true}
	schema := reflector.Reflect(v)
	schema.Version = ""
	data, err := json.Marshal(schema)
	if err != nil {
		panic(fmt.Sprintf("mcp: reflecting input schema: %v", err))
	}
	return data
}

// decode unmarshals tool arguments and checks the directory is set.
func decode(raw json.RawMessage, v any, dir func() string) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	if dir() == "" {
		return errNoDirectory
	}
	return nil
}

func (s *Server) handleAnalyze(ctx context.Context, raw json.RawMessage) (any, error) {
	var args analyzeArgs
	if err := decode(raw, &args, func() string { return args.Directory }); err != nil {
		return nil, err
	}
	return s.backend.Analyze(ctx, args.Directory, args.Languages)
}

func (s *Server) handleSuggest(ctx context.Context, raw json.RawMessage) (any, error) {
	var args suggestArgs
	if err := decode(raw, &args, func() string { return args.Directory }); err != nil {
		return nil, err
	}
	f := suggest.Filter{
		MaxTier:  suggest.Tier(args.Tier),
		Category: suggest.Category(args.Category),
		Limit:    args.Limit,
	}
	if f.MaxTier != "" && !suggest.ValidTier(f.MaxTier) {
		return nil, fmt.Errorf("invalid tier %q: must be P0, P1, P2 or P3", args.Tier)
	}
	recs, err := s.backend.Suggest(ctx, args.Directory, args.Languages, f)
	if err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []suggest.Recommendation{}
	}
	return recs, nil
}

func (s *Server) handleBaseline(_ context.Context, raw json.RawMessage) (any, error) {
	var args baselineArgs
	if err := decode(raw, &args, func() string { return args.Directory }); err != nil {
		return nil, err
	}
	st, err := s.backend.Baseline(args.Directory)
	if err != nil {
		return nil, err
	}
	return baselineResult{Found: st != nil, Baseline: st}, nil
}

func (s *Server) handleHistory(_ context.Context, raw json.RawMessage) (any, error) {
	var args historyArgs
	if err := decode(raw, &args, func() string { return args.Directory }); err != nil {
		return nil, err
	}
	runs, err := s.backend.History(args.Directory, args.Limit)
	if err != nil {
		return nil, err
	}
	if runs == nil {
		runs = []store.Run{}
	}
	return historyResult{Runs: runs}, nil
}

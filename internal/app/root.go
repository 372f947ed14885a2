// Package app contains the Cobra command tree for btar.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/btar/internal/config"
	"github.com/blackwell-systems/btar/internal/lang"
	"github.com/blackwell-systems/btar/internal/output"
	"github.com/blackwell-systems/btar/internal/runner"
)

var appVersion = "dev"

// SetVersion sets the application version (called from main with ldflags value).
func SetVersion(v string) {
	appVersion = v
	rootCmd.Version = v
}

var (
	flagNoColor bool
	flagJSON    bool
	flagVerbose bool
	flagConfig  string
	flagLang    []string
)

// newRunner builds the tool runner. Tests replace it with a fake.
var newRunner = func() runner.Runner { return runner.New() }

var rootCmd = &cobra.Command{
	Use:   "btar",
	Short: "Code quality score and ratchet for polyglot repositories",
	Long: `btar runs each language's type checker, linter and coverage tool,
folds the results into a 0-100 score, and can fail CI when the score drops
below a saved baseline.

Languages come from --lang (e.g. --lang typescript,go,kotlin:android) or the
languages list in .btar.yaml.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging(flagVerbose, "")
		output.SetNoColor(!output.ColorEnabled(os.Stdout, !flagNoColor))
	},
}

// Execute is the entry point called from main.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file path (default: <directory>/.btar.yaml)")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Output as JSON")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringSliceVar(&flagLang, "lang", nil, "Languages to analyze as lang[:build-system], overriding the config")
}

// setupLogging configures logrus on stderr. verbose wins over level.
func setupLogging(verbose bool, level string) {
	log.SetOutput(os.Stderr)
	log.SetFormatter(&log.TextFormatter{DisableTimestamp: true})

	lvl := log.WarnLevel
	if parsed, err := log.ParseLevel(level); err == nil && level != "" {
		lvl = parsed
	}
	if verbose {
		lvl = log.DebugLevel
	}
	log.SetLevel(lvl)
}

// session is the resolved context of one command invocation.
type session struct {
	dir string
	cfg *config.Config
}

// newSession resolves the target directory from args and loads its config.
func newSession(args []string) (*session, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("reading directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", abs)
	}

	cfg, err := config.Load(flagConfig, abs)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	setupLogging(flagVerbose, cfg.Log.Level)
	if !cfg.Output.Color {
		output.SetNoColor(true)
	}
	log.WithFields(log.Fields{"dir": abs, "config": cfg.File}).Debug("session")

	return &session{dir: abs, cfg: cfg}, nil
}

// languages resolves --lang against the configured list.
func (s *session) languages() ([]lang.Detected, error) {
	return s.cfg.ResolveLanguages(flagLang)
}

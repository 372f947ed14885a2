package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/blackwell-systems/btar/internal/lang"
	"github.com/blackwell-systems/btar/internal/metrics"
)

// Config is the top-level btar configuration.
type Config struct {
	Languages []lang.Detected `mapstructure:"-"`
	Timeouts  Timeouts        `mapstructure:"timeouts"`
	Ratchet   Ratchet         `mapstructure:"ratchet"`
	History   History         `mapstructure:"history"`
	Output    Output          `mapstructure:"output"`
	Log       Log             `mapstructure:"log"`

	// File is the config file that was read, empty when only defaults apply.
	File string `mapstructure:"-"`
}

// Timeouts bounds each kind of tool invocation.
type Timeouts struct {
	Default    time.Duration `mapstructure:"default"`
	TypeCheck  time.Duration `mapstructure:"type_check"`
	Lint       time.Duration `mapstructure:"lint"`
	GradleLint time.Duration `mapstructure:"gradle_lint"`
	Coverage   time.Duration `mapstructure:"coverage"`
	Fix        time.Duration `mapstructure:"fix"`
}

// Measure returns the timeouts the measurers use.
func (t Timeouts) Measure() metrics.Timeouts {
	return metrics.Timeouts{
		TypeCheck:  t.TypeCheck,
		Lint:       t.Lint,
		GradleLint: t.GradleLint,
		Coverage:   t.Coverage,
	}
}

// Ratchet configures the baseline file.
type Ratchet struct {
	File string `mapstructure:"file"`
}

// History configures the run history database.
type History struct {
	Enabled bool   `mapstructure:"enabled"`
	DBPath  string `mapstructure:"db_path"`
}

// Output defines output preferences.
type Output struct {
	Color bool `mapstructure:"color"`
	Width int  `mapstructure:"width"`
}

// Log configures logging.
type Log struct {
	Level string `mapstructure:"level"`
}

// expandPath replaces a leading ~ with the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// Load reads configuration from cfgFile, or from .btar.yaml in dir when
// cfgFile is empty, and returns a Config with all defaults applied. A
// missing .btar.yaml is not an error; a missing explicit cfgFile is.
func Load(cfgFile, dir string) (*Config, error) {
	v := viper.New()

	v.SetDefault("timeouts.default", DefaultTimeouts.Default)
	v.SetDefault("timeouts.type_check", DefaultTimeouts.TypeCheck)
	v.SetDefault("timeouts.lint", DefaultTimeouts.Lint)
	v.SetDefault("timeouts.gradle_lint", DefaultTimeouts.GradleLint)
	v.SetDefault("timeouts.coverage", DefaultTimeouts.Coverage)
	v.SetDefault("timeouts.fix", DefaultTimeouts.Fix)
	v.SetDefault("ratchet.file", DefaultRatchet.File)
	v.SetDefault("history.enabled", DefaultHistory.Enabled)
	v.SetDefault("history.db_path", DefaultHistory.DBPath)
	v.SetDefault("output.color", DefaultOutput.Color)
	v.SetDefault("output.width", DefaultOutput.Width)
	v.SetDefault("log.level", DefaultLogLevel)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(expandPath(cfgFile))
	} else {
		v.SetConfigFile(filepath.Join(dir, DefaultConfigFile))
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case cfgFile != "":
			return nil, fmt.Errorf("reading config %s: %w", cfgFile, err)
		case errors.As(err, &notFound), errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	if _, err := os.Stat(cfg.File); err != nil {
		cfg.File = ""
	}

	langs, err := parseLanguages(v.Get("languages"))
	if err != nil {
		return nil, fmt.Errorf("config languages: %w", err)
	}
	cfg.Languages = langs

	if err := cfg.Timeouts.validate(); err != nil {
		return nil, err
	}

	cfg.History.DBPath = expandPath(cfg.History.DBPath)
	return &cfg, nil
}

// minTimeout rejects values such as a bare integer, which decodes as
// nanoseconds.
const minTimeout = time.Second

func (t Timeouts) validate() error {
	named := []struct {
		key string
		d   time.Duration
	}{
		{"default", t.Default},
		{"type_check", t.TypeCheck},
		{"lint", t.Lint},
		{"gradle_lint", t.GradleLint},
		{"coverage", t.Coverage},
		{"fix", t.Fix},
	}
	for _, n := range named {
		if n.d < minTimeout {
			return fmt.Errorf("timeouts.%s must be at least %s, got %s", n.key, minTimeout, n.d)
		}
	}
	return nil
}

// parseLanguages accepts a list of "lang[:qualifier]" strings or
// {language, build_system, android} maps, in any mix.
func parseLanguages(raw any) ([]lang.Detected, error) {
	if raw == nil {
		return nil, nil
	}

	var items []any
	switch v := raw.(type) {
	case []any:
		items = v
	case []string:
		for _, s := range v {
			items = append(items, s)
		}
	case string:
		items = []any{v}
	default:
		return nil, fmt.Errorf("expected a list, got %T", raw)
	}

	var specs []string
	for i, item := range items {
		switch v := item.(type) {
		case string:
			specs = append(specs, v)
		case map[string]any:
			spec, err := mapSpec(v)
			if err != nil {
				return nil, fmt.Errorf("entry %d: %w", i, err)
			}
			specs = append(specs, spec)
		default:
			return nil, fmt.Errorf("entry %d: unsupported type %T", i, item)
		}
	}
	return lang.ParseSpecs(specs)
}

func mapSpec(m map[string]any) (string, error) {
	name, _ := m["language"].(string)
	if name == "" {
		return "", errors.New("missing language")
	}
	if android, _ := m["android"].(bool); android {
		return name + ":android", nil
	}
	if bs, _ := m["build_system"].(string); bs != "" {
		return name + ":" + bs, nil
	}
	return name, nil
}

// ResolveLanguages returns the languages to analyze: the --lang specs when
// given, else the configured list.
func (c *Config) ResolveLanguages(specs []string) ([]lang.Detected, error) {
	if len(specs) > 0 {
		return lang.ParseSpecs(specs)
	}
	if len(c.Languages) == 0 {
		return nil, fmt.Errorf("no languages configured: pass --lang or list languages in %s", DefaultConfigFile)
	}
	return c.Languages, nil
}

// DBPath returns the default path of the history database.
func DBPath() string {
	return expandPath(DefaultHistory.DBPath)
}

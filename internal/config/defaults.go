// Package config provides configuration loading and defaults for btar.
package config

import (
	"github.com/blackwell-systems/btar/internal/fixer"
	"github.com/blackwell-systems/btar/internal/metrics"
	"github.com/blackwell-systems/btar/internal/ratchet"
	"github.com/blackwell-systems/btar/internal/runner"
)

// DefaultConfigFile is the per-project config looked up in the analyzed
// directory.
const DefaultConfigFile = ".btar.yaml"

// DefaultConfigDir is the default location for user-level btar state.
const DefaultConfigDir = "~/.config/btar"

// DefaultDBName is the filename for the history database.
const DefaultDBName = "history.db"

// DefaultLogLevel is used unless --verbose or log.level says otherwise.
const DefaultLogLevel = "warn"

// EnvPrefix prefixes environment overrides, e.g. BTAR_LOG_LEVEL.
const EnvPrefix = "BTAR"

// DefaultTimeouts holds the default tool timeouts.
var DefaultTimeouts = Timeouts{
	Default:    runner.DefaultTimeout,
	TypeCheck:  metrics.DefaultTimeouts.TypeCheck,
	Lint:       metrics.DefaultTimeouts.Lint,
	GradleLint: metrics.DefaultTimeouts.GradleLint,
	Coverage:   metrics.DefaultTimeouts.Coverage,
	Fix:        fixer.DefaultTimeout,
}

// DefaultOutput holds the default output preferences.
var DefaultOutput = Output{
	Color: true,
	Width: 80,
}

// DefaultRatchet keeps the baseline next to the analyzed code.
var DefaultRatchet = Ratchet{File: ratchet.FileName}

// DefaultHistory leaves recording opt-in.
var DefaultHistory = History{Enabled: false, DBPath: DefaultConfigDir + "/" + DefaultDBName}

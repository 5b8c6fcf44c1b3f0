// Package config loads the checker's startup options (§6 "Configuration")
// from a TOML file, in the same spirit as the teacher's detector
// configuration but using github.com/BurntSushi/toml for decoding since
// this module carries its configuration as a file rather than flags.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Verbosity mirrors the §6 "verbose level 0-3" option.
type Verbosity int

const (
	Quiet Verbosity = iota
	Valid
	Noisy
	Noisier
)

// Config holds every option the core consumes at startup.
type Config struct {
	// Verbose is 0-3: quiet/valid/noisy/noisier (§6).
	Verbose Verbosity `toml:"verbose"`

	// UninitializedValue is returned for a read whose rf is the synthetic
	// uninit write.
	UninitializedValue uint64 `toml:"uninitialized_value"`

	// MaxExecutions is the configured number of executions to explore. No
	// package in this module reads it: runner.RunMany takes its execution
	// count as an argument.
	MaxExecutions int `toml:"max_executions"`

	// NoFork disables snapshot/fork between executions, keeping state
	// in-process (the runner's sequential fallback path).
	NoFork bool `toml:"no_fork"`

	// TraceAnalysisPlugins names zero or more post-pass analyses
	// (e.g. "sc-checker", "fence-inferencer") to run after each execution.
	TraceAnalysisPlugins []string `toml:"trace_analysis_plugins"`

	// GCInterval is how many committed actions an execution processes
	// between trace-GC passes (§4.7). Zero disables online GC.
	GCInterval int `toml:"gc_interval"`

	// Workers bounds how many executions the runner explores concurrently.
	Workers int `toml:"workers"`
}

// Default returns the configuration the core uses when no file is
// supplied: quiet, a single in-process worker, uninitialized reads default
// to zero, GC every 1000 actions.
func Default() Config {
	return Config{
		Verbose:       Quiet,
		MaxExecutions: 1,
		GCInterval:    1000,
		Workers:       1,
	}
}

// Load decodes a TOML configuration file, filling in any field the file
// omits with Default()'s value.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return cfg, nil
}

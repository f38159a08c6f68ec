package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Runner mode names accepted by the driver. Inline runs every task
// sequentially in-process, local runs tasks in parallel in-process, and
// hadoop submits streaming jobs to an external cluster.
const (
	RunnerInline = "inline"
	RunnerLocal  = "local"
	RunnerHadoop = "hadoop"
)

// Stock defaults used by Default. The validator also falls back to
// DefaultRunner when the runner is empty.
const (
	DefaultMinSupport    = 4
	DefaultMaxIterations = 100
	DefaultOutputDir     = "."
	DefaultRunner        = RunnerInline
)

// Config is the immutable per-run configuration record. It is assembled
// once from the optional config file plus CLI overrides, validated, and
// then read by the driver; map/reduce tasks receive only the per-job
// settings derived from it (such as the counter's CounterSpec).
type Config struct {
	Project Project
	Mining  Mining
	Runtime Runtime
}

type Project struct {
	Name string
	Root string // artifact root directory; per-run output trees live under it
}

type Mining struct {
	MinSupport      int     // absolute minimum support count (>= 1)
	MinSupportRatio float64 // decimal support in [0,1]; > 0 means "run the converter"
	MaxIterations   int     // cap on Apriori levels
	Clean           bool    // remove prior-run artifacts before starting
}

type Runtime struct {
	Runner     string   // inline, local, or hadoop
	Mappers    int      // parallel map tasks (local runner); 0 = auto-detect
	Partitions int      // reduce partitions (local runner); 0 = auto-detect
	HadoopArgs []string // KEY=VALUE pairs forwarded as -D options
	Owner      string   // job owner forwarded to the hadoop runner
	Debug      bool     // set by --debug; no component reads it
}

// Default returns a Config populated with the stock defaults.
func Default() *Config {
	return &Config{
		Project: Project{
			Name: "fim",
			Root: DefaultOutputDir,
		},
		Mining: Mining{
			MinSupport:    DefaultMinSupport,
			MaxIterations: DefaultMaxIterations,
		},
		Runtime: Runtime{
			Runner: DefaultRunner,
		},
	}
}

// Load reads a TOML config file and merges it over the defaults. A
// missing file is not an error: the defaults are returned so the CLI can
// run with flags alone.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/standardbeagle/fim/internal/config"
	"github.com/standardbeagle/fim/internal/debug"
	"github.com/standardbeagle/fim/internal/mapreduce"
	"github.com/standardbeagle/fim/internal/mining"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/urfave/cli/v2"
)

var Version = "0.3.0"

// loadConfigWithOverrides loads configuration and applies CLI flag overrides
func loadConfigWithOverrides(c *cli.Context) (*config.Config, error) {
	configPath := c.String("config")

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
	}

	if c.IsSet("min-support") {
		if err := applyMinSupport(cfg, c.String("min-support")); err != nil {
			return nil, err
		}
	}
	if runner := c.String("runner"); runner != "" {
		cfg.Runtime.Runner = runner
	}
	if c.IsSet("max-iterations") {
		cfg.Mining.MaxIterations = c.Int("max-iterations")
	}
	if c.Bool("clean") {
		cfg.Mining.Clean = true
	}
	if out := c.String("output"); out != "" {
		cfg.Project.Root = out
	}
	if c.IsSet("mappers") {
		cfg.Runtime.Mappers = c.Int("mappers")
	}
	if c.IsSet("partitions") {
		cfg.Runtime.Partitions = c.Int("partitions")
	}
	if args := c.StringSlice("hadoop-args"); len(args) > 0 {
		cfg.Runtime.HadoopArgs = args
	}
	if owner := c.String("owner"); owner != "" {
		cfg.Runtime.Owner = owner
	}
	if c.Bool("debug") {
		cfg.Runtime.Debug = true
	}

	// Anchor the artifact root so job output lands in one place no
	// matter where tasks run from.
	absRoot, err := filepath.Abs(cfg.Project.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve artifact root %q: %w", cfg.Project.Root, err)
	}
	cfg.Project.Root = absRoot

	return cfg, config.NewValidator().ValidateAndSetDefaults(cfg)
}

// applyMinSupport interprets the --min-support value: a decimal in
// [0, 1] selects the converter job, an integer is used directly.
func applyMinSupport(cfg *config.Config, value string) error {
	if strings.Contains(value, ".") {
		ratio, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid --min-support %q: %w", value, err)
		}
		cfg.Mining.MinSupportRatio = ratio
		cfg.Mining.MinSupport = 0
		return nil
	}

	count, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid --min-support %q: %w", value, err)
	}
	cfg.Mining.MinSupport = count
	cfg.Mining.MinSupportRatio = 0
	return nil
}

// expandInputs resolves the positional arguments, expanding glob
// patterns, and verifies every resulting file exists.
func expandInputs(args []string) ([]string, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("at least one input transaction file is required")
	}

	var inputs []string
	for _, arg := range args {
		matches, err := doublestar.FilepathGlob(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid input pattern %q: %w", arg, err)
		}
		if len(matches) == 0 {
			if _, statErr := os.Stat(arg); statErr != nil {
				return nil, fmt.Errorf("input file does not exist: %s", arg)
			}
			matches = []string{arg}
		}
		inputs = append(inputs, matches...)
	}
	return inputs, nil
}

func runMining(c *cli.Context) error {
	if c.Bool("debug") {
		debug.EnableDebug = "true"
		if logPath, err := debug.InitDebugLogFile(); err == nil {
			defer debug.CloseDebugLog()
			fmt.Fprintf(os.Stderr, "debug log: %s\n", logPath)
		}
	}

	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	inputs, err := expandInputs(c.Args().Slice())
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	runner, err := mapreduce.New(cfg.Runtime.Runner, mapreduce.Options{
		Mappers:    cfg.Runtime.Mappers,
		Partitions: cfg.Runtime.Partitions,
		HadoopArgs: cfg.Runtime.HadoopArgs,
		Owner:      cfg.Runtime.Owner,
	})
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cwd, _ := os.Getwd()
	report := mining.NewReporter(os.Stdout, cwd, 5)
	report.Taskf("Mining frequent itemsets (runner: %s, max iterations: %d)",
		cfg.Runtime.Runner, cfg.Mining.MaxIterations)

	miner := mining.NewMiner(cfg, runner, report)
	if _, err := miner.Run(ctx, inputs); err != nil {
		return cli.Exit(err.Error(), 1)
	}
	return nil
}

// runStreamTask executes a single map/combine/reduce phase over
// stdin/stdout. The hadoop runner invokes the binary this way on the
// cluster; the job configuration arrives through the task environment.
func runStreamTask(c *cli.Context) error {
	var rawConfig json.RawMessage
	if env := os.Getenv(mapreduce.JobConfigEnv); env != "" {
		rawConfig = json.RawMessage(env)
	}

	spec, err := mining.LookupJob(c.String("job"), rawConfig)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	phase := mapreduce.StreamPhase(c.String("phase"))
	if err := mapreduce.RunStreamTask(c.Context, spec, c.Int("step"), phase, os.Stdin, os.Stdout, os.Stderr); err != nil {
		return cli.Exit(err.Error(), 1)
	}
	return nil
}

func main() {
	app := &cli.App{
		Name:                   "fim",
		Usage:                  "Distributed frequent-itemset mining with MapReduce Apriori",
		Version:                Version,
		ArgsUsage:              "<transaction-file>...",
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Config file path",
				Value:   ".fim.toml",
			},
			&cli.StringFlag{
				Name:    "min-support",
				Aliases: []string{"s"},
				Usage:   "Minimum support: an absolute count (e.g. 4) or a decimal fraction of the database (e.g. 0.5)",
			},
			&cli.StringFlag{
				Name:    "runner",
				Aliases: []string{"r"},
				Usage:   "MapReduce runner mode: inline, local, or hadoop",
			},
			&cli.IntFlag{
				Name:  "max-iterations",
				Usage: "Maximum number of Apriori levels to mine",
			},
			&cli.BoolFlag{
				Name:  "clean",
				Usage: "Remove prior-run artifacts before starting",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Artifact root directory (overrides config)",
			},
			&cli.IntFlag{
				Name:   "mappers",
				Usage:  "Parallel map tasks for the local runner (0 = auto-detect)",
				Hidden: true,
			},
			&cli.IntFlag{
				Name:   "partitions",
				Usage:  "Reduce partitions for the local runner (0 = auto-detect)",
				Hidden: true,
			},
			&cli.StringSliceFlag{
				Name:  "hadoop-args",
				Usage: "Additional Hadoop KEY=VALUE options for the hadoop runner (e.g. mapreduce.job.reduces=2)",
			},
			&cli.StringFlag{
				Name:  "owner",
				Usage: "Owner for Hadoop jobs when using the hadoop runner",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging to a log file in the system temp directory (error messages are unchanged)",
			},
		},
		Action: runMining,
		Commands: []*cli.Command{
			{
				Name:   "mr-task",
				Usage:  "Run a single streaming map/combine/reduce phase (internal)",
				Hidden: true,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "job", Required: true},
					&cli.IntFlag{Name: "step"},
					&cli.StringFlag{Name: "phase", Required: true},
				},
				Action: runStreamTask,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

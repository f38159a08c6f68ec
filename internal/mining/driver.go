package mining

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/standardbeagle/fim/internal/config"
	"github.com/standardbeagle/fim/internal/debug"
	fimerrors "github.com/standardbeagle/fim/internal/errors"
	"github.com/standardbeagle/fim/internal/mapreduce"
)

// Miner orchestrates the Apriori loop: support counting and candidate
// generation alternate level by level until a level produces no frequent
// itemsets, no candidates remain, or the iteration cap is reached. Jobs
// run strictly one at a time with full materialization between them, so
// per-level artifact files need no locking.
type Miner struct {
	cfg    *config.Config
	runner mapreduce.Runner
	layout Layout
	report *Reporter
}

// Summary describes a completed mining run.
type Summary struct {
	Levels        int
	TotalItemsets int
	MinSupport    int
	FinalFile     string
	FinalLines    int
	Duration      time.Duration
}

// NewMiner creates a driver over the given configuration and runner.
// The reporter may be nil for a silent run.
func NewMiner(cfg *config.Config, runner mapreduce.Runner, report *Reporter) *Miner {
	return &Miner{
		cfg:    cfg,
		runner: runner,
		layout: NewLayout(cfg.Project.Root),
		report: report,
	}
}

// Layout exposes the artifact layout the miner writes into.
func (m *Miner) Layout() Layout {
	return m.layout
}

// Run executes the full mining loop over the transaction inputs and
// returns the run summary. Any job failure aborts the run; artifacts of
// completed levels remain valid on failure at a later level.
func (m *Miner) Run(ctx context.Context, inputs []string) (*Summary, error) {
	if len(inputs) == 0 {
		return nil, fimerrors.NewConfigError("mining", "inputs",
			fmt.Errorf("at least one input path must be provided"))
	}

	start := time.Now()

	if m.cfg.Mining.Clean {
		m.report.Taskf("Cleaning prior artifacts under %s", m.layout.Root)
		if err := m.layout.Clean(); err != nil {
			return nil, err
		}
	}
	for _, dir := range []string{m.layout.FrequentDir(), m.layout.CandidateDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fimerrors.NewArtifactError("create directory", dir, err)
		}
	}

	minSupport, err := m.resolveMinSupport(ctx, inputs)
	if err != nil {
		return nil, err
	}

	summary := &Summary{MinSupport: minSupport, FinalFile: m.layout.FinalFile()}

	level := 1
	for iteration := 0; iteration < m.cfg.Mining.MaxIterations; iteration++ {
		summary.Levels = level

		found, err := m.countLevel(ctx, inputs, level, minSupport, summary)
		if err != nil {
			return nil, err
		}
		if found == 0 {
			m.report.Taskf("No frequent %d-itemsets found, mining complete", level)
			break
		}

		generated, err := m.generateCandidates(ctx, level)
		if err != nil {
			return nil, err
		}
		if generated == 0 {
			m.report.Taskf("No candidate %d-itemsets generated, mining complete", level+1)
			break
		}

		level++
	}

	if err := m.consolidate(summary); err != nil {
		return nil, err
	}
	summary.Duration = time.Since(start)
	m.report.Finish(summary)
	return summary, nil
}

// resolveMinSupport materializes the absolute threshold, running the
// converter job when the configuration carries a decimal support.
func (m *Miner) resolveMinSupport(ctx context.Context, inputs []string) (int, error) {
	if m.cfg.Mining.MinSupportRatio == 0 {
		return m.cfg.Mining.MinSupport, nil
	}

	m.report.Taskf("Converting decimal support %v to a support count", m.cfg.Mining.MinSupportRatio)
	count, err := FindMinSupportCount(ctx, m.runner, m.cfg.Mining.MinSupportRatio, inputs)
	if err != nil {
		return 0, err
	}
	m.report.Printf("materialized min support: %d", count)
	return count, nil
}

// countLevel runs the support counter for one level and consolidates its
// output into the level's frequent itemsets file. Returns the number of
// frequent itemsets found.
func (m *Miner) countLevel(ctx context.Context, inputs []string, level, minSupport int, summary *Summary) (int, error) {
	if level == 1 {
		m.report.Taskf("Finding frequent 1-itemsets (individual items)")
		for i, path := range inputs {
			m.report.FileInfo(path, fmt.Sprintf("input transaction file %d", i+1))
		}
	} else {
		m.report.Taskf("Finding frequent %d-itemsets", level)
		m.report.FileInfo(m.layout.CandidateFile(level), fmt.Sprintf("input candidate %d-itemsets", level))
	}

	partsDir := m.layout.FrequentPartsDir(level)
	if err := RefreshDir(partsDir, false); err != nil {
		return 0, err
	}

	spec := CounterSpec{MinSupport: minSupport}
	if level > 1 {
		spec.Candidates = &CandidateScan{Files: []string{m.layout.CandidateFile(level)}}
	}

	if err := m.runner.Run(ctx, SupportCounter(spec, inputs, partsDir)); err != nil {
		return 0, fimerrors.NewJobError(SupportCounterName, "run", err).WithLevel(level)
	}

	outFile := m.layout.FrequentFile(level)
	if _, err := CombineParts(partsDir, outFile); err != nil {
		return 0, err
	}

	records, err := ReadSupportFile(outFile)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		m.report.Warnf("no frequent itemsets found")
		return 0, nil
	}

	summary.TotalItemsets += len(records)
	m.report.Printf("found %d frequent %d-itemsets", len(records), level)
	m.report.ItemsetSummary(records)
	debug.LogDriver("level %d: %d frequent itemsets", level, len(records))
	return len(records), nil
}

// generateCandidates produces the next level's candidate file: a local
// combinatorial join after level 1, the three-stage MapReduce pipeline
// afterward. Returns the number of candidates generated.
func (m *Miner) generateCandidates(ctx context.Context, level int) (int, error) {
	m.report.Taskf("Generating candidate %d-itemsets", level+1)

	outFile := m.layout.CandidateFile(level + 1)

	if level == 1 {
		generated, err := GeneratePairCandidates(outFile, m.layout.FrequentFile(1))
		if err != nil {
			return 0, err
		}
		m.report.Printf("generated %d candidate 2-itemsets", generated)
		return generated, nil
	}

	partsDir := m.layout.CandidatePartsDir(level + 1)
	if err := RefreshDir(partsDir, false); err != nil {
		return 0, err
	}

	job := CandidateGenerator([]string{m.layout.FrequentFile(level)}, partsDir)
	if err := m.runner.Run(ctx, job); err != nil {
		return 0, fimerrors.NewJobError(CandidateGeneratorName, "run", err).WithLevel(level + 1)
	}

	generated, err := CombineParts(partsDir, outFile)
	if err != nil {
		return 0, err
	}
	if generated == 0 {
		return 0, nil
	}
	m.report.Printf("generated %d candidate %d-itemsets", generated, level+1)
	return generated, nil
}

// consolidate concatenates every level's frequent itemsets, in level
// order, into the final result file.
func (m *Miner) consolidate(summary *Summary) error {
	m.report.Taskf("Combining all results")

	out, err := os.Create(summary.FinalFile)
	if err != nil {
		return fimerrors.NewArtifactError("create", summary.FinalFile, err)
	}
	defer out.Close()

	w := bufio.NewWriter(out)
	total := 0
	for level := 1; level <= summary.Levels; level++ {
		path := m.layout.FrequentFile(level)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}
		n, err := appendPartFile(path, w)
		if err != nil {
			return err
		}
		total += n
	}
	if err := w.Flush(); err != nil {
		return fimerrors.NewArtifactError("write", summary.FinalFile, err)
	}

	summary.FinalLines = total
	m.report.FileInfo(summary.FinalFile, "final results file")
	return nil
}

package mining

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/fim/internal/config"
	"github.com/standardbeagle/fim/internal/itemset"
	"github.com/standardbeagle/fim/internal/mapreduce"
	"github.com/standardbeagle/fim/testhelpers"
)

func newTestMiner(t *testing.T, mutate func(*config.Config)) *Miner {
	t.Helper()
	cfg := config.Default()
	cfg.Project.Root = t.TempDir()
	cfg.Mining.MinSupport = 2
	if mutate != nil {
		mutate(cfg)
	}
	require.NoError(t, config.NewValidator().ValidateAndSetDefaults(cfg))
	return NewMiner(cfg, mapreduce.NewInlineRunner(), nil)
}

// supportsIn loads an artifact file into an itemset -> support map.
func supportsIn(t *testing.T, path string) map[string]int {
	t.Helper()
	records, err := ReadSupportFile(path)
	require.NoError(t, err)
	out := make(map[string]int, len(records))
	for _, rec := range records {
		out[rec.Items.String()] = rec.Support
	}
	return out
}

func candidatesIn(t *testing.T, path string) []string {
	t.Helper()
	var out []string
	for _, s := range itemset.LoadItemsetFile(path) {
		out = append(out, s.String())
	}
	return out
}

func TestMinerBasicThreeLevel(t *testing.T) {
	db := scenarioDB(t)
	m := newTestMiner(t, nil)

	summary, err := m.Run(context.Background(), []string{db})
	require.NoError(t, err)

	layout := m.Layout()
	assert.Equal(t, map[string]int{"a": 3, "b": 4, "c": 3, "d": 2},
		supportsIn(t, layout.FrequentFile(1)))
	assert.Equal(t, map[string]int{"a b": 3, "a c": 2, "b c": 3, "b d": 2},
		supportsIn(t, layout.FrequentFile(2)))
	assert.Equal(t, map[string]int{"a b c": 2},
		supportsIn(t, layout.FrequentFile(3)))

	// b c d is pruned before counting: only t4 contains c d, so that
	// required subset is not frequent.
	assert.ElementsMatch(t, []string{"a b c"}, candidatesIn(t, layout.CandidateFile(3)))

	assert.Equal(t, 9, summary.TotalItemsets)
	assert.Equal(t, 9, summary.FinalLines)
	assert.Equal(t, 2, summary.MinSupport)

	final := supportsIn(t, layout.FinalFile())
	assert.Len(t, final, 9)
	assert.Equal(t, 2, final["a b c"])
}

func TestMinerDownwardClosure(t *testing.T) {
	// Every pair is frequent, every triple has support 1: all four
	// triples must be generated as candidates and none survive counting.
	db := testhelpers.NewTransactionDB().
		Add("t1", "a", "b", "c").
		Add("t2", "a", "b", "d").
		Add("t3", "a", "c", "d").
		Add("t4", "b", "c", "d").
		WriteFile(t)
	m := newTestMiner(t, nil)

	_, err := m.Run(context.Background(), []string{db})
	require.NoError(t, err)

	layout := m.Layout()
	assert.Len(t, supportsIn(t, layout.FrequentFile(2)), 6)
	assert.ElementsMatch(t, []string{"a b c", "a b d", "a c d", "b c d"},
		candidatesIn(t, layout.CandidateFile(3)))
	assert.Empty(t, supportsIn(t, layout.FrequentFile(3)))
}

func TestMinerEmptyLevelTerminates(t *testing.T) {
	db := testhelpers.NewTransactionDB().
		Add("t1", "a").
		Add("t2", "b").
		Add("t3", "c").
		WriteFile(t)
	m := newTestMiner(t, func(cfg *config.Config) { cfg.Mining.MinSupport = 1 })

	summary, err := m.Run(context.Background(), []string{db})
	require.NoError(t, err)

	layout := m.Layout()
	assert.Len(t, supportsIn(t, layout.FrequentFile(1)), 3)
	assert.Equal(t, []string{"a b", "a c", "b c"}, candidatesIn(t, layout.CandidateFile(2)))
	assert.Empty(t, supportsIn(t, layout.FrequentFile(2)))
	assert.Equal(t, 3, summary.TotalItemsets)
	assert.Equal(t, 2, summary.Levels)
}

func TestMinerDecimalSupport(t *testing.T) {
	db := scenarioDB(t)
	m := newTestMiner(t, func(cfg *config.Config) {
		cfg.Mining.MinSupport = 0
		cfg.Mining.MinSupportRatio = 0.5
	})

	summary, err := m.Run(context.Background(), []string{db})
	require.NoError(t, err)

	// floor(0.5 * 4) = 2: identical results to the absolute-support run.
	assert.Equal(t, 2, summary.MinSupport)
	assert.Equal(t, 9, summary.TotalItemsets)
	assert.Equal(t, map[string]int{"a b c": 2}, supportsIn(t, m.Layout().FrequentFile(3)))
}

func TestMinerToleratesMalformedLines(t *testing.T) {
	db := testhelpers.NewTransactionDB().
		Add("t1", "a", "b", "c").
		AddRaw("garbage_no_tab").
		Add("t2", "a", "b", "d").
		AddRaw("\t\t").
		Add("t3", "a", "b", "c").
		Add("t4", "b", "c", "d").
		WriteFile(t)
	m := newTestMiner(t, nil)

	summary, err := m.Run(context.Background(), []string{db})
	require.NoError(t, err)
	assert.Equal(t, 9, summary.TotalItemsets)
	assert.Equal(t, map[string]int{"a b c": 2}, supportsIn(t, m.Layout().FrequentFile(3)))
}

func TestMinerCleanRerunIsIdempotent(t *testing.T) {
	db := scenarioDB(t)
	m := newTestMiner(t, func(cfg *config.Config) { cfg.Mining.Clean = true })

	_, err := m.Run(context.Background(), []string{db})
	require.NoError(t, err)
	first, err := os.ReadFile(m.Layout().FinalFile())
	require.NoError(t, err)

	_, err = m.Run(context.Background(), []string{db})
	require.NoError(t, err)
	second, err := os.ReadFile(m.Layout().FinalFile())
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}

func TestMinerMaxIterationsStopsLoop(t *testing.T) {
	db := scenarioDB(t)
	m := newTestMiner(t, func(cfg *config.Config) { cfg.Mining.MaxIterations = 1 })

	summary, err := m.Run(context.Background(), []string{db})
	require.NoError(t, err)

	// Only level 1 ran; the partial lineage is still valid and
	// consolidated.
	assert.Equal(t, 1, summary.Levels)
	assert.Equal(t, 4, summary.TotalItemsets)
	assert.Len(t, supportsIn(t, m.Layout().FinalFile()), 4)
}

func TestMinerLocalRunnerMatchesInline(t *testing.T) {
	db := scenarioDB(t)

	inline := newTestMiner(t, nil)
	_, err := inline.Run(context.Background(), []string{db})
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Project.Root = t.TempDir()
	cfg.Mining.MinSupport = 2
	cfg.Runtime.Runner = config.RunnerLocal
	require.NoError(t, config.NewValidator().ValidateAndSetDefaults(cfg))
	local := NewMiner(cfg, mapreduce.NewLocalRunner(4, 3), nil)
	_, err = local.Run(context.Background(), []string{db})
	require.NoError(t, err)

	assert.Equal(t,
		supportsIn(t, inline.Layout().FinalFile()),
		supportsIn(t, local.Layout().FinalFile()))
}

func TestMinerRequiresInputs(t *testing.T) {
	m := newTestMiner(t, nil)
	_, err := m.Run(context.Background(), nil)
	require.Error(t, err)
}

func TestMinerMissingInputFails(t *testing.T) {
	m := newTestMiner(t, nil)
	_, err := m.Run(context.Background(), []string{"does-not-exist.txt"})
	require.Error(t, err)
}

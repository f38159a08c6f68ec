package mapreduce

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wordCountJob is the canonical smoke-test job: count words across the
// input files.
func wordCountJob(inputs []string, outputDir string) *JobSpec {
	sum := func(_ *TaskContext, key string, values *Values, out Emitter) error {
		total := 0
		var n int
		for values.Next(&n) {
			total += n
		}
		if err := values.Err(); err != nil {
			return err
		}
		return out.Emit(key, total)
	}

	return &JobSpec{
		Name:      "word-count",
		Inputs:    inputs,
		OutputDir: outputDir,
		Steps: []Step{{
			Name: "count",
			Map: func(_ *TaskContext, _ string, value string, out Emitter) error {
				for _, word := range strings.Fields(value) {
					if err := out.Emit(word, 1); err != nil {
						return err
					}
				}
				return nil
			},
			Combine: sum,
			Reduce:  sum,
		}},
	}
}

func writeInput(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// readPartLines returns every non-empty line from the job's part files,
// sorted for comparison across partitionings.
func readPartLines(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	var lines []string
	for _, entry := range entries {
		require.True(t, strings.HasPrefix(entry.Name(), "part-"), "unexpected output file %s", entry.Name())
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		require.NoError(t, err)
		for _, line := range strings.Split(string(data), "\n") {
			if line != "" {
				lines = append(lines, line)
			}
		}
	}
	sort.Strings(lines)
	return lines
}

func TestInlineRunnerWordCount(t *testing.T) {
	in := writeInput(t, "words.txt", "the quick brown fox\nthe lazy dog\nthe fox\n")
	out := t.TempDir()

	require.NoError(t, NewInlineRunner().Run(context.Background(), wordCountJob([]string{in}, out)))

	assert.Equal(t, []string{
		"brown\t1", "dog\t1", "fox\t2", "lazy\t1", "quick\t1", "the\t3",
	}, readPartLines(t, out))
}

func TestLocalRunnerMatchesInline(t *testing.T) {
	in1 := writeInput(t, "a.txt", "x y z\nx x\n")
	in2 := writeInput(t, "b.txt", "y z z z\n")

	inlineOut := t.TempDir()
	require.NoError(t, NewInlineRunner().Run(context.Background(), wordCountJob([]string{in1, in2}, inlineOut)))

	localOut := t.TempDir()
	require.NoError(t, NewLocalRunner(4, 3).Run(context.Background(), wordCountJob([]string{in1, in2}, localOut)))

	assert.Equal(t, readPartLines(t, inlineOut), readPartLines(t, localOut))
}

func TestLocalRunnerWritesOnePartPerPartition(t *testing.T) {
	in := writeInput(t, "in.txt", "a b c d e f\n")
	out := t.TempDir()

	require.NoError(t, NewLocalRunner(2, 3).Run(context.Background(), wordCountJob([]string{in}, out)))

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"part-00000", "part-00001", "part-00002"}, names)
}

func TestMultiStepPipeline(t *testing.T) {
	// Step 1 counts words; step 2 inverts to count-by-frequency.
	in := writeInput(t, "in.txt", "a a b b c\n")
	out := t.TempDir()

	job := wordCountJob([]string{in}, out)
	job.Steps = append(job.Steps, Step{
		Name: "by-frequency",
		Map: func(_ *TaskContext, key, value string, out Emitter) error {
			var count int
			require.NoError(t, json.Unmarshal([]byte(value), &count))
			return out.Emit(strings.Repeat("*", count), key)
		},
		Reduce: func(_ *TaskContext, key string, values *Values, out Emitter) error {
			var words []string
			var w string
			for values.Next(&w) {
				words = append(words, w)
			}
			if err := values.Err(); err != nil {
				return err
			}
			sort.Strings(words)
			return out.Emit(key, strings.Join(words, ","))
		},
	})

	require.NoError(t, NewInlineRunner().Run(context.Background(), job))
	assert.Equal(t, []string{"*\tc", "**\ta,b"}, readPartLines(t, out))
}

func TestConfigShipsToEveryTask(t *testing.T) {
	type jobConfig struct {
		Prefix string `json:"prefix"`
	}

	in := writeInput(t, "in.txt", "one\ntwo\n")
	out := t.TempDir()

	job := &JobSpec{
		Name:      "prefixer",
		Inputs:    []string{in},
		OutputDir: out,
		Config:    jobConfig{Prefix: "p_"},
		Steps: []Step{{
			Init: func(tc *TaskContext) error {
				var cfg jobConfig
				if err := tc.DecodeConfig(&cfg); err != nil {
					return err
				}
				tc.State = cfg.Prefix
				return nil
			},
			Map: func(tc *TaskContext, _ string, value string, out Emitter) error {
				return out.Emit(tc.State.(string)+value, 1)
			},
			Reduce: func(tc *TaskContext, key string, values *Values, out Emitter) error {
				// The reduce task gets its own Init call and state.
				if !strings.HasPrefix(key, tc.State.(string)) {
					return errors.New("state missing on reduce side")
				}
				return out.Emit(key, "seen")
			},
		}},
	}

	require.NoError(t, NewLocalRunner(2, 2).Run(context.Background(), job))
	assert.Equal(t, []string{"p_one\tseen", "p_two\tseen"}, readPartLines(t, out))
}

func TestMapErrorAbortsJob(t *testing.T) {
	in := writeInput(t, "in.txt", "boom\n")

	job := &JobSpec{
		Name:      "failing",
		Inputs:    []string{in},
		OutputDir: t.TempDir(),
		Steps: []Step{{
			Map: func(*TaskContext, string, string, Emitter) error {
				return errors.New("map exploded")
			},
			Reduce: func(_ *TaskContext, key string, _ *Values, out Emitter) error {
				return out.Emit(key, 1)
			},
		}},
	}

	err := NewLocalRunner(4, 4).Run(context.Background(), job)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "map exploded")
}

func TestMissingInputFileFails(t *testing.T) {
	job := wordCountJob([]string{filepath.Join(t.TempDir(), "missing.txt")}, t.TempDir())
	err := NewInlineRunner().Run(context.Background(), job)
	require.Error(t, err)
}

func TestEmptyInputProducesEmptyParts(t *testing.T) {
	in := writeInput(t, "empty.txt", "")
	out := t.TempDir()

	require.NoError(t, NewInlineRunner().Run(context.Background(), wordCountJob([]string{in}, out)))
	assert.Empty(t, readPartLines(t, out))
}

func TestNewRunnerByMode(t *testing.T) {
	for mode, want := range map[string]any{
		"inline": &InlineRunner{},
		"local":  &LocalRunner{},
		"hadoop": &HadoopRunner{},
	} {
		r, err := New(mode, Options{})
		require.NoError(t, err)
		assert.IsType(t, want, r)
	}

	_, err := New("spark", Options{})
	require.Error(t, err)
}

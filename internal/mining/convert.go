package mining

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	fimerrors "github.com/standardbeagle/fim/internal/errors"
	"github.com/standardbeagle/fim/internal/itemset"
	"github.com/standardbeagle/fim/internal/mapreduce"
)

// SupportConverterName identifies the decimal support converter job.
const SupportConverterName = "support-converter"

// totalTransactionsKey is the single shuffle key the converter counts
// under.
const totalTransactionsKey = "total_transactions"

// ConverterSpec configures the decimal support converter.
type ConverterSpec struct {
	Ratio float64 `json:"ratio"`
}

// SupportConverter builds the job that counts well-formed transactions
// and emits floor(ratio * total) as a single output record.
func SupportConverter(spec any, inputs []string, outputDir string) *mapreduce.JobSpec {
	return &mapreduce.JobSpec{
		Name:      SupportConverterName,
		Inputs:    inputs,
		OutputDir: outputDir,
		Config:    spec,
		Steps: []mapreduce.Step{{
			Name:    "convert",
			Map:     converterMap,
			Combine: sumCombine,
			Reduce:  converterReduce,
		}},
	}
}

func converterMap(tc *mapreduce.TaskContext, _ string, value string, out mapreduce.Emitter) error {
	if _, ok := itemset.ParseTransaction(value); !ok {
		tc.IncrCounter("input", "malformed_lines", 1)
		return nil
	}
	return out.Emit(totalTransactionsKey, 1)
}

func converterReduce(tc *mapreduce.TaskContext, _ string, values *mapreduce.Values, out mapreduce.Emitter) error {
	var spec ConverterSpec
	if err := tc.DecodeConfig(&spec); err != nil {
		return err
	}

	total := 0
	var n int
	for values.Next(&n) {
		total += n
	}
	if err := values.Err(); err != nil {
		return err
	}
	return out.Emit("", int(math.Floor(spec.Ratio*float64(total))))
}

// FindMinSupportCount runs the converter over the transaction inputs and
// returns the materialized absolute threshold. An empty database yields
// zero.
func FindMinSupportCount(ctx context.Context, runner mapreduce.Runner, ratio float64, inputs []string) (int, error) {
	if len(inputs) == 0 {
		return 0, fimerrors.NewConfigError("mining", "inputs", fmt.Errorf("at least one input path must be provided"))
	}
	if ratio < 0 || ratio > 1 {
		return 0, fimerrors.NewConfigError("mining", "MinSupportRatio", fmt.Errorf("decimal support %v outside [0, 1]", ratio))
	}

	scratch, err := os.MkdirTemp("", "fim-convert-*")
	if err != nil {
		return 0, fimerrors.NewJobError(SupportConverterName, "scratch", err)
	}
	defer os.RemoveAll(scratch)

	job := SupportConverter(ConverterSpec{Ratio: ratio}, inputs, scratch)
	if err := runner.Run(ctx, job); err != nil {
		return 0, fimerrors.NewJobError(SupportConverterName, "run", err)
	}

	entries, err := os.ReadDir(scratch)
	if err != nil {
		return 0, fimerrors.NewJobError(SupportConverterName, "read output", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") || strings.HasPrefix(entry.Name(), "_") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(scratch, entry.Name()))
		if err != nil {
			return 0, fimerrors.NewJobError(SupportConverterName, "read output", err)
		}
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			count, err := strconv.Atoi(line)
			if err != nil {
				return 0, fimerrors.NewJobError(SupportConverterName, "parse output",
					fmt.Errorf("unexpected converter output %q: %w", line, err))
			}
			return count, nil
		}
	}

	// No map output at all: the database had no well-formed records.
	return 0, nil
}

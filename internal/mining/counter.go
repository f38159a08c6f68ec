// Package mining implements the Apriori jobs and the driver loop that
// sequences them: support counting, candidate generation, decimal
// support conversion, and artifact management.
package mining

import (
	"github.com/standardbeagle/fim/internal/itemset"
	"github.com/standardbeagle/fim/internal/mapreduce"
)

// SupportCounterName identifies the support counter job to runners and
// streaming tasks.
const SupportCounterName = "support-counter"

// CounterSpec configures a support counter run. A nil Candidates field
// selects singleton mode (level 1: count every individual item); a
// non-nil field selects candidate mode (level >= 2: count the itemsets
// listed in the files).
type CounterSpec struct {
	MinSupport int            `json:"min_support"`
	Candidates *CandidateScan `json:"candidates,omitempty"`
}

// CandidateScan names the candidate itemset files a counter task loads
// at init.
type CandidateScan struct {
	Files []string `json:"files"`
}

// counterState is the per-task state established by Init.
type counterState struct {
	minSupport int
	scanning   bool // candidate mode, even when the candidate set is empty
	candidates []itemset.Itemset
}

// SupportCounter builds the support counter job over the given
// transaction inputs. Output records are "itemset\tsupport" lines
// containing only itemsets whose support meets the threshold.
func SupportCounter(spec any, inputs []string, outputDir string) *mapreduce.JobSpec {
	job := &mapreduce.JobSpec{
		Name:      SupportCounterName,
		Inputs:    inputs,
		OutputDir: outputDir,
		Config:    spec,
		Steps: []mapreduce.Step{{
			Name:    "count",
			Init:    counterInit,
			Map:     counterMap,
			Combine: sumCombine,
			Reduce:  counterReduce,
		}},
	}
	if cs, ok := spec.(CounterSpec); ok && cs.Candidates != nil {
		job.TaskFiles = cs.Candidates.Files
	}
	return job
}

func counterInit(tc *mapreduce.TaskContext) error {
	var spec CounterSpec
	if err := tc.DecodeConfig(&spec); err != nil {
		return err
	}
	if spec.MinSupport < 1 {
		spec.MinSupport = 1
	}

	state := &counterState{minSupport: spec.MinSupport}
	if spec.Candidates != nil {
		state.scanning = true
		for _, file := range spec.Candidates.Files {
			// A missing file means no candidates at this level.
			state.candidates = append(state.candidates, itemset.LoadItemsetFile(file)...)
		}
	}
	tc.State = state
	return nil
}

// counterMap emits per-transaction counts. In candidate mode every
// candidate is emitted for every transaction, with a zero count when the
// transaction does not contain it, so even zero-support candidates reach
// the reducer and are dropped there deterministically.
func counterMap(tc *mapreduce.TaskContext, _ string, value string, out mapreduce.Emitter) error {
	state := tc.State.(*counterState)

	txn, ok := itemset.ParseTransaction(value)
	if !ok {
		tc.IncrCounter("input", "malformed_lines", 1)
		return nil
	}

	if !state.scanning {
		for _, item := range txn.Items {
			if err := out.Emit(item, 1); err != nil {
				return err
			}
		}
		return nil
	}

	for _, candidate := range state.candidates {
		count := 0
		if candidate.IsSubsetOf(txn.Items) {
			count = 1
		}
		if err := out.Emit(candidate.Join(itemset.InternalItemSeparator), count); err != nil {
			return err
		}
	}
	return nil
}

// sumCombine locally aggregates integer counts; summation is lossless
// so the combiner and the reducer share it.
func sumCombine(_ *mapreduce.TaskContext, key string, values *mapreduce.Values, out mapreduce.Emitter) error {
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

func counterReduce(tc *mapreduce.TaskContext, key string, values *mapreduce.Values, out mapreduce.Emitter) error {
	state := tc.State.(*counterState)

	total := 0
	var n int
	for values.Next(&n) {
		total += n
	}
	if err := values.Err(); err != nil {
		return err
	}
	if total < state.minSupport {
		return nil
	}

	outKey := key
	if state.scanning {
		outKey = itemset.ParseSep(key, itemset.InternalItemSeparator).String()
	}
	return out.Emit(outKey, total)
}

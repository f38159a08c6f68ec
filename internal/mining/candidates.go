package mining

import (
	"github.com/standardbeagle/fim/internal/itemset"
	"github.com/standardbeagle/fim/internal/mapreduce"
)

// CandidateGeneratorName identifies the candidate generator job.
const CandidateGeneratorName = "candidate-generator"

// unknownSupport marks a required subset not (yet) confirmed present in
// the frequent itemsets. Valid supports are non-negative, so -1 can
// never collide with a real count.
const unknownSupport = -1

// postfixSupport is a stage-1 shuffle value: the postfix item split off
// a frequent k-itemset, plus that itemset's support.
type postfixSupport struct {
	Postfix string `json:"p"`
	Support int    `json:"s"`
}

// subsetProbe is the stage-1 -> stage-2 value. An empty Candidate is a
// self-probe confirming that the key itemset itself is frequent; a
// non-empty Candidate asks whether the key — one of the candidate's
// required k-subsets — is frequent.
type subsetProbe struct {
	Candidate string `json:"c"`
	Support   int    `json:"s"`
}

// CandidateGenerator builds the three-stage pipeline that turns frequent
// k-itemsets into pruned (k+1)-candidates: a prefix join that proposes
// candidates and fans out their required subsets, a subset validation
// pass, and a pruning pass that keeps only candidates whose every
// k-subset was confirmed frequent.
func CandidateGenerator(inputs []string, outputDir string) *mapreduce.JobSpec {
	return &mapreduce.JobSpec{
		Name:      CandidateGeneratorName,
		Inputs:    inputs,
		OutputDir: outputDir,
		Steps: []mapreduce.Step{
			{
				Name:   "prefix-join",
				Map:    prefixMap,
				Reduce: subsetGeneratingReduce,
			},
			{
				Name:   "subset-validation",
				Map:    mapreduce.IdentityMap,
				Reduce: subsetValidatingReduce,
			},
			{
				Name:   "pruning",
				Map:    mapreduce.IdentityMap,
				Reduce: pruningReduce,
			},
		},
	}
}

// prefixMap splits each frequent k-itemset into its k-1 item prefix and
// single-item postfix, keyed by prefix so itemsets differing only in
// their last item join in one reduce group.
func prefixMap(tc *mapreduce.TaskContext, _ string, value string, out mapreduce.Emitter) error {
	rec, ok := itemset.ParseSupportRecord(value)
	if !ok {
		tc.IncrCounter("input", "malformed_lines", 1)
		return nil
	}
	if rec.Items.Len() < 2 {
		// An empty prefix only arises from 1-itemsets, which this job
		// does not handle.
		tc.IncrCounter("input", "undersized_itemsets", 1)
		return nil
	}

	prefix, postfix := rec.Items.SplitPrefix()
	return out.Emit(prefix.String(), postfixSupport{Postfix: postfix, Support: rec.Support})
}

// subsetGeneratingReduce pairs up the postfixes sharing a prefix to form
// tentative (k+1)-candidates, and emits one record per k-subset whose
// presence in the frequent itemsets must be confirmed. The two subsets
// that joined on this prefix are present by construction; the rest are
// obtained by dropping one prefix item at a time.
func subsetGeneratingReduce(_ *mapreduce.TaskContext, key string, values *mapreduce.Values, out mapreduce.Emitter) error {
	prefix := itemset.Parse(key)

	// Each postfix appears exactly once per prefix in the input.
	var postfixes []string
	var ps postfixSupport
	for values.Next(&ps) {
		postfixes = append(postfixes, ps.Postfix)

		// Re-emit the originating k-itemset as a self-probe so stage 2
		// can confirm it when some candidate lists it as a subset.
		original := prefix.Union(ps.Postfix)
		if err := out.Emit(original.String(), subsetProbe{Support: ps.Support}); err != nil {
			return err
		}
	}
	if err := values.Err(); err != nil {
		return err
	}

	if prefix.Len() == 0 || len(postfixes) < 2 {
		// Need at least two postfixes to pair into a candidate.
		return nil
	}

	// The postfix set arrives in shuffle-value order; pair generation
	// wants it sorted.
	postfixes = itemset.New(postfixes...)

	for i := 0; i < len(postfixes); i++ {
		for j := i + 1; j < len(postfixes); j++ {
			candidate := prefix.Union(postfixes[i], postfixes[j])

			if prefix.Len() == 1 {
				// Processing 2-itemsets: the only subset not already
				// present by construction is the postfix pair itself.
				pair := itemset.New(postfixes[i], postfixes[j])
				if err := out.Emit(pair.String(), subsetProbe{Candidate: candidate.String(), Support: unknownSupport}); err != nil {
					return err
				}
				continue
			}

			// Drop one prefix item at a time: each drop yields one of
			// the k-1 subsets that still need confirmation.
			for d := 0; d < prefix.Len(); d++ {
				subset := prefix.Without(d).Union(postfixes[i], postfixes[j])
				if err := out.Emit(subset.String(), subsetProbe{Candidate: candidate.String(), Support: unknownSupport}); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// subsetValidatingReduce resolves one required subset. If any record in
// the group is a self-probe the subset is frequent and its support is
// propagated to every candidate that asked; otherwise the candidates
// receive unknownSupport and stage 3 will prune them.
func subsetValidatingReduce(_ *mapreduce.TaskContext, _ string, values *mapreduce.Values, out mapreduce.Emitter) error {
	subsetSupport := unknownSupport

	var candidates []string
	var probe subsetProbe
	for values.Next(&probe) {
		if probe.Support != unknownSupport {
			subsetSupport = probe.Support
		}
		if probe.Candidate != "" {
			candidates = append(candidates, probe.Candidate)
		}
	}
	if err := values.Err(); err != nil {
		return err
	}

	for _, candidate := range candidates {
		if err := out.Emit(candidate, subsetSupport); err != nil {
			return err
		}
	}
	return nil
}

// pruningReduce keeps a candidate only when every one of its subset
// checks came back with a real support. Output is value-only: one
// canonical candidate itemset per line.
func pruningReduce(_ *mapreduce.TaskContext, key string, values *mapreduce.Values, out mapreduce.Emitter) error {
	checks := 0
	pruned := false
	var support int
	for values.Next(&support) {
		checks++
		if support == unknownSupport {
			pruned = true
		}
	}
	if err := values.Err(); err != nil {
		return err
	}

	if pruned || checks == 0 {
		return nil
	}
	return out.Emit("", itemset.Parse(key).String())
}

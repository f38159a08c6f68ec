package mining

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/standardbeagle/fim/testhelpers"
)

func TestGenerateFromPairs(t *testing.T) {
	// Every pair over {a,b,c,d} is frequent: all four triples survive
	// pruning because all of their 2-subsets are present.
	f2 := testhelpers.WriteFile(t, "frequent_itemsets_2.txt",
		"a b\t2\na c\t2\na d\t2\nb c\t2\nb d\t2\nc d\t2\n")

	job := CandidateGenerator([]string{f2}, t.TempDir())
	assert.Equal(t, []string{"a b c", "a b d", "a c d", "b c d"}, runJob(t, job))
}

func TestGeneratePrunesMissingPairSubset(t *testing.T) {
	// The candidate {a,b,c} needs "b c"; without it only {a,b,d} has all
	// of its subsets.
	f2 := testhelpers.WriteFile(t, "frequent_itemsets_2.txt",
		"a b\t3\na c\t2\na d\t2\nb d\t2\n")

	job := CandidateGenerator([]string{f2}, t.TempDir())
	assert.Equal(t, []string{"a b d"}, runJob(t, job))
}

func TestGenerateFromTriples(t *testing.T) {
	// Prefix "a b" joins postfixes {c,d}; the remaining subsets of
	// {a,b,c,d} come from dropping one prefix item and both are present.
	f3 := testhelpers.WriteFile(t, "frequent_itemsets_3.txt",
		"a b c\t2\na b d\t2\na c d\t2\nb c d\t2\n")

	job := CandidateGenerator([]string{f3}, t.TempDir())
	assert.Equal(t, []string{"a b c d"}, runJob(t, job))
}

func TestGenerateFromTriplesPrunesOnMissingDropSubset(t *testing.T) {
	// Without "b c d" the candidate {a,b,c,d} loses one required subset
	// and must be pruned.
	f3 := testhelpers.WriteFile(t, "frequent_itemsets_3.txt",
		"a b c\t2\na b d\t2\na c d\t2\n")

	job := CandidateGenerator([]string{f3}, t.TempDir())
	assert.Empty(t, runJob(t, job))
}

func TestGenerateNoSharedPrefixNoCandidates(t *testing.T) {
	f2 := testhelpers.WriteFile(t, "frequent_itemsets_2.txt",
		"a b\t2\nc d\t2\n")

	job := CandidateGenerator([]string{f2}, t.TempDir())
	assert.Empty(t, runJob(t, job))
}

func TestGenerateSkipsMalformedAndUndersizedRecords(t *testing.T) {
	f2 := testhelpers.WriteFile(t, "frequent_itemsets_2.txt",
		"a b\t2\nnot a record\na c\t2\nsingleton\t9\nb c\t2\n")

	job := CandidateGenerator([]string{f2}, t.TempDir())
	assert.Equal(t, []string{"a b c"}, runJob(t, job))
}

func TestGenerateOutputIsCanonical(t *testing.T) {
	// Input records arrive unsorted within a line; output candidates
	// must come out strictly sorted.
	f2 := testhelpers.WriteFile(t, "frequent_itemsets_2.txt",
		"b a\t2\nc a\t2\nc b\t2\n")

	job := CandidateGenerator([]string{f2}, t.TempDir())
	assert.Equal(t, []string{"a b c"}, runJob(t, job))
}

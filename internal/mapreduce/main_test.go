package mapreduce

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain ensures no goroutines leak from any runner test: the local
// runner fans map tasks and reduce partitions out on errgroups and must
// always drain them, including on task failure.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

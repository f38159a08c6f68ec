package mining

import (
	"encoding/json"
	"fmt"

	"github.com/standardbeagle/fim/internal/mapreduce"
)

// LookupJob rebuilds a job spec by name for streaming task execution,
// where the configuration arrives as raw JSON through the task
// environment rather than as a typed value. Inputs and output directory
// are irrelevant on the task side; the framework feeds stdin and reads
// stdout.
func LookupJob(name string, rawConfig json.RawMessage) (*mapreduce.JobSpec, error) {
	switch name {
	case SupportCounterName:
		return SupportCounter(rawConfig, nil, ""), nil
	case SupportConverterName:
		return SupportConverter(rawConfig, nil, ""), nil
	case CandidateGeneratorName:
		return CandidateGenerator(nil, ""), nil
	default:
		return nil, fmt.Errorf("unknown job %q", name)
	}
}

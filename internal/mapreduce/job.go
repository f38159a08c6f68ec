// Package mapreduce provides the batch processing primitive the mining
// jobs run on: partitioned map -> shuffle-by-key -> reduce with optional
// per-task combiners, executed by pluggable runners.
//
// Architecture Pattern:
// A job is a sequence of Steps. Each step's reduce output is the next
// step's map input; the runner fully materializes the boundary before the
// next step starts. Within a step, values travel the shuffle as JSON so
// map and reduce functions exchange structured tuples instead of
// hand-packed separator strings. Only the first step sees raw input lines
// and only the last step's reduce writes the plain-text part files.
package mapreduce

import (
	"context"
	"encoding/json"
	"fmt"
)

// Emitter receives the key/value pairs produced by map and reduce
// functions. Values are marshaled as JSON on intermediate boundaries;
// emitting a json.RawMessage passes pre-encoded bytes through untouched,
// which is what identity mappers do.
type Emitter interface {
	Emit(key string, value any) error
}

// Values is a lazy, finite, non-restartable sequence of the values
// grouped under one reduce key.
type Values struct {
	raw [][]byte
	i   int
	err error
}

// Next decodes the next value into v and reports whether one was
// available. Decoding stops the iteration on the first error; check Err
// after the loop.
func (vs *Values) Next(v any) bool {
	if vs.err != nil || vs.i >= len(vs.raw) {
		return false
	}
	if err := json.Unmarshal(vs.raw[vs.i], v); err != nil {
		vs.err = fmt.Errorf("failed to decode shuffle value %q: %w", vs.raw[vs.i], err)
		return false
	}
	vs.i++
	return true
}

// Err reports the first decode error encountered by Next.
func (vs *Values) Err() error {
	return vs.err
}

// newValues wraps raw JSON values for a reduce group.
func newValues(raw [][]byte) *Values {
	return &Values{raw: raw}
}

// TaskContext carries per-task state into map, combine, and reduce
// functions: the job configuration shipped by the runner, a state slot
// for whatever Init loads (candidate sets, thresholds), and the reporter
// for counters and status updates.
type TaskContext struct {
	Context context.Context
	Config  json.RawMessage
	State   any

	reporter Reporter
}

// DecodeConfig unmarshals the shipped job configuration into v.
func (tc *TaskContext) DecodeConfig(v any) error {
	if len(tc.Config) == 0 {
		return nil
	}
	if err := json.Unmarshal(tc.Config, v); err != nil {
		return fmt.Errorf("failed to decode job config: %w", err)
	}
	return nil
}

// IncrCounter updates the given group/counter by amount.
func (tc *TaskContext) IncrCounter(group, counter string, amount int) {
	if tc.reporter != nil {
		tc.reporter.IncrCounter(group, counter, amount)
	}
}

// Statusf updates the task status line.
func (tc *TaskContext) Statusf(format string, args ...any) {
	if tc.reporter != nil {
		tc.reporter.Statusf(format, args...)
	}
}

// MapFunc consumes one input record. For the first step of a job the
// key is empty and value is a raw input line; for later steps the pair is
// the previous reduce's output with the value still JSON-encoded.
type MapFunc func(tc *TaskContext, key, value string, out Emitter) error

// ReduceFunc consumes one reduce (or combine) group.
type ReduceFunc func(tc *TaskContext, key string, values *Values, out Emitter) error

// Step is one map -> shuffle -> reduce pass.
type Step struct {
	Name string

	// Init runs once per task before any records are processed. Both
	// the map side and the reduce side of a step get their own call.
	Init func(tc *TaskContext) error

	Map     MapFunc
	Combine ReduceFunc // optional local aggregation, applied per map task
	Reduce  ReduceFunc
}

// JobSpec describes a complete job: its steps, inputs, output directory
// for part files, and the configuration record shipped to every task.
type JobSpec struct {
	Name      string
	Steps     []Step
	Inputs    []string
	OutputDir string
	Config    any

	// TaskFiles are side files every task needs access to (candidate
	// itemset files). In-process runners read them in place; the hadoop
	// runner ships them alongside the task binary.
	TaskFiles []string
}

// IdentityMap passes records through unchanged between reduce phases.
func IdentityMap(_ *TaskContext, key, value string, out Emitter) error {
	return out.Emit(key, json.RawMessage(value))
}

// marshalConfig encodes the job configuration once for shipping to tasks.
func marshalConfig(spec *JobSpec) (json.RawMessage, error) {
	if spec.Config == nil {
		return nil, nil
	}
	raw, err := json.Marshal(spec.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config for job %s: %w", spec.Name, err)
	}
	return raw, nil
}

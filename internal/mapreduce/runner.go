package mapreduce

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/fim/internal/debug"
)

// Runner executes a complete job: every step in order, with the shuffle
// boundary fully materialized between steps.
type Runner interface {
	Run(ctx context.Context, spec *JobSpec) error
}

// Options configures runner construction.
type Options struct {
	Mappers    int      // parallel map tasks; minimum 1
	Partitions int      // reduce partitions; minimum 1
	HadoopArgs []string // hadoop runner only: KEY=VALUE -D options
	Owner      string   // hadoop runner only
}

// New constructs a runner by mode name.
func New(mode string, opts Options) (Runner, error) {
	switch mode {
	case "inline":
		return NewInlineRunner(), nil
	case "local":
		return NewLocalRunner(opts.Mappers, opts.Partitions), nil
	case "hadoop":
		return NewHadoopRunner(opts), nil
	default:
		return nil, fmt.Errorf("unknown runner mode %q", mode)
	}
}

// InlineRunner runs every task sequentially in-process with a single
// reduce partition. Intended for tests and small inputs; its output is
// fully deterministic.
type InlineRunner struct {
	engine engine
}

// NewInlineRunner creates a strictly sequential runner.
func NewInlineRunner() *InlineRunner {
	return &InlineRunner{engine: engine{mappers: 1, partitions: 1}}
}

func (r *InlineRunner) Run(ctx context.Context, spec *JobSpec) error {
	return r.engine.run(ctx, spec)
}

// LocalRunner runs map tasks and reduce partitions in parallel inside
// the current process, partitioning keys by hash.
type LocalRunner struct {
	engine engine
}

// NewLocalRunner creates an in-process parallel runner. Non-positive
// counts fall back to 1.
func NewLocalRunner(mappers, partitions int) *LocalRunner {
	return &LocalRunner{engine: engine{mappers: max(mappers, 1), partitions: max(partitions, 1)}}
}

func (r *LocalRunner) Run(ctx context.Context, spec *JobSpec) error {
	return r.engine.run(ctx, spec)
}

// engine is the shared in-process execution core behind the inline and
// local runners.
type engine struct {
	mappers    int
	partitions int
}

func (e *engine) run(ctx context.Context, spec *JobSpec) error {
	if len(spec.Steps) == 0 {
		return fmt.Errorf("job %s has no steps", spec.Name)
	}

	conf, err := marshalConfig(spec)
	if err != nil {
		return err
	}

	if spec.OutputDir != "" {
		if err := os.MkdirAll(spec.OutputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory for job %s: %w", spec.Name, err)
		}
	}

	debug.LogJob("%s: starting (%d steps, %d inputs, %d mappers, %d partitions)",
		spec.Name, len(spec.Steps), len(spec.Inputs), e.mappers, e.partitions)

	// Boundary records carried between steps; nil for the first step,
	// which reads the input files instead.
	var boundary []keyValue

	for i := range spec.Steps {
		step := &spec.Steps[i]
		final := i == len(spec.Steps)-1

		grouped, err := e.mapPhase(ctx, spec, step, conf, i == 0, boundary)
		if err != nil {
			return fmt.Errorf("job %s step %d map phase: %w", spec.Name, i+1, err)
		}

		boundary, err = e.reducePhase(ctx, spec, step, conf, grouped, final)
		if err != nil {
			return fmt.Errorf("job %s step %d reduce phase: %w", spec.Name, i+1, err)
		}

		debug.LogJob("%s: step %d complete (%d records forwarded)", spec.Name, i+1, len(boundary))
	}

	return nil
}

// mapPhase runs the step's map tasks in parallel and merges their
// per-partition buffers into the shuffle groups.
func (e *engine) mapPhase(ctx context.Context, spec *JobSpec, step *Step, conf []byte, first bool, boundary []keyValue) ([]map[string][][]byte, error) {
	var splits [][]keyValue
	if first {
		splits = nil // input files are the splits
	} else {
		splits = splitRecords(boundary, e.mappers)
	}

	numTasks := len(splits)
	if first {
		numTasks = len(spec.Inputs)
	}

	buffers := make([]*bufferEmitter, numTasks)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.mappers)

	for t := 0; t < numTasks; t++ {
		t := t
		g.Go(func() error {
			tc := e.newTaskContext(gctx, conf)
			if step.Init != nil {
				if err := step.Init(tc); err != nil {
					return fmt.Errorf("map task init: %w", err)
				}
			}

			buf := newBufferEmitter(e.partitions)
			if first {
				if err := mapFile(tc, step, spec.Inputs[t], buf); err != nil {
					return err
				}
			} else {
				for _, kv := range splits[t] {
					if err := step.Map(tc, kv.Key, string(kv.Value), buf); err != nil {
						return err
					}
				}
			}

			if step.Combine != nil {
				combined, err := applyCombine(tc, step, buf, e.partitions)
				if err != nil {
					return err
				}
				buf = combined
			}

			buffers[t] = buf
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	grouped := make([]map[string][][]byte, e.partitions)
	for p := range grouped {
		grouped[p] = make(map[string][][]byte)
	}
	for _, buf := range buffers {
		for p, part := range buf.partitions {
			for key, vals := range part {
				grouped[p][key] = append(grouped[p][key], vals...)
			}
		}
	}
	return grouped, nil
}

// reducePhase runs one reduce task per partition. For the final step the
// output goes to part files; otherwise it becomes the next step's input.
func (e *engine) reducePhase(ctx context.Context, spec *JobSpec, step *Step, conf []byte, grouped []map[string][][]byte, final bool) ([]keyValue, error) {
	collected := make([][]keyValue, e.partitions)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.partitions)

	for p := 0; p < e.partitions; p++ {
		p := p
		g.Go(func() error {
			tc := e.newTaskContext(gctx, conf)
			if step.Init != nil {
				if err := step.Init(tc); err != nil {
					return fmt.Errorf("reduce task init: %w", err)
				}
			}

			var out Emitter
			var part *partFileEmitter
			var list *listEmitter
			if final {
				var err error
				part, err = newPartFileEmitter(filepath.Join(spec.OutputDir, fmt.Sprintf("part-%05d", p)))
				if err != nil {
					return err
				}
				out = part
			} else {
				list = &listEmitter{}
				out = list
			}

			keys := make([]string, 0, len(grouped[p]))
			for key := range grouped[p] {
				keys = append(keys, key)
			}
			sort.Strings(keys)

			for _, key := range keys {
				values := newValues(grouped[p][key])
				if err := step.Reduce(tc, key, values, out); err != nil {
					if part != nil {
						part.Close()
					}
					return err
				}
				if err := values.Err(); err != nil {
					if part != nil {
						part.Close()
					}
					return err
				}
			}

			if part != nil {
				return part.Close()
			}
			collected[p] = list.pairs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if final {
		return nil, nil
	}
	var boundary []keyValue
	for _, pairs := range collected {
		boundary = append(boundary, pairs...)
	}
	return boundary, nil
}

func (e *engine) newTaskContext(ctx context.Context, conf []byte) *TaskContext {
	return &TaskContext{Context: ctx, Config: conf, reporter: debugReporter{}}
}

// mapFile streams one input file through the map function, one line per
// record with an empty key.
func mapFile(tc *TaskContext, step *Step, path string, out Emitter) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open input %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		if err := step.Map(tc, "", scanner.Text(), out); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read input %s: %w", path, err)
	}
	return nil
}

// applyCombine runs the combiner over one map task's buffered output,
// key by key, and re-buckets the result.
func applyCombine(tc *TaskContext, step *Step, buf *bufferEmitter, partitions int) (*bufferEmitter, error) {
	out := newBufferEmitter(partitions)
	for _, part := range buf.partitions {
		keys := make([]string, 0, len(part))
		for key := range part {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			values := newValues(part[key])
			if err := step.Combine(tc, key, values, out); err != nil {
				return nil, err
			}
			if err := values.Err(); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// splitRecords chunks boundary records into at most n contiguous splits.
func splitRecords(records []keyValue, n int) [][]keyValue {
	if len(records) == 0 {
		// Preserve a single empty split so init-only side effects and
		// empty-input reduce semantics still run through the engine.
		return [][]keyValue{nil}
	}
	if n > len(records) {
		n = len(records)
	}
	splits := make([][]keyValue, 0, n)
	chunk := (len(records) + n - 1) / n
	for start := 0; start < len(records); start += chunk {
		end := min(start+chunk, len(records))
		splits = append(splits, records[start:end])
	}
	return splits
}

package mapreduce

// Hadoop streaming job submission. Each step becomes one streaming job
// whose mapper/combiner/reducer re-execute this binary in streaming task
// mode (the hidden mr-task command); the job configuration travels to
// the tasks through a -cmdenv environment variable.

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/standardbeagle/fim/internal/debug"
	fimerrors "github.com/standardbeagle/fim/internal/errors"
)

// JobConfigEnv is the environment variable that carries the JSON job
// configuration into streaming tasks.
const JobConfigEnv = "FIM_JOB_CONFIG"

// StreamingJarEnv points at the hadoop-streaming jar on the submitting
// host.
const StreamingJarEnv = "HADOOP_STREAMING_JAR"

// HadoopRunner submits each job step as a Hadoop streaming job.
type HadoopRunner struct {
	opts Options
}

// NewHadoopRunner creates a runner that submits to an external cluster.
func NewHadoopRunner(opts Options) *HadoopRunner {
	return &HadoopRunner{opts: opts}
}

func (r *HadoopRunner) Run(ctx context.Context, spec *JobSpec) error {
	jar := os.Getenv(StreamingJarEnv)
	if jar == "" {
		return fimerrors.NewJobError(spec.Name, "submit",
			fmt.Errorf("%s is not set; point it at the hadoop-streaming jar", StreamingJarEnv))
	}

	exe, err := os.Executable()
	if err != nil {
		return fimerrors.NewJobError(spec.Name, "submit", fmt.Errorf("failed to locate task binary: %w", err))
	}

	conf, err := marshalConfig(spec)
	if err != nil {
		return fimerrors.NewJobError(spec.Name, "submit", err)
	}

	inputs := spec.Inputs
	for i := range spec.Steps {
		final := i == len(spec.Steps)-1
		output := spec.OutputDir
		if !final {
			output = fmt.Sprintf("%s-step%d", strings.TrimSuffix(spec.OutputDir, "/"), i+1)
		}

		args := r.streamingArgs(spec, i, jar, exe, conf, inputs, output)
		debug.LogJob("%s: submitting step %d: hadoop %s", spec.Name, i+1, strings.Join(args, " "))

		cmd := exec.CommandContext(ctx, "hadoop", args...)
		var stderr bytes.Buffer
		cmd.Stdout = os.Stdout
		cmd.Stderr = &stderr
		if err := cmd.Run(); err != nil {
			return fimerrors.NewJobError(spec.Name, "run",
				fmt.Errorf("streaming job failed: %w\n%s", err, stderr.String())).WithStage(i + 1)
		}

		inputs = []string{output}
	}
	return nil
}

// streamingArgs builds the hadoop jar argument list for one step.
func (r *HadoopRunner) streamingArgs(spec *JobSpec, step int, jar, exe string, conf []byte, inputs []string, output string) []string {
	args := []string{"jar", jar}

	for _, kv := range r.opts.HadoopArgs {
		args = append(args, "-D", kv)
	}
	if r.opts.Owner != "" {
		args = append(args, "-D", "mapreduce.job.user.name="+r.opts.Owner)
	}
	if r.opts.Partitions > 0 {
		args = append(args, "-D", fmt.Sprintf("mapreduce.job.reduces=%d", r.opts.Partitions))
	}

	files := append([]string{exe}, spec.TaskFiles...)
	args = append(args, "-files", strings.Join(files, ","))

	if len(conf) > 0 {
		args = append(args, "-cmdenv", JobConfigEnv+"="+string(conf))
	}

	task := func(phase StreamPhase) string {
		return fmt.Sprintf("./%s mr-task --job %s --step %d --phase %s",
			filepath.Base(exe), spec.Name, step, phase)
	}
	args = append(args, "-mapper", task(PhaseMap))
	if spec.Steps[step].Combine != nil {
		args = append(args, "-combiner", task(PhaseCombine))
	}
	args = append(args, "-reducer", task(PhaseReduce))

	for _, in := range inputs {
		args = append(args, "-input", in)
	}
	args = append(args, "-output", output)
	return args
}

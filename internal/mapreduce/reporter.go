package mapreduce

// Task status and counter reporting. In-process runners route reports to
// the debug log; streaming tasks speak the Hadoop streaming reporter
// protocol on stderr so the framework tracks job counters.

import (
	"fmt"
	"io"

	"github.com/standardbeagle/fim/internal/debug"
)

// Reporter receives task counters and status updates.
type Reporter interface {
	IncrCounter(group, counter string, amount int)
	Statusf(format string, args ...any)
}

// debugReporter forwards reports to the debug log.
type debugReporter struct{}

func (debugReporter) IncrCounter(group, counter string, amount int) {
	debug.LogJob("counter %s/%s += %d", group, counter, amount)
}

func (debugReporter) Statusf(format string, args ...any) {
	debug.LogJob("status: "+format, args...)
}

// streamReporter emits Hadoop streaming reporter lines.
type streamReporter struct {
	w io.Writer
}

func (r streamReporter) IncrCounter(group, counter string, amount int) {
	fmt.Fprintf(r.w, "reporter:counter:%s,%s,%d\n", group, counter, amount)
}

func (r streamReporter) Statusf(format string, args ...any) {
	fmt.Fprintf(r.w, "reporter:status:%s\n", fmt.Sprintf(format, args...))
}

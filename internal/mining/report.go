package mining

// Console progress reporting for the driver. Kept apart from the
// algorithm so the mining loop stays output-agnostic; a nil *Reporter
// (or an io.Discard writer) silences the run entirely.

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/standardbeagle/fim/internal/itemset"
	"github.com/standardbeagle/fim/pkg/pathutil"
)

// Reporter renders driver progress to a writer.
type Reporter struct {
	w       io.Writer
	root    string // paths are shown relative to this directory
	display int    // itemsets shown per level summary
}

// NewReporter creates a reporter. Root anchors the relative path
// display; maxDisplay bounds the per-level itemset listing.
func NewReporter(w io.Writer, root string, maxDisplay int) *Reporter {
	if w == nil {
		w = io.Discard
	}
	return &Reporter{w: w, root: root, display: maxDisplay}
}

// Taskf prints an operation banner.
func (r *Reporter) Taskf(format string, args ...any) {
	if r == nil {
		return
	}
	fmt.Fprintf(r.w, "\n==> "+format+"\n", args...)
}

// Printf prints an indented detail line.
func (r *Reporter) Printf(format string, args ...any) {
	if r == nil {
		return
	}
	fmt.Fprintf(r.w, "    "+format+"\n", args...)
}

// Warnf prints a warning detail line.
func (r *Reporter) Warnf(format string, args ...any) {
	if r == nil {
		return
	}
	fmt.Fprintf(r.w, "    warning: "+format+"\n", args...)
}

// FileInfo prints a file's path, size, and line count.
func (r *Reporter) FileInfo(path, description string) {
	if r == nil {
		return
	}
	shown := pathutil.ToRelative(path, r.root)

	info, err := os.Stat(path)
	if err != nil {
		fmt.Fprintf(r.w, "    %s: %s (does not exist)\n", description, shown)
		return
	}
	lines, err := countLines(path)
	if err != nil {
		fmt.Fprintf(r.w, "    %s: %s (%d bytes)\n", description, shown, info.Size())
		return
	}
	fmt.Fprintf(r.w, "    %s: %s (%d bytes, %d lines)\n", description, shown, info.Size(), lines)
}

// ItemsetSummary prints the level's result statistics: record count,
// support range, and the highest-support itemsets.
func (r *Reporter) ItemsetSummary(records []itemset.SupportRecord) {
	if r == nil || len(records) == 0 {
		return
	}

	minSupport, maxSupport, sum := records[0].Support, records[0].Support, 0
	for _, rec := range records {
		minSupport = min(minSupport, rec.Support)
		maxSupport = max(maxSupport, rec.Support)
		sum += rec.Support
	}
	fmt.Fprintf(r.w, "    support range: %d - %d (avg: %.1f)\n",
		minSupport, maxSupport, float64(sum)/float64(len(records)))

	if r.display <= 0 {
		return
	}
	shown := min(r.display, len(records))
	top := make([]itemset.SupportRecord, len(records))
	copy(top, records)
	sort.SliceStable(top, func(i, j int) bool { return top[i].Support > top[j].Support })

	fmt.Fprintf(r.w, "    top %d itemsets:\n", shown)
	for _, rec := range top[:shown] {
		fmt.Fprintf(r.w, "      - %s (support: %d)\n", rec.Items, rec.Support)
	}
	if len(records) > shown {
		fmt.Fprintf(r.w, "      ... and %d more\n", len(records)-shown)
	}
}

// Finish prints the end-of-run summary.
func (r *Reporter) Finish(s *Summary) {
	if r == nil {
		return
	}
	fmt.Fprintf(r.w, "\ncompleted in %s\n", s.Duration.Round(10*time.Millisecond))
	fmt.Fprintf(r.w, "    total frequent itemsets: %d\n", s.TotalItemsets)
	fmt.Fprintf(r.w, "    levels processed: %d\n", s.Levels)
	fmt.Fprintf(r.w, "    min support: %d\n", s.MinSupport)
	fmt.Fprintf(r.w, "    final results: %s\n", pathutil.ToRelative(s.FinalFile, r.root))
}

func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		count++
	}
	return count, scanner.Err()
}

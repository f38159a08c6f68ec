package mining

// Artifact layout and file consolidation. Every MapReduce job writes
// part files into a per-level parts subdirectory; the driver combines
// them into per-level artifact files and, at the end of the run, into
// the final consolidated result.

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	fimerrors "github.com/standardbeagle/fim/internal/errors"
	"github.com/standardbeagle/fim/internal/itemset"
)

// Names making up the on-disk artifact tree.
const (
	frequentDirName  = "frequent-itemsets"
	candidateDirName = "candidate-itemsets"
	partsPrefix      = "_parts"
	frequentPrefix   = "frequent_itemsets"
	candidatePrefix  = "candidate_itemsets"
	fileExtension    = ".txt"
)

// Layout resolves every artifact path for one run rooted at a single
// directory. Per-level files are created during their iteration and
// never mutated afterward.
type Layout struct {
	Root string
}

// NewLayout creates a layout rooted at the given directory.
func NewLayout(root string) Layout {
	return Layout{Root: root}
}

// FrequentDir is the directory holding frequent itemset artifacts.
func (l Layout) FrequentDir() string {
	return filepath.Join(l.Root, frequentDirName)
}

// CandidateDir is the directory holding candidate itemset artifacts.
func (l Layout) CandidateDir() string {
	return filepath.Join(l.Root, candidateDirName)
}

// FrequentPartsDir is where the support counter writes its raw part
// files for one level.
func (l Layout) FrequentPartsDir(level int) string {
	return filepath.Join(l.FrequentDir(), fmt.Sprintf("%s_%d", partsPrefix, level))
}

// CandidatePartsDir is where the candidate generator writes its raw part
// files for one level.
func (l Layout) CandidatePartsDir(level int) string {
	return filepath.Join(l.CandidateDir(), fmt.Sprintf("%s_%d", partsPrefix, level))
}

// FrequentFile is the consolidated frequent itemsets file for one level.
func (l Layout) FrequentFile(level int) string {
	return filepath.Join(l.FrequentDir(), fmt.Sprintf("%s_%d%s", frequentPrefix, level, fileExtension))
}

// CandidateFile is the consolidated candidates file for one level.
func (l Layout) CandidateFile(level int) string {
	return filepath.Join(l.CandidateDir(), fmt.Sprintf("%s_%d%s", candidatePrefix, level, fileExtension))
}

// FinalFile is the end-of-run concatenation of every level's frequent
// itemsets.
func (l Layout) FinalFile() string {
	return filepath.Join(l.FrequentDir(), frequentPrefix+fileExtension)
}

// CombineParts concatenates a job's part files, in sorted filename order
// for determinism, into a single artifact file. Blank lines are dropped.
// Dotfiles, underscore-prefixed entries, and subdirectories are skipped.
func CombineParts(partsDir, outputPath string) (int, error) {
	entries, err := os.ReadDir(partsDir)
	if err != nil {
		return 0, fimerrors.NewArtifactError("list parts", partsDir, err)
	}

	var parts []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
			continue
		}
		parts = append(parts, name)
	}
	sort.Strings(parts)

	out, err := os.Create(outputPath)
	if err != nil {
		return 0, fimerrors.NewArtifactError("create", outputPath, err)
	}
	defer out.Close()

	w := bufio.NewWriter(out)
	written := 0
	for _, part := range parts {
		n, err := appendPartFile(filepath.Join(partsDir, part), w)
		if err != nil {
			return 0, err
		}
		written += n
	}
	if err := w.Flush(); err != nil {
		return 0, fimerrors.NewArtifactError("write", outputPath, err)
	}
	return written, nil
}

func appendPartFile(path string, w io.StringWriter) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fimerrors.NewArtifactError("read", path, err)
	}
	defer f.Close()

	written := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if _, err := w.WriteString(line + "\n"); err != nil {
			return 0, fimerrors.NewArtifactError("write", path, err)
		}
		written++
	}
	if err := scanner.Err(); err != nil {
		return 0, fimerrors.NewArtifactError("read", path, err)
	}
	return written, nil
}

// RefreshDir empties the directory, creating it if absent. With
// removeDir set the directory itself is removed after emptying, for
// runners that insist on creating their own output directory.
func RefreshDir(dir string, removeDir bool) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			if removeDir {
				return nil
			}
			return os.MkdirAll(dir, 0755)
		}
		return fimerrors.NewArtifactError("list", dir, err)
	}

	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			return fimerrors.NewArtifactError("remove", filepath.Join(dir, entry.Name()), err)
		}
	}
	if removeDir {
		if err := os.Remove(dir); err != nil {
			return fimerrors.NewArtifactError("remove", dir, err)
		}
	}
	return nil
}

// Clean removes every prior-run artifact: all level parts directories
// and the contents of the two artifact directories.
func (l Layout) Clean() error {
	cleanParts := func(partsDir func(int) string, startLevel int) error {
		for level := startLevel; ; level++ {
			dir := partsDir(level)
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				return nil
			}
			if err := RefreshDir(dir, true); err != nil {
				return err
			}
		}
	}

	if err := cleanParts(l.FrequentPartsDir, 1); err != nil {
		return err
	}
	// Candidate parts start at level 3: the 2-candidates are generated
	// locally without a shuffle.
	if err := cleanParts(l.CandidatePartsDir, 3); err != nil {
		return err
	}

	if err := RefreshDir(l.FrequentDir(), false); err != nil {
		return err
	}
	return RefreshDir(l.CandidateDir(), false)
}

// IsEmptyFile reports whether the file exists and holds no data.
func IsEmptyFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Size() == 0
}

// ReadSupportFile parses every well-formed record from an artifact file.
func ReadSupportFile(path string) ([]itemset.SupportRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fimerrors.NewArtifactError("read", path, err)
	}
	defer f.Close()
	return itemset.ReadSupportRecords(f)
}

// CountNonEmptyLines counts the data lines of an artifact file.
func CountNonEmptyLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fimerrors.NewArtifactError("read", path, err)
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) != "" {
			count++
		}
	}
	return count, scanner.Err()
}

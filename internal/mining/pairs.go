package mining

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	fimerrors "github.com/standardbeagle/fim/internal/errors"
	"github.com/standardbeagle/fim/internal/itemset"
)

// GeneratePairCandidates produces the 2-itemset candidates from frequent
// 1-itemset files: every unordered pair of distinct frequent singletons,
// written one per line in lexicographic order. This is a plain
// combinatorial join on a single host; no shuffle is needed at this
// level.
//
// The same singleton appearing with conflicting supports across input
// files means the lineage is inconsistent and is a fatal error.
func GeneratePairCandidates(outputPath string, inputPaths ...string) (int, error) {
	if len(inputPaths) == 0 {
		return 0, fimerrors.NewConfigError("mining", "inputs",
			fmt.Errorf("at least one input path must be provided"))
	}

	supports := make(map[string]int)
	seenIn := make(map[string]string)
	for _, path := range inputPaths {
		f, err := os.Open(path)
		if err != nil {
			return 0, fimerrors.NewArtifactError("read", path, err)
		}
		records, err := itemset.ReadSupportRecords(f)
		f.Close()
		if err != nil {
			return 0, fimerrors.NewArtifactError("read", path, err)
		}

		for _, rec := range records {
			item := rec.Items.String()
			if prev, ok := supports[item]; ok && prev != rec.Support {
				return 0, fimerrors.NewConsistencyError(item, []int{prev, rec.Support}).
					WithFiles(seenIn[item], path)
			}
			supports[item] = rec.Support
			seenIn[item] = path
		}
	}

	items := make([]string, 0, len(supports))
	for item := range supports {
		items = append(items, item)
	}
	sort.Strings(items)

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return 0, fimerrors.NewArtifactError("create directory", filepath.Dir(outputPath), err)
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return 0, fimerrors.NewArtifactError("create", outputPath, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	generated := 0
	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			if _, err := w.WriteString(items[i] + itemset.ItemSeparator + items[j] + "\n"); err != nil {
				return 0, fimerrors.NewArtifactError("write", outputPath, err)
			}
			generated++
		}
	}
	if err := w.Flush(); err != nil {
		return 0, fimerrors.NewArtifactError("write", outputPath, err)
	}
	return generated, nil
}

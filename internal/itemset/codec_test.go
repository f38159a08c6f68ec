package itemset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadItemsetFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "candidates.txt")
	content := "b a\n\nc d\n   \nx\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	sets := LoadItemsetFile(path)
	if len(sets) != 3 {
		t.Fatalf("expected 3 itemsets, got %d", len(sets))
	}
	if sets[0].String() != "a b" || sets[1].String() != "c d" || sets[2].String() != "x" {
		t.Errorf("unexpected itemsets: %v", sets)
	}
}

func TestLoadItemsetFileMissing(t *testing.T) {
	// An absent candidate file means no candidates, not an error.
	sets := LoadItemsetFile(filepath.Join(t.TempDir(), "nope.txt"))
	if len(sets) != 0 {
		t.Errorf("expected empty set for missing file, got %v", sets)
	}
}

func TestReadSupportRecords(t *testing.T) {
	input := "a b\t3\ngarbage\n\nc\t2\nd e\tnot_a_number\n"
	records, err := ReadSupportRecords(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].String() != "a b\t3" || records[1].String() != "c\t2" {
		t.Errorf("unexpected records: %v", records)
	}
}

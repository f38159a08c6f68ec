// Package testhelpers provides isolated test data creation for the
// mining packages: fluent builders that materialize transaction
// databases and lineage files in per-test temp directories.
package testhelpers

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TransactionDBBuilder accumulates transactions and writes them as a
// tab-separated database file. Raw lines can be interleaved to exercise
// malformed-input handling.
type TransactionDBBuilder struct {
	lines []string
}

// NewTransactionDB creates an empty builder.
func NewTransactionDB() *TransactionDBBuilder {
	return &TransactionDBBuilder{}
}

// Add appends one transaction with the given id and items.
func (b *TransactionDBBuilder) Add(tid string, items ...string) *TransactionDBBuilder {
	b.lines = append(b.lines, tid+"\t"+strings.Join(items, " "))
	return b
}

// AddRaw appends a raw line verbatim, malformed or otherwise.
func (b *TransactionDBBuilder) AddRaw(line string) *TransactionDBBuilder {
	b.lines = append(b.lines, line)
	return b
}

// String renders the database in its on-disk form.
func (b *TransactionDBBuilder) String() string {
	return strings.Join(b.lines, "\n") + "\n"
}

// WriteFile materializes the database in the test's temp directory and
// returns its path.
func (b *TransactionDBBuilder) WriteFile(t *testing.T) string {
	t.Helper()
	return WriteFile(t, "transactions.txt", b.String())
}

// WriteFile writes content under a fresh temp directory and returns the
// file's path.
func WriteFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

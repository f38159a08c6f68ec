package mapreduce

// Emitters for intermediate shuffle boundaries and final part files.

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// keyValue is one encoded record on a step boundary.
type keyValue struct {
	Key   string
	Value []byte
}

// encodeValue turns an emitted value into its shuffle representation.
func encodeValue(value any) ([]byte, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode emitted value: %w", err)
	}
	return raw, nil
}

// partitionFor assigns a key to one of n reduce partitions.
func partitionFor(key string, n int) int {
	if n <= 1 {
		return 0
	}
	return int(xxhash.Sum64String(key) % uint64(n))
}

// bufferEmitter collects emitted pairs in memory, already split by
// target reduce partition. One lives per map task, so no locking.
type bufferEmitter struct {
	partitions []map[string][][]byte
}

func newBufferEmitter(partitions int) *bufferEmitter {
	e := &bufferEmitter{partitions: make([]map[string][][]byte, partitions)}
	for i := range e.partitions {
		e.partitions[i] = make(map[string][][]byte)
	}
	return e
}

func (e *bufferEmitter) Emit(key string, value any) error {
	raw, err := encodeValue(value)
	if err != nil {
		return err
	}
	p := e.partitions[partitionFor(key, len(e.partitions))]
	p[key] = append(p[key], raw)
	return nil
}

// listEmitter collects emitted pairs as a flat ordered list. Used where
// the grouped form is not wanted: reduce output on step boundaries.
type listEmitter struct {
	pairs []keyValue
}

func (e *listEmitter) Emit(key string, value any) error {
	raw, err := encodeValue(value)
	if err != nil {
		return err
	}
	e.pairs = append(e.pairs, keyValue{Key: key, Value: raw})
	return nil
}

// partFileEmitter writes final reduce output for one partition into a
// part-NNNNN file in the job's output directory.
type partFileEmitter struct {
	f *os.File
	w *bufio.Writer
}

func newPartFileEmitter(path string) (*partFileEmitter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create part file %s: %w", path, err)
	}
	return &partFileEmitter{f: f, w: bufio.NewWriter(f)}, nil
}

func (e *partFileEmitter) Emit(key string, value any) error {
	line, err := formatOutput(key, value)
	if err != nil {
		return err
	}
	if _, err := e.w.WriteString(line); err != nil {
		return fmt.Errorf("failed to write part file %s: %w", e.f.Name(), err)
	}
	return e.w.WriteByte('\n')
}

func (e *partFileEmitter) Close() error {
	if err := e.w.Flush(); err != nil {
		e.f.Close()
		return fmt.Errorf("failed to flush part file %s: %w", e.f.Name(), err)
	}
	return e.f.Close()
}

// formatOutput renders a final-step record in the on-disk text form:
// "key\tvalue", or just the value when the key is empty (value-only
// output, e.g. generated candidates). Emitted values may be plain
// strings, integers, or pre-encoded JSON from an identity pass.
func formatOutput(key string, value any) (string, error) {
	text, err := valueText(value)
	if err != nil {
		return "", err
	}
	if key == "" {
		return text, nil
	}
	return key + "\t" + text, nil
}

func valueText(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case json.RawMessage:
		// An identity pass hands the previous step's encoding through;
		// unwrap JSON strings so files carry the bare text.
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			return s, nil
		}
		return string(v), nil
	default:
		return fmt.Sprint(v), nil
	}
}

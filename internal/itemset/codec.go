package itemset

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"
)

// Transaction is one database record: an opaque id and the items bought.
// The id is carried for diagnostics only; counting ignores it.
type Transaction struct {
	ID    string
	Items Itemset
}

// ParseTransaction parses a "tid\titem1 item2 ..." line. It returns
// ok=false for malformed lines: anything other than exactly two non-empty
// tab-separated fields. Malformed lines are the caller's cue to skip the
// record, never to fail the job.
func ParseTransaction(line string) (Transaction, bool) {
	fields := strings.Split(strings.TrimSpace(line), RecordFieldSeparator)
	if len(fields) != 2 {
		return Transaction{}, false
	}
	id := strings.TrimSpace(fields[0])
	items := Parse(fields[1])
	if id == "" || items.Len() == 0 {
		return Transaction{}, false
	}
	return Transaction{ID: id, Items: items}, true
}

// SupportRecord is one frequent-itemset line: canonical itemset plus its
// support count.
type SupportRecord struct {
	Items   Itemset
	Support int
}

// ParseSupportRecord parses an "item1 item2 ...\tsupport" line. Lines
// whose support field is not an unsigned decimal integer are rejected.
func ParseSupportRecord(line string) (SupportRecord, bool) {
	fields := strings.Split(strings.TrimSpace(line), RecordFieldSeparator)
	if len(fields) != 2 {
		return SupportRecord{}, false
	}
	itemsField := strings.TrimSpace(fields[0])
	supportField := strings.TrimSpace(fields[1])
	if itemsField == "" || supportField == "" {
		return SupportRecord{}, false
	}
	support, err := strconv.ParseUint(supportField, 10, 63)
	if err != nil {
		return SupportRecord{}, false
	}
	return SupportRecord{Items: Parse(itemsField), Support: int(support)}, true
}

// String renders the record in its on-disk form.
func (r SupportRecord) String() string {
	return r.Items.String() + RecordFieldSeparator + strconv.Itoa(r.Support)
}

// ReadSupportRecords parses every well-formed record from r, silently
// skipping blank and malformed lines.
func ReadSupportRecords(r io.Reader) ([]SupportRecord, error) {
	var out []SupportRecord
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		if rec, ok := ParseSupportRecord(scanner.Text()); ok {
			out = append(out, rec)
		}
	}
	return out, scanner.Err()
}

// LoadItemsetFile reads a candidates file: one canonical itemset per
// line. A missing or unreadable file is treated as an empty candidate
// set; at task-init time an absent file simply means "no candidates at
// this level".
func LoadItemsetFile(path string) []Itemset {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var out []Itemset
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		if s := Parse(scanner.Text()); s.Len() > 0 {
			out = append(out, s)
		}
	}
	if scanner.Err() != nil {
		return nil
	}
	return out
}

// Package rejectlog keeps a CSV record of input rows the engine skipped.
package rejectlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cleared-dev/txengine/internal/engine"
	"github.com/cleared-dev/txengine/internal/model"
)

// Entry is one row in the reject log.
type Entry struct {
	Batch  string
	Seq    int
	Type   string
	Client string
	Tx     string
	Amount string
	Reason string
	Detail string
}

// Header is the CSV header for the reject log.
const Header = "batch,seq,type,client,tx,amount,reason,detail"

const (
	numFields = 8
	colBatch  = 0
	colSeq    = 1
	colType   = 2
	colClient = 3
	colTx     = 4
	colAmount = 5
	colReason = 6
	colDetail = 7
)

// FromRejection converts an engine rejection to an Entry. Identifying fields
// are left empty when the row never parsed.
func FromRejection(r engine.Rejection) Entry {
	e := Entry{
		Batch:  r.Batch,
		Seq:    r.Seq,
		Type:   string(r.Record.Type),
		Reason: model.Reason(r.Err),
		Detail: r.Err.Error(),
	}
	if r.Record.Type != "" {
		e.Client = strconv.FormatUint(uint64(r.Record.Client), 10)
		e.Tx = strconv.FormatUint(uint64(r.Record.Tx), 10)
	}
	if r.Record.Amount.Valid {
		e.Amount = r.Record.Amount.Decimal.String()
	}
	return e
}

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colBatch] = e.Batch
	row[colSeq] = strconv.Itoa(e.Seq)
	row[colType] = e.Type
	row[colClient] = e.Client
	row[colTx] = e.Tx
	row[colAmount] = e.Amount
	row[colReason] = e.Reason
	row[colDetail] = e.Detail
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	seq, err := strconv.Atoi(record[colSeq])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing seq %q: %w", record[colSeq], err)
	}

	return Entry{
		Batch:  record[colBatch],
		Seq:    seq,
		Type:   record[colType],
		Client: record[colClient],
		Tx:     record[colTx],
		Amount: record[colAmount],
		Reason: record[colReason],
		Detail: record[colDetail],
	}, nil
}

// Writer collects the rejections of one batch and appends them to the log on
// Flush. Handle is meant to be passed to engine.WithRejectHandler.
type Writer struct {
	path    string
	pending []Entry
}

// NewWriter returns a Writer appending to the log at path.
func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

// Handle queues r for the next Flush.
func (w *Writer) Handle(r engine.Rejection) {
	w.pending = append(w.pending, FromRejection(r))
}

// Flush appends the queued entries, if any. The queue is cleared even when
// the write fails so one bad batch is not retried with the next.
func (w *Writer) Flush() error {
	if len(w.pending) == 0 {
		return nil
	}
	err := Append(w.path, w.pending)
	w.pending = w.pending[:0]
	return err
}

// Append writes entries to the log at path, creating the file and header if needed.
func Append(path string, entries []Entry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating reject log dir: %w", err)
	}

	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening reject log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)

	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Read returns all entries from the log at path.
// Returns an empty slice if the file does not exist.
func Read(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening reject log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading reject log CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

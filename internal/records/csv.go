// Package records reads raw transaction records. It types each row but does no
// business validation; that is the engine's job.
package records

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/txengine/internal/model"
)

const (
	minFields = 3
	maxFields = 4
	colType   = 0
	colClient = 1
	colTx     = 2
	colAmount = 3
)

// Reader streams records from CSV input one row at a time.
type Reader struct {
	cr    *csv.Reader
	first bool
}

// NewReader returns a Reader over r. A leading header row is optional.
func NewReader(r io.Reader) *Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true
	return &Reader{cr: cr, first: true}
}

// Next returns the next record, or io.EOF when the input is exhausted.
// Rows that cannot be typed return an error wrapping model.ErrMalformedRecord;
// the caller may skip them and keep reading. Any other error means the
// underlying stream failed.
func (r *Reader) Next() (model.Record, error) {
	for {
		row, err := r.cr.Read()
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				return model.Record{}, fmt.Errorf("line %d: %w: %w", perr.Line, model.ErrMalformedRecord, perr.Err)
			}
			return model.Record{}, err
		}
		line, _ := r.cr.FieldPos(0)

		if r.first {
			r.first = false
			if len(row) > 0 && strings.EqualFold(strings.TrimSpace(row[colType]), "type") {
				continue
			}
		}

		rec, err := UnmarshalRecord(row)
		if err != nil {
			return model.Record{}, fmt.Errorf("line %d: %w: %w", line, model.ErrMalformedRecord, err)
		}
		return rec, nil
	}
}

// UnmarshalRecord converts a CSV row to a Record.
func UnmarshalRecord(row []string) (model.Record, error) {
	if len(row) < minFields || len(row) > maxFields {
		return model.Record{}, fmt.Errorf("expected %d or %d fields, got %d", minFields, maxFields, len(row))
	}

	txType, err := model.ParseTxType(row[colType])
	if err != nil {
		return model.Record{}, err
	}

	client, err := strconv.ParseUint(strings.TrimSpace(row[colClient]), 10, 16)
	if err != nil {
		return model.Record{}, fmt.Errorf("parsing client %q: %w", row[colClient], err)
	}

	tx, err := strconv.ParseUint(strings.TrimSpace(row[colTx]), 10, 32)
	if err != nil {
		return model.Record{}, fmt.Errorf("parsing tx %q: %w", row[colTx], err)
	}

	rec := model.Record{
		Type:   txType,
		Client: uint16(client),
		Tx:     uint32(tx),
	}

	// The amount column is ignored for dispute lifecycle rows.
	if txType.RequiresAmount() && len(row) > colAmount {
		if s := strings.TrimSpace(row[colAmount]); s != "" {
			amount, err := decimal.NewFromString(s)
			if err != nil {
				return model.Record{}, fmt.Errorf("parsing amount %q: %w", s, err)
			}
			rec.Amount = decimal.NewNullDecimal(amount)
		}
	}
	return rec, nil
}

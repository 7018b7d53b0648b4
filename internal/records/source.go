package records

import (
	"io"

	"github.com/cleared-dev/txengine/internal/model"
)

// SliceSource yields records from memory, in order.
type SliceSource struct {
	recs []model.Record
	pos  int
}

// FromSlice returns a source over recs.
func FromSlice(recs []model.Record) *SliceSource {
	return &SliceSource{recs: recs}
}

// Next returns the next record, or io.EOF after the last one.
func (s *SliceSource) Next() (model.Record, error) {
	if s.pos >= len(s.recs) {
		return model.Record{}, io.EOF
	}
	rec := s.recs[s.pos]
	s.pos++
	return rec, nil
}

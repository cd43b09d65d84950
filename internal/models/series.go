package models

import (
	"fmt"
)

// SeriesStack is an ordered collection of ImageRecords forming a single
// 3-D acquisition. It is built on demand from loaded records and holds
// them by reference only; it is rebuilt whenever the underlying set
// changes rather than mutated in place.
type SeriesStack struct {
	// Records are the member slices in acquisition order.
	Records []*ImageRecord

	// Spacing is the uniform sampling step in mm as
	// (slice thickness, row spacing, column spacing), derived from the
	// first record.
	Spacing [3]float64

	// Origin is the patient-space position of the first slice.
	Origin [3]float64
}

// NewSeriesStack builds a stack from ordered records. All members must
// share the same row/column dimensions; the derived spacing and origin
// come from the first record.
func NewSeriesStack(records []*ImageRecord) (*SeriesStack, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("series stack requires at least one record")
	}

	first := records[0]
	for i, rec := range records {
		if rec.Rows != first.Rows || rec.Columns != first.Columns {
			return nil, fmt.Errorf("record %d dimensions %dx%d differ from series dimensions %dx%d",
				i, rec.Rows, rec.Columns, first.Rows, first.Columns)
		}
	}

	return &SeriesStack{
		Records: records,
		Spacing: [3]float64{first.SliceThickness, first.PixelSpacing[0], first.PixelSpacing[1]},
		Origin:  first.Position,
	}, nil
}

// Len returns the number of slices in the stack.
func (s *SeriesStack) Len() int {
	return len(s.Records)
}

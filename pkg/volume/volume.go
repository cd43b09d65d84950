// Package volume assembles ordered 2-D slice stacks into 3-D sampling
// grids and serves orthogonal cross-sections of them. Slices are
// promoted to calibrated units as they are stacked, so the grid can be
// re-windowed in any plane with the same display parameters as the
// source images.
package volume

import (
	"fmt"
	"math"
	"runtime"

	"gonum.org/v1/gonum/floats"

	"dicomcore/internal/models"
	"dicomcore/pkg/processor"
)

// Volume is a 3-D sampling grid in calibrated units, stored row-major
// as (depth, rows, cols).
type Volume struct {
	Data  []float64
	Depth int
	Rows  int
	Cols  int

	// Spacing is the physical step per axis in mm as
	// (slice thickness, row spacing, column spacing).
	Spacing [3]float64

	// Origin is the patient-space position of the first slice.
	Origin [3]float64
}

// At returns the voxel value at (z, r, c). Bounds are the caller's
// responsibility.
func (v *Volume) At(z, r, c int) float64 {
	return v.Data[z*v.Rows*v.Cols+r*v.Cols+c]
}

// Plane is one extracted 2-D cross-section.
type Plane struct {
	Data  []float64
	Rows  int
	Cols  int
	Index int
}

// SliceIndices selects the cross-section position along each axis.
// A nil index defaults to the midpoint of that axis; out-of-range
// indices are clamped rather than rejected.
type SliceIndices struct {
	Axial    *int
	Sagittal *int
	Coronal  *int
}

// OrthogonalSlices holds one cross-section per principal axis.
type OrthogonalSlices struct {
	Axial    Plane
	Sagittal Plane
	Coronal  Plane
}

// Assembler builds volumes from series stacks, converting slices in
// parallel across a bounded set of workers.
type Assembler struct {
	workers int
}

// NewAssembler creates an assembler using the given number of
// conversion workers. A non-positive count uses all available cores.
func NewAssembler(workers int) *Assembler {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Assembler{workers: workers}
}

// BuildVolume stacks each record's pixel buffer, promoted to
// calibrated units via its rescale parameters, along the slice axis.
// The resulting grid has shape (len(stack), rows, cols) with spacing
// and origin taken from the stack. An empty stack fails fast.
func (a *Assembler) BuildVolume(stack *models.SeriesStack) (*Volume, error) {
	if stack == nil || stack.Len() == 0 {
		return nil, fmt.Errorf("volume build requires at least one record")
	}

	first := stack.Records[0]
	rows, cols := first.Rows, first.Columns
	depth := stack.Len()
	sliceLen := rows * cols

	vol := &Volume{
		Data:    make([]float64, depth*sliceLen),
		Depth:   depth,
		Rows:    rows,
		Cols:    cols,
		Spacing: stack.Spacing,
		Origin:  stack.Origin,
	}

	type conversion struct {
		index int
		err   error
	}
	resultChan := make(chan conversion)
	sem := make(chan struct{}, a.workers)

	for i, rec := range stack.Records {
		go func(idx int, rec *models.ImageRecord) {
			sem <- struct{}{}
			defer func() { <-sem }()

			if rec.Rows != rows || rec.Columns != cols {
				resultChan <- conversion{index: idx, err: fmt.Errorf(
					"slice %d dimensions %dx%d differ from volume dimensions %dx%d",
					idx, rec.Rows, rec.Columns, rows, cols)}
				return
			}

			hu := processor.RecordToHounsfield(rec)
			copy(vol.Data[idx*sliceLen:(idx+1)*sliceLen], hu)
			resultChan <- conversion{index: idx}
		}(i, rec)
	}

	var firstErr error
	for completed := 0; completed < depth; completed++ {
		res := <-resultChan
		if res.err != nil && firstErr == nil {
			firstErr = res.err
		}
	}
	if firstErr != nil {
		return nil, fmt.Errorf("volume assembly failed: %w", firstErr)
	}
	return vol, nil
}

// ExtractOrthogonalSlices extracts the axial, sagittal and coronal
// cross-sections of a volume at the requested indices. Axial is a
// fixed-depth slab across rows and columns, sagittal a fixed-column
// slab across depth and rows, coronal a fixed-row slab across depth
// and columns.
func ExtractOrthogonalSlices(vol *Volume, indices SliceIndices) (*OrthogonalSlices, error) {
	if vol == nil || len(vol.Data) == 0 {
		return nil, fmt.Errorf("no volume data loaded")
	}

	axialIdx := clampIndex(indices.Axial, vol.Depth)
	sagittalIdx := clampIndex(indices.Sagittal, vol.Cols)
	coronalIdx := clampIndex(indices.Coronal, vol.Rows)

	axial := Plane{Data: make([]float64, vol.Rows*vol.Cols), Rows: vol.Rows, Cols: vol.Cols, Index: axialIdx}
	for r := 0; r < vol.Rows; r++ {
		for c := 0; c < vol.Cols; c++ {
			axial.Data[r*vol.Cols+c] = vol.At(axialIdx, r, c)
		}
	}

	sagittal := Plane{Data: make([]float64, vol.Depth*vol.Rows), Rows: vol.Depth, Cols: vol.Rows, Index: sagittalIdx}
	for z := 0; z < vol.Depth; z++ {
		for r := 0; r < vol.Rows; r++ {
			sagittal.Data[z*vol.Rows+r] = vol.At(z, r, sagittalIdx)
		}
	}

	coronal := Plane{Data: make([]float64, vol.Depth*vol.Cols), Rows: vol.Depth, Cols: vol.Cols, Index: coronalIdx}
	for z := 0; z < vol.Depth; z++ {
		for c := 0; c < vol.Cols; c++ {
			coronal.Data[z*vol.Cols+c] = vol.At(z, coronalIdx, c)
		}
	}

	return &OrthogonalSlices{Axial: axial, Sagittal: sagittal, Coronal: coronal}, nil
}

// clampIndex resolves a requested axis index: nil defaults to the axis
// midpoint, anything else is clamped to [0, size-1].
func clampIndex(requested *int, size int) int {
	if requested == nil {
		return size / 2
	}
	idx := *requested
	if idx < 0 {
		return 0
	}
	if idx >= size {
		return size - 1
	}
	return idx
}

// LUTMode selects the intensity transform applied by ApplyLUT.
type LUTMode string

const (
	LUTLinear  LUTMode = "linear"
	LUTLog     LUTMode = "log"
	LUTSqrt    LUTMode = "sqrt"
	LUTInverse LUTMode = "inverse"
)

// ApplyLUT applies an intensity look-up transform to a slice buffer
// and returns a new buffer. Unknown modes fall back to the identity
// transform rather than failing.
func ApplyLUT(data []float64, mode LUTMode) []float64 {
	out := make([]float64, len(data))
	switch mode {
	case LUTLog:
		for i, v := range data {
			out[i] = math.Log1p(v)
		}
	case LUTSqrt:
		for i, v := range data {
			out[i] = math.Sqrt(math.Abs(v))
		}
	case LUTInverse:
		if len(data) == 0 {
			return out
		}
		maxVal := floats.Max(data)
		for i, v := range data {
			out[i] = maxVal - v
		}
	default:
		copy(out, data)
	}
	return out
}

// ExtractRegion crops a 3-D sub-region from the volume, returned in
// row-major (depth, rows, cols) order. The region must lie entirely
// within the volume.
func ExtractRegion(vol *Volume, startZ, startR, startC, sizeZ, sizeR, sizeC int) ([]float64, error) {
	if vol == nil || len(vol.Data) == 0 {
		return nil, fmt.Errorf("no volume data loaded")
	}
	if startZ < 0 || startR < 0 || startC < 0 {
		return nil, fmt.Errorf("region start coordinates must be non-negative")
	}
	if sizeZ <= 0 || sizeR <= 0 || sizeC <= 0 {
		return nil, fmt.Errorf("region size dimensions must be positive")
	}
	if startZ+sizeZ > vol.Depth || startR+sizeR > vol.Rows || startC+sizeC > vol.Cols {
		return nil, fmt.Errorf("region extends beyond volume boundaries")
	}

	region := make([]float64, sizeZ*sizeR*sizeC)
	for z := 0; z < sizeZ; z++ {
		for r := 0; r < sizeR; r++ {
			for c := 0; c < sizeC; c++ {
				region[z*sizeR*sizeC+r*sizeC+c] = vol.At(startZ+z, startR+r, startC+c)
			}
		}
	}
	return region, nil
}

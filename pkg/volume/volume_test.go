package volume

import (
	"math"
	"testing"

	"dicomcore/internal/models"
)

// newTestStack builds a stack of depth slices sized rows x cols whose
// raw values encode their (z, r, c) coordinates, with rescale mapping
// raw to raw-1024 so calibration conversion is observable.
func newTestStack(t *testing.T, depth, rows, cols int) *models.SeriesStack {
	t.Helper()

	slope := 1.0
	intercept := -1024.0
	records := make([]*models.ImageRecord, 0, depth)
	for z := 0; z < depth; z++ {
		pixels := make([]int32, rows*cols)
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				pixels[r*cols+c] = int32(1024 + z*100 + r*10 + c)
			}
		}
		records = append(records, &models.ImageRecord{
			ID:               string(rune('a' + z)),
			Rows:             rows,
			Columns:          cols,
			PixelData:        pixels,
			PixelSpacing:     [2]float64{0.5, 0.5},
			SliceThickness:   2.0,
			Position:         [3]float64{0, 0, float64(z) * 2.0},
			RescaleSlope:     &slope,
			RescaleIntercept: &intercept,
			Modality:         "CT",
		})
	}

	stack, err := models.NewSeriesStack(records)
	if err != nil {
		t.Fatalf("Failed to build series stack: %v", err)
	}
	return stack
}

// TestBuildVolume verifies shape, spacing, origin and calibrated
// voxel values
func TestBuildVolume(t *testing.T) {
	stack := newTestStack(t, 3, 4, 5)
	a := NewAssembler(2)

	vol, err := a.BuildVolume(stack)
	if err != nil {
		t.Fatalf("BuildVolume failed: %v", err)
	}

	if vol.Depth != 3 || vol.Rows != 4 || vol.Cols != 5 {
		t.Fatalf("Expected 3x4x5 volume, got %dx%dx%d", vol.Depth, vol.Rows, vol.Cols)
	}
	if vol.Spacing != [3]float64{2.0, 0.5, 0.5} {
		t.Errorf("Expected spacing (2.0, 0.5, 0.5), got %v", vol.Spacing)
	}
	if vol.Origin != [3]float64{0, 0, 0} {
		t.Errorf("Expected origin at first slice, got %v", vol.Origin)
	}

	// Raw 1024+z*100+r*10+c converts to z*100+r*10+c HU.
	for z := 0; z < 3; z++ {
		for r := 0; r < 4; r++ {
			for c := 0; c < 5; c++ {
				expected := float64(z*100 + r*10 + c)
				if got := vol.At(z, r, c); got != expected {
					t.Fatalf("Voxel (%d,%d,%d): expected %.0f HU, got %.1f", z, r, c, expected, got)
				}
			}
		}
	}
}

// TestBuildVolumeEmpty verifies the fail-fast on empty input
func TestBuildVolumeEmpty(t *testing.T) {
	a := NewAssembler(1)

	if _, err := a.BuildVolume(nil); err == nil {
		t.Error("Expected error for nil stack")
	}
	if _, err := a.BuildVolume(&models.SeriesStack{}); err == nil {
		t.Error("Expected error for empty stack")
	}
}

// TestExtractOrthogonalSlices verifies the three planes carry the
// right values at explicit indices
func TestExtractOrthogonalSlices(t *testing.T) {
	stack := newTestStack(t, 3, 4, 5)
	vol, err := NewAssembler(1).BuildVolume(stack)
	if err != nil {
		t.Fatalf("BuildVolume failed: %v", err)
	}

	axial, sagittal, coronal := 1, 2, 3
	ortho, err := ExtractOrthogonalSlices(vol, SliceIndices{Axial: &axial, Sagittal: &sagittal, Coronal: &coronal})
	if err != nil {
		t.Fatalf("ExtractOrthogonalSlices failed: %v", err)
	}

	if ortho.Axial.Rows != 4 || ortho.Axial.Cols != 5 {
		t.Errorf("Expected 4x5 axial plane, got %dx%d", ortho.Axial.Rows, ortho.Axial.Cols)
	}
	if got := ortho.Axial.Data[2*5+3]; got != float64(1*100+2*10+3) {
		t.Errorf("Axial(2,3): expected 123, got %.1f", got)
	}

	if ortho.Sagittal.Rows != 3 || ortho.Sagittal.Cols != 4 {
		t.Errorf("Expected 3x4 sagittal plane, got %dx%d", ortho.Sagittal.Rows, ortho.Sagittal.Cols)
	}
	if got := ortho.Sagittal.Data[2*4+1]; got != float64(2*100+1*10+2) {
		t.Errorf("Sagittal(2,1): expected 212, got %.1f", got)
	}

	if ortho.Coronal.Rows != 3 || ortho.Coronal.Cols != 5 {
		t.Errorf("Expected 3x5 coronal plane, got %dx%d", ortho.Coronal.Rows, ortho.Coronal.Cols)
	}
	if got := ortho.Coronal.Data[1*5+4]; got != float64(1*100+3*10+4) {
		t.Errorf("Coronal(1,4): expected 134, got %.1f", got)
	}
}

// TestExtractOrthogonalSlicesDefaults verifies nil indices resolve to
// axis midpoints and out-of-range indices clamp
func TestExtractOrthogonalSlicesDefaults(t *testing.T) {
	stack := newTestStack(t, 4, 4, 4)
	vol, err := NewAssembler(1).BuildVolume(stack)
	if err != nil {
		t.Fatalf("BuildVolume failed: %v", err)
	}

	ortho, err := ExtractOrthogonalSlices(vol, SliceIndices{})
	if err != nil {
		t.Fatalf("ExtractOrthogonalSlices failed: %v", err)
	}
	if ortho.Axial.Index != 2 || ortho.Sagittal.Index != 2 || ortho.Coronal.Index != 2 {
		t.Errorf("Expected midpoint indices (2,2,2), got (%d,%d,%d)",
			ortho.Axial.Index, ortho.Sagittal.Index, ortho.Coronal.Index)
	}

	over := 100
	under := -5
	ortho, err = ExtractOrthogonalSlices(vol, SliceIndices{Axial: &over, Sagittal: &under})
	if err != nil {
		t.Fatalf("ExtractOrthogonalSlices failed: %v", err)
	}
	if ortho.Axial.Index != 3 {
		t.Errorf("Expected over-range axial index clamped to 3, got %d", ortho.Axial.Index)
	}
	if ortho.Sagittal.Index != 0 {
		t.Errorf("Expected under-range sagittal index clamped to 0, got %d", ortho.Sagittal.Index)
	}
}

// TestExtractOrthogonalSlicesNoVolume verifies the fail-fast on
// missing data
func TestExtractOrthogonalSlicesNoVolume(t *testing.T) {
	if _, err := ExtractOrthogonalSlices(nil, SliceIndices{}); err == nil {
		t.Error("Expected error for nil volume")
	}
	if _, err := ExtractOrthogonalSlices(&Volume{}, SliceIndices{}); err == nil {
		t.Error("Expected error for empty volume")
	}
}

// TestApplyLUT verifies each transform and the identity fallback
func TestApplyLUT(t *testing.T) {
	data := []float64{0, 1, 4, 9}

	linear := ApplyLUT(data, LUTLinear)
	for i := range data {
		if linear[i] != data[i] {
			t.Errorf("Linear LUT should be identity at %d", i)
		}
	}

	logOut := ApplyLUT(data, LUTLog)
	for i := range data {
		if math.Abs(logOut[i]-math.Log1p(data[i])) > 1e-12 {
			t.Errorf("Log LUT at %d: expected %f, got %f", i, math.Log1p(data[i]), logOut[i])
		}
	}

	sqrtOut := ApplyLUT([]float64{-4, 9}, LUTSqrt)
	if sqrtOut[0] != 2 || sqrtOut[1] != 3 {
		t.Errorf("Sqrt LUT should use absolute values, got %v", sqrtOut)
	}

	invOut := ApplyLUT(data, LUTInverse)
	for i := range data {
		if invOut[i] != 9-data[i] {
			t.Errorf("Inverse LUT at %d: expected %f, got %f", i, 9-data[i], invOut[i])
		}
	}

	unknown := ApplyLUT(data, LUTMode("posterize"))
	for i := range data {
		if unknown[i] != data[i] {
			t.Errorf("Unknown LUT mode should fall back to identity at %d", i)
		}
	}

	// The input buffer is never mutated.
	if data[0] != 0 || data[3] != 9 {
		t.Error("ApplyLUT must not mutate its input")
	}
}

// TestExtractRegion verifies the bounds-checked 3-D crop
func TestExtractRegion(t *testing.T) {
	stack := newTestStack(t, 3, 4, 5)
	vol, err := NewAssembler(1).BuildVolume(stack)
	if err != nil {
		t.Fatalf("BuildVolume failed: %v", err)
	}

	region, err := ExtractRegion(vol, 1, 1, 2, 2, 2, 2)
	if err != nil {
		t.Fatalf("ExtractRegion failed: %v", err)
	}
	if len(region) != 8 {
		t.Fatalf("Expected 8 voxels, got %d", len(region))
	}
	// region(0,0,0) corresponds to volume (1,1,2).
	if region[0] != float64(1*100+1*10+2) {
		t.Errorf("Expected region origin 112, got %.1f", region[0])
	}
	// region(1,1,1) corresponds to volume (2,2,3).
	if region[1*4+1*2+1] != float64(2*100+2*10+3) {
		t.Errorf("Expected region corner 223, got %.1f", region[7])
	}

	if _, err := ExtractRegion(vol, 0, 0, 0, 10, 1, 1); err == nil {
		t.Error("Expected error for region beyond volume bounds")
	}
	if _, err := ExtractRegion(vol, -1, 0, 0, 1, 1, 1); err == nil {
		t.Error("Expected error for negative start")
	}
	if _, err := ExtractRegion(vol, 0, 0, 0, 0, 1, 1); err == nil {
		t.Error("Expected error for non-positive size")
	}
}

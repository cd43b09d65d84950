package processor

import (
	"testing"

	"dicomcore/internal/models"
	"dicomcore/pkg/imagecache"
)

func newTestProcessor() *Processor {
	return New(Params{})
}

// TestApplyWindowingRange verifies that output values always lie in
// [0, 255] for a positive window over values far outside it
func TestApplyWindowingRange(t *testing.T) {
	p := newTestProcessor()
	pixels := []float64{-5000, -100, 0, 50, 100, 5000}

	out, err := p.ApplyWindowing(pixels, 2, 3, 100, 50, false)
	if err != nil {
		t.Fatalf("ApplyWindowing failed: %v", err)
	}
	if len(out) != len(pixels) {
		t.Fatalf("Expected %d output values, got %d", len(pixels), len(out))
	}

	// uint8 already bounds the range; check the extremes map to the
	// display extremes.
	if out[0] != 0 {
		t.Errorf("Expected value below window to map to 0, got %d", out[0])
	}
	if out[5] != 255 {
		t.Errorf("Expected value above window to map to 255, got %d", out[5])
	}
}

// TestApplyWindowingIdentity verifies the 1:1 mapping of a window
// exactly spanning 256 raw levels
func TestApplyWindowingIdentity(t *testing.T) {
	p := newTestProcessor()
	pixels := []float64{0, 128, 255, 64, 192, 32, 100, 150, 200}

	out, err := p.ApplyWindowing(pixels, 3, 3, 256, 128, false)
	if err != nil {
		t.Fatalf("ApplyWindowing failed: %v", err)
	}

	for i, v := range pixels {
		if out[i] != uint8(v) {
			t.Errorf("Pixel %d: expected identity mapping %d, got %d", i, int(v), out[i])
		}
	}
}

// TestApplyWindowingInvert verifies that invert produces 255-value
// relative to the non-inverted output
func TestApplyWindowingInvert(t *testing.T) {
	p := newTestProcessor()
	pixels := []float64{0, 128, 255, 64, 192, 32, 100, 150, 200}

	plain, err := p.ApplyWindowing(pixels, 3, 3, 256, 128, false)
	if err != nil {
		t.Fatalf("ApplyWindowing failed: %v", err)
	}
	inverted, err := p.ApplyWindowing(pixels, 3, 3, 256, 128, true)
	if err != nil {
		t.Fatalf("ApplyWindowing failed: %v", err)
	}

	for i := range plain {
		if inverted[i] != 255-plain[i] {
			t.Errorf("Pixel %d: expected %d, got %d", i, 255-plain[i], inverted[i])
		}
	}
}

// TestInvertInvolution verifies that applying the inversion twice
// recovers the non-inverted output
func TestInvertInvolution(t *testing.T) {
	p := newTestProcessor()
	pixels := []float64{-200, -10, 0, 37, 95, 400}

	plain, err := p.ApplyWindowing(pixels, 2, 3, 350, 50, false)
	if err != nil {
		t.Fatalf("ApplyWindowing failed: %v", err)
	}
	once, err := p.ApplyWindowing(pixels, 2, 3, 350, 50, true)
	if err != nil {
		t.Fatalf("ApplyWindowing failed: %v", err)
	}

	for i := range plain {
		if 255-once[i] != plain[i] {
			t.Errorf("Pixel %d: double inversion gives %d, expected %d", i, 255-once[i], plain[i])
		}
	}
}

// TestApplyWindowingZeroWidth verifies the degenerate window does not
// divide by zero and returns a deterministic flat array
func TestApplyWindowingZeroWidth(t *testing.T) {
	p := newTestProcessor()
	pixels := []float64{-100, 0, 100, 200}

	out, err := p.ApplyWindowing(pixels, 2, 2, 0, 50, false)
	if err != nil {
		t.Fatalf("ApplyWindowing failed on zero width: %v", err)
	}
	for i, v := range out {
		if v != 0 {
			t.Errorf("Pixel %d: expected flat 0 for degenerate window, got %d", i, v)
		}
	}

	inverted, err := p.ApplyWindowing(pixels, 2, 2, 0, 50, true)
	if err != nil {
		t.Fatalf("ApplyWindowing failed on inverted zero width: %v", err)
	}
	for i, v := range inverted {
		if v != 255 {
			t.Errorf("Pixel %d: expected flat 255 for inverted degenerate window, got %d", i, v)
		}
	}
}

// TestApplyWindowingShapeMismatch verifies the fail-fast on malformed
// buffers
func TestApplyWindowingShapeMismatch(t *testing.T) {
	p := newTestProcessor()

	if _, err := p.ApplyWindowing([]float64{1, 2, 3}, 2, 2, 100, 50, false); err == nil {
		t.Error("Expected error for buffer/dimension mismatch")
	}
	if _, err := p.ApplyWindowing(nil, 0, 0, 100, 50, false); err == nil {
		t.Error("Expected error for non-positive dimensions")
	}
}

// TestToHounsfield verifies the linear rescale transform
func TestToHounsfield(t *testing.T) {
	hu := ToHounsfield([]int32{0, 1024, 2048}, 1.0, -1024.0)

	expected := []float64{-1024, 0, 1024}
	for i := range expected {
		if hu[i] != expected[i] {
			t.Errorf("Value %d: expected %.0f HU, got %.1f", i, expected[i], hu[i])
		}
	}
}

// TestRecordToHounsfieldDefaults verifies the identity rescale is used
// when a record declares no parameters
func TestRecordToHounsfieldDefaults(t *testing.T) {
	rec := &models.ImageRecord{
		Rows: 1, Columns: 3,
		PixelData: []int32{-5, 0, 7},
	}

	hu := RecordToHounsfield(rec)
	expected := []float64{-5, 0, 7}
	for i := range expected {
		if hu[i] != expected[i] {
			t.Errorf("Value %d: expected %.0f, got %.1f", i, expected[i], hu[i])
		}
	}
}

// TestRenderUsesCache verifies the cache-through render path
func TestRenderUsesCache(t *testing.T) {
	cache := imagecache.New(4)
	p := New(Params{Cache: cache})

	rec := &models.ImageRecord{
		ID:   "img-1",
		Rows: 2, Columns: 2,
		PixelData: []int32{0, 64, 128, 255},
	}
	params := models.DisplayParameters{Width: 256, Center: 128}

	first, err := p.Render(rec, params)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if cache.Len() != 1 {
		t.Fatalf("Expected 1 cached entry after render, got %d", cache.Len())
	}

	cached, ok := cache.Get(rec.ID, params)
	if !ok {
		t.Fatal("Expected rendered array in cache")
	}
	for i := range first {
		if cached[i] != first[i] {
			t.Errorf("Byte %d: cached %d differs from rendered %d", i, cached[i], first[i])
		}
	}

	// A second render with identical parameters must not add entries.
	if _, err := p.Render(rec, params); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if cache.Len() != 1 {
		t.Errorf("Expected cache to stay at 1 entry, got %d", cache.Len())
	}
}

// TestOptimalWindowCT verifies the statistical window for CT stays
// centered on the mean
func TestOptimalWindowCT(t *testing.T) {
	pixels := []float64{40, 40, 40, 40, 60, 60, 60, 60}

	width, center := OptimalWindow(pixels, "CT")
	if center != 50 {
		t.Errorf("Expected center at mean 50, got %.1f", center)
	}
	if width <= 0 || width > 2000 {
		t.Errorf("Expected width in (0, 2000], got %.1f", width)
	}
}

// TestOptimalWindowPercentile verifies the percentile window for
// non-CT modalities spans the bulk of the data
func TestOptimalWindowPercentile(t *testing.T) {
	pixels := make([]float64, 100)
	for i := range pixels {
		pixels[i] = float64(i)
	}

	width, center := OptimalWindow(pixels, "MR")
	if width <= 0 {
		t.Errorf("Expected positive width, got %.1f", width)
	}
	if center < 40 || center > 60 {
		t.Errorf("Expected center near the median, got %.1f", center)
	}
}

// TestDefaultDisplayParameters verifies declared windows are rounded
// and modality presets back-fill missing ones
func TestDefaultDisplayParameters(t *testing.T) {
	ww := 350.6
	wc := 49.2
	rec := &models.ImageRecord{WindowWidth: &ww, WindowCenter: &wc}

	params := DefaultDisplayParameters(rec)
	if params.Width != 351 || params.Center != 49 {
		t.Errorf("Expected rounded 351/49, got %.1f/%.1f", params.Width, params.Center)
	}

	ct := &models.ImageRecord{Modality: "CT"}
	params = DefaultDisplayParameters(ct)
	if params.Width != 400 || params.Center != 40 {
		t.Errorf("Expected CT soft tissue preset 400/40, got %.1f/%.1f", params.Width, params.Center)
	}
}

// TestLookupPreset verifies case-insensitive preset lookup
func TestLookupPreset(t *testing.T) {
	preset, ok := LookupPreset("Lung")
	if !ok {
		t.Fatal("Expected lung preset to exist")
	}
	if preset.Width != 1500 || preset.Center != -600 {
		t.Errorf("Expected lung window 1500/-600, got %.0f/%.0f", preset.Width, preset.Center)
	}

	if _, ok := LookupPreset("no_such_preset"); ok {
		t.Error("Expected lookup miss for unknown preset")
	}
}

// Package processor implements the windowing and calibration engine:
// it maps raw scanner pixel values onto the 8-bit display range,
// converts raw values to calibrated Hounsfield units, and validates a
// record's declared calibration against reference physical standards.
//
// All transformations here are pure functions over caller-supplied
// buffers; the only shared state a Processor touches is the optional
// render cache it was constructed with.
package processor

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"dicomcore/internal/models"
	"dicomcore/pkg/imagecache"
)

// Params holds the engine configuration. All behavior-affecting values
// are passed in explicitly so results stay deterministic and testable.
type Params struct {
	// Cache memoizes rendered display arrays. Nil disables caching.
	Cache *imagecache.Cache

	// QA holds the calibration validation thresholds. The zero value
	// is replaced with DefaultQAThresholds.
	QA QAThresholds
}

// Processor is the windowing and calibration engine. It is safe for
// concurrent use: every operation is a pure function over its inputs,
// and the render cache serializes its own access.
type Processor struct {
	cache *imagecache.Cache
	qa    QAThresholds
}

// New creates a processor with the provided configuration.
func New(params Params) *Processor {
	qa := params.QA
	if qa == (QAThresholds{}) {
		qa = DefaultQAThresholds()
	}
	return &Processor{
		cache: params.Cache,
		qa:    qa,
	}
}

// ApplyWindowing maps a pixel buffer onto the 8-bit display range.
// Values are clipped to [center-width/2, center+width/2] and rescaled
// linearly so that each display level covers an equal-width input bin;
// a window spanning exactly 256 raw levels therefore maps 1:1. When
// invert is set the output is reflected as 255-value.
//
// The buffer may hold raw values or calibrated units; the window
// parameters are simply interpreted in the same units as the buffer.
// A degenerate window (non-positive width) produces a flat array of 0
// rather than dividing by zero. Output dimensions always equal input
// dimensions and every output value lies in [0, 255].
func (p *Processor) ApplyWindowing(pixels []float64, rows, cols int, width, center float64, invert bool) ([]uint8, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("invalid dimensions %dx%d", rows, cols)
	}
	if len(pixels) != rows*cols {
		return nil, fmt.Errorf("pixel buffer length %d does not match dimensions %dx%d", len(pixels), rows, cols)
	}

	minVal := center - width/2
	maxVal := center + width/2
	out := make([]uint8, len(pixels))

	if maxVal <= minVal {
		// Degenerate window: everything maps to the minimum display
		// value. Inversion still applies.
		if invert {
			for i := range out {
				out[i] = 255
			}
		}
		return out, nil
	}

	scale := 256.0 / (maxVal - minVal)
	for i, v := range pixels {
		if v < minVal {
			v = minVal
		} else if v > maxVal {
			v = maxVal
		}
		level := math.Floor((v - minVal) * scale)
		if level > 255 {
			level = 255
		}
		if invert {
			level = 255 - level
		}
		out[i] = uint8(level)
	}
	return out, nil
}

// ApplyWindowingRaw windows a raw integer buffer directly, promoting it
// to float64 first. Used when the caller's window parameters are
// expressed in raw stored values rather than calibrated units.
func (p *Processor) ApplyWindowingRaw(pixels []int32, rows, cols int, width, center float64, invert bool) ([]uint8, error) {
	promoted := make([]float64, len(pixels))
	for i, v := range pixels {
		promoted[i] = float64(v)
	}
	return p.ApplyWindowing(promoted, rows, cols, width, center, invert)
}

// Render produces the display array for a record under the given
// display parameters, consulting the render cache first and storing the
// result on a miss. The window is applied to the record's raw buffer.
func (p *Processor) Render(rec *models.ImageRecord, params models.DisplayParameters) ([]uint8, error) {
	if p.cache != nil {
		if data, ok := p.cache.Get(rec.ID, params); ok {
			return data, nil
		}
	}

	data, err := p.ApplyWindowingRaw(rec.PixelData, rec.Rows, rec.Columns, params.Width, params.Center, params.Invert)
	if err != nil {
		return nil, err
	}
	if p.cache != nil {
		p.cache.Put(rec.ID, params, data)
	}
	return data, nil
}

// ToHounsfield converts raw pixel values to calibrated units using the
// linear rescale transform calibrated = raw*slope + intercept.
func ToHounsfield(pixels []int32, slope, intercept float64) []float64 {
	out := make([]float64, len(pixels))
	for i, v := range pixels {
		out[i] = float64(v)*slope + intercept
	}
	return out
}

// RecordToHounsfield converts a record's raw buffer to calibrated
// units using its declared rescale parameters, substituting the
// identity transform when they are absent.
func RecordToHounsfield(rec *models.ImageRecord) []float64 {
	return ToHounsfield(rec.PixelData, rec.Slope(), rec.Intercept())
}

// OptimalWindow estimates display window parameters from image
// statistics. CT images use a mean-centered window spanning three
// standard deviations (capped at 2000); other modalities use the
// 5th-95th percentile spread.
func OptimalWindow(pixels []float64, modality string) (width, center float64) {
	if len(pixels) == 0 {
		return 2000, 1000
	}

	if modality == "CT" {
		mean, std := stat.MeanStdDev(pixels, nil)
		width = math.Min(3*std, 2000)
		center = mean
		return width, center
	}

	sorted := make([]float64, len(pixels))
	copy(sorted, pixels)
	sort.Float64s(sorted)
	p5 := stat.Quantile(0.05, stat.Empirical, sorted, nil)
	p95 := stat.Quantile(0.95, stat.Empirical, sorted, nil)
	return p95 - p5, (p95 + p5) / 2
}

// DefaultDisplayParameters returns the display window to use for a
// record when the viewer has not chosen one: the acquisition's
// declared window when present, otherwise the modality preset.
// Width and center are rounded so repeated lookups share cache keys.
func DefaultDisplayParameters(rec *models.ImageRecord) models.DisplayParameters {
	if rec.WindowWidth != nil && rec.WindowCenter != nil {
		return models.DisplayParameters{
			Width:  math.Round(*rec.WindowWidth),
			Center: math.Round(*rec.WindowCenter),
		}
	}

	preset := PresetForModality(rec.Modality)
	return models.DisplayParameters{
		Width:  preset.Width,
		Center: preset.Center,
	}
}

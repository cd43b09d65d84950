package models

// ImageRecord represents a single validated 2-D scanner slice with its
// acquisition metadata. Records are constructed once by the loader and
// are immutable afterwards; a SeriesStack or volume shares them by
// reference and never copies the pixel buffer.
type ImageRecord struct {
	// ID uniquely identifies the image. It is the source's instance UID
	// when one was present, otherwise a UUID assigned at load time.
	ID string

	// Rows and Columns are the pixel grid dimensions. Both are positive.
	Rows    int
	Columns int

	// PixelData holds the raw pixel values in row-major order with
	// exactly Rows*Columns elements. Values carry the native bit depth
	// of the scanner (up to 16-bit signed or unsigned).
	PixelData []int32

	// PixelSpacing is the physical size of one pixel in mm as
	// (row spacing, column spacing). Defaults to 1.0 mm each.
	PixelSpacing [2]float64

	// SliceThickness is the physical thickness of the slice in mm.
	// Defaults to 1.0 mm.
	SliceThickness float64

	// Position is the patient-space (x, y, z) position of the slice
	// origin in mm. Defaults to the patient-space origin.
	Position [3]float64

	// Orientation holds the direction cosines of the row and column
	// axes. Defaults to the identity orientation (1,0,0, 0,1,0).
	Orientation [6]float64

	// RescaleSlope and RescaleIntercept map raw pixel values to
	// calibrated physical units. Nil when the source did not declare
	// them; Slope and Intercept apply the documented defaults.
	RescaleSlope     *float64
	RescaleIntercept *float64

	// RescaleType labels the calibrated unit, e.g. "HU". Empty when
	// the source did not declare one.
	RescaleType string

	// WindowWidth and WindowCenter are the acquisition's suggested
	// display window, when one was declared.
	WindowWidth  *float64
	WindowCenter *float64

	// Modality is the acquisition modality code, e.g. "CT" or "MR".
	Modality string

	// InstanceNumber and SliceLocation are optional ordering hints.
	InstanceNumber *int
	SliceLocation  *float64

	// Device and acquisition description fields. All optional; empty
	// when the source omitted them.
	Manufacturer    string
	ModelName       string
	StationName     string
	CalibrationDate string

	// Descriptive identifiers carried through for caller bookkeeping.
	PatientID         string
	StudyUID          string
	StudyDate         string
	StudyDescription  string
	SeriesUID         string
	SeriesDescription string
	BodyPart          string
	BitsStored        int
}

// Slope returns the rescale slope, defaulting to 1.0 when absent.
func (r *ImageRecord) Slope() float64 {
	if r.RescaleSlope == nil {
		return 1.0
	}
	return *r.RescaleSlope
}

// Intercept returns the rescale intercept, defaulting to 0.0 when absent.
func (r *ImageRecord) Intercept() float64 {
	if r.RescaleIntercept == nil {
		return 0.0
	}
	return *r.RescaleIntercept
}

// HasRescale reports whether the source declared both rescale parameters.
func (r *ImageRecord) HasRescale() bool {
	return r.RescaleSlope != nil && r.RescaleIntercept != nil
}

// DisplayParameters selects the display mapping for a rendered image.
// It is a value type: two parameter sets compare equal exactly, with no
// floating tolerance, so callers should quantize width and center
// consistently (e.g. round to the nearest integer) before caching.
type DisplayParameters struct {
	// Width is the window width in the units of the windowed buffer.
	Width float64

	// Center is the window center in the units of the windowed buffer.
	Center float64

	// Invert reflects the display output (255 - value) when set.
	Invert bool
}

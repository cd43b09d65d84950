// Package loader turns raw scanner-image sources into validated
// ImageRecords and orders them into series stacks. Sources arrive
// already decoded from whatever wire or file format they originated
// in; this package only validates structure, applies the documented
// defaults for missing optional metadata, and sorts.
package loader

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"dicomcore/internal/models"
)

// RawImage is one decoded scanner-image source. Mandatory structure is
// the pixel grid; every other field is optional and carries a nil or
// empty value when the acquisition device omitted it.
type RawImage struct {
	// SOPInstanceUID identifies the image. When empty the loader
	// assigns a fresh UUID so the record still has a cache identity.
	SOPInstanceUID string

	Rows      int
	Columns   int
	PixelData []int32

	// Optional geometry. Defaults: 1.0 mm spacing and thickness,
	// origin position, identity orientation.
	PixelSpacing         *[2]float64
	SliceThickness       *float64
	SpacingBetweenSlices *float64
	Position             *[3]float64
	Orientation          *[6]float64

	// Optional calibration and display hints.
	RescaleSlope     *float64
	RescaleIntercept *float64
	RescaleType      string
	WindowWidth      *float64
	WindowCenter     *float64

	// Optional ordering hints, in priority order.
	InstanceNumber *int
	SliceLocation  *float64

	Modality        string
	Manufacturer    string
	ModelName       string
	StationName     string
	CalibrationDate string

	PatientID         string
	StudyUID          string
	StudyDate         string
	StudyDescription  string
	SeriesUID         string
	SeriesDescription string
	BodyPart          string
	BitsStored        int
}

// SourceFailure records one source that could not be loaded.
type SourceFailure struct {
	SourceID string
	Err      error
}

// SeriesResult is the outcome of a series load: the records that
// loaded, in acquisition order, alongside the sources that failed.
type SeriesResult struct {
	Records  []*models.ImageRecord
	Failures []SourceFailure
}

// Loader validates sources and assembles series. The logger receives
// one entry per failed source; a nil logger discards them.
type Loader struct {
	log *logrus.Logger
}

// New creates a loader logging per-source failures to log. Passing nil
// disables logging.
func New(log *logrus.Logger) *Loader {
	return &Loader{log: log}
}

// Load validates a single source and materializes it into an immutable
// ImageRecord, substituting the documented defaults for any missing
// optional metadata.
func (l *Loader) Load(src *RawImage) (*models.ImageRecord, error) {
	if src == nil {
		return nil, fmt.Errorf("nil source")
	}
	if src.Rows <= 0 || src.Columns <= 0 {
		return nil, fmt.Errorf("invalid dimensions %dx%d", src.Rows, src.Columns)
	}
	if len(src.PixelData) != src.Rows*src.Columns {
		return nil, fmt.Errorf("pixel buffer length %d does not match dimensions %dx%d",
			len(src.PixelData), src.Rows, src.Columns)
	}

	rec := &models.ImageRecord{
		ID:               src.SOPInstanceUID,
		Rows:             src.Rows,
		Columns:          src.Columns,
		PixelData:        src.PixelData,
		PixelSpacing:     [2]float64{1.0, 1.0},
		SliceThickness:   1.0,
		Orientation:      [6]float64{1, 0, 0, 0, 1, 0},
		RescaleSlope:     src.RescaleSlope,
		RescaleIntercept: src.RescaleIntercept,
		RescaleType:      src.RescaleType,
		WindowWidth:      src.WindowWidth,
		WindowCenter:     src.WindowCenter,
		Modality:         src.Modality,
		InstanceNumber:   src.InstanceNumber,
		SliceLocation:    src.SliceLocation,
		Manufacturer:     src.Manufacturer,
		ModelName:        src.ModelName,
		StationName:      src.StationName,
		CalibrationDate:  src.CalibrationDate,

		PatientID:         src.PatientID,
		StudyUID:          src.StudyUID,
		StudyDate:         src.StudyDate,
		StudyDescription:  src.StudyDescription,
		SeriesUID:         src.SeriesUID,
		SeriesDescription: src.SeriesDescription,
		BodyPart:          src.BodyPart,
		BitsStored:        src.BitsStored,
	}

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if src.PixelSpacing != nil {
		rec.PixelSpacing = *src.PixelSpacing
	}
	if src.SliceThickness != nil {
		rec.SliceThickness = *src.SliceThickness
	} else if src.SpacingBetweenSlices != nil {
		rec.SliceThickness = *src.SpacingBetweenSlices
	}
	if src.Position != nil {
		rec.Position = *src.Position
	}
	if src.Orientation != nil {
		rec.Orientation = *src.Orientation
	}

	return rec, nil
}

// ValidateSource performs a lightweight structural check without
// touching the pixel buffer, used to pre-filter candidates before
// committing to a full load.
func (l *Loader) ValidateSource(src *RawImage) bool {
	if src == nil {
		return false
	}
	if src.Rows <= 0 || src.Columns <= 0 {
		return false
	}
	if src.PixelSpacing != nil && (src.PixelSpacing[0] <= 0 || src.PixelSpacing[1] <= 0) {
		return false
	}
	if src.SliceThickness != nil && *src.SliceThickness <= 0 {
		return false
	}
	return true
}

// LoadSeries loads every source, capturing per-source failures instead
// of aborting: a single corrupt source never sinks the series. The
// surviving records are sorted by instance number when present, then
// declared slice location, then the z component of the patient-space
// position, and finally by arrival order. The call fails only when no
// source loaded at all.
func (l *Loader) LoadSeries(sources []*RawImage) (*SeriesResult, error) {
	result := &SeriesResult{}

	type ordered struct {
		rec *models.ImageRecord
		key float64
	}
	var loaded []ordered

	for i, src := range sources {
		rec, err := l.Load(src)
		if err != nil {
			id := fmt.Sprintf("source[%d]", i)
			if src != nil && src.SOPInstanceUID != "" {
				id = src.SOPInstanceUID
			}
			result.Failures = append(result.Failures, SourceFailure{SourceID: id, Err: err})
			if l.log != nil {
				l.log.WithFields(logrus.Fields{
					"source": id,
					"error":  err,
				}).Warn("skipping unreadable image source")
			}
			continue
		}
		loaded = append(loaded, ordered{rec: rec, key: orderingKey(src)})
	}

	if len(loaded) == 0 {
		return nil, fmt.Errorf("no valid images in series: all %d sources failed", len(sources))
	}

	sort.SliceStable(loaded, func(i, j int) bool {
		return loaded[i].key < loaded[j].key
	})
	for _, o := range loaded {
		result.Records = append(result.Records, o.rec)
	}
	return result, nil
}

// orderingKey resolves the clinical ordering hints in priority order:
// instance number, slice location, position z. Sources carrying none
// of them keep their arrival order under the stable sort.
func orderingKey(src *RawImage) float64 {
	switch {
	case src.InstanceNumber != nil:
		return float64(*src.InstanceNumber)
	case src.SliceLocation != nil:
		return *src.SliceLocation
	case src.Position != nil:
		return src.Position[2]
	default:
		return 0
	}
}

// Stack orders loaded records into a SeriesStack, enforcing the
// uniform-dimension invariant and deriving spacing and origin.
func (l *Loader) Stack(records []*models.ImageRecord) (*models.SeriesStack, error) {
	return models.NewSeriesStack(records)
}

// ExtractMetadata flattens every clinically relevant descriptive field
// of a record into a key/value map. Absent fields default to empty or
// zero values instead of being omitted, since metadata completeness
// varies by acquisition device.
func ExtractMetadata(rec *models.ImageRecord) map[string]interface{} {
	meta := map[string]interface{}{
		"sop_instance_uid":    rec.ID,
		"patient_id":          rec.PatientID,
		"study_instance_uid":  rec.StudyUID,
		"study_date":          rec.StudyDate,
		"study_description":   rec.StudyDescription,
		"series_instance_uid": rec.SeriesUID,
		"series_description":  rec.SeriesDescription,
		"modality":            rec.Modality,
		"body_part_examined":  rec.BodyPart,
		"manufacturer":        rec.Manufacturer,
		"model_name":          rec.ModelName,
		"station_name":        rec.StationName,
		"calibration_date":    rec.CalibrationDate,
		"rows":                rec.Rows,
		"columns":             rec.Columns,
		"bits_stored":         rec.BitsStored,
		"pixel_spacing_row":   rec.PixelSpacing[0],
		"pixel_spacing_col":   rec.PixelSpacing[1],
		"slice_thickness":     rec.SliceThickness,
		"image_position":      rec.Position,
		"image_orientation":   rec.Orientation,
		"rescale_slope":       rec.Slope(),
		"rescale_intercept":   rec.Intercept(),
	}

	meta["instance_number"] = 0
	if rec.InstanceNumber != nil {
		meta["instance_number"] = *rec.InstanceNumber
	}
	meta["slice_location"] = 0.0
	if rec.SliceLocation != nil {
		meta["slice_location"] = *rec.SliceLocation
	}
	meta["window_width"] = 0.0
	if rec.WindowWidth != nil {
		meta["window_width"] = *rec.WindowWidth
	}
	meta["window_center"] = 0.0
	if rec.WindowCenter != nil {
		meta["window_center"] = *rec.WindowCenter
	}
	return meta
}

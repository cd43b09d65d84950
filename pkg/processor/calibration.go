package processor

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"dicomcore/internal/models"
)

// CalibrationStatus is the machine-readable outcome of a calibration
// validation run.
type CalibrationStatus string

const (
	// StatusNotApplicable marks modalities whose pixel values are not
	// a linearly calibrated physical quantity.
	StatusNotApplicable CalibrationStatus = "not_applicable"

	// StatusValid marks a calibration with no fatal issues.
	StatusValid CalibrationStatus = "valid"

	// StatusInvalid marks a calibration with at least one fatal issue.
	StatusInvalid CalibrationStatus = "invalid"

	// StatusError marks a validation run that could not complete
	// because its input was malformed.
	StatusError CalibrationStatus = "error"
)

// QAThresholds are the tolerances applied when validating Hounsfield
// calibration against reference materials.
type QAThresholds struct {
	// WaterToleranceHU is the maximum acceptable deviation of the
	// water reference point from 0 HU. Exceeding it is fatal.
	WaterToleranceHU float64

	// AirToleranceHU is the maximum acceptable deviation of the air
	// reference point from -1000 HU. Exceeding it is fatal.
	AirToleranceHU float64

	// SlopeTolerance is the maximum acceptable deviation of the
	// rescale slope from 1.0. Exceeding it is a warning only.
	SlopeTolerance float64

	// NoiseThresholdHU is the standard deviation above which the
	// central-region noise estimate triggers a warning.
	NoiseThresholdHU float64
}

// DefaultQAThresholds returns the standard quality-assurance
// tolerances for CT Hounsfield calibration.
func DefaultQAThresholds() QAThresholds {
	return QAThresholds{
		WaterToleranceHU: 5,
		AirToleranceHU:   50,
		SlopeTolerance:   0.01,
		NoiseThresholdHU: 10,
	}
}

// Reference Hounsfield values for common materials. Water and air are
// the two reference points validated against scanner output.
var HounsfieldReferences = map[string]float64{
	"air":           -1000,
	"lung":          -500,
	"fat":           -100,
	"water":         0,
	"blood":         40,
	"muscle":        50,
	"grey_matter":   40,
	"white_matter":  25,
	"liver":         60,
	"bone_spongy":   300,
	"bone_cortical": 1000,
	"metal":         3000,
}

// Bands and sample requirements for the image-based reference-point
// estimates. An estimate is only trusted when enough pixels fall in
// the candidate band.
const (
	waterBandHU      = 50   // candidates within ±50 HU of water
	airCeilingHU     = -900 // candidates below this count as air
	minSampleCount   = 100
	noiseRegionFrac  = 0.1
	expectedUnitType = "HU"
)

// CalibrationReport is the outcome of validating a record's declared
// calibration. Issues are fatal, warnings are not. The optional
// measurements hold the image-derived reference-point estimates when
// enough qualifying pixels were found. Reports are immutable once
// produced.
type CalibrationReport struct {
	IsValid  bool
	Issues   []string
	Warnings []string
	Status   CalibrationStatus

	// WaterHU and AirHU are the estimated calibrated values of the
	// water and air reference points; nil when too few qualifying
	// pixels existed to trust an estimate.
	WaterHU *float64
	AirHU   *float64

	// NoiseHU is the standard deviation of the central sub-region of
	// the calibrated image; nil when the region was too small.
	NoiseHU *float64
}

// CalibrationSummary wraps a validation outcome with device and
// acquisition metadata plus actionable recommendations.
type CalibrationSummary struct {
	GeneratedAt     time.Time
	Modality        string
	Manufacturer    string
	ModelName       string
	StationName     string
	CalibrationDate string
	Validation      *CalibrationReport
	Recommendations []string
}

// ValidateCalibration assesses whether a record's declared Hounsfield
// calibration is trustworthy for quantitative reading.
//
// Only CT pixel values represent a linearly calibrated physical
// quantity, so other modalities return StatusNotApplicable with
// IsValid true. A record missing rescale parameters is invalid
// outright. When pixels is non-nil the validator additionally
// estimates the water and air reference points from the image content
// and compares them against the configured tolerances, and measures
// noise over the central region.
//
// The reference-point estimation is a documented heuristic: it takes
// the median of the dominant intensity cluster near each expected
// value and has no guaranteed accuracy bound. It complements, and does
// not replace, an engineered phantom-based QA procedure.
func (p *Processor) ValidateCalibration(rec *models.ImageRecord, pixels []int32) *CalibrationReport {
	report := &CalibrationReport{IsValid: true}

	if rec.Modality != "CT" {
		report.Status = StatusNotApplicable
		report.Warnings = append(report.Warnings, "Hounsfield units only applicable to CT images")
		return report
	}

	if rec.RescaleSlope == nil || rec.RescaleIntercept == nil {
		report.IsValid = false
		report.Issues = append(report.Issues, "missing rescale parameters (slope/intercept)")
		report.Status = StatusInvalid
		return report
	}

	slope := *rec.RescaleSlope
	if math.Abs(slope-1.0) > p.qa.SlopeTolerance {
		report.Warnings = append(report.Warnings, fmt.Sprintf("unusual rescale slope: %g (expected: 1.0)", slope))
	}

	if rec.RescaleType != "" && rec.RescaleType != expectedUnitType {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("rescale type is %q, not %q", rec.RescaleType, expectedUnitType))
	}

	if pixels != nil {
		if rec.Rows <= 0 || rec.Columns <= 0 || len(pixels) != rec.Rows*rec.Columns {
			// The validation itself cannot proceed on a malformed
			// buffer; this is the one path that reports an error
			// status rather than a calibration verdict.
			report.IsValid = false
			report.Issues = append(report.Issues, fmt.Sprintf(
				"validation error: pixel buffer length %d does not match dimensions %dx%d",
				len(pixels), rec.Rows, rec.Columns))
			report.Status = StatusError
			return report
		}

		hu := ToHounsfield(pixels, slope, *rec.RescaleIntercept)

		report.WaterHU = estimateWaterHU(hu)
		report.AirHU = estimateAirHU(hu)
		report.NoiseHU = estimateNoise(hu, rec.Rows, rec.Columns)

		if report.WaterHU != nil {
			deviation := math.Abs(*report.WaterHU - HounsfieldReferences["water"])
			if deviation > p.qa.WaterToleranceHU {
				report.IsValid = false
				report.Issues = append(report.Issues, fmt.Sprintf(
					"water HU deviation too high: %.1f HU (expected: 0 ± %.0f HU)",
					deviation, p.qa.WaterToleranceHU))
			}
		}

		if report.AirHU != nil {
			deviation := math.Abs(*report.AirHU - HounsfieldReferences["air"])
			if deviation > p.qa.AirToleranceHU {
				report.IsValid = false
				report.Issues = append(report.Issues, fmt.Sprintf(
					"air HU deviation too high: %.1f HU (expected: -1000 ± %.0f HU)",
					deviation, p.qa.AirToleranceHU))
			}
		}

		if report.NoiseHU != nil && *report.NoiseHU > p.qa.NoiseThresholdHU {
			report.Warnings = append(report.Warnings, fmt.Sprintf(
				"high noise level detected: %.1f HU std dev", *report.NoiseHU))
		}
	}

	if report.IsValid {
		report.Status = StatusValid
	} else {
		report.Status = StatusInvalid
	}
	return report
}

// GenerateCalibrationReport runs ValidateCalibration and enriches the
// outcome with device metadata and recommendations derived from the
// validation result.
func (p *Processor) GenerateCalibrationReport(rec *models.ImageRecord, pixels []int32) *CalibrationSummary {
	validation := p.ValidateCalibration(rec, pixels)

	summary := &CalibrationSummary{
		GeneratedAt:     time.Now().UTC(),
		Modality:        orUnknown(rec.Modality),
		Manufacturer:    orUnknown(rec.Manufacturer),
		ModelName:       orUnknown(rec.ModelName),
		StationName:     orUnknown(rec.StationName),
		CalibrationDate: orUnknown(rec.CalibrationDate),
		Validation:      validation,
	}

	if !validation.IsValid {
		summary.Recommendations = append(summary.Recommendations,
			"Recalibrate CT scanner using appropriate phantom",
			"Contact service engineer for calibration verification")
	}
	if len(validation.Warnings) > 0 {
		summary.Recommendations = append(summary.Recommendations,
			"Monitor calibration stability with regular QA measurements")
	}
	if validation.NoiseHU != nil && *validation.NoiseHU > p.qa.NoiseThresholdHU {
		summary.Recommendations = append(summary.Recommendations,
			"Consider adjusting reconstruction parameters to reduce noise")
	}
	return summary
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

// estimateWaterHU estimates the water reference point as the median of
// the intensity cluster within ±50 HU of water. Returns nil when fewer
// than minSampleCount pixels qualify.
func estimateWaterHU(hu []float64) *float64 {
	var candidates []float64
	for _, v := range hu {
		if v > -waterBandHU && v < waterBandHU {
			candidates = append(candidates, v)
		}
	}
	return medianIfEnough(candidates)
}

// estimateAirHU estimates the air reference point as the median of the
// cluster below -900 HU. Returns nil when fewer than minSampleCount
// pixels qualify.
func estimateAirHU(hu []float64) *float64 {
	var candidates []float64
	for _, v := range hu {
		if v < airCeilingHU {
			candidates = append(candidates, v)
		}
	}
	return medianIfEnough(candidates)
}

// estimateNoise measures the standard deviation of the central
// sub-region covering noiseRegionFrac of each axis. Returns nil when
// the region holds too few samples to be meaningful.
func estimateNoise(hu []float64, rows, cols int) *float64 {
	regionRows := int(float64(rows) * noiseRegionFrac)
	regionCols := int(float64(cols) * noiseRegionFrac)
	if regionRows*regionCols < minSampleCount {
		return nil
	}

	startRow := rows/2 - regionRows/2
	startCol := cols/2 - regionCols/2
	region := make([]float64, 0, regionRows*regionCols)
	for r := startRow; r < startRow+regionRows; r++ {
		for c := startCol; c < startCol+regionCols; c++ {
			region = append(region, hu[r*cols+c])
		}
	}

	std := stat.StdDev(region, nil)
	return &std
}

func medianIfEnough(candidates []float64) *float64 {
	if len(candidates) < minSampleCount {
		return nil
	}
	sort.Float64s(candidates)
	med := stat.Quantile(0.5, stat.Empirical, candidates, nil)
	return &med
}

// Command dicomcore runs the image processing pipeline end to end over
// a synthetic calibration phantom series: load and order the sources,
// validate Hounsfield calibration, render display windows through the
// cache, assemble the volume and export orthogonal cross-sections.
package main

import (
	"flag"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"dicomcore/pkg/config"
	"dicomcore/pkg/export"
	"dicomcore/pkg/imagecache"
	"dicomcore/pkg/loader"
	"dicomcore/pkg/processor"
	"dicomcore/pkg/volume"
)

func main() {
	configPath := flag.String("config", "dicomcore.yaml", "Path to YAML configuration file")
	outputDir := flag.String("output", "rendered_slices", "Directory to save rendered slices")
	slices := flag.Int("slices", 16, "Number of phantom slices to generate")
	size := flag.Int("size", 128, "Phantom slice edge length in pixels")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if !cfg.Output.Verbose {
		log.SetLevel(logrus.WarnLevel)
	}

	// Step 1: load and order the phantom sources.
	log.Info("Step 1: Loading phantom series...")
	sources := buildPhantomSeries(*slices, *size)
	ldr := loader.New(log)
	result, err := ldr.LoadSeries(sources)
	if err != nil {
		log.Fatalf("Series load failed: %v", err)
	}
	log.Infof("Loaded %d slices (%d failures)", len(result.Records), len(result.Failures))

	stack, err := ldr.Stack(result.Records)
	if err != nil {
		log.Fatalf("Series stacking failed: %v", err)
	}

	// Step 2: validate calibration on the middle slice.
	log.Info("Step 2: Validating Hounsfield calibration...")
	proc := processor.New(processor.Params{
		Cache: imagecache.New(cfg.Cache.MaxEntries),
		QA: processor.QAThresholds{
			WaterToleranceHU: cfg.Calibration.WaterToleranceHU,
			AirToleranceHU:   cfg.Calibration.AirToleranceHU,
			SlopeTolerance:   cfg.Calibration.SlopeTolerance,
			NoiseThresholdHU: cfg.Calibration.NoiseThresholdHU,
		},
	})
	mid := stack.Records[stack.Len()/2]
	summary := proc.GenerateCalibrationReport(mid, mid.PixelData)
	log.Infof("Calibration status: %s (valid=%v)", summary.Validation.Status, summary.Validation.IsValid)
	for _, issue := range summary.Validation.Issues {
		log.Warnf("Issue: %s", issue)
	}
	for _, warning := range summary.Validation.Warnings {
		log.Infof("Warning: %s", warning)
	}
	for _, rec := range summary.Recommendations {
		log.Infof("Recommendation: %s", rec)
	}

	// Step 3: render every slice through the cache.
	log.Info("Step 3: Rendering display windows...")
	writer := export.NewWriter(cfg.Output.Format)
	rendered := make([][]uint8, 0, stack.Len())
	for _, rec := range stack.Records {
		display, err := proc.Render(rec, processor.DefaultDisplayParameters(rec))
		if err != nil {
			log.Fatalf("Windowing failed: %v", err)
		}
		rendered = append(rendered, display)
	}
	if err := writer.SaveSequence(rendered, mid.Rows, mid.Columns, filepath.Join(*outputDir, "axial_raw"), "slice"); err != nil {
		log.Fatalf("Failed to save rendered slices: %v", err)
	}

	// Step 4: assemble the volume and export orthogonal cross-sections.
	log.Info("Step 4: Assembling volume...")
	assembler := volume.NewAssembler(cfg.Processing.NumWorkers)
	vol, err := assembler.BuildVolume(stack)
	if err != nil {
		log.Fatalf("Volume assembly failed: %v", err)
	}
	log.Infof("Volume: %dx%dx%d voxels, spacing %.1fx%.1fx%.1f mm",
		vol.Depth, vol.Rows, vol.Cols, vol.Spacing[0], vol.Spacing[1], vol.Spacing[2])

	ortho, err := volume.ExtractOrthogonalSlices(vol, volume.SliceIndices{})
	if err != nil {
		log.Fatalf("Slice extraction failed: %v", err)
	}

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}
	preset, _ := processor.LookupPreset("soft_tissue")
	for name, plane := range map[string]volume.Plane{
		"axial":    ortho.Axial,
		"sagittal": ortho.Sagittal,
		"coronal":  ortho.Coronal,
	} {
		display, err := proc.ApplyWindowing(plane.Data, plane.Rows, plane.Cols, preset.Width, preset.Center, false)
		if err != nil {
			log.Fatalf("Windowing %s plane failed: %v", name, err)
		}
		filename := filepath.Join(*outputDir, name+writer.Ext())
		if err := writer.SaveSlice(display, plane.Rows, plane.Cols, filename); err != nil {
			log.Fatalf("Failed to save %s plane: %v", name, err)
		}
		log.Infof("Saved %s cross-section (index %d) to %s", name, plane.Index, filename)
	}

	log.Info("Pipeline completed")
}

// buildPhantomSeries generates a water-cylinder-in-air phantom: a
// centered disc at water density surrounded by air, with rescale
// parameters mapping stored values to Hounsfield units.
func buildPhantomSeries(count, size int) []*loader.RawImage {
	slope := 1.0
	intercept := -1024.0
	thickness := 2.0
	spacing := [2]float64{0.7, 0.7}

	waterRaw := int32(1024) // 0 HU
	airRaw := int32(24)     // -1000 HU

	sources := make([]*loader.RawImage, 0, count)
	for i := 0; i < count; i++ {
		pixels := make([]int32, size*size)
		center := float64(size) / 2
		radius := float64(size) / 3
		for r := 0; r < size; r++ {
			for c := 0; c < size; c++ {
				dr := float64(r) - center
				dc := float64(c) - center
				if dr*dr+dc*dc <= radius*radius {
					pixels[r*size+c] = waterRaw
				} else {
					pixels[r*size+c] = airRaw
				}
			}
		}

		instance := i + 1
		position := [3]float64{0, 0, float64(i) * thickness}
		sources = append(sources, &loader.RawImage{
			Rows:              size,
			Columns:           size,
			PixelData:         pixels,
			PixelSpacing:      &spacing,
			SliceThickness:    &thickness,
			Position:          &position,
			RescaleSlope:      &slope,
			RescaleIntercept:  &intercept,
			RescaleType:       "HU",
			Modality:          "CT",
			InstanceNumber:    &instance,
			Manufacturer:      "dicomcore",
			ModelName:         "synthetic phantom",
			SeriesDescription: "water cylinder QA phantom",
		})
	}
	return sources
}

// Package export encodes 8-bit display arrays into raster images on
// disk. The processing core itself performs no I/O and no encoding;
// this package is the delivery-side collaborator that turns its
// [0,255] output arrays into files a viewer can fetch.
package export

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Writer encodes display arrays in a fixed raster format.
type Writer struct {
	format  string
	quality int
}

// NewWriter creates a writer for the given format ("png" or "jpeg").
// Unrecognized formats fall back to PNG.
func NewWriter(format string) *Writer {
	format = strings.ToLower(format)
	if format != "png" && format != "jpeg" && format != "jpg" {
		format = "png"
	}
	return &Writer{format: format, quality: 90}
}

// Ext returns the filename extension for the writer's format.
func (w *Writer) Ext() string {
	if w.format == "png" {
		return ".png"
	}
	return ".jpg"
}

// Encode writes a display array as a grayscale raster image.
func (w *Writer) Encode(data []uint8, rows, cols int, out io.Writer) error {
	if rows <= 0 || cols <= 0 {
		return fmt.Errorf("invalid dimensions %dx%d", rows, cols)
	}
	if len(data) != rows*cols {
		return fmt.Errorf("display array length %d does not match dimensions %dx%d", len(data), rows, cols)
	}

	img := image.NewGray(image.Rect(0, 0, cols, rows))
	copy(img.Pix, data)

	if w.format == "png" {
		return png.Encode(out, img)
	}
	return jpeg.Encode(out, img, &jpeg.Options{Quality: w.quality})
}

// SaveSlice encodes a display array to a file.
func (w *Writer) SaveSlice(data []uint8, rows, cols int, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return w.Encode(data, rows, cols, file)
}

// SaveSequence writes a sequence of equally sized display arrays into
// outputDir as numbered files sharing a prefix.
func (w *Writer) SaveSequence(slices [][]uint8, rows, cols int, outputDir, prefix string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	for i, data := range slices {
		filename := filepath.Join(outputDir, fmt.Sprintf("%s_%03d%s", prefix, i, w.Ext()))
		if err := w.SaveSlice(data, rows, cols, filename); err != nil {
			return fmt.Errorf("failed to save slice %d: %w", i, err)
		}
	}
	return nil
}

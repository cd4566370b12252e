package gpu_rays

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/anthonynsimon/bild/transform"
)

// ScanImage renders the range channel of a scan as a grayscale image. Near returns are
// bright, returns at or beyond maxRange are black. Row 0 of the image is the lowest
// vertical angle.
//
// Parameters:
//   - data: the scan, row-major with channels floats per texel
//   - width, height: the scan dimensions
//   - channels: floats per texel
//   - minRange, maxRange: the range mapped to full and zero intensity
//
// Returns:
//   - *image.Gray: the image
func ScanImage(data []float32, width, height, channels uint32, minRange, maxRange float32) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, int(width), int(height)))
	span := maxRange - minRange
	for y := range int(height) {
		for x := range int(width) {
			i := (y*int(width) + x) * int(channels)
			if i >= len(data) {
				continue
			}
			v := float64(data[i])
			var t float64
			switch {
			case math.IsNaN(v) || v >= float64(maxRange):
				t = 0
			case v <= float64(minRange) || span <= 0:
				t = 1
			default:
				t = 1 - (v-float64(minRange))/float64(span)
			}
			img.SetGray(x, y, color.Gray{Y: uint8(math.Round(t * 255))})
		}
	}
	return img
}

// SaveScanImage writes the range channel of a scan to a PNG file. Scans shorter than
// minHeight rows are stretched vertically so single-row scans stay visible.
//
// Parameters:
//   - path: destination file
//   - data, width, height, channels: the scan
//   - minRange, maxRange: the displayed range
//   - minHeight: minimum image height in pixels
//
// Returns:
//   - error: error if the file cannot be written
func SaveScanImage(path string, data []float32, width, height, channels uint32, minRange, maxRange float32, minHeight int) error {
	var img image.Image = ScanImage(data, width, height, channels, minRange, maxRange)
	if int(height) < minHeight {
		img = transform.Resize(img, int(width), minHeight, transform.NearestNeighbor)
	}
	if err := imgio.Save(path, img, imgio.PNGEncoder()); err != nil {
		return fmt.Errorf("gpu_rays: save scan image %q: %w", path, err)
	}
	return nil
}

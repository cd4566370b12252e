package gpu_rays

import (
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanImageNormalisesRange(t *testing.T) {
	inf := float32(math.Inf(1))
	data := []float32{
		0, 0, 1,
		10, 0, 1,
		5, 0, 1,
		inf, 0, 1,
	}
	img := ScanImage(data, 4, 1, Channels, 0, 10)
	assert.Equal(t, uint8(255), img.GrayAt(0, 0).Y)
	assert.Equal(t, uint8(0), img.GrayAt(1, 0).Y)
	assert.Equal(t, uint8(128), img.GrayAt(2, 0).Y)
	assert.Equal(t, uint8(0), img.GrayAt(3, 0).Y)
}

func TestSaveScanImageStretchesSingleRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.png")
	require.NoError(t, SaveScanImage(path, []float32{1, 0, 1, 2, 0, 1}, 2, 1, Channels, 0, 4, 8))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 2, img.Bounds().Dx())
	assert.Equal(t, 8, img.Bounds().Dy())
}

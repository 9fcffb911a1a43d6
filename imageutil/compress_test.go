package imageutil

import (
	"image"
	"image/color"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noise compresses badly, which keeps the quality loop honest.
func writeNoiseJPEG(t *testing.T, path string, size int) {
	t.Helper()
	rng := rand.New(rand.NewSource(1))
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.Set(x, y, color.NRGBA{
				R: uint8(rng.Intn(256)),
				G: uint8(rng.Intn(256)),
				B: uint8(rng.Intn(256)),
				A: 255,
			})
		}
	}
	require.NoError(t, imaging.Save(img, path))
}

func TestCompressUnderCeiling(t *testing.T) {
	path := filepath.Join(t.TempDir(), "noise.jpg")
	writeNoiseJPEG(t, path, 64)

	const ceiling = 10 * 1024 * 1024
	require.NoError(t, Compress(path, ceiling))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.LessOrEqual(t, info.Size(), int64(ceiling))

	_, err = imaging.Open(path)
	assert.NoError(t, err, "compressed file must still decode")

	_, err = os.Stat(tempPath(path))
	assert.True(t, os.IsNotExist(err), "temp file must be cleaned up")
}

func TestCompressReducesOversizedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "noise.jpg")
	writeNoiseJPEG(t, path, 256)

	before, err := os.Stat(path)
	require.NoError(t, err)
	ceiling := before.Size() - 1

	err = Compress(path, ceiling)
	info, statErr := os.Stat(path)
	require.NoError(t, statErr)

	if err == nil {
		assert.LessOrEqual(t, info.Size(), ceiling)
	} else {
		// failure must leave the original byte-for-byte intact
		assert.Equal(t, before.Size(), info.Size())
	}
	_, err = os.Stat(tempPath(path))
	assert.True(t, os.IsNotExist(err))
}

func TestCompressFailureLeavesOriginalUntouched(t *testing.T) {
	path := filepath.Join(t.TempDir(), "noise.jpg")
	writeNoiseJPEG(t, path, 128)

	original, err := os.ReadFile(path)
	require.NoError(t, err)

	// no JPEG fits in 50 bytes, so every quality level fails
	err = Compress(path, 50)
	require.Error(t, err)

	after, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, original, after)

	_, err = os.Stat(tempPath(path))
	assert.True(t, os.IsNotExist(err))
}

func TestCompressMissingFile(t *testing.T) {
	err := Compress(filepath.Join(t.TempDir(), "absent.jpg"), 1024)
	assert.Error(t, err)
}

func TestRelatedBase(t *testing.T) {
	for _, tc := range []struct {
		filename string
		want     string
	}{
		{"LB808077461GB_1_1529449791_20240924050421_TO.jpg", "1_1529449791_20240924050421"},
		{"LB808077461GB_1_1529449791_20240924050421_BM.jpg", "1_1529449791_20240924050421"},
		{"prefix_middle_suffix.jpg", "middle"},
		{"single.jpg", "single"},
	} {
		assert.Equal(t, tc.want, RelatedBase(tc.filename), tc.filename)
	}
}

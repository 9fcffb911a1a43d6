// Package imageutil holds the JPEG size-bounding routine and the worker pool
// that fans it out over a directory of images.
package imageutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

const (
	startQuality = 95
	qualityStep  = 5
	minQuality   = 10
)

// Compress re-encodes the JPEG at path at decreasing quality levels until the
// encoded size is at or under maxBytes. Each attempt goes to a temporary file
// next to the original; on success the temporary file atomically replaces the
// original. If quality drops below the floor without meeting the bound, the
// temporary file is removed and an error is returned with the original file
// untouched.
func Compress(path string, maxBytes int64) error {
	img, err := imaging.Open(path)
	if err != nil {
		return err
	}

	tmp := tempPath(path)
	for quality := startQuality; quality >= minQuality; quality -= qualityStep {
		if err := imaging.Save(img, tmp, imaging.JPEGQuality(quality)); err != nil {
			_ = os.Remove(tmp)
			return err
		}
		info, err := os.Stat(tmp)
		if err != nil {
			_ = os.Remove(tmp)
			return err
		}
		if info.Size() <= maxBytes {
			return os.Rename(tmp, path)
		}
	}
	_ = os.Remove(tmp)
	return fmt.Errorf("could not reduce %s to %d bytes or less", path, maxBytes)
}

func tempPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".temp.jpg"
}

// RelatedBase derives the token shared by all captures of the same item:
// the filename minus its first and last underscore-delimited segments.
// "LB808077461GB_1_1529449791_20240924050421_TO.jpg" becomes
// "1_1529449791_20240924050421".
func RelatedBase(filename string) string {
	name := strings.TrimSuffix(filename, filepath.Ext(filename))

	if i := strings.LastIndex(name, "_"); i >= 0 {
		name = name[:i]
	}
	if _, rest, ok := strings.Cut(name, "_"); ok {
		return rest
	}
	return name
}

package raster

import (
	"image"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"thermalsub/internal/failures"
)

// Loader decodes the image at path.
type Loader interface {
	Load(path string) (image.Image, error)
}

// FileLoader reads images from disk. PNG, JPEG, GIF, BMP, TIFF and WebP are
// supported; EXIF orientation is applied.
type FileLoader struct{}

// Load decodes path or returns an asset error.
func (FileLoader) Load(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, failures.Wrap(failures.ErrAsset, "raster", "load image", path, err)
	}
	return img, nil
}

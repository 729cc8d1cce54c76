package verify

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

var ErrImagesUnavailable = errors.New("image processing not available")

// ImageCapability is the injected wrapper around the image-processing
// library. When disabled, every caller takes its degraded path.
type ImageCapability struct {
	enabled bool
}

func NewImageCapability(enabled bool) ImageCapability {
	return ImageCapability{enabled: enabled}
}

func (c ImageCapability) Available() bool {
	return c.enabled
}

// Preprocess writes a cleaned-up copy of the screenshot next to the original
// and returns its path: greyscale, contrast-normalized, sharpened and scaled
// up for the OCR pass.
func (c ImageCapability) Preprocess(path string) (string, error) {
	if !c.enabled {
		return "", ErrImagesUnavailable
	}

	img, err := imaging.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open screenshot: %w", err)
	}

	img = imaging.Grayscale(img)
	img = imaging.AdjustContrast(img, 20)
	img = imaging.Sharpen(img, 1.0)
	if img.Bounds().Dx() < 1600 {
		img = imaging.Resize(img, 1600, 0, imaging.Lanczos)
	}

	out := preprocessedPath(path)
	if err := imaging.Save(img, out); err != nil {
		return "", fmt.Errorf("failed to save preprocessed image: %w", err)
	}
	return out, nil
}

// CropLeft returns the left fraction of the screenshot, the claimant's
// personal inventory region.
func (c ImageCapability) CropLeft(path string, fraction float64) (image.Image, error) {
	if !c.enabled {
		return nil, ErrImagesUnavailable
	}

	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open screenshot: %w", err)
	}

	bounds := img.Bounds()
	width := int(float64(bounds.Dx()) * fraction)
	if width < 1 {
		width = 1
	}
	return imaging.Crop(img, image.Rect(bounds.Min.X, bounds.Min.Y, bounds.Min.X+width, bounds.Max.Y)), nil
}

// SaveRegion writes a cropped region to a temp file for a secondary OCR pass.
func (c ImageCapability) SaveRegion(img image.Image, hint string) (string, error) {
	if !c.enabled {
		return "", ErrImagesUnavailable
	}

	f, err := os.CreateTemp("", "region-"+hint+"-*.png")
	if err != nil {
		return "", err
	}
	path := f.Name()
	f.Close()

	if err := imaging.Save(img, path); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to save region: %w", err)
	}
	return path, nil
}

func preprocessedPath(path string) string {
	ext := filepath.Ext(path)
	return path[:len(path)-len(ext)] + ".prep.png"
}

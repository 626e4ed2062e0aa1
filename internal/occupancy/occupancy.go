// Package occupancy measures how much of a rendered view is foreground.
//
// Renders produced with film transparency carry the answer in their alpha
// channel: the occupancy of a view is its mean normalised alpha. For images
// with no transparency at all (e.g. already-flattened dumps) the fallback is a
// background probe: the top-left pixel is taken as background and a pixel
// counts as foreground when any RGB channel differs from it by more than
// BackgroundTolerance.
package occupancy

import (
	"fmt"
	"image"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/parallax-data/renderset/internal/dataset"
)

// BackgroundTolerance is the per-channel 8-bit difference above which a pixel
// is considered foreground in the no-alpha fallback.
const BackgroundTolerance = 16

// Ratio returns the foreground-occupancy ratio of an image in [0, 1].
func Ratio(img image.Image) float64 {
	bounds := img.Bounds()
	total := bounds.Dx() * bounds.Dy()
	if total == 0 {
		return 0
	}

	var alphaSum float64
	opaque := true
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			_, _, _, a := img.At(x, y).RGBA()
			alphaSum += float64(a) / 0xffff
			if a != 0xffff {
				opaque = false
			}
		}
	}
	if !opaque {
		return alphaSum / float64(total)
	}

	// Fully opaque image: fall back to the background probe.
	pr, pg, pb, _ := img.At(bounds.Min.X, bounds.Min.Y).RGBA()
	const tol = BackgroundTolerance << 8 // 8-bit tolerance in 16-bit channel space
	foreground := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			if diff16(r, pr) > tol || diff16(g, pg) > tol || diff16(b, pb) > tol {
				foreground++
			}
		}
	}
	return float64(foreground) / float64(total)
}

func diff16(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}

// File computes the occupancy ratio of the image at path.
func File(path string) (float64, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open image %s: %w", path, err)
	}
	return Ratio(img), nil
}

// ModelStats aggregates occupancy over a model's rendered views.
type ModelStats struct {
	// Occupancy is the mean per-view occupancy ratio.
	Occupancy float64
	// Views is the number of RGB views measured.
	Views int
}

// Model measures a model directory: the mean occupancy across its RGB views
// (depth and normal dumps are ignored). Any unreadable view fails the whole
// model so the caller can decide whether to skip it.
func Model(dir string) (ModelStats, error) {
	views, err := dataset.ViewFiles(dir)
	if err != nil {
		return ModelStats{}, err
	}
	if len(views) == 0 {
		return ModelStats{}, fmt.Errorf("model %s has no rendered views", dir)
	}

	var sum float64
	for _, v := range views {
		ratio, err := File(filepath.Join(dir, v))
		if err != nil {
			return ModelStats{}, err
		}
		sum += ratio
	}
	return ModelStats{
		Occupancy: sum / float64(len(views)),
		Views:     len(views),
	}, nil
}

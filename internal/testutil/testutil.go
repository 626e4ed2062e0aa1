// Package testutil provides shared fixtures for the pipeline tests: synthetic
// render trees with controllable opacity, and helpers to compare output trees.
package testutil

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/parallax-data/renderset/internal/camera"
	"github.com/parallax-data/renderset/internal/dataset"
)

// WriteAlphaPNG writes a size x size RGBA PNG whose every pixel has the given
// alpha, so its occupancy ratio is alpha/255.
func WriteAlphaPNG(t *testing.T, path string, size int, alpha uint8) {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 200, G: 180, B: 160, A: alpha})
		}
	}
	savePNG(t, path, img)
}

// WriteOpaquePNG writes a size x size fully opaque PNG with a uniform
// background and a centred foreground square covering the given fraction of
// the total area.
func WriteOpaquePNG(t *testing.T, path string, size int, foregroundFrac float64) {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	bg := color.NRGBA{R: 10, G: 10, B: 10, A: 255}
	fg := color.NRGBA{R: 240, G: 240, B: 240, A: 255}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.SetNRGBA(x, y, bg)
		}
	}

	side := int(float64(size) * math.Sqrt(foregroundFrac))
	off := (size - side) / 2
	for y := off; y < off+side; y++ {
		for x := off; x < off+side; x++ {
			img.SetNRGBA(x, y, fg)
		}
	}
	savePNG(t, path, img)
}

func savePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
}

// BuildModel writes a rendered model directory with the given number of views,
// all with the same per-pixel alpha, plus a normal-map dump that must be
// ignored by occupancy measurement. Returns the metadata frames for the model.
func BuildModel(t *testing.T, root, collection, model string, views int, alpha uint8) []dataset.Frame {
	t.Helper()

	dir := filepath.Join(root, collection, model)
	frames := make([]dataset.Frame, views)
	for i := 0; i < views; i++ {
		stem := fmt.Sprintf("%06d", i)
		WriteAlphaPNG(t, filepath.Join(dir, stem+".png"), 8, alpha)

		yaw := -3.0 + 6.0*float64(i)/float64(views)
		pitch := 0.3 + 2.4*float64(i)/float64(views)
		tr := camera.LookAt(camera.SpherePoint(yaw, pitch, 3.5))
		frames[i] = dataset.Frame{
			FilePath:        filepath.ToSlash(filepath.Join(collection, model, stem)),
			TransformMatrix: [4][4]float64(tr),
			CameraRadius:    3.5,
			FOV:             0.7853981633974483,
		}
	}
	WriteAlphaPNG(t, filepath.Join(dir, "000000_normal_0001.png"), 8, 255)
	return frames
}

// WriteCollectionMetadata writes a collection's metadata.json from per-model
// frame lists.
func WriteCollectionMetadata(t *testing.T, root, collection string, meta dataset.Metadata) {
	t.Helper()
	path := filepath.Join(root, collection, dataset.MetadataFile)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := dataset.WriteMetadata(path, meta); err != nil {
		t.Fatalf("write metadata: %v", err)
	}
}

// FileSet returns the sorted relative paths of all regular files under root.
func FileSet(t *testing.T, root string) []string {
	t.Helper()

	var files []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk %s: %v", root, err)
	}
	sort.Strings(files)
	return files
}

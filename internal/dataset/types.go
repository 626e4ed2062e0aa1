// Package dataset defines the on-disk data model shared by the render driver
// outputs and the filter/convert pipelines: per-collection metadata, the final
// training manifest, and the directory layout conventions.
package dataset

import (
	"encoding/json"
	"fmt"
	"os"
)

const (
	// MetadataFile is the per-collection camera metadata written by the
	// render driver, read-only after rendering.
	MetadataFile = "metadata.json"

	// ManifestFile is the training-ready index written once at the end of
	// conversion and never mutated afterward.
	ManifestFile = "dataset.json"

	// ViewsPerModel is the number of views the render driver produces for
	// every model before filtering.
	ViewsPerModel = 128
)

// Frame describes a single rendered view of a model: where the image lives
// relative to the dataset root and the camera pose it was rendered from.
type Frame struct {
	FilePath        string        `json:"file_path"`
	TransformMatrix [4][4]float64 `json:"transform_matrix"`
	CameraAngles    []float64     `json:"camera_angles,omitempty"`
	CameraRadius    float64       `json:"camera_radius,omitempty"`
	FOV             float64       `json:"fov,omitempty"`
}

// Metadata maps each model name in a collection to its rendered frames.
type Metadata map[string][]Frame

// ReadMetadata loads a per-collection metadata.json.
func ReadMetadata(path string) (Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata %s: %w", path, err)
	}

	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse metadata %s: %w", path, err)
	}
	return m, nil
}

// WriteMetadata writes a per-collection metadata.json.
func WriteMetadata(path string, m Metadata) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write metadata %s: %w", path, err)
	}
	return nil
}

// Manifest is the final training index: for every packaged image, its camera
// angles (yaw, pitch, roll in radians) and its integer class label. Keys are
// paths relative to the dataset root, and every key names a file that exists
// on disk in the packaged output.
type Manifest struct {
	CameraAngles map[string][3]float64 `json:"camera_angles"`
	Labels       map[string]int        `json:"labels"`
}

// NewManifest returns an empty manifest ready for accumulation.
func NewManifest() *Manifest {
	return &Manifest{
		CameraAngles: make(map[string][3]float64),
		Labels:       make(map[string]int),
	}
}

// ReadManifest loads a dataset.json.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	return &m, nil
}

// WriteManifest writes the manifest to path.
func (m *Manifest) WriteManifest(path string) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest %s: %w", path, err)
	}
	return nil
}

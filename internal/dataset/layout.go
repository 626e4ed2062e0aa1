package dataset

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/parallax-data/renderset/internal/fsutil"
)

// FileKind classifies a file inside a model directory.
type FileKind int

const (
	// KindOther is anything the pipelines pass through untouched.
	KindOther FileKind = iota
	// KindRGB is a rendered colour view.
	KindRGB
	// KindDepth is a depth map dump.
	KindDepth
	// KindNormal is a normal map dump.
	KindNormal
	// KindMetadata is a metadata or manifest JSON file.
	KindMetadata
)

// Classify reports what role the named file plays in the dataset tree. Depth
// and normal dumps are identified by the driver's file-slot naming.
func Classify(name string) FileKind {
	base := filepath.Base(name)
	switch {
	case strings.HasSuffix(base, ".json"):
		return KindMetadata
	case strings.Contains(base, "_depth_"):
		return KindDepth
	case strings.Contains(base, "_normal_"):
		return KindNormal
	case strings.EqualFold(filepath.Ext(base), ".png"):
		return KindRGB
	default:
		return KindOther
	}
}

// Collections returns the sorted collection directory names under root.
func Collections(root string) ([]string, error) {
	return fsutil.ListSubdirs(root)
}

// Models returns the sorted model directory names inside a collection dir.
func Models(collectionDir string) ([]string, error) {
	return fsutil.ListSubdirs(collectionDir)
}

// ViewFiles returns the sorted RGB view filenames inside a model directory,
// excluding depth dumps, normal dumps and metadata.
func ViewFiles(modelDir string) ([]string, error) {
	files, err := fsutil.ListFiles(modelDir)
	if err != nil {
		return nil, err
	}

	var views []string
	for _, f := range files {
		if Classify(f) == KindRGB {
			views = append(views, f)
		}
	}
	return views, nil
}

// FlattenName maps a raw view path (collection/model/view.png) to its packaged
// location: the model directory level is folded into the filename, so each
// collection directory holds model-prefixed images directly.
func FlattenName(collection, model, file string) string {
	return path.Join(collection, model+"_"+file)
}

// FrameKey is the metadata lookup key for a raw view image: the driver stores
// file_path without an extension, relative to the dataset root.
func FrameKey(collection, model, file string) string {
	return path.Join(collection, model, strings.TrimSuffix(file, path.Ext(file)))
}

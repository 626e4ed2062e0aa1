package convert

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parallax-data/renderset/internal/dataset"
	"github.com/parallax-data/renderset/internal/statsdb"
	"github.com/parallax-data/renderset/internal/testutil"
)

// buildFiltered writes a filtered tree with two collections, one model each.
func buildFiltered(t *testing.T, root string) {
	t.Helper()
	fern := testutil.BuildModel(t, root, "plants", "fern", 3, 200)
	testutil.WriteCollectionMetadata(t, root, "plants", dataset.Metadata{"fern": fern})
	apple := testutil.BuildModel(t, root, "food", "apple", 2, 200)
	testutil.WriteCollectionMetadata(t, root, "food", dataset.Metadata{"apple": apple})
}

func TestRunManifestMatchesDisk(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "filtered")
	dst := filepath.Join(dir, "out")
	buildFiltered(t, src)

	res, err := Run(Options{Src: src, Dst: dst, Size: 32, Jobs: 4})
	require.NoError(t, err)
	assert.Equal(t, 5, res.Views)
	assert.Zero(t, res.Failed)

	manifest, err := dataset.ReadManifest(res.ManifestPath)
	require.NoError(t, err)
	require.Len(t, manifest.CameraAngles, 5)
	require.Len(t, manifest.Labels, 5)

	// Every manifest entry names a file that exists, at the exact target
	// resolution.
	for rel := range manifest.CameraAngles {
		path := filepath.Join(dst, filepath.FromSlash(rel))
		require.FileExists(t, path)

		img, err := imaging.Open(path)
		require.NoError(t, err)
		assert.Equal(t, 32, img.Bounds().Dx(), "%s width", rel)
		assert.Equal(t, 32, img.Bounds().Dy(), "%s height", rel)
	}

	// Flattened layout: model folded into the filename.
	assert.Contains(t, manifest.CameraAngles, "plants/fern_000000.png")
	assert.Contains(t, manifest.CameraAngles, "food/apple_000001.png")

	// Labels are per collection, assigned in sorted order.
	assert.Equal(t, 0, manifest.Labels["food/apple_000000.png"])
	assert.Equal(t, 1, manifest.Labels["plants/fern_000001.png"])
}

func TestRunExcludesDepthAndNormals(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "filtered")
	dst := filepath.Join(dir, "out")
	buildFiltered(t, src)

	_, err := Run(Options{Src: src, Dst: dst, Size: 16, Jobs: 2})
	require.NoError(t, err)

	for _, rel := range testutil.FileSet(t, dst) {
		assert.NotContains(t, rel, "_normal_")
		assert.NotContains(t, rel, "_depth_")
	}
}

func TestRunCorruptImageExcluded(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "filtered")
	dst := filepath.Join(dir, "out")
	buildFiltered(t, src)
	require.NoError(t, os.WriteFile(filepath.Join(src, "plants", "fern", "000001.png"), []byte("junk"), 0o644))

	res, err := Run(Options{Src: src, Dst: dst, Size: 16, Jobs: 2})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Views)
	assert.Equal(t, 1, res.Failed)

	manifest, err := dataset.ReadManifest(res.ManifestPath)
	require.NoError(t, err)
	assert.NotContains(t, manifest.CameraAngles, "plants/fern_000001.png")
}

func TestRunViewWithoutMetadataExcluded(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "filtered")
	dst := filepath.Join(dir, "out")
	buildFiltered(t, src)
	// An extra view the metadata knows nothing about.
	testutil.WriteAlphaPNG(t, filepath.Join(src, "plants", "fern", "000099.png"), 8, 200)

	res, err := Run(Options{Src: src, Dst: dst, Size: 16, Jobs: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, res.Views)
	assert.Equal(t, 1, res.Failed)
}

func TestRunZipArchive(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "filtered")
	dst := filepath.Join(dir, "out")
	buildFiltered(t, src)

	res, err := Run(Options{Src: src, Dst: dst, Size: 16, Jobs: 2, Zip: true})
	require.NoError(t, err)
	require.NotEmpty(t, res.ArchivePath)
	assert.FileExists(t, res.ArchivePath)

	// The loose tree is gone; the archive holds the images and the manifest
	// under the directory base name, stored uncompressed.
	assert.NoDirExists(t, dst)
	names, methods := archiveContents(t, res.ArchivePath)
	assert.Contains(t, names, "out/"+dataset.ManifestFile)
	assert.Contains(t, names, "out/plants/fern_000000.png")
	for _, m := range methods {
		assert.Equal(t, uint16(0), m) // zip.Store
	}
}

func TestRunRecordsViewCounts(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "filtered")
	dst := filepath.Join(dir, "out")
	buildFiltered(t, src)
	require.NoError(t, os.WriteFile(filepath.Join(src, "plants", "fern", "000001.png"), []byte("junk"), 0o644))

	db, err := statsdb.Open(filepath.Join(dir, "stats.db"))
	require.NoError(t, err)
	defer db.Close()

	res, err := Run(Options{Src: src, Dst: dst, Size: 16, Jobs: 2, Stats: db})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Views)
	assert.Equal(t, 1, res.Failed)

	var kind string
	var viewsSeen, viewsKept int
	err = db.QueryRow(`SELECT kind, views_seen, views_kept FROM runs`).Scan(&kind, &viewsSeen, &viewsKept)
	require.NoError(t, err)
	assert.Equal(t, "convert", kind)
	assert.Equal(t, 5, viewsSeen)
	assert.Equal(t, 4, viewsKept)
}

func TestRunSaveFailureLeavesNoOutput(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "filtered")
	dst := filepath.Join(dir, "out")
	buildFiltered(t, src)

	// Occupy one flattened output path with a directory so writing the
	// resized image fails after decode succeeded.
	blocked := filepath.Join(dst, "plants", "fern_000000.png")
	require.NoError(t, os.MkdirAll(blocked, 0o755))

	res, err := Run(Options{Src: src, Dst: dst, Size: 16, Jobs: 2})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Views)
	assert.Equal(t, 1, res.Failed)

	manifest, err := dataset.ReadManifest(res.ManifestPath)
	require.NoError(t, err)
	assert.NotContains(t, manifest.CameraAngles, "plants/fern_000000.png")

	// The failed view must not leave anything behind at its output path.
	_, statErr := os.Stat(blocked)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunMissingSource(t *testing.T) {
	dir := t.TempDir()
	_, err := Run(Options{Src: filepath.Join(dir, "nope"), Dst: filepath.Join(dir, "out")})
	assert.Error(t, err)
}

func TestValidateAngles(t *testing.T) {
	yaws := []float64{0.5, -1.2, 2.0}
	pitches := []float64{0.4, 1.0, 2.2}
	zeros := []float64{0, 0, 0}

	assert.NoError(t, validateAngles(yaws, pitches, zeros))
	assert.Error(t, validateAngles(yaws, pitches, []float64{0.2, 0, 0}), "roll present")
	assert.Error(t, validateAngles(zeros, pitches, zeros), "degenerate yaw")
	assert.Error(t, validateAngles(yaws, zeros, zeros), "degenerate pitch")
	assert.Error(t, validateAngles([]float64{4.0, 0.5, 0.5}, pitches, zeros), "yaw out of range")
	assert.Error(t, validateAngles(yaws, []float64{-0.2, 1.0, 1.0}, zeros), "pitch out of range")
}

// Package convert turns a filtered render tree into the packaged training
// dataset: images resized and flattened into one directory per collection,
// camera transforms reduced to yaw/pitch/roll, and a single dataset.json
// manifest indexing the result.
package convert

import (
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/disintegration/imaging"

	"github.com/parallax-data/renderset/internal/camera"
	"github.com/parallax-data/renderset/internal/dataset"
	"github.com/parallax-data/renderset/internal/fsutil"
	"github.com/parallax-data/renderset/internal/statsdb"
)

// DefaultJobs is the worker-pool size when none is configured.
const DefaultJobs = 8

// Options configures a conversion run.
type Options struct {
	// Src is the filtered dataset root.
	Src string
	// Dst is the output root; with Zip set the tree is packed into Dst+".zip"
	// and the loose tree removed.
	Dst string
	// Size is the square output resolution. Defaults to 1024.
	Size int
	// Jobs bounds the per-view worker pool.
	Jobs int
	// Zip packs the output into a single uncompressed archive.
	Zip bool
	// AllowRoll skips the zero-roll validation of the extracted angles.
	AllowRoll bool
	// Stats optionally records the run.
	Stats *statsdb.DB
}

// Result summarises a conversion run.
type Result struct {
	Views        int // views present in the manifest
	Failed       int // views excluded (decode failures, missing metadata)
	ManifestPath string
	ArchivePath  string // set when Zip was requested
}

type task struct {
	srcRel     string // path under Src, slash-separated
	dstRel     string // flattened path under Dst, slash-separated
	collection string
}

type viewResult struct {
	task   task
	angles camera.Angles
	pose   camera.Transform
	err    error
}

// Run executes the conversion.
func Run(opts Options) (Result, error) {
	if err := validate(&opts); err != nil {
		return Result{}, err
	}

	var runID string
	var err error
	if opts.Stats != nil {
		runID, err = opts.Stats.BeginRun("convert", opts.Src, opts.Dst, 0)
		if err != nil {
			return Result{}, err
		}
	}

	transforms, err := loadTransforms(opts.Src)
	if err != nil {
		return Result{}, err
	}

	tasks, err := enumerateViews(opts.Src)
	if err != nil {
		return Result{}, err
	}

	if err := os.MkdirAll(opts.Dst, 0o755); err != nil {
		return Result{}, fmt.Errorf("failed to create destination %s: %w", opts.Dst, err)
	}

	// Fan the per-view work out over a bounded pool. Workers only resize and
	// report; the manifest is accumulated here after the join barrier, so no
	// map is ever shared.
	results := runPool(opts, tasks, transforms)

	res := Result{}
	manifest := dataset.NewManifest()
	var poses []camera.Transform
	var rolls, yaws, pitches []float64
	collections := make(map[string]bool)

	for _, r := range results {
		if r.err != nil {
			log.Printf("warning: excluding view %s: %v", r.task.srcRel, r.err)
			res.Failed++
			continue
		}
		manifest.CameraAngles[r.task.dstRel] = [3]float64{r.angles.Yaw, r.angles.Pitch, r.angles.Roll}
		collections[r.task.collection] = true
		poses = append(poses, r.pose)
		yaws = append(yaws, r.angles.Yaw)
		pitches = append(pitches, r.angles.Pitch)
		rolls = append(rolls, r.angles.Roll)
		res.Views++
	}

	if !opts.AllowRoll && res.Views > 0 {
		if err := validateAngles(yaws, pitches, rolls); err != nil {
			return res, err
		}
	}

	// Class labels: one id per collection directory, assigned in sorted
	// order so the mapping is stable across runs.
	labelIDs := assignLabels(collections)
	for dstRel := range manifest.CameraAngles {
		c := filepath.ToSlash(filepath.Dir(dstRel))
		manifest.Labels[dstRel] = labelIDs[c]
	}
	log.Printf("Found %d different class labels", len(labelIDs))

	if mean, stddev := camera.DistanceStats(poses); len(poses) > 0 {
		log.Printf("Camera distance mean/std: %.4f %.4f", mean, stddev)
	}

	res.ManifestPath = filepath.Join(opts.Dst, dataset.ManifestFile)
	if err := manifest.WriteManifest(res.ManifestPath); err != nil {
		return res, err
	}

	if opts.Zip {
		log.Print("Creating zip archive (without compression)...")
		archive, err := Pack(opts.Dst)
		if err != nil {
			return res, err
		}
		if err := os.RemoveAll(opts.Dst); err != nil {
			return res, fmt.Errorf("failed to remove loose tree %s: %w", opts.Dst, err)
		}
		res.ArchivePath = archive
		res.ManifestPath = ""
	}

	if opts.Stats != nil {
		if err := opts.Stats.FinishConvertRun(runID, res.Views+res.Failed, res.Views); err != nil {
			log.Printf("warning: failed to finalise run record: %v", err)
		}
	}
	return res, nil
}

func validate(opts *Options) error {
	if !fsutil.IsDir(opts.Src) {
		return fmt.Errorf("source directory %s does not exist", opts.Src)
	}
	if opts.Dst == "" {
		return fmt.Errorf("destination directory is required")
	}
	if opts.Size == 0 {
		opts.Size = 1024
	}
	if opts.Size < 0 {
		return fmt.Errorf("target resolution must be positive, got %d", opts.Size)
	}
	if opts.Jobs <= 0 {
		opts.Jobs = DefaultJobs
	}
	return nil
}

// loadTransforms merges every collection's metadata into one lookup keyed by
// the raw view path (collection/model/stem, no extension).
func loadTransforms(src string) (map[string]camera.Transform, error) {
	collections, err := dataset.Collections(src)
	if err != nil {
		return nil, err
	}

	transforms := make(map[string]camera.Transform)
	for _, c := range collections {
		metaPath := filepath.Join(src, c, dataset.MetadataFile)
		if !fsutil.Exists(metaPath) {
			log.Printf("warning: collection %s has no %s", c, dataset.MetadataFile)
			continue
		}
		meta, err := dataset.ReadMetadata(metaPath)
		if err != nil {
			return nil, err
		}
		for model, frames := range meta {
			for _, f := range frames {
				key := dataset.FrameKey(c, model, filepath.Base(f.FilePath))
				transforms[key] = camera.Transform(f.TransformMatrix)
			}
		}
	}
	return transforms, nil
}

func enumerateViews(src string) ([]task, error) {
	collections, err := dataset.Collections(src)
	if err != nil {
		return nil, err
	}

	var tasks []task
	for _, c := range collections {
		models, err := dataset.Models(filepath.Join(src, c))
		if err != nil {
			return nil, err
		}
		for _, m := range models {
			views, err := dataset.ViewFiles(filepath.Join(src, c, m))
			if err != nil {
				return nil, err
			}
			for _, v := range views {
				tasks = append(tasks, task{
					srcRel:     filepath.ToSlash(filepath.Join(c, m, v)),
					dstRel:     dataset.FlattenName(c, m, v),
					collection: c,
				})
			}
		}
	}
	return tasks, nil
}

func runPool(opts Options, tasks []task, transforms map[string]camera.Transform) []viewResult {
	queue := make(chan task)
	results := make(chan viewResult, len(tasks))

	var wg sync.WaitGroup
	for i := 0; i < opts.Jobs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for tk := range queue {
				results <- convertView(opts, tk, transforms)
			}
		}()
	}

	for _, tk := range tasks {
		queue <- tk
	}
	close(queue)
	wg.Wait()
	close(results)

	out := make([]viewResult, 0, len(tasks))
	for r := range results {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].task.srcRel < out[j].task.srcRel })
	return out
}

func convertView(opts Options, tk task, transforms map[string]camera.Transform) viewResult {
	key := tk.srcRel[:len(tk.srcRel)-len(filepath.Ext(tk.srcRel))]
	pose, ok := transforms[key]
	if !ok {
		return viewResult{task: tk, err: fmt.Errorf("no camera metadata for view")}
	}

	angles, err := camera.EulerAngles(pose)
	if err != nil {
		return viewResult{task: tk, err: err}
	}

	img, err := imaging.Open(filepath.Join(opts.Src, filepath.FromSlash(tk.srcRel)))
	if err != nil {
		return viewResult{task: tk, err: err}
	}
	resized := imaging.Resize(img, opts.Size, opts.Size, imaging.Lanczos)

	dstPath := filepath.Join(opts.Dst, filepath.FromSlash(tk.dstRel))
	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return viewResult{task: tk, err: err}
	}
	if err := imaging.Save(resized, dstPath); err != nil {
		// Don't leave a truncated image behind for a view the manifest
		// won't reference.
		os.Remove(dstPath)
		return viewResult{task: tk, err: err}
	}

	return viewResult{task: tk, angles: angles, pose: pose}
}

// validateAngles checks that a no-roll dataset really has no roll and that the
// extracted yaw/pitch values are non-degenerate and in range.
func validateAngles(yaws, pitches, rolls []float64) error {
	var rollAbsSum, yawSq, pitchSq float64
	for i := range rolls {
		rollAbsSum += math.Abs(rolls[i])
		yawSq += yaws[i] * yaws[i]
		pitchSq += pitches[i] * pitches[i]
	}
	n := float64(len(rolls))

	if rollAbsSum/n >= 1e-5 {
		return fmt.Errorf("dataset contains roll angles (mean |roll| = %g); pass the roll option to keep them", rollAbsSum/n)
	}
	if math.Sqrt(yawSq) <= 0.1 {
		return fmt.Errorf("broken yaw angles (all zeros)")
	}
	if math.Sqrt(pitchSq) <= 0.1 {
		return fmt.Errorf("broken pitch angles (all zeros)")
	}
	for i := range yaws {
		if yaws[i] < -math.Pi || yaws[i] > math.Pi {
			return fmt.Errorf("broken yaw angle out of [-pi, pi]: %v", yaws[i])
		}
		if pitches[i] < 0 || pitches[i] > math.Pi {
			return fmt.Errorf("broken pitch angle out of [0, pi]: %v", pitches[i])
		}
	}
	return nil
}

func assignLabels(collections map[string]bool) map[string]int {
	names := make([]string, 0, len(collections))
	for c := range collections {
		names = append(names, c)
	}
	sort.Strings(names)

	ids := make(map[string]int, len(names))
	for i, c := range names {
		ids[c] = i
	}
	return ids
}

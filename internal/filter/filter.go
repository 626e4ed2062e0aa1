// Package filter implements the occupancy filter: it measures how much of each
// rendered model is actually visible and copies only the models worth training
// on into a fresh tree, pruning the per-collection metadata to match.
package filter

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/parallax-data/renderset/internal/dataset"
	"github.com/parallax-data/renderset/internal/fsutil"
	"github.com/parallax-data/renderset/internal/occupancy"
	"github.com/parallax-data/renderset/internal/report"
	"github.com/parallax-data/renderset/internal/statsdb"
)

// Options configures a filter run.
type Options struct {
	// Src is the raw dataset root (collection/model/*.png).
	Src string
	// Dst is where the filtered tree is written. Created if missing.
	Dst string
	// Threshold is the minimum mean occupancy a model needs to survive.
	Threshold float64
	// ExcludeFile optionally names a manual exclusion list: one model name
	// per line, '#' starts a comment.
	ExcludeFile string
	// Jobs bounds the occupancy-measurement worker pool. Defaults to
	// runtime.NumCPU().
	Jobs int
	// Stats optionally records the run and serves cached occupancies.
	Stats *statsdb.DB
	// ReportPath optionally names an HTML occupancy report to write.
	ReportPath string
}

// Result summarises a filter run.
type Result struct {
	ModelsSeen    int
	ModelsKept    int
	ModelsSkipped int // unreadable models, warned and left out
}

type modelRef struct {
	collection string
	model      string
	dir        string
}

type modelMeasurement struct {
	ref   modelRef
	stats occupancy.ModelStats
	err   error
}

// Run executes the filter. The source tree is never mutated; running the
// filter on its own output with the same threshold yields an identical tree.
func Run(opts Options) (Result, error) {
	if err := validate(&opts); err != nil {
		return Result{}, err
	}

	excluded, err := LoadExclusions(opts.ExcludeFile)
	if err != nil {
		return Result{}, err
	}

	refs, err := enumerateModels(opts.Src)
	if err != nil {
		return Result{}, err
	}

	var runID string
	if opts.Stats != nil {
		runID, err = opts.Stats.BeginRun("filter", opts.Src, opts.Dst, opts.Threshold)
		if err != nil {
			return Result{}, err
		}
	}

	measurements := measureAll(refs, opts.Jobs, opts.Stats)

	res := Result{ModelsSeen: len(refs)}
	occupancies := make(map[string]float64)
	kept := make(map[string]map[string]bool) // collection -> kept model set

	droppedLow, droppedManual := 0, 0
	for _, m := range measurements {
		name := path.Join(m.ref.collection, m.ref.model)
		if m.err != nil {
			log.Printf("warning: skipping unreadable model %s: %v", name, m.err)
			res.ModelsSkipped++
			continue
		}
		occupancies[name] = m.stats.Occupancy

		keep := m.stats.Occupancy >= opts.Threshold
		if keep && excluded[m.ref.model] {
			keep = false
			droppedManual++
		} else if !keep {
			droppedLow++
		}

		if opts.Stats != nil {
			if err := opts.Stats.RecordModelStat(runID, m.ref.collection, m.ref.model, m.stats.Views, m.stats.Occupancy, keep); err != nil {
				log.Printf("warning: failed to record stats for %s: %v", name, err)
			}
		}
		if keep {
			if kept[m.ref.collection] == nil {
				kept[m.ref.collection] = make(map[string]bool)
			}
			kept[m.ref.collection][m.ref.model] = true
			res.ModelsKept++
		}
	}

	log.Printf("Ignoring %d models below occupancy %.3f and %d manually excluded; %d of %d models remain",
		droppedLow, opts.Threshold, droppedManual, res.ModelsKept, res.ModelsSeen)
	if worst := report.TopOffenders(occupancies, 5); len(worst) > 0 {
		log.Printf("Lowest-occupancy models: %s", strings.Join(worst, ", "))
	}

	if err := copySurvivors(opts.Src, opts.Dst, kept); err != nil {
		return res, err
	}

	if opts.ReportPath != "" {
		if err := report.WriteOccupancyHistogram(opts.ReportPath, occupancies, opts.Threshold); err != nil {
			log.Printf("warning: failed to write occupancy report: %v", err)
		}
	}
	if opts.Stats != nil {
		if err := opts.Stats.FinishRun(runID, res.ModelsSeen, res.ModelsKept); err != nil {
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
	if opts.Threshold <= 0 || opts.Threshold >= 1 {
		return fmt.Errorf("occupancy threshold must be in (0, 1), got %v", opts.Threshold)
	}
	if opts.Jobs <= 0 {
		opts.Jobs = runtime.NumCPU()
	}
	return nil
}

// LoadExclusions reads a manual exclusion list. A missing path means no
// exclusions; inside the file, blank lines and '#' comments are ignored.
func LoadExclusions(path string) (map[string]bool, error) {
	if path == "" {
		return map[string]bool{}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open exclusion list %s: %w", path, err)
	}
	defer f.Close()

	excluded := make(map[string]bool)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		excluded[line] = true
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read exclusion list %s: %w", path, err)
	}
	return excluded, nil
}

func enumerateModels(src string) ([]modelRef, error) {
	collections, err := dataset.Collections(src)
	if err != nil {
		return nil, err
	}

	var refs []modelRef
	for _, c := range collections {
		models, err := dataset.Models(filepath.Join(src, c))
		if err != nil {
			return nil, err
		}
		for _, m := range models {
			refs = append(refs, modelRef{
				collection: c,
				model:      m,
				dir:        filepath.Join(src, c, m),
			})
		}
	}
	return refs, nil
}

// measureAll fans the occupancy measurement out over a bounded worker pool.
// Workers only send results; all aggregation happens on the caller's
// goroutine after the pool drains.
func measureAll(refs []modelRef, jobs int, stats *statsdb.DB) []modelMeasurement {
	tasks := make(chan modelRef)
	results := make(chan modelMeasurement, len(refs))

	var wg sync.WaitGroup
	for i := 0; i < jobs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ref := range tasks {
				results <- measureOne(ref, stats)
			}
		}()
	}

	for _, ref := range refs {
		tasks <- ref
	}
	close(tasks)
	wg.Wait()
	close(results)

	out := make([]modelMeasurement, 0, len(refs))
	for m := range results {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ref.collection != out[j].ref.collection {
			return out[i].ref.collection < out[j].ref.collection
		}
		return out[i].ref.model < out[j].ref.model
	})
	return out
}

func measureOne(ref modelRef, stats *statsdb.DB) modelMeasurement {
	views, err := dataset.ViewFiles(ref.dir)
	if err != nil {
		return modelMeasurement{ref: ref, err: err}
	}

	if stats != nil && len(views) > 0 {
		if occ, ok, err := stats.CachedOccupancy(ref.collection, ref.model, len(views)); err == nil && ok {
			return modelMeasurement{ref: ref, stats: occupancy.ModelStats{Occupancy: occ, Views: len(views)}}
		}
	}

	ms, err := occupancy.Model(ref.dir)
	return modelMeasurement{ref: ref, stats: ms, err: err}
}

// copySurvivors copies every kept model directory verbatim and writes a pruned
// metadata.json per collection. Collections with no survivors are omitted.
func copySurvivors(src, dst string, kept map[string]map[string]bool) error {
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return fmt.Errorf("failed to create destination %s: %w", dst, err)
	}

	collections := make([]string, 0, len(kept))
	for c := range kept {
		collections = append(collections, c)
	}
	sort.Strings(collections)

	for _, c := range collections {
		if err := os.MkdirAll(filepath.Join(dst, c), 0o755); err != nil {
			return fmt.Errorf("failed to create collection dir %s: %w", c, err)
		}

		metaPath := filepath.Join(src, c, dataset.MetadataFile)
		if fsutil.Exists(metaPath) {
			meta, err := dataset.ReadMetadata(metaPath)
			if err != nil {
				return err
			}
			pruned := dataset.Metadata{}
			for model := range kept[c] {
				if frames, ok := meta[model]; ok {
					pruned[model] = frames
				}
			}
			if err := dataset.WriteMetadata(filepath.Join(dst, c, dataset.MetadataFile), pruned); err != nil {
				return err
			}
		} else {
			log.Printf("warning: collection %s has no %s", c, dataset.MetadataFile)
		}

		for model := range kept[c] {
			if err := fsutil.CopyTree(filepath.Join(src, c, model), filepath.Join(dst, c, model)); err != nil {
				return fmt.Errorf("failed to copy model %s/%s: %w", c, model, err)
			}
		}
	}
	return nil
}

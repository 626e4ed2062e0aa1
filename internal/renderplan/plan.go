// Package renderplan builds the camera plan the external render engine
// consumes: for every collection, a set of poses on a fixed-radius sphere
// aimed at the origin, with per-view field of view.
package renderplan

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"strings"

	"github.com/parallax-data/renderset/internal/camera"
	"github.com/parallax-data/renderset/internal/fsutil"
)

// View is one planned camera shot.
type View struct {
	FileStem  string           `json:"file_stem"`
	Yaw       float64          `json:"yaw"`
	Pitch     float64          `json:"pitch"`
	Roll      float64          `json:"roll"`
	FOV       float64          `json:"fov"`
	Radius    float64          `json:"radius"`
	Position  camera.Vec3      `json:"position"`
	Transform camera.Transform `json:"transform_matrix"`
}

// Plan is the full camera plan across collections.
type Plan struct {
	Views       int               `json:"views"`
	Radius      float64           `json:"radius"`
	Seed        int64             `json:"seed"`
	Collections map[string][]View `json:"collections"`
}

// Options configures plan generation.
type Options struct {
	// Collections are the collection names to plan, in render order.
	Collections []string
	// SkipUpTo optionally resumes a crashed render batch: collections before
	// this name are left out, and the plan resumes at this collection so a
	// partially-rendered one is re-rendered in full.
	SkipUpTo string
	// Views per collection. Ignored when Deterministic is set.
	Views int
	// Radius of the camera sphere.
	Radius float64
	// FOV sampling configuration.
	FOV camera.FOVSampler
	// Seed for pose and FOV sampling.
	Seed int64
	// Deterministic replaces random sampling with the fixed 129-view
	// latitude sweep.
	Deterministic bool
}

// Build generates the plan. Every collection gets its own freshly sampled
// poses, matching how the engine renders collections one at a time.
func Build(opts Options) (*Plan, error) {
	if len(opts.Collections) == 0 {
		return nil, fmt.Errorf("no collections to plan")
	}
	if opts.Radius <= 0 {
		return nil, fmt.Errorf("camera radius must be positive, got %v", opts.Radius)
	}
	views := opts.Views
	if opts.Deterministic {
		views = camera.SweepViews
	}
	if views <= 0 {
		return nil, fmt.Errorf("view count must be positive, got %d", opts.Views)
	}

	collections := opts.Collections
	if opts.SkipUpTo != "" {
		idx := -1
		for i, c := range collections {
			if c == opts.SkipUpTo {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("skip-up-to collection %q not in the collection list", opts.SkipUpTo)
		}
		collections = collections[idx:]
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	plan := &Plan{
		Views:       views,
		Radius:      opts.Radius,
		Seed:        opts.Seed,
		Collections: make(map[string][]View, len(collections)),
	}

	for _, c := range collections {
		var angles []camera.Angles
		if opts.Deterministic {
			angles = camera.SweepAngles()
		} else {
			angles = camera.RandomAngles(views, rng)
		}

		fovs, err := opts.FOV.Sample(len(angles), rng)
		if err != nil {
			return nil, err
		}

		planned := make([]View, len(angles))
		for i, a := range angles {
			pos := camera.SpherePoint(a.Yaw, a.Pitch, opts.Radius)
			planned[i] = View{
				FileStem:  fmt.Sprintf("%06d", i),
				Yaw:       a.Yaw,
				Pitch:     a.Pitch,
				Roll:      a.Roll,
				FOV:       fovs[i],
				Radius:    opts.Radius,
				Position:  pos,
				Transform: camera.LookAt(pos),
			}
		}
		plan.Collections[c] = planned
	}
	return plan, nil
}

// Write stores the plan as indented JSON.
func (p *Plan) Write(path string) error {
	data, err := json.MarshalIndent(p, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode plan: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write plan %s: %w", path, err)
	}
	return nil
}

// LoadCollections resolves the collection list for planning: a directory
// yields its sorted subdirectory names, a file is read as one name per line
// ('#' comments allowed).
func LoadCollections(path string) ([]string, error) {
	if fsutil.IsDir(path) {
		return fsutil.ListSubdirs(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read collection list %s: %w", path, err)
	}

	var names []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("collection list %s is empty", path)
	}
	return names, nil
}

// Command renderplan emits the camera plan the external render engine
// consumes: per-collection poses on a fixed-radius sphere aimed at the origin.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"

	"github.com/parallax-data/renderset/internal/camera"
	"github.com/parallax-data/renderset/internal/renderplan"
	"github.com/parallax-data/renderset/internal/version"
)

func main() {
	collections := flag.String("collections", "", "collections to plan: a dataset directory or a file with one name per line")
	out := flag.String("out", "plan.json", "output plan path")
	views := flag.Int("views", 128, "views per collection")
	radius := flag.Float64("radius", 3.5, "camera sphere radius")
	fovDist := flag.String("fov-dist", "constant", "fov distribution: constant, uniform or truncnorm")
	fovMean := flag.Float64("fov-mean", math.Pi/4, "fov mean (constant and truncnorm)")
	fovStd := flag.Float64("fov-std", 0, "fov stddev (truncnorm)")
	fovMin := flag.Float64("fov-min", 0, "fov lower bound (uniform and truncnorm)")
	fovMax := flag.Float64("fov-max", 0, "fov upper bound (uniform and truncnorm)")
	seed := flag.Int64("seed", 42, "sampling seed")
	deterministic := flag.Bool("deterministic", false, "use the fixed 129-view latitude sweep instead of random poses")
	skipUpTo := flag.String("skip-up-to", "", "resume: skip collections before this name and re-plan from it")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("renderplan %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}
	if *collections == "" {
		flag.Usage()
		os.Exit(2)
	}

	names, err := renderplan.LoadCollections(*collections)
	if err != nil {
		log.Fatalf("failed to load collections: %v", err)
	}

	plan, err := renderplan.Build(renderplan.Options{
		Collections: names,
		SkipUpTo:    *skipUpTo,
		Views:       *views,
		Radius:      *radius,
		FOV: camera.FOVSampler{
			Dist: *fovDist,
			Mean: *fovMean,
			Std:  *fovStd,
			Min:  *fovMin,
			Max:  *fovMax,
		},
		Seed:          *seed,
		Deterministic: *deterministic,
	})
	if err != nil {
		log.Fatalf("failed to build plan: %v", err)
	}

	if err := plan.Write(*out); err != nil {
		log.Fatalf("failed to write plan: %v", err)
	}
	log.Printf("✓ Planned %d collections x %d views: %s", len(plan.Collections), plan.Views, *out)
}

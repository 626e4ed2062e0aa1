// Command convert packages a filtered render tree for training: resizes every
// view, flattens the layout, reduces camera transforms to yaw/pitch/roll and
// writes the dataset.json manifest — optionally all inside one zip archive.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/parallax-data/renderset/internal/convert"
	"github.com/parallax-data/renderset/internal/statsdb"
	"github.com/parallax-data/renderset/internal/version"
)

func main() {
	src := flag.String("src", "", "filtered dataset root")
	dst := flag.String("dst", "", "output root (or <dst>.zip with -zip)")
	size := flag.Int("size", 1024, "square output resolution")
	jobs := flag.Int("jobs", convert.DefaultJobs, "conversion workers")
	zipOut := flag.Bool("zip", false, "pack the output into a single uncompressed zip and delete the loose tree")
	roll := flag.Bool("roll", false, "keep roll angles instead of requiring them to be zero")
	statsPath := flag.String("stats-db", "", "optional sqlite file recording the run")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("convert %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}
	if *src == "" || *dst == "" {
		flag.Usage()
		os.Exit(2)
	}

	opts := convert.Options{
		Src:       *src,
		Dst:       *dst,
		Size:      *size,
		Jobs:      *jobs,
		Zip:       *zipOut,
		AllowRoll: *roll,
	}

	if *statsPath != "" {
		db, err := statsdb.Open(*statsPath)
		if err != nil {
			log.Fatalf("failed to open stats db: %v", err)
		}
		defer db.Close()
		opts.Stats = db
	}

	res, err := convert.Run(opts)
	if err != nil {
		log.Fatalf("convert failed: %v", err)
	}

	out := res.ManifestPath
	if res.ArchivePath != "" {
		out = res.ArchivePath
	}
	log.Printf("✓ Converted %d views (%d excluded): %s", res.Views, res.Failed, out)
}

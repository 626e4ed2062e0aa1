// Command filter drops near-empty models from a raw render tree: it measures
// per-model foreground occupancy and copies only models above the threshold
// (and not manually excluded) into a fresh dataset tree.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/parallax-data/renderset/internal/filter"
	"github.com/parallax-data/renderset/internal/statsdb"
	"github.com/parallax-data/renderset/internal/version"
)

func main() {
	src := flag.String("src", "", "raw dataset root (collection/model/*.png)")
	dst := flag.String("dst", "", "where to write the filtered tree")
	threshold := flag.Float64("threshold", 0, "minimum mean occupancy to keep a model, e.g. 0.05 for plants, 0.03 for food")
	exclude := flag.String("exclude", "", "manual exclusion list: one model name per line, '#' comments")
	jobs := flag.Int("jobs", 0, "occupancy workers (default: number of CPUs)")
	statsPath := flag.String("stats-db", "", "optional sqlite file recording runs and caching occupancies")
	reportPath := flag.String("report", "", "optional HTML occupancy report path")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("filter %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}
	if *src == "" || *dst == "" || *threshold == 0 {
		flag.Usage()
		os.Exit(2)
	}

	opts := filter.Options{
		Src:         *src,
		Dst:         *dst,
		Threshold:   *threshold,
		ExcludeFile: *exclude,
		Jobs:        *jobs,
		ReportPath:  *reportPath,
	}

	if *statsPath != "" {
		db, err := statsdb.Open(*statsPath)
		if err != nil {
			log.Fatalf("failed to open stats db: %v", err)
		}
		defer db.Close()
		opts.Stats = db
	}

	res, err := filter.Run(opts)
	if err != nil {
		log.Fatalf("filter failed: %v", err)
	}
	log.Printf("✓ Filtered %s -> %s: kept %d of %d models (%d unreadable)",
		*src, *dst, res.ModelsKept, res.ModelsSeen, res.ModelsSkipped)
}

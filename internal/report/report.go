// Package report renders quick HTML summaries of a filter run so thresholds
// can be sanity-checked without pulling the dataset into a notebook.
package report

import (
	"fmt"
	"os"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// histogramBins is the number of equal-width occupancy buckets over [0, 1].
const histogramBins = 20

// WriteOccupancyHistogram writes a standalone HTML bar chart of the per-model
// occupancy distribution, annotated with the filter threshold.
func WriteOccupancyHistogram(path string, occupancies map[string]float64, threshold float64) error {
	counts := make([]int, histogramBins)
	kept := 0
	for _, occ := range occupancies {
		bin := int(occ * histogramBins)
		if bin >= histogramBins {
			bin = histogramBins - 1
		}
		if bin < 0 {
			bin = 0
		}
		counts[bin]++
		if occ >= threshold {
			kept++
		}
	}

	labels := make([]string, histogramBins)
	data := make([]opts.BarData, histogramBins)
	for i := range counts {
		lo := float64(i) / histogramBins
		hi := float64(i+1) / histogramBins
		labels[i] = fmt.Sprintf("%.2f–%.2f", lo, hi)
		data[i] = opts.BarData{Value: counts[i]}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: "Model occupancy distribution",
			Subtitle: fmt.Sprintf("threshold %.3f — %d of %d models kept",
				threshold, kept, len(occupancies)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(labels).AddSeries("models", data)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report %s: %w", path, err)
	}
	defer f.Close()

	if err := bar.Render(f); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return nil
}

// TopOffenders returns the n lowest-occupancy models, worst first, for log
// output alongside the histogram.
func TopOffenders(occupancies map[string]float64, n int) []string {
	type entry struct {
		name string
		occ  float64
	}
	entries := make([]entry, 0, len(occupancies))
	for name, occ := range occupancies {
		entries = append(entries, entry{name, occ})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].occ != entries[j].occ {
			return entries[i].occ < entries[j].occ
		}
		return entries[i].name < entries[j].name
	})

	if n > len(entries) {
		n = len(entries)
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = fmt.Sprintf("%s (%.4f)", entries[i].name, entries[i].occ)
	}
	return out
}

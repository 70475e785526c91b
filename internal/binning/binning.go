// Package binning maps one site's irregularly spaced time series onto
// a fixed arithmetic age grid and aggregates the samples that land in
// each bin. Bins with no contributing samples are absent from the
// output, never emitted as zero.
package binning

import (
	"fmt"
	"math"
	"sort"

	"github.com/charflux/charflux/internal/types"
	"gonum.org/v1/gonum/stat"
)

// Grid is a fixed arithmetic bin grid over the age axis. Bin k
// (1-based) is centered on Ages[k-1] = Start + (k-1)*Step, with bin
// boundaries at half-steps around each center.
type Grid struct {
	Start float64
	End   float64
	Step  float64
	Ages  []float64
}

// NewGrid builds the grid. A nonpositive step or an end before the
// start is a structural error and aborts the run.
func NewGrid(start, end, step float64) (*Grid, error) {
	if step <= 0 {
		return nil, fmt.Errorf("bin step must be positive, got %v", step)
	}
	if end < start {
		return nil, fmt.Errorf("bin grid end %v precedes start %v", end, start)
	}
	n := int(math.Floor((end-start)/step)) + 1
	g := &Grid{Start: start, End: end, Step: step, Ages: make([]float64, n)}
	for k := 0; k < n; k++ {
		g.Ages[k] = start + float64(k)*step
	}
	return g, nil
}

// Index returns the 1-based bin index for an age. The division uses
// ceiling semantics, including for negative dividends, so boundaries
// sit at half-steps around each grid center.
func (g *Grid) Index(age float64) int {
	return int(math.Ceil((age-g.Start-g.Step/2)/g.Step)) + 1
}

// Contains reports whether a bin index has a grid center. Samples
// whose index falls off the grid contribute nothing: center ages are
// looked up, never recomputed, so an index without a grid point cannot
// produce a row.
func (g *Grid) Contains(idx int) bool {
	return idx >= 1 && idx <= len(g.Ages)
}

// Result is one site's binning outcome. When Skipped is set the site
// produced no rows and Reason says why.
type Result struct {
	Records []types.BinnedRecord
	Skipped bool
	Reason  string
}

// BinSite aggregates one site's (age, value) series onto the grid.
// Only points with a present age and a present, finite value are
// binned. The site is skipped entirely when it has no present values,
// or when every present value is non-finite.
func BinSite(g *Grid, points []types.SeriesPoint) *Result {
	var present, nonFinite int
	for _, p := range points {
		if !p.Value.Valid {
			continue
		}
		present++
		if !p.Value.Finite() {
			nonFinite++
		}
	}
	if present == 0 {
		return &Result{Skipped: true, Reason: "no present values"}
	}
	if nonFinite >= present {
		return &Result{Skipped: true, Reason: "all present values are non-finite"}
	}

	groups := make(map[int]*binGroup)
	for _, p := range points {
		if !p.Age.Valid || !p.Value.Finite() {
			continue
		}
		idx := g.Index(p.Age.Float64)
		if !g.Contains(idx) {
			continue
		}
		grp := groups[idx]
		if grp == nil {
			grp = &binGroup{}
			groups[idx] = grp
		}
		grp.values = append(grp.values, p.Value.Float64)
		grp.ages = append(grp.ages, p.Age.Float64)
	}

	// Map iteration order is arbitrary; output order must be ascending
	// bin index.
	indices := make([]int, 0, len(groups))
	for idx := range groups {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	r := &Result{Records: make([]types.BinnedRecord, 0, len(indices))}
	for _, idx := range indices {
		grp := groups[idx]
		r.Records = append(r.Records, types.BinnedRecord{
			BinIndex: idx,
			BinAge:   g.Ages[idx-1],
			Mean:     stat.Mean(grp.values, nil),
			Count:    len(grp.values),
			MeanAge:  stat.Mean(grp.ages, nil),
		})
	}
	return r
}

type binGroup struct {
	values []float64
	ages   []float64
}

// Package transform rescales one site's value series before binning.
// Transforms never interpolate, smooth, or model: missing values stay
// missing, and a degenerate series (constant under zscore, flat under
// minimax) is allowed to produce non-finite values that the binning
// eligibility gate then rejects.
package transform

import (
	"fmt"

	"github.com/charflux/charflux/internal/types"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Func rescales a value series in place-order: the returned slice has
// one element per input element, missing where the input was missing.
type Func func(values []types.Value) []types.Value

// New returns the named transform. Unknown names are a structural
// error.
func New(name string) (Func, error) {
	switch name {
	case "", "none":
		return None, nil
	case "zscore":
		return ZScore, nil
	case "minimax":
		return Minimax, nil
	}
	return nil, fmt.Errorf("unknown transform %q", name)
}

// None copies the series through unchanged.
func None(values []types.Value) []types.Value {
	out := make([]types.Value, len(values))
	copy(out, values)
	return out
}

// ZScore centers and scales by the mean and standard deviation of the
// site's finite values. The division is deliberately unguarded: a
// constant series yields NaN/Inf, which downstream eligibility
// checking rejects rather than this package inventing a value.
func ZScore(values []types.Value) []types.Value {
	mean, stddev := stat.MeanStdDev(finite(values), nil)
	out := make([]types.Value, len(values))
	for i, v := range values {
		if !v.Valid {
			continue
		}
		out[i] = types.Of((v.Float64 - mean) / stddev)
	}
	return out
}

// Minimax rescales onto [0,1] by the finite minimum and maximum.
// A flat series divides by zero, same policy as ZScore.
func Minimax(values []types.Value) []types.Value {
	mags := finite(values)
	if len(mags) == 0 {
		return None(values)
	}
	lo, hi := floats.Min(mags), floats.Max(mags)
	out := make([]types.Value, len(values))
	for i, v := range values {
		if !v.Valid {
			continue
		}
		out[i] = types.Of((v.Float64 - lo) / (hi - lo))
	}
	return out
}

// finite extracts the present, finite magnitudes of a series.
func finite(values []types.Value) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if v.Finite() {
			out = append(out, v.Float64)
		}
	}
	return out
}

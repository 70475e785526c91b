// Package derive computes deposition quantities for one site's ordered
// sample sequence: thickness, deposition time, sedimentation rate, and
// the concentration/influx pair, plus the site's data-quality flags.
package derive

import (
	"fmt"

	"github.com/charflux/charflux/internal/types"
)

// Provenance tags for the concentration/influx pair. The pair is
// constant per quantity-type code; the first tag describes
// concentration, the second influx.
const (
	ProvData       = "data"
	ProvFromInflux = "calculated from influx"
	ProvFromConc   = "calculated from conc"
	ProvC0P0       = "C0P0"
	ProvFromC0P0   = "calculated from C0P0"
	ProvCopied     = "copied from quant"
)

// Result is one site's derivation output: the enriched samples in
// input order, the accumulated anomaly flags, and the ordered log
// events emitted while processing. Nothing in a Result is mutated
// after Derive returns.
type Result struct {
	Samples []types.EnrichedSample
	Flags   types.SiteFlags
	Events  []string
}

// position of a sample within its site's ordered sequence. The four
// cases carry different neighbor arithmetic.
type position int

const (
	posOnly position = iota
	posFirst
	posInterior
	posLast
)

func positionOf(i, n int) position {
	switch {
	case n == 1:
		return posOnly
	case i == 0:
		return posFirst
	case i == n-1:
		return posLast
	}
	return posInterior
}

// Derive runs the derivation engine over one site's samples. Samples
// must be in source order (increasing depth/age as loaded); the order
// is load-bearing because every computation is defined by positional
// neighbors. A site with no samples yields nil: the caller decides
// whether to log the skip.
func Derive(siteID int, samples []types.Sample) *Result {
	n := len(samples)
	if n == 0 {
		return nil
	}

	r := &Result{Samples: make([]types.EnrichedSample, n)}
	r.logf("Site %s %d samples", types.SiteLabel(siteID), n)

	for i := range samples {
		r.Samples[i].Sample = samples[i]
	}

	for i := range r.Samples {
		es := &r.Samples[i]
		switch positionOf(i, n) {
		case posOnly:
			// No neighbor: every derived field stays missing.
		case posFirst:
			es.Thickness = samples[1].Depth.Sub(samples[0].Depth).Scale(100)
			es.DepTime = samples[1].EstAge.Sub(samples[0].EstAge)
			es.SedRate, es.UnitDepTime = rateFrom(es.Thickness, es.DepTime)
		case posInterior:
			es.Thickness = samples[i+1].Depth.Sub(samples[i].Depth).Scale(100)
			es.DepTime = types.Midpoint(samples[i+1].EstAge, samples[i].EstAge).
				Sub(types.Midpoint(samples[i].EstAge, samples[i-1].EstAge))
			es.SedRate, es.UnitDepTime = rateFrom(es.Thickness, es.DepTime)
		case posLast:
			// Replicated verbatim from the penultimate sample; only
			// the deposition time is computed independently.
			prev := &r.Samples[n-2]
			es.Thickness = prev.Thickness
			es.SedRate = prev.SedRate
			es.UnitDepTime = prev.UnitDepTime
			es.DepTime = samples[n-1].EstAge.Sub(samples[n-2].EstAge)
		}
	}

	r.accumulateFlags(n)

	code := types.ParseQuantityType(string(samples[0].QuantityType))
	r.logf("Site %s quantity type %s", types.SiteLabel(siteID), code)
	for i := range r.Samples {
		dispatch(&r.Samples[i], code)
	}

	nonzeroInflux := 0
	for i := range r.Samples {
		if v := r.Samples[i].Influx; v.Valid && v.Float64 != 0 {
			nonzeroInflux++
		}
	}
	if nonzeroInflux == 0 {
		r.Flags.AllZeroInflux = true
		r.logf("Site %s all influx values are zero", types.SiteLabel(siteID))
	}

	return r
}

// rateFrom derives the sedimentation rate and unit deposition time
// from one sample's thickness and deposition time. The rate exists
// only for a strictly positive deposition time; the unit deposition
// time exists only for a present, nonzero rate.
func rateFrom(thickness, depTime types.Value) (sedRate, unitDepTime types.Value) {
	if thickness.Valid && depTime.Valid && depTime.Float64 > 0 {
		sedRate = thickness.Div(depTime)
	}
	unitDepTime = sedRate.Inv()
	return sedRate, unitDepTime
}

// accumulateFlags walks the enriched sequence once, counting field
// coverage and OR-accumulating the reversal and rate anomalies. Flags
// never clear once set.
func (r *Result) accumulateFlags(n int) {
	var nDepth, nAge, nQuant, nRate int
	for i := range r.Samples {
		es := &r.Samples[i]
		if es.Depth.Valid {
			nDepth++
		}
		if es.EstAge.Valid {
			nAge++
		}
		if es.Quantity.Valid {
			nQuant++
		}
		if es.SedRate.Valid {
			nRate++
		}

		if es.SedRate.Valid && es.SedRate.Float64 <= 0 && !r.Flags.NonpositiveSedRate {
			r.Flags.NonpositiveSedRate = true
			r.logf("nonpositive sedimentation rate at sample %d", es.Index)
		}

		if i == 0 {
			continue
		}
		prev := &r.Samples[i-1]
		if es.EstAge.Valid && prev.EstAge.Valid && es.EstAge.Float64 <= prev.EstAge.Float64 && !r.Flags.AgeReversal {
			r.Flags.AgeReversal = true
			r.logf("age reversal at sample %d", es.Index)
		}
		if es.Depth.Valid && prev.Depth.Valid && es.Depth.Float64 <= prev.Depth.Float64 && !r.Flags.DepthReversal {
			r.Flags.DepthReversal = true
			r.logf("depth reversal at sample %d", es.Index)
		}
	}

	partial := func(count int) bool { return count > 0 && count < n }
	r.Flags.PartialDepth = partial(nDepth)
	r.Flags.PartialAge = partial(nAge)
	r.Flags.PartialQuantity = partial(nQuant)
	r.Flags.PartialSedRate = partial(nRate)
	if r.Flags.PartialDepth {
		r.logf("depth present for %d of %d samples", nDepth, n)
	}
	if r.Flags.PartialAge {
		r.logf("age present for %d of %d samples", nAge, n)
	}
	if r.Flags.PartialQuantity {
		r.logf("quantity present for %d of %d samples", nQuant, n)
	}
	if r.Flags.PartialSedRate {
		r.logf("sedimentation rate present for %d of %d samples", nRate, n)
	}
}

// dispatch populates the concentration/influx pair for one sample
// according to the site's quantity-type code. The code decides which
// side is primary data and which is derived; the derived side falls
// back to a verbatim copy of the quantity when the multiplier is
// missing or the rate is exactly zero. Whenever the quantity is
// present, both sides end up present.
func dispatch(es *types.EnrichedSample, code types.QuantityType) {
	quant := es.Quantity
	switch code {
	case types.QuantityInflux:
		es.Influx = quant
		es.Concentration = quant
		if quant.Valid && es.UnitDepTime.Valid && es.SedRate.Valid && es.SedRate.Float64 != 0 {
			es.Concentration = quant.Mul(es.UnitDepTime)
		}
		es.ConcProvenance = ProvFromInflux
		es.InfluxProvenance = ProvData
	case types.QuantityConcentration:
		es.Concentration = quant
		es.Influx = quant
		if quant.Valid && es.SedRate.Valid && es.SedRate.Float64 != 0 {
			es.Influx = quant.Mul(es.SedRate)
		}
		es.ConcProvenance = ProvData
		es.InfluxProvenance = ProvFromConc
	case types.QuantityC0P0:
		es.Concentration = quant
		es.Influx = quant
		if es.SedRate.Valid && es.SedRate.Float64 != 0 {
			es.Influx = quant.Mul(es.SedRate)
		}
		es.ConcProvenance = ProvC0P0
		es.InfluxProvenance = ProvFromC0P0
	default:
		// SOIL, OTHE, and unrecognized codes copy through.
		es.Concentration = quant
		es.Influx = quant
		es.ConcProvenance = ProvCopied
		es.InfluxProvenance = ProvCopied
	}
}

func (r *Result) logf(template string, args ...interface{}) {
	r.Events = append(r.Events, fmt.Sprintf(template, args...))
}

package derive

import (
	"math"
	"strings"
	"testing"

	"github.com/charflux/charflux/internal/types"
)

const epsilon = 1e-9

func makeSamples(depths, ages, quants []float64, code types.QuantityType) []types.Sample {
	samples := make([]types.Sample, len(depths))
	for i := range samples {
		samples[i] = types.Sample{
			Index:        i + 1,
			Depth:        types.Of(depths[i]),
			EstAge:       types.Of(ages[i]),
			Quantity:     types.Of(quants[i]),
			QuantityType: code,
		}
	}
	return samples
}

func approx(t *testing.T, name string, got types.Value, want float64) {
	t.Helper()
	if !got.Valid {
		t.Fatalf("%s is missing, want %v", name, want)
	}
	if math.Abs(got.Float64-want) > epsilon {
		t.Errorf("%s = %v, want %v", name, got.Float64, want)
	}
}

func TestDeriveConcentrationSite(t *testing.T) {
	// depth in meters, 1 cm spacing; CONC site.
	samples := makeSamples(
		[]float64{10, 11, 12},
		[]float64{100, 105, 112},
		[]float64{5, 6, 7},
		types.QuantityConcentration,
	)
	r := Derive(1, samples)
	if r == nil {
		t.Fatal("Derive returned nil")
	}
	if len(r.Samples) != 3 {
		t.Fatalf("got %d enriched samples, want 3", len(r.Samples))
	}

	// Thickness 100 cm everywhere, replicated at the end.
	for _, es := range r.Samples {
		approx(t, "thickness", es.Thickness, 100)
	}

	// First: depTime 5, rate 20. Interior: depTime = 108.5-102.5 = 6,
	// rate 100/6. Last: rate replicated from the interior sample,
	// depTime = 112-105.
	approx(t, "depTime[0]", r.Samples[0].DepTime, 5)
	approx(t, "sedRate[0]", r.Samples[0].SedRate, 20)
	approx(t, "unitDepTime[0]", r.Samples[0].UnitDepTime, 0.05)
	approx(t, "depTime[1]", r.Samples[1].DepTime, 6)
	approx(t, "sedRate[1]", r.Samples[1].SedRate, 100.0/6)
	approx(t, "depTime[2]", r.Samples[2].DepTime, 7)
	approx(t, "sedRate[2]", r.Samples[2].SedRate, 100.0/6)

	for i, es := range r.Samples {
		approx(t, "concentration", es.Concentration, []float64{5, 6, 7}[i])
		if es.ConcProvenance != ProvData {
			t.Errorf("conc provenance[%d] = %q, want %q", i, es.ConcProvenance, ProvData)
		}
		if es.InfluxProvenance != ProvFromConc {
			t.Errorf("influx provenance[%d] = %q, want %q", i, es.InfluxProvenance, ProvFromConc)
		}
	}
	approx(t, "influx[0]", r.Samples[0].Influx, 5*20)
	approx(t, "influx[1]", r.Samples[1].Influx, 6*100.0/6)
	approx(t, "influx[2]", r.Samples[2].Influx, 7*100.0/6)

	if r.Flags != (types.SiteFlags{}) {
		t.Errorf("clean site raised flags: %+v", r.Flags)
	}
}

func TestDeriveSingleSample(t *testing.T) {
	samples := makeSamples([]float64{10}, []float64{100}, []float64{5}, types.QuantityConcentration)
	r := Derive(7, samples)
	es := r.Samples[0]

	for name, v := range map[string]types.Value{
		"thickness":   es.Thickness,
		"depTime":     es.DepTime,
		"sedRate":     es.SedRate,
		"unitDepTime": es.UnitDepTime,
	} {
		if v.Valid {
			t.Errorf("%s = %v for a single-sample site, want missing", name, v.Float64)
		}
	}

	// No rate: both representations fall back to the quantity.
	approx(t, "concentration", es.Concentration, 5)
	approx(t, "influx", es.Influx, 5)
}

func TestDeriveEmptySite(t *testing.T) {
	if r := Derive(3, nil); r != nil {
		t.Errorf("Derive of an empty site = %+v, want nil", r)
	}
}

func TestLastSampleReplication(t *testing.T) {
	samples := makeSamples(
		[]float64{1, 1.05, 1.07, 1.2},
		[]float64{0, 30, 55, 90},
		[]float64{1, 2, 3, 4},
		types.QuantityInflux,
	)
	r := Derive(2, samples)
	n := len(r.Samples)
	last, prev := r.Samples[n-1], r.Samples[n-2]
	if last.Thickness != prev.Thickness {
		t.Errorf("thickness[n] = %+v, want replicated %+v", last.Thickness, prev.Thickness)
	}
	if last.SedRate != prev.SedRate {
		t.Errorf("sedRate[n] = %+v, want replicated %+v", last.SedRate, prev.SedRate)
	}
	if last.UnitDepTime != prev.UnitDepTime {
		t.Errorf("unitDepTime[n] = %+v, want replicated %+v", last.UnitDepTime, prev.UnitDepTime)
	}
	// Deposition time is computed independently for the last sample.
	approx(t, "depTime[n]", last.DepTime, 35)
}

func TestMissingOperandsPoisonDerived(t *testing.T) {
	// Middle depth missing: first and interior thickness both touch it.
	samples := makeSamples(
		[]float64{1, 1.1, 1.2},
		[]float64{0, 50, 100},
		[]float64{1, 2, 3},
		types.QuantityConcentration,
	)
	samples[1].Depth = types.Missing()

	r := Derive(4, samples)
	if r.Samples[0].Thickness.Valid {
		t.Error("thickness[0] computed from a missing depth")
	}
	if r.Samples[1].Thickness.Valid {
		t.Error("thickness[1] computed from a missing depth")
	}
	if r.Samples[0].SedRate.Valid || r.Samples[1].SedRate.Valid {
		t.Error("sed rate computed from a missing thickness")
	}
	if !r.Flags.PartialDepth {
		t.Error("partial depth flag not raised")
	}
	// Concentration and influx still populate: influx falls back to
	// the quantity where the rate is unavailable.
	for i, es := range r.Samples {
		if !es.Concentration.Valid || !es.Influx.Valid {
			t.Errorf("sample %d: conc/influx left missing despite a present quantity", i)
		}
	}
}

func TestQuantityTypeDispatchTotal(t *testing.T) {
	codes := []types.QuantityType{
		types.QuantityInflux,
		types.QuantityConcentration,
		types.QuantityC0P0,
		types.QuantitySoil,
		types.QuantityOther,
		types.QuantityType("WEIRD"),
	}
	for _, code := range codes {
		t.Run(string(code), func(t *testing.T) {
			samples := makeSamples(
				[]float64{1, 1.1, 1.2},
				[]float64{0, 50, 100},
				[]float64{2, 4, 8},
				code,
			)
			r := Derive(5, samples)
			for i, es := range r.Samples {
				if !es.Concentration.Valid {
					t.Errorf("sample %d: concentration missing", i)
				}
				if !es.Influx.Valid {
					t.Errorf("sample %d: influx missing", i)
				}
				if es.ConcProvenance == "" || es.InfluxProvenance == "" {
					t.Errorf("sample %d: empty provenance", i)
				}
			}
		})
	}
}

func TestDispatchProvenancePairs(t *testing.T) {
	tests := []struct {
		code       types.QuantityType
		concProv   string
		influxProv string
	}{
		{types.QuantityInflux, ProvFromInflux, ProvData},
		{types.QuantityConcentration, ProvData, ProvFromConc},
		{types.QuantityC0P0, ProvC0P0, ProvFromC0P0},
		{types.QuantitySoil, ProvCopied, ProvCopied},
		{types.QuantityOther, ProvCopied, ProvCopied},
		{types.QuantityType("????"), ProvCopied, ProvCopied},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			samples := makeSamples([]float64{1, 1.1}, []float64{0, 50}, []float64{3, 3}, tt.code)
			r := Derive(6, samples)
			es := r.Samples[0]
			if es.ConcProvenance != tt.concProv {
				t.Errorf("conc provenance = %q, want %q", es.ConcProvenance, tt.concProv)
			}
			if es.InfluxProvenance != tt.influxProv {
				t.Errorf("influx provenance = %q, want %q", es.InfluxProvenance, tt.influxProv)
			}
		})
	}
}

func TestInfluxSiteDerivesConcentration(t *testing.T) {
	samples := makeSamples(
		[]float64{10, 11, 12},
		[]float64{100, 105, 112},
		[]float64{40, 50, 60},
		types.QuantityInflux,
	)
	r := Derive(8, samples)
	// conc = quant / sedRate via the unit deposition time.
	approx(t, "influx[0]", r.Samples[0].Influx, 40)
	approx(t, "conc[0]", r.Samples[0].Concentration, 40*0.05)
	approx(t, "conc[1]", r.Samples[1].Concentration, 50*(6.0/100))
}

func TestReversalFlagsMonotone(t *testing.T) {
	// One age reversal in the middle; later pairs are fine again.
	samples := makeSamples(
		[]float64{1, 1.1, 1.2, 1.3, 1.4},
		[]float64{0, 50, 40, 60, 90},
		[]float64{1, 1, 1, 1, 1},
		types.QuantityConcentration,
	)
	r := Derive(9, samples)
	if !r.Flags.AgeReversal {
		t.Error("age reversal not flagged")
	}
	if r.Flags.DepthReversal {
		t.Error("depth reversal flagged for monotone depths")
	}

	// Depth reversal, equal values count as reversed.
	samples = makeSamples(
		[]float64{1, 1.1, 1.1, 1.3},
		[]float64{0, 50, 100, 150},
		[]float64{1, 1, 1, 1},
		types.QuantityConcentration,
	)
	r = Derive(10, samples)
	if !r.Flags.DepthReversal {
		t.Error("equal consecutive depths not flagged as reversal")
	}
}

func TestNonpositiveSedRateFlag(t *testing.T) {
	// Depth decreasing gives a negative thickness and rate.
	samples := makeSamples(
		[]float64{1.2, 1.1, 1.0},
		[]float64{0, 50, 100},
		[]float64{1, 1, 1},
		types.QuantityConcentration,
	)
	r := Derive(11, samples)
	if !r.Flags.NonpositiveSedRate {
		t.Error("negative sed rate not flagged")
	}
	if !r.Flags.DepthReversal {
		t.Error("depth reversal not flagged")
	}
}

func TestAllZeroInfluxFlag(t *testing.T) {
	samples := makeSamples(
		[]float64{1, 1.1, 1.2},
		[]float64{0, 50, 100},
		[]float64{0, 0, 0},
		types.QuantityConcentration,
	)
	r := Derive(12, samples)
	if !r.Flags.AllZeroInflux {
		t.Error("all-zero influx not flagged")
	}

	samples[1].Quantity = types.Of(2)
	r = Derive(12, samples)
	if r.Flags.AllZeroInflux {
		t.Error("all-zero influx flagged despite a nonzero sample")
	}
}

func TestEventsIncludeSiteHeader(t *testing.T) {
	samples := makeSamples([]float64{1, 1.1}, []float64{0, 50}, []float64{1, 2}, types.QuantityConcentration)
	r := Derive(42, samples)
	if len(r.Events) == 0 {
		t.Fatal("no events emitted")
	}
	if want := "Site 0042 2 samples"; r.Events[0] != want {
		t.Errorf("first event = %q, want %q", r.Events[0], want)
	}
	found := false
	for _, e := range r.Events {
		if strings.Contains(e, "quantity type CONC") {
			found = true
		}
	}
	if !found {
		t.Error("quantity type event not emitted")
	}
}

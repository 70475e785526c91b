package types

import (
	"math"
	"testing"
)

func TestSentinelRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		sentinel float64
		valid    bool
	}{
		{"real measurement", 42.5, -9999, true},
		{"sentinel becomes missing", -9999, -9999, false},
		{"zero is a real value", 0, -9999, true},
		{"value near sentinel stays real", -9998.999, -9999, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := FromSentinel(tt.input, tt.sentinel)
			if v.Valid != tt.valid {
				t.Fatalf("FromSentinel(%v).Valid = %v, want %v", tt.input, v.Valid, tt.valid)
			}
			got := v.ToSentinel(tt.sentinel)
			if tt.valid && got != tt.input {
				t.Errorf("round trip changed value: %v -> %v", tt.input, got)
			}
			if !tt.valid && got != tt.sentinel {
				t.Errorf("missing value round-tripped to %v, want sentinel %v", got, tt.sentinel)
			}
		})
	}
}

func TestMissingPropagation(t *testing.T) {
	present := Of(3)
	missing := Missing()

	tests := []struct {
		name   string
		result Value
	}{
		{"sub missing left", missing.Sub(present)},
		{"sub missing right", present.Sub(missing)},
		{"mul missing left", missing.Mul(present)},
		{"mul missing right", present.Mul(missing)},
		{"div missing left", missing.Div(present)},
		{"div missing right", present.Div(missing)},
		{"div by zero", present.Div(Of(0))},
		{"inv of missing", missing.Inv()},
		{"inv of zero", Of(0).Inv()},
		{"scale missing", missing.Scale(100)},
		{"midpoint missing left", Midpoint(missing, present)},
		{"midpoint missing right", Midpoint(present, missing)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.result.Valid {
				t.Errorf("expected missing result, got %v", tt.result.Float64)
			}
		})
	}
}

func TestArithmetic(t *testing.T) {
	if got := Of(7).Sub(Of(3)); !got.Valid || got.Float64 != 4 {
		t.Errorf("Sub = %+v, want 4", got)
	}
	if got := Of(2).Mul(Of(5)); !got.Valid || got.Float64 != 10 {
		t.Errorf("Mul = %+v, want 10", got)
	}
	if got := Of(100).Div(Of(5)); !got.Valid || got.Float64 != 20 {
		t.Errorf("Div = %+v, want 20", got)
	}
	if got := Of(20).Inv(); !got.Valid || got.Float64 != 0.05 {
		t.Errorf("Inv = %+v, want 0.05", got)
	}
	if got := Of(0.01).Scale(100); !got.Valid || math.Abs(got.Float64-1) > 1e-12 {
		t.Errorf("Scale = %+v, want 1", got)
	}
	if got := Midpoint(Of(105), Of(112)); !got.Valid || got.Float64 != 108.5 {
		t.Errorf("Midpoint = %+v, want 108.5", got)
	}
}

func TestFinite(t *testing.T) {
	if !Of(1.5).Finite() {
		t.Error("present real value should be finite")
	}
	if Missing().Finite() {
		t.Error("missing value should not be finite")
	}
	if Of(math.NaN()).Finite() {
		t.Error("NaN should not be finite")
	}
	if Of(math.Inf(1)).Finite() || Of(math.Inf(-1)).Finite() {
		t.Error("infinities should not be finite")
	}
}

func TestParseQuantityType(t *testing.T) {
	tests := []struct {
		code       string
		want       QuantityType
		recognized bool
	}{
		{"INFL", QuantityInflux, true},
		{"CONC", QuantityConcentration, true},
		{"C0P0", QuantityC0P0, true},
		{"SOIL", QuantitySoil, true},
		{"OTHE", QuantityOther, true},
		{" conc ", QuantityConcentration, true},
		{"XXXX", QuantityType("XXXX"), false},
		{"", QuantityType(""), false},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got := ParseQuantityType(tt.code)
			if got != tt.want {
				t.Errorf("ParseQuantityType(%q) = %q, want %q", tt.code, got, tt.want)
			}
			if got.Recognized() != tt.recognized {
				t.Errorf("Recognized() = %v, want %v", got.Recognized(), tt.recognized)
			}
		})
	}
}

func TestSiteLabel(t *testing.T) {
	if got := SiteLabel(1); got != "0001" {
		t.Errorf("SiteLabel(1) = %q, want 0001", got)
	}
	if got := SiteLabel(12345); got != "12345" {
		t.Errorf("SiteLabel(12345) = %q, want 12345", got)
	}
}

package types

import "math"

// Value is an optional float64. Charcoal databases mark missing
// measurements with a numeric sentinel (conventionally -9999); inside
// the pipeline that sentinel is never carried as a magnitude. A Value
// is either present (Valid) or missing, and every arithmetic helper
// propagates missingness: any operation with a missing operand yields
// a missing result.
type Value struct {
	Float64 float64
	Valid   bool
}

// Of returns a present Value.
func Of(f float64) Value {
	return Value{Float64: f, Valid: true}
}

// Missing returns the missing Value.
func Missing() Value {
	return Value{}
}

// FromSentinel converts an external numeric field to a Value, treating
// the sentinel as missing. Comparison is exact; sentinels round-trip
// through external files without drift.
func FromSentinel(f, sentinel float64) Value {
	if f == sentinel {
		return Missing()
	}
	return Of(f)
}

// ToSentinel converts a Value back to its external representation.
func (v Value) ToSentinel(sentinel float64) float64 {
	if !v.Valid {
		return sentinel
	}
	return v.Float64
}

// Sub returns v - o, or missing if either operand is missing.
func (v Value) Sub(o Value) Value {
	if !v.Valid || !o.Valid {
		return Missing()
	}
	return Of(v.Float64 - o.Float64)
}

// Mul returns v * o, or missing if either operand is missing.
func (v Value) Mul(o Value) Value {
	if !v.Valid || !o.Valid {
		return Missing()
	}
	return Of(v.Float64 * o.Float64)
}

// Div returns v / o. The result is missing if either operand is
// missing or the divisor is exactly zero.
func (v Value) Div(o Value) Value {
	if !v.Valid || !o.Valid || o.Float64 == 0 {
		return Missing()
	}
	return Of(v.Float64 / o.Float64)
}

// Inv returns 1/v, or missing if v is missing or exactly zero.
func (v Value) Inv() Value {
	if !v.Valid || v.Float64 == 0 {
		return Missing()
	}
	return Of(1 / v.Float64)
}

// Scale returns v * k, or missing if v is missing.
func (v Value) Scale(k float64) Value {
	if !v.Valid {
		return Missing()
	}
	return Of(v.Float64 * k)
}

// Finite reports whether v is present and neither NaN nor infinite.
func (v Value) Finite() bool {
	return v.Valid && !math.IsNaN(v.Float64) && !math.IsInf(v.Float64, 0)
}

// Midpoint returns (a+b)/2, or missing if either operand is missing.
func Midpoint(a, b Value) Value {
	if !a.Valid || !b.Valid {
		return Missing()
	}
	return Of((a.Float64 + b.Float64) / 2)
}

package types

import (
	"fmt"
	"strings"
)

// QuantityType is the closed set of quantity-type codes a site can
// carry. Unrecognized codes are kept verbatim but behave like SOIL and
// OTHE: the measured quantity is copied through unchanged.
type QuantityType string

const (
	QuantityInflux        QuantityType = "INFL"
	QuantityConcentration QuantityType = "CONC"
	QuantityC0P0          QuantityType = "C0P0"
	QuantitySoil          QuantityType = "SOIL"
	QuantityOther         QuantityType = "OTHE"
)

// ParseQuantityType normalizes a raw code (whitespace, case) onto the
// closed set. Anything outside the set is kept verbatim and dispatches
// to the copy-through arm.
func ParseQuantityType(code string) QuantityType {
	q := QuantityType(strings.ToUpper(strings.TrimSpace(code)))
	if q.Recognized() {
		return q
	}
	return QuantityType(code)
}

// Recognized reports whether q is one of the defined codes.
func (q QuantityType) Recognized() bool {
	switch q {
	case QuantityInflux, QuantityConcentration, QuantityC0P0, QuantitySoil, QuantityOther:
		return true
	}
	return false
}

// Site identifies one sediment core / sampling location.
type Site struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// SiteLabel zero-pads a site identifier to four digits for filenames
// and log labels (site 1 -> "0001").
func SiteLabel(id int) string {
	return fmt.Sprintf("%04d", id)
}

// Sample is one raw measurement row for a site. Index is 1-based and
// order-significant: derivation arithmetic is defined over positional
// neighbors, never over a re-sort. Depth is in meters.
type Sample struct {
	Index        int
	SampleID     string
	Depth        Value
	EstAge       Value
	Quantity     Value
	QuantityType QuantityType
}

// EnrichedSample is a Sample plus the derived deposition quantities
// and the provenance of the concentration/influx pair.
type EnrichedSample struct {
	Sample

	Thickness     Value // cm between this sample and the next
	DepTime       Value // time attributed to this sample
	SedRate       Value // cm per unit time
	UnitDepTime   Value // 1 / SedRate
	Concentration Value
	Influx        Value

	ConcProvenance   string
	InfluxProvenance string
}

// SiteFlags records the data-quality anomalies observed while deriving
// one site. Flags accumulate by OR across the site's samples and are
// never cleared once set.
type SiteFlags struct {
	PartialDepth       bool `json:"partial_depth"`
	PartialAge         bool `json:"partial_age"`
	PartialQuantity    bool `json:"partial_quantity"`
	PartialSedRate     bool `json:"partial_sed_rate"`
	DepthReversal      bool `json:"depth_reversal"`
	AgeReversal        bool `json:"age_reversal"`
	NonpositiveSedRate bool `json:"nonpositive_sed_rate"`
	AllZeroInflux      bool `json:"all_zero_influx"`
}

// SeriesPoint is one (age, value) pair fed to the binning stage. The
// value may be missing, or present but non-finite after a transform.
type SeriesPoint struct {
	Age   Value
	Value Value
}

// BinnedRecord is one occupied bin of a site's binned series. MeanAge
// is carried for diagnostics but not written to output.
type BinnedRecord struct {
	BinIndex int     `json:"-"`
	BinAge   float64 `json:"bin_age"`
	Mean     float64 `json:"mean_value"`
	Count    int     `json:"sample_count"`
	MeanAge  float64 `json:"-"`
}

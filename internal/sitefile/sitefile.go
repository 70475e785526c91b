// Package sitefile reads and writes the per-site CSV files that form
// the on-disk hand-off between the derivation and binning stages.
// Missing values are written as the configured sentinel; non-finite
// transformed values round-trip through strconv's NaN/Inf verbs.
package sitefile

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/charflux/charflux/internal/types"
)

var enrichedHeader = []string{
	"sample_index", "sample_id", "depth", "est_age", "sed_rate",
	"quantity", "concentration", "influx", "quantity_type_code",
	"concentration_provenance", "influx_provenance",
}

var siteListHeader = []string{
	"site_id", "site_name", "nsamp",
	"partial_depth", "partial_age", "partial_quantity", "partial_sed_rate",
	"depth_reversal", "age_reversal", "nonpositive_sed_rate", "all_zero_influx",
}

var binnedHeader = []string{"bin_age", "mean_value", "sample_count"}

// SiteListEntry is one row of the site list written after derivation
// and consumed by the binning stage.
type SiteListEntry struct {
	Site  types.Site
	NSamp int
	Flags types.SiteFlags
}

// WriteEnriched writes one site's enriched samples.
func WriteEnriched(path string, samples []types.EnrichedSample, sentinel float64) error {
	return writeCSV(path, enrichedHeader, len(samples), func(i int) []string {
		es := &samples[i]
		return []string{
			strconv.Itoa(es.Index),
			es.SampleID,
			formatValue(es.Depth, sentinel),
			formatValue(es.EstAge, sentinel),
			formatValue(es.SedRate, sentinel),
			formatValue(es.Quantity, sentinel),
			formatValue(es.Concentration, sentinel),
			formatValue(es.Influx, sentinel),
			string(es.QuantityType),
			es.ConcProvenance,
			es.InfluxProvenance,
		}
	})
}

// ReadSeries reads one site's enriched file back as (age, value)
// pairs, taking the value from the named column (typically "influx" or
// "concentration").
func ReadSeries(path, valueColumn string, sentinel float64) ([]types.SeriesPoint, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: missing header row", path)
	}
	ageCol, valCol := -1, -1
	for i, name := range rows[0] {
		switch name {
		case "est_age":
			ageCol = i
		case valueColumn:
			valCol = i
		}
	}
	if ageCol < 0 || valCol < 0 {
		return nil, fmt.Errorf("%s: no est_age/%s columns", path, valueColumn)
	}

	points := make([]types.SeriesPoint, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) <= ageCol || len(row) <= valCol {
			return nil, fmt.Errorf("%s: row has %d columns, want at least %d", path, len(row), max(ageCol, valCol)+1)
		}
		age, err := parseValue(row[ageCol], sentinel)
		if err != nil {
			return nil, fmt.Errorf("%s: bad est_age %q: %w", path, row[ageCol], err)
		}
		val, err := parseValue(row[valCol], sentinel)
		if err != nil {
			return nil, fmt.Errorf("%s: bad %s %q: %w", path, valueColumn, row[valCol], err)
		}
		points = append(points, types.SeriesPoint{Age: age, Value: val})
	}
	return points, nil
}

// ReadEnriched reads one site's enriched file back in full.
func ReadEnriched(path string, sentinel float64) ([]types.EnrichedSample, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: missing header row", path)
	}
	samples := make([]types.EnrichedSample, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) != len(enrichedHeader) {
			return nil, fmt.Errorf("%s: row has %d columns, want %d", path, len(row), len(enrichedHeader))
		}
		index, err := strconv.Atoi(row[0])
		if err != nil {
			return nil, fmt.Errorf("%s: bad sample_index %q: %w", path, row[0], err)
		}
		var es types.EnrichedSample
		es.Index = index
		es.SampleID = row[1]
		fields := []*types.Value{&es.Depth, &es.EstAge, &es.SedRate, &es.Quantity, &es.Concentration, &es.Influx}
		for i, field := range fields {
			v, err := parseValue(row[2+i], sentinel)
			if err != nil {
				return nil, fmt.Errorf("%s: bad %s %q: %w", path, enrichedHeader[2+i], row[2+i], err)
			}
			*field = v
		}
		es.QuantityType = types.QuantityType(row[8])
		es.ConcProvenance = row[9]
		es.InfluxProvenance = row[10]
		samples = append(samples, es)
	}
	return samples, nil
}

// ReadBinned reads one site's binned file back.
func ReadBinned(path string) ([]types.BinnedRecord, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: missing header row", path)
	}
	records := make([]types.BinnedRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) != len(binnedHeader) {
			return nil, fmt.Errorf("%s: row has %d columns, want %d", path, len(row), len(binnedHeader))
		}
		binAge, err := strconv.ParseFloat(row[0], 64)
		if err != nil {
			return nil, fmt.Errorf("%s: bad bin_age %q: %w", path, row[0], err)
		}
		mean, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, fmt.Errorf("%s: bad mean_value %q: %w", path, row[1], err)
		}
		count, err := strconv.Atoi(row[2])
		if err != nil {
			return nil, fmt.Errorf("%s: bad sample_count %q: %w", path, row[2], err)
		}
		records = append(records, types.BinnedRecord{BinAge: binAge, Mean: mean, Count: count})
	}
	return records, nil
}

// WriteSiteList writes the site list with per-site flag columns.
func WriteSiteList(path string, entries []SiteListEntry) error {
	return writeCSV(path, siteListHeader, len(entries), func(i int) []string {
		e := &entries[i]
		return []string{
			strconv.Itoa(e.Site.ID),
			e.Site.Name,
			strconv.Itoa(e.NSamp),
			formatBool(e.Flags.PartialDepth),
			formatBool(e.Flags.PartialAge),
			formatBool(e.Flags.PartialQuantity),
			formatBool(e.Flags.PartialSedRate),
			formatBool(e.Flags.DepthReversal),
			formatBool(e.Flags.AgeReversal),
			formatBool(e.Flags.NonpositiveSedRate),
			formatBool(e.Flags.AllZeroInflux),
		}
	})
}

// ReadSiteList reads the site list back for the binning stage. Flag
// columns are ignored there, so only identity and count are parsed.
func ReadSiteList(path string) ([]SiteListEntry, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: missing header row", path)
	}
	entries := make([]SiteListEntry, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) < 3 {
			return nil, fmt.Errorf("%s: short site list row %v", path, row)
		}
		id, err := strconv.Atoi(row[0])
		if err != nil {
			return nil, fmt.Errorf("%s: bad site_id %q: %w", path, row[0], err)
		}
		nsamp, err := strconv.Atoi(row[2])
		if err != nil {
			return nil, fmt.Errorf("%s: bad nsamp %q: %w", path, row[2], err)
		}
		entries = append(entries, SiteListEntry{
			Site:  types.Site{ID: id, Name: row[1]},
			NSamp: nsamp,
		})
	}
	return entries, nil
}

// WriteBinned writes one site's binned series.
func WriteBinned(path string, records []types.BinnedRecord) error {
	return writeCSV(path, binnedHeader, len(records), func(i int) []string {
		rec := &records[i]
		return []string{
			formatFloat(rec.BinAge),
			formatFloat(rec.Mean),
			strconv.Itoa(rec.Count),
		}
	})
}

// BinnedDir names the output directory for one transform/step
// combination, e.g. "zscore_bw20".
func BinnedDir(transformName string, step float64) string {
	return fmt.Sprintf("%s_bw%s", transformName, formatFloat(step))
}

// SitePath names a per-site file under dir with the zero-padded label.
func SitePath(dir string, siteID int) string {
	return filepath.Join(dir, types.SiteLabel(siteID)+".csv")
}

func writeCSV(path string, header []string, n int, row func(i int) []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	for i := 0; i < n; i++ {
		if err := w.Write(row(i)); err != nil {
			f.Close()
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flushing %s: %w", path, err)
	}
	return f.Close()
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	return r.ReadAll()
}

func formatValue(v types.Value, sentinel float64) string {
	return formatFloat(v.ToSentinel(sentinel))
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func parseValue(s string, sentinel float64) (types.Value, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return types.Missing(), err
	}
	return types.FromSentinel(f, sentinel), nil
}

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

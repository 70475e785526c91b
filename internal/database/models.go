package database

import "github.com/charflux/charflux/internal/types"

// SiteRow represents a site in the source database.
type SiteRow struct {
	SiteID   int    `gorm:"primaryKey;column:site_id"`
	SiteName string `gorm:"column:site_name;not null"`
}

// TableName specifies the table name for SiteRow
func (SiteRow) TableName() string {
	return "sites"
}

// SampleRow represents one raw charcoal sample in the source database.
// Numeric measurement columns are nullable; some snapshots also store
// the -9999 sentinel instead of NULL, which the loaders normalize.
type SampleRow struct {
	SiteID       int      `gorm:"primaryKey;column:site_id"`
	SampleIndex  int      `gorm:"primaryKey;column:sample_index"`
	SampleID     string   `gorm:"column:sample_id"`
	Depth        *float64 `gorm:"column:depth"`
	EstAge       *float64 `gorm:"column:est_age"`
	Quantity     *float64 `gorm:"column:quantity"`
	QuantityType string   `gorm:"column:quantity_type_code"`
}

// TableName specifies the table name for SampleRow
func (SampleRow) TableName() string {
	return "samples"
}

func (s *SampleRow) toSample(sentinel float64) types.Sample {
	return types.Sample{
		Index:        s.SampleIndex,
		SampleID:     s.SampleID,
		Depth:        fromNullable(s.Depth, sentinel),
		EstAge:       fromNullable(s.EstAge, sentinel),
		Quantity:     fromNullable(s.Quantity, sentinel),
		QuantityType: types.ParseQuantityType(s.QuantityType),
	}
}

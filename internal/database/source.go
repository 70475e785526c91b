// Package database loads the raw charcoal records from a source
// database. Sample order within a site is load-bearing downstream, so
// both backends return rows ordered by sample index. Sentinel
// conversion happens here: a NULL column or a stored sentinel
// magnitude both become a missing Value, and nothing past this
// boundary carries sentinel arithmetic.
package database

import (
	"context"

	"github.com/charflux/charflux/internal/types"
)

// SampleSource is a read-only view over one charcoal database.
type SampleSource interface {
	// Sites lists every site in the database, ordered by site ID.
	Sites(ctx context.Context) ([]types.Site, error)

	// SamplesForSite returns one site's samples ordered by sample
	// index. A site with no samples returns an empty slice, not an
	// error.
	SamplesForSite(ctx context.Context, siteID int) ([]types.Sample, error)

	Close() error
}

// fromNullable converts a nullable column plus the external sentinel
// into a Value.
func fromNullable(f *float64, sentinel float64) types.Value {
	if f == nil {
		return types.Missing()
	}
	return types.FromSentinel(*f, sentinel)
}

// charflux-dbgen generates a synthetic charcoal source database for
// local pipeline runs and integration testing. Generation is seeded
// and deterministic; a handful of sites are deliberately anomalous
// (single sample, partial depth coverage, age reversal, all-zero
// quantities) so the derivation flags have something to find.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"math/rand"
	"os"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE sites (
	site_id   INTEGER PRIMARY KEY,
	site_name TEXT NOT NULL
);
CREATE TABLE samples (
	site_id            INTEGER NOT NULL REFERENCES sites(site_id),
	sample_index       INTEGER NOT NULL,
	sample_id          TEXT,
	depth              REAL,
	est_age            REAL,
	quantity           REAL,
	quantity_type_code TEXT,
	PRIMARY KEY (site_id, sample_index)
);
`

func main() {
	out := flag.String("out", "charcoal.db", "Output SQLite database file")
	nSites := flag.Int("sites", 20, "Number of regular sites to generate")
	seed := flag.Int64("seed", 1, "Random seed")
	flag.Parse()

	if err := run(*out, *nSites, *seed); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s\n", *out)
}

func run(out string, nSites int, seed int64) error {
	if _, err := os.Stat(out); err == nil {
		return fmt.Errorf("%s already exists, refusing to overwrite", out)
	}

	db, err := sql.Open("sqlite", out)
	if err != nil {
		return fmt.Errorf("opening %s: %w", out, err)
	}
	defer db.Close()

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	rng := rand.New(rand.NewSource(seed))
	g := &generator{db: db, rng: rng}

	codes := []string{"INFL", "CONC", "C0P0", "SOIL", "OTHE"}
	siteID := 1
	for i := 0; i < nSites; i++ {
		code := codes[i%len(codes)]
		if err := g.regularSite(siteID, code); err != nil {
			return err
		}
		siteID++
	}

	// Anomalous sites at the tail of the ID range.
	anomalies := []func(int) error{
		g.singleSampleSite,
		g.partialDepthSite,
		g.ageReversalSite,
		g.allZeroSite,
	}
	for _, gen := range anomalies {
		if err := gen(siteID); err != nil {
			return err
		}
		siteID++
	}
	return nil
}

type generator struct {
	db  *sql.DB
	rng *rand.Rand
}

func (g *generator) insertSite(siteID int, name string, rows [][]any) error {
	tx, err := g.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO sites (site_id, site_name) VALUES (?, ?)`, siteID, name); err != nil {
		return fmt.Errorf("inserting site %d: %w", siteID, err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO samples (site_id, sample_index, sample_id, depth, est_age, quantity, quantity_type_code)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert statement: %w", err)
	}
	defer stmt.Close()

	for i, row := range rows {
		args := append([]any{siteID, i + 1, fmt.Sprintf("S%d-%03d", siteID, i+1)}, row...)
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("inserting sample %d of site %d: %w", i+1, siteID, err)
		}
	}
	return tx.Commit()
}

// regularSite builds a monotone core: depth in meters increasing by
// 1-3 cm per sample, age increasing by 5-40 years, quantity lognormal-ish.
func (g *generator) regularSite(siteID int, code string) error {
	n := 20 + g.rng.Intn(60)
	rows := make([][]any, n)
	depth, age := 0.10, -50.0
	for i := 0; i < n; i++ {
		depth += 0.01 + 0.02*g.rng.Float64()
		age += 5 + 35*g.rng.Float64()
		quantity := g.rng.ExpFloat64() * 10
		rows[i] = []any{depth, age, quantity, code}
	}
	return g.insertSite(siteID, fmt.Sprintf("Synthetic Lake %d", siteID), rows)
}

func (g *generator) singleSampleSite(siteID int) error {
	rows := [][]any{{0.50, 120.0, 3.5, "CONC"}}
	return g.insertSite(siteID, "Single Sample Bog", rows)
}

// partialDepthSite leaves depth NULL for half the samples.
func (g *generator) partialDepthSite(siteID int) error {
	n := 30
	rows := make([][]any, n)
	depth, age := 0.10, 0.0
	for i := 0; i < n; i++ {
		depth += 0.02
		age += 20 + 10*g.rng.Float64()
		var d any = depth
		if i%2 == 1 {
			d = nil
		}
		rows[i] = []any{d, age, g.rng.ExpFloat64() * 5, "CONC"}
	}
	return g.insertSite(siteID, "Partial Depth Mire", rows)
}

// ageReversalSite has one age pair out of order.
func (g *generator) ageReversalSite(siteID int) error {
	n := 25
	rows := make([][]any, n)
	depth, age := 0.10, 0.0
	for i := 0; i < n; i++ {
		depth += 0.02
		age += 15
		if i == 12 {
			age -= 40 // reversal
		}
		rows[i] = []any{depth, age, g.rng.ExpFloat64() * 5, "INFL"}
	}
	return g.insertSite(siteID, "Reversed Chronology Fen", rows)
}

// allZeroSite has every quantity zero, so influx is all zero.
func (g *generator) allZeroSite(siteID int) error {
	n := 15
	rows := make([][]any, n)
	depth, age := 0.10, 0.0
	for i := 0; i < n; i++ {
		depth += 0.02
		age += 25
		rows[i] = []any{depth, age, 0.0, "CONC"}
	}
	return g.insertSite(siteID, "Charcoal Free Pond", rows)
}

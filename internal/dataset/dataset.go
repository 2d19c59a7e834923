// Package dataset loads the population table and country outlines and joins
// them into the read-only data every page is drawn from.
package dataset

import (
	"context"
	"math"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/popmap/internal/boundary"
	"github.com/sells-group/popmap/internal/config"
	"github.com/sells-group/popmap/internal/fetcher"
	"github.com/sells-group/popmap/internal/mapview"
	"github.com/sells-group/popmap/internal/numfmt"
	"github.com/sells-group/popmap/internal/population"
	"github.com/sells-group/popmap/internal/quartile"
	"github.com/sells-group/popmap/internal/render"
)

// Dataset is the joined population and boundary data. It is immutable once
// loaded and shared by every request.
type Dataset struct {
	Table     *population.Table
	Buckets   quartile.Result
	Countries *boundary.Collection
	Palette   [quartile.NumBuckets]string
	Canvas    mapview.Canvas
	LoadedAt  time.Time
}

// CountrySummary is one population row joined with its outline.
type CountrySummary struct {
	Country   string   `json:"country" yaml:"country"`
	Value     *float64 `json:"value" yaml:"value"`
	Available bool     `json:"available" yaml:"available"`
	Bucket    *int     `json:"bucket" yaml:"bucket"`
	Formatted string   `json:"formatted" yaml:"formatted"`
	AreaKm2   float64  `json:"area_km2,omitempty" yaml:"area_km2,omitempty"`
	Density   float64  `json:"density,omitempty" yaml:"density,omitempty"`
}

// Load reads both sources concurrently and joins them.
func Load(ctx context.Context, cfg *config.Config) (*Dataset, error) {
	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		Timeout:    time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
		MaxRetries: cfg.Fetch.MaxRetries,
		RatePerSec: cfg.Fetch.RatePerSec,
	})

	var (
		table     *population.Table
		countries *boundary.Collection
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		table, err = loadPopulation(gctx, cfg.Data, f)
		return err
	})
	g.Go(func() error {
		var err error
		countries, err = loadBoundaries(gctx, cfg.Data, f)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ds := New(table, countries, cfg.Render)
	ds.logJoin()
	zap.L().Info("dataset: loaded",
		zap.Int("rows", table.Len()),
		zap.Int("available", ds.Buckets.Len()),
		zap.Int("countries", countries.Len()),
	)
	return ds, nil
}

// New builds a Dataset from already parsed sources.
func New(table *population.Table, countries *boundary.Collection, rc config.RenderConfig) *Dataset {
	return &Dataset{
		Table:     table,
		Buckets:   table.Buckets(),
		Countries: countries,
		Palette:   render.PaletteFrom(rc.Colors),
		Canvas:    mapview.Canvas{Width: rc.Width, Height: rc.Height, Padding: rc.Padding},
		LoadedAt:  time.Now(),
	}
}

// NewPage returns a page over the dataset seeded with a selection.
func (d *Dataset) NewPage(sel []string) *mapview.Page {
	return mapview.NewPage(d.Table, d.Buckets, d.Countries, mapview.Options{
		Canvas:    d.Canvas,
		Palette:   d.Palette,
		Selection: sel,
	})
}

// MissingPopulation returns outline names with no population row.
func (d *Dataset) MissingPopulation() []string {
	var out []string
	for _, name := range d.Countries.Names() {
		if _, ok := d.Table.Lookup(name); !ok {
			out = append(out, name)
		}
	}
	return out
}

// MissingBoundary returns population rows with no outline.
func (d *Dataset) MissingBoundary() []string {
	var out []string
	for _, r := range d.Table.Rows() {
		if _, ok := d.lookupCountry(r.Country); !ok {
			out = append(out, r.Country)
		}
	}
	return out
}

// Summaries returns every population row in source order.
func (d *Dataset) Summaries() []CountrySummary {
	rows := d.Table.Rows()
	out := make([]CountrySummary, 0, len(rows))
	for _, r := range rows {
		s := CountrySummary{Country: r.Country, Formatted: "n/a"}
		if c, ok := d.lookupCountry(r.Country); ok {
			s.AreaKm2 = math.Round(c.AreaKm2)
		}
		if r.Available() {
			v := r.Value
			s.Value = &v
			s.Available = true
			s.Formatted = numfmt.Compact(v)
			if b, ok := d.Buckets.BucketOf(r.Country); ok {
				bi := int(b)
				s.Bucket = &bi
			}
			if s.AreaKm2 > 0 {
				s.Density = math.Round(v/s.AreaKm2*100) / 100
			}
		}
		out = append(out, s)
	}
	return out
}

// lookupCountry finds the outline for a population name, exactly or by
// folded key.
func (d *Dataset) lookupCountry(name string) (boundary.Country, bool) {
	return d.Countries.Find(name)
}

func (d *Dataset) logJoin() {
	if missing := d.MissingPopulation(); len(missing) > 0 {
		zap.L().Warn("dataset: missing population",
			zap.Strings("countries", missing),
		)
	}
	if missing := d.MissingBoundary(); len(missing) > 0 {
		zap.L().Warn("dataset: missing boundary",
			zap.Strings("countries", missing),
		)
	}
	if unavailable := d.Table.Unavailable(); len(unavailable) > 0 {
		zap.L().Warn("dataset: unavailable population values",
			zap.Strings("countries", unavailable),
		)
	}
}

func loadPopulation(ctx context.Context, dc config.DataConfig, f fetcher.Fetcher) (*population.Table, error) {
	rc, err := fetcher.Open(ctx, dc.Population, f)
	if err != nil {
		return nil, eris.Wrap(err, "dataset: open population")
	}
	defer rc.Close() //nolint:errcheck

	r, err := fetcher.DecodeCharset(rc, dc.Charset)
	if err != nil {
		return nil, eris.Wrap(err, "dataset: population charset")
	}

	table, err := population.ParseCSV(ctx, r)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: parse population %s", dc.Population)
	}
	return table, nil
}

func loadBoundaries(ctx context.Context, dc config.DataConfig, f fetcher.Fetcher) (*boundary.Collection, error) {
	loc := dc.Boundaries
	switch ext := fetcher.Ext(loc); ext {
	case ".shp":
		if fetcher.IsRemote(loc) {
			dir, err := os.MkdirTemp("", "popmap-shp-*")
			if err != nil {
				return nil, eris.Wrap(err, "dataset: create shapefile dir")
			}
			defer os.RemoveAll(dir) //nolint:errcheck

			local, err := downloadShapefile(ctx, f, loc, dir)
			if err != nil {
				return nil, err
			}
			loc = local
		}
		c, err := boundary.ParseShapefile(loc, dc.NameProperty)
		if err != nil {
			return nil, eris.Wrap(err, "dataset: parse boundaries")
		}
		return c, nil

	case ".geojson", ".json":
		rc, err := fetcher.Open(ctx, loc, f)
		if err != nil {
			return nil, eris.Wrap(err, "dataset: open boundaries")
		}
		defer rc.Close() //nolint:errcheck

		c, err := boundary.ParseGeoJSON(rc, dc.NameProperty)
		if err != nil {
			return nil, eris.Wrapf(err, "dataset: parse boundaries %s", loc)
		}
		return c, nil

	default:
		return nil, eris.Errorf("dataset: unsupported boundary format %q", ext)
	}
}

// shapefileParts are the sidecar files ParseShapefile needs next to the .shp.
var shapefileParts = []string{".shp", ".shx", ".dbf"}

// downloadShapefile fetches a remote .shp and its sidecars into dir and
// returns the local .shp path.
func downloadShapefile(ctx context.Context, f fetcher.Fetcher, rawURL, dir string) (string, error) {
	base, query := rawURL, ""
	if i := strings.IndexAny(rawURL, "?#"); i >= 0 {
		base, query = rawURL[:i], rawURL[i:]
	}
	stem := strings.TrimSuffix(base, path.Ext(base))
	name := path.Base(stem)

	var local string
	for _, ext := range shapefileParts {
		dst := filepath.Join(dir, name+ext)
		if _, err := f.DownloadToFile(ctx, stem+ext+query, dst); err != nil {
			return "", eris.Wrapf(err, "dataset: download %s", name+ext)
		}
		if ext == ".shp" {
			local = dst
		}
	}
	return local, nil
}

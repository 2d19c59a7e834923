package population

import (
	"context"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/popmap/internal/fetcher"
)

// Column names expected in the population header row.
const (
	ColumnCountry = "country"
	ColumnValue   = "value"
)

var (
	// ErrNoHeader is returned when the population file has no header row.
	ErrNoHeader = eris.New("population: missing header row")
	// ErrMissingColumn is returned when the header lacks a required column.
	ErrMissingColumn = eris.New("population: missing column")
)

// ParseCSV reads a population table with a header row naming the "country"
// and "value" columns, in any order. Values that do not parse as numbers are
// kept as NaN and treated as unavailable.
func ParseCSV(ctx context.Context, r io.Reader) (*Table, error) {
	stream, err := fetcher.StreamCSV(ctx, r, fetcher.CSVOptions{
		TrimSpace:  true,
		LazyQuotes: true,
	})
	if eris.Is(err, fetcher.ErrEmptyCSV) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, eris.Wrap(err, "population: read header")
	}

	countryIx, valueIx, err := columnIndexes(stream.Header)
	if err != nil {
		stream.Drain()
		return nil, err
	}

	var (
		rows      []Row
		malformed int
	)
	for rec := range stream.Rows {
		if countryIx >= len(rec) || rec[countryIx] == "" {
			zap.L().Debug("population: skipping row without country", zap.Strings("row", rec))
			continue
		}

		value := math.NaN()
		if valueIx < len(rec) {
			value = parseValue(rec[valueIx])
		}
		if math.IsNaN(value) {
			malformed++
		}
		rows = append(rows, Row{Country: rec[countryIx], Value: value})
	}

	if err := <-stream.Err; err != nil {
		return nil, eris.Wrap(err, "population: read csv")
	}

	if malformed > 0 {
		zap.L().Warn("population: rows with unavailable values",
			zap.Int("count", malformed),
		)
	}

	return NewTable(rows), nil
}

func columnIndexes(header []string) (int, int, error) {
	countryIx, valueIx := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case ColumnCountry:
			countryIx = i
		case ColumnValue:
			valueIx = i
		}
	}
	if countryIx < 0 {
		return 0, 0, eris.Wrapf(ErrMissingColumn, "population: column %q", ColumnCountry)
	}
	if valueIx < 0 {
		return 0, 0, eris.Wrapf(ErrMissingColumn, "population: column %q", ColumnValue)
	}
	return countryIx, valueIx, nil
}

// parseValue converts a numeric field, returning NaN for empty or malformed
// input.
func parseValue(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

func sortRowsByName(rows []Row) {
	sort.Slice(rows, func(i, j int) bool { return rows[i].Country < rows[j].Country })
}

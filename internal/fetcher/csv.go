// Package fetcher opens local or remote data files and streams their contents.
package fetcher

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrEmptyCSV is returned when a delimited file has no header row.
var ErrEmptyCSV = eris.New("csv: empty input")

// CSVOptions configures the streaming CSV parser.
type CSVOptions struct {
	Delimiter  rune // default ','
	Comment    rune // 0 = none
	LazyQuotes bool
	TrimSpace  bool
}

// CSVStream is a header row plus the records that follow it. Rows and Err
// are closed once the reader is exhausted, fails, or the context ends; at
// most one error is sent.
type CSVStream struct {
	Header []string
	Rows   <-chan []string
	Err    <-chan error
}

// Drain discards any remaining rows so the reader goroutine can exit.
func (s *CSVStream) Drain() {
	for range s.Rows {
	}
}

// StreamCSV reads the header row synchronously, stripping a UTF-8 byte order
// mark, and streams the remaining records on a channel.
func StreamCSV(ctx context.Context, r io.Reader, opts CSVOptions) (*CSVStream, error) {
	reader := csv.NewReader(r)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	reader.Comment = opts.Comment
	reader.LazyQuotes = opts.LazyQuotes
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptyCSV
	}
	if err != nil {
		return nil, eris.Wrap(err, "csv: read header")
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	trimFields(header, opts.TrimSpace)

	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}

			record, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "csv: read row")
				return
			}
			trimFields(record, opts.TrimSpace)

			select {
			case rowCh <- record:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}
		}
	}()

	return &CSVStream{Header: header, Rows: rowCh, Err: errCh}, nil
}

func trimFields(record []string, trim bool) {
	if !trim {
		return
	}
	for i, field := range record {
		record[i] = strings.TrimSpace(field)
	}
}

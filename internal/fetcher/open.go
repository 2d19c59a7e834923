package fetcher

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

// Fetcher downloads remote data files. HTTPFetcher is the production
// implementation; tests substitute their own.
type Fetcher interface {
	Download(ctx context.Context, url string) (io.ReadCloser, error)
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}

// IsRemote reports whether location is an http(s) URL.
func IsRemote(location string) bool {
	l := strings.ToLower(location)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

// Ext returns the lower-cased file extension of a path or URL, ignoring any
// query string.
func Ext(location string) string {
	if i := strings.IndexAny(location, "?#"); i >= 0 && IsRemote(location) {
		location = location[:i]
	}
	return strings.ToLower(path.Ext(location))
}

// Open returns a reader for a local path or, when location is a URL, the
// downloaded body. The caller closes the reader.
func Open(ctx context.Context, location string, f Fetcher) (io.ReadCloser, error) {
	if IsRemote(location) {
		if f == nil {
			return nil, eris.Errorf("fetcher: no http fetcher for %s", location)
		}
		return f.Download(ctx, location)
	}
	file, err := os.Open(location)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: open %s", location)
	}
	return file, nil
}

// DecodeCharset wraps r so that it yields UTF-8 from the named charset.
// An empty name or any UTF-8 alias returns r unchanged.
func DecodeCharset(r io.Reader, charset string) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(charset)) {
	case "", "utf-8", "utf8":
		return r, nil
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: unsupported charset %q", charset)
	}
	return enc.NewDecoder().Reader(r), nil
}

// DecodeJSON decodes exactly one JSON value from r. Trailing non-space
// content is an error.
func DecodeJSON[T any](r io.Reader) (*T, error) {
	dec := json.NewDecoder(r)
	var v T
	if err := dec.Decode(&v); err != nil {
		return nil, eris.Wrap(err, "fetcher: decode json")
	}
	if dec.More() {
		return nil, eris.New("fetcher: trailing data after json value")
	}
	return &v, nil
}

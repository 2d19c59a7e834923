package main

import (
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/popmap/internal/fetcher"
)

var fetchDir string

var fetchCmd = &cobra.Command{
	Use:   "fetch <url>...",
	Short: "Download remote data files into a local directory",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			Timeout:    time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
			MaxRetries: cfg.Fetch.MaxRetries,
			RatePerSec: cfg.Fetch.RatePerSec,
		})

		if err := os.MkdirAll(fetchDir, 0o755); err != nil {
			return eris.Wrapf(err, "fetch: create %s", fetchDir)
		}

		for _, rawURL := range args {
			if !fetcher.IsRemote(rawURL) {
				return eris.Errorf("fetch: not an http(s) URL: %s", rawURL)
			}
			name := path.Base(stripQuery(rawURL))
			dst := filepath.Join(fetchDir, name)
			n, err := f.DownloadToFile(ctx, rawURL, dst)
			if err != nil {
				return eris.Wrapf(err, "fetch: %s", rawURL)
			}
			zap.L().Info("fetch: downloaded",
				zap.String("url", rawURL),
				zap.String("path", dst),
				zap.String("size", humanize.Bytes(uint64(n))),
			)
		}
		return nil
	},
}

func stripQuery(rawURL string) string {
	if i := strings.IndexAny(rawURL, "?#"); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}

func init() {
	fetchCmd.Flags().StringVar(&fetchDir, "dir", "data", "destination directory")
	rootCmd.AddCommand(fetchCmd)
}

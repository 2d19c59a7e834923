package main

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/popmap/internal/config"
	"github.com/sells-group/popmap/internal/dataset"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "popmap",
	Short: "Latin American population choropleth",
	Long:  "Loads country populations and outlines, buckets countries into population quartiles, and draws the choropleth and comparison card as SVG, to files or over HTTP.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// loadDataset validates the configuration for mode and loads the data.
func loadDataset(ctx context.Context, mode string) (*dataset.Dataset, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}
	return dataset.Load(ctx, cfg)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

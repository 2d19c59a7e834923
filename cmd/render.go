package main

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/popmap/internal/mapview"
	"github.com/sells-group/popmap/internal/quartile"
	"github.com/sells-group/popmap/internal/render"
)

var (
	renderOut    string
	renderSel    []string
	renderPicks  []string
	renderHover  string
	renderLabel  string
	renderZoom   string
	renderActive int
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Write map.svg and card.svg",
	Long:  "Renders the choropleth and the comparison card for the given selection into the output directory.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		ds, err := loadDataset(ctx, "render")
		if err != nil {
			return err
		}

		page := ds.NewPage(renderSel)
		if err := applyRenderFlags(page); err != nil {
			return err
		}

		dir := renderOut
		if dir == "" {
			dir = cfg.Render.OutputDir
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "render: create %s", dir)
		}

		var mapBuf, cardBuf bytes.Buffer
		if err := render.MapSVG(&mapBuf, page.MapModel()); err != nil {
			return err
		}
		if err := render.CardSVG(&cardBuf, page.CardModel()); err != nil {
			return err
		}

		for name, data := range map[string][]byte{
			"map.svg":  mapBuf.Bytes(),
			"card.svg": cardBuf.Bytes(),
		} {
			path := filepath.Join(dir, name)
			if err := writeFileAtomic(path, data); err != nil {
				return err
			}
			zap.L().Info("render: wrote file",
				zap.String("path", path),
				zap.Int("bytes", len(data)),
			)
		}
		return nil
	},
}

func applyRenderFlags(page *mapview.Page) error {
	page.SetZoom(renderZoom)
	for _, name := range renderPicks {
		page.OnFeatureClick(name)
	}
	if renderHover != "" {
		page.OnFeatureHover(renderHover)
	}
	if renderLabel != "" {
		page.ShowLabel(renderLabel)
	}
	if renderActive >= 0 {
		if err := page.ToggleQuartile(quartile.Bucket(renderActive)); err != nil {
			return eris.Wrap(err, "render: --active")
		}
	}
	return nil
}

// writeFileAtomic writes data to a temp file beside path and renames it into
// place, so readers never see a partial document.
func writeFileAtomic(path string, data []byte) error {
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return eris.Wrapf(err, "render: create temp for %s", path)
	}
	defer os.Remove(f.Name()) //nolint:errcheck // no-op after rename

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return eris.Wrapf(err, "render: write %s", path)
	}
	if err := f.Close(); err != nil {
		return eris.Wrapf(err, "render: close %s", path)
	}
	if err := os.Chmod(f.Name(), 0o644); err != nil {
		return eris.Wrapf(err, "render: chmod %s", path)
	}
	if err := os.Rename(f.Name(), path); err != nil {
		return eris.Wrapf(err, "render: rename %s", path)
	}
	return nil
}

func init() {
	renderCmd.Flags().StringVar(&renderOut, "out", "", "output directory (default from config)")
	renderCmd.Flags().StringSliceVar(&renderSel, "sel", nil, "initially selected countries")
	renderCmd.Flags().StringArrayVar(&renderPicks, "pick", nil, "countries to click, in order")
	renderCmd.Flags().StringVar(&renderHover, "hover", "", "country to highlight")
	renderCmd.Flags().StringVar(&renderLabel, "label", "", "country to label with its population")
	renderCmd.Flags().StringVar(&renderZoom, "zoom", "", "country to fit the view to before any pick")
	renderCmd.Flags().IntVar(&renderActive, "active", -1, "legend quartile to emphasise (0-3, -1 for none)")
	rootCmd.AddCommand(renderCmd)
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/popmap/internal/numfmt"
	"github.com/sells-group/popmap/internal/quartile"
	"github.com/sells-group/popmap/internal/render"
)

var bucketsFormat string

// bucketReport is one quartile as printed by the buckets command.
type bucketReport struct {
	Index   int            `json:"index" yaml:"index"`
	Color   string         `json:"color" yaml:"color"`
	Range   quartile.Range `json:"range" yaml:"range"`
	Label   string         `json:"label" yaml:"label"`
	Members []string       `json:"members" yaml:"members"`
}

var bucketsCmd = &cobra.Command{
	Use:   "buckets",
	Short: "Print the population quartiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := loadDataset(cmd.Context(), "render")
		if err != nil {
			return err
		}
		return writeBuckets(os.Stdout, bucketReports(ds.Buckets, ds.Palette), bucketsFormat)
	},
}

func bucketReports(res quartile.Result, palette [quartile.NumBuckets]string) []bucketReport {
	out := make([]bucketReport, 0, quartile.NumBuckets)
	for i := range quartile.NumBuckets {
		members := res.Members(quartile.Bucket(i))
		if members == nil {
			members = []string{}
		}
		out = append(out, bucketReport{
			Index:   i,
			Color:   palette[i],
			Range:   res.Ranges[i],
			Label:   render.LegendText(res.Ranges[i]),
			Members: members,
		})
	}
	return out
}

func writeBuckets(out io.Writer, reports []bucketReport, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(reports), "buckets: encode json")
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(reports); err != nil {
			return eris.Wrap(err, "buckets: encode yaml")
		}
		return eris.Wrap(enc.Close(), "buckets: close yaml")
	case "table", "":
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "QUARTILE\tCOLOR\tMIN\tMAX\tCOUNT\tCOUNTRIES")
		_, _ = fmt.Fprintln(w, "--------\t-----\t---\t---\t-----\t---------")
		for _, r := range reports {
			_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\n",
				r.Index,
				r.Color,
				numfmt.Grouped(r.Range.Min),
				numfmt.Grouped(r.Range.Max),
				len(r.Members),
				strings.Join(r.Members, ", "),
			)
		}
		return eris.Wrap(w.Flush(), "buckets: flush")
	default:
		return eris.Errorf("buckets: unknown format %q (want table, json or yaml)", format)
	}
}

func init() {
	bucketsCmd.Flags().StringVar(&bucketsFormat, "format", "table", "output format: table, json or yaml")
	rootCmd.AddCommand(bucketsCmd)
}

package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/sells-group/popmap/internal/dataset"
	"github.com/sells-group/popmap/internal/numfmt"
)

var countriesMissing bool

var countriesCmd = &cobra.Command{
	Use:   "countries",
	Short: "List population rows joined with their outlines",
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := loadDataset(cmd.Context(), "render")
		if err != nil {
			return err
		}
		if countriesMissing {
			formatMissing(os.Stdout, ds.MissingPopulation(), ds.MissingBoundary())
			return nil
		}
		formatCountries(os.Stdout, ds.Summaries())
		return nil
	},
}

// formatCountries writes a tabular representation of the summaries to w.
func formatCountries(out io.Writer, rows []dataset.CountrySummary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "COUNTRY\tPOPULATION\tCOMPACT\tQUARTILE\tAREA_KM2\tDENSITY")
	_, _ = fmt.Fprintln(w, "-------\t----------\t-------\t--------\t--------\t-------")

	for _, r := range rows {
		value, bucket, area, density := "n/a", "-", "-", "-"
		if r.Value != nil {
			value = numfmt.Grouped(*r.Value)
		}
		if r.Bucket != nil {
			bucket = fmt.Sprintf("Q%d", *r.Bucket+1)
		}
		if r.AreaKm2 > 0 {
			area = humanize.Comma(int64(r.AreaKm2))
		}
		if r.Density > 0 {
			density = humanize.Commaf(r.Density)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Country, value, r.Formatted, bucket, area, density)
	}
	_ = w.Flush()
}

func formatMissing(out io.Writer, noPopulation, noBoundary []string) {
	_, _ = fmt.Fprintf(out, "outlines without population (%d): %s\n", len(noPopulation), strings.Join(noPopulation, ", "))
	_, _ = fmt.Fprintf(out, "population rows without outline (%d): %s\n", len(noBoundary), strings.Join(noBoundary, ", "))
}

func init() {
	countriesCmd.Flags().BoolVar(&countriesMissing, "missing", false, "only list names that did not join")
	rootCmd.AddCommand(countriesCmd)
}

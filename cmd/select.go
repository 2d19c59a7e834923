package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/popmap/internal/selection"
)

var (
	selectFrom []string
	selectJSON bool
)

var selectCmd = &cobra.Command{
	Use:   "select [country...]",
	Short: "Replay country picks through the two-country selection",
	Long:  "Applies each country pick in order, starting from --sel, and prints the selection after every pick that changed it.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSelect(os.Stdout, selectFrom, args, selectJSON)
	},
}

func runSelect(out io.Writer, initial, picks []string, asJSON bool) error {
	var steps [][]string
	tracker := selection.NewTracker(initial, func(sel []string) {
		steps = append(steps, sel)
	})
	for _, name := range picks {
		tracker.Pick(name)
	}

	if asJSON {
		return eris.Wrap(json.NewEncoder(out).Encode(map[string]any{
			"steps":     steps,
			"selection": tracker.Current(),
		}), "select: encode json")
	}

	for i, sel := range steps {
		_, _ = fmt.Fprintf(out, "%d: %s\n", i+1, strings.Join(sel, ", "))
	}
	_, _ = fmt.Fprintf(out, "selection: %s\n", strings.Join(tracker.Current(), ", "))
	return nil
}

func init() {
	selectCmd.Flags().StringSliceVar(&selectFrom, "sel", nil, "starting selection")
	selectCmd.Flags().BoolVar(&selectJSON, "json", false, "print JSON")
	rootCmd.AddCommand(selectCmd)
}

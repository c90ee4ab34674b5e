package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"slidecast/config"
	"slidecast/encoder"
	"slidecast/pipeline"

	"github.com/spf13/cobra"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Report codec support and which export pipeline would run",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printCapabilities(cmd.OutOrStdout(), newRegistry())
	},
}

func init() {
	rootCmd.AddCommand(probeCmd)
}

func printCapabilities(out io.Writer, reg *encoder.Registry) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tCODEC\tSUPPORTED")
	for _, c := range reg.Capabilities() {
		fmt.Fprintf(w, "%s\t%s\t%v\n", c.Kind, c.Name, c.Supported)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	job := &pipeline.Job{Width: config.DefaultWidth, Height: config.DefaultHeight}
	name := "legacy (real-time capture)"
	if pipeline.NewFast(reg).Available(job) {
		name = "fast"
	}
	_, err := fmt.Fprintf(out, "\nPipeline at %dx%d: %s\n", config.DefaultWidth, config.DefaultHeight, name)
	return err
}

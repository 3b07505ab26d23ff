package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mvdvldn03/ATLPublicTransit/parser"
	"github.com/mvdvldn03/ATLPublicTransit/scraper"
)

func newParseCmd() *cobra.Command {
	var modeName string

	cmd := &cobra.Command{
		Use:   "parse [file|-]",
		Short: "Print the metric of a saved itinerary panel text",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := parser.ParseMode(modeName)
			if err != nil {
				return err
			}

			var r io.Reader = cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open itinerary: %w", err)
				}
				defer f.Close()
				r = f
			}
			data, err := io.ReadAll(r)
			if err != nil {
				return fmt.Errorf("read itinerary: %w", err)
			}

			value, err := parser.Parse(mode, string(data))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), scraper.FormatValue(mode, value))
			return nil
		},
	}
	cmd.Flags().StringVar(&modeName, "mode", string(parser.ModeTime), "Metric to extract: time or distance")
	return cmd
}

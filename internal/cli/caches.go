package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var cachesCmd = &cobra.Command{
	Use:   "caches",
	Short: "List partitions with their entry counts and sizes.",
	Args:  cobra.NoArgs,
	RunE: func(c *cobra.Command, args []string) error {
		cfg, err := InitConfigWithError()
		if err != nil {
			return err
		}

		storage, err := openStorage(cfg)
		if err != nil {
			return err
		}
		defer storage.Close()

		summaries, err := summarizePartitions(c.Context(), storage, cfg.AllowList())
		if err != nil {
			return err
		}
		if len(summaries) == 0 {
			fmt.Fprintln(c.OutOrStdout(), "no partitions")
			return nil
		}

		w := tabwriter.NewWriter(c.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "PARTITION\tENTRIES\tSIZE\tSTATUS")
		for _, summary := range summaries {
			status := "current"
			if !summary.allowed {
				status = "stale"
			}
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", summary.name, summary.entries, humanize.Bytes(summary.sizeByte), status)
		}
		return w.Flush()
	},
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rohmanhakim/asset-interceptor/internal/manifest"
)

var bumpCmd = &cobra.Command{
	Use:   "bump",
	Short: "Print the partition names of the next deployment version.",
	Long: `bump increments the version suffix of both configured partition names
(pocketchimes-static-v2 becomes pocketchimes-static-v3). Deploying the bumped
names makes the next activation discard every entry of the current version.`,
	Args: cobra.NoArgs,
	RunE: func(c *cobra.Command, args []string) error {
		cfg, err := InitConfigWithError()
		if err != nil {
			return err
		}

		out := c.OutOrStdout()
		for _, current := range []struct {
			label string
			name  string
		}{
			{label: "static", name: cfg.StaticPartition()},
			{label: "media", name: cfg.MediaPartition()},
		} {
			next, err := manifest.BumpVersion(current.name)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s\t%s -> %s\n", current.label, current.name, next)
		}
		return nil
	},
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rohmanhakim/asset-interceptor/internal/build"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build version.",
	Args:  cobra.NoArgs,
	Run: func(c *cobra.Command, args []string) {
		fmt.Fprintf(c.OutOrStdout(), "%s %s (built %s)\n", build.Name, build.FullVersion(), build.BuildTime)
	},
}

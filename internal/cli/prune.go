package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/rohmanhakim/asset-interceptor/internal/metadata"
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete every partition outside the configured allow-list.",
	Long: `prune performs the activation cleanup on its own: every partition whose
name is neither the configured static nor media partition is deleted.
Partitions that cannot be deleted are reported and left in place.`,
	Args: cobra.NoArgs,
	RunE: func(c *cobra.Command, args []string) error {
		cfg, err := InitConfigWithError()
		if err != nil {
			return err
		}

		logger := newLogger(cfg, c.ErrOrStderr())
		sink := metadata.NewRecorder(logger)

		storage, err := openStorage(cfg)
		if err != nil {
			return err
		}
		defer storage.Close()

		manager, err := newManager(cfg, sink, storage)
		if err != nil {
			return err
		}

		result, err := manager.ReconcilePartitions(c.Context(), manager.AllowList())
		if err != nil {
			return err
		}

		out := c.OutOrStdout()
		for _, name := range result.Deleted {
			fmt.Fprintf(out, "deleted %s\n", name)
		}
		for _, name := range result.Kept {
			fmt.Fprintf(out, "kept %s\n", name)
		}
		if len(result.Failed) == 0 {
			return nil
		}

		failed := make([]string, 0, len(result.Failed))
		for name := range result.Failed {
			failed = append(failed, name)
		}
		sort.Strings(failed)
		for _, name := range failed {
			fmt.Fprintf(out, "failed %s: %v\n", name, result.Failed[name])
		}
		return fmt.Errorf("%d partition(s) could not be deleted", len(failed))
	},
}

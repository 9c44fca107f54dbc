package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/rohmanhakim/asset-interceptor/internal/config"
	"github.com/rohmanhakim/asset-interceptor/internal/metadata"
)

var precacheCmd = &cobra.Command{
	Use:   "precache",
	Short: "Populate both partitions from the origin and exit.",
	Long: `precache fetches every manifest entry and stores it in its partition.
It fails, storing nothing for the failing partition, if any entry cannot be
fetched or the origin does not answer it with success.

Use it with the sqlite driver to warm persistent storage before serve.`,
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

		if cfg.StorageDriver() == config.StorageDriverMemory {
			logger.Warn("memory storage is discarded on exit; precache only verifies the manifests")
		}

		manager, err := newManager(cfg, sink, storage)
		if err != nil {
			return err
		}
		if err := manager.Initialize(c.Context()); err != nil {
			return err
		}

		summaries, err := summarizePartitions(c.Context(), storage, manager.AllowList())
		if err != nil {
			return err
		}
		for _, summary := range summaries {
			if !summary.allowed {
				continue
			}
			fmt.Fprintf(c.OutOrStdout(), "precached %s: %d entries, %s\n",
				summary.name, summary.entries, humanize.Bytes(summary.sizeByte))
		}
		return nil
	},
}

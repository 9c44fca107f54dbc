package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rohmanhakim/asset-interceptor/internal/agent"
	"github.com/rohmanhakim/asset-interceptor/internal/interceptor"
	"github.com/rohmanhakim/asset-interceptor/internal/metadata"
)

var watch bool

var errWatchWithoutConfigFile = errors.New("--watch requires --config-file")

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Install the configured version and serve requests through it.",
	Long: `serve installs the configured version (precaching both partitions),
activates it (removing partitions outside the allow-list) and then answers
requests until interrupted.

The default static manifest lists the favicon set under /favicons/ and must
exist on the origin; the default media manifest is empty, so audio is cached
on first fetch. List media samples under "mediaAssets" in --config-file to
precache them.

If installation fails, requests are forwarded to the origin uncached.
With --watch, changes to the config file install a new version in place;
a version that fails to install leaves the current one serving.`,
	Args: cobra.NoArgs,
	RunE: func(c *cobra.Command, args []string) error {
		if watch && cfgFile == "" {
			return errWatchWithoutConfigFile
		}

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

		ctx, stop := signal.NotifyContext(c.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		registration := agent.NewRegistration(sink, agent.NewOriginProxy(cfg.Origin(), sink, nil))

		initial, err := newAgent(cfg, sink, storage)
		if err != nil {
			return err
		}
		if err := registration.Update(ctx, initial); err != nil {
			logger.Warn("serving without an active version", "err", err)
		}

		server := agent.NewServer(cfg.ListenAddr(), registration)
		origin := cfg.Origin()
		logger.Info("listening", "addr", server.Addr(), "origin", origin.String(), "version", registration.Active())

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return server.ListenAndServe(gctx)
		})
		if watch {
			// storage and origin proxy are fixed for the process; a reload
			// replaces partitions and manifests
			reloader := agent.NewReloader(cfgFile, registration, func(ctx context.Context) (*interceptor.Dispatcher, error) {
				next, err := InitConfigWithError()
				if err != nil {
					return nil, err
				}
				return newAgent(next, sink, storage)
			}, sink)
			g.Go(func() error {
				return reloader.Run(gctx)
			})
		}
		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().BoolVar(&watch, "watch", false, "install a new version whenever the config file changes")
}

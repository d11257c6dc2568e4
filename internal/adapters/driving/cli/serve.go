package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/coworker/internal/adapters/driving/api"
	"github.com/custodia-labs/coworker/internal/connectors/filesystem"
)

// defaultAddr is used when neither --addr nor server.addr is set.
const defaultAddr = ":8080"

var (
	serveAddr        string
	serveWatchDir    string
	serveWatchTenant string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Starts the HTTP API under /api/agent. With --watch (or server.watch_dir)
a directory is also kept in sync for one tenant while the server runs.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: server.addr or :8080)")
	serveCmd.Flags().StringVar(&serveWatchDir, "watch", "", "directory to keep ingested")
	serveCmd.Flags().StringVar(&serveWatchTenant, "watch-tenant", "", "tenant for the watched directory")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if ingestionService == nil {
		return errIngestionNotConfigured
	}
	if queryService == nil {
		return errQueryNotConfigured
	}

	addr, watchDir, watchTenant := serveAddr, serveWatchDir, serveWatchTenant
	if settingsService != nil {
		settings, err := settingsService.Get()
		if err != nil {
			return fmt.Errorf("failed to get settings: %w", err)
		}
		addr = firstNonEmpty(addr, settings.Server.Addr)
		watchDir = firstNonEmpty(watchDir, settings.Server.WatchDir)
		watchTenant = firstNonEmpty(watchTenant, settings.Server.WatchTenant)
	}
	addr = firstNonEmpty(addr, defaultAddr)

	server, err := api.NewServer(&api.Ports{
		Ingestion: ingestionService,
		Query:     queryService,
		Calendar:  calendarService,
		Diff:      diffService,
	})
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		return server.Run(ctx, addr)
	})
	if watchDir != "" {
		watcher := filesystem.New(watchDir, watchTenant, ingestionService)
		defer watcher.Close()
		g.Go(func() error {
			return ignoreCanceled(watcher.Run(ctx))
		})
	}

	cmd.Printf("CoWorker API listening on %s\n", addr)
	return g.Wait()
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

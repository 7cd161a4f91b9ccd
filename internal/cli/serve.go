package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/braid/internal/syncd"
	"github.com/example/braid/internal/wire"
)

const defaultSyncAddr = "127.0.0.1:7411"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve live sync to connected observers",
	Long:  "Tails the journal without taking the writer lock and broadcasts every committed mutation to connected observers over websockets.",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")

		cfg, err := wire.Config()
		if err != nil {
			return err
		}
		if addr == "" {
			addr = cfg.SyncAddr
		}
		if addr == "" {
			addr = defaultSyncAddr
		}

		dir, err := wire.DataDir()
		if err != nil {
			return err
		}

		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		daemon, err := syncd.NewDaemon(dir, cfg.Retention, logger)
		if err != nil {
			return fmt.Errorf("failed to start sync daemon: %w", err)
		}

		mux := http.NewServeMux()
		mux.Handle("/sync", daemon.Handler())
		server := &http.Server{Addr: addr, Handler: mux}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go func() {
			<-ctx.Done()
			server.Shutdown(context.Background())
		}()
		go func() {
			if err := daemon.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("journal tail stopped", "error", err)
			}
		}()

		logger.Info("sync server listening", "addr", addr, "dir", dir, "version", daemon.Version())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("sync server failed: %w", err)
		}
		return nil
	},
}

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	serveCmd.Flags().String("addr", "", "Listen address (default from config, else "+defaultSyncAddr+")")
	return serveCmd
}

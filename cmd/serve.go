package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/abhisek/shadowdeck/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the card queue over HTTP and websocket",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEngine(cmd, false)
		if err != nil {
			return err
		}
		defer e.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv := server.New(e.queue, e.store.VocabularyRepo(), e.store.SavedCardRepo(), e.logger)

		// Fill the queue while the listener comes up; clients see the
		// progress over the websocket.
		level, speed := e.queue.Settings()
		go func() {
			if err := e.queue.InitialLoad(ctx, level, speed); err != nil {
				e.logger.Warn("initial load failed", "level", level, "error", err)
			}
		}()

		return srv.ListenAndServe(ctx, e.cfg.Server.Addr, e.cfg.Server.ShutdownTimeout)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (default :8080)")
}

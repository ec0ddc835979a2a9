package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shehryarbajwa/gridharness/internal/browser"
	"github.com/shehryarbajwa/gridharness/internal/gridnode"
	"github.com/shehryarbajwa/gridharness/internal/logging"
)

func newNodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Grid node commands",
	}
	cmd.AddCommand(newNodeServeCmd())
	return cmd
}

func newNodeServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run a grid node backed by Docker browsers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := logging.New("node")
			defer logger.Sync()

			launcher, err := browser.NewDockerLauncher(cfg.Node.BrowserImage, logging.New("browser"))
			if err != nil {
				return err
			}
			defer launcher.Close()

			pullCtx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()
			logger.Info("ensuring browser image", zap.String("image", cfg.Node.BrowserImage))
			if err := launcher.EnsureImage(pullCtx); err != nil {
				return err
			}

			registry, err := gridnode.NewRegistry(cfg.Node, launcher, logger)
			if err != nil {
				return err
			}
			server := gridnode.NewServer(registry, cfg.Node.FilesPerHour, logger)

			srv := &http.Server{
				Addr:         cfg.Node.ListenAddr,
				Handler:      server.Routes(),
				ReadTimeout:  15 * time.Second,
				WriteTimeout: 2 * time.Minute,
				IdleTimeout:  60 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("node listening",
					zap.String("addr", cfg.Node.ListenAddr),
					zap.String("advertise", cfg.Node.AdvertiseAddr),
					zap.Int("maxSessions", cfg.Node.MaxSessions))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
			select {
			case <-quit:
			case err := <-errCh:
				return err
			}

			logger.Info("shutting down node")
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				logger.Warn("server forced to shutdown", zap.Error(err))
			}
			if err := registry.Shutdown(ctx); err != nil {
				logger.Warn("sessions did not stop cleanly", zap.Error(err))
			}

			logger.Info("node stopped")
			return nil
		},
	}
}

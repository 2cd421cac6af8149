package cmd

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"karaokebox/api"
	"karaokebox/config"
	"karaokebox/karaoke"
	"karaokebox/logger"
	"karaokebox/media"
	"karaokebox/separator"
	"karaokebox/task"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the karaoke processing server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		log, err := logger.New(cfg)
		if err != nil {
			return err
		}
		defer log.Sync()

		extractor, err := media.NewExtractor(cfg, log)
		if err != nil {
			return err
		}
		runner, err := separator.NewRunner(cfg, log)
		if err != nil {
			return err
		}

		pipeline := karaoke.NewPipeline(cfg, log, extractor, runner, separator.StemNames)
		registry := task.NewRegistry()
		manager := task.NewManager(cfg, log, registry, pipeline)

		router := api.SetupRouter(api.NewHandler(cfg, log, manager, registry))
		srv := &http.Server{
			Addr:    ":" + cfg.Port,
			Handler: router,
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		manager.Start(ctx)

		go func() {
			log.Info("server starting", zap.String("port", cfg.Port))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatal("listen failed", zap.Error(err))
			}
		}()

		// Wait for interrupt signal for graceful shutdown.
		<-ctx.Done()
		stop()
		log.Info("shutting down gracefully, press Ctrl+C again to force")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}

		log.Info("server exiting")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

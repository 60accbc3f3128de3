package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"shape/internal/api"
	internaldb "shape/internal/database"
	"shape/pkg/factory"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	log.Info("Starting application", map[string]interface{}{
		"version": cfg.App.Version,
		"port":    cfg.Server.Port,
	})

	appFactory, err := factory.NewFactory(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}

	if cfg.Database.AutoMigrate {
		cm := appFactory.GetConnectionManager()
		if _, err := internaldb.NewMigrationService(cm.GetDB(), cm.Dialect(), log).RunMigrations(ctx); err != nil {
			appFactory.Close(context.Background())
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      buildHandler(appFactory),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("HTTP server listening", map[string]interface{}{"addr": server.Addr})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down", nil)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		var errs []error
		if err := server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
		if err := appFactory.Close(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		log.Error("Server stopped with error", map[string]interface{}{"error": err})
		return err
	}

	log.Info("Server stopped", nil)
	return nil
}

func buildHandler(f factory.Factory) http.Handler {
	return api.NewRouter(api.RouterDeps{
		Config:     f.GetConfig(),
		NewService: f.NewUserService,
		Notifier:   f.GetNotifier(),
		DB:         f.GetConnectionManager(),
		Logger:     f.GetLogger(),
	})
}

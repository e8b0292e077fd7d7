package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/shoko/internal/config"
	"github.com/hyperjump/shoko/internal/indexer"
	"github.com/hyperjump/shoko/internal/server"
	"github.com/hyperjump/shoko/internal/storage"
	"github.com/hyperjump/shoko/internal/vector"
	"github.com/hyperjump/shoko/internal/watcher"
	"github.com/hyperjump/shoko/pkg/utils"
)

var (
	serveConfigPath string
	serveDebug      bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Runs the HTTP API server. All libraries live in memory and are lost on exit.
Changes to the index section of the config file are applied without a restart.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", defaultConfigPath, "config file path")
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "enable debug logging")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, resolvedConfigPath, err := loadConfig(serveConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	debugMode := cfg.Debug || serveDebug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	store := storage.NewMemoryStorage()
	defer store.Close()
	manager := indexer.NewManager(store,
		indexer.WithLogger(logger),
		indexer.WithLockTimeout(cfg.Index.LockTimeout),
		indexer.WithIndexOptions(
			vector.WithLeafSize(cfg.Index.BallLeafSize),
			vector.WithParallelThreshold(cfg.Index.ParallelBuildThreshold),
		),
	)
	srv := server.NewServer(store, manager, cfg, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if resolvedConfigPath != "" {
		w := watcher.NewWatcher(resolvedConfigPath, func(path string) {
			reloadConfig(path, srv, logger)
		}, watcher.WithLogger(logger))
		if err := w.Start(ctx); err != nil {
			logger.Warn("config watcher disabled", zap.Error(err))
		} else {
			defer w.Stop()
		}
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}

type indexDefaultsReloader interface {
	ReloadIndexDefaults(cfg config.IndexConfig)
}

// reloadConfig re-reads the config file and applies its index defaults.
// A file that fails to load or validate is ignored.
func reloadConfig(path string, target indexDefaultsReloader, logger *zap.Logger) bool {
	cfg, err := config.Load(path)
	if err != nil {
		logger.Warn("config reload failed", zap.String("path", path), zap.Error(err))
		return false
	}
	if err := cfg.Validate(); err != nil {
		logger.Warn("config reload rejected", zap.String("path", path), zap.Error(err))
		return false
	}
	target.ReloadIndexDefaults(cfg.Index)
	logger.Info("config reloaded",
		zap.String("path", path),
		zap.String("default_algorithm", cfg.Index.DefaultAlgorithm),
		zap.String("default_metric", cfg.Index.DefaultMetric),
		zap.Int("default_k", cfg.Index.DefaultK),
		zap.Int("max_k", cfg.Index.MaxK),
	)
	return true
}

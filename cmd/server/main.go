package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/apex/log"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/rl1809/catalog/internal/adapter/handler"
	"github.com/rl1809/catalog/internal/adapter/watcher"
	"github.com/rl1809/catalog/internal/config"
	"github.com/rl1809/catalog/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "catalog-server",
		Short:        "Catalog browsing backend",
		Version:      version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "path to catalog.toml or catalog.yaml")
	flags.String("store", "", "item store JSON file (overrides store.path)")
	flags.String("http-addr", "", "HTTP listen address (overrides server.http_addr)")
	flags.String("grpc-addr", "", "gRPC listen address, \"off\" disables (overrides server.grpc_addr)")
	flags.Bool("diagnostics", false, "log the stats cache slot on every query")
	flags.Bool("watch", false, "refresh stats and the SQL mirror when the store file changes")

	root.AddCommand(
		serveCmd(&configPath),
		statsCmd(&configPath),
		syncCmd(&configPath),
	)

	return root
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the catalog over HTTP and gRPC",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, *configPath)
		},
	}
}

func statsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print catalog statistics and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, *configPath)
			if err != nil {
				return err
			}
			logging.InitLogger(cfg.Log.Level)

			a, err := buildApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			stats, err := a.stats.Stats(cmd.Context())
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		},
	}
}

func syncCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Copy the item store file into the SQL mirror",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, *configPath)
			if err != nil {
				return err
			}
			logging.InitLogger(cfg.Log.Level)

			if cfg.Store.Driver == config.DriverFile {
				return fmt.Errorf("store.driver is %q, nothing to sync", config.DriverFile)
			}

			a, err := buildApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			return a.syncMirror(cmd.Context())
		},
	}
}

// loadConfig reads the config file and applies command-line overrides.
func loadConfig(cmd *cobra.Command, path string) (config.Config, error) {
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("store") {
		cfg.Store.Path, _ = flags.GetString("store")
	}
	if flags.Changed("http-addr") {
		cfg.Server.HTTPAddr, _ = flags.GetString("http-addr")
	}
	if flags.Changed("grpc-addr") {
		addr, _ := flags.GetString("grpc-addr")
		if addr == "off" {
			addr = ""
		}
		cfg.Server.GRPCAddr = addr
	}
	if flags.Changed("diagnostics") {
		cfg.Cache.Diagnostics, _ = flags.GetBool("diagnostics")
	}
	if flags.Changed("watch") {
		cfg.Cache.Watch, _ = flags.GetBool("watch")
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, configPath string) error {
	cfg, err := loadConfig(cmd, configPath)
	if err != nil {
		return err
	}
	logging.InitLogger(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	// A missing store is not fatal; the stats endpoint reports it per request.
	if err := a.Warm(ctx); err != nil {
		log.WithError(err).Warn("initial stats load failed")
	}

	serveErr := make(chan error, 2)

	// Initialize gRPC server
	var grpcServer *grpc.Server
	if cfg.Server.GRPCAddr != "" {
		grpcServer = grpc.NewServer(grpc.UnaryInterceptor(handler.LoggingInterceptor))
		handler.RegisterCatalogServer(grpcServer, handler.NewGRPCHandler(a.catalog))

		lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", cfg.Server.GRPCAddr, err)
		}

		go func() {
			log.Infof("gRPC server listening on %s", cfg.Server.GRPCAddr)
			if err := grpcServer.Serve(lis); err != nil {
				serveErr <- fmt.Errorf("gRPC server: %w", err)
			}
		}()
	}

	// Started after the last early return so shutdown always waits for it.
	var wg sync.WaitGroup
	if cfg.Cache.Watch {
		storeWatcher := watcher.NewStoreWatcher(cfg.Store.Path, a, watcher.DefaultDebounce)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := storeWatcher.Run(ctx); err != nil {
				log.WithError(err).Warn("store watcher stopped")
			}
		}()
	}

	// Initialize HTTP server
	mux := http.NewServeMux()
	handler.NewHTTPHandler(a.catalog).Register(mux)

	httpServer := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: handler.Chain(mux, cfg.Server.CORSOrigin),
	}

	go func() {
		log.Infof("HTTP server listening on %s", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serveErr:
		log.WithError(runErr).Error("server failed")
		stop()
	}

	log.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP shutdown")
	}
	log.Info("HTTP server stopped")

	if grpcServer != nil {
		grpcServer.GracefulStop()
		log.Info("gRPC server stopped")
	}

	wg.Wait()
	return runErr
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

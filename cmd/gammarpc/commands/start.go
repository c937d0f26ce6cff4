package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/davidsha/gammarpc/internal/logger"
	"github.com/davidsha/gammarpc/pkg/config"
	"github.com/davidsha/gammarpc/pkg/metrics"
	metricsprom "github.com/davidsha/gammarpc/pkg/metrics/prometheus"
	"github.com/davidsha/gammarpc/pkg/protocol"
	"github.com/davidsha/gammarpc/pkg/registry"
	"github.com/davidsha/gammarpc/pkg/server"
)

var startPort int

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the gammarpc server",
	Long: `Start the gammarpc server with the demo handler set registered.

The server runs in the foreground until interrupted (SIGINT/SIGTERM) and
then shuts down gracefully: in-flight requests finish, workers are joined,
and the listener is released.

Examples:
  # Start on the default port
  gammarpc start

  # Start on a specific port
  gammarpc start -p 4000

  # Start with a config file and environment overrides
  GAMMARPC_LOGGING_LEVEL=DEBUG gammarpc start --config config.yaml`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().IntVarP(&startPort, "port", "p", 0, "TCP port to listen on (overrides config)")
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if startPort != 0 {
		cfg.Server.Port = startPort
	}

	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("configuration loaded", "source", configSource())

	// live-reload the logging section on config file changes
	if cfgFile != "" {
		err := config.Watch(cfgFile, func(updated *config.Config) {
			logger.SetLevel(updated.Logging.Level)
			logger.SetFormat(updated.Logging.Format)
			logger.Info("logging configuration reloaded",
				"level", updated.Logging.Level, "format", updated.Logging.Format)
		})
		if err != nil {
			logger.Warn("config watch unavailable", logger.Err(err))
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var serverMetrics metrics.ServerMetrics
	if cfg.Metrics.Enabled {
		reg := metricsprom.NewRegistry()
		serverMetrics = metricsprom.NewServerMetrics(reg)
		metricsSrv := metricsprom.NewHTTPServer(cfg.Metrics.Port, reg)
		go func() {
			logger.Info("metrics endpoint listening", "port", cfg.Metrics.Port)
			if err := metricsSrv.ListenAndServe(); err != nil {
				logger.Error("metrics endpoint stopped", logger.Err(err))
			}
		}()
		defer func() {
			_ = metricsSrv.Shutdown(context.Background())
		}()
	} else {
		logger.Info("metrics collection disabled")
	}

	srv := server.New(server.Config{
		BindAddress:     cfg.Server.BindAddress,
		Port:            cfg.Server.Port,
		MaxConnections:  cfg.Server.MaxConnections,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, registry.New(), serverMetrics)

	if err := registerDemoHandlers(srv); err != nil {
		return fmt.Errorf("failed to register handlers: %w", err)
	}

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Serve(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("server is running, press Ctrl+C to stop")

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("shutdown signal received")
		cancel()
		if err := <-serverDone; err != nil {
			logger.Error("server shutdown error", logger.Err(err))
			return err
		}
		logger.Info("server stopped gracefully")

	case err := <-serverDone:
		signal.Stop(sigChan)
		if err != nil {
			logger.Error("server error", logger.Err(err))
			return err
		}
		logger.Info("server stopped")
	}
	return nil
}

// registerDemoHandlers installs the demonstration handler set.
func registerDemoHandlers(srv *server.Server) error {
	// add2 adds the signed byte data2[0] to data1
	return srv.Register("add2", func(in *protocol.Data) *protocol.Data {
		if in == nil || in.Data2Len != 1 {
			return nil
		}
		return &protocol.Data{Data1: in.Data1 + int32(int8(in.Data2[0]))}
	})
}

func configSource() string {
	if cfgFile != "" {
		return cfgFile
	}
	return "defaults"
}

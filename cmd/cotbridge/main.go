package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	_ "go.uber.org/automaxprocs"

	"github.com/taclink/cotbridge/internal/bridge"
	"github.com/taclink/cotbridge/internal/config"
	"github.com/taclink/cotbridge/internal/hub"
	"github.com/taclink/cotbridge/internal/listener"
	"github.com/taclink/cotbridge/internal/mirror"
	"github.com/taclink/cotbridge/internal/monitoring"
)

func main() {
	var (
		debug = flag.Bool("debug", false, "enable debug logging (overrides LOG_LEVEL)")
	)
	flag.Parse()

	cfg, err := config.Load(nil)
	if err != nil {
		fallback := monitoring.NewLogger(monitoring.LoggerConfig{Level: "info", Format: "json"})
		fallback.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *debug {
		cfg.LogLevel = "debug"
	}

	logger := monitoring.NewLogger(monitoring.LoggerConfig{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})
	cfg.LogConfig(logger)

	userConfig := config.DefaultUserConfig()
	if cfg.UserConfigPath != "" {
		userConfig, err = config.LoadUserConfig(cfg.UserConfigPath)
		if err != nil {
			logger.Fatal().Err(err).Str("path", cfg.UserConfigPath).Msg("Failed to load user config")
		}
	}

	h := hub.New(hub.Config{
		Addr:                cfg.BridgeAddr,
		BusCapacity:         cfg.BusCapacity,
		ClientQueueCapacity: cfg.ClientQueueCapacity,
		Logger:              logger,
	})
	if err := h.Start(); err != nil {
		logger.Error().Err(err).Msg("Failed to start hub")
		os.Exit(1)
	}

	var sink bridge.EventSink
	if cfg.NATSURL != "" {
		m, err := mirror.Connect(cfg.NATSURL, cfg.NATSSubject, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect event mirror")
		}
		defer m.Close()
		sink = m
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := bridge.New(bridge.Options{
		UserConfig:  userConfig,
		Topic:       cfg.BroadcastTopic,
		Hub:         h,
		Sink:        sink,
		WorkerCount: cfg.WorkerCount,
		Logger:      logger,
	})
	b.Start(ctx)

	go monitoring.ServeMetrics(cfg.MetricsAddr, logger)

	l, err := listener.New(cfg.UDPListenAddr, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to bind datagram listener")
		os.Exit(1)
	}

	listenerErr := make(chan error, 1)
	go func() {
		listenerErr <- l.Listen(ctx, b.HandleRecord)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	exitCode := 0
	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("Shutting down")
	case err := <-listenerErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("Datagram listener failed")
			exitCode = 1
		}
	case <-h.Done():
		logger.Error().Msg("Hub stopped unexpectedly")
		exitCode = 1
	}

	cancel()
	h.Shutdown()
	b.Stop()
	os.Exit(exitCode)
}

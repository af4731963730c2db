package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	api "github.com/bdrydyk/homebridge-securitysystem/internal/api/grpc/security"
	"github.com/bdrydyk/homebridge-securitysystem/internal/api/web"
	"github.com/bdrydyk/homebridge-securitysystem/internal/config"
	"github.com/bdrydyk/homebridge-securitysystem/internal/engine"
	"github.com/bdrydyk/homebridge-securitysystem/internal/logger"
	"github.com/bdrydyk/homebridge-securitysystem/internal/mqtt"
	"github.com/bdrydyk/homebridge-securitysystem/internal/notify"
	repo "github.com/bdrydyk/homebridge-securitysystem/internal/repository/state"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// Options controls the security system daemon.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// GRPCAddr overrides the gRPC listen address from the settings.
	GRPCAddr string
	// HTTPAddr overrides the HTTP listen address from the settings.
	HTTPAddr string
}

// Run starts the security system and blocks until ctx is cancelled or a
// server fails. Components are stopped in reverse order of creation.
//
//nolint:cyclop,funlen // Wiring every optional component reads best in one place.
func Run(ctx context.Context, opts *Options) error {
	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	setupLogger(settings.Log)

	ctx = logger.WithName(ctx, "securitysystem")

	var engineOpts []engine.Option

	if settings.SaveState {
		repository, err := repo.Open(settings.Storage.Driver, settings.Storage.Path)
		if err != nil {
			return fmt.Errorf("open state storage: %w", err)
		}

		defer func() {
			if err := repository.Close(); err != nil {
				logger.ErrorKV(ctx, "Unable to close state storage", "error", err)
			}
		}()

		writer := repo.NewWriter(ctx, repository)
		defer writer.Close()

		engineOpts = append(engineOpts,
			engine.WithInitialState(loadState(ctx, repository)),
			engine.WithPersister(writer))
	}

	ns, err := buildNotifiers(ctx, settings)
	if err != nil {
		return err
	}

	defer ns.close()

	dispatcher := notify.NewDispatcher(ns.list...)
	defer dispatcher.Close()

	eng, err := engine.New(ctx, engineOptions(settings), append(engineOpts, engine.WithDispatcher(dispatcher))...)
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}

	defer eng.Close()

	snap := eng.Snapshot()
	logger.InfoKV(ctx, "Security system started",
		"name", settings.Name,
		"current_mode", snap.CurrentMode,
		"target_mode", snap.TargetMode,
		"notifiers", ns.names())

	if settings.MQTT.Enabled {
		bridge, err := mqtt.NewBridge(ctx, eng, mqtt.Config{
			Broker:          settings.MQTT.Broker,
			Username:        settings.MQTT.Username,
			Password:        settings.MQTT.Password,
			TopicPrefix:     settings.MQTT.TopicPrefix,
			DiscoveryPrefix: settings.MQTT.DiscoveryPrefix,
			Name:            settings.Name,
		})
		if err != nil {
			return fmt.Errorf("start MQTT bridge: %w", err)
		}

		defer bridge.Stop()

		bridge.Start()
	}

	g, gctx := errgroup.WithContext(ctx)

	grpcAddr := settings.Server.GRPCAddr
	if opts.GRPCAddr != "" {
		grpcAddr = opts.GRPCAddr
	}

	if grpcAddr != "" {
		listenAddress, err := resolveListenAddress(settings.Server.GRPCAddr, opts.GRPCAddr)
		if err != nil {
			return fmt.Errorf("resolve listen address: %w", err)
		}

		lc := net.ListenConfig{}

		lis, err := lc.Listen(ctx, "tcp", listenAddress)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", listenAddress, err)
		}

		grpcServer := grpc.NewServer()
		api.RegisterSecuritySystemServer(grpcServer, api.NewServer(eng, settings.ServerArmDelay()))

		logger.InfoKV(ctx, "gRPC server listening", "listen_address", listenAddress)

		g.Go(func() error {
			if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return fmt.Errorf("serve gRPC: %w", err)
			}

			return nil
		})

		g.Go(func() error {
			<-gctx.Done()
			logger.Info(ctx, "Shutting down gRPC server")
			grpcServer.GracefulStop()

			return nil
		})
	}

	httpAddr := settings.Server.HTTPAddr
	if opts.HTTPAddr != "" {
		httpAddr = opts.HTTPAddr
	}

	if httpAddr != "" {
		webServer := web.NewServer(ctx, eng,
			web.WithArmDelay(settings.ServerArmDelay()),
			web.WithAllowedOrigins(settings.Server.AllowedOrigins))
		defer webServer.Stop()

		httpServer := &http.Server{
			Addr:              httpAddr,
			Handler:           webServer,
			ReadHeaderTimeout: readHeaderTimeout,
		}

		logger.InfoKV(ctx, "HTTP server listening", "listen_address", httpAddr)

		g.Go(func() error {
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve HTTP: %w", err)
			}

			return nil
		})

		g.Go(func() error {
			<-gctx.Done()
			logger.Info(ctx, "Shutting down HTTP server")

			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.ErrorKV(ctx, "HTTP server shutdown", "error", err)
			}

			return nil
		})
	}

	// Keep running until cancelled even without servers.
	g.Go(func() error {
		<-gctx.Done()

		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info(ctx, "Security system stopped")

	return nil
}

// setupLogger applies the logging settings.
func setupLogger(cfg config.LogConfig) {
	logger.SetLogger(logger.New(cfg.Format))

	if lvl, ok := logger.ParseLogLevel(cfg.Level); ok {
		logger.SetLevel(lvl)
	}
}

// resolveListenAddress determines the listen address for the gRPC server.
// If override is provided, uses it directly. Otherwise extracts the port from
// configAddr, which is also the address the control client dials.
func resolveListenAddress(configAddr, override string) (string, error) {
	if override != "" {
		return override, nil
	}

	if configAddr == "" {
		return "", ErrNoServerAddress
	}

	_, port, err := net.SplitHostPort(configAddr)
	if err != nil {
		return "", fmt.Errorf("invalid server address format %q: %w", configAddr, err)
	}

	// Bind on all interfaces.
	return ":" + port, nil
}

// ErrNoServerAddress indicates missing server configuration.
var ErrNoServerAddress = errors.New("no server address configured")

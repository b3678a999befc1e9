package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/miradorstack/mirador-aiops/internal/api"
	"github.com/miradorstack/mirador-aiops/internal/cache"
	"github.com/miradorstack/mirador-aiops/internal/config"
	"github.com/miradorstack/mirador-aiops/internal/engine"
	"github.com/miradorstack/mirador-aiops/internal/export"
	"github.com/miradorstack/mirador-aiops/internal/metrics"
	"github.com/miradorstack/mirador-aiops/internal/models"
	"github.com/miradorstack/mirador-aiops/internal/patterns"
	"github.com/miradorstack/mirador-aiops/internal/services"
	"github.com/miradorstack/mirador-aiops/internal/state"
	"github.com/miradorstack/mirador-aiops/internal/utils"
)

const hotspotsKey = "hotspots/latest.json"

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting mirador-aiops",
		slog.String("address", cfg.Server.Address),
		slog.String("grpc_address", cfg.Server.GRPCAddress),
	)

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var cacheProvider cache.Provider = cache.NoopProvider{}
	if cfg.Cache.Enabled {
		provider, err := cache.NewRedisProvider(ctx, cache.RedisConfig{
			Addr:         cfg.Cache.Addr,
			Username:     cfg.Cache.Username,
			Password:     cfg.Cache.Password,
			DB:           cfg.Cache.DB,
			DialTimeout:  cfg.Cache.DialTimeout,
			ReadTimeout:  cfg.Cache.ReadTimeout,
			WriteTimeout: cfg.Cache.WriteTimeout,
			MaxRetries:   cfg.Cache.MaxRetries,
			TLS:          cfg.Cache.TLS,
		})
		if err != nil {
			logger.Warn("redis cache unavailable, using in-process cache", slog.Any("error", err))
			cacheProvider = cache.NewMemoryProvider()
		} else {
			cacheProvider = provider
		}
	}
	defer cacheProvider.Close()

	sink, err := buildSink(ctx, cfg)
	if err != nil {
		logger.Error("failed to configure export sink", slog.Any("error", err))
		os.Exit(1)
	}

	ruleEngine, err := engine.NewRuleEngine(cfg.Rules.Path, logger)
	if err != nil {
		logger.Error("failed to load rule pack", slog.Any("error", err))
		os.Exit(1)
	}
	if ruleEngine == nil {
		logger.Info("no rule pack loaded", slog.String("path", cfg.Rules.Path))
	}

	store := state.NewStore(logger, cacheProvider, cfg.Cache.SnapshotTTL, cfg.History.Limit)

	pipeline := engine.NewPipeline(logger, sink, ruleEngine, store, cfg.Detector, engine.Defaults{
		Nodes:           cfg.Simulation.Nodes,
		EdgeDraws:       cfg.Simulation.EdgeDraws,
		Events:          cfg.Simulation.Events,
		Tools:           cfg.Simulation.Tools,
		DashboardEvents: cfg.Simulation.DashboardEvents,
		MaxEvents:       cfg.Simulation.MaxEvents,
		MaxNodes:        cfg.Simulation.MaxNodes,
		MaxEdgeDraws:    cfg.Simulation.MaxEdgeDraws,
	})

	var hotspotStore patterns.Store
	if sink != nil {
		hotspotStore = patterns.StoreFunc(func(ctx context.Context, hotspots []models.Hotspot) error {
			data, err := json.MarshalIndent(hotspots, "", "    ")
			if err != nil {
				return err
			}
			_, err = sink.Put(ctx, hotspotsKey, data, "application/json")
			return err
		})
	}
	miner := patterns.NewMiner(logger, hotspotStore)

	service := services.NewAIOpsService(logger, pipeline, store, miner)

	grpcServer, err := api.NewServer(cfg.Server, api.NewGRPCService(logger, service))
	if err != nil {
		logger.Error("failed to create gRPC server", slog.Any("error", err))
		os.Exit(1)
	}

	httpServer, err := api.NewHTTPServer(cfg.Server.Address, api.NewHandler(logger, service, store, cfg.Server.RequestTimeout))
	if err != nil {
		logger.Error("failed to create HTTP server", slog.Any("error", err))
		os.Exit(1)
	}

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		logger.Info("http server listening", slog.String("address", httpServer.Address()))
		if serveErr := httpServer.Start(); serveErr != nil {
			logger.Error("http server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	go func() {
		logger.Info("grpc server listening", slog.String("address", grpcServer.Address()))
		if serveErr := grpcServer.Start(); serveErr != nil {
			logger.Error("gRPC server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown", slog.Any("error", err))
	}
	grpcServer.Shutdown(shutdownCtx)

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	logger.Info("mirador-aiops stopped",
		slog.Duration("run_p95", service.LatencyP95(utils.LatencyRun)),
		slog.Duration("detect_p95", service.LatencyP95(utils.LatencyDetect)),
	)
}

// buildSink combines the local directory and S3 sinks that are configured.
// It returns nil when neither is enabled.
func buildSink(ctx context.Context, cfg *config.Config) (export.Sink, error) {
	var sinks export.MultiSink
	if cfg.Export.Dir != "" {
		dir, err := export.NewDirSink(cfg.Export.Dir)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, dir)
	}
	if cfg.S3.Enabled {
		s3Sink, err := export.NewS3Sink(ctx, export.S3Config{
			Bucket:          cfg.S3.Bucket,
			Prefix:          cfg.S3.Prefix,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			UsePathStyle:    cfg.S3.UsePathStyle,
		})
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s3Sink)
	}
	switch len(sinks) {
	case 0:
		return nil, nil
	case 1:
		return sinks[0], nil
	default:
		return sinks, nil
	}
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/thejenniferfang/disaster-response/internal/api"
	"github.com/thejenniferfang/disaster-response/internal/config"
	"github.com/thejenniferfang/disaster-response/internal/correlator"
	"github.com/thejenniferfang/disaster-response/internal/ingest"
	"github.com/thejenniferfang/disaster-response/internal/matcher"
	"github.com/thejenniferfang/disaster-response/internal/notifier"
	"github.com/thejenniferfang/disaster-response/internal/pipeline"
	"github.com/thejenniferfang/disaster-response/internal/registry"
	"github.com/thejenniferfang/disaster-response/internal/store"
)

func main() {
	var seedFile string
	flag.StringVar(&seedFile, "ngo-seed-file", os.Getenv("NGO_SEED_FILE"), "Path to a JSON file of NGOs to load into the registry at startup")
	flag.Parse()

	logConfig := zap.NewProductionConfig()
	logConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, err := logConfig.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}
	if lvl, err := zapcore.ParseLevel(cfg.LogLevel); err == nil {
		logConfig.Level.SetLevel(lvl)
	}

	if err := run(cfg, seedFile, logger); err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}
}

// run contains the main application logic, separated from main() for
// testability.
func run(cfg config.Config, seedFile string, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting responderd",
		zap.String("http_addr", cfg.HTTPAddr),
		zap.String("metrics_addr", cfg.MetricsAddr),
		zap.Bool("postgres", cfg.DatabaseURL != ""),
		zap.Bool("kafka", len(cfg.KafkaBrokers) > 0),
	)

	var (
		signals store.SignalStore
		events  store.EventStore
		ngoReg  registry.NGORegistry
	)
	if cfg.DatabaseURL != "" {
		pool, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer pool.Close()
		if err := store.RunMigrations(ctx, pool); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		signals = store.NewPostgresSignalStore(pool)
		events = store.NewPostgresEventStore(pool)
		pgReg := registry.NewPostgresRegistry(pool)
		if seedFile != "" {
			ngos, err := registry.LoadSeedFile(seedFile)
			if err != nil {
				return err
			}
			if err := pgReg.Seed(ctx, ngos); err != nil {
				return fmt.Errorf("seed ngo registry: %w", err)
			}
			logger.Info("Seeded NGO registry", zap.Int("ngos", len(ngos)))
		}
		ngoReg = pgReg
	} else {
		logger.Warn("No DATABASE_URL set, using in-memory stores")
		signals = store.NewMemorySignalStore()
		events = store.NewMemoryEventStore()
		memReg := registry.NewMemoryRegistry()
		if seedFile != "" {
			ngos, err := registry.LoadSeedFile(seedFile)
			if err != nil {
				return err
			}
			for _, n := range ngos {
				memReg.Upsert(n)
			}
			logger.Info("Seeded NGO registry", zap.Int("ngos", len(ngos)))
		}
		ngoReg = memReg
	}

	corr := correlator.New(signals, events, logger, correlator.Options{
		Window:   cfg.Correlator.Window(),
		MinCount: cfg.Correlator.MinCount,
	})

	match, err := matcher.New(ngoReg, logger, matcher.Options{
		Weights: matcher.Weights{
			Capability: cfg.Matcher.CapabilityWeight,
			Geographic: cfg.Matcher.GeographicWeight,
			Capacity:   cfg.Matcher.CapacityWeight,
		},
		PartialCoverageCredit: cfg.Matcher.PartialCoverageCredit,
		TopK:                  cfg.Matcher.TopK,
		MinScore:              cfg.Matcher.MinScore,
	})
	if err != nil {
		return fmt.Errorf("configure matcher: %w", err)
	}

	senders, closers, err := buildSenders(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		for _, c := range closers {
			c()
		}
	}()

	dispatcher := notifier.NewDispatcher(ngoReg, corr, logger, notifier.DispatcherOptions{
		SuppressDuplicateMinutes: cfg.Notifier.SuppressDuplicateMinutes,
		RateLimitPerMinute:       cfg.Notifier.RateLimitPerMinute,
		Senders:                  senders,
	})
	dispatcher.Start(ctx)

	pipe := pipeline.New(corr, match, dispatcher, logger)

	errCh := make(chan error, 3)

	if len(cfg.KafkaBrokers) > 0 {
		consumer := ingest.NewConsumer(pipe, logger, ingest.Options{
			Brokers:      cfg.KafkaBrokers,
			Topic:        cfg.KafkaTopicSignals,
			GroupID:      cfg.ConsumerGroup,
			MaxPerSecond: cfg.IntakeMaxPerSecond,
		})
		go func() {
			if err := consumer.Run(ctx); err != nil {
				errCh <- fmt.Errorf("kafka intake: %w", err)
			}
		}()
	}

	apiServer := api.NewServer(pipe, corr, match, ngoReg, logger)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           apiServer.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("API listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("api server: %w", err)
		}
	}()

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           metricsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("Metrics listening", zap.String("addr", cfg.MetricsAddr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("metrics server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
	_ = metricsServer.Shutdown(shutdownCtx)
	return nil
}

// buildSenders wires the configured notification channels. Returned closers
// run after the context is cancelled to drain in-flight deliveries.
func buildSenders(cfg config.Config, logger *zap.Logger) ([]notifier.Sender, []func(), error) {
	var senders []notifier.Sender
	var closers []func()

	if cfg.Webhook.URL != "" {
		ws, err := notifier.NewWebhookSender(logger, notifier.WebhookSenderConfig{
			URL:                cfg.Webhook.URL,
			TimeoutSeconds:     cfg.Webhook.TimeoutSeconds,
			InsecureSkipVerify: cfg.Webhook.InsecureSkipVerify,
			MinSeverity:        cfg.Webhook.MinSeverity,
			AuthToken:          cfg.WebhookAuthToken(),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("configure webhook sender: %w", err)
		}
		senders = append(senders, ws)
		closers = append(closers, ws.Close)
	}

	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopicNotifications != "" {
		ks := notifier.NewKafkaSender(logger, notifier.KafkaSenderConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopicNotifications,
		})
		senders = append(senders, ks)
		closers = append(closers, func() { _ = ks.Close() })
	}

	return senders, closers, nil
}

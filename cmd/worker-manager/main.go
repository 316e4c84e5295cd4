// cmd/worker-manager/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"afh-workers/internal/common/aws"
	"afh-workers/internal/common/camunda"
	"afh-workers/internal/common/config"
	"afh-workers/internal/common/database"
	"afh-workers/internal/common/geo"
	"afh-workers/internal/common/health"
	"afh-workers/internal/common/logger"
	"afh-workers/internal/common/observability"
	"afh-workers/internal/forms"
	"afh-workers/internal/matching"

	qp "afh-workers/internal/workers/data-access/query-postgresql"
	sf "afh-workers/internal/workers/data-access/search-facilities"
	frf "afh-workers/internal/workers/forms/fill-regulatory-form"
	ccn "afh-workers/internal/workers/intake/collect-care-needs"
	cms "afh-workers/internal/workers/matching/calculate-match-score"
	rf "afh-workers/internal/workers/matching/rank-facilities"
	sn "afh-workers/internal/workers/notifications/send-notification"
	pr "afh-workers/internal/workers/results/present-results"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func workerTimeout(cfg *config.Config, taskType string, fallback time.Duration) time.Duration {
	if ms := config.GetWorkerConfig(cfg, taskType).Timeout; ms > 0 {
		return config.GetDuration(ms)
	}
	return fallback
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...",
		zap.String("app", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		zapLog.Fatal("observability init failed", zap.Error(err))
	}
	if err := obs.EnableTracing(cfg.Tracing, cfg.App.Version); err != nil {
		zapLog.Warn("tracing disabled", zap.Error(err))
	}

	ctx := context.Background()

	// --- Zeebe ---
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			ConnectionTimeout:      10 * time.Second,
			RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- PostgreSQL ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	if err := pg.RegisterPoolMetrics(prometheus.DefaultRegisterer); err != nil {
		zapLog.Warn("postgres pool metrics not registered", zap.Error(err))
	}
	zapLog.Info("PostgreSQL connected successfully")

	// --- Elasticsearch ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Redis ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Shared domain services ---
	scorer := matching.NewScorer(matching.WeightsFromConfig(cfg.Matching.Weights), cfg.Matching.NeutralScore)
	facilities := database.NewFacilityRepository(pg.DB, redis.Client,
		time.Duration(cfg.Matching.FacilityCacheTTL)*time.Second, log)

	cfgWatcher, err := config.Watch(func(next *config.Config) {
		scorer.SetWeights(matching.WeightsFromConfig(next.Matching.Weights))
		zapLog.Info("matching weights reloaded", zap.Any("weights", next.Matching.Weights))
	}, func(err error) {
		zapLog.Warn("config reload rejected", zap.Error(err))
	})
	if err != nil {
		zapLog.Warn("config hot reload disabled", zap.Error(err))
	} else {
		defer cfgWatcher.Close()
	}

	var geocoder geo.Geocoder
	if cfg.Geocoding.Enabled {
		geocoder = geo.NewZipGeocoder(geo.Config{
			BaseURL:          cfg.Geocoding.BaseURL,
			Country:          cfg.Geocoding.Country,
			Timeout:          config.GetDuration(cfg.Geocoding.Timeout),
			RetryCount:       cfg.Geocoding.RetryCount,
			CacheTTL:         time.Duration(cfg.Geocoding.CacheTTL) * time.Second,
			BreakerFailures:  uint32(cfg.Geocoding.BreakerFailures),
			BreakerOpenDelay: config.GetDuration(cfg.Geocoding.BreakerOpenDelay),
		}, redis.Client, log)
	}

	layouts, err := forms.LoadRegistry(cfg.Forms.LayoutRegistry)
	if err != nil {
		zapLog.Fatal("form layout registry failed to load", zap.Error(err))
	}
	filler := forms.NewFiller(layouts, cfg.Forms.TemplateDir, cfg.Forms.FontFamily, log)

	var documents frf.DocumentUploader
	var email sn.EmailSender
	var sms sn.SMSSender
	needsAWS := cfg.Storage.Bucket != "" || cfg.Notifications.Email.Enabled || cfg.Notifications.SMS.Enabled
	if needsAWS {
		region := cfg.Notifications.AWS.Region
		if cfg.Storage.Region != "" {
			region = cfg.Storage.Region
		}
		awsCfg, err := aws.LoadConfig(ctx, region)
		if err != nil {
			zapLog.Fatal("aws config failed", zap.Error(err))
		}
		if cfg.Storage.Bucket != "" {
			documents = aws.NewDocumentStore(awsCfg, cfg.Storage.Bucket, cfg.Storage.Prefix,
				time.Duration(cfg.Storage.PresignTTL)*time.Second)
		}
		if cfg.Notifications.Email.Enabled {
			email = aws.NewSESClient(awsCfg, cfg.Notifications.Email.FromEmail)
		}
		if cfg.Notifications.SMS.Enabled {
			sms = aws.NewSNSClient(awsCfg, cfg.Notifications.SMS.SenderID)
		}
	}

	// --- Workers ---
	client := zeebe.GetClient()
	var workers []*camunda.CamundaWorker
	register := func(w *camunda.CamundaWorker) {
		if w != nil {
			workers = append(workers, w)
		}
	}

	if config.IsWorkerEnabled(cfg, ccn.TaskType) {
		handler := ccn.NewHandler(&ccn.Config{
			Timeout:            workerTimeout(cfg, ccn.TaskType, 10*time.Second),
			DefaultRadiusMiles: cfg.Matching.DefaultRadiusMiles,
			GeocodeTimeout:     config.GetDuration(cfg.Geocoding.Timeout),
		}, geocoder, log)
		register(camunda.StartWorker(client, ccn.TaskType, config.GetWorkerConfig(cfg, ccn.TaskType), handler.Handle, obs, log))
	}

	if config.IsWorkerEnabled(cfg, cms.TaskType) {
		handler := cms.NewHandler(&cms.Config{
			Timeout: workerTimeout(cfg, cms.TaskType, 10*time.Second),
		}, scorer, facilities, log)
		register(camunda.StartWorker(client, cms.TaskType, config.GetWorkerConfig(cfg, cms.TaskType), handler.Handle, obs, log))
	}

	if config.IsWorkerEnabled(cfg, rf.TaskType) {
		rfConfig := rf.LoadConfig()
		rfConfig.Timeout = workerTimeout(cfg, rf.TaskType, rfConfig.Timeout)
		rfConfig.DefaultLimit = cfg.Matching.MaxResults
		rfConfig.MinScore = cfg.Matching.MinScore
		handler := rf.NewHandler(rfConfig, scorer, facilities, log)
		register(camunda.StartWorker(client, rf.TaskType, config.GetWorkerConfig(cfg, rf.TaskType), handler.Handle, obs, log))
	}

	if config.IsWorkerEnabled(cfg, sf.TaskType) {
		handler := sf.NewHandler(&sf.Config{
			Timeout:      workerTimeout(cfg, sf.TaskType, 30*time.Second),
			DefaultIndex: cfg.Database.Elasticsearch.FacilityIndex,
		}, esClient.Client, log)
		register(camunda.StartWorker(client, sf.TaskType, config.GetWorkerConfig(cfg, sf.TaskType), handler.Handle, obs, log))
	}

	if config.IsWorkerEnabled(cfg, qp.TaskType) {
		qpConfig := qp.LoadConfig()
		qpConfig.Timeout = workerTimeout(cfg, qp.TaskType, qpConfig.Timeout)
		handler := qp.NewHandler(qpConfig, pg.DB, log)
		register(camunda.StartWorker(client, qp.TaskType, config.GetWorkerConfig(cfg, qp.TaskType), handler.Handle, obs, log))
	}

	if config.IsWorkerEnabled(cfg, pr.TaskType) {
		handler := pr.NewHandler(&pr.Config{
			TemplateRegistry: cfg.Template.RegistryPath,
			CacheTTL:         time.Duration(cfg.Template.CacheTTL) * time.Second,
			AppVersion:       cfg.App.Version,
			Timeout:          workerTimeout(cfg, pr.TaskType, 10*time.Second),
		}, log)
		register(camunda.StartWorker(client, pr.TaskType, config.GetWorkerConfig(cfg, pr.TaskType), handler.Handle, obs, log))
	}

	if config.IsWorkerEnabled(cfg, frf.TaskType) {
		handler := frf.NewHandler(&frf.Config{
			Timeout:        workerTimeout(cfg, frf.TaskType, 60*time.Second),
			MaxInlineBytes: cfg.Forms.MaxInlineBytes,
		}, filler, documents, obs, log)
		register(camunda.StartWorker(client, frf.TaskType, config.GetWorkerConfig(cfg, frf.TaskType), handler.Handle, obs, log))
	}

	if config.IsWorkerEnabled(cfg, sn.TaskType) {
		snConfig := sn.LoadConfig()
		snConfig.EmailEnabled = cfg.Notifications.Email.Enabled
		snConfig.SMSEnabled = cfg.Notifications.SMS.Enabled
		if p := cfg.Notifications.SMS.PriorityThreshold; p != "" {
			snConfig.SMSPriority = p
		}
		snConfig.ResultsURL = cfg.Notifications.ResultsURL
		snConfig.Timeout = workerTimeout(cfg, sn.TaskType, snConfig.Timeout)
		handler := sn.NewHandler(snConfig, pg.DB, email, sms, log)
		register(camunda.StartWorker(client, sn.TaskType, config.GetWorkerConfig(cfg, sn.TaskType), handler.Handle, obs, log))
	}

	zapLog.Info("workers registered", zap.Int("count", len(workers)))

	// --- Health & Metrics Server ---
	healthServer := health.NewServer(cfg.App.Version, log)
	healthServer.AddCheck("zeebe", zeebe.HealthCheck)
	healthServer.AddCheck("postgres", pg.Ping)
	healthServer.AddCheck("redis", redis.Ping)
	healthServer.AddCheck("elasticsearch", esClient.Ping)
	if index := cfg.Database.Elasticsearch.FacilityIndex; index != "" {
		healthServer.AddCheck("facility_index", func(ctx context.Context) error {
			ok, err := esClient.IndexExists(ctx, index)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("index %s does not exist", index)
			}
			return nil
		})
	}
	healthServer.Start(cfg.Server.Port)

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Stop()
	}
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error flushing telemetry", zap.Error(err))
	}
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

package di

import (
	"context"
	"fmt"
	"time"

	"FxCockpit/internal/domain/models"
	drepo "FxCockpit/internal/domain/repository"
	"FxCockpit/internal/handler/api"
	internalrepo "FxCockpit/internal/repository"
	"FxCockpit/internal/scheduler"
	"FxCockpit/internal/service/assetquotes"
	"FxCockpit/internal/service/quotestream"
	"FxCockpit/internal/service/ratelimit"
	"FxCockpit/internal/services/alerts"
	"FxCockpit/internal/services/correlation"
	"FxCockpit/internal/services/keylevels"
	"FxCockpit/internal/services/narrative"
	"FxCockpit/internal/services/scenario"
	"FxCockpit/internal/services/session"
	"FxCockpit/internal/services/statistics"
	"FxCockpit/internal/snapshot"
	"FxCockpit/internal/usecase"
	"FxCockpit/pkg/cache"
	pkgch "FxCockpit/pkg/clickhouse"
	"FxCockpit/pkg/config"
	"FxCockpit/pkg/database"
	xhttp "FxCockpit/pkg/http"
	pkgkafka "FxCockpit/pkg/kafka"
	applogger "FxCockpit/pkg/logger"
	"FxCockpit/pkg/metrics"
	"FxCockpit/pkg/server"

	"gorm.io/gorm"
)

// BarStore is the bar history the feed writes and the jobs read.
type BarStore interface {
	drepo.BarSource
	drepo.BarSink
}

// memoryBarLimit bounds each in-process series when ClickHouse is disabled.
const memoryBarLimit = 5000

// ProvideLogger builds the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() drepo.Metrics {
	return metrics.New()
}

// ProvideDatabase opens the SQL store and migrates the alert and narrative tables.
func ProvideDatabase(cfg *config.Config, log *applogger.Logger) (*gorm.DB, func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
	defer cancel()

	db, err := database.Open(ctx, cfg.Database.Driver, cfg.Database.DSN, log)
	if err != nil {
		return nil, nil, err
	}
	if err := db.AutoMigrate(internalrepo.AutoMigrateModels()...); err != nil {
		_ = database.Close(db)
		return nil, nil, fmt.Errorf("database migrate: %w", err)
	}
	cleanup := func() {
		if err := database.Close(db); err != nil {
			log.Warn("database close error", applogger.Error(err))
		}
	}
	return db, cleanup, nil
}

func ProvideAlertRepository(db *gorm.DB) drepo.AlertRepository {
	return internalrepo.NewAlertGorm(db)
}

func ProvideNarrativeRepository(db *gorm.DB) drepo.NarrativeRepository {
	return internalrepo.NewNarrativeGorm(db)
}

// ProvideCache connects to Redis when enabled and falls back to an in-process cache.
func ProvideCache(cfg *config.Config, log *applogger.Logger) (cache.Service, func(), error) {
	if !cfg.Redis.Enabled {
		mc := cache.NewMemoryCache(cache.WithMemoryPrefix(cfg.Redis.Prefix))
		return mc, func() { _ = mc.Close() }, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Redis.Host),
		cache.WithRedisPort(cfg.Redis.Port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis: %w", err)
	}
	cleanup := func() {
		if err := rc.Close(); err != nil {
			log.Warn("redis close error", applogger.Error(err))
		}
	}
	return rc, cleanup, nil
}

func ProvideSnapshotCache(cfg *config.Config, c cache.Service) drepo.SnapshotCache {
	return internalrepo.NewSnapshotCache(c, cfg.Instrument.Symbol, cfg.Redis.SnapshotTTL)
}

// ProvideClickHouseClient connects and creates the bar schema. It returns nil when ClickHouse is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, func(), error) {
	if !cfg.ClickHouse.Enabled {
		return nil, func() {}, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client, err := pkgch.NewClient(ctx,
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}
	if err := client.InitSchema(ctx, internalrepo.BarSchema(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvideBarStore prefers ClickHouse and keeps bars in memory otherwise.
func ProvideBarStore(ch *pkgch.Client, log *applogger.Logger) BarStore {
	if ch == nil {
		return internalrepo.NewMemoryBarStore(memoryBarLimit)
	}
	return internalrepo.NewCHBarStore(ch, log)
}

// ProvideKafkaProducer returns nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.Linger),
		pkgkafka.WithWriteTimeout(cfg.Kafka.Producer.WriteTimeout),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, func() { _ = producer.Close() }, nil
}

// ProvideEventPublisher publishes domain events and, when Kafka is enabled, ships
// error-log digests to the logs topic.
func ProvideEventPublisher(cfg *config.Config, producer *pkgkafka.Producer, log *applogger.Logger) drepo.EventPublisher {
	if producer == nil {
		return nil
	}
	pub := internalrepo.NewKafkaEventPublisher(producer, cfg.Kafka.EventsTopic)
	log.AddCollector(&applogger.CollectionConfig{
		TimeInterval: 30 * time.Second,
		Topic:        cfg.Kafka.LogsTopic,
		Publisher:    pub,
	})
	return pub
}

func ProvideQuoteBook() *usecase.QuoteBook { return usecase.NewQuoteBook() }

func ProvideKafkaBarsHandler(cfg *config.Config, store BarStore, book *usecase.QuoteBook, m drepo.Metrics) *usecase.KafkaBarsHandler {
	return usecase.NewKafkaBarsHandler(cfg.Kafka.BarsTopic, cfg.Instrument.Symbol, store, book, m)
}

// ProvideKafkaConsumer returns nil when Kafka is disabled.
func ProvideKafkaConsumer(cfg *config.Config, log *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	kc := cfg.Kafka.Consumer
	consumer, err := pkgkafka.NewConsumer(log.With("kafka"),
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(kc.GroupID),
		pkgkafka.WithConsumerWorkers(kc.Workers),
		pkgkafka.WithConsumerBufferSize(kc.BufferSize),
		pkgkafka.WithConsumerRetry(kc.RetryMax, kc.BackoffMin, kc.BackoffMax),
		pkgkafka.WithConsumerDLQ(kc.DLQTopic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.TraceHook())
	return consumer, nil
}

// ProvideQuoteCollector returns nil when no tick stream is configured.
func ProvideQuoteCollector(cfg *config.Config, book *usecase.QuoteBook, m drepo.Metrics, log *applogger.Logger) *usecase.QuoteCollector {
	if cfg.Feed.WebSocketURL == "" {
		return nil
	}
	feedSymbol := cfg.Feed.Symbol
	if feedSymbol == "" {
		feedSymbol = cfg.Instrument.Symbol
	}
	stream := quotestream.New(cfg.Feed.APIKey, cfg.Feed.WebSocketURL, feedSymbol, cfg.Instrument.Symbol, cfg.Feed.PingInterval, log)
	return usecase.NewQuoteCollector(stream, book, m, log, cfg.Feed.ReconnectMin, cfg.Feed.ReconnectMax)
}

func ProvideAssetSource(cfg *config.Config, c cache.Service) drepo.AssetSource {
	return assetquotes.New(cfg.AssetQuotes.BaseURL, cfg.AssetQuotes.Timeout, c)
}

func ProvideAssets(cfg *config.Config) []models.Asset {
	out := make([]models.Asset, 0, len(cfg.Assets))
	for _, a := range cfg.Assets {
		out = append(out, models.Asset{Name: a.Name, Ticker: a.Ticker})
	}
	return out
}

func ProvideSessionClock(cfg *config.Config) (*session.Clock, error) {
	return session.FromConfig(cfg)
}

func ProvideAlertEngine(repo drepo.AlertRepository, log *applogger.Logger) *alerts.Engine {
	return alerts.NewEngine(repo, log.With("alerts"))
}

func ProvideEngines(cfg *config.Config, clock *session.Clock, alertEngine *alerts.Engine) usecase.AnalyticsEngines {
	an := cfg.Analytics
	return usecase.AnalyticsEngines{
		Clock: clock,
		Statistics: statistics.NewEngine(clock, statistics.Options{
			PipSize:          cfg.Instrument.PipSize,
			LookbackWeeks:    an.LookbackWeeks,
			SessionRangeDays: an.SessionRangeDays,
			BiasFast:         an.BiasFast,
			BiasSlow:         an.BiasSlow,
		}),
		Correlation: correlation.NewAnalyzer(cfg.Instrument.Symbol, an.CorrelationWindow),
		KeyLevels: keylevels.NewDetector(keylevels.Options{
			SwingWidth:     an.SwingWidth,
			RoundStep:      an.RoundStep,
			RoundDistance:  an.RoundDistance,
			TouchTolerance: an.TouchTolerance,
			DedupEpsilon:   an.DedupEpsilon,
		}),
		Scenarios: scenario.NewGenerator(an.ScenarioDistance),
		Alerts:    alertEngine,
	}
}

func ProvideSnapshotStore(cfg *config.Config) *snapshot.Store {
	return snapshot.NewStore(cfg.Instrument.Symbol)
}

func ProvideAnalytics(cfg *config.Config, eng usecase.AnalyticsEngines, bars BarStore, assets drepo.AssetSource,
	book *usecase.QuoteBook, store *snapshot.Store, mirror drepo.SnapshotCache, events drepo.EventPublisher,
	m drepo.Metrics, log *applogger.Logger) *usecase.Analytics {
	return usecase.NewAnalytics(cfg.Instrument.Symbol, eng, usecase.AnalyticsSources{
		Bars:       bars,
		Assets:     assets,
		Quotes:     book,
		AssetList:  ProvideAssets(cfg),
		HourlyBars: cfg.Analytics.HourlyBars,
		DailyBars:  cfg.Analytics.DailyBars,
		AssetDays:  cfg.AssetQuotes.Days,
	}, store, mirror, events, m, log)
}

func ProvideNarrativeService(cfg *config.Config, repo drepo.NarrativeRepository, store *snapshot.Store,
	book *usecase.QuoteBook, mirror drepo.SnapshotCache, events drepo.EventPublisher, m drepo.Metrics,
	log *applogger.Logger) *usecase.NarrativeService {
	return usecase.NewNarrativeService(cfg.Instrument.Symbol, narrative.NewSwitcher(cfg, log), repo, store, book,
		mirror, events, m, ratelimit.New(), cfg.Narrative.RatePerMinute, cfg.Analytics.ScenarioDistance, log)
}

func ProvideAlertService(cfg *config.Config, engine *alerts.Engine) *usecase.AlertService {
	return usecase.NewAlertService(engine, cfg.Instrument.Symbol, ProvideAssets(cfg))
}

func ProvideQueryService(store *snapshot.Store, clock *session.Clock) *usecase.QueryService {
	return usecase.NewQueryService(store, clock)
}

// ProvideScheduler builds the scheduler and installs the cadence table.
func ProvideScheduler(cfg *config.Config, clock *session.Clock, c cache.Service, m drepo.Metrics, log *applogger.Logger,
	a *usecase.Analytics, n *usecase.NarrativeService) (*scheduler.Scheduler, error) {
	opts := []scheduler.Option{
		scheduler.WithMetrics(m),
		scheduler.WithDefaultTimeout(cfg.Scheduler.JobTimeout),
	}
	if cfg.Scheduler.DistributedLock {
		opts = append(opts, scheduler.WithLocker(c, cache.Key("lock", cfg.Instrument.Symbol)))
	}
	s := scheduler.New(clock.Location(), log.With("scheduler"), opts...)
	if err := usecase.RegisterJobs(s, cfg, a, n); err != nil {
		return nil, err
	}
	return s, nil
}

// ProvideHealthChecks lists the dependencies reported by /health.
func ProvideHealthChecks(db *gorm.DB, ch *pkgch.Client, c cache.Service, collector *usecase.QuoteCollector) []api.HealthCheck {
	checks := []api.HealthCheck{
		{Name: "database", Critical: true, Check: func(ctx context.Context) error { return database.Ping(ctx, db) }},
		{Name: "cache", Check: c.Ping},
		{Name: "clickhouse"},
		{Name: "feed"},
	}
	if ch != nil {
		checks[2].Check = ch.Health
	}
	if collector != nil {
		checks[3].Check = func(context.Context) error {
			if !collector.IsConnected() {
				return fmt.Errorf("quote stream disconnected")
			}
			return nil
		}
	}
	return checks
}

func ProvideHTTPServer(cfg *config.Config, log *applogger.Logger, query *usecase.QueryService, alertSvc *usecase.AlertService,
	narr *usecase.NarrativeService, sched *scheduler.Scheduler, checks []api.HealthCheck) *xhttp.Server {
	handlers := []xhttp.Handler{
		api.NewMarketHandler(log, query),
		api.NewAlertHandler(log, alertSvc),
		api.NewNarrativeHandler(log, narr),
		api.NewOpsHandler(log, sched, checks...),
	}
	return xhttp.NewServer(handlers,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORSOrigins(cfg.Server.CORSOrigins),
		xhttp.WithLogger(log.With("http")),
	)
}

// ProvideApp assembles the lifecycle. A disabled Kafka or tick stream leaves the matching component nil.
func ProvideApp(cfg *config.Config, log *applogger.Logger, srv *xhttp.Server, sched *scheduler.Scheduler,
	a *usecase.Analytics, alertEngine *alerts.Engine, consumer *pkgkafka.Consumer, bars *usecase.KafkaBarsHandler,
	collector *usecase.QuoteCollector) *server.App {
	c := server.Components{
		Config:    cfg,
		Logger:    log,
		HTTP:      srv,
		Scheduler: sched,
		Analytics: a,
		Alerts:    alertEngine,
		Collector: collector,
	}
	if consumer != nil {
		c.Consumer = consumer
		c.BarsHandler = bars
	}
	return server.New(c)
}

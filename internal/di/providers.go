package di

import (
	"context"
	"fmt"
	"io"
	"time"

	"SectorScope/internal/domain/repository"
	"SectorScope/internal/handler/api"
	internalrepo "SectorScope/internal/repository"
	icache "SectorScope/internal/service/cache"
	"SectorScope/internal/service/holdings"
	viewmetrics "SectorScope/internal/service/metrics"
	"SectorScope/internal/service/provider/financego"
	"SectorScope/internal/service/provider/yahoo"
	"SectorScope/internal/service/ratelimit"
	"SectorScope/internal/services/fetcher"
	"SectorScope/internal/usecase"
	pkgch "SectorScope/pkg/clickhouse"
	"SectorScope/pkg/config"
	xhttp "SectorScope/pkg/http"
	pkgkafka "SectorScope/pkg/kafka"
	applogger "SectorScope/pkg/logger"
	"SectorScope/pkg/metrics"
	"SectorScope/pkg/server"
)

// ProvideLogger creates the application logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: cfg.Log.TimeFormat,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(cfg *config.Config) repository.Metrics {
	if !cfg.Metrics.Enabled {
		return nil
	}
	viewmetrics.Register()
	return metrics.New()
}

// ProvideRedisCache connects to Redis when it is the configured backend.
func ProvideRedisCache(cfg *config.Config) (*icache.RedisCache, error) {
	if cfg.Cache.Backend != "redis" {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rc, err := icache.NewRedisCache(ctx,
		icache.WithRedisAddr(cfg.Cache.Redis.Addr),
		icache.WithRedisPassword(cfg.Cache.Redis.Password),
		icache.WithRedisDB(cfg.Cache.Redis.DB),
		icache.WithRedisPoolSize(cfg.Cache.Redis.PoolSize),
		icache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

// ProvideCache picks the memoization backend. Redis sits behind a short
// lived in-process layer.
func ProvideCache(cfg *config.Config, rc *icache.RedisCache) icache.BytesCache {
	bound := icache.WithMaxEntries(cfg.Cache.MaxEntries)
	switch cfg.Cache.Backend {
	case "redis":
		if rc == nil {
			return icache.NewTTLCache(bound)
		}
		return icache.NewLayeredCache(rc, cfg.Cache.L1TTL, bound)
	case "none":
		return nil
	default:
		return icache.NewTTLCache(bound)
	}
}

// ProvideClickHouseClient creates a ClickHouse client when enabled and
// makes sure the bars table exists.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
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
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	if !cfg.ClickHouse.InitSchema {
		return client, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, pkgch.BarsSchema(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideMarketDataProvider selects the upstream bar source by name.
func ProvideMarketDataProvider(cfg *config.Config, ch *pkgch.Client, l *applogger.Logger) (repository.MarketDataProvider, error) {
	switch cfg.Provider.Name {
	case "financego":
		return financego.New(financego.WithLogger(l)), nil
	case "clickhouse":
		if ch == nil {
			return nil, fmt.Errorf("provider clickhouse requires clickhouse.enabled")
		}
		return internalrepo.NewClickHouseBarProvider(ch, l), nil
	default:
		opts := []xhttp.ClientOption{xhttp.WithTimeout(cfg.Provider.Timeout)}
		if cfg.Provider.UserAgent != "" {
			opts = append(opts, xhttp.WithUserAgent(cfg.Provider.UserAgent))
		}
		if cfg.Provider.Proxy != "" {
			opts = append(opts, xhttp.WithProxy(cfg.Provider.Proxy))
		}
		return yahoo.New(
			yahoo.WithBaseURL(cfg.Provider.BaseURL),
			yahoo.WithClient(xhttp.NewClient(opts...)),
			yahoo.WithConcurrency(cfg.Provider.Concurrency),
			yahoo.WithLogger(l),
		), nil
	}
}

// ProvideFetcher creates the batch fetcher.
func ProvideFetcher(
	cfg *config.Config,
	p repository.MarketDataProvider,
	c icache.BytesCache,
	m repository.Metrics,
	l *applogger.Logger,
) *fetcher.Fetcher {
	opts := []fetcher.Option{fetcher.WithLogger(l)}
	if c != nil {
		opts = append(opts, fetcher.WithCache(c))
	}
	if m != nil {
		opts = append(opts, fetcher.WithMetrics(m))
	}
	return fetcher.New(p, fetcher.Config{
		BatchSize:   cfg.Fetch.BatchSize,
		MaxRetries:  cfg.Fetch.MaxRetries,
		BackoffBase: cfg.Fetch.BackoffBase,
		Cooldown:    cfg.Fetch.Cooldown,
		CacheTTL:    cfg.Cache.TTL,
	}, opts...)
}

// ProvideHoldings creates the ETF holdings source.
func ProvideHoldings(cfg *config.Config, c icache.BytesCache, l *applogger.Logger) repository.HoldingsSource {
	opts := []holdings.Option{holdings.WithLogger(l)}
	if c != nil {
		opts = append(opts, holdings.WithCache(c))
	}
	return holdings.New(holdings.Config{
		URLPattern: cfg.Holdings.URLPattern,
		Timeout:    cfg.Holdings.Timeout,
		CacheTTL:   cfg.Holdings.CacheTTL,
	}, opts...)
}

// ProvideKafkaProducer creates a Kafka producer when enabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideEventPublisher publishes run events to Kafka and routes
// aggregated warnings and errors to the log topic. Without a producer
// events are dropped.
func ProvideEventPublisher(cfg *config.Config, producer *pkgkafka.Producer, l *applogger.Logger) repository.EventPublisher {
	if producer == nil {
		return internalrepo.NoopEventPublisher{}
	}
	pub := internalrepo.NewKafkaEventPublisher(producer, cfg.Kafka.Topic)
	l.AddCollector(&applogger.CollectionConfig{
		Topic:     cfg.Kafka.LogTopic,
		Publisher: pub,
	})
	return pub
}

// ProvidePipeline creates the view pipeline.
func ProvidePipeline(
	cfg *config.Config,
	f *fetcher.Fetcher,
	h repository.HoldingsSource,
	events repository.EventPublisher,
	l *applogger.Logger,
) *usecase.Pipeline {
	return usecase.NewPipeline(f, h, usecase.Settings{
		Benchmark:    cfg.Analytics.Benchmark,
		DefaultETF:   cfg.Analytics.DefaultETF,
		BreadthStart: cfg.Analytics.BreadthStart,
		Interval:     repository.NormalizeInterval(cfg.Fetch.Interval),
		AutoAdjust:   cfg.Fetch.AutoAdjust,
		Timeout:      cfg.Analytics.Timeout,
	},
		usecase.WithLogger(l),
		usecase.WithEventPublisher(events),
	)
}

// ProvideHTTPHandler creates the Echo handler for every view.
func ProvideHTTPHandler(l *applogger.Logger, p *usecase.Pipeline) xhttp.Handler {
	return api.NewViewsEchoHandler(l, p)
}

// ProvideHTTPServer creates the HTTP server.
func ProvideHTTPServer(cfg *config.Config, h xhttp.Handler, l *applogger.Logger) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithSlowThreshold(cfg.Server.SlowThreshold),
		xhttp.WithCORS(cfg.Server.CORSOrigins...),
		xhttp.WithMetrics(cfg.Metrics.Enabled),
		xhttp.WithLogger(l),
	}
	if cfg.Server.RateLimit.Enabled {
		opts = append(opts, xhttp.WithRateLimiter(ratelimit.New(cfg.Server.RateLimit.Capacity, cfg.Server.RateLimit.RefillPerSec)))
	}
	return xhttp.NewServer(h, opts...)
}

// ProvideApp creates the application.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	p *usecase.Pipeline,
	srv *xhttp.Server,
	events repository.EventPublisher,
	ch *pkgch.Client,
	rc *icache.RedisCache,
) *server.App {
	var closer io.Closer
	if rc != nil {
		closer = rc
	}
	return server.New(cfg, l, p, srv, events, ch, closer)
}

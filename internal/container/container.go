package container

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"taobao/crawler/internal/cache"
	"taobao/crawler/internal/client"
	"taobao/crawler/internal/config"
	"taobao/crawler/internal/extractor"
	"taobao/crawler/internal/metrics"
	"taobao/crawler/internal/proxy"
	"taobao/crawler/internal/queue"
	"taobao/crawler/internal/repository"
	"taobao/crawler/internal/scraper"
	"taobao/crawler/internal/service"
	"taobao/crawler/internal/sink"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
	"golang.org/x/sync/errgroup"
)

// Container holds all initialized components
type Container struct {
	Config     *config.Config
	Queue      queue.Queue
	Cache      cache.ResultCache
	Repository repository.ProductRepository
	Scraper    *scraper.Scraper
	Sink       *sink.ResultSink

	Service *service.Service

	db    *pgxpool.Pool
	redis *redis.Client
}

// New creates a new container with all dependencies initialized
func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	container := &Container{
		Config: cfg,
	}

	// Compile selectors first so a bad override fails before any connection is opened
	fieldExtractor, err := extractor.New(cfg.Selectors, cfg.Crawler.StockPlaceholder)
	if err != nil {
		return nil, fmt.Errorf("failed to compile selectors: %w", err)
	}

	db, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}
	container.db = db

	if err := db.Ping(ctx); err != nil {
		container.Close()
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	log.Info("✅ Connected to PostgreSQL successfully")

	if err := repository.EnsureSchema(ctx, db); err != nil {
		container.Close()
		return nil, err
	}
	container.Repository = repository.NewProductRepository(db)

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.Database,
	})
	container.redis = rdb

	// Test connection
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		container.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	log.Info("✅ Connected to Redis successfully")

	container.Queue = queue.NewRedisQueue(rdb, cfg.Redis)
	if pending, err := container.Queue.Len(ctx); err != nil {
		log.Warnf("⚠️ Failed to read length of %s: %v", cfg.Redis.Queue, err)
	} else {
		log.Infof("📥 %d jobs waiting in %s", pending, cfg.Redis.Queue)
	}
	container.Cache = cache.NewRedisResultCache(rdb, cfg.Redis.ResultPrefix, cfg.Redis.ResultTTLDuration())

	proxySupplier := proxy.NewProxySupplier(ctx, cfg.Browser.Proxies, cfg.Browser.ProxyTestURL)

	renderer := client.NewBrowserRenderer(
		cfg.Browser,
		proxySupplier,
		cfg.Crawler.NavigationTimeoutDuration(),
		cfg.Crawler.SettleDelayDuration(),
	)
	container.Scraper = scraper.New(renderer, fieldExtractor)
	container.Sink = sink.New(container.Cache, container.Repository)

	container.Service = service.NewService(
		container.Queue,
		container.Scraper,
		container.Sink,
		newLimiter(cfg.Crawler.MaxRequestsPerSecond),
		cfg.Crawler.PollTimeoutDuration(),
		cfg.Crawler.BackoffDuration(),
	)

	return container, nil
}

func newLimiter(perSecond int) ratelimit.Limiter {
	if perSecond <= 0 {
		return ratelimit.NewUnlimited()
	}
	return ratelimit.New(perSecond)
}

// Run starts the consumer and the metrics endpoint and blocks until ctx is cancelled
func (c *Container) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return c.Service.Run(ctx)
	})

	g.Go(func() error {
		return c.serveMetrics(ctx)
	})

	return g.Wait()
}

func (c *Container) serveMetrics(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{
		Addr:              net.JoinHostPort(c.Config.Server.Host, strconv.Itoa(c.Config.Server.Port)),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Infof("📈 Serving metrics on %s/metrics", srv.Addr)
	// Metrics are optional: a dead endpoint must not stop the consumer
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Errorf("❌ Metrics server failed, continuing without /metrics: %v", err)
	}
	return nil
}

// Close performs cleanup when shutting down
func (c *Container) Close() error {
	log.Info("Shutting down container...")

	if c.db != nil {
		c.db.Close()
	}
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			log.Warnf("⚠️ Failed to close Redis client: %v", err)
		}
	}

	log.Info("Container shut down successfully")
	return nil
}

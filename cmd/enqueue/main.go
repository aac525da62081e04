package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"taobao/crawler/internal/cache"
	"taobao/crawler/internal/config"
	"taobao/crawler/internal/domain"
	"taobao/crawler/internal/domain/task"
	"taobao/crawler/internal/logging"
	"taobao/crawler/internal/queue"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file found")
	}

	rawURL := flag.String("url", "", "Taobao or Tmall product URL to crawl")
	wait := flag.Duration("wait", 0, "Wait up to this long for the cached result and print it (0 = don't wait)")
	flag.Parse()

	if *rawURL == "" {
		fmt.Fprintln(os.Stderr, "Usage: enqueue -url <product-url> [-wait 60s]")
		fmt.Fprintln(os.Stderr, "\nExample:")
		fmt.Fprintln(os.Stderr, "  enqueue -url 'https://item.taobao.com/item.htm?id=675329487212'")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := logging.Setup(cfg.Log); err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	job, err := task.NewCrawlJob(*rawURL, time.Now())
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.Database,
	})
	defer rdb.Close()

	length, err := queue.NewRedisQueue(rdb, cfg.Redis).AddTask(ctx, job)
	if err != nil {
		log.Fatalf("❌ Failed to enqueue job: %v", err)
	}
	log.WithFields(log.Fields{"product_id": job.ProductID, "job_id": job.JobID}).
		Infof("✅ Queued %s (queue length %d)", job.URL, length)

	if *wait <= 0 {
		return
	}

	resultCache := cache.NewRedisResultCache(rdb, cfg.Redis.ResultPrefix, cfg.Redis.ResultTTLDuration())
	result, err := waitForResult(ctx, resultCache, job, *wait)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))
}

// waitForResult polls the cache until a result for the job's product shows up
func waitForResult(ctx context.Context, resultCache cache.ResultCache, job *task.CrawlJob, timeout time.Duration) (*domain.ScrapeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		result, err := resultCache.GetResult(ctx, job.ProductID)
		if err != nil {
			log.Warnf("⚠️ Failed to read cached result: %v", err)
		} else if result != nil {
			return result, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("no result for product %s after %s", job.ProductID, timeout)
		case <-ticker.C:
		}
	}
}

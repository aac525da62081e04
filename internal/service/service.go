package service

import (
	"context"
	"fmt"
	"taobao/crawler/internal/domain"
	"taobao/crawler/internal/domain/task"
	"taobao/crawler/internal/metrics"
	"time"

	log "github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
)

type TaskSource interface {
	GetTask(ctx context.Context, timeout time.Duration) ([]byte, error)
}

type ProductScraper interface {
	Scrape(ctx context.Context, url string) *domain.ScrapeResult
}

type ResultSink interface {
	Persist(ctx context.Context, result *domain.ScrapeResult)
}

// Service is the single queue consumer: it takes one job at a time, scrapes
// it and persists the result before asking for the next one.
type Service struct {
	queue       TaskSource
	scraper     ProductScraper
	sink        ResultSink
	limiter     ratelimit.Limiter
	pollTimeout time.Duration
	backoff     time.Duration
}

func NewService(
	queue TaskSource,
	scraper ProductScraper,
	sink ResultSink,
	limiter ratelimit.Limiter,
	pollTimeout time.Duration,
	backoff time.Duration,
) *Service {
	if limiter == nil {
		limiter = ratelimit.NewUnlimited()
	}
	return &Service{
		queue:       queue,
		scraper:     scraper,
		sink:        sink,
		limiter:     limiter,
		pollTimeout: pollTimeout,
		backoff:     backoff,
	}
}

// Run consumes jobs until ctx is cancelled. Failures never end the loop: they
// are logged and followed by a fixed backoff.
func (s *Service) Run(ctx context.Context) error {
	log.Infof("🚀 Consumer started, polling every %s", s.pollTimeout)

	for {
		if ctx.Err() != nil {
			log.Info("🛑 Consumer stopping")
			return nil
		}

		if err := s.processNext(ctx); err != nil {
			if ctx.Err() != nil {
				log.Info("🛑 Consumer stopping")
				return nil
			}

			metrics.RecordJob(metrics.OutcomeFailed)
			log.Errorf("❌ Consumer error, backing off for %s: %v", s.backoff, err)

			select {
			case <-ctx.Done():
				log.Info("🛑 Consumer stopping")
				return nil
			case <-time.After(s.backoff):
			}
		}
	}
}

func (s *Service) processNext(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing job: %v", r)
		}
	}()

	payload, err := s.queue.GetTask(ctx, s.pollTimeout)
	if err != nil {
		return err
	}
	if payload == nil {
		return nil
	}

	job, err := task.DecodeCrawlJob(payload)
	if err != nil {
		return err
	}

	s.processJob(ctx, job)
	return nil
}

func (s *Service) processJob(ctx context.Context, job *task.CrawlJob) {
	logger := log.WithFields(log.Fields{
		"product_id": job.ProductID,
		"job_id":     job.JobID,
	})
	logger.Infof("🔄 Processing %s", job.URL)

	s.limiter.Take()

	result := s.scraper.Scrape(ctx, job.URL)
	// Short links carry no id= parameter; the job still names the product
	if result.ProductID == nil && job.ProductID != "" {
		productID := job.ProductID
		result.ProductID = &productID
	}
	s.sink.Persist(ctx, result)

	metrics.RecordJob(metrics.OutcomeProcessed)

	if result.Success {
		logger.Infof("✅ Job done for %s", job.URL)
	} else {
		logger.Warnf("⚠️ Job done with scrape failure for %s: %s", job.URL, *result.Error)
	}
}

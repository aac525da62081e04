package sink

import (
	"context"
	"fmt"
	"taobao/crawler/internal/cache"
	"taobao/crawler/internal/domain"
	"taobao/crawler/internal/metrics"
	"taobao/crawler/internal/repository"

	log "github.com/sirupsen/logrus"
)

// ResultSink writes a scrape result to the cache and the durable store.
// The two writes are independent and neither failure reaches the caller.
type ResultSink struct {
	cache      cache.ResultCache
	repository repository.ProductRepository
}

func New(cache cache.ResultCache, repository repository.ProductRepository) *ResultSink {
	return &ResultSink{
		cache:      cache,
		repository: repository,
	}
}

func (s *ResultSink) Persist(ctx context.Context, result *domain.ScrapeResult) {
	if result.ProductID == nil {
		log.Warnf("⚠️ Skipping persistence for %s: no product id", result.URL)
		return
	}
	productID := *result.ProductID

	if err := s.saveToCache(ctx, productID, result); err != nil {
		metrics.RecordPersistFailure(metrics.SinkCache)
		log.Errorf("❌ Failed to cache result for product %s: %v", productID, err)
	}

	if err := s.saveToStore(ctx, result); err != nil {
		metrics.RecordPersistFailure(metrics.SinkStore)
		log.Errorf("❌ Failed to store product %s: %v", productID, err)
	}
}

func (s *ResultSink) saveToCache(ctx context.Context, productID string, result *domain.ScrapeResult) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cache write panicked: %v", r)
		}
	}()

	if err := s.cache.SaveResult(ctx, productID, result); err != nil {
		return err
	}
	log.Debugf("💾 Cached result for product %s", productID)
	return nil
}

func (s *ResultSink) saveToStore(ctx context.Context, result *domain.ScrapeResult) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("store write panicked: %v", r)
		}
	}()

	id, err := s.repository.SaveProduct(ctx, result)
	if err != nil {
		return err
	}
	log.Infof("💾 Stored product %s as #%d (%d thumbnails, %d detail images)",
		*result.ProductID, id, len(result.Thumbnails), len(result.DetailImages))
	return nil
}

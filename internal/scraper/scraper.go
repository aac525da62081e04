package scraper

import (
	"context"
	"fmt"
	"taobao/crawler/internal/client"
	"taobao/crawler/internal/domain"
	"taobao/crawler/internal/metrics"
	"time"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"
)

// FieldExtractor fills the product fields of a result from a rendered page
type FieldExtractor interface {
	Extract(doc *goquery.Document, result *domain.ScrapeResult)
}

type Scraper struct {
	renderer  client.Renderer
	extractor FieldExtractor
}

func New(renderer client.Renderer, extractor FieldExtractor) *Scraper {
	return &Scraper{
		renderer:  renderer,
		extractor: extractor,
	}
}

// Scrape always returns a result. Success is set only when rendering and
// extraction both ran to completion; on failure the fields gathered before
// the error are kept.
func (s *Scraper) Scrape(ctx context.Context, url string) (result *domain.ScrapeResult) {
	start := time.Now()
	result = domain.NewScrapeResult(url)

	if id, ok := domain.ProductIDFromURL(url); ok {
		result.ProductID = &id
	} else {
		log.Warnf("⚠️ No product id in url %s", url)
	}

	defer func() {
		if r := recover(); r != nil {
			log.Errorf("❌ Scrape of %s panicked: %v", url, r)
			result.Fail(fmt.Errorf("scrape panicked: %v", r))
		}
		metrics.RecordScrape(result.Success, time.Since(start))
	}()

	doc, err := s.renderer.Render(ctx, url)
	if err != nil {
		log.Errorf("❌ Failed to render %s: %v", url, err)
		result.Fail(err)
		return result
	}

	s.extractor.Extract(doc, result)
	result.Success = true

	log.Infof("✅ Scraped %s in %s", url, time.Since(start).Round(time.Millisecond))
	return result
}

package task

import (
	"fmt"
	"net/url"
	"strings"
	"taobao/crawler/internal/domain"
	"time"

	"github.com/google/uuid"
)

var allowedHosts = []string{"taobao.com", "tmall.com"}

// CrawlJob is one queued request to scrape a single product page
type CrawlJob struct {
	JobID     string     `json:"job_id,omitempty"`    // Producer-assigned UUID, used for log correlation
	URL       string     `json:"url"`                 // Product page URL
	ProductID string     `json:"product_id"`          // Numeric marketplace id
	Timestamp *time.Time `json:"timestamp,omitempty"` // Enqueue time, set by the producer
}

// NewCrawlJob validates a marketplace product URL and builds a job for it
func NewCrawlJob(rawURL string, now time.Time) (*CrawlJob, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid url: %q", rawURL)
	}

	if !isAllowedHost(u.Hostname()) {
		return nil, fmt.Errorf("unsupported host %s: only taobao.com and tmall.com urls are accepted", u.Hostname())
	}

	productID, ok := domain.ProductIDFromURL(u.String())
	if !ok {
		return nil, fmt.Errorf("could not extract product id from url: %s", rawURL)
	}

	enqueuedAt := now.UTC()
	return &CrawlJob{
		JobID:     uuid.NewString(),
		URL:       u.String(),
		ProductID: productID,
		Timestamp: &enqueuedAt,
	}, nil
}

func isAllowedHost(host string) bool {
	host = strings.ToLower(host)
	for _, allowed := range allowedHosts {
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return true
		}
	}
	return false
}

func (t *CrawlJob) TaskType() string {
	return "CrawlJob"
}

func (t *CrawlJob) TaskValue() ([]byte, error) {
	return DefaultTaskValue(t)
}

// DecodeCrawlJob decodes a queue payload and checks the fields the consumer needs
func DecodeCrawlJob(payload []byte) (*CrawlJob, error) {
	job, err := UnmarshalTask[*CrawlJob](payload)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal crawl job: %w", err)
	}
	if job == nil || job.URL == "" {
		return nil, fmt.Errorf("crawl job has no url: %s", payload)
	}
	return job, nil
}

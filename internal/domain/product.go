package domain

import (
	"encoding/json"
	"regexp"

	"github.com/shopspring/decimal"
)

const (
	MaxThumbnails   = 5
	MaxDetailImages = 10
)

var productIDRegex = regexp.MustCompile(`[?&]id=(\d+)`)

// ProductIDFromURL extracts the numeric product identifier from URLs like
// https://item.taobao.com/item.htm?id=123456789
func ProductIDFromURL(url string) (string, bool) {
	matches := productIDRegex.FindStringSubmatch(url)
	if len(matches) < 2 {
		return "", false
	}
	return matches[1], true
}

// ScrapeResult is the outcome of one scrape attempt. Every extracted field is
// optional; Success only reports that the attempt ran to completion.
type ScrapeResult struct {
	URL          string           `json:"url"`
	Success      bool             `json:"success"`
	ProductID    *string          `json:"product_id"`
	Title        *string          `json:"title"`
	Price        *decimal.Decimal `json:"price"`
	Thumbnails   []string         `json:"thumbnails"`
	DetailImages []string         `json:"detail_images"`
	Stock        int              `json:"stock"`
	Error        *string          `json:"error,omitempty"`
}

func NewScrapeResult(url string) *ScrapeResult {
	return &ScrapeResult{
		URL:          url,
		Thumbnails:   make([]string, 0, MaxThumbnails),
		DetailImages: make([]string, 0, MaxDetailImages),
	}
}

// MarshalJSON writes price as a JSON number; cached results are read by
// consumers that expect one.
func (r ScrapeResult) MarshalJSON() ([]byte, error) {
	type plain ScrapeResult

	var price *json.Number
	if r.Price != nil {
		n := json.Number(r.Price.String())
		price = &n
	}

	return json.Marshal(struct {
		plain
		Price *json.Number `json:"price"`
	}{plain(r), price})
}

// Fail marks the result as failed, keeping any fields populated so far
func (r *ScrapeResult) Fail(err error) {
	msg := err.Error()
	r.Success = false
	r.Error = &msg
}

// Status maps the scrape outcome to the persisted product status
func (r *ScrapeResult) Status() ProductStatus {
	if r.Success {
		return ProductStatusScraped
	}
	return ProductStatusFailed
}

package extractor

import (
	"net/url"
	"regexp"
	"strings"
	"taobao/crawler/internal/config"
	"taobao/crawler/internal/domain"
	"taobao/crawler/internal/metrics"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const (
	FieldTitle        = "title"
	FieldPrice        = "price"
	FieldThumbnails   = "thumbnails"
	FieldDetailImages = "detail_images"
	FieldStock        = "stock"
)

var priceRegex = regexp.MustCompile(`[0-9]+(\.[0-9]+)?`)

// Extractor pulls product fields out of a rendered page using ordered selector
// strategies. Each field is independent: a miss or a failure on one field
// leaves it absent and never affects the others.
type Extractor struct {
	title        []strategy
	price        []strategy
	thumbnails   []strategy
	detailImages []strategy

	stockPlaceholder int
}

func New(cfg config.SelectorsConfig, stockPlaceholder int) (*Extractor, error) {
	e := &Extractor{stockPlaceholder: stockPlaceholder}

	var err error
	if e.title, err = compileStrategies(FieldTitle, cfg.Title); err != nil {
		return nil, err
	}
	if e.price, err = compileStrategies(FieldPrice, cfg.Price); err != nil {
		return nil, err
	}
	if e.thumbnails, err = compileStrategies(FieldThumbnails, cfg.Thumbnails); err != nil {
		return nil, err
	}
	if e.detailImages, err = compileStrategies(FieldDetailImages, cfg.DetailImages); err != nil {
		return nil, err
	}

	return e, nil
}

// Extract fills every field of result from doc
func (e *Extractor) Extract(doc *goquery.Document, result *domain.ScrapeResult) {
	result.Title = e.Title(doc)
	result.Price = e.Price(doc)
	result.Thumbnails = e.Thumbnails(doc)
	result.DetailImages = e.DetailImages(doc)
	result.Stock = e.Stock(doc)
}

// Title returns the trimmed text of the first element matched by the
// highest-priority title selector, or nil.
func (e *Extractor) Title(doc *goquery.Document) *string {
	var title *string
	e.guard(FieldTitle, func() {
		matched, selector, ok := firstMatch(doc.Selection, e.title)
		if !ok {
			return
		}
		text := strings.TrimSpace(matched.First().Text())
		if text == "" {
			log.Debugf("Title selector %s matched an empty element", selector)
			return
		}
		title = &text
		log.Infof("✅ Title: %s", truncate(text, 50))
	})
	if title == nil {
		metrics.RecordFieldMiss(FieldTitle)
	}
	return title
}

// Price returns the first numeric amount inside the first element matched by
// the highest-priority price selector. A matched element without a number is a
// miss; lower-priority selectors are not tried.
func (e *Extractor) Price(doc *goquery.Document) *decimal.Decimal {
	var price *decimal.Decimal
	e.guard(FieldPrice, func() {
		matched, selector, ok := firstMatch(doc.Selection, e.price)
		if !ok {
			return
		}
		text := matched.First().Text()
		amount, ok := ParsePrice(text)
		if !ok {
			log.Warnf("⚠️ Price selector %s matched %q without a number", selector, strings.TrimSpace(text))
			return
		}
		price = &amount
		log.Infof("✅ Price: ¥%s", amount.String())
	})
	if price == nil {
		metrics.RecordFieldMiss(FieldPrice)
	}
	return price
}

// Thumbnails returns up to MaxThumbnails gallery image URLs in page order
func (e *Extractor) Thumbnails(doc *goquery.Document) []string {
	thumbnails := make([]string, 0, domain.MaxThumbnails)
	e.guard(FieldThumbnails, func() {
		thumbnails = e.collectImages(doc, e.thumbnails, domain.MaxThumbnails, false)
		log.Infof("✅ Thumbnails: %d", len(thumbnails))
	})
	if len(thumbnails) == 0 {
		metrics.RecordFieldMiss(FieldThumbnails)
	}
	return thumbnails
}

// DetailImages returns up to MaxDetailImages description image URLs in page
// order with exact duplicates removed.
func (e *Extractor) DetailImages(doc *goquery.Document) []string {
	details := make([]string, 0, domain.MaxDetailImages)
	e.guard(FieldDetailImages, func() {
		details = e.collectImages(doc, e.detailImages, domain.MaxDetailImages, true)
		log.Infof("✅ Detail images: %d", len(details))
	})
	if len(details) == 0 {
		metrics.RecordFieldMiss(FieldDetailImages)
	}
	return details
}

// Stock is not extracted from the page yet; it always reports the configured placeholder.
// TODO: read the SKU stock once the inventory widget selectors are known.
func (e *Extractor) Stock(_ *goquery.Document) int {
	return e.stockPlaceholder
}

// collectImages reads at most limit elements of the first matching selector.
// Elements without a usable URL still count towards the limit.
func (e *Extractor) collectImages(doc *goquery.Document, strategies []strategy, limit int, dedupe bool) []string {
	urls := make([]string, 0, limit)

	matched, _, ok := firstMatch(doc.Selection, strategies)
	if !ok {
		return urls
	}

	seen := make(map[string]struct{}, limit)
	matched.EachWithBreak(func(i int, img *goquery.Selection) bool {
		if i >= limit {
			return false
		}

		src := imageSource(img)
		if src == "" {
			return true
		}
		src = NormalizeURL(doc.Url, src)

		if dedupe {
			if _, exists := seen[src]; exists {
				return true
			}
			seen[src] = struct{}{}
		}
		urls = append(urls, src)
		return true
	})

	return urls
}

// imageSource reads src, falling back to the lazy-load data-src attribute
func imageSource(img *goquery.Selection) string {
	if src := strings.TrimSpace(img.AttrOr("src", "")); src != "" {
		return src
	}
	return strings.TrimSpace(img.AttrOr("data-src", ""))
}

// guard recovers a panicking field extraction so it degrades to "absent"
func (e *Extractor) guard(field string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("❌ Failed to extract %s: %v", field, r)
		}
	}()
	fn()
}

// ParsePrice returns the first decimal number found in text
func ParsePrice(text string) (decimal.Decimal, bool) {
	match := priceRegex.FindString(text)
	if match == "" {
		return decimal.Decimal{}, false
	}
	amount, err := decimal.NewFromString(match)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return amount, true
}

// NormalizeURL turns protocol-relative URLs into https URLs and resolves
// relative paths against base when it is known.
func NormalizeURL(base *url.URL, raw string) string {
	if strings.HasPrefix(raw, "//") {
		return "https:" + raw
	}
	if base == nil {
		return raw
	}

	ref, err := url.Parse(raw)
	if err != nil || ref.IsAbs() {
		return raw
	}
	return base.ResolveReference(ref).String()
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

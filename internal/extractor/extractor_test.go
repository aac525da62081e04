package extractor

import (
	"fmt"
	"net/url"
	"reflect"
	"strings"
	"taobao/crawler/internal/config"
	"taobao/crawler/internal/domain"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
)

func defaultSelectors() config.SelectorsConfig {
	return config.SelectorsConfig{
		Title:        config.DefaultTitleSelectors,
		Price:        config.DefaultPriceSelectors,
		Thumbnails:   config.DefaultThumbnailSelectors,
		DetailImages: config.DefaultDetailImageSelectors,
	}
}

func newExtractor(t *testing.T) *Extractor {
	t.Helper()
	e, err := New(defaultSelectors(), 999)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return e
}

func parse(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("failed to parse HTML: %v", err)
	}
	return doc
}

func TestNew_InvalidSelector(t *testing.T) {
	selectors := defaultSelectors()
	selectors.Price = []string{"span[class*="}

	if _, err := New(selectors, 0); err == nil {
		t.Fatal("New() error = nil, want invalid selector error")
	}
}

func TestNew_EmptySelectorList(t *testing.T) {
	selectors := defaultSelectors()
	selectors.Thumbnails = nil

	if _, err := New(selectors, 0); err == nil {
		t.Fatal("New() error = nil, want error for empty selector list")
	}
}

func TestTitle_FirstPriorityWins(t *testing.T) {
	doc := parse(t, `
		<div class="tb-main-title">Lower priority</div>
		<div class="tb-detail-hd"><h1>Second priority</h1></div>
		<h1 class="item-title">  Wireless Mouse 2.4G  </h1>`)

	title := newExtractor(t).Title(doc)
	if title == nil || *title != "Wireless Mouse 2.4G" {
		t.Errorf("Title() = %v, want %q", title, "Wireless Mouse 2.4G")
	}
}

func TestTitle_FallsBackToLowerPriority(t *testing.T) {
	doc := parse(t, `<h3 class="main-title">Fallback Title</h3><div class="tb-main-title">Last</div>`)

	title := newExtractor(t).Title(doc)
	if title == nil || *title != "Fallback Title" {
		t.Errorf("Title() = %v, want %q", title, "Fallback Title")
	}
}

func TestTitle_Absent(t *testing.T) {
	doc := parse(t, `<p>nothing here</p>`)

	if title := newExtractor(t).Title(doc); title != nil {
		t.Errorf("Title() = %q, want nil", *title)
	}
}

func TestPrice(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"currency text", `<span class="Price--priceText">¥199.00 CNY</span>`, "199.00"},
		{"integer", `<em class="tb-rmb-num">88</em>`, "88"},
		{"range takes first", `<span class="price">12.50 - 30.00</span>`, "12.50"},
		{"priority over later selector", `<strong class="price">5</strong><span class="priceText">7.5</span>`, "7.5"},
	}

	e := newExtractor(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price := e.Price(parse(t, tt.html))
			if price == nil {
				t.Fatalf("Price() = nil, want %s", tt.want)
			}
			if !price.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("Price() = %s, want %s", price, tt.want)
			}
		})
	}
}

func TestPrice_MatchWithoutNumberIsMiss(t *testing.T) {
	// The first selector matches but holds no number; the lower-priority
	// .tb-price element is intentionally not consulted.
	doc := parse(t, `<span class="priceText">面议</span><div class="tb-price">45.00</div>`)

	if price := newExtractor(t).Price(doc); price != nil {
		t.Errorf("Price() = %s, want nil", price)
	}
}

func TestParsePrice(t *testing.T) {
	amount, ok := ParsePrice("¥199.00 CNY")
	if !ok || !amount.Equal(decimal.NewFromInt(199)) {
		t.Errorf("ParsePrice() = (%s, %v), want (199.00, true)", amount, ok)
	}

	if _, ok := ParsePrice("free"); ok {
		t.Error("ParsePrice(free) ok = true, want false")
	}
}

func TestNormalizeURL(t *testing.T) {
	base, _ := url.Parse("https://item.taobao.com/item.htm?id=1")

	tests := []struct {
		name string
		base *url.URL
		raw  string
		want string
	}{
		{"protocol relative", nil, "//img.example.com/a.jpg", "https://img.example.com/a.jpg"},
		{"protocol relative with base", base, "//img.alicdn.com/b.jpg", "https://img.alicdn.com/b.jpg"},
		{"absolute", base, "http://img.example.com/c.jpg", "http://img.example.com/c.jpg"},
		{"relative with base", base, "/imgextra/d.jpg", "https://item.taobao.com/imgextra/d.jpg"},
		{"relative without base", nil, "/imgextra/d.jpg", "/imgextra/d.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeURL(tt.base, tt.raw); got != tt.want {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestThumbnails_CapAndLazyLoad(t *testing.T) {
	var b strings.Builder
	b.WriteString(`<ul class="tb-thumb">`)
	b.WriteString(`<li><img data-src="//img.example.com/lazy.jpg"></li>`)
	for i := 1; i < 8; i++ {
		fmt.Fprintf(&b, `<li><img src="//img.example.com/%d.jpg"></li>`, i)
	}
	b.WriteString(`</ul>`)

	thumbs := newExtractor(t).Thumbnails(parse(t, b.String()))

	want := []string{
		"https://img.example.com/lazy.jpg",
		"https://img.example.com/1.jpg",
		"https://img.example.com/2.jpg",
		"https://img.example.com/3.jpg",
		"https://img.example.com/4.jpg",
	}
	if !reflect.DeepEqual(thumbs, want) {
		t.Errorf("Thumbnails() = %v, want %v", thumbs, want)
	}
}

func TestThumbnails_FirstMatchingSelectorOnly(t *testing.T) {
	doc := parse(t, `
		<div class="gallery"><img src="https://a.example.com/g.jpg"></div>
		<ul id="J_UlThumb"><img src="https://a.example.com/u.jpg"></ul>`)

	thumbs := newExtractor(t).Thumbnails(doc)
	if !reflect.DeepEqual(thumbs, []string{"https://a.example.com/g.jpg"}) {
		t.Errorf("Thumbnails() = %v, want only the gallery image", thumbs)
	}
}

func TestThumbnails_NoMatchIsEmpty(t *testing.T) {
	thumbs := newExtractor(t).Thumbnails(parse(t, `<img src="x.jpg">`))
	if thumbs == nil || len(thumbs) != 0 {
		t.Errorf("Thumbnails() = %#v, want empty non-nil slice", thumbs)
	}
}

func TestDetailImages_DedupeAndCap(t *testing.T) {
	var b strings.Builder
	b.WriteString(`<div class="detail-content">`)
	b.WriteString(`<img src="//img.example.com/same.jpg">`)
	b.WriteString(`<img src="https://img.example.com/same.jpg">`)
	b.WriteString(`<img data-src="//img.example.com/same.jpg">`)
	for i := 0; i < 12; i++ {
		fmt.Fprintf(&b, `<img src="//img.example.com/d%d.jpg">`, i)
	}
	b.WriteString(`</div>`)

	details := newExtractor(t).DetailImages(parse(t, b.String()))

	if len(details) > domain.MaxDetailImages {
		t.Fatalf("len(DetailImages()) = %d, want <= %d", len(details), domain.MaxDetailImages)
	}
	seen := make(map[string]bool)
	for _, u := range details {
		if seen[u] {
			t.Errorf("duplicate detail image %s", u)
		}
		seen[u] = true
	}
	if details[0] != "https://img.example.com/same.jpg" {
		t.Errorf("DetailImages()[0] = %q, want the first image", details[0])
	}
	// 10 elements read, 3 of them the same image.
	if len(details) != 8 {
		t.Errorf("len(DetailImages()) = %d, want 8", len(details))
	}
}

func TestDetailImages_SkipsElementsWithoutSource(t *testing.T) {
	doc := parse(t, `<div id="description"><img alt="spacer"><img src="//img.example.com/x.jpg"></div>`)

	details := newExtractor(t).DetailImages(doc)
	if !reflect.DeepEqual(details, []string{"https://img.example.com/x.jpg"}) {
		t.Errorf("DetailImages() = %v", details)
	}
}

func TestExtract_FieldsAreIndependent(t *testing.T) {
	doc := parse(t, `
		<div class="tb-detail-hd"><h1>Only a title</h1></div>
		<div class="desc"><img src="//img.example.com/only.jpg"></div>`)

	result := domain.NewScrapeResult("https://item.taobao.com/item.htm?id=5")
	newExtractor(t).Extract(doc, result)

	if result.Title == nil || *result.Title != "Only a title" {
		t.Errorf("Title = %v", result.Title)
	}
	if result.Price != nil {
		t.Errorf("Price = %s, want nil", result.Price)
	}
	if len(result.Thumbnails) != 0 {
		t.Errorf("Thumbnails = %v, want empty", result.Thumbnails)
	}
	if !reflect.DeepEqual(result.DetailImages, []string{"https://img.example.com/only.jpg"}) {
		t.Errorf("DetailImages = %v", result.DetailImages)
	}
	if result.Stock != 999 {
		t.Errorf("Stock = %d, want placeholder 999", result.Stock)
	}
}

func TestGuard_RecoversPanic(t *testing.T) {
	e := newExtractor(t)

	ran := false
	e.guard(FieldTitle, func() {
		ran = true
		panic("boom")
	})

	if !ran {
		t.Error("guarded function did not run")
	}
}

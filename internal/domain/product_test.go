package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestProductIDFromURL(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		wantID string
		wantOK bool
	}{
		{"taobao item", "https://item.taobao.com/item.htm?id=675329487212", "675329487212", true},
		{"tmall with extra params", "https://detail.tmall.com/item.htm?spm=a1z10&id=12345&skuId=9", "12345", true},
		{"id not first param", "https://item.taobao.com/item.htm?ali_refid=a3&id=42", "42", true},
		{"sku id before item id", "https://detail.tmall.com/item.htm?skuid=5123&id=675329487212", "675329487212", true},
		{"only sku id", "https://detail.tmall.com/item.htm?skuid=5123", "", false},
		{"no id", "https://item.taobao.com/item.htm?spm=a1z10", "", false},
		{"non numeric id", "https://item.taobao.com/item.htm?id=abc", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := ProductIDFromURL(tt.url)
			if ok != tt.wantOK || id != tt.wantID {
				t.Errorf("ProductIDFromURL(%q) = (%q, %v), want (%q, %v)", tt.url, id, ok, tt.wantID, tt.wantOK)
			}
		})
	}
}

func TestScrapeResult_FailKeepsFields(t *testing.T) {
	r := NewScrapeResult("https://item.taobao.com/item.htm?id=1")
	title := "kept"
	r.Title = &title
	r.Success = true

	r.Fail(errors.New("navigation timeout"))

	if r.Success {
		t.Error("Success = true after Fail")
	}
	if r.Error == nil || *r.Error != "navigation timeout" {
		t.Errorf("Error = %v, want navigation timeout", r.Error)
	}
	if r.Title == nil || *r.Title != "kept" {
		t.Errorf("Title = %v, want kept", r.Title)
	}
	if r.Status() != ProductStatusFailed {
		t.Errorf("Status() = %q, want %q", r.Status(), ProductStatusFailed)
	}
}

func TestScrapeResult_JSONShape(t *testing.T) {
	r := NewScrapeResult("https://item.taobao.com/item.htm?id=1")
	r.Success = true

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if _, ok := decoded["error"]; ok {
		t.Error("error key present on successful result")
	}
	if thumbs, ok := decoded["thumbnails"].([]any); !ok || len(thumbs) != 0 {
		t.Errorf("thumbnails = %v, want empty array", decoded["thumbnails"])
	}
	if decoded["title"] != nil {
		t.Errorf("title = %v, want null", decoded["title"])
	}
}

func TestScrapeResult_PriceIsJSONNumber(t *testing.T) {
	r := NewScrapeResult("https://item.taobao.com/item.htm?id=1")
	price := decimal.RequireFromString("12.50")
	r.Price = &price

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(data), `"price":12.5`) {
		t.Errorf("Marshal() = %s, want unquoted price", data)
	}
	if strings.Count(string(data), `"price"`) != 1 {
		t.Errorf("Marshal() = %s, want a single price key", data)
	}
	if decimal.MarshalJSONWithoutQuotes {
		t.Error("decimal.MarshalJSONWithoutQuotes was changed globally")
	}

	var back ScrapeResult
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if back.Price == nil || !back.Price.Equal(price) {
		t.Errorf("round trip price = %v, want 12.5", back.Price)
	}
}

func TestScrapeResult_NilPriceIsNull(t *testing.T) {
	data, err := json.Marshal(NewScrapeResult("u"))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(data), `"price":null`) {
		t.Errorf("Marshal() = %s, want price null", data)
	}
}

func TestScrapeResult_Images(t *testing.T) {
	r := NewScrapeResult("u")
	r.Thumbnails = []string{"t0", "t1"}
	r.DetailImages = []string{"d0"}

	images := r.Images()
	want := []ProductImage{
		{Type: ImageTypeThumbnail, URL: "t0", SortOrder: 0},
		{Type: ImageTypeThumbnail, URL: "t1", SortOrder: 1},
		{Type: ImageTypeDetail, URL: "d0", SortOrder: 0},
	}
	if len(images) != len(want) {
		t.Fatalf("len(Images()) = %d, want %d", len(images), len(want))
	}
	for i := range want {
		if images[i] != want[i] {
			t.Errorf("Images()[%d] = %+v, want %+v", i, images[i], want[i])
		}
	}
}

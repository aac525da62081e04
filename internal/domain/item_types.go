package domain

type ImageType string

func (t ImageType) String() string {
	return string(t)
}

const (
	ImageTypeThumbnail ImageType = "thumbnail"
	ImageTypeDetail    ImageType = "detail"
)

type ProductStatus string

func (s ProductStatus) String() string {
	return string(s)
}

const (
	ProductStatusPending ProductStatus = "pending" // Queued, not crawled yet
	ProductStatusScraped ProductStatus = "scraped" // Crawl finished
	ProductStatusFailed  ProductStatus = "failed"  // Crawl attempt failed
)

// ProductImage is one persisted image slot of a product
type ProductImage struct {
	Type      ImageType `json:"image_type"`
	URL       string    `json:"original_url"`
	SortOrder int       `json:"sort_order"`
}

// Images flattens thumbnails and detail images into persisted slots,
// keeping extraction order within each type.
func (r *ScrapeResult) Images() []ProductImage {
	images := make([]ProductImage, 0, len(r.Thumbnails)+len(r.DetailImages))
	for i, url := range r.Thumbnails {
		images = append(images, ProductImage{Type: ImageTypeThumbnail, URL: url, SortOrder: i})
	}
	for i, url := range r.DetailImages {
		images = append(images, ProductImage{Type: ImageTypeDetail, URL: url, SortOrder: i})
	}
	return images
}

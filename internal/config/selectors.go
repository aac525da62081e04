package config

// Default selector strategies, highest priority first.
var (
	DefaultTitleSelectors = []string{
		`h1[class*="title"]`,
		`div[class*="tb-detail-hd"] h1`,
		`div[class*="ItemTitle"] h1`,
		`h3[class*="title"]`,
		`.tb-main-title`,
	}

	DefaultPriceSelectors = []string{
		`span[class*="priceText"]`,
		`em[class*="tb-rmb-num"]`,
		`span[class*="price"]`,
		`.tb-price`,
		`strong[class*="price"]`,
	}

	DefaultThumbnailSelectors = []string{
		`ul[class*="tb-thumb"] img`,
		`div[class*="gallery"] img`,
		`ul[id*="J_UlThumb"] img`,
	}

	DefaultDetailImageSelectors = []string{
		`div[class*="detail"] img`,
		`div[id*="description"] img`,
		`div[class*="desc"] img`,
	}
)

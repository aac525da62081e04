package extractor

import (
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// strategy is one compiled selector candidate for a field
type strategy struct {
	selector string
	matcher  cascadia.Selector
}

func compileStrategies(field string, selectors []string) ([]strategy, error) {
	if len(selectors) == 0 {
		return nil, fmt.Errorf("no selectors configured for %s", field)
	}

	strategies := make([]strategy, 0, len(selectors))
	for _, sel := range selectors {
		matcher, err := cascadia.Compile(sel)
		if err != nil {
			return nil, fmt.Errorf("invalid %s selector %q: %w", field, sel, err)
		}
		strategies = append(strategies, strategy{selector: sel, matcher: matcher})
	}
	return strategies, nil
}

// firstMatch returns the elements of the first strategy that matches anything.
// Lower-priority strategies are never consulted once one has matched.
func firstMatch(root *goquery.Selection, strategies []strategy) (*goquery.Selection, string, bool) {
	for _, s := range strategies {
		matched := root.FindMatcher(s.matcher)
		if matched.Length() > 0 {
			return matched, s.selector, true
		}
	}
	return nil, "", false
}

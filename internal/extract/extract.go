// Package extract implements the two link-harvesting methods used on a
// rendered page: a direct query of href-bearing elements in the HTML, and an
// in-page script that digs URLs out of places anchors never reach.
package extract

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Evaluator runs a script inside the page and returns the strings it
// produced. The crawler core never interprets page-context results beyond
// treating them as candidate URLs.
type Evaluator interface {
	EvalStrings(ctx context.Context, script string) ([]string, error)
}

// Anchors extracts candidate links from rendered HTML: every element carrying
// an href attribute, minus javascript:, mailto:, tel: and fragment-only
// links. Results are deduplicated in document order.
func Anchors(html string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	links := make([]string, 0)
	seen := make(map[string]struct{})

	doc.Find("[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		href = strings.TrimSpace(href)
		if !usableHref(href) {
			return
		}
		if _, dup := seen[href]; dup {
			return
		}
		seen[href] = struct{}{}
		links = append(links, href)
	})

	return links, nil
}

// usableHref rejects pseudo-links that never lead to a page.
func usableHref(href string) bool {
	if href == "" || strings.HasPrefix(href, "#") {
		return false
	}
	for _, scheme := range []string{"javascript:", "mailto:", "tel:"} {
		if strings.HasPrefix(strings.ToLower(href), scheme) {
			return false
		}
	}
	return true
}

// harvestScript collects URLs hiding outside anchor hrefs: href-like
// attributes on arbitrary elements, window.location assignments in inline
// handlers, and absolute URLs stashed in data-attributes. Sites hide
// navigation behind all of these.
const harvestScript = `() => {
	const found = new Set();

	document.querySelectorAll('[href]').forEach(el => {
		const href = el.href || el.getAttribute('href');
		if (href && !href.startsWith('javascript:') &&
			!href.startsWith('mailto:') && !href.startsWith('tel:') &&
			!href.startsWith('#')) {
			found.add(href);
		}
	});

	document.querySelectorAll('*').forEach(el => {
		if (el.onclick) {
			const text = el.onclick.toString();
			const matches = text.match(/window\.location\.href\s*=\s*['"]([^'"]+)['"]/g);
			if (matches) {
				matches.forEach(m => {
					const url = m.replace(/window\.location\.href\s*=\s*['"]/g, '').replace(/['"]$/, '');
					if (url) found.add(url);
				});
			}
		}
		if (el.dataset) {
			Object.values(el.dataset).forEach(value => {
				if (value && value.startsWith('http')) {
					found.add(value);
				}
			});
		}
	});

	return Array.from(found);
}`

// HiddenLinks runs the in-page harvest through the supplied evaluator.
// Callers treat an error here as a degraded visit, not a failed one.
func HiddenLinks(ctx context.Context, ev Evaluator) ([]string, error) {
	return ev.EvalStrings(ctx, harvestScript)
}

// Union merges the results of both methods, preserving first-seen order.
func Union(groups ...[]string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, group := range groups {
		for _, link := range group {
			if _, dup := seen[link]; dup {
				continue
			}
			seen[link] = struct{}{}
			out = append(out, link)
		}
	}
	return out
}

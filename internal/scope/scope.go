// Package scope provides URL normalization and scope checking for the crawler.
package scope

import (
	"net/url"
	"strings"
)

// skipExtensions lists path suffixes for binary and media resources that are
// never worth a page visit.
var skipExtensions = []string{
	".jpg", ".jpeg", ".png", ".gif", ".ico", ".svg", ".webp",
	".css", ".js", ".woff", ".woff2", ".ttf", ".eot",
	".pdf", ".zip", ".tar", ".gz", ".rar",
	".mp3", ".mp4", ".wav", ".avi", ".mov",
	".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx",
}

// keepParams lists query parameter keys that survive normalization. All other
// parameters are dropped so tracking noise cannot split one page into many
// frontier entries.
var keepParams = []string{"id", "page", "category", "p"}

// Filter restricts a crawl to a single site host.
type Filter struct {
	site string
}

// NewFilter creates a filter bound to a site host, e.g. "example.com".
// A leading "www." on the configured host is stripped so both forms of the
// site are treated as one.
func NewFilter(site string) *Filter {
	return &Filter{site: strings.TrimPrefix(strings.ToLower(site), "www.")}
}

// Site returns the host the filter is bound to.
func (f *Filter) Site() string {
	return f.site
}

// Normalize resolves rawURL against baseURL and reduces it to canonical form.
// It returns ok=false when the link is out of scope: foreign host, non-HTTP
// scheme, or a binary/media resource.
func (f *Filter) Normalize(rawURL, baseURL string) (string, bool) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return "", false
	}

	ref, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", false
	}

	resolved := base.ResolveReference(ref)

	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", false
	}

	host := strings.ToLower(resolved.Hostname())
	if host != f.site && host != "www."+f.site {
		return "", false
	}

	path := strings.ToLower(resolved.Path)
	for _, ext := range skipExtensions {
		if strings.HasSuffix(path, ext) {
			return "", false
		}
	}

	normalized := resolved.Scheme + "://" + strings.ToLower(resolved.Host) + resolved.Path
	normalized = strings.TrimSuffix(normalized, "/")

	if resolved.RawQuery != "" {
		if q := filterQuery(resolved.RawQuery); q != "" {
			normalized += "?" + q
		}
	}

	return normalized, true
}

// filterQuery keeps only allowlisted parameters, preserving their original
// order. The raw query is split by hand rather than through url.Values so the
// ordering survives.
func filterQuery(rawQuery string) string {
	var kept []string
	for _, pair := range strings.Split(rawQuery, "&") {
		key := pair
		if idx := strings.Index(pair, "="); idx != -1 {
			key = pair[:idx]
		}
		for _, allowed := range keepParams {
			if key == allowed {
				kept = append(kept, pair)
				break
			}
		}
	}
	return strings.Join(kept, "&")
}

// NormalizeAll maps Normalize over a batch of raw links and returns the
// unique in-scope canonical forms.
func (f *Filter) NormalizeAll(rawURLs []string, baseURL string) []string {
	seen := make(map[string]struct{}, len(rawURLs))
	out := make([]string, 0, len(rawURLs))

	for _, raw := range rawURLs {
		normalized, ok := f.Normalize(raw, baseURL)
		if !ok {
			continue
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}

	return out
}

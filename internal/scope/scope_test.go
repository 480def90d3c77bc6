package scope

import (
	"reflect"
	"testing"
)

func TestFilter_Normalize(t *testing.T) {
	tests := []struct {
		name    string
		site    string
		raw     string
		base    string
		want    string
		wantOK  bool
	}{
		{
			name:   "relative link resolved against base",
			site:   "example.com",
			raw:    "/health/topics",
			base:   "https://example.com/directory",
			want:   "https://example.com/health/topics",
			wantOK: true,
		},
		{
			name:   "trailing slash stripped",
			site:   "example.com",
			raw:    "https://example.com/health/topics/",
			base:   "https://example.com",
			want:   "https://example.com/health/topics",
			wantOK: true,
		},
		{
			name:   "www host accepted",
			site:   "example.com",
			raw:    "https://www.example.com/page",
			base:   "https://example.com",
			want:   "https://www.example.com/page",
			wantOK: true,
		},
		{
			name:   "www in configured site",
			site:   "www.example.com",
			raw:    "https://example.com/page",
			base:   "https://example.com",
			want:   "https://example.com/page",
			wantOK: true,
		},
		{
			name:   "foreign host rejected",
			site:   "example.com",
			raw:    "https://other.com/page",
			base:   "https://example.com",
			wantOK: false,
		},
		{
			name:   "subdomain rejected",
			site:   "example.com",
			raw:    "https://blog.example.com/page",
			base:   "https://example.com",
			wantOK: false,
		},
		{
			name:   "image rejected",
			site:   "example.com",
			raw:    "https://example.com/image.jpg",
			base:   "https://example.com",
			wantOK: false,
		},
		{
			name:   "pdf rejected",
			site:   "example.com",
			raw:    "/docs/report.PDF",
			base:   "https://example.com",
			wantOK: false,
		},
		{
			name:   "mailto rejected",
			site:   "example.com",
			raw:    "mailto:someone@example.com",
			base:   "https://example.com",
			wantOK: false,
		},
		{
			name:   "allowlisted params kept in original order",
			site:   "example.com",
			raw:    "https://example.com/list?page=2&utm_source=x&id=7",
			base:   "https://example.com",
			want:   "https://example.com/list?page=2&id=7",
			wantOK: true,
		},
		{
			name:   "tracking params dropped entirely",
			site:   "example.com",
			raw:    "https://example.com/list?utm_source=x&ref=home",
			base:   "https://example.com",
			want:   "https://example.com/list",
			wantOK: true,
		},
		{
			name:   "fragment stripped",
			site:   "example.com",
			raw:    "https://example.com/page#section-2",
			base:   "https://example.com",
			want:   "https://example.com/page",
			wantOK: true,
		},
		{
			name:   "invalid URL rejected",
			site:   "example.com",
			raw:    "http://[::1]:namedport",
			base:   "https://example.com",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFilter(tt.site)
			got, ok := f.Normalize(tt.raw, tt.base)
			if ok != tt.wantOK {
				t.Fatalf("Normalize() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("Normalize() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFilter_Normalize_Idempotent(t *testing.T) {
	f := NewFilter("example.com")

	inputs := []string{
		"https://example.com/health/topics/",
		"https://www.example.com/list?page=2&utm_source=x&id=7",
		"/nutrition/vitamins",
		"https://example.com/page#frag",
	}

	for _, raw := range inputs {
		once, ok := f.Normalize(raw, "https://example.com")
		if !ok {
			t.Fatalf("Normalize(%q) unexpectedly out of scope", raw)
		}
		twice, ok := f.Normalize(once, "https://example.com")
		if !ok {
			t.Fatalf("Normalize(%q) rejected its own output", once)
		}
		if once != twice {
			t.Errorf("not idempotent: %q -> %q -> %q", raw, once, twice)
		}
	}
}

func TestFilter_Normalize_TrailingSlashEquivalence(t *testing.T) {
	f := NewFilter("example.com")

	a, _ := f.Normalize("https://example.com/health/topics/", "https://example.com")
	b, _ := f.Normalize("https://example.com/health/topics", "https://example.com")

	if a != b {
		t.Errorf("slash forms differ: %q vs %q", a, b)
	}
	if a != "https://example.com/health/topics" {
		t.Errorf("canonical form = %q", a)
	}
}

func TestFilter_NormalizeAll(t *testing.T) {
	f := NewFilter("example.com")

	raw := []string{
		"/a",
		"/a/",                          // duplicate after normalization
		"https://other.com/page",       // out of scope
		"https://example.com/image.jpg", // binary
		"/b?page=1",
	}

	got := f.NormalizeAll(raw, "https://example.com")
	want := []string{
		"https://example.com/a",
		"https://example.com/b?page=1",
	}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("NormalizeAll() = %v, want %v", got, want)
	}
}

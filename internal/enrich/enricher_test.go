package enrich

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const ogPage = `<!doctype html>
<html><head>
<title>Plain Title</title>
<meta name="description" content="Plain description">
<meta property="og:title" content="OG Title">
<meta property="og:description" content="OG description">
<meta property="og:image" content="/img/cover.png">
<meta property="og:image:alt" content="A cover">
<meta property="og:site_name" content="Example Site">
<meta name="twitter:title" content="Twitter Title">
</head><body><h1>Heading</h1></body></html>`

const twitterPage = `<html><head>
<title>Plain Title</title>
<meta name="twitter:title" content="Twitter Title">
<meta name="twitter:description" content="Twitter description">
<meta name="twitter:image" content="https://cdn.example.com/t.png">
<meta name="twitter:site" content="@example">
</head><body></body></html>`

const plainPage = `<html><head>
<title>
  Plain   Title
</title>
<meta name="description" content="Plain description">
<link rel="image_src" href="thumb.jpg">
</head><body><svg><title>icon</title></svg></body></html>`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/og", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(ogPage))
	})
	mux.HandleFunc("/twitter", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(twitterPage))
	})
	mux.HandleFunc("/plain/page", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(plainPage))
	})
	mux.HandleFunc("/empty", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body>nothing here</body></html>`))
	})
	mux.HandleFunc("/redirect", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/og", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"title":"nope"}`))
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	mux.HandleFunc("/latin1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		_, _ = w.Write([]byte("<html><head><title>Caf\xe9</title></head></html>"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func deref(s *string) string {
	if s == nil {
		return "<nil>"
	}
	return *s
}

func TestFetchMetadata_PriorityOrder(t *testing.T) {
	srv := newTestServer(t)
	f := NewFetcher(Config{Timeout: time.Second})

	tests := []struct {
		path        string
		title       string
		description string
		image       string
		imageAlt    string
		siteName    string
	}{
		{"/og", "OG Title", "OG description", srv.URL + "/img/cover.png", "A cover", "Example Site"},
		{"/twitter", "Twitter Title", "Twitter description", "https://cdn.example.com/t.png", "<nil>", "@example"},
		{"/plain/page", "Plain Title", "Plain description", srv.URL + "/plain/thumb.jpg", "<nil>", "<nil>"},
		{"/empty", "<nil>", "<nil>", "<nil>", "<nil>", "<nil>"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			res := f.FetchMetadata(context.Background(), srv.URL+tt.path)
			if res.Error != nil {
				t.Fatalf("unexpected error %v", res.Error)
			}
			if got := deref(res.Title); got != tt.title {
				t.Errorf("Title = %q, want %q", got, tt.title)
			}
			if got := deref(res.Description); got != tt.description {
				t.Errorf("Description = %q, want %q", got, tt.description)
			}
			if got := deref(res.Image); got != tt.image {
				t.Errorf("Image = %q, want %q", got, tt.image)
			}
			if got := deref(res.ImageAlt); got != tt.imageAlt {
				t.Errorf("ImageAlt = %q, want %q", got, tt.imageAlt)
			}
			if got := deref(res.SiteName); got != tt.siteName {
				t.Errorf("SiteName = %q, want %q", got, tt.siteName)
			}
			if res.ResolvedURL != srv.URL+tt.path {
				t.Errorf("ResolvedURL = %q, want input URL", res.ResolvedURL)
			}
		})
	}
}

func TestFetchMetadata_FollowsRedirects(t *testing.T) {
	srv := newTestServer(t)
	res := NewFetcher(Config{Timeout: time.Second}).FetchMetadata(context.Background(), srv.URL+"/redirect")

	if res.Error != nil {
		t.Fatalf("unexpected error %v", res.Error)
	}
	if res.ResolvedURL != srv.URL+"/og" {
		t.Errorf("ResolvedURL = %q, want %q", res.ResolvedURL, srv.URL+"/og")
	}
	if deref(res.Title) != "OG Title" {
		t.Errorf("Title = %q", deref(res.Title))
	}
}

func TestFetchMetadata_DecodesCharset(t *testing.T) {
	srv := newTestServer(t)
	res := NewFetcher(Config{Timeout: time.Second}).FetchMetadata(context.Background(), srv.URL+"/latin1")

	if deref(res.Title) != "Café" {
		t.Errorf("Title = %q, want Café", deref(res.Title))
	}
}

func TestFetchMetadata_Failures(t *testing.T) {
	srv := newTestServer(t)
	f := NewFetcher(Config{Timeout: 200 * time.Millisecond})

	tests := []struct {
		name string
		url  string
		code string
	}{
		{"malformed", "not-a-url", CodeInvalidURL},
		{"ftp scheme", "ftp://example.com/file", CodeInvalidURL},
		{"empty", "", CodeInvalidURL},
		{"not found", srv.URL + "/missing", CodeHTTPStatus},
		{"json", srv.URL + "/json", CodeUnsupportedContent},
		{"timeout", srv.URL + "/slow", CodeTimeout},
		{"unreachable", "http://127.0.0.1:1/", CodeFetchFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := f.FetchMetadata(context.Background(), tt.url)
			if res == nil {
				t.Fatal("FetchMetadata must always return a result")
			}
			if res.Error == nil || res.Error.Code != tt.code {
				t.Fatalf("Error = %+v, want code %s", res.Error, tt.code)
			}
			if res.Title != nil || res.Description != nil || res.Image != nil || res.SiteName != nil || res.ImageAlt != nil {
				t.Errorf("content fields must be nil on failure: %+v", res)
			}
			if res.ResolvedURL != tt.url {
				t.Errorf("ResolvedURL = %q, want input %q", res.ResolvedURL, tt.url)
			}
		})
	}
}

func TestFetchMetadata_BodyCap(t *testing.T) {
	page := "<html><head><title>Early</title></head><body>" + strings.Repeat("x", 4096) +
		`<meta property="og:title" content="Late"></body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	res := NewFetcher(Config{Timeout: time.Second, MaxBodyBytes: 1024}).FetchMetadata(context.Background(), srv.URL)
	if deref(res.Title) != "Early" {
		t.Errorf("tags past the body cap should be ignored, got %q", deref(res.Title))
	}
}

func TestIsValidURL(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"https://example.com", true},
		{"http://example.com/path?q=1", true},
		{"  https://example.com  ", true},
		{"ftp://example.com", false},
		{"mailto:me@example.com", false},
		{"example.com", false},
		{"/relative", false},
		{"https://", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsValidURL(tt.in); got != tt.want {
			t.Errorf("IsValidURL(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// Package enrich fetches page-level metadata (title, description, image, site name)
// for a bookmark URL. Enrichment never fails from the caller's point of view: every
// failure is reported in Result.Error and the content fields are left nil.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"github.com/MrSnakeDoc/canon/internal/domain"
	"github.com/MrSnakeDoc/canon/internal/utils"
)

// Error codes carried in Result.Error.Code.
const (
	CodeInvalidURL         = "invalid_url"
	CodeTimeout            = "timeout"
	CodeFetchFailed        = "fetch_failed"
	CodeHTTPStatus         = "http_status"
	CodeUnsupportedContent = "unsupported_content"
	CodeParseFailed        = "parse_failed"
)

const (
	DefaultTimeout      = 10 * time.Second
	DefaultMaxBodyBytes = 1 << 20
	DefaultUserAgent    = "Mozilla/5.0 (compatible; canon/1.0; +bookmark-metadata)"
)

// Result is the outcome of one enrichment attempt.
type Result struct {
	Title       *string                 `json:"title"`
	Description *string                 `json:"description"`
	Image       *string                 `json:"image"`
	ImageAlt    *string                 `json:"image_alt,omitempty"`
	SiteName    *string                 `json:"site_name"`
	ResolvedURL string                  `json:"resolved_url"`
	Error       *domain.EnrichmentError `json:"error"`
}

// Enricher returns page metadata for a URL. Implementations must always return a
// non-nil Result.
type Enricher interface {
	FetchMetadata(ctx context.Context, rawURL string) *Result
}

// Config controls the HTTP fetch.
type Config struct {
	Timeout      time.Duration
	MaxBodyBytes int64
	UserAgent    string
}

// DefaultConfig returns the fetch settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Timeout:      DefaultTimeout,
		MaxBodyBytes: DefaultMaxBodyBytes,
		UserAgent:    DefaultUserAgent,
	}
}

// Fetcher scrapes Open Graph, Twitter card and plain HTML metadata.
type Fetcher struct {
	cfg        Config
	httpClient *http.Client
}

// NewFetcher builds a Fetcher whose transport propagates trace context.
func NewFetcher(cfg Config) *Fetcher {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = def.MaxBodyBytes
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}

	return &Fetcher{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// IsValidURL reports whether raw is an absolute http or https URL.
func IsValidURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// FetchMetadata implements Enricher.
func (f *Fetcher) FetchMetadata(ctx context.Context, rawURL string) *Result {
	if !IsValidURL(rawURL) {
		return failed(rawURL, CodeInvalidURL, "URL must be an absolute http or https URL")
	}

	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSpace(rawURL), nil)
	if err != nil {
		return failed(rawURL, CodeInvalidURL, fmt.Sprintf("failed to create request: %v", err))
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return failed(rawURL, CodeTimeout, fmt.Sprintf("request timed out after %v", f.cfg.Timeout))
		}
		return failed(rawURL, CodeFetchFailed, fmt.Sprintf("failed to fetch URL: %v", err))
	}
	defer utils.Close(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return failed(rawURL, CodeHTTPStatus, fmt.Sprintf("HTTP error: %s", resp.Status))
	}

	contentType := resp.Header.Get("Content-Type")
	if !isHTML(contentType) {
		return failed(rawURL, CodeUnsupportedContent, fmt.Sprintf("unsupported content type %q", contentType))
	}

	body, err := charset.NewReader(io.LimitReader(resp.Body, f.cfg.MaxBodyBytes), contentType)
	if err != nil {
		return failed(rawURL, CodeParseFailed, fmt.Sprintf("failed to decode body: %v", err))
	}

	doc, err := html.Parse(body)
	if err != nil {
		if isTimeout(err) {
			return failed(rawURL, CodeTimeout, fmt.Sprintf("body read timed out after %v", f.cfg.Timeout))
		}
		return failed(rawURL, CodeParseFailed, fmt.Sprintf("failed to parse HTML: %v", err))
	}

	final := resp.Request.URL
	res := extract(doc, final)
	res.ResolvedURL = final.String()
	if !IsValidURL(res.ResolvedURL) {
		res.ResolvedURL = rawURL
	}
	return res
}

func failed(rawURL, code, msg string) *Result {
	return &Result{
		ResolvedURL: rawURL,
		Error:       &domain.EnrichmentError{Message: msg, Code: code},
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// isHTML accepts HTML and XHTML. A missing Content-Type is given the benefit of the doubt.
func isHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

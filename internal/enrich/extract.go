package enrich

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/MrSnakeDoc/canon/internal/validation"
)

// pageTags collects every metadata source found in a document.
type pageTags struct {
	og        map[string]string
	twitter   map[string]string
	htmlTitle string
	metaDesc  string
	imageSrc  string
}

// extract walks the document once and applies the priority order
// Open Graph > Twitter card > plain HTML for each field.
func extract(doc *html.Node, base *url.URL) *Result {
	tags := pageTags{og: map[string]string{}, twitter: map[string]string{}}
	collect(doc, &tags)

	title := first(tags.og["og:title"], tags.twitter["twitter:title"], tags.htmlTitle)
	description := first(tags.og["og:description"], tags.twitter["twitter:description"], tags.metaDesc)
	image := first(
		tags.og["og:image"], tags.og["og:image:url"], tags.og["og:image:secure_url"],
		tags.twitter["twitter:image"], tags.twitter["twitter:image:src"],
		tags.imageSrc,
	)
	imageAlt := first(tags.og["og:image:alt"], tags.twitter["twitter:image:alt"])
	siteName := first(tags.og["og:site_name"], tags.twitter["twitter:site"])

	return &Result{
		Title:       clip(title, validation.MaxTitleLength),
		Description: clip(description, validation.MaxDescriptionLength),
		Image:       absolute(base, image),
		ImageAlt:    clip(imageAlt, validation.MaxImageAltLength),
		SiteName:    clip(siteName, validation.MaxSiteNameLength),
	}
}

func collect(n *html.Node, tags *pageTags) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "meta":
			var property, name, content string
			for _, attr := range n.Attr {
				switch strings.ToLower(attr.Key) {
				case "property":
					property = strings.ToLower(strings.TrimSpace(attr.Val))
				case "name":
					name = strings.ToLower(strings.TrimSpace(attr.Val))
				case "content":
					content = strings.TrimSpace(attr.Val)
				}
			}
			if content == "" {
				break
			}
			// Sites use property= and name= interchangeably for both vocabularies.
			for _, key := range []string{property, name} {
				switch {
				case strings.HasPrefix(key, "og:"):
					setOnce(tags.og, key, content)
				case strings.HasPrefix(key, "twitter:"):
					setOnce(tags.twitter, key, content)
				case key == "description" && tags.metaDesc == "":
					tags.metaDesc = content
				}
			}
		case "title":
			if tags.htmlTitle == "" {
				tags.htmlTitle = strings.TrimSpace(textOf(n))
			}
		case "link":
			var rel, href string
			for _, attr := range n.Attr {
				switch strings.ToLower(attr.Key) {
				case "rel":
					rel = strings.ToLower(attr.Val)
				case "href":
					href = strings.TrimSpace(attr.Val)
				}
			}
			if rel == "image_src" && href != "" && tags.imageSrc == "" {
				tags.imageSrc = href
			}
		case "svg", "script", "style":
			// <title> inside inline SVG is not the page title.
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collect(c, tags)
	}
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}

func setOnce(m map[string]string, key, value string) {
	if _, ok := m[key]; !ok {
		m[key] = value
	}
}

func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// clip returns nil for an empty value and truncates to limit code points.
func clip(s string, limit int) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if utf8.RuneCountInString(s) > limit {
		s = string([]rune(s)[:limit])
	}
	return &s
}

// absolute resolves href against base. Anything that does not end up as an
// http(s) URL within the length limit is dropped.
func absolute(base *url.URL, href string) *string {
	if href == "" {
		return nil
	}
	ref, err := url.Parse(href)
	if err != nil {
		return nil
	}
	resolved := ref
	if base != nil {
		resolved = base.ResolveReference(ref)
	}
	s := resolved.String()
	if !IsValidURL(s) || utf8.RuneCountInString(s) > validation.MaxURLLength {
		return nil
	}
	return &s
}

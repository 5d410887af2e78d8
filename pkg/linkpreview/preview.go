// Package linkpreview extracts title, description and thumbnail metadata from web pages.
package linkpreview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// Kind classifies a URL by the site family it belongs to.
type Kind string

const (
	KindYoutube   Kind = "youtube"
	KindWikipedia Kind = "wikipedia"
	KindOther     Kind = "other"
)

// ErrUnsupportedURL is returned for anything other than absolute http(s) URLs.
var ErrUnsupportedURL = errors.New("url must be absolute http or https")

// Preview holds the extracted metadata. Missing values stay nil.
type Preview struct {
	URL         string  `json:"url"`
	Kind        Kind    `json:"kind"`
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Thumbnail   *string `json:"thumbnail,omitempty"`
}

// Classify maps a raw URL to its Kind.
func Classify(raw string) Kind {
	switch {
	case strings.Contains(raw, "youtube.com") || strings.Contains(raw, "youtu.be"):
		return KindYoutube
	case strings.Contains(raw, "wikipedia"):
		return KindWikipedia
	default:
		return KindOther
	}
}

// Fetcher downloads pages and extracts previews.
type Fetcher struct {
	client  *http.Client
	maxBody int64
}

// NewFetcher builds a Fetcher with a request timeout and a body size cap.
func NewFetcher(timeout time.Duration, maxBody int64) *Fetcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if maxBody <= 0 {
		maxBody = 1 << 20
	}
	return &Fetcher{client: &http.Client{Timeout: timeout}, maxBody: maxBody}
}

// Fetch retrieves raw and returns its preview.
func (f *Fetcher) Fetch(ctx context.Context, raw string) (*Preview, error) {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, ErrUnsupportedURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build preview request: %w", err)
	}
	req.Header.Set("User-Agent", "classroom-link-preview/1.0")
	req.Header.Set("Accept", "text/html")

	res, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", u.Host, err)
	}
	defer res.Body.Close() //nolint:errcheck

	if res.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("fetch %s: status %d", u.Host, res.StatusCode)
	}

	return Parse(raw, io.LimitReader(res.Body, f.maxBody))
}

// Parse extracts metadata from an HTML document according to the URL's kind.
func Parse(raw string, body io.Reader) (*Preview, error) {
	doc, err := html.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	m := collect(doc)
	p := &Preview{URL: raw, Kind: Classify(raw)}

	switch p.Kind {
	case KindYoutube:
		p.Title = m.get("og:title")
		p.Description = m.get("og:description")
		p.Thumbnail = m.get("og:image")
	case KindWikipedia:
		p.Title = m.get("og:title")
	default:
		p.Title = m.title
		p.Description = m.get("og:description")
		if p.Description == nil {
			p.Description = m.get("description")
		}
		p.Thumbnail = m.get("og:image")
	}
	return p, nil
}

type meta struct {
	title *string
	props map[string]string
}

func (m meta) get(key string) *string {
	if v, ok := m.props[key]; ok && v != "" {
		return &v
	}
	return nil
}

func collect(doc *html.Node) meta {
	m := meta{props: make(map[string]string)}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if m.title == nil && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					t := strings.TrimSpace(n.FirstChild.Data)
					if t != "" {
						m.title = &t
					}
				}
			case "meta":
				var key, content string
				for _, a := range n.Attr {
					switch strings.ToLower(a.Key) {
					case "property", "name":
						if key == "" {
							key = strings.ToLower(a.Val)
						}
					case "content":
						content = strings.TrimSpace(a.Val)
					}
				}
				if _, seen := m.props[key]; key != "" && !seen {
					m.props[key] = content
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return m
}

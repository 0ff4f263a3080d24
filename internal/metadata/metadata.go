package metadata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"veracity/internal/metrics"
)

// ErrFetch marks every metadata fetch failure. It only ever travels inside
// PageMetadata.Error; Fetch itself never returns an error.
var ErrFetch = errors.New("metadata fetch failed")

const inaccessibleReason = "Could not access URL or extract metadata"

// maxBody caps how much of a page is parsed.
const maxBody = 2 << 20

// PageMetadata is what a page says about itself. Accessible=false carries
// Error and Reason instead of fields.
type PageMetadata struct {
	Accessible  bool   `json:"accessible"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Author      string `json:"author,omitempty"`
	PublishDate string `json:"publish_date,omitempty"`
	SiteName    string `json:"site_name,omitempty"`
	Image       string `json:"image,omitempty"`
	Error       string `json:"error,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// Inaccessible builds the failure value for err.
func Inaccessible(err error) PageMetadata {
	return PageMetadata{Accessible: false, Error: err.Error(), Reason: inaccessibleReason}
}

// Fetcher retrieves page metadata for a URL. Failures are values, not errors.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) PageMetadata
}

// HTTPFetcher GETs the page and reads its <title> and <meta> tags.
type HTTPFetcher struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
}

func NewHTTPFetcher(client *http.Client, timeout time.Duration, userAgent string) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFetcher{client: client, timeout: timeout, userAgent: userAgent}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) PageMetadata {
	md, err := f.fetch(ctx, rawURL)
	if err != nil {
		log.WithField("url", rawURL).Debugf("Metadata fetch failed: %v", err)
		md = Inaccessible(fmt.Errorf("%w: %v", ErrFetch, err))
	}
	metrics.MetadataFetches.WithLabelValues(fmt.Sprint(md.Accessible)).Inc()
	return md
}

func (f *HTTPFetcher) fetch(ctx context.Context, rawURL string) (PageMetadata, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return PageMetadata{}, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return PageMetadata{}, fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return PageMetadata{}, err
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return PageMetadata{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return PageMetadata{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return PageMetadata{}, fmt.Errorf("parse html: %w", err)
	}
	return Extract(doc), nil
}

// Extract reads metadata from a parsed document. <title> wins over og:title,
// name=description over og:description.
func Extract(doc *html.Node) PageMetadata {
	meta := make(map[string]string)
	collectMeta(doc, meta)

	md := PageMetadata{
		Accessible:  true,
		Title:       findTitle(doc),
		Description: meta["description"],
		Author:      meta["author"],
		PublishDate: meta["article:published_time"],
		SiteName:    meta["og:site_name"],
		Image:       meta["og:image"],
	}
	if md.Title == "" {
		md.Title = meta["og:title"]
	}
	if md.Description == "" {
		md.Description = meta["og:description"]
	}
	return md
}

// findTitle extracts the <title> text.
func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.DataAtom == atom.Title {
		if n.FirstChild != nil {
			return strings.TrimSpace(n.FirstChild.Data)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

// collectMeta records the first content value per name/property key.
func collectMeta(n *html.Node, out map[string]string) {
	if n.Type == html.ElementNode && n.DataAtom == atom.Meta {
		var key, content string
		for _, a := range n.Attr {
			switch strings.ToLower(a.Key) {
			case "name", "property":
				if key == "" {
					key = strings.ToLower(strings.TrimSpace(a.Val))
				}
			case "content":
				content = strings.TrimSpace(a.Val)
			}
		}
		if key != "" && content != "" {
			if _, seen := out[key]; !seen {
				out[key] = content
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectMeta(c, out)
	}
}

// Static returns a fixed result. Useful when metadata was fetched elsewhere.
type Static PageMetadata

func (s Static) Fetch(ctx context.Context, rawURL string) PageMetadata { return PageMetadata(s) }

var _ Fetcher = (*HTTPFetcher)(nil)

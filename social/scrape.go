package social

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mohitkumar/canvasflow/tier"
	"golang.org/x/net/html"
)

const DEFAULT_SCRAPE_TIMEOUT = 12 * time.Second

const METHOD_SCRAPE = "scrape"

const scrapeUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

var referers = map[Platform]string{
	PLATFORM_INSTAGRAM: "https://www.instagram.com/",
	PLATFORM_LINKEDIN:  "https://www.linkedin.com/",
}

var _ tier.Tier[Request, *Post] = new(ScrapeTier)

// ScrapeTier reads the Open Graph tags of the public post page.
type ScrapeTier struct {
	timeout    time.Duration
	httpClient *http.Client
}

func NewScrapeTier(timeout time.Duration) *ScrapeTier {
	if timeout <= 0 {
		timeout = DEFAULT_SCRAPE_TIMEOUT
	}
	return &ScrapeTier{
		timeout:    timeout,
		httpClient: &http.Client{},
	}
}

func (s *ScrapeTier) Name() string {
	return METHOD_SCRAPE
}

func (s *ScrapeTier) Available() bool {
	return true
}

// ParseOpenGraph returns the og:* meta properties of an HTML document. The
// first occurrence of a property wins.
func ParseOpenGraph(r io.Reader) (map[string]string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	tags := map[string]string{}
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "meta" {
			var key, content string
			for _, a := range n.Attr {
				switch a.Key {
				case "property", "name":
					if strings.HasPrefix(a.Val, "og:") {
						key = a.Val
					}
				case "content":
					content = strings.TrimSpace(a.Val)
				}
			}
			if _, seen := tags[key]; key != "" && content != "" && !seen {
				tags[key] = content
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return tags, nil
}

func (s *ScrapeTier) Attempt(ctx context.Context, req Request) (*Post, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("User-Agent", scrapeUserAgent)
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml")
	httpReq.Header.Set("Accept-Language", "en-US,en;q=0.9")
	if ref, ok := referers[req.Platform]; ok {
		httpReq.Header.Set("Referer", ref)
	}
	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("post page returned status %d", resp.StatusCode)
	}
	og, err := ParseOpenGraph(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("parsing post page: %w", err)
	}
	video := og["og:video:secure_url"]
	if video == "" {
		video = og["og:video"]
	}
	raw := map[string]any{
		"url":        req.URL,
		"title":      og["og:title"],
		"caption":    og["og:description"],
		"displayUrl": og["og:image"],
		"videoUrl":   video,
	}
	post, err := Normalize(raw)
	if err != nil {
		return nil, err
	}
	post.Platform = req.Platform
	return post, nil
}

package webpage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mohitkumar/canvasflow/retry"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const DEFAULT_TIMEOUT = 20 * time.Second

// MaxContentLength caps the extracted text in runes.
const MaxContentLength = 100000

const userAgent = "Mozilla/5.0 (compatible; canvasflow/1.0; +https://github.com/mohitkumar/canvasflow)"

type Page struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

type Fetcher struct {
	httpClient *http.Client
	policy     retry.Policy
}

func NewFetcher(timeout time.Duration, policy retry.Policy) *Fetcher {
	if timeout <= 0 {
		timeout = DEFAULT_TIMEOUT
	}
	return &Fetcher{
		httpClient: &http.Client{},
		policy:     policy.WithAttemptTimeout(timeout),
	}
}

func (f *Fetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	return retry.DoValue(ctx, "webpage fetch", f.policy, func(ctx context.Context) (*Page, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, retry.Permanent(err)
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept", "text/html,application/xhtml+xml")
		resp, err := f.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return nil, retry.Permanent(fmt.Errorf("page returned status %d", resp.StatusCode))
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("page returned status %d", resp.StatusCode)
		}
		page, err := Extract(io.LimitReader(resp.Body, 8<<20))
		if err != nil {
			return nil, retry.Permanent(err)
		}
		page.URL = url
		return page, nil
	})
}

var skipped = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Nav:      true,
	atom.Footer:   true,
	atom.Svg:      true,
	atom.Template: true,
	atom.Iframe:   true,
}

var blocks = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Li: true, atom.Section: true, atom.Article: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Tr: true, atom.Blockquote: true, atom.Pre: true,
}

// Extract returns the title and the readable text of an HTML document.
func Extract(r io.Reader) (*Page, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing page: %w", err)
	}
	page := &Page{}
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if skipped[n.DataAtom] {
				return
			}
			if n.DataAtom == atom.Title {
				if page.Title == "" && n.FirstChild != nil {
					page.Title = strings.TrimSpace(n.FirstChild.Data)
				}
				return
			}
			if n.DataAtom == atom.Head {
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					if c.DataAtom == atom.Title {
						walk(c)
					}
				}
				return
			}
		}
		if n.Type == html.TextNode {
			if text := strings.Join(strings.Fields(n.Data), " "); text != "" {
				b.WriteString(text)
				b.WriteString(" ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blocks[n.DataAtom] {
			b.WriteString("\n")
		}
	}
	walk(doc)

	var lines []string
	for _, line := range strings.Split(b.String(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	content := strings.Join(lines, "\n")
	if utf8.RuneCountInString(content) > MaxContentLength {
		content = string([]rune(content)[:MaxContentLength])
	}
	page.Content = content
	return page, nil
}

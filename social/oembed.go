package social

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/mohitkumar/canvasflow/tier"
)

const DEFAULT_OEMBED_TIMEOUT = 8 * time.Second

const DEFAULT_INSTAGRAM_OEMBED_URL = "https://graph.facebook.com/v18.0/instagram_oembed"
const DEFAULT_LINKEDIN_OEMBED_URL = "https://www.linkedin.com/oembed"

const METHOD_OEMBED = "oembed"

// Request is the input of every social fetch tier.
type Request struct {
	URL      string
	Platform Platform
}

var _ tier.Tier[Request, *Post] = new(OEmbedTier)

type OEmbedTier struct {
	endpoint    string
	accessToken string
	needsToken  bool
	timeout     time.Duration
	httpClient  *http.Client
}

// NewInstagramOEmbedTier uses the Graph oEmbed endpoint, which requires an
// access token.
func NewInstagramOEmbedTier(endpoint string, accessToken string, timeout time.Duration) *OEmbedTier {
	if endpoint == "" {
		endpoint = DEFAULT_INSTAGRAM_OEMBED_URL
	}
	return newOEmbedTier(endpoint, accessToken, true, timeout)
}

func NewLinkedInOEmbedTier(endpoint string, timeout time.Duration) *OEmbedTier {
	if endpoint == "" {
		endpoint = DEFAULT_LINKEDIN_OEMBED_URL
	}
	return newOEmbedTier(endpoint, "", false, timeout)
}

func newOEmbedTier(endpoint string, accessToken string, needsToken bool, timeout time.Duration) *OEmbedTier {
	if timeout <= 0 {
		timeout = DEFAULT_OEMBED_TIMEOUT
	}
	return &OEmbedTier{
		endpoint:    endpoint,
		accessToken: accessToken,
		needsToken:  needsToken,
		timeout:     timeout,
		httpClient:  &http.Client{},
	}
}

func (o *OEmbedTier) Name() string {
	return METHOD_OEMBED
}

func (o *OEmbedTier) Available() bool {
	return !o.needsToken || o.accessToken != ""
}

type oEmbedResponse struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ThumbnailURL string `json:"thumbnail_url"`
	Type         string `json:"type"`
}

func (o *OEmbedTier) Attempt(ctx context.Context, req Request) (*Post, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	q := url.Values{}
	q.Set("url", req.URL)
	q.Set("format", "json")
	if o.accessToken != "" {
		q.Set("access_token", o.accessToken)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, o.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("oembed returned status %d", resp.StatusCode)
	}
	var oe oEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&oe); err != nil {
		return nil, fmt.Errorf("decoding oembed response: %w", err)
	}
	raw := map[string]any{
		"url":           req.URL,
		"caption":       oe.Title,
		"ownerUsername": oe.AuthorName,
		"displayUrl":    oe.ThumbnailURL,
		"isVideo":       oe.Type == "video",
	}
	post, err := Normalize(raw)
	if err != nil {
		return nil, err
	}
	post.Platform = req.Platform
	return post, nil
}

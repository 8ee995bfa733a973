package social

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

type Platform string

const PLATFORM_INSTAGRAM Platform = "instagram"
const PLATFORM_LINKEDIN Platform = "linkedin"

var ErrNoMedia = errors.New("no media content found")

type UnsupportedURLError struct {
	URL string
}

func (e UnsupportedURLError) Error() string {
	return fmt.Sprintf("unsupported social media url %q", e.URL)
}

// DetectPlatform maps a post URL to the platform serving it.
func DetectPlatform(rawURL string) (Platform, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return "", UnsupportedURLError{URL: rawURL}
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	switch {
	case host == "instagram.com" || strings.HasSuffix(host, ".instagram.com") || host == "instagr.am":
		return PLATFORM_INSTAGRAM, nil
	case host == "linkedin.com" || strings.HasSuffix(host, ".linkedin.com") || host == "lnkd.in":
		return PLATFORM_LINKEDIN, nil
	}
	return "", UnsupportedURLError{URL: rawURL}
}

type Post struct {
	Platform     Platform `json:"platform"`
	URL          string   `json:"url"`
	ShortCode    string   `json:"shortCode,omitempty"`
	Author       string   `json:"author,omitempty"`
	Title        string   `json:"title,omitempty"`
	Caption      string   `json:"caption,omitempty"`
	ThumbnailURL string   `json:"thumbnailUrl,omitempty"`
	VideoURL     string   `json:"videoUrl,omitempty"`
	ImageURLs    []string `json:"imageUrls,omitempty"`
	IsVideo      bool     `json:"isVideo"`
	IsCarousel   bool     `json:"isCarousel"`
	Likes        int64    `json:"likes,omitempty"`
	Comments     int64    `json:"comments,omitempty"`
	Timestamp    string   `json:"timestamp,omitempty"`
	Transcript   string   `json:"transcript,omitempty"`
}

func stringField(raw map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := raw[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func intField(raw map[string]any, keys ...string) int64 {
	for _, k := range keys {
		switch v := raw[k].(type) {
		case float64:
			return int64(v)
		case int64:
			return v
		case int:
			return int64(v)
		}
	}
	return 0
}

// mediaURL accepts either a plain string or an object carrying a url.
func mediaURL(v any) string {
	switch m := v.(type) {
	case string:
		return strings.TrimSpace(m)
	case map[string]any:
		return stringField(m, "url", "src", "displayUrl")
	}
	return ""
}

func mediaList(raw map[string]any, key string) []string {
	entries, ok := raw[key].([]any)
	if !ok {
		return nil
	}
	urls := make([]string, 0, len(entries))
	for _, e := range entries {
		if u := mediaURL(e); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

func author(raw map[string]any) string {
	if s := stringField(raw, "ownerUsername", "authorName", "author_name", "username"); s != "" {
		return s
	}
	switch a := raw["author"].(type) {
	case string:
		return strings.TrimSpace(a)
	case map[string]any:
		return stringField(a, "name", "username", "firstName")
	}
	return ""
}

// Normalize maps a raw post item, whatever tier produced it, onto Post.
// A post with neither a thumbnail nor a video fails with ErrNoMedia.
func Normalize(raw map[string]any) (*Post, error) {
	post := &Post{
		URL:       stringField(raw, "url", "inputUrl", "postUrl"),
		ShortCode: stringField(raw, "shortCode", "shortcode"),
		Author:    author(raw),
		Title:     stringField(raw, "title"),
		Caption:   stringField(raw, "caption", "text", "description"),
		Likes:     intField(raw, "likesCount", "numLikes", "likes"),
		Comments:  intField(raw, "commentsCount", "numComments", "comments"),
		Timestamp: stringField(raw, "timestamp", "postedAt", "date"),
	}
	post.VideoURL = stringField(raw, "videoUrl")
	if post.VideoURL == "" {
		if videos := mediaList(raw, "videoUrls"); len(videos) > 0 {
			post.VideoURL = videos[0]
		}
	}
	kind := stringField(raw, "type")
	explicit, _ := raw["isVideo"].(bool)
	post.IsVideo = explicit || kind == "Video" || post.VideoURL != ""

	images := mediaList(raw, "images")
	post.ThumbnailURL = stringField(raw, "displayUrl", "thumbnailUrl", "thumbnail", "imageUrl")
	if post.ThumbnailURL == "" && len(images) > 0 {
		post.ThumbnailURL = images[0]
	}
	if kind == "Sidecar" {
		post.IsCarousel = true
		post.ImageURLs = images
	}
	if post.ThumbnailURL == "" && post.VideoURL == "" {
		return nil, ErrNoMedia
	}
	return post, nil
}

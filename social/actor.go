package social

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mohitkumar/canvasflow/retry"
	"github.com/mohitkumar/canvasflow/tier"
)

const DEFAULT_APIFY_BASE_URL = "https://api.apify.com"
const DEFAULT_ACTOR_TIMEOUT = 50 * time.Second

const METHOD_ACTOR = "actor"

var ErrEmptyDataset = errors.New("actor returned no items")

// Actor is a named scraping job together with the input it expects.
type Actor struct {
	Name  string
	Shape func(postURL string) map[string]any
}

// DefaultActors lists the actors of a platform, most specific dataset
// shape first.
func DefaultActors(platform Platform) []Actor {
	switch platform {
	case PLATFORM_INSTAGRAM:
		return []Actor{
			{Name: "apify~instagram-scraper", Shape: func(u string) map[string]any {
				return map[string]any{"directUrls": []string{u}, "resultsType": "posts", "resultsLimit": 1, "addParentData": false}
			}},
			{Name: "apify~instagram-post-scraper", Shape: func(u string) map[string]any {
				return map[string]any{"username": []string{u}, "resultsLimit": 1}
			}},
			{Name: "apify~instagram-reel-scraper", Shape: func(u string) map[string]any {
				return map[string]any{"username": []string{u}, "resultsLimit": 1}
			}},
		}
	case PLATFORM_LINKEDIN:
		return []Actor{
			{Name: "curious_coder~linkedin-post-search-scraper", Shape: func(u string) map[string]any {
				return map[string]any{"urls": []string{u}, "limitPerSource": 1, "deepScrape": true}
			}},
		}
	}
	return nil
}

var _ tier.Tier[Request, *Post] = new(ActorTier)

// ActorTier rotates through scraping actors. Each actor call is retried on
// its own; the next actor is tried as soon as one gives up.
type ActorTier struct {
	baseURL    string
	token      string
	actors     []Actor
	policy     retry.Policy
	httpClient *http.Client
}

func NewActorTier(baseURL string, token string, actors []Actor, timeout time.Duration, policy retry.Policy) *ActorTier {
	if baseURL == "" {
		baseURL = DEFAULT_APIFY_BASE_URL
	}
	if timeout <= 0 {
		timeout = DEFAULT_ACTOR_TIMEOUT
	}
	return &ActorTier{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		actors:     actors,
		policy:     policy.WithAttemptTimeout(timeout),
		httpClient: &http.Client{},
	}
}

func (a *ActorTier) Name() string {
	return METHOD_ACTOR
}

func (a *ActorTier) Available() bool {
	return a.token != "" && len(a.actors) > 0
}

func (a *ActorTier) run(ctx context.Context, actor Actor, postURL string) ([]map[string]any, error) {
	body, err := json.Marshal(actor.Shape(postURL))
	if err != nil {
		return nil, err
	}
	endpoint := fmt.Sprintf("%s/v2/acts/%s/run-sync-get-dataset-items?token=%s", a.baseURL, actor.Name, url.QueryEscape(a.token))
	return retry.DoValue(ctx, "actor "+actor.Name, a.policy, func(ctx context.Context) ([]map[string]any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, retry.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := a.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
			return nil, fmt.Errorf("actor returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
		}
		var items []map[string]any
		if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
			return nil, retry.Permanent(fmt.Errorf("decoding actor dataset: %w", err))
		}
		if len(items) == 0 {
			return nil, retry.Permanent(ErrEmptyDataset)
		}
		return items, nil
	})
}

func (a *ActorTier) Attempt(ctx context.Context, req Request) (*Post, error) {
	actors := make([]tier.Tier[Request, *Post], 0, len(a.actors))
	for _, actor := range a.actors {
		actor := actor
		actors = append(actors, tier.Func[Request, *Post]{
			TierName:   actor.Name,
			Configured: true,
			Fn: func(ctx context.Context, req Request) (*Post, error) {
				items, err := a.run(ctx, actor, req.URL)
				if err != nil {
					return nil, err
				}
				post, err := Normalize(items[0])
				if err != nil {
					return nil, err
				}
				if post.URL == "" {
					post.URL = req.URL
				}
				post.Platform = req.Platform
				return post, nil
			},
		})
	}
	post, _, err := tier.FirstSuccess(ctx, string(req.Platform)+"-actors", actors, req)
	return post, err
}

package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mohitkumar/canvasflow/model"
	"github.com/mohitkumar/canvasflow/retry"
	"github.com/mohitkumar/canvasflow/tier"
)

var ErrNoCaptions = errors.New("no captions available")

const CAPTIONS_TIMEOUT = 30 * time.Second

var _ tier.Tier[Video, model.TranscriptionResult] = new(CaptionsTier)

// CaptionsTier asks the captions service for the official transcript.
type CaptionsTier struct {
	serviceURL string
	httpClient *http.Client
	policy     retry.Policy
}

func NewCaptionsTier(serviceURL string, policy retry.Policy) *CaptionsTier {
	return &CaptionsTier{
		serviceURL: strings.TrimRight(serviceURL, "/"),
		httpClient: &http.Client{},
		policy:     policy.WithAttemptTimeout(CAPTIONS_TIMEOUT),
	}
}

func (c *CaptionsTier) Name() string {
	return model.METHOD_CAPTIONS
}

func (c *CaptionsTier) Available() bool {
	return c.serviceURL != ""
}

type captionsResponse struct {
	Transcript string `json:"transcript"`
	Language   string `json:"language"`
	VideoID    string `json:"videoId"`
	Error      string `json:"error"`
}

func (c *CaptionsTier) Attempt(ctx context.Context, video Video) (model.TranscriptionResult, error) {
	body, _ := json.Marshal(map[string]string{"url": video.URL})
	return retry.DoValue(ctx, "captions fetch", c.policy, func(ctx context.Context) (model.TranscriptionResult, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serviceURL+"/api/transcribe", bytes.NewReader(body))
		if err != nil {
			return model.TranscriptionResult{}, retry.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return model.TranscriptionResult{}, err
		}
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			return model.TranscriptionResult{}, retry.Permanent(ErrNoCaptions)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return model.TranscriptionResult{}, fmt.Errorf("captions service returned status %d", resp.StatusCode)
		}
		var cr captionsResponse
		if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
			return model.TranscriptionResult{}, retry.Permanent(fmt.Errorf("decoding captions response: %w", err))
		}
		if strings.TrimSpace(cr.Transcript) == "" {
			return model.TranscriptionResult{}, retry.Permanent(ErrNoCaptions)
		}
		return model.TranscriptionResult{
			Transcript: cr.Transcript,
			Language:   cr.Language,
			VideoID:    video.ID,
			Method:     model.METHOD_CAPTIONS,
		}, nil
	})
}

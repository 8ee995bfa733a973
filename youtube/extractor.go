package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mohitkumar/canvasflow/model"
	"github.com/mohitkumar/canvasflow/retry"
	"github.com/mohitkumar/canvasflow/tier"
)

const EXTRACTOR_TIMEOUT = 90 * time.Second

var _ tier.Tier[Video, model.TranscriptionResult] = new(ExtractorTier)

// ExtractorTier delegates audio extraction to an external service and
// transcribes the audio URL it returns. The service may answer with a
// transcript of its own, which is used as is.
type ExtractorTier struct {
	serviceURL string
	stt        SpeechTranscriber
	httpClient *http.Client
	policy     retry.Policy
}

func NewExtractorTier(serviceURL string, stt SpeechTranscriber, policy retry.Policy) *ExtractorTier {
	return &ExtractorTier{
		serviceURL: strings.TrimRight(serviceURL, "/"),
		stt:        stt,
		httpClient: &http.Client{},
		policy:     policy.WithAttemptTimeout(EXTRACTOR_TIMEOUT),
	}
}

func (e *ExtractorTier) Name() string {
	return model.METHOD_YTDLP_DEEPGRAM
}

func (e *ExtractorTier) Available() bool {
	return e.serviceURL != ""
}

type extractResponse struct {
	AudioURL   string `json:"audioUrl"`
	Transcript string `json:"transcript"`
	Language   string `json:"language"`
	Error      string `json:"error"`
}

func (e *ExtractorTier) extract(ctx context.Context, video Video) (extractResponse, error) {
	body, _ := json.Marshal(map[string]string{"url": video.URL})
	return retry.DoValue(ctx, "audio extractor", e.policy, func(ctx context.Context) (extractResponse, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.serviceURL+"/extract", bytes.NewReader(body))
		if err != nil {
			return extractResponse{}, retry.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := e.httpClient.Do(req)
		if err != nil {
			return extractResponse{}, err
		}
		defer resp.Body.Close()
		var er extractResponse
		decodeErr := json.NewDecoder(resp.Body).Decode(&er)
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return extractResponse{}, fmt.Errorf("extractor returned status %d %s", resp.StatusCode, er.Error)
		}
		if decodeErr != nil {
			return extractResponse{}, retry.Permanent(fmt.Errorf("decoding extractor response: %w", decodeErr))
		}
		if er.AudioURL == "" && er.Transcript == "" {
			return extractResponse{}, retry.Permanent(fmt.Errorf("extractor returned no audio"))
		}
		return er, nil
	})
}

func (e *ExtractorTier) Attempt(ctx context.Context, video Video) (model.TranscriptionResult, error) {
	er, err := e.extract(ctx, video)
	if err != nil {
		return model.TranscriptionResult{}, err
	}
	result := model.TranscriptionResult{
		Transcript: er.Transcript,
		Language:   er.Language,
		VideoID:    video.ID,
		Method:     model.METHOD_YTDLP_DEEPGRAM,
	}
	if strings.TrimSpace(result.Transcript) != "" {
		return result, nil
	}
	if !available(e.stt) {
		return model.TranscriptionResult{}, fmt.Errorf("extractor returned audio but speech recognition is not configured")
	}
	res, err := e.stt.TranscribeURL(ctx, er.AudioURL)
	if err != nil {
		return model.TranscriptionResult{}, fmt.Errorf("transcribing extracted audio: %w", err)
	}
	if strings.TrimSpace(res.Transcript) == "" {
		return model.TranscriptionResult{}, fmt.Errorf("speech recognition returned an empty transcript")
	}
	result.Transcript = res.Transcript
	result.Language = res.Language
	result.Confidence = res.Confidence
	return result, nil
}

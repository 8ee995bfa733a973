package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/mohitkumar/canvasflow/logger"
	"github.com/mohitkumar/canvasflow/retry"
	"github.com/oliveagle/jsonpath"
	"go.uber.org/zap"
)

const DEFAULT_BASE_URL = "https://api.deepgram.com"
const DEFAULT_LIVE_URL = "wss://api.deepgram.com/v1/listen"
const DEFAULT_MODEL = "nova-2"
const DEFAULT_TIMEOUT = 120 * time.Second

var ErrNotConfigured = errors.New("speech recognition api key not configured")
var ErrMalformedResponse = errors.New("malformed speech recognition response")

const channelsPath = "$.results.channels"
const alternativesPath = "$.results.channels[0].alternatives"
const transcriptPath = "$.results.channels[0].alternatives[0].transcript"
const confidencePath = "$.results.channels[0].alternatives[0].confidence"
const wordsPath = "$.results.channels[0].alternatives[0].words"
const languagePath = "$.results.channels[0].detected_language"

type Config struct {
	APIKey  string
	BaseURL string
	LiveURL string
	Model   string
	// Language forces a language; empty enables detection.
	Language string
	Timeout  time.Duration
	Policy   retry.Policy
}

type Word struct {
	Word       string  `json:"word"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence"`
}

type Result struct {
	Transcript string
	Confidence float64
	Language   string
	Words      []Word
}

// Client talks to the Deepgram prerecorded and live endpoints.
type Client struct {
	conf       Config
	httpClient *http.Client
}

func NewClient(conf Config) *Client {
	if conf.BaseURL == "" {
		conf.BaseURL = DEFAULT_BASE_URL
	}
	if conf.LiveURL == "" {
		conf.LiveURL = DEFAULT_LIVE_URL
	}
	if conf.Model == "" {
		conf.Model = DEFAULT_MODEL
	}
	if conf.Timeout <= 0 {
		conf.Timeout = DEFAULT_TIMEOUT
	}
	if conf.Policy.MaxRetries == 0 && conf.Policy.InitialDelay == 0 {
		conf.Policy = retry.DefaultPolicy()
	}
	return &Client{
		conf:       conf,
		httpClient: &http.Client{},
	}
}

func (c *Client) Available() bool {
	return c != nil && c.conf.APIKey != ""
}

func (c *Client) listenURL() string {
	q := url.Values{}
	q.Set("model", c.conf.Model)
	q.Set("punctuate", "true")
	q.Set("paragraphs", "true")
	q.Set("smart_format", "true")
	if c.conf.Language != "" {
		q.Set("language", c.conf.Language)
	} else {
		q.Set("detect_language", "true")
	}
	return c.conf.BaseURL + "/v1/listen?" + q.Encode()
}

// TranscribeURL asks the service to fetch and transcribe remote audio.
func (c *Client) TranscribeURL(ctx context.Context, audioURL string) (*Result, error) {
	if !c.Available() {
		return nil, ErrNotConfigured
	}
	body, err := json.Marshal(map[string]string{"url": audioURL})
	if err != nil {
		return nil, err
	}
	return c.transcribe(ctx, body, "application/json")
}

// TranscribeAudio buffers r once so every retry resends the same bytes.
func (c *Client) TranscribeAudio(ctx context.Context, r io.Reader, mimetype string) (*Result, error) {
	if !c.Available() {
		return nil, ErrNotConfigured
	}
	audio, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("empty audio")
	}
	if mimetype == "" {
		mimetype = "audio/webm"
	}
	return c.transcribe(ctx, audio, mimetype)
}

func (c *Client) transcribe(ctx context.Context, body []byte, contentType string) (*Result, error) {
	policy := c.conf.Policy.WithAttemptTimeout(c.conf.Timeout)
	return retry.DoValue(ctx, "deepgram transcription", policy, func(ctx context.Context) (*Result, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.listenURL(), bytes.NewReader(body))
		if err != nil {
			return nil, retry.Permanent(err)
		}
		req.Header.Set("Authorization", "Token "+c.conf.APIKey)
		req.Header.Set("Content-Type", contentType)
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		payload, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			logger.Warn("speech recognition request failed", zap.Int("status", resp.StatusCode))
			return nil, fmt.Errorf("speech recognition returned status %d", resp.StatusCode)
		}
		res, err := ParseResponse(payload)
		if err != nil {
			return nil, retry.Permanent(err)
		}
		return res, nil
	})
}

// lookup evaluates path against data. Index steps over null values panic
// inside jsonpath, so panics are reported as malformed responses.
func lookup(data any, path string) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", ErrMalformedResponse, path, r)
		}
	}()
	value, err = jsonpath.JsonPathLookup(data, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return value, nil
}

// nonEmptyList fails unless path holds a list with at least one element.
func nonEmptyList(data any, path string) error {
	value, err := lookup(data, path)
	if err != nil {
		return err
	}
	list, ok := value.([]any)
	if !ok || len(list) == 0 {
		return fmt.Errorf("%w: %s is empty or not a list", ErrMalformedResponse, path)
	}
	return nil
}

// ParseResponse extracts the first alternative of the first channel.
func ParseResponse(payload []byte) (*Result, error) {
	var data any
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if err := nonEmptyList(data, channelsPath); err != nil {
		return nil, err
	}
	if err := nonEmptyList(data, alternativesPath); err != nil {
		return nil, err
	}
	transcript, err := lookup(data, transcriptPath)
	if err != nil {
		return nil, err
	}
	text, ok := transcript.(string)
	if !ok {
		return nil, fmt.Errorf("%w: transcript is not a string", ErrMalformedResponse)
	}
	confidence, err := lookup(data, confidencePath)
	if err != nil {
		return nil, err
	}
	conf, _ := confidence.(float64)
	words, err := lookup(data, wordsPath)
	if err != nil {
		return nil, err
	}
	rawWords, ok := words.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: words is not a list", ErrMalformedResponse)
	}
	res := &Result{
		Transcript: text,
		Confidence: conf,
		Words:      make([]Word, 0, len(rawWords)),
	}
	for _, w := range rawWords {
		m, ok := w.(map[string]any)
		if !ok {
			continue
		}
		word := Word{}
		word.Word, _ = m["word"].(string)
		word.Start, _ = m["start"].(float64)
		word.End, _ = m["end"].(float64)
		word.Confidence, _ = m["confidence"].(float64)
		res.Words = append(res.Words, word)
	}
	if lang, err := lookup(data, languagePath); err == nil {
		res.Language, _ = lang.(string)
	}
	return res, nil
}

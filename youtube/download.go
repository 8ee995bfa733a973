package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/mohitkumar/canvasflow/logger"
	"github.com/mohitkumar/canvasflow/retry"
	"go.uber.org/zap"
)

const DEFAULT_DOWNLOAD_TIMEOUT = 60 * time.Second

// MaxAudioBytes bounds a single download.
const MaxAudioBytes = 200 << 20

var ErrNoAudioFormat = errors.New("no audio-only format available")

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 17_4 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Mobile/15E148 Safari/604.1",
}

type AudioFormat struct {
	URL           string `json:"url"`
	MimeType      string `json:"mimeType"`
	Bitrate       int    `json:"bitrate"`
	AudioBitrate  int    `json:"audioBitrate"`
	HasVideo      bool   `json:"hasVideo"`
	HasAudio      bool   `json:"hasAudio"`
	ContentLength int64  `json:"contentLength,string,omitempty"`
}

func (f AudioFormat) audioBitrate() int {
	if f.AudioBitrate > 0 {
		return f.AudioBitrate
	}
	return f.Bitrate
}

// SelectBestAudio picks the audio-only format with the highest audio bitrate.
func SelectBestAudio(formats []AudioFormat) (AudioFormat, error) {
	var best AudioFormat
	found := false
	for _, f := range formats {
		if f.URL == "" || f.HasVideo || !(f.HasAudio || strings.HasPrefix(f.MimeType, "audio/")) {
			continue
		}
		if !found || f.audioBitrate() > best.audioBitrate() {
			best = f
			found = true
		}
	}
	if !found {
		return AudioFormat{}, ErrNoAudioFormat
	}
	return best, nil
}

type Audio struct {
	Data     []byte
	MIMEType string
}

// Downloader resolves the stream formats of a video through the player
// info service and downloads the best audio stream.
type Downloader struct {
	playerInfoURL string
	httpClient    *http.Client
	timeout       time.Duration
	policy        retry.Policy
	mu            sync.Mutex
	rnd           *rand.Rand
}

func NewDownloader(playerInfoURL string, timeout time.Duration, policy retry.Policy) *Downloader {
	if timeout <= 0 {
		timeout = DEFAULT_DOWNLOAD_TIMEOUT
	}
	return &Downloader{
		playerInfoURL: strings.TrimRight(playerInfoURL, "/"),
		httpClient:    &http.Client{},
		timeout:       timeout,
		policy:        policy,
		rnd:           rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (d *Downloader) Available() bool {
	return d != nil && d.playerInfoURL != ""
}

func (d *Downloader) userAgent() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return userAgents[d.rnd.Intn(len(userAgents))]
}

func (d *Downloader) Formats(ctx context.Context, videoId string) ([]AudioFormat, error) {
	return retry.DoValue(ctx, "player info", d.policy, func(ctx context.Context) ([]AudioFormat, error) {
		ctx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.playerInfoURL+"?videoId="+url.QueryEscape(videoId), nil)
		if err != nil {
			return nil, retry.Permanent(err)
		}
		req.Header.Set("User-Agent", d.userAgent())
		resp, err := d.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			return nil, retry.Permanent(fmt.Errorf("video %s not found", videoId))
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("player info returned status %d", resp.StatusCode)
		}
		var info struct {
			Formats []AudioFormat `json:"formats"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
			return nil, retry.Permanent(fmt.Errorf("decoding player info: %w", err))
		}
		return info.Formats, nil
	})
}

// Download fetches the best audio stream. Every attempt uses a fresh user
// agent and its own timeout.
func (d *Downloader) Download(ctx context.Context, videoId string) (*Audio, error) {
	formats, err := d.Formats(ctx, videoId)
	if err != nil {
		return nil, err
	}
	format, err := SelectBestAudio(formats)
	if err != nil {
		return nil, err
	}
	logger.Debug("selected audio format", zap.String("videoId", videoId), zap.String("mimeType", format.MimeType), zap.Int("bitrate", format.audioBitrate()))
	return retry.DoValue(ctx, "audio download", d.policy, func(ctx context.Context) (*Audio, error) {
		ctx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, format.URL, nil)
		if err != nil {
			return nil, retry.Permanent(err)
		}
		req.Header.Set("User-Agent", d.userAgent())
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		resp, err := d.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("audio download returned status %d", resp.StatusCode)
		}
		data, err := io.ReadAll(io.LimitReader(resp.Body, MaxAudioBytes+1))
		if err != nil {
			return nil, err
		}
		if len(data) > MaxAudioBytes {
			return nil, retry.Permanent(fmt.Errorf("audio exceeds %d bytes", MaxAudioBytes))
		}
		if len(data) == 0 {
			return nil, fmt.Errorf("empty audio download")
		}
		mime := format.MimeType
		if i := strings.Index(mime, ";"); i >= 0 {
			mime = mime[:i]
		}
		return &Audio{Data: data, MIMEType: mime}, nil
	})
}

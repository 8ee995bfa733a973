package social

import (
	"context"
	"fmt"
	"strings"

	"github.com/mohitkumar/canvasflow/logger"
	"github.com/mohitkumar/canvasflow/tier"
	"github.com/mohitkumar/canvasflow/transcribe"
	"go.uber.org/zap"
)

// Fetcher runs the per-platform tier chains.
type Fetcher struct {
	chains map[Platform][]tier.Tier[Request, *Post]
}

func NewFetcher(chains map[Platform][]tier.Tier[Request, *Post]) *Fetcher {
	return &Fetcher{chains: chains}
}

// Fetch returns the post at url and the name of the tier that produced it.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Post, string, error) {
	platform, err := DetectPlatform(url)
	if err != nil {
		return nil, "", err
	}
	tiers, ok := f.chains[platform]
	if !ok {
		return nil, "", fmt.Errorf("%s: %w", platform, tier.ErrNoTierAvailable)
	}
	post, method, err := tier.FirstSuccess(ctx, string(platform), tiers, Request{URL: strings.TrimSpace(url), Platform: platform})
	if err != nil {
		return nil, "", err
	}
	return post, method, nil
}

// VideoTranscriber is satisfied by transcribe.Client.
type VideoTranscriber interface {
	Available() bool
	TranscribeURL(ctx context.Context, mediaURL string) (*transcribe.Result, error)
}

type FetchResult struct {
	Post    *Post        `json:"post"`
	Storage BackupResult `json:"storage"`
	Method  string       `json:"method"`
}

type Service struct {
	fetcher  *Fetcher
	backuper *Backuper
	stt      VideoTranscriber
}

func NewService(fetcher *Fetcher, backuper *Backuper, stt VideoTranscriber) *Service {
	return &Service{
		fetcher:  fetcher,
		backuper: backuper,
		stt:      stt,
	}
}

// Fetch fetches and normalizes the post, backs its media up for userId and
// transcribes video posts when speech recognition is configured.
func (s *Service) Fetch(ctx context.Context, url string, userId string) (*FetchResult, error) {
	post, method, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	result := &FetchResult{Post: post, Method: method}
	if s.backuper.Available() {
		result.Storage = s.backuper.Backup(ctx, post, userId)
	} else {
		result.Storage = BackupResult{
			Status:               BACKUP_SKIPPED,
			OriginalVideoURL:     post.VideoURL,
			OriginalThumbnailURL: post.ThumbnailURL,
			OriginalImageURLs:    post.ImageURLs,
		}
	}
	if post.IsVideo && post.VideoURL != "" && s.stt != nil && s.stt.Available() {
		res, err := s.stt.TranscribeURL(ctx, result.Storage.PreferredVideoURL())
		if err != nil {
			logger.Warn("video transcription failed", zap.String("url", post.URL), zap.Error(err))
		} else {
			post.Transcript = res.Transcript
		}
	}
	return result, nil
}

package social

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/mohitkumar/canvasflow/logger"
	"github.com/mohitkumar/canvasflow/retry"
	"github.com/mohitkumar/canvasflow/storage"
	"go.uber.org/zap"
)

type BackupStatus string

const BACKUP_SUCCESS BackupStatus = "success"
const BACKUP_PARTIAL BackupStatus = "partial"
const BACKUP_FAILED BackupStatus = "failed"
const BACKUP_SKIPPED BackupStatus = "skipped"

const ASSET_VIDEO = "video"
const ASSET_IMAGE = "image"
const ASSET_THUMBNAIL = "thumbnail"
const ASSET_CAROUSEL = "carousel"

const PRIMARY_ATTEMPTS = 3
const THUMBNAIL_ATTEMPTS = 2

type AssetError struct {
	Asset   string `json:"asset"`
	Index   int    `json:"index"`
	Message string `json:"message"`
}

// BackupResult always carries the original URLs next to the stored ones so
// readers can fall back when an asset did not make it to storage.
type BackupResult struct {
	Status               BackupStatus `json:"status"`
	VideoURL             string       `json:"videoUrl,omitempty"`
	ThumbnailURL         string       `json:"thumbnailUrl,omitempty"`
	ImageURLs            []string     `json:"imageUrls,omitempty"`
	Errors               []AssetError `json:"errors,omitempty"`
	OriginalVideoURL     string       `json:"originalVideoUrl,omitempty"`
	OriginalThumbnailURL string       `json:"originalThumbnailUrl,omitempty"`
	OriginalImageURLs    []string     `json:"originalImageUrls,omitempty"`
}

// PreferredVideoURL is the stored video, or the original one.
func (b BackupResult) PreferredVideoURL() string {
	if b.VideoURL != "" {
		return b.VideoURL
	}
	return b.OriginalVideoURL
}

func (b BackupResult) PreferredThumbnailURL() string {
	if b.ThumbnailURL != "" {
		return b.ThumbnailURL
	}
	return b.OriginalThumbnailURL
}

// PreferredImageURLs returns the stored carousel when every image made it,
// otherwise the original list.
func (b BackupResult) PreferredImageURLs() []string {
	if len(b.ImageURLs) == len(b.OriginalImageURLs) {
		return b.ImageURLs
	}
	return b.OriginalImageURLs
}

type Backuper struct {
	uploader storage.Uploader
	policy   retry.Policy
}

func NewBackuper(uploader storage.Uploader, policy retry.Policy) *Backuper {
	return &Backuper{
		uploader: uploader,
		policy:   policy,
	}
}

func (b *Backuper) Available() bool {
	return b != nil && b.uploader != nil && b.uploader.Available()
}

func fileName(srcURL string, fallback string) string {
	p := srcURL
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	name := path.Base(p)
	if name == "" || name == "." || name == "/" || !strings.Contains(name, ".") {
		return fallback
	}
	return name
}

func (b *Backuper) upload(ctx context.Context, userId string, platform Platform, srcURL string, fallbackName string, attempts int) (string, error) {
	key := storage.ObjectKey(userId, string(platform), fileName(srcURL, fallbackName))
	obj, err := retry.DoValue(ctx, "media backup", b.policy.WithMaxRetries(attempts-1), func(ctx context.Context) (*storage.Object, error) {
		return b.uploader.UploadFromURL(ctx, key, srcURL)
	})
	if err != nil {
		return "", err
	}
	return obj.PublicURL, nil
}

// Backup copies the media of post into object storage. Every asset is
// uploaded on its own; a failing asset never stops the others.
func (b *Backuper) Backup(ctx context.Context, post *Post, userId string) BackupResult {
	result := BackupResult{
		OriginalVideoURL:     post.VideoURL,
		OriginalThumbnailURL: post.ThumbnailURL,
		OriginalImageURLs:    post.ImageURLs,
	}
	successes := 0
	primaryFailed := false
	carouselFailed := false
	stored := map[string]string{}

	fail := func(asset string, index int, err error) {
		logger.Warn("media backup failed", zap.String("asset", asset), zap.Int("index", index), zap.String("url", post.URL), zap.Error(err))
		result.Errors = append(result.Errors, AssetError{Asset: asset, Index: index, Message: err.Error()})
	}

	switch {
	case post.VideoURL != "":
		url, err := b.upload(ctx, userId, post.Platform, post.VideoURL, "video.mp4", PRIMARY_ATTEMPTS)
		if err != nil {
			primaryFailed = true
			fail(ASSET_VIDEO, 0, err)
		} else {
			successes++
			result.VideoURL = url
		}
	case !post.IsCarousel && post.ThumbnailURL != "":
		url, err := b.upload(ctx, userId, post.Platform, post.ThumbnailURL, "image.jpg", PRIMARY_ATTEMPTS)
		if err != nil {
			primaryFailed = true
			fail(ASSET_IMAGE, 0, err)
		} else {
			successes++
			stored[post.ThumbnailURL] = url
		}
	}

	for i, src := range post.ImageURLs {
		url, err := b.upload(ctx, userId, post.Platform, src, fmt.Sprintf("image-%d.jpg", i+1), PRIMARY_ATTEMPTS)
		if err != nil {
			carouselFailed = true
			fail(ASSET_CAROUSEL, i, err)
			continue
		}
		successes++
		stored[src] = url
		result.ImageURLs = append(result.ImageURLs, url)
	}

	if post.ThumbnailURL != "" {
		if url, ok := stored[post.ThumbnailURL]; ok {
			result.ThumbnailURL = url
		} else if !primaryFailed || post.VideoURL != "" {
			url, err := b.upload(ctx, userId, post.Platform, post.ThumbnailURL, "thumbnail.jpg", THUMBNAIL_ATTEMPTS)
			if err != nil {
				fail(ASSET_THUMBNAIL, 0, err)
			} else {
				successes++
				result.ThumbnailURL = url
			}
		}
	}

	switch {
	case successes == 0:
		result.Status = BACKUP_FAILED
	case primaryFailed || carouselFailed:
		result.Status = BACKUP_PARTIAL
	default:
		result.Status = BACKUP_SUCCESS
	}
	logger.Info("media backup finished", zap.String("url", post.URL), zap.String("status", string(result.Status)), zap.Int("stored", successes), zap.Int("failed", len(result.Errors)))
	return result
}

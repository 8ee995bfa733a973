package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mohitkumar/canvasflow/logger"
	"go.uber.org/zap"
)

const DEFAULT_UPLOAD_TIMEOUT = 60 * time.Second

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

var _ Uploader = new(SupabaseUploader)

// SupabaseUploader stores objects through the Supabase Storage REST API.
type SupabaseUploader struct {
	baseURL    string
	serviceKey string
	bucket     string
	httpClient *http.Client
}

func NewSupabaseUploader(baseURL string, serviceKey string, bucket string) *SupabaseUploader {
	return &SupabaseUploader{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		bucket:     bucket,
		httpClient: &http.Client{Timeout: DEFAULT_UPLOAD_TIMEOUT},
	}
}

func (s *SupabaseUploader) Available() bool {
	return s != nil && s.baseURL != "" && s.serviceKey != "" && s.bucket != ""
}

func (s *SupabaseUploader) publicURL(key string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, s.bucket, key)
}

func (s *SupabaseUploader) Upload(ctx context.Context, key string, r io.Reader, contentType string) (*Object, error) {
	if !s.Available() {
		return nil, ErrNotConfigured
	}
	url := fmt.Sprintf("%s/storage/v1/object/%s/%s", s.baseURL, s.bucket, key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, r)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	req.Header.Set("apikey", s.serviceKey)
	req.Header.Set("x-upsert", "true")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("storage upload returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	logger.Debug("object uploaded", zap.String("bucket", s.bucket), zap.String("key", key))
	return &Object{Path: key, PublicURL: s.publicURL(key)}, nil
}

// UploadFromURL downloads srcURL and stores the body under key.
func (s *SupabaseUploader) UploadFromURL(ctx context.Context, key string, srcURL string) (*Object, error) {
	if !s.Available() {
		return nil, ErrNotConfigured
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srcURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browserUserAgent)
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetching %s returned status %d", srcURL, resp.StatusCode)
	}
	return s.Upload(ctx, key, resp.Body, resp.Header.Get("Content-Type"))
}

package webpage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/mohitkumar/canvasflow/retry"
)

// MaxMediaBytes is the largest file the model accepts inline.
const MaxMediaBytes = 20 << 20

type Media struct {
	Data     []byte
	MimeType string
}

// FetchMedia downloads an image. The mime type comes from the response
// header, falling back to content sniffing.
func (f *Fetcher) FetchMedia(ctx context.Context, url string) (*Media, error) {
	return retry.DoValue(ctx, "media fetch", f.policy, func(ctx context.Context) (*Media, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, retry.Permanent(err)
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept", "image/*")
		resp, err := f.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return nil, retry.Permanent(fmt.Errorf("media returned status %d", resp.StatusCode))
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("media returned status %d", resp.StatusCode)
		}
		data, err := io.ReadAll(io.LimitReader(resp.Body, MaxMediaBytes+1))
		if err != nil {
			return nil, err
		}
		if len(data) == 0 {
			return nil, retry.Permanent(fmt.Errorf("media at %s is empty", url))
		}
		if len(data) > MaxMediaBytes {
			return nil, retry.Permanent(fmt.Errorf("media at %s exceeds %d bytes", url, MaxMediaBytes))
		}
		mimeType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
		if err != nil || !strings.HasPrefix(mimeType, "image/") {
			mimeType, _, _ = mime.ParseMediaType(http.DetectContentType(data))
		}
		if !strings.HasPrefix(mimeType, "image/") {
			return nil, retry.Permanent(fmt.Errorf("media at %s is %s, not an image", url, mimeType))
		}
		return &Media{Data: data, MimeType: mimeType}, nil
	})
}

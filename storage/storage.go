package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var ErrNotConfigured = errors.New("object storage not configured")

type Object struct {
	Path      string `json:"path"`
	PublicURL string `json:"publicUrl"`
}

// Uploader writes media to permanent object storage.
type Uploader interface {
	Available() bool
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (*Object, error)
	UploadFromURL(ctx context.Context, key string, srcURL string) (*Object, error)
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// ObjectKey builds {userId}/{type}/{uuid}-{filename}. The filename is
// reduced to a safe character set.
func ObjectKey(userId string, assetType string, filename string) string {
	name := unsafeChars.ReplaceAllString(path.Base(filename), "_")
	name = strings.Trim(name, "_.")
	if name == "" {
		name = "file"
	}
	if userId == "" {
		userId = "anonymous"
	}
	return userId + "/" + assetType + "/" + uuid.NewString() + "-" + name
}

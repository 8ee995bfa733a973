package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	key := ObjectKey("user-1", "instagram", "../reel video?.mp4")
	parts := strings.Split(key, "/")
	require.Len(t, parts, 3)
	require.Equal(t, "user-1", parts[0])
	require.Equal(t, "instagram", parts[1])
	require.True(t, strings.HasSuffix(parts[2], "-reel_video_.mp4"), parts[2])
	require.Len(t, strings.TrimSuffix(parts[2], "-reel_video_.mp4"), 36)

	require.NotEqual(t, key, ObjectKey("user-1", "instagram", "../reel video?.mp4"))
	require.True(t, strings.HasPrefix(ObjectKey("", "image", ""), "anonymous/image/"))
}

func TestUploadFromURL(t *testing.T) {
	var uploaded string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/media/a.jpg":
			assert.NotEmpty(t, r.UserAgent())
			w.Header().Set("Content-Type", "image/jpeg")
			w.Write([]byte("jpeg-bytes"))
		case strings.HasPrefix(r.URL.Path, "/storage/v1/object/media/"):
			assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
			assert.Equal(t, "image/jpeg", r.Header.Get("Content-Type"))
			b, _ := io.ReadAll(r.Body)
			uploaded = string(b)
			w.Write([]byte(`{"Key": "ok"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	up := NewSupabaseUploader(srv.URL, "secret", "media")
	obj, err := up.UploadFromURL(context.Background(), "u/instagram/x-a.jpg", srv.URL+"/media/a.jpg")
	require.NoError(t, err)
	require.Equal(t, "jpeg-bytes", uploaded)
	require.Equal(t, "u/instagram/x-a.jpg", obj.Path)
	require.Equal(t, srv.URL+"/storage/v1/object/public/media/u/instagram/x-a.jpg", obj.PublicURL)

	_, err = up.UploadFromURL(context.Background(), "u/instagram/y.jpg", srv.URL+"/missing.jpg")
	require.Error(t, err)
}

func TestUnconfiguredUploader(t *testing.T) {
	up := NewSupabaseUploader("", "", "")
	require.False(t, up.Available())
	_, err := up.Upload(context.Background(), "k", strings.NewReader("x"), "text/plain")
	require.ErrorIs(t, err, ErrNotConfigured)
}

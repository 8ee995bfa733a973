package cache

import (
	"testing"
	"time"

	"github.com/mohitkumar/canvasflow/model"
	"github.com/mohitkumar/canvasflow/util"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (f *fakeClock) now() time.Time {
	return f.t
}

func (f *fakeClock) advance(d time.Duration) {
	f.t = f.t.Add(d)
}

func TestMemoryTranscriptCache(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	tc := NewMemoryTranscriptCache(24*time.Hour, clock.now)
	value := model.TranscriptionResult{Transcript: "hello", Method: model.METHOD_CAPTIONS, VideoID: "abc"}

	tc.Set("abc", value)
	got, ok := tc.Get("abc")
	require.True(t, ok)
	require.Equal(t, value, got)

	clock.advance(23 * time.Hour)
	_, ok = tc.Get("abc")
	require.True(t, ok)

	clock.advance(2 * time.Hour)
	_, ok = tc.Get("abc")
	require.False(t, ok)
	require.Equal(t, 0, tc.Len())

	_, ok = tc.Get("abc")
	require.False(t, ok)
}

func TestMemoryTranscriptCacheEvict(t *testing.T) {
	tc := NewMemoryTranscriptCache(0, nil)
	tc.Set("k", model.TranscriptionResult{Transcript: "x"})
	tc.Evict("k")
	_, ok := tc.Get("k")
	require.False(t, ok)
}

func TestMemoryTranscriptCacheClear(t *testing.T) {
	tc := NewMemoryTranscriptCache(time.Hour, nil)
	tc.Set("a", model.TranscriptionResult{Transcript: "x"})
	tc.Set("b", model.TranscriptionResult{Transcript: "y"})
	require.Equal(t, 2, tc.Len())
	require.Equal(t, 2, tc.Clear())
	require.Equal(t, 0, tc.Len())
	_, ok := tc.Get("a")
	require.False(t, ok)
	require.Equal(t, 0, tc.Clear())
}

func TestTranscriptEncoderDecoder(t *testing.T) {
	codec := NewTranscriptEncoderDecoder()
	data, err := codec.Encode(model.TranscriptionResult{Transcript: "hi", Method: model.METHOD_CAPTIONS, VideoID: "v", Cached: true})
	require.NoError(t, err)
	got, err := codec.Decode(data)
	require.NoError(t, err)
	require.False(t, got.Cached)
	require.Equal(t, "hi", got.Transcript)

	_, err = codec.Encode(model.TranscriptionResult{VideoID: "v"})
	require.ErrorContains(t, err, "incomplete")
	_, err = codec.Decode([]byte(`{"kind":"workflow","v":1,"data":{"transcript":"hi","method":"captions"}}`))
	require.ErrorIs(t, err, util.ErrRecordKind)
}

func TestMemoryTranscriptCacheResetsOnOverwrite(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	tc := NewMemoryTranscriptCache(time.Hour, clock.now)
	tc.Set("k", model.TranscriptionResult{Transcript: "old"})
	clock.advance(50 * time.Minute)
	tc.Set("k", model.TranscriptionResult{Transcript: "new"})
	clock.advance(50 * time.Minute)
	got, ok := tc.Get("k")
	require.True(t, ok)
	require.Equal(t, "new", got.Transcript)
}

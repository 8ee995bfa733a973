package cache

import (
	"fmt"
	"time"

	"github.com/mohitkumar/canvasflow/model"
	"github.com/mohitkumar/canvasflow/util"
	c "github.com/patrickmn/go-cache"
)

const DEFAULT_TRANSCRIPT_TTL = 24 * time.Hour

// TranscriptCache stores transcription results by external content id.
type TranscriptCache interface {
	Get(key string) (model.TranscriptionResult, bool)
	Set(key string, value model.TranscriptionResult)
	Evict(key string)
	// Clear drops every entry and reports how many were removed.
	Clear() int
	Len() int
}

type Clock func() time.Time

type entry struct {
	value    model.TranscriptionResult
	storedAt time.Time
}

var _ TranscriptCache = new(MemoryTranscriptCache)

// MemoryTranscriptCache is a single-process cache. Entries expire ttl after
// insertion; reading an expired entry removes it.
type MemoryTranscriptCache struct {
	cache *c.Cache
	ttl   time.Duration
	now   Clock
}

func NewMemoryTranscriptCache(ttl time.Duration, now Clock) *MemoryTranscriptCache {
	if ttl <= 0 {
		ttl = DEFAULT_TRANSCRIPT_TTL
	}
	if now == nil {
		now = time.Now
	}
	return &MemoryTranscriptCache{
		cache: c.New(ttl, 10*time.Minute),
		ttl:   ttl,
		now:   now,
	}
}

func (mc *MemoryTranscriptCache) Get(key string) (model.TranscriptionResult, bool) {
	v, found := mc.cache.Get(key)
	if !found {
		return model.TranscriptionResult{}, false
	}
	e := v.(entry)
	if mc.now().Sub(e.storedAt) >= mc.ttl {
		mc.cache.Delete(key)
		return model.TranscriptionResult{}, false
	}
	return e.value, true
}

func (mc *MemoryTranscriptCache) Set(key string, value model.TranscriptionResult) {
	mc.cache.Set(key, entry{value: value, storedAt: mc.now()}, mc.ttl)
}

func (mc *MemoryTranscriptCache) Evict(key string) {
	mc.cache.Delete(key)
}

func (mc *MemoryTranscriptCache) Len() int {
	return mc.cache.ItemCount()
}

func (mc *MemoryTranscriptCache) Clear() int {
	n := mc.cache.ItemCount()
	mc.cache.Flush()
	return n
}

// NewTranscriptEncoderDecoder is used by shared caches. Hits are flagged by
// the reader, so the stored copy never carries Cached.
func NewTranscriptEncoderDecoder() util.EncoderDecoder[model.TranscriptionResult] {
	return util.NewJsonEncoderDecoder[model.TranscriptionResult](util.RECORD_KIND_TRANSCRIPT, func(r *model.TranscriptionResult) error {
		if r.Transcript == "" || r.Method == "" {
			return fmt.Errorf("transcript for %q is incomplete", r.VideoID)
		}
		r.Cached = false
		return nil
	})
}

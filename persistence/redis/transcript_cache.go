package redis

import (
	"context"
	"errors"
	"time"

	rd "github.com/go-redis/redis/v9"
	"github.com/mohitkumar/canvasflow/cache"
	"github.com/mohitkumar/canvasflow/logger"
	"github.com/mohitkumar/canvasflow/model"
	"github.com/mohitkumar/canvasflow/persistence"
	"github.com/mohitkumar/canvasflow/util"
	"go.uber.org/zap"
)

var _ cache.TranscriptCache = new(redisTranscriptCache)

// redisTranscriptCache shares transcripts between instances. Expiry is
// delegated to redis.
type redisTranscriptCache struct {
	*baseDao
	ttl            time.Duration
	encoderDecoder util.EncoderDecoder[model.TranscriptionResult]
}

func NewRedisTranscriptCache(conf Config, ttl time.Duration) *redisTranscriptCache {
	if ttl <= 0 {
		ttl = cache.DEFAULT_TRANSCRIPT_TTL
	}
	return &redisTranscriptCache{
		baseDao:        newBaseDao(conf),
		ttl:            ttl,
		encoderDecoder: cache.NewTranscriptEncoderDecoder(),
	}
}

func (rc *redisTranscriptCache) Get(key string) (model.TranscriptionResult, bool) {
	ctx := context.Background()
	val, err := rc.redisClient.Get(ctx, rc.getNamespaceKey(persistence.TRANSCRIPT_KEY, key)).Result()
	if err != nil {
		if !errors.Is(err, rd.Nil) {
			logger.Error("error reading transcript cache", zap.String("key", key), zap.Error(err))
		}
		return model.TranscriptionResult{}, false
	}
	res, err := rc.encoderDecoder.Decode([]byte(val))
	if err != nil {
		logger.Error("corrupt transcript cache entry", zap.String("key", key), zap.Error(err))
		rc.Evict(key)
		return model.TranscriptionResult{}, false
	}
	return *res, true
}

func (rc *redisTranscriptCache) Set(key string, value model.TranscriptionResult) {
	ctx := context.Background()
	data, err := rc.encoderDecoder.Encode(value)
	if err != nil {
		return
	}
	if err := rc.redisClient.Set(ctx, rc.getNamespaceKey(persistence.TRANSCRIPT_KEY, key), data, rc.ttl).Err(); err != nil {
		logger.Error("error writing transcript cache", zap.String("key", key), zap.Error(err))
	}
}

func (rc *redisTranscriptCache) Evict(key string) {
	ctx := context.Background()
	rc.redisClient.Del(ctx, rc.getNamespaceKey(persistence.TRANSCRIPT_KEY, key))
}

func (rc *redisTranscriptCache) keys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := rc.redisClient.Scan(ctx, 0, rc.getNamespaceKey(persistence.TRANSCRIPT_KEY, "*"), 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	return keys, iter.Err()
}

func (rc *redisTranscriptCache) Len() int {
	keys, err := rc.keys(context.Background())
	if err != nil {
		logger.Error("error scanning transcript cache", zap.Error(err))
	}
	return len(keys)
}

func (rc *redisTranscriptCache) Clear() int {
	ctx := context.Background()
	keys, err := rc.keys(ctx)
	if err != nil {
		logger.Error("error scanning transcript cache", zap.Error(err))
	}
	removed := 0
	for _, key := range keys {
		n, err := rc.redisClient.Del(ctx, key).Result()
		if err != nil {
			logger.Error("error clearing transcript cache", zap.String("key", key), zap.Error(err))
			continue
		}
		removed += int(n)
	}
	return removed
}

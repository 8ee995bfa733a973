package config

import (
	"time"

	"github.com/mohitkumar/canvasflow/analytics"
)

type StorageType string

type CacheType string

const STORAGE_TYPE_REDIS StorageType = "redis"
const STORAGE_TYPE_INMEM StorageType = "memory"

const CACHE_TYPE_REDIS CacheType = "redis"
const CACHE_TYPE_INMEM CacheType = "memory"

type EncoderDecoderType string

const JSON_ENCODER_DECODER EncoderDecoderType = "JSON"

type Config struct {
	RedisConfig        RedisStorageConfig
	HttpPort           int
	StorageType        StorageType
	CacheType          CacheType
	EncoderDecoderType EncoderDecoderType
	LogLevel           string
	TranscriptCacheTTL time.Duration
	YouTube            YouTubeConfig
	Social             SocialConfig
	Deepgram           DeepgramConfig
	Gemini             GeminiConfig
	ObjectStorage      ObjectStorageConfig
	Executor           ExecutorConfig
	AnalyticsConfig    analytics.DataCollectorConfig
}

type RedisStorageConfig struct {
	Addrs     []string
	Namespace string
	Password  string
}

type YouTubeConfig struct {
	CaptionsServiceURL  string
	PlayerInfoURL       string
	ExtractorServiceURL string
	DownloadTimeout     time.Duration
}

type SocialConfig struct {
	ApifyToken         string
	ApifyBaseURL       string
	InstagramOEmbedKey string
	InstagramOEmbedURL string
	LinkedInOEmbedURL  string
	OEmbedTimeout      time.Duration
	ScrapeTimeout      time.Duration
	ActorTimeout       time.Duration
	DisableMediaBackup bool
}

type DeepgramConfig struct {
	APIKey  string
	BaseURL string
	LiveURL string
	Model   string
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

type ObjectStorageConfig struct {
	SupabaseURL string
	ServiceKey  string
	Bucket      string
}

type ExecutorConfig struct {
	StaleAfter time.Duration
}

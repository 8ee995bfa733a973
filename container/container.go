package container

import (
	"context"
	"fmt"

	"github.com/mohitkumar/canvasflow/ai"
	"github.com/mohitkumar/canvasflow/cache"
	"github.com/mohitkumar/canvasflow/config"
	"github.com/mohitkumar/canvasflow/executor"
	"github.com/mohitkumar/canvasflow/logger"
	"github.com/mohitkumar/canvasflow/metadata"
	"github.com/mohitkumar/canvasflow/model"
	rd "github.com/mohitkumar/canvasflow/persistence/redis"
	"github.com/mohitkumar/canvasflow/recording"
	"github.com/mohitkumar/canvasflow/retry"
	"github.com/mohitkumar/canvasflow/social"
	"github.com/mohitkumar/canvasflow/storage"
	"github.com/mohitkumar/canvasflow/tier"
	"github.com/mohitkumar/canvasflow/transcribe"
	"github.com/mohitkumar/canvasflow/util"
	"github.com/mohitkumar/canvasflow/webpage"
	"github.com/mohitkumar/canvasflow/youtube"
	"go.uber.org/zap"
)

type DIContiner struct {
	initialized     bool
	WorkflowEncDec  util.EncoderDecoder[model.Workflow]
	workflowStorage metadata.WorkflowStorage
	metadataService metadata.MetadataService
	transcriptCache cache.TranscriptCache
	gemini          *ai.GeminiClient
	speech          *transcribe.Client
	uploader        *storage.SupabaseUploader
	youtubeService  *youtube.Service
	socialService   *social.Service
	pageFetcher     *webpage.Fetcher
	nodeExecutor    *executor.NodeExecutor
}

func (d *DIContiner) setInitialized() {
	d.initialized = true
}

func NewDiContainer() *DIContiner {
	return &DIContiner{
		initialized: false,
	}
}

func (d *DIContiner) Init(ctx context.Context, conf config.Config) error {
	switch conf.EncoderDecoderType {
	default:
		d.WorkflowEncDec = metadata.NewWorkflowEncoderDecoder()
	}

	rdConf := rd.Config{
		Addrs:     conf.RedisConfig.Addrs,
		Namespace: conf.RedisConfig.Namespace,
		Password:  conf.RedisConfig.Password,
	}
	switch conf.StorageType {
	case config.STORAGE_TYPE_REDIS:
		d.workflowStorage = rd.NewRedisWorkflowDao(rdConf, d.WorkflowEncDec)
	default:
		d.workflowStorage = metadata.NewInMemoryWorkflowStorage()
	}
	d.metadataService = metadata.NewMetadataService(d.workflowStorage)

	switch conf.CacheType {
	case config.CACHE_TYPE_REDIS:
		d.transcriptCache = rd.NewRedisTranscriptCache(rdConf, conf.TranscriptCacheTTL)
	default:
		d.transcriptCache = cache.NewMemoryTranscriptCache(conf.TranscriptCacheTTL, nil)
	}

	var err error
	d.gemini, err = ai.NewGeminiClient(ctx, conf.Gemini.APIKey, conf.Gemini.Model)
	if err != nil {
		return fmt.Errorf("gemini: %w", err)
	}
	d.speech = transcribe.NewClient(transcribe.Config{
		APIKey:  conf.Deepgram.APIKey,
		BaseURL: conf.Deepgram.BaseURL,
		LiveURL: conf.Deepgram.LiveURL,
		Model:   conf.Deepgram.Model,
	})
	d.uploader = storage.NewSupabaseUploader(conf.ObjectStorage.SupabaseURL, conf.ObjectStorage.ServiceKey, conf.ObjectStorage.Bucket)

	d.youtubeService = d.buildYouTube(conf)
	d.socialService = d.buildSocial(conf)
	d.pageFetcher = webpage.NewFetcher(0, retry.DefaultPolicy())
	d.nodeExecutor = executor.NewNodeExecutor(d.executorDependencies(), conf.Executor.StaleAfter)

	logger.Info("services configured",
		zap.String("storage", string(conf.StorageType)),
		zap.String("cache", string(conf.CacheType)),
		zap.Bool("gemini", d.gemini.Available()),
		zap.Bool("deepgram", d.speech.Available()),
		zap.Bool("objectStorage", d.uploader.Available()),
		zap.Bool("apify", conf.Social.ApifyToken != ""))
	d.setInitialized()
	return nil
}

func (d *DIContiner) generator() ai.Generator {
	if d.gemini == nil {
		return nil
	}
	return d.gemini
}

func (d *DIContiner) buildYouTube(conf config.Config) *youtube.Service {
	policy := retry.DefaultPolicy()
	downloader := youtube.NewDownloader(conf.YouTube.PlayerInfoURL, conf.YouTube.DownloadTimeout, policy)
	return youtube.NewService(
		youtube.NewCaptionsTier(conf.YouTube.CaptionsServiceURL, policy),
		youtube.NewVideoAnalysisTier(d.generator(), policy),
		youtube.NewAudioTranscriptionTier(downloader, d.speech),
		youtube.NewExtractorTier(conf.YouTube.ExtractorServiceURL, d.speech, policy),
		d.transcriptCache,
	)
}

func (d *DIContiner) buildSocial(conf config.Config) *social.Service {
	s := conf.Social
	policy := retry.DefaultPolicy()
	chains := map[social.Platform][]tier.Tier[social.Request, *social.Post]{
		social.PLATFORM_INSTAGRAM: {
			social.NewInstagramOEmbedTier(s.InstagramOEmbedURL, s.InstagramOEmbedKey, s.OEmbedTimeout),
			social.NewScrapeTier(s.ScrapeTimeout),
			social.NewActorTier(s.ApifyBaseURL, s.ApifyToken, social.DefaultActors(social.PLATFORM_INSTAGRAM), s.ActorTimeout, policy),
		},
		social.PLATFORM_LINKEDIN: {
			social.NewLinkedInOEmbedTier(s.LinkedInOEmbedURL, s.OEmbedTimeout),
			social.NewScrapeTier(s.ScrapeTimeout),
			social.NewActorTier(s.ApifyBaseURL, s.ApifyToken, social.DefaultActors(social.PLATFORM_LINKEDIN), s.ActorTimeout, policy),
		},
	}
	var backuper *social.Backuper
	if !s.DisableMediaBackup {
		backuper = social.NewBackuper(d.uploader, policy)
	}
	return social.NewService(social.NewFetcher(chains), backuper, d.speech)
}

func (d *DIContiner) executorDependencies() executor.Dependencies {
	deps := executor.Dependencies{
		YouTube:  d.youtubeService,
		Social:   d.socialService,
		Voice:    d.speech,
		Uploader: d.uploader,
		Pages:    d.pageFetcher,
		Media:    d.pageFetcher,
	}
	if d.gemini != nil {
		deps.Generator = d.gemini
		deps.Images = d.gemini
	}
	return deps
}

func (d *DIContiner) mustBeInitialized() {
	if !d.initialized {
		panic("container not initalized")
	}
}

func (d *DIContiner) GetMetadataService() metadata.MetadataService {
	d.mustBeInitialized()
	return d.metadataService
}

func (d *DIContiner) GetNodeExecutor() *executor.NodeExecutor {
	d.mustBeInitialized()
	return d.nodeExecutor
}

func (d *DIContiner) GetTranscriptCache() cache.TranscriptCache {
	d.mustBeInitialized()
	return d.transcriptCache
}

func (d *DIContiner) GetYouTubeService() *youtube.Service {
	d.mustBeInitialized()
	return d.youtubeService
}

func (d *DIContiner) GetSocialService() *social.Service {
	d.mustBeInitialized()
	return d.socialService
}

func (d *DIContiner) GetSpeechClient() *transcribe.Client {
	d.mustBeInitialized()
	return d.speech
}

// GetStreamDialer returns nil when live transcription is not configured so
// recorders skip dialing entirely.
func (d *DIContiner) GetStreamDialer() recording.StreamDialer {
	d.mustBeInitialized()
	if !d.speech.Available() {
		return nil
	}
	return recording.LiveDialer{Client: d.speech}
}

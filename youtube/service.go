package youtube

import (
	"context"
	"time"

	"github.com/mohitkumar/canvasflow/cache"
	"github.com/mohitkumar/canvasflow/logger"
	"github.com/mohitkumar/canvasflow/model"
	"github.com/mohitkumar/canvasflow/tier"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const CHAIN_NAME = "youtube"

type TranscribeOptions struct {
	// SkipCache forces the tiers to run even when a cached result exists.
	SkipCache bool
}

type Service struct {
	captions  *CaptionsTier
	analysis  *VideoAnalysisTier
	audio     *AudioTranscriptionTier
	extractor *ExtractorTier
	cache     cache.TranscriptCache
	now       func() time.Time
}

func NewService(captions *CaptionsTier, analysis *VideoAnalysisTier, audio *AudioTranscriptionTier, extractor *ExtractorTier, transcriptCache cache.TranscriptCache) *Service {
	return &Service{
		captions:  captions,
		analysis:  analysis,
		audio:     audio,
		extractor: extractor,
		cache:     transcriptCache,
		now:       time.Now,
	}
}

func (s *Service) tiers() []tier.Tier[Video, model.TranscriptionResult] {
	var tiers []tier.Tier[Video, model.TranscriptionResult]
	if s.captions != nil {
		tiers = append(tiers, s.captions)
	}
	if s.analysis != nil {
		tiers = append(tiers, s.analysis)
	}
	if s.audio != nil {
		tiers = append(tiers, s.audio)
	}
	if s.extractor != nil {
		tiers = append(tiers, s.extractor)
	}
	return tiers
}

// Transcribe returns the transcript of the video at url from the cache or
// from the first tier that succeeds.
func (s *Service) Transcribe(ctx context.Context, url string, opts TranscribeOptions) (model.TranscriptionResult, error) {
	start := s.now()
	videoId, err := ExtractVideoID(url)
	if err != nil {
		return model.TranscriptionResult{}, err
	}
	if s.cache != nil && !opts.SkipCache {
		if cached, found := s.cache.Get(videoId); found {
			logger.Debug("transcript cache hit", zap.String("videoId", videoId))
			cached.Cached = true
			cached.ElapsedMs = s.now().Sub(start).Milliseconds()
			return cached, nil
		}
	}
	video := Video{ID: videoId, URL: WatchURL(videoId)}
	result, winner, err := tier.FirstSuccess(ctx, CHAIN_NAME, s.tiers(), video)
	if err != nil {
		return model.TranscriptionResult{}, err
	}
	result.Method = winner
	result.VideoID = videoId
	result.Cached = false
	result.ElapsedMs = s.now().Sub(start).Milliseconds()
	if s.cache != nil {
		s.cache.Set(videoId, result)
	}
	logger.Info("video transcribed", zap.String("videoId", videoId), zap.String("method", winner), zap.Int64("elapsedMs", result.ElapsedMs))
	return result, nil
}

type EngineResult struct {
	Result *model.TranscriptionResult `json:"result,omitempty"`
	Error  string                     `json:"error,omitempty"`
}

type Comparison struct {
	VideoID  string       `json:"videoId"`
	Analysis EngineResult `json:"analysis"`
	Audio    EngineResult `json:"audio"`
}

func runEngine(ctx context.Context, t tier.Tier[Video, model.TranscriptionResult], video Video) EngineResult {
	if t == nil || !t.Available() {
		return EngineResult{Error: tier.ErrNoTierAvailable.Error()}
	}
	start := time.Now()
	res, err := t.Attempt(ctx, video)
	if err != nil {
		return EngineResult{Error: err.Error()}
	}
	res.Method = t.Name()
	res.ElapsedMs = time.Since(start).Milliseconds()
	return EngineResult{Result: &res}
}

// CompareEngines runs the video analysis and audio transcription engines
// side by side. A failing engine is reported in its own slot and does not
// cancel the other.
func (s *Service) CompareEngines(ctx context.Context, url string) (*Comparison, error) {
	videoId, err := ExtractVideoID(url)
	if err != nil {
		return nil, err
	}
	video := Video{ID: videoId, URL: WatchURL(videoId)}
	cmp := &Comparison{VideoID: videoId}
	var analysis, audio tier.Tier[Video, model.TranscriptionResult]
	if s.analysis != nil {
		analysis = s.analysis
	}
	if s.audio != nil {
		audio = s.audio
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cmp.Analysis = runEngine(gctx, analysis, video)
		return nil
	})
	g.Go(func() error {
		cmp.Audio = runEngine(gctx, audio, video)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return cmp, nil
}

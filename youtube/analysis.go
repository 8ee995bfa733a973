package youtube

import (
	"context"

	"github.com/mohitkumar/canvasflow/ai"
	"github.com/mohitkumar/canvasflow/model"
	"github.com/mohitkumar/canvasflow/retry"
	"github.com/mohitkumar/canvasflow/tier"
)

const videoAnalysisPrompt = `Analyze this video and produce a structured written account of it.
Include these sections:
SUMMARY: a detailed summary of what the video covers.
KEY POINTS: the main points in the order they are made.
TOPICS: the topics and themes discussed.
QUOTES: notable statements, quoted as closely as possible.
Write in the language spoken in the video.`

var _ tier.Tier[Video, model.TranscriptionResult] = new(VideoAnalysisTier)

// VideoAnalysisTier substitutes a model-written analysis for the transcript.
type VideoAnalysisTier struct {
	generator ai.Generator
	policy    retry.Policy
}

func NewVideoAnalysisTier(generator ai.Generator, policy retry.Policy) *VideoAnalysisTier {
	return &VideoAnalysisTier{
		generator: generator,
		policy:    policy,
	}
}

func (v *VideoAnalysisTier) Name() string {
	return model.METHOD_GEMINI_VIDEO
}

func (v *VideoAnalysisTier) Available() bool {
	return available(v.generator)
}

func (v *VideoAnalysisTier) Attempt(ctx context.Context, video Video) (model.TranscriptionResult, error) {
	return retry.DoValue(ctx, "video analysis", v.policy, func(ctx context.Context) (model.TranscriptionResult, error) {
		text, err := v.generator.Generate(ctx, ai.Request{
			Prompt:    videoAnalysisPrompt,
			MediaURI:  WatchURL(video.ID),
			MediaMIME: "video/mp4",
		})
		if err != nil {
			return model.TranscriptionResult{}, err
		}
		analysis, err := ai.RequireSufficient(text)
		if err != nil {
			return model.TranscriptionResult{}, retry.Permanent(err)
		}
		return model.TranscriptionResult{
			Transcript: analysis,
			VideoID:    video.ID,
			Method:     model.METHOD_GEMINI_VIDEO,
		}, nil
	})
}

type availability interface {
	Available() bool
}

// available treats a nil dependency as unconfigured and otherwise defers
// to its own Available method when it has one.
func available(dep any) bool {
	if dep == nil {
		return false
	}
	if a, ok := dep.(availability); ok {
		return a.Available()
	}
	return true
}

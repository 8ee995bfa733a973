package youtube

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/mohitkumar/canvasflow/model"
	"github.com/mohitkumar/canvasflow/tier"
	"github.com/mohitkumar/canvasflow/transcribe"
)

// SpeechTranscriber is satisfied by transcribe.Client.
type SpeechTranscriber interface {
	Available() bool
	TranscribeAudio(ctx context.Context, r io.Reader, mimetype string) (*transcribe.Result, error)
	TranscribeURL(ctx context.Context, audioURL string) (*transcribe.Result, error)
}

var _ tier.Tier[Video, model.TranscriptionResult] = new(AudioTranscriptionTier)

type AudioTranscriptionTier struct {
	downloader *Downloader
	stt        SpeechTranscriber
}

func NewAudioTranscriptionTier(downloader *Downloader, stt SpeechTranscriber) *AudioTranscriptionTier {
	return &AudioTranscriptionTier{
		downloader: downloader,
		stt:        stt,
	}
}

func (a *AudioTranscriptionTier) Name() string {
	return model.METHOD_YTDL_DEEPGRAM
}

func (a *AudioTranscriptionTier) Available() bool {
	return a.downloader.Available() && available(a.stt)
}

func (a *AudioTranscriptionTier) Attempt(ctx context.Context, video Video) (model.TranscriptionResult, error) {
	audio, err := a.downloader.Download(ctx, video.ID)
	if err != nil {
		return model.TranscriptionResult{}, fmt.Errorf("downloading audio: %w", err)
	}
	res, err := a.stt.TranscribeAudio(ctx, bytes.NewReader(audio.Data), audio.MIMEType)
	if err != nil {
		return model.TranscriptionResult{}, fmt.Errorf("transcribing audio: %w", err)
	}
	if strings.TrimSpace(res.Transcript) == "" {
		return model.TranscriptionResult{}, fmt.Errorf("speech recognition returned an empty transcript")
	}
	return model.TranscriptionResult{
		Transcript: res.Transcript,
		Language:   res.Language,
		Confidence: res.Confidence,
		VideoID:    video.ID,
		Method:     model.METHOD_YTDL_DEEPGRAM,
	}, nil
}

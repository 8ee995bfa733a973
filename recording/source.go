package recording

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/mohitkumar/canvasflow/transcribe"
)

var ErrPermissionDenied = errors.New("microphone permission denied")

// Capture is a running audio capture. Chunks delivers one chunk per chunk
// interval and is closed once the capture has been stopped and flushed.
type Capture interface {
	Chunks() <-chan []byte
	MimeType() string
	Stop()
	Close() error
}

// AudioSource opens the microphone. A denied permission must surface as
// ErrPermissionDenied.
type AudioSource interface {
	Open(ctx context.Context, chunkInterval time.Duration) (Capture, error)
}

// Stream is a live transcription connection.
type Stream interface {
	Send(audio []byte) error
	Events() <-chan transcribe.StreamEvent
	Finish() error
	Close() error
}

type StreamDialer interface {
	Dial(ctx context.Context) (Stream, error)
}

// BatchTranscriber transcribes a finished recording in one request.
type BatchTranscriber interface {
	Available() bool
	TranscribeAudio(ctx context.Context, r io.Reader, mimetype string) (*transcribe.Result, error)
}

// LiveDialer opens live streams on a transcribe.Client.
type LiveDialer struct {
	Client *transcribe.Client
}

func (d LiveDialer) Dial(ctx context.Context) (Stream, error) {
	if !d.Client.Available() {
		return nil, transcribe.ErrNotConfigured
	}
	stream, err := d.Client.DialLive(ctx)
	if err != nil {
		return nil, err
	}
	return stream, nil
}

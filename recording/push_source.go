package recording

import (
	"context"
	"sync"
	"time"
)

const PUSH_BUFFER_SIZE = 32

// PushSource is an AudioSource whose chunks are delivered by a remote
// client, for example over a websocket, instead of a local microphone.
type PushSource struct {
	mimeType string

	mu      sync.Mutex
	current *pushCapture
}

func NewPushSource(mimeType string) *PushSource {
	return &PushSource{mimeType: mimeType}
}

func (p *PushSource) Open(ctx context.Context, chunkInterval time.Duration) (Capture, error) {
	c := &pushCapture{
		mimeType: p.mimeType,
		chunks:   make(chan []byte, PUSH_BUFFER_SIZE),
		stopped:  make(chan struct{}),
	}
	p.mu.Lock()
	p.current = c
	p.mu.Unlock()
	return c, nil
}

// Push hands a chunk to the open capture. It blocks while the recorder is
// behind and fails once the capture has been stopped.
func (p *PushSource) Push(chunk []byte) error {
	p.mu.Lock()
	c := p.current
	p.mu.Unlock()
	if c == nil {
		return ErrNotRecording
	}
	return c.push(chunk)
}

type pushCapture struct {
	mimeType string
	chunks   chan []byte
	stopped  chan struct{}
	stopOnce sync.Once
	// sending is held for read by pushes so Stop never closes chunks under
	// an in-flight send.
	sending sync.RWMutex
}

func (c *pushCapture) push(chunk []byte) error {
	c.sending.RLock()
	defer c.sending.RUnlock()
	select {
	case <-c.stopped:
		return ErrNotRecording
	default:
	}
	select {
	case c.chunks <- chunk:
		return nil
	case <-c.stopped:
		return ErrNotRecording
	}
}

func (c *pushCapture) Chunks() <-chan []byte {
	return c.chunks
}

func (c *pushCapture) MimeType() string {
	return c.mimeType
}

func (c *pushCapture) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopped)
		c.sending.Lock()
		close(c.chunks)
		c.sending.Unlock()
	})
}

func (c *pushCapture) Close() error {
	c.Stop()
	return nil
}

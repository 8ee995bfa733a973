package recording

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mohitkumar/canvasflow/retry"
	"github.com/mohitkumar/canvasflow/transcribe"
	"github.com/stretchr/testify/require"
)

type fakeCapture struct {
	chunks   chan []byte
	stopOnce sync.Once
	closed   atomic.Bool
}

func (c *fakeCapture) Chunks() <-chan []byte { return c.chunks }
func (c *fakeCapture) MimeType() string      { return "audio/webm" }
func (c *fakeCapture) Stop()                 { c.stopOnce.Do(func() { close(c.chunks) }) }
func (c *fakeCapture) Close() error {
	c.closed.Store(true)
	return nil
}

type fakeSource struct {
	mu       sync.Mutex
	opens    int
	denied   bool
	captures []*fakeCapture
}

func (s *fakeSource) Open(ctx context.Context, chunkInterval time.Duration) (Capture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opens++
	if s.denied {
		return nil, ErrPermissionDenied
	}
	c := &fakeCapture{chunks: make(chan []byte, 16)}
	s.captures = append(s.captures, c)
	return c, nil
}

func (s *fakeSource) last() *fakeCapture {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.captures[len(s.captures)-1]
}

type fakeStream struct {
	events    chan transcribe.StreamEvent
	sent      atomic.Int32
	closeOnce sync.Once
	finished  atomic.Bool
}

func (s *fakeStream) Send(audio []byte) error { s.sent.Add(1); return nil }
func (s *fakeStream) Events() <-chan transcribe.StreamEvent {
	return s.events
}
func (s *fakeStream) Finish() error {
	s.finished.Store(true)
	return nil
}
func (s *fakeStream) Close() error {
	s.closeOnce.Do(func() { close(s.events) })
	return nil
}

type fakeDialer struct {
	mu      sync.Mutex
	fail    bool
	dials   int
	streams []*fakeStream
}

func (d *fakeDialer) Dial(ctx context.Context) (Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if d.fail {
		return nil, errors.New("connection refused")
	}
	s := &fakeStream{events: make(chan transcribe.StreamEvent, 16)}
	d.streams = append(d.streams, s)
	return s, nil
}

func (d *fakeDialer) last() *fakeStream {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.streams[len(d.streams)-1]
}

type fakeBatch struct {
	calls      atomic.Int32
	transcript string
}

func (b *fakeBatch) Available() bool { return true }
func (b *fakeBatch) TranscribeAudio(ctx context.Context, r io.Reader, mimetype string) (*transcribe.Result, error) {
	b.calls.Add(1)
	return &transcribe.Result{Transcript: b.transcript}, nil
}

func testConfig() Config {
	return Config{
		GracePeriod:  50 * time.Millisecond,
		TickInterval: 10 * time.Millisecond,
		DialPolicy:   retry.Policy{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Multiplier: 2},
	}
}

func collect(events <-chan Event, wait time.Duration) []Event {
	var out []Event
	timeout := time.After(wait)
	for {
		select {
		case e, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, e)
		case <-timeout:
			return out
		}
	}
}

func hasEvent(events []Event, t EventType) bool {
	for _, e := range events {
		if e.Type == t {
			return true
		}
	}
	return false
}

func TestSecondStartIsRejected(t *testing.T) {
	source := &fakeSource{}
	dialer := &fakeDialer{}
	rec := NewRecorder(source, dialer, nil, testConfig())

	_, err := rec.Start(context.Background())
	require.NoError(t, err)
	_, err = rec.Start(context.Background())
	require.ErrorIs(t, err, ErrAlreadyRecording)
	require.Equal(t, 1, source.opens)
	require.Equal(t, 1, dialer.dials)
	require.Equal(t, STATE_RECORDING, rec.State())
	rec.Cancel()
}

func TestCancelDiscardsState(t *testing.T) {
	source := &fakeSource{}
	dialer := &fakeDialer{}
	rec := NewRecorder(source, dialer, nil, testConfig())
	events, unsubscribe := rec.Subscribe()
	defer unsubscribe()

	_, err := rec.Start(context.Background())
	require.NoError(t, err)
	source.last().chunks <- []byte("chunk-1")
	stream := dialer.last()
	stream.events <- transcribe.StreamEvent{Text: "hel"}
	stream.events <- transcribe.StreamEvent{Text: "hello wor"}
	stream.events <- transcribe.StreamEvent{Text: "hello world", IsFinal: true}
	require.Eventually(t, func() bool { return rec.CurrentText() == "hello world" }, time.Second, time.Millisecond)

	rec.Cancel()
	require.Equal(t, STATE_IDLE, rec.State())
	require.True(t, source.last().closed.Load())
	require.False(t, hasEvent(collect(events, 100*time.Millisecond), EVENT_COMPLETE))

	_, err = rec.Start(context.Background())
	require.NoError(t, err)
	require.Equal(t, "", rec.CurrentText())
	require.Equal(t, 2, source.opens)
	rec.Cancel()
}

func TestStopJoinsFinalTranscripts(t *testing.T) {
	source := &fakeSource{}
	dialer := &fakeDialer{}
	batch := &fakeBatch{transcript: "unused"}
	rec := NewRecorder(source, dialer, batch, testConfig())
	events, unsubscribe := rec.Subscribe()
	defer unsubscribe()

	_, err := rec.Start(context.Background())
	require.NoError(t, err)
	capture := source.last()
	stream := dialer.last()
	capture.chunks <- []byte("ab")
	capture.chunks <- []byte("cd")
	stream.events <- transcribe.StreamEvent{Text: "first part", IsFinal: true}
	stream.events <- transcribe.StreamEvent{Text: "second"}
	require.Eventually(t, func() bool { return rec.CurrentText() == "first part second" }, time.Second, time.Millisecond)
	stream.events <- transcribe.StreamEvent{Text: "second part", IsFinal: true}

	res, err := rec.Stop(context.Background())
	require.NoError(t, err)
	require.Equal(t, []byte("abcd"), res.Audio)
	require.Equal(t, "first part second part", res.Transcript)
	require.Equal(t, "audio/webm", res.MimeType)
	require.True(t, stream.finished.Load())
	require.Equal(t, int32(2), stream.sent.Load())
	require.Equal(t, int32(0), batch.calls.Load())
	require.Equal(t, STATE_IDLE, rec.State())

	got := collect(events, 50*time.Millisecond)
	require.True(t, hasEvent(got, EVENT_COMPLETE))
	require.True(t, hasEvent(got, EVENT_TRANSCRIPT))
}

func TestStopFallsBackToBatchTranscription(t *testing.T) {
	source := &fakeSource{}
	dialer := &fakeDialer{fail: true}
	batch := &fakeBatch{transcript: "batch words"}
	rec := NewRecorder(source, dialer, batch, testConfig())

	_, err := rec.Start(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, dialer.dials)
	source.last().chunks <- []byte("audio")

	res, err := rec.Stop(context.Background())
	require.NoError(t, err)
	require.Equal(t, "batch words", res.Transcript)
	require.Equal(t, int32(1), batch.calls.Load())
}

func TestPermissionDenied(t *testing.T) {
	source := &fakeSource{denied: true}
	rec := NewRecorder(source, nil, nil, testConfig())
	events, unsubscribe := rec.Subscribe()
	defer unsubscribe()

	_, err := rec.Start(context.Background())
	require.ErrorIs(t, err, ErrPermissionDenied)
	require.Equal(t, STATE_ERROR, rec.State())
	require.True(t, hasEvent(collect(events, 50*time.Millisecond), EVENT_ERROR))

	source.denied = false
	_, err = rec.Start(context.Background())
	require.NoError(t, err)
	rec.Cancel()
}

func TestStopWithoutRecording(t *testing.T) {
	rec := NewRecorder(&fakeSource{}, nil, nil, testConfig())
	_, err := rec.Stop(context.Background())
	require.ErrorIs(t, err, ErrNotRecording)
	rec.Cancel()
	require.Equal(t, STATE_IDLE, rec.State())
}

func TestDurationTicks(t *testing.T) {
	rec := NewRecorder(&fakeSource{}, nil, nil, testConfig())
	events, unsubscribe := rec.Subscribe()
	defer unsubscribe()
	_, err := rec.Start(context.Background())
	require.NoError(t, err)
	require.True(t, hasEvent(collect(events, 60*time.Millisecond), EVENT_DURATION))
	rec.Cancel()
}

func TestPushSourceFeedsRecorder(t *testing.T) {
	source := NewPushSource("audio/ogg")
	require.ErrorIs(t, source.Push([]byte("early")), ErrNotRecording)

	batch := &fakeBatch{transcript: "pushed audio"}
	r := NewRecorder(source, nil, batch, testConfig())
	_, err := r.Start(context.Background())
	require.NoError(t, err)

	require.NoError(t, source.Push([]byte("ab")))
	require.NoError(t, source.Push([]byte("cd")))

	res, err := r.Stop(context.Background())
	require.NoError(t, err)
	require.Equal(t, []byte("abcd"), res.Audio)
	require.Equal(t, "audio/ogg", res.MimeType)
	require.Equal(t, "pushed audio", res.Transcript)
	require.ErrorIs(t, source.Push([]byte("late")), ErrNotRecording)
}

type gatedDialer struct {
	dialing chan struct{}
	release chan struct{}
}

func (d *gatedDialer) Dial(ctx context.Context) (Stream, error) {
	close(d.dialing)
	<-d.release
	return &fakeStream{events: make(chan transcribe.StreamEvent, 1)}, nil
}

func TestCancelWhileDialing(t *testing.T) {
	source := &fakeSource{}
	dialer := &gatedDialer{dialing: make(chan struct{}), release: make(chan struct{})}
	rec := NewRecorder(source, dialer, nil, testConfig())
	events, unsubscribe := rec.Subscribe()
	defer unsubscribe()

	started := make(chan error, 1)
	go func() {
		_, err := rec.Start(context.Background())
		started <- err
	}()
	<-dialer.dialing
	rec.Cancel()
	close(dialer.release)

	require.ErrorIs(t, <-started, ErrCancelled)
	require.Equal(t, STATE_IDLE, rec.State())
	require.True(t, source.last().closed.Load())
	require.False(t, hasEvent(collect(events, 40*time.Millisecond), EVENT_DURATION))
}

func TestCancelRightAfterStart(t *testing.T) {
	for i := 0; i < 20; i++ {
		rec := NewRecorder(&fakeSource{}, &fakeDialer{}, nil, testConfig())
		s, err := rec.Start(context.Background())
		require.NoError(t, err)
		var wg sync.WaitGroup
		wg.Add(2)
		go func() { defer wg.Done(); rec.Cancel() }()
		go func() { defer wg.Done(); _ = s.StartedAt() }()
		wg.Wait()
		require.Equal(t, STATE_IDLE, rec.State())
	}
}

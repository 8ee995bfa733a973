package recording

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mohitkumar/canvasflow/logger"
	"github.com/mohitkumar/canvasflow/retry"
	"github.com/mohitkumar/canvasflow/transcribe"
	"github.com/mohitkumar/canvasflow/util"
	"go.uber.org/zap"
)

type State string

const STATE_IDLE State = "idle"
const STATE_REQUESTING_PERMISSION State = "requesting-permission"
const STATE_RECORDING State = "recording"
const STATE_PROCESSING State = "processing"
const STATE_ERROR State = "error"

const DEFAULT_CHUNK_INTERVAL = 250 * time.Millisecond
const DEFAULT_GRACE_PERIOD = 600 * time.Millisecond
const DEFAULT_TICK_INTERVAL = 1 * time.Second
const EVENT_BUFFER_SIZE = 64

var ErrAlreadyRecording = errors.New("a recording is already in progress")
var ErrNotRecording = errors.New("no recording in progress")
var ErrCancelled = errors.New("recording cancelled")

type EventType string

const EVENT_STATE_CHANGED EventType = "state-changed"
const EVENT_TRANSCRIPT EventType = "transcript"
const EVENT_DURATION EventType = "duration"
const EVENT_COMPLETE EventType = "recording-complete"
const EVENT_ERROR EventType = "error"

type Event struct {
	Type      EventType
	SessionID string
	State     State
	Text      string
	IsFinal   bool
	Duration  time.Duration
	Result    *Result
	Err       error
}

// Result is the outcome of a completed recording.
type Result struct {
	Audio      []byte
	MimeType   string
	Transcript string
	Duration   time.Duration
}

type Config struct {
	ChunkInterval time.Duration
	GracePeriod   time.Duration
	TickInterval  time.Duration
	DialPolicy    retry.Policy
}

func DefaultConfig() Config {
	return Config{
		ChunkInterval: DEFAULT_CHUNK_INTERVAL,
		GracePeriod:   DEFAULT_GRACE_PERIOD,
		TickInterval:  DEFAULT_TICK_INTERVAL,
		DialPolicy: retry.Policy{
			MaxRetries:   2,
			InitialDelay: 500 * time.Millisecond,
			MaxDelay:     2 * time.Second,
			Multiplier:   2,
		},
	}
}

// Session holds the buffers of one recording.
type Session struct {
	ID string

	capture    Capture
	pumpDone   chan struct{}
	streamDone chan struct{}

	mu        sync.Mutex
	startedAt time.Time
	ticker    *util.TickWorker
	stream    Stream
	chunks    [][]byte
	finals    []string
	interim   string
	cancelled bool
}

func (s *Session) StartedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startedAt
}

func (s *Session) text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.TrimSpace(strings.Join(s.finals, " ") + " " + s.interim)
}

// Recorder allows a single active recording at a time.
type Recorder struct {
	source AudioSource
	dialer StreamDialer
	batch  BatchTranscriber
	conf   Config
	now    func() time.Time

	mu      sync.Mutex
	state   State
	session *Session

	subsMu  sync.Mutex
	subs    map[int]chan Event
	nextSub int
}

func NewRecorder(source AudioSource, dialer StreamDialer, batch BatchTranscriber, conf Config) *Recorder {
	def := DefaultConfig()
	if conf.ChunkInterval <= 0 {
		conf.ChunkInterval = def.ChunkInterval
	}
	if conf.GracePeriod <= 0 {
		conf.GracePeriod = def.GracePeriod
	}
	if conf.TickInterval <= 0 {
		conf.TickInterval = def.TickInterval
	}
	if conf.DialPolicy.InitialDelay <= 0 {
		conf.DialPolicy = def.DialPolicy
	}
	return &Recorder{
		source: source,
		dialer: dialer,
		batch:  batch,
		conf:   conf,
		now:    time.Now,
		state:  STATE_IDLE,
		subs:   map[int]chan Event{},
	}
}

// Subscribe returns a buffered event channel and a function that detaches
// it. Events are dropped for a subscriber whose buffer is full.
func (r *Recorder) Subscribe() (<-chan Event, func()) {
	r.subsMu.Lock()
	defer r.subsMu.Unlock()
	id := r.nextSub
	r.nextSub++
	ch := make(chan Event, EVENT_BUFFER_SIZE)
	r.subs[id] = ch
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			r.subsMu.Lock()
			defer r.subsMu.Unlock()
			delete(r.subs, id)
			close(ch)
		})
	}
}

func (r *Recorder) emit(e Event) {
	r.subsMu.Lock()
	defer r.subsMu.Unlock()
	for _, ch := range r.subs {
		select {
		case ch <- e:
		default:
			logger.Debug("dropping recording event for slow subscriber", zap.String("type", string(e.Type)))
		}
	}
}

func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// setState moves s to the next state unless it is no longer the current
// session.
func (r *Recorder) setState(s *Session, state State) bool {
	r.mu.Lock()
	if r.session != s {
		r.mu.Unlock()
		return false
	}
	r.state = state
	r.mu.Unlock()
	r.emit(Event{Type: EVENT_STATE_CHANGED, SessionID: s.ID, State: state})
	return true
}

// CurrentText is the final segments joined by spaces followed by the
// pending interim text.
func (r *Recorder) CurrentText() string {
	r.mu.Lock()
	s := r.session
	r.mu.Unlock()
	if s == nil {
		return ""
	}
	return s.text()
}

func (r *Recorder) Start(ctx context.Context) (*Session, error) {
	r.mu.Lock()
	if r.session != nil {
		r.mu.Unlock()
		return nil, ErrAlreadyRecording
	}
	s := &Session{
		ID:         uuid.NewString(),
		pumpDone:   make(chan struct{}),
		streamDone: make(chan struct{}),
	}
	r.session = s
	r.state = STATE_REQUESTING_PERMISSION
	r.mu.Unlock()
	r.emit(Event{Type: EVENT_STATE_CHANGED, SessionID: s.ID, State: STATE_REQUESTING_PERMISSION})

	capture, err := r.source.Open(ctx, r.conf.ChunkInterval)
	if err != nil {
		r.fail(s, fmt.Errorf("opening audio source: %w", err))
		return nil, err
	}
	s.mu.Lock()
	s.capture = capture
	s.mu.Unlock()

	stream := r.dial(ctx)
	s.mu.Lock()
	s.stream = stream
	cancelled := s.cancelled
	s.mu.Unlock()
	if cancelled {
		r.teardown(s)
		return nil, ErrCancelled
	}

	ticker := util.NewTickWorker("recording-duration-"+s.ID, r.conf.TickInterval, func() {
		r.emit(Event{Type: EVENT_DURATION, SessionID: s.ID, Duration: r.now().Sub(s.StartedAt())})
	}, nil)
	s.mu.Lock()
	s.startedAt = r.now()
	s.ticker = ticker
	s.mu.Unlock()
	if !r.setState(s, STATE_RECORDING) {
		r.teardown(s)
		return nil, ErrCancelled
	}
	ticker.Start()
	go r.pump(s)
	if stream != nil {
		go r.listen(s, stream)
	} else {
		close(s.streamDone)
	}
	logger.Info("recording started", zap.String("session", s.ID), zap.Bool("live", stream != nil))
	return s, nil
}

// dial opens the live stream. Failure only disables live transcription.
func (r *Recorder) dial(ctx context.Context) Stream {
	if r.dialer == nil {
		return nil
	}
	stream, err := retry.DoValue(ctx, "live transcription dial", r.conf.DialPolicy, r.dialer.Dial)
	if err != nil {
		logger.Warn("live transcription unavailable, continuing without it", zap.Error(err))
		return nil
	}
	return stream
}

func (r *Recorder) pump(s *Session) {
	defer close(s.pumpDone)
	for chunk := range s.capture.Chunks() {
		s.mu.Lock()
		if s.cancelled {
			s.mu.Unlock()
			continue
		}
		s.chunks = append(s.chunks, chunk)
		stream := s.stream
		s.mu.Unlock()
		if stream != nil {
			if err := stream.Send(chunk); err != nil {
				logger.Warn("dropping live transcription after send failure", zap.String("session", s.ID), zap.Error(err))
				s.mu.Lock()
				s.stream = nil
				s.mu.Unlock()
				stream.Close()
			}
		}
	}
}

func (r *Recorder) listen(s *Session, stream Stream) {
	defer close(s.streamDone)
	for ev := range stream.Events() {
		s.mu.Lock()
		if s.cancelled {
			s.mu.Unlock()
			continue
		}
		if ev.IsFinal {
			if text := strings.TrimSpace(ev.Text); text != "" {
				s.finals = append(s.finals, text)
			}
			s.interim = ""
		} else {
			s.interim = ev.Text
		}
		s.mu.Unlock()
		r.emit(Event{Type: EVENT_TRANSCRIPT, SessionID: s.ID, Text: ev.Text, IsFinal: ev.IsFinal})
	}
}

// Stop ends the recording, waits briefly for trailing transcripts and
// finalizes the session.
func (r *Recorder) Stop(ctx context.Context) (*Result, error) {
	r.mu.Lock()
	s := r.session
	if s == nil || r.state != STATE_RECORDING {
		r.mu.Unlock()
		return nil, ErrNotRecording
	}
	r.state = STATE_PROCESSING
	r.mu.Unlock()
	r.emit(Event{Type: EVENT_STATE_CHANGED, SessionID: s.ID, State: STATE_PROCESSING})

	s.mu.Lock()
	stream := s.stream
	s.mu.Unlock()
	if stream != nil {
		if err := stream.Finish(); err != nil {
			logger.Debug("finishing live stream", zap.Error(err))
		}
		select {
		case <-s.streamDone:
		case <-time.After(r.conf.GracePeriod):
		case <-ctx.Done():
		}
		stream.Close()
	}
	s.capture.Stop()
	select {
	case <-s.pumpDone:
	case <-ctx.Done():
		r.fail(s, ctx.Err())
		return nil, ctx.Err()
	}
	s.mu.Lock()
	ticker, startedAt := s.ticker, s.startedAt
	s.mu.Unlock()
	ticker.Stop()
	duration := r.now().Sub(startedAt)

	s.mu.Lock()
	if s.cancelled {
		s.mu.Unlock()
		return nil, ErrCancelled
	}
	audio := bytes.Join(s.chunks, nil)
	transcript := strings.Join(s.finals, " ")
	s.mu.Unlock()

	if transcript == "" && len(audio) > 0 && r.batch != nil && r.batch.Available() {
		res, err := r.batch.TranscribeAudio(ctx, bytes.NewReader(audio), s.capture.MimeType())
		if err != nil {
			err = fmt.Errorf("fallback transcription: %w", err)
			r.fail(s, err)
			return nil, err
		}
		transcript = res.Transcript
	}
	s.capture.Close()

	result := &Result{
		Audio:      audio,
		MimeType:   s.capture.MimeType(),
		Transcript: transcript,
		Duration:   duration,
	}
	r.mu.Lock()
	if r.session != s {
		r.mu.Unlock()
		return nil, ErrCancelled
	}
	r.session = nil
	r.state = STATE_IDLE
	r.mu.Unlock()
	r.emit(Event{Type: EVENT_COMPLETE, SessionID: s.ID, Result: result, Duration: duration, Text: transcript})
	r.emit(Event{Type: EVENT_STATE_CHANGED, SessionID: s.ID, State: STATE_IDLE})
	logger.Info("recording complete", zap.String("session", s.ID), zap.Duration("duration", duration), zap.Int("bytes", len(audio)))
	return result, nil
}

// Cancel discards the current recording without finalizing it.
func (r *Recorder) Cancel() {
	r.mu.Lock()
	s := r.session
	if s == nil {
		r.mu.Unlock()
		return
	}
	r.session = nil
	r.state = STATE_IDLE
	r.mu.Unlock()

	r.teardown(s)
	r.emit(Event{Type: EVENT_STATE_CHANGED, SessionID: s.ID, State: STATE_IDLE})
	logger.Info("recording cancelled", zap.String("session", s.ID))
}

// teardown releases the media resources of s and drops its buffers.
func (r *Recorder) teardown(s *Session) {
	s.mu.Lock()
	s.cancelled = true
	s.chunks = nil
	s.finals = nil
	s.interim = ""
	stream := s.stream
	s.stream = nil
	capture := s.capture
	ticker := s.ticker
	s.mu.Unlock()

	if ticker != nil {
		ticker.Stop()
	}
	if stream != nil {
		stream.Close()
	}
	if capture != nil {
		capture.Stop()
		capture.Close()
	}
}

func (r *Recorder) fail(s *Session, err error) {
	logger.Error("recording failed", zap.String("session", s.ID), zap.Error(err))
	r.mu.Lock()
	if r.session != s {
		r.mu.Unlock()
		return
	}
	r.state = STATE_ERROR
	r.session = nil
	r.mu.Unlock()
	r.teardown(s)
	r.emit(Event{Type: EVENT_ERROR, SessionID: s.ID, Err: err})
	r.emit(Event{Type: EVENT_STATE_CHANGED, SessionID: s.ID, State: STATE_ERROR})
}

var _ StreamDialer = LiveDialer{}

var _ Stream = (*transcribe.LiveStream)(nil)

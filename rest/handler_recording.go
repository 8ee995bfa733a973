package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/mohitkumar/canvasflow/logger"
	"github.com/mohitkumar/canvasflow/recording"
	"go.uber.org/zap"
)

const DEFAULT_RECORDING_MIME_TYPE = "audio/webm"

const ACTION_START = "start"
const ACTION_STOP = "stop"
const ACTION_CANCEL = "cancel"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type recordingCommand struct {
	Action string `json:"action"`
}

type recordingMessage struct {
	Type       recording.EventType `json:"type"`
	SessionID  string              `json:"sessionId,omitempty"`
	State      recording.State     `json:"state,omitempty"`
	Text       string              `json:"text,omitempty"`
	IsFinal    bool                `json:"isFinal,omitempty"`
	DurationMs int64               `json:"durationMs,omitempty"`
	AudioBytes int                 `json:"audioBytes,omitempty"`
	MimeType   string              `json:"mimeType,omitempty"`
	Error      string              `json:"error,omitempty"`
}

func toMessage(e recording.Event) recordingMessage {
	msg := recordingMessage{
		Type:       e.Type,
		SessionID:  e.SessionID,
		State:      e.State,
		Text:       e.Text,
		IsFinal:    e.IsFinal,
		DurationMs: e.Duration.Milliseconds(),
	}
	if e.Result != nil {
		msg.AudioBytes = len(e.Result.Audio)
		msg.MimeType = e.Result.MimeType
	}
	if e.Err != nil {
		msg.Error = e.Err.Error()
	}
	return msg
}

// socketWriter serializes writes; a websocket allows one concurrent writer.
type socketWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (sw *socketWriter) write(msg recordingMessage) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if err := sw.conn.WriteJSON(msg); err != nil {
		logger.Debug("error writing recording event", zap.Error(err))
	}
}

// HandleRecording runs one recorder per websocket connection. Binary
// frames carry audio chunks, text frames carry {"action": "start|stop|cancel"}.
// Recorder events are written back as JSON text frames.
func (s *Server) HandleRecording(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("error upgrading recording connection", zap.Error(err))
		return
	}
	defer conn.Close()

	mimeType := r.URL.Query().Get("mimeType")
	if mimeType == "" {
		mimeType = DEFAULT_RECORDING_MIME_TYPE
	}
	source := recording.NewPushSource(mimeType)
	recorder := recording.NewRecorder(source, s.dialer, s.batch, s.recordingConf)
	writer := &socketWriter{conn: conn}

	events, detach := recorder.Subscribe()
	forwarded := make(chan struct{})
	go func() {
		defer close(forwarded)
		for e := range events {
			writer.write(toMessage(e))
		}
	}()
	var stops sync.WaitGroup
	defer func() {
		recorder.Cancel()
		stops.Wait()
		detach()
		<-forwarded
	}()

	ctx := r.Context()
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("recording connection closed", zap.Error(err))
			}
			return
		}
		switch messageType {
		case websocket.BinaryMessage:
			if err := source.Push(data); err != nil {
				writer.write(recordingMessage{Type: recording.EVENT_ERROR, Error: err.Error()})
			}
		case websocket.TextMessage:
			var cmd recordingCommand
			if err := json.Unmarshal(data, &cmd); err != nil {
				writer.write(recordingMessage{Type: recording.EVENT_ERROR, Error: "invalid command"})
				continue
			}
			switch cmd.Action {
			case ACTION_START:
				if _, err := recorder.Start(ctx); err != nil && errors.Is(err, recording.ErrAlreadyRecording) {
					writer.write(recordingMessage{Type: recording.EVENT_ERROR, Error: err.Error()})
				}
			case ACTION_STOP:
				// Stop waits for trailing transcripts; reads keep flowing meanwhile
				// so a cancel can still arrive.
				stops.Add(1)
				go func() {
					defer stops.Done()
					_, err := recorder.Stop(ctx)
					if errors.Is(err, recording.ErrNotRecording) {
						writer.write(recordingMessage{Type: recording.EVENT_ERROR, Error: err.Error()})
					}
				}()
			case ACTION_CANCEL:
				recorder.Cancel()
			default:
				writer.write(recordingMessage{Type: recording.EVENT_ERROR, Error: "unknown action " + cmd.Action})
			}
		}
	}
}

package transcribe

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/mohitkumar/canvasflow/logger"
	"go.uber.org/zap"
)

// StreamEvent is one transcript update from a live connection. Interim
// events for an utterance are superseded until the final one arrives.
type StreamEvent struct {
	Text    string
	IsFinal bool
}

type liveMessage struct {
	Type    string `json:"type"`
	IsFinal bool   `json:"is_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`
}

type LiveStream struct {
	conn    *websocket.Conn
	events  chan StreamEvent
	writeMu sync.Mutex
	once    sync.Once
}

func (c *Client) liveURL() string {
	q := url.Values{}
	q.Set("model", c.conf.Model)
	q.Set("punctuate", "true")
	q.Set("smart_format", "true")
	q.Set("interim_results", "true")
	if c.conf.Language != "" {
		q.Set("language", c.conf.Language)
	}
	return c.conf.LiveURL + "?" + q.Encode()
}

// DialLive opens a streaming transcription connection.
func (c *Client) DialLive(ctx context.Context) (*LiveStream, error) {
	if !c.Available() {
		return nil, ErrNotConfigured
	}
	header := http.Header{}
	header.Set("Authorization", "Token "+c.conf.APIKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.liveURL(), header)
	if err != nil {
		return nil, err
	}
	ls := &LiveStream{
		conn:   conn,
		events: make(chan StreamEvent, 64),
	}
	go ls.readLoop()
	return ls, nil
}

func (ls *LiveStream) readLoop() {
	defer close(ls.events)
	for {
		_, data, err := ls.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				logger.Debug("live transcription stream ended", zap.Error(err))
			}
			return
		}
		var msg liveMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Type != "" && msg.Type != "Results" {
			continue
		}
		if len(msg.Channel.Alternatives) == 0 {
			continue
		}
		text := msg.Channel.Alternatives[0].Transcript
		if text == "" && !msg.IsFinal {
			continue
		}
		ls.events <- StreamEvent{Text: text, IsFinal: msg.IsFinal}
	}
}

// Events is closed when the connection ends.
func (ls *LiveStream) Events() <-chan StreamEvent {
	return ls.events
}

func (ls *LiveStream) Send(audio []byte) error {
	ls.writeMu.Lock()
	defer ls.writeMu.Unlock()
	return ls.conn.WriteMessage(websocket.BinaryMessage, audio)
}

// Finish tells the service no more audio follows so it flushes final results.
func (ls *LiveStream) Finish() error {
	ls.writeMu.Lock()
	defer ls.writeMu.Unlock()
	return ls.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CloseStream"}`))
}

func (ls *LiveStream) Close() error {
	var err error
	ls.once.Do(func() {
		err = ls.conn.Close()
	})
	return err
}

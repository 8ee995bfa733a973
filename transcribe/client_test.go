package transcribe

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mohitkumar/canvasflow/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const okResponse = `{
	"results": {
		"channels": [{
			"detected_language": "en",
			"alternatives": [{
				"transcript": "hello world",
				"confidence": 0.97,
				"words": [{"word": "hello", "start": 0.1, "end": 0.4, "confidence": 0.98}, {"word": "world", "start": 0.5, "end": 0.9, "confidence": 0.96}]
			}]
		}]
	}
}`

func fastPolicy() retry.Policy {
	return retry.Policy{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Multiplier: 2}
}

func TestParseResponse(t *testing.T) {
	res, err := ParseResponse([]byte(okResponse))
	require.NoError(t, err)
	require.Equal(t, "hello world", res.Transcript)
	require.InDelta(t, 0.97, res.Confidence, 0.0001)
	require.Equal(t, "en", res.Language)
	require.Len(t, res.Words, 2)
	require.Equal(t, "world", res.Words[1].Word)
}

func TestParseResponseMalformed(t *testing.T) {
	for name, payload := range map[string]string{
		"not json":         `nope`,
		"no results":       `{}`,
		"no channels":      `{"results": {"channels": []}}`,
		"no alternatives":  `{"results": {"channels": [{"alternatives": []}]}}`,
		"null results":     `{"results": null}`,
		"null channels":    `{"results": {"channels": null}}`,
		"null channel":     `{"results": {"channels": [null]}}`,
		"null alternative": `{"results": {"channels": [{"alternatives": null}]}}`,
		"channels object":  `{"results": {"channels": {"alternatives": []}}}`,
		"no words":         `{"results": {"channels": [{"alternatives": [{"transcript": "x", "confidence": 1}]}]}}`,
		"transcript type":  `{"results": {"channels": [{"alternatives": [{"transcript": 5, "confidence": 1, "words": []}]}]}}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseResponse([]byte(payload))
			require.ErrorIs(t, err, ErrMalformedResponse)
		})
	}
}

func TestTranscribeAudio(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		assert.Equal(t, "Token key", r.Header.Get("Authorization"))
		assert.Equal(t, "true", r.URL.Query().Get("detect_language"))
		assert.Equal(t, "true", r.URL.Query().Get("paragraphs"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "audio-bytes", string(body))
		if n == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(okResponse))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "key", BaseURL: server.URL, Policy: fastPolicy()})
	res, err := client.TranscribeAudio(context.Background(), strings.NewReader("audio-bytes"), "audio/mpeg")
	require.NoError(t, err)
	require.Equal(t, "hello world", res.Transcript)
	require.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestTranscribeURLMalformedIsNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "https://cdn/audio.mp3", body["url"])
		w.Write([]byte(`{"results": {}}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "key", BaseURL: server.URL, Policy: fastPolicy()})
	_, err := client.TranscribeURL(context.Background(), "https://cdn/audio.mp3")
	require.ErrorIs(t, err, ErrMalformedResponse)
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestNotConfigured(t *testing.T) {
	client := NewClient(Config{})
	require.False(t, client.Available())
	_, err := client.TranscribeURL(context.Background(), "x")
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestLiveStream(t *testing.T) {
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("interim_results"))
		conn, err := upgrader.Upgrade(w, r, nil)
		assert.NoError(t, err)
		defer conn.Close()
		_, audio, err := conn.ReadMessage()
		assert.NoError(t, err)
		assert.Equal(t, "chunk", string(audio))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"Results","is_final":false,"channel":{"alternatives":[{"transcript":"hel"}]}}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"Metadata"}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"Results","is_final":true,"channel":{"alternatives":[{"transcript":"hello"}]}}`))
		_, closeMsg, err := conn.ReadMessage()
		assert.NoError(t, err)
		assert.Contains(t, string(closeMsg), "CloseStream")
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	client := NewClient(Config{APIKey: "key", LiveURL: wsURL})
	stream, err := client.DialLive(context.Background())
	require.NoError(t, err)
	defer stream.Close()

	require.NoError(t, stream.Send([]byte("chunk")))
	first := <-stream.Events()
	require.Equal(t, StreamEvent{Text: "hel", IsFinal: false}, first)
	second := <-stream.Events()
	require.Equal(t, StreamEvent{Text: "hello", IsFinal: true}, second)
	require.NoError(t, stream.Finish())

	select {
	case _, ok := <-stream.Events():
		require.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not close")
	}
}

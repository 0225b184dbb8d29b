package live

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/voxstream/voxstream/internal/config"
	"github.com/voxstream/voxstream/internal/metrics"
)

// newSessionServer runs script against each accepted websocket after
// completing the setup handshake on behalf of the fake server.
func newSessionServer(t *testing.T, script func(conn *websocket.Conn)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		var envelope clientEnvelope
		require.NoError(t, conn.ReadJSON(&envelope))
		require.NotNil(t, envelope.Setup, "first client frame must be setup")

		require.NoError(t, conn.WriteJSON(map[string]any{"setupComplete": map[string]any{}}))
		if script != nil {
			script(conn)
		}
	}))
}

func newTestClient(t *testing.T, serverURL string, handlers Handlers) Client {
	t.Helper()
	cfg := &config.Config{
		Live: config.LiveConfig{
			URL:    serverURL,
			APIKey: "test-key",
			Model:  "models/test-live",
		},
	}
	c := NewClient(zaptest.NewLogger(t), cfg, handlers, metrics.New(prometheus.NewRegistry()))
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestClientHandshakeAndDispatch(t *testing.T) {
	type received struct {
		kind string
		data string
	}
	events := make(chan received, 16)

	server := newSessionServer(t, func(conn *websocket.Conn) {
		frames := []string{
			`{"serverContent":{"modelTurn":{"parts":[{"inlineData":{"mimeType":"audio/pcm;rate=24000","data":"AAECAw=="}}]}}}`,
			`{"serverContent":{"modelTurn":{"parts":[{"text":"hello"}]}}}`,
			`{"serverContent":{"turnComplete":true}}`,
			`{"serverContent":{"interrupted":true}}`,
			`{"toolCall":{"functionCalls":[{"id":"call-1","name":"lookup"}]}}`,
		}
		for _, frame := range frames {
			require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))
		}
		// Hold the connection open until the client disconnects.
		_, _, _ = conn.ReadMessage()
	})
	defer server.Close()

	handlers := Handlers{
		OnAudio:        func(mimeType, data string) { events <- received{"audio", data} },
		OnText:         func(text string) { events <- received{"text", text} },
		OnTurnComplete: func() { events <- received{kind: "turn_complete"} },
		OnInterrupted:  func() { events <- received{kind: "interrupted"} },
		OnToolCall:     func(call ToolCall) { events <- received{"tool_call", call.FunctionCalls[0].Name} },
	}

	c := newTestClient(t, server.URL, handlers)
	require.NoError(t, c.Connect(context.Background()))

	want := []received{
		{"audio", "AAECAw=="},
		{"text", "hello"},
		{kind: "turn_complete"},
		{kind: "interrupted"},
		{"tool_call", "lookup"},
	}
	for _, expected := range want {
		select {
		case got := <-events:
			assert.Equal(t, expected, got)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %s event", expected.kind)
		}
	}
}

func TestClientRejectsBadSetupAck(t *testing.T) {
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		var envelope clientEnvelope
		require.NoError(t, conn.ReadJSON(&envelope))
		require.NoError(t, conn.WriteMessage(websocket.TextMessage,
			[]byte(`{"serverContent":{"turnComplete":true}}`)))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, Handlers{})
	err := c.Connect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "setup ack")
}

func TestClientSendFrames(t *testing.T) {
	frames := make(chan clientEnvelope, 2)
	server := newSessionServer(t, func(conn *websocket.Conn) {
		for i := 0; i < 2; i++ {
			var envelope clientEnvelope
			if err := conn.ReadJSON(&envelope); err != nil {
				return
			}
			frames <- envelope
		}
	})
	defer server.Close()

	c := newTestClient(t, server.URL, Handlers{})
	require.NoError(t, c.Connect(context.Background()))

	require.NoError(t, c.SendText("what is the weather"))
	require.NoError(t, c.SendAudio([]byte{0x01, 0x02}))

	select {
	case envelope := <-frames:
		require.NotNil(t, envelope.ClientContent)
		assert.True(t, envelope.ClientContent.TurnComplete)
		require.Len(t, envelope.ClientContent.Turns, 1)
		assert.Equal(t, "user", envelope.ClientContent.Turns[0].Role)
		assert.Equal(t, "what is the weather", envelope.ClientContent.Turns[0].Parts[0].Text)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for text frame")
	}

	select {
	case envelope := <-frames:
		require.NotNil(t, envelope.RealtimeInput)
		require.Len(t, envelope.RealtimeInput.MediaChunks, 1)
		assert.Equal(t, "audio/pcm", envelope.RealtimeInput.MediaChunks[0].MIMEType)
		assert.Equal(t, "AQI=", envelope.RealtimeInput.MediaChunks[0].Data)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for audio frame")
	}
}

func TestClientSendBeforeConnect(t *testing.T) {
	c := newTestClient(t, "http://localhost:1", Handlers{})
	require.Error(t, c.SendText("hello"))
}

func TestClientRejectsBadScheme(t *testing.T) {
	c := newTestClient(t, "ftp://example.com/live", Handlers{})
	err := c.Connect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ftp")
}

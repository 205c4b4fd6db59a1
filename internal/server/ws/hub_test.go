package ws

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/fantasybet/internal/domain"
)

type chanBus struct {
	domain.SignalBus
	ch chan []byte
}

func (b *chanBus) Subscribe(context.Context, string) (<-chan []byte, error) {
	return b.ch, nil
}

type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	kind, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, kind)
	var f frame
	require.NoError(t, json.Unmarshal(data, &f))
	return f
}

func TestHubBroadcastsSettlements(t *testing.T) {
	bus := &chanBus{ch: make(chan []byte, 4)}
	hub := NewHub(bus, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = hub.Run(ctx) }()

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, "hello", readFrame(t, conn).Type)

	bus.ch <- []byte("not json")
	bus.ch <- []byte(`{"match_id":3}`)

	f := readFrame(t, conn)
	assert.Equal(t, "settlement", f.Type)
	assert.JSONEq(t, `{"match_id":3}`, string(f.Payload))
}

func TestHubRejectsForeignOrigin(t *testing.T) {
	hub := NewHub(&chanBus{ch: make(chan []byte)}, []string{"https://app.example"},
		slog.New(slog.NewTextHandler(io.Discard, nil)))

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	header := http.Header{"Origin": []string{"https://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

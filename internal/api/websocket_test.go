package api

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialHub(t *testing.T) (*Hub, *websocket.Conn) {
	t.Helper()

	hub := NewHub()
	e := echo.New()
	e.GET("/api/ws/progress", hub.HandleWebSocket)

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/progress"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return hub, conn
}

func TestHubBroadcastProgress(t *testing.T) {
	hub, conn := dialHub(t)

	// The registration happens in the handler goroutine; wait for it.
	require.Eventually(t, func() bool {
		hub.mu.Lock()
		defer hub.mu.Unlock()
		return len(hub.conns) == 1
	}, time.Second, 5*time.Millisecond)

	hub.BroadcastProgress(42)

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, EventProgress, ev.Type)
	assert.Equal(t, 42, ev.Progress)
	assert.NotZero(t, ev.Timestamp)
}

func TestHubDataChanged(t *testing.T) {
	hub, conn := dialHub(t)

	require.Eventually(t, func() bool {
		hub.mu.Lock()
		defer hub.mu.Unlock()
		return len(hub.conns) == 1
	}, time.Second, 5*time.Millisecond)

	hub.BroadcastDataChanged()

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, EventDataChanged, ev.Type)
}

func TestHubPingPong(t *testing.T) {
	_, conn := dialHub(t)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, EventPong, ev.Type)
}

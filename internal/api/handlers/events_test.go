package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/folio/backend/internal/contracts"
	"github.com/wonny/folio/backend/pkg/logger"
)

func dialHub(t *testing.T, hub *EventHub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(hub.Stream))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 10*time.Millisecond)
	return conn
}

func TestEventHubStreamsRuns(t *testing.T) {
	hub := NewEventHub(logger.NewNop())
	conn := dialHub(t, hub)

	hub.Publish(&contracts.RunStats{RunID: "run-42", Trigger: "cron", TotalUsers: 4, Successful: 3, Failed: 1})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got map[string]interface{}
	require.NoError(t, conn.ReadJSON(&got))

	assert.Equal(t, "run-42", got["run_id"])
	assert.Equal(t, "cron", got["trigger"])
	assert.Equal(t, float64(1), got["failed"])
}

func TestEventHubUnsubscribesOnClose(t *testing.T) {
	hub := NewEventHub(logger.NewNop())
	conn := dialHub(t, hub)

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
	require.NoError(t, conn.WriteMessage(websocket.CloseMessage, msg))

	assert.Eventually(t, func() bool { return hub.Subscribers() == 0 }, time.Second, 10*time.Millisecond)
}

func TestEventHubPublishNeverBlocks(t *testing.T) {
	hub := NewEventHub(logger.NewNop())
	ch := hub.subscribe()
	defer hub.unsubscribe(ch)

	done := make(chan struct{})
	go func() {
		for i := 0; i < clientBuffer*2; i++ {
			hub.Publish(&contracts.RunStats{})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}
	assert.Len(t, ch, clientBuffer)
}

func TestEventHubRejectsPlainHTTP(t *testing.T) {
	hub := NewEventHub(logger.NewNop())

	rec := serve(http.HandlerFunc(hub.Stream), "GET", "/api/scheduler/events", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, hub.Subscribers())
}

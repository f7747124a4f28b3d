package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cx-tal-miterani/fare-booking/internal/events"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(nil)
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, r.URL.Query().Get("booking"))
	}))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, bookingID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?booking=" + bookingID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHub_DeliversOnlyToBookingSubscribers(t *testing.T) {
	hub, srv := startHub(t)

	watching := dial(t, srv, "b-1")
	other := dial(t, srv, "b-2")

	require.Eventually(t, func() bool {
		return hub.ClientCount("b-1") == 1 && hub.ClientCount("b-2") == 1
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Publish(context.Background(), events.Event{
		Type:      events.TypeTicketed,
		BookingID: "b-1",
		Status:    "ticketed",
	}))

	_ = watching.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := watching.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, events.TypeTicketed, msg.Type)
	assert.Equal(t, "b-1", msg.BookingID)

	_ = other.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err = other.ReadMessage()
	assert.Error(t, err, "subscribers of another booking receive nothing")
}

func TestHub_UnregistersClosedConnections(t *testing.T) {
	hub, srv := startHub(t)

	conn := dial(t, srv, "b-1")
	require.Eventually(t, func() bool { return hub.ClientCount("b-1") == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.ClientCount("b-1") == 0 }, time.Second, 10*time.Millisecond)
}

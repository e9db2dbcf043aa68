package ws

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialTestHub(t *testing.T, h *Hub) (*httptest.Server, *websocket.Conn) {
	t.Helper()

	srv := httptest.NewServer(h)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	return srv, conn
}

func waitForClients(t *testing.T, h *Hub, want int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for h.ClientCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("client count never reached %d, have %d", want, h.ClientCount())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHubBroadcastReachesClient(t *testing.T) {
	h := NewHub()
	srv, conn := dialTestHub(t, h)
	defer srv.Close()
	defer conn.Close()

	waitForClients(t, h, 1)

	h.Broadcast("transaction_status_updated", map[string]any{
		"transaction_id": "7e0f0a7e-9e9e-4a7e-8f2a-000000000001",
		"status":         "completed",
	})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var evt Event
	require.NoError(t, json.Unmarshal(payload, &evt))
	assert.Equal(t, "transaction_status_updated", evt.Type)
	assert.False(t, evt.Timestamp.IsZero())

	data, ok := evt.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "completed", data["status"])
}

func TestHubDisconnectedClientIsRemoved(t *testing.T) {
	h := NewHub()
	srv, conn := dialTestHub(t, h)
	defer srv.Close()

	waitForClients(t, h, 1)

	require.NoError(t, conn.Close())
	waitForClients(t, h, 0)

	// Broadcasting to an empty hub is a no-op.
	h.Broadcast("qr_code_expired", nil)
}

func TestHubFansOutToAllClients(t *testing.T) {
	h := NewHub()
	srv := httptest.NewServer(h)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	conns := make([]*websocket.Conn, 0, 3)
	for i := 0; i < 3; i++ {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		require.NoError(t, err)
		defer conn.Close()
		conns = append(conns, conn)
	}
	waitForClients(t, h, 3)

	h.Broadcast("settlement_status_updated", map[string]any{"status": "approved"})

	for _, conn := range conns {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, payload, err := conn.ReadMessage()
		require.NoError(t, err)

		var evt Event
		require.NoError(t, json.Unmarshal(payload, &evt))
		assert.Equal(t, "settlement_status_updated", evt.Type)
	}
}

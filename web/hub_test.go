package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gamestake/events"
	"gamestake/models"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialHub(t *testing.T, h *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	return conn
}

func TestHub_ForwardsBusEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	go hub.Run(ctx)

	bus := events.NewBus()
	hub.Subscribe(bus)
	conn := dialHub(t, hub)

	bus.Emit(ctx, events.TokensPurchasedEvent{
		Buyer:      "0xabc",
		USDTAmount: decimal.NewFromInt(10),
		GTOut:      decimal.NewFromInt(200),
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Type string `json:"type"`
		Data struct {
			Buyer string `json:"buyer"`
			GTOut string `json:"gtOut"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(payload, &msg))
	assert.Equal(t, string(events.EventTypeTokensPurchased), msg.Type)
	assert.Equal(t, "0xabc", msg.Data.Buyer)
	assert.Equal(t, "200", msg.Data.GTOut)
}

func TestHub_IgnoresAlerts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	go hub.Run(ctx)

	bus := events.NewBus()
	hub.Subscribe(bus)
	conn := dialHub(t, hub)

	bus.Emit(ctx, events.ConsistencyAlertEvent{Category: events.AlertCategoryConflict})
	bus.Emit(ctx, events.MatchUpdatedEvent{
		Match: &models.MatchRecord{MatchID: "0x07", Status: models.MatchStatusStaked},
		Cause: models.EventKindStaked,
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"type":"match_updated"`)
	assert.Contains(t, string(payload), `"matchId":"0x07"`)
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	done := make(chan error, 1)
	go func() { done <- hub.Run(ctx) }()

	conn := dialHub(t, hub)
	cancel()
	require.NoError(t, <-done)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
	assert.Equal(t, 0, hub.ClientCount())
}

package live

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripgenie/mq"
)

func TestHubRoutesEventsToTheirRoom(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	mine := &Client{Send: make(chan []byte, 4), Room: "it-1"}
	other := &Client{Send: make(chan []byte, 4), Room: "it-2"}
	hub.register <- mine
	hub.register <- other

	hub.Publish(mq.Event{Type: mq.BookingCreated, Itinerary: "it-1", IsBooked: true})

	select {
	case data := <-mine.Send:
		var evt mq.Event
		require.NoError(t, json.Unmarshal(data, &evt))
		assert.Equal(t, mq.BookingCreated, evt.Type)
		assert.True(t, evt.IsBooked)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
	select {
	case <-other.Send:
		t.Fatal("event leaked into another room")
	case <-time.After(50 * time.Millisecond):
	}

	hub.unregister <- mine
}

func TestWebSocketSubscriber(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	router := httprouter.New()
	router.GET("/ws/itineraries/:id", WebSocketHandler(hub))
	srv := httptest.NewServer(router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/itineraries/it-9"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// registration is asynchronous; publish until the subscriber hears it
	deadline := time.Now().Add(2 * time.Second)
	_ = conn.SetReadDeadline(deadline)
	got := make(chan mq.Event, 1)
	go func() {
		var evt mq.Event
		if err := conn.ReadJSON(&evt); err == nil {
			got <- evt
		}
	}()
	for time.Now().Before(deadline) {
		hub.Publish(mq.Event{Type: mq.ItineraryToggled, Itinerary: "it-9", IsActivated: true})
		select {
		case evt := <-got:
			assert.Equal(t, mq.ItineraryToggled, evt.Type)
			assert.True(t, evt.IsActivated)
			return
		case <-time.After(20 * time.Millisecond):
		}
	}
	t.Fatal("subscriber never received the event")
}

package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/ukydev/road-monitor/internal/classifier"
	"github.com/ukydev/road-monitor/internal/db"
	"github.com/ukydev/road-monitor/internal/fanout"
	"github.com/ukydev/road-monitor/internal/models"
)

func newWSTestServer(t *testing.T) (*httptest.Server, *fanout.Hub, *db.MemoryRecordCollection) {
	t.Helper()
	hub := fanout.NewHub()
	coll := db.NewMemoryRecordCollection()

	router := mux.NewRouter()
	NewRecordsHandler(coll, hub).RegisterRoutes(router)
	NewWSHandler(hub).RegisterRoutes(router)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, hub, coll
}

func dialWS(t *testing.T, server *httptest.Server, userID string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/" + userID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForSubscribers(t *testing.T, hub *fanout.Hub, userID int64, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.SubscriberCount(userID) == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("user %d never reached %d subscribers", userID, want)
}

func TestSubscribe_ReceivesIngestedRecord(t *testing.T) {
	server, hub, _ := newWSTestServer(t)

	subscribed := dialWS(t, server, "7")
	other := dialWS(t, server, "8")
	waitForSubscribers(t, hub, 7, 1)
	waitForSubscribers(t, hub, 8, 1)

	batch := []models.ProcessedAgentData{classifier.Process(testReading(7, 6, 0))}
	body := ingestBody(t, batch)
	resp, err := http.Post(server.URL+"/processed_agent_data", "application/json", body)
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	subscribed.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, message, err := subscribed.ReadMessage()
	assert.NoError(t, err)

	var got models.ProcessedAgentDataRecord
	assert.NoError(t, json.Unmarshal(message, &got))
	assert.Equal(t, int64(1), got.ID)
	assert.Equal(t, int64(7), got.UserID)
	assert.Equal(t, models.RoadStatePit, got.RoadState)

	// The user 8 subscriber receives nothing.
	other.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err = other.ReadMessage()
	assert.Error(t, err)
}

func TestSubscribe_PerUserDeliveryOrder(t *testing.T) {
	server, hub, _ := newWSTestServer(t)

	conn := dialWS(t, server, "7")
	waitForSubscribers(t, hub, 7, 1)

	batch := []models.ProcessedAgentData{
		classifier.Process(testReading(7, 6, 0)),
		classifier.Process(testReading(7, 0, 6)),
		classifier.Process(testReading(7, 0, 0)),
	}
	resp, err := http.Post(server.URL+"/processed_agent_data", "application/json", ingestBody(t, batch))
	assert.NoError(t, err)
	defer resp.Body.Close()

	wantStates := []string{models.RoadStatePit, models.RoadStateWaves, models.RoadStateNormal}
	for i, want := range wantStates {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, message, err := conn.ReadMessage()
		assert.NoError(t, err)
		var got models.ProcessedAgentDataRecord
		assert.NoError(t, json.Unmarshal(message, &got))
		assert.Equal(t, int64(i+1), got.ID, "delivery out of order")
		assert.Equal(t, want, got.RoadState)
	}
}

func TestSubscribe_KeepAliveMessagesIgnored(t *testing.T) {
	server, hub, _ := newWSTestServer(t)

	conn := dialWS(t, server, "7")
	waitForSubscribers(t, hub, 7, 1)

	assert.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("ping")))

	resp, err := http.Post(server.URL+"/processed_agent_data", "application/json",
		ingestBody(t, []models.ProcessedAgentData{classifier.Process(testReading(7, 0, 0))}))
	assert.NoError(t, err)
	defer resp.Body.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, message, err := conn.ReadMessage()
	assert.NoError(t, err)
	assert.Contains(t, string(message), models.RoadStateNormal)
}

func TestSubscribe_DisconnectCleansUp(t *testing.T) {
	server, hub, _ := newWSTestServer(t)

	conn := dialWS(t, server, "7")
	waitForSubscribers(t, hub, 7, 1)

	conn.Close()
	waitForSubscribers(t, hub, 7, 0)

	// Publishing after the disconnect must not panic or deliver anywhere.
	hub.Publish(7, models.ProcessedAgentDataRecord{ID: 99, UserID: 7})
}

func TestSubscribe_InvalidUserID(t *testing.T) {
	server, _, _ := newWSTestServer(t)

	resp, err := http.Get(server.URL + "/ws/abc")
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

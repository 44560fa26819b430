package handler

import (
	"encoding/json"
	"sync"
	"testing"
	"time"
)

func newTestConn(playerID string) *WSConn {
	return &WSConn{
		conn:     nil, // no real connection for hub tests
		playerID: playerID,
		send:     make(chan []byte, 256),
	}
}

func TestHubRegisterUnregister(t *testing.T) {
	hub := NewHub()
	c := newTestConn("player-1")

	hub.Register(c)
	if hub.ConnectionCount() != 1 {
		t.Errorf("expected 1 connection, got %d", hub.ConnectionCount())
	}

	hub.Unregister(c)
	if hub.ConnectionCount() != 0 {
		t.Errorf("expected 0 connections, got %d", hub.ConnectionCount())
	}
}

func TestHubSubscribeUnsubscribe(t *testing.T) {
	hub := NewHub()
	c := newTestConn("player-1")
	hub.Register(c)
	defer hub.Unregister(c)

	hub.Subscribe(c, "game-1")
	if hub.GameSubscriberCount("game-1") != 1 {
		t.Errorf("expected 1 subscriber, got %d", hub.GameSubscriberCount("game-1"))
	}

	if still := hub.Unsubscribe(c, "game-1"); still {
		t.Error("player should be gone after their only connection unsubscribes")
	}
	if hub.GameSubscriberCount("game-1") != 0 {
		t.Errorf("expected 0 subscribers, got %d", hub.GameSubscriberCount("game-1"))
	}
}

func TestHubUnsubscribeKeepsSecondConnection(t *testing.T) {
	hub := NewHub()
	c1 := newTestConn("player-1")
	c2 := newTestConn("player-1") // same player, second tab
	hub.Register(c1)
	hub.Register(c2)
	defer hub.Unregister(c2)

	hub.Subscribe(c1, "game-1")
	hub.Subscribe(c2, "game-1")

	if still := hub.Unsubscribe(c1, "game-1"); !still {
		t.Error("player still has a connection on the game")
	}
	hub.Unregister(c1)
}

func TestHubBroadcastToGame(t *testing.T) {
	hub := NewHub()
	c1 := newTestConn("player-1")
	c2 := newTestConn("player-2")
	c3 := newTestConn("player-3") // not subscribed

	hub.Register(c1)
	hub.Register(c2)
	hub.Register(c3)
	defer hub.Unregister(c1)
	defer hub.Unregister(c2)
	defer hub.Unregister(c3)

	hub.Subscribe(c1, "game-1")
	hub.Subscribe(c2, "game-1")

	hub.BroadcastToGame("game-1", WSEvent{
		Type:   "TURN_ENDED",
		GameID: "game-1",
		Data:   map[string]int{"turnNumber": 4},
	})

	// c1 and c2 should receive, c3 should not
	select {
	case msg := <-c1.send:
		var event WSEvent
		json.Unmarshal(msg, &event)
		if event.Type != "TURN_ENDED" {
			t.Errorf("expected TURN_ENDED, got %s", event.Type)
		}
	case <-time.After(time.Second):
		t.Error("c1 did not receive broadcast")
	}

	select {
	case <-c2.send:
		// ok
	case <-time.After(time.Second):
		t.Error("c2 did not receive broadcast")
	}

	select {
	case <-c3.send:
		t.Error("c3 should not have received broadcast")
	default:
		// ok
	}
}

func TestHubBroadcastToPlayer(t *testing.T) {
	hub := NewHub()
	c1 := newTestConn("player-1")
	c2 := newTestConn("player-1") // same player, two connections
	c3 := newTestConn("player-2")

	hub.Register(c1)
	hub.Register(c2)
	hub.Register(c3)
	defer hub.Unregister(c1)
	defer hub.Unregister(c2)
	defer hub.Unregister(c3)

	hub.BroadcastToPlayer("player-1", WSEvent{
		Type:   EventError,
		GameID: "game-1",
		Data:   map[string]string{"error": "nope"},
	})

	// Both c1 and c2 should receive (same player), c3 should not
	for _, c := range []*WSConn{c1, c2} {
		select {
		case <-c.send:
			// ok
		case <-time.After(time.Second):
			t.Errorf("connection for player-1 did not receive broadcast")
		}
	}

	select {
	case <-c3.send:
		t.Error("player-2 should not have received player-1's message")
	default:
		// ok
	}
}

func TestHubUnregisterReportsLastGames(t *testing.T) {
	hub := NewHub()
	c := newTestConn("player-1")
	hub.Register(c)
	hub.Subscribe(c, "game-1")
	hub.Subscribe(c, "game-2")

	lastGames := hub.Unregister(c)

	if len(lastGames) != 2 {
		t.Errorf("expected 2 last games, got %v", lastGames)
	}
	if hub.GameSubscriberCount("game-1") != 0 {
		t.Errorf("expected 0 subscribers for game-1 after unregister")
	}
	if hub.GameSubscriberCount("game-2") != 0 {
		t.Errorf("expected 0 subscribers for game-2 after unregister")
	}
}

func TestHubUnregisterKeepsPresentPlayer(t *testing.T) {
	hub := NewHub()
	c1 := newTestConn("player-1")
	c2 := newTestConn("player-1")
	hub.Register(c1)
	hub.Register(c2)
	hub.Subscribe(c1, "game-1")
	hub.Subscribe(c2, "game-1")

	if lastGames := hub.Unregister(c1); len(lastGames) != 0 {
		t.Errorf("player still connected via c2, got last games %v", lastGames)
	}
	hub.Unregister(c2)
}

func TestHubConcurrentAccess(t *testing.T) {
	hub := NewHub()
	var wg sync.WaitGroup

	// Concurrently register, subscribe, broadcast, unregister
	for i := range 50 {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			c := newTestConn("player")
			hub.Register(c)
			hub.Subscribe(c, "game-1")
			hub.BroadcastToGame("game-1", WSEvent{Type: "test", GameID: "game-1"})
			hub.Unsubscribe(c, "game-1")
			hub.Unregister(c)
		}(i)
	}

	wg.Wait()
	if hub.ConnectionCount() != 0 {
		t.Errorf("expected 0 connections after concurrent test, got %d", hub.ConnectionCount())
	}
}

func TestClientMessageMoveFields(t *testing.T) {
	raw := `{"action":"move","game_id":"g1","piece_id":"p-warrior-1","destination":{"q":2,"r":-1},"turn_number":7}`
	var msg ClientMessage
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Action != "move" || msg.PieceID != "p-warrior-1" {
		t.Errorf("parsed = %+v", msg)
	}
	if msg.Destination == nil || msg.Destination.Q != 2 || msg.Destination.R != -1 {
		t.Errorf("destination = %+v", msg.Destination)
	}
	if msg.TurnNumber == nil || *msg.TurnNumber != 7 {
		t.Errorf("turn_number = %v", msg.TurnNumber)
	}
}

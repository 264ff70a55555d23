package services

import (
	"sync"
	"testing"
	"time"
)

func (h *Hub) hasClient(client *Client) bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	_, ok := h.clients[client]
	return ok
}

func waitForClient(t *testing.T, hub *Hub, client *Client, present bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if hub.hasClient(client) == present {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("client presence = %v, want %v", hub.hasClient(client), present)
}

// A client whose send buffer stays full gets evicted, and concurrent
// broadcasts racing on that eviction must neither panic nor corrupt the
// client map. Every playing session broadcasts from its own timer goroutine,
// so this pairing is routine.
func TestBroadcastEvictsStalledClientSafely(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()

	client := &Client{hub: hub, id: "stalled", send: make(chan []byte, 1), sessionID: "s1"}
	hub.register <- client
	waitForClient(t, hub, client, true)

	// Saturate the one-slot buffer so every broadcast stalls.
	client.send <- []byte("backlog")

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hub.BroadcastToSession("s1", "timer_update", map[string]interface{}{"time_left": 1})
		}()
	}
	wg.Wait()

	waitForClient(t, hub, client, false)
}

func TestBroadcastSkipsOtherSessions(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()

	mine := &Client{hub: hub, id: "mine", send: make(chan []byte, 4), sessionID: "s1"}
	other := &Client{hub: hub, id: "other", send: make(chan []byte, 4), sessionID: "s2"}
	hub.register <- mine
	hub.register <- other
	waitForClient(t, hub, mine, true)
	waitForClient(t, hub, other, true)

	hub.BroadcastToSession("s1", "message", map[string]interface{}{"text": "hi"})

	select {
	case <-mine.send:
	case <-time.After(time.Second):
		t.Fatal("client in the target session received nothing")
	}

	select {
	case data := <-other.send:
		t.Fatalf("client in another session received %s", data)
	default:
	}
}

package nostr

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nostrlabs/nostroracle/src/types"
)

const (
	textNoteKind   = 1
	subscriptionID = "sub1"
	redialDelay    = 10 * time.Second
)

// Client maintains subscriptions to a set of Nostr relays and hands every
// text-note event to the intake callback.
type Client struct {
	relays []string

	mu        sync.Mutex
	connected map[string]bool
}

func NewClient(relays []string) *Client {
	return &Client{
		relays:    relays,
		connected: make(map[string]bool),
	}
}

// Start opens one connection per relay and keeps them alive (with redial)
// until ctx is done. Events are delivered on the relay goroutines.
func (c *Client) Start(ctx context.Context, onEvent func(types.Event)) {
	for _, url := range c.relays {
		go c.run(ctx, url, onEvent)
	}
}

func (c *Client) run(ctx context.Context, url string, onEvent func(types.Event)) {
	for {
		if err := c.listen(ctx, url, onEvent); err != nil {
			log.Printf("nostr: relay %s: %v", url, err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(redialDelay):
		}
	}
}

func (c *Client) listen(ctx context.Context, url string, onEvent func(types.Event)) error {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	sub := []interface{}{
		"REQ", subscriptionID,
		map[string]interface{}{"kinds": []int{textNoteKind}, "limit": 100},
	}
	if err := ws.WriteJSON(sub); err != nil {
		return err
	}

	c.setConnected(url, true)
	defer c.setConnected(url, false)
	log.Printf("nostr: connected to relay %s", url)

	// The watcher is scoped to this connection so it exits when listen
	// returns, not at process shutdown.
	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-connCtx.Done()
		_ = ws.Close()
	}()

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if ev, ok := parseEvent(raw); ok {
			onEvent(ev)
		}
	}
}

// parseEvent decodes a relay frame and returns the event when the frame is
// ["EVENT", <subId>, <event>].
func parseEvent(raw []byte) (types.Event, bool) {
	var frame []json.RawMessage
	if err := json.Unmarshal(raw, &frame); err != nil || len(frame) < 3 {
		return types.Event{}, false
	}
	var kind string
	if err := json.Unmarshal(frame[0], &kind); err != nil || kind != "EVENT" {
		return types.Event{}, false
	}
	var ev types.Event
	if err := json.Unmarshal(frame[2], &ev); err != nil || ev.ID == "" {
		return types.Event{}, false
	}
	return ev, true
}

func (c *Client) setConnected(url string, up bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if up {
		c.connected[url] = true
	} else {
		delete(c.connected, url)
	}
}

// Status reports relay connectivity for the status endpoint.
func (c *Client) Status() map[string]interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return map[string]interface{}{
		"connected": len(c.connected),
		"urls":      c.relays,
	}
}

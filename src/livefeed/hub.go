package livefeed

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/nostrlabs/nostroracle/src/data"
	"github.com/nostrlabs/nostroracle/src/types"
	"github.com/redis/go-redis/v9"
)

// Topics a live client can subscribe to.
const (
	TopicVerification = "verification_results"
	TopicEvents       = "nostr_events"
	TopicZaps         = "lightning_zaps"
	TopicStats        = "system_stats"
)

const (
	eventContentCap = 200
	sendBuffer      = 16
)

// Envelope is the wire format for every server-to-client message.
type Envelope struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

type clientMessage struct {
	Type       string   `json:"type"`
	EventTypes []string `json:"eventTypes"`
}

// Client is one live connection and its subscribed topic set.
type Client struct {
	id     string
	conn   *websocket.Conn
	send   chan Envelope
	topics map[string]bool
	once   sync.Once
}

// Hub maintains the subscriber registry and fans domain events out to the
// clients subscribed to the matching topic.
type Hub struct {
	rdb      *redis.Client
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*Client]struct{}
}

func NewHub(rdb *redis.Client) *Hub {
	return &Hub{
		rdb: rdb,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*Client]struct{}),
	}
}

// HandleWS upgrades the request and services the connection until it closes.
func (h *Hub) HandleWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("livefeed: upgrade failed: %v", err)
		return
	}

	client := &Client{
		id:     uuid.NewString(),
		conn:   conn,
		send:   make(chan Envelope, sendBuffer),
		topics: make(map[string]bool),
	}
	h.add(client)
	log.Printf("livefeed: client connected: %s", client.id)

	client.send <- Envelope{
		Type: "connection_established",
		Data: map[string]interface{}{
			"message":  "Connected to NostrOracle live feed",
			"clientId": client.id,
		},
		Timestamp: time.Now(),
	}

	go h.writeLoop(client)
	h.readLoop(client)
}

func (h *Hub) readLoop(client *Client) {
	defer h.drop(client)
	for {
		_, raw, err := client.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		switch msg.Type {
		case "subscribe":
			h.subscribe(client, msg.EventTypes)
		case "unsubscribe":
			h.unsubscribe(client, msg.EventTypes)
		case "ping":
			h.deliver(client, Envelope{
				Type:      "pong",
				Data:      map[string]interface{}{"timestamp": time.Now().UnixMilli()},
				Timestamp: time.Now(),
			})
		}
	}
}

func (h *Hub) writeLoop(client *Client) {
	for env := range client.send {
		if err := client.conn.WriteJSON(env); err != nil {
			h.drop(client)
			return
		}
	}
}

func (h *Hub) add(client *Client) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) drop(client *Client) {
	client.once.Do(func() {
		h.mu.Lock()
		delete(h.clients, client)
		h.mu.Unlock()
		close(client.send)
		if client.conn != nil {
			_ = client.conn.Close()
		}
		log.Printf("livefeed: client disconnected: %s", client.id)
	})
}

func (h *Hub) subscribe(client *Client, topics []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, t := range topics {
		switch t {
		case TopicVerification, TopicEvents, TopicZaps, TopicStats:
			client.topics[t] = true
		}
	}
}

func (h *Hub) unsubscribe(client *Client, topics []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, t := range topics {
		delete(client.topics, t)
	}
}

// Broadcast wraps data in an envelope and delivers it to every client
// subscribed to topic. The envelope is also mirrored to the shared feed
// stream, best-effort.
func (h *Hub) Broadcast(topic, msgType string, payload interface{}) {
	env := Envelope{Type: msgType, Data: payload, Timestamp: time.Now()}

	h.mu.RLock()
	for client := range h.clients {
		if client.topics[topic] {
			h.deliver(client, env)
		}
	}
	h.mu.RUnlock()

	h.mirror(topic, env)
}

// Notify sends a generic notification to every connected client regardless
// of subscriptions.
func (h *Hub) Notify(message, level string) {
	env := Envelope{
		Type: "notification",
		Data: map[string]interface{}{
			"id":      "notif_" + uuid.NewString(),
			"message": message,
			"type":    level,
		},
		Timestamp: time.Now(),
	}

	h.mu.RLock()
	for client := range h.clients {
		h.deliver(client, env)
	}
	h.mu.RUnlock()
}

// deliver is non-blocking; slow clients lose messages instead of stalling
// the pipeline.
func (h *Hub) deliver(client *Client, env Envelope) {
	select {
	case client.send <- env:
	default:
		log.Printf("livefeed: dropping %s for slow client %s", env.Type, client.id)
	}
}

func (h *Hub) mirror(topic string, env Envelope) {
	if h.rdb == nil {
		return
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := data.PublishEnvelope(ctx, h.rdb, topic, payload); err != nil {
			log.Printf("livefeed: feed mirror: %v", err)
		}
	}()
}

// BroadcastResult publishes a verification result.
func (h *Hub) BroadcastResult(res *types.VerificationResult) {
	h.Broadcast(TopicVerification, "verification_result", res)
}

// BroadcastEvent publishes a raw event with its content truncated to bound
// payload size. Truncation backs up to a rune boundary so multibyte
// characters are never split.
func (h *Hub) BroadcastEvent(ev types.Event) {
	content := ev.Content
	if len(content) > eventContentCap {
		cut := eventContentCap
		for cut > 0 && !utf8.RuneStart(content[cut]) {
			cut--
		}
		content = content[:cut] + "..."
	}
	h.Broadcast(TopicEvents, "nostr_event", map[string]interface{}{
		"id":         ev.ID,
		"pubkey":     ev.Pubkey,
		"content":    content,
		"kind":       ev.Kind,
		"created_at": ev.CreatedAt,
	})
}

// BroadcastZap publishes a reward outcome.
func (h *Hub) BroadcastZap(zap *types.ZapResult) {
	h.Broadcast(TopicZaps, "lightning_zap", zap)
}

// BroadcastStats publishes a stats snapshot.
func (h *Hub) BroadcastStats(stats types.StatsSnapshot) {
	h.Broadcast(TopicStats, "system_stats", stats)
}

// ClientCount returns the number of live connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Status describes the hub for the status endpoint.
func (h *Hub) Status() map[string]interface{} {
	return map[string]interface{}{
		"initialized":      true,
		"connectedClients": h.ClientCount(),
	}
}

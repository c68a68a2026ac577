package livefeed

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nostrlabs/nostroracle/src/types"
)

func newTestClient() *Client {
	return &Client{
		id:     "test-client",
		send:   make(chan Envelope, sendBuffer),
		topics: make(map[string]bool),
	}
}

func drain(c *Client) []Envelope {
	var out []Envelope
	for {
		select {
		case env := <-c.send:
			out = append(out, env)
		default:
			return out
		}
	}
}

func TestBroadcastReachesOnlySubscribers(t *testing.T) {
	h := NewHub(nil)
	zapsOnly := newTestClient()
	everything := newTestClient()
	h.add(zapsOnly)
	h.add(everything)

	h.subscribe(zapsOnly, []string{TopicZaps})
	h.subscribe(everything, []string{TopicVerification, TopicEvents, TopicZaps, TopicStats})

	h.BroadcastResult(&types.VerificationResult{EventID: "ev1", Score: 70})
	h.BroadcastZap(&types.ZapResult{Success: true, AmountSats: 500})

	got := drain(zapsOnly)
	require.Len(t, got, 1, "zaps-only subscriber must not see verification results")
	assert.Equal(t, "lightning_zap", got[0].Type)

	got = drain(everything)
	require.Len(t, got, 2)
	assert.Equal(t, "verification_result", got[0].Type)
	assert.Equal(t, "lightning_zap", got[1].Type)
}

func TestUnknownTopicIgnored(t *testing.T) {
	h := NewHub(nil)
	client := newTestClient()
	h.add(client)

	h.subscribe(client, []string{"bogus_topic", TopicStats})
	assert.False(t, client.topics["bogus_topic"])
	assert.True(t, client.topics[TopicStats])
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	h := NewHub(nil)
	client := newTestClient()
	h.add(client)
	h.subscribe(client, []string{TopicStats})

	h.BroadcastStats(types.StatsSnapshot{PostsProcessed: 1})
	require.Len(t, drain(client), 1)

	h.unsubscribe(client, []string{TopicStats})
	h.BroadcastStats(types.StatsSnapshot{PostsProcessed: 2})
	assert.Empty(t, drain(client))
}

func TestNotifyReachesAllClients(t *testing.T) {
	h := NewHub(nil)
	a := newTestClient()
	b := newTestClient()
	h.add(a)
	h.add(b)

	h.Notify("system online", "info")

	for _, c := range []*Client{a, b} {
		got := drain(c)
		require.Len(t, got, 1)
		assert.Equal(t, "notification", got[0].Type)
		data := got[0].Data.(map[string]interface{})
		assert.Equal(t, "system online", data["message"])
		assert.Equal(t, "info", data["type"])
	}
}

func TestEventContentTruncated(t *testing.T) {
	h := NewHub(nil)
	client := newTestClient()
	h.add(client)
	h.subscribe(client, []string{TopicEvents})

	long := make([]byte, eventContentCap+50)
	for i := range long {
		long[i] = 'x'
	}
	h.BroadcastEvent(types.Event{ID: "ev1", Content: string(long)})

	got := drain(client)
	require.Len(t, got, 1)
	payload := got[0].Data.(map[string]interface{})
	content := payload["content"].(string)
	assert.Len(t, content, eventContentCap+3)
	assert.True(t, content[len(content)-3:] == "...")
}

func TestEventContentTruncationKeepsRunesIntact(t *testing.T) {
	h := NewHub(nil)
	client := newTestClient()
	h.add(client)
	h.subscribe(client, []string{TopicEvents})

	// Three-byte runes guarantee a character straddles the byte cap.
	long := strings.Repeat("日", eventContentCap)
	h.BroadcastEvent(types.Event{ID: "ev1", Content: long})

	got := drain(client)
	require.Len(t, got, 1)
	payload := got[0].Data.(map[string]interface{})
	content := payload["content"].(string)
	assert.True(t, utf8.ValidString(content))
	assert.NotContains(t, content, string(utf8.RuneError))
	assert.True(t, strings.HasSuffix(content, "..."))
	assert.LessOrEqual(t, len(content), eventContentCap+3)
}

func TestSlowClientDropsInsteadOfBlocking(t *testing.T) {
	h := NewHub(nil)
	client := newTestClient()
	h.add(client)
	h.subscribe(client, []string{TopicStats})

	// Fill the buffer past capacity; extra envelopes must be dropped, not
	// block the broadcaster.
	for i := 0; i < sendBuffer+5; i++ {
		h.BroadcastStats(types.StatsSnapshot{PostsProcessed: uint64(i)})
	}
	assert.Len(t, drain(client), sendBuffer)
}

func TestDropIsIdempotent(t *testing.T) {
	h := NewHub(nil)
	client := newTestClient()
	h.add(client)

	h.drop(client)
	h.drop(client)
	assert.Equal(t, 0, h.ClientCount())
}

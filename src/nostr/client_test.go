package nostr

import (
	"context"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nostrlabs/nostroracle/src/types"
)

func TestParseEvent(t *testing.T) {
	ev, ok := parseEvent([]byte(`["EVENT","sub1",{"id":"abc","pubkey":"pk","content":"hello","kind":1,"created_at":1700000000}]`))
	require.True(t, ok)
	assert.Equal(t, "abc", ev.ID)
	assert.Equal(t, "pk", ev.Pubkey)
	assert.Equal(t, "hello", ev.Content)
	assert.Equal(t, 1, ev.Kind)
	assert.EqualValues(t, 1700000000, ev.CreatedAt)
}

func TestParseEventRejectsOtherFrames(t *testing.T) {
	frames := []string{
		`["EOSE","sub1"]`,
		`["NOTICE","rate limited"]`,
		`["EVENT","sub1",{"pubkey":"pk"}]`,
		`{"not":"an array"}`,
		`garbage`,
	}
	for _, frame := range frames {
		_, ok := parseEvent([]byte(frame))
		assert.False(t, ok, frame)
	}
}

// A relay that accepts and immediately drops connections must not leave a
// watcher goroutine behind per attempt.
func TestListenWatcherExitsWithConnection(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_, _, _ = ws.ReadMessage()
		_ = ws.Close()
	}))
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := NewClient([]string{url})
	for i := 0; i < 3; i++ {
		_ = c.listen(ctx, url, func(types.Event) {})
	}
	time.Sleep(100 * time.Millisecond)
	before := runtime.NumGoroutine()

	for i := 0; i < 10; i++ {
		_ = c.listen(ctx, url, func(types.Event) {})
	}
	time.Sleep(100 * time.Millisecond)

	after := runtime.NumGoroutine()
	assert.LessOrEqual(t, after, before+2,
		"watcher goroutines must not accumulate across reconnects")
}

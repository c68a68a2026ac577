package webserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nostrlabs/nostroracle/src/cache"
	"github.com/nostrlabs/nostroracle/src/data"
	"github.com/nostrlabs/nostroracle/src/extractor"
	"github.com/nostrlabs/nostroracle/src/lightning"
	"github.com/nostrlabs/nostroracle/src/livefeed"
	"github.com/nostrlabs/nostroracle/src/nostr"
	"github.com/nostrlabs/nostroracle/src/scorer"
	"github.com/nostrlabs/nostroracle/src/types"
	"github.com/nostrlabs/nostroracle/src/verifier"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type offlineSearcher struct{}

func (offlineSearcher) Search(context.Context, string) ([]types.Article, error) {
	return nil, errors.New("offline")
}

func newTestServer(t *testing.T) *gin.Engine {
	t.Helper()

	store := data.NewStore(nil)
	v := verifier.New(verifier.Options{
		Extractor: extractor.New(nil),
		Search:    offlineSearcher{},
		Policy:    scorer.DefaultPolicy(),
		Cache:     cache.New(nil, time.Minute),
		Store:     store,
		Timeout:   time.Second,
	})
	h := NewHandlers(
		v,
		store,
		livefeed.NewHub(nil),
		nostr.NewClient(nil),
		lightning.New("", 1000, 80, []byte("test-secret")),
	)
	return New(h)
}

func doJSON(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestStatusEndpoint(t *testing.T) {
	r := newTestServer(t)

	w := doJSON(r, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "online", body["status"])
	assert.Contains(t, body, "stats")
	assert.Contains(t, body, "liveFeed")
	assert.Contains(t, body, "relays")
}

func TestVerifyRequiresContent(t *testing.T) {
	r := newTestServer(t)

	w := doJSON(r, http.MethodPost, "/verify", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVerifyRejectsMarkupOnlyContent(t *testing.T) {
	r := newTestServer(t)

	w := doJSON(r, http.MethodPost, "/verify", `{"content":"<script>alert(1)</script>"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVerifyManualPost(t *testing.T) {
	r := newTestServer(t)

	w := doJSON(r, http.MethodPost, "/verify", `{"content":"The central bank raised interest rates today."}`)
	require.Equal(t, http.StatusOK, w.Code)

	var result types.VerificationResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, strings.HasPrefix(result.EventID, "manual_"))
	assert.NotEmpty(t, result.Claims)
}

func TestScoresEndpoint(t *testing.T) {
	r := newTestServer(t)

	w := doJSON(r, http.MethodPost, "/verify", `{"content":"The central bank raised interest rates today."}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodGet, "/scores", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Scores []types.VerificationResult `json:"scores"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Scores, 1)
}

func TestLightningInfo(t *testing.T) {
	r := newTestServer(t)

	w := doJSON(r, http.MethodGet, "/lightning/info", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "nostroracle@getalby.com", body["address"])
	assert.Equal(t, "mock_mode", body["status"])
}

func TestZapRequiresAllFields(t *testing.T) {
	r := newTestServer(t)

	w := doJSON(r, http.MethodPost, "/lightning/zap", `{"eventId":"ev1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestZapHighScore(t *testing.T) {
	r := newTestServer(t)

	w := doJSON(r, http.MethodPost, "/lightning/zap",
		`{"eventId":"ev1","authorPubkey":"pk1","credibilityScore":85}`)
	require.Equal(t, http.StatusOK, w.Code)

	var result types.ZapResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.EqualValues(t, 850, result.AmountSats)
}

func TestZapBelowThreshold(t *testing.T) {
	r := newTestServer(t)

	w := doJSON(r, http.MethodPost, "/lightning/zap",
		`{"eventId":"ev1","authorPubkey":"pk1","credibilityScore":80}`)
	require.Equal(t, http.StatusOK, w.Code)

	var result types.ZapResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.False(t, result.Success)
	assert.Equal(t, 80, result.Threshold)
}

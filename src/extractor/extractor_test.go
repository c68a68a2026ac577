package extractor

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCompleter struct {
	reply string
	err   error
	calls int
}

func (s *stubCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	s.calls++
	return s.reply, s.err
}

func TestFallbackExtractMatchesFactualSentences(t *testing.T) {
	text := "Bitcoin is trading above 100k today. The government announced new regulations. I love pizza so much!"
	claims := FallbackExtract(text)

	require.Len(t, claims, 2)
	assert.Equal(t, "Bitcoin is trading above 100k today", claims[0])
	assert.Equal(t, "The government announced new regulations", claims[1])
}

func TestFallbackExtractCapsAtFive(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 10; i++ {
		fmt.Fprintf(&b, "The company number %d is expanding rapidly. ", i)
	}
	claims := FallbackExtract(b.String())
	assert.Len(t, claims, 5)
}

func TestFallbackExtractWholeInputWhenNothingMatches(t *testing.T) {
	text := "  quantum flux capacitors everywhere  "
	claims := FallbackExtract(text)

	require.Len(t, claims, 1)
	assert.Equal(t, "quantum flux capacitors everywhere", claims[0])
}

func TestFallbackExtractTrivialInput(t *testing.T) {
	assert.Empty(t, FallbackExtract("hi"))
	assert.Empty(t, FallbackExtract("   ok   "))
}

func TestFallbackExtractShortSentenceUsesWholeInput(t *testing.T) {
	// "It is" matches the copula pattern but is under the length floor, so
	// the whole (non-trivial) input becomes the single claim.
	claims := FallbackExtract("It is.")
	require.Len(t, claims, 1)
	assert.Equal(t, "It is.", claims[0])
}

func TestExtractUsesAIWhenAvailable(t *testing.T) {
	ai := &stubCompleter{reply: `["The sky is blue", "Water is wet"]`}
	e := New(ai)

	got := e.Extract(context.Background(), "some post content")
	assert.Equal(t, MethodAI, got.Method)
	assert.Equal(t, []string{"The sky is blue", "Water is wet"}, got.Claims)
	assert.Equal(t, 1, ai.calls)
	assert.Equal(t, len("some post content"), got.TextLength)
}

func TestExtractAcceptsFencedJSON(t *testing.T) {
	ai := &stubCompleter{reply: "```json\n[\"Claim one here\"]\n```"}
	e := New(ai)

	got := e.Extract(context.Background(), "text")
	assert.Equal(t, MethodAI, got.Method)
	assert.Equal(t, []string{"Claim one here"}, got.Claims)
}

func TestExtractEmptyArrayIsValid(t *testing.T) {
	ai := &stubCompleter{reply: `[]`}
	e := New(ai)

	got := e.Extract(context.Background(), "nothing verifiable in here whatsoever")
	assert.Equal(t, MethodAI, got.Method)
	assert.Empty(t, got.Claims)
}

func TestExtractFallsBackOnMalformedJSON(t *testing.T) {
	ai := &stubCompleter{reply: `these are not the claims you are looking for`}
	e := New(ai)

	got := e.Extract(context.Background(), "Bitcoin is trading above 100k today.")
	assert.Equal(t, MethodRegex, got.Method)
	assert.Equal(t, []string{"Bitcoin is trading above 100k today"}, got.Claims)
}

func TestExtractFallsBackOnNonStringArray(t *testing.T) {
	ai := &stubCompleter{reply: `[1, 2, 3]`}
	e := New(ai)

	got := e.Extract(context.Background(), "Bitcoin is trading above 100k today.")
	assert.Equal(t, MethodRegex, got.Method)
}

func TestExtractFallsBackOnProviderError(t *testing.T) {
	ai := &stubCompleter{err: fmt.Errorf("rate limited")}
	e := New(ai)

	got := e.Extract(context.Background(), "The market is volatile right now.")
	assert.Equal(t, MethodRegex, got.Method)
	assert.NotEmpty(t, got.Claims)
}

func TestExtractWithoutProvider(t *testing.T) {
	e := New(nil)

	got := e.Extract(context.Background(), "The election was held on Tuesday.")
	assert.Equal(t, MethodRegex, got.Method)
	assert.Equal(t, []string{"The election was held on Tuesday"}, got.Claims)
}

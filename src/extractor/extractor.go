package extractor

import (
	"context"
	"encoding/json"
	"log"
	"regexp"
	"strings"
	"sync"
	"time"
)

const (
	MethodAI    = "ai"
	MethodRegex = "regex"

	maxFallbackClaims = 5
	minClaimLength    = 10
)

const systemPrompt = "You are a precise fact-checking assistant that extracts only verifiable factual claims from text. Always respond with valid JSON."

const promptTemplate = `You are a fact-checking assistant. Analyze the following text and extract only factual claims that can be verified against news sources or public information.

Rules:
1. Extract only objective, verifiable statements of fact
2. Ignore opinions, subjective statements, and personal experiences
3. Focus on claims about events, announcements, statistics, or concrete facts
4. Each claim should be a complete, standalone statement
5. Return claims as a JSON array of strings
6. If no verifiable claims are found, return an empty array

Text to analyze:
"%s"

Return only the JSON array, no other text:`

// Sentence-level patterns marking a candidate factual statement.
var claimPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(is|are|was|were)\b`),
	regexp.MustCompile(`(?i)\b(has|have|had)\b`),
	regexp.MustCompile(`(?i)\b(will|would|shall|should|can|could|may|might|must)\b`),
	regexp.MustCompile(`(?i)\b(announced|reported|said|stated|confirmed|revealed|claimed)\b`),
	regexp.MustCompile(`(?i)^\s*the\s+\w+`),
}

var sentenceSplit = regexp.MustCompile(`[.!?]+`)

// Completer is the language-model contract the extractor needs.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Extraction is the output of one extraction run.
type Extraction struct {
	Claims         []string
	Method         string
	ProcessingTime time.Duration
	TextLength     int
}

// Extractor turns free text into candidate factual claims. The AI strategy
// is tried first; any failure falls back to deterministic pattern matching.
type Extractor struct {
	ai       Completer
	warnOnce sync.Once
}

// New builds an extractor. ai may be nil when no provider credential is
// configured; extraction then always uses the fallback path.
func New(ai Completer) *Extractor {
	return &Extractor{ai: ai}
}

// Extract never fails: every error path degrades to the fallback strategy.
func (e *Extractor) Extract(ctx context.Context, text string) Extraction {
	start := time.Now()
	claims, method := e.extract(ctx, text)
	return Extraction{
		Claims:         claims,
		Method:         method,
		ProcessingTime: time.Since(start),
		TextLength:     len(text),
	}
}

func (e *Extractor) extract(ctx context.Context, text string) ([]string, string) {
	if e.ai == nil {
		e.warnOnce.Do(func() {
			log.Printf("extractor: AI provider not configured, using pattern extraction")
		})
		return FallbackExtract(text), MethodRegex
	}

	reply, err := e.ai.Complete(ctx, systemPrompt, buildPrompt(text))
	if err != nil {
		log.Printf("extractor: AI extraction failed, falling back: %v", err)
		return FallbackExtract(text), MethodRegex
	}

	claims, ok := parseClaims(reply)
	if !ok {
		log.Printf("extractor: unusable AI response, falling back")
		return FallbackExtract(text), MethodRegex
	}
	return claims, MethodAI
}

func buildPrompt(text string) string {
	escaped := strings.ReplaceAll(text, `"`, `\"`)
	return strings.Replace(promptTemplate, "%s", escaped, 1)
}

// parseClaims expects a JSON array of strings, possibly wrapped in a code
// fence or surrounding prose.
func parseClaims(reply string) ([]string, bool) {
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return nil, false
	}
	start := strings.Index(reply, "[")
	end := strings.LastIndex(reply, "]")
	if start < 0 || end <= start {
		return nil, false
	}

	var raw []interface{}
	if err := json.Unmarshal([]byte(reply[start:end+1]), &raw); err != nil {
		return nil, false
	}

	claims := make([]string, 0, len(raw))
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		if s = strings.TrimSpace(s); s != "" {
			claims = append(claims, s)
		}
	}
	return claims, true
}

// FallbackExtract splits text into sentences and keeps those matching at
// least one claim pattern, capped at maxFallbackClaims. When nothing matches
// and the input is non-trivial, the whole input is treated as one claim.
func FallbackExtract(text string) []string {
	var claims []string
	for _, sentence := range sentenceSplit.Split(text, -1) {
		sentence = strings.TrimSpace(sentence)
		if len(sentence) < minClaimLength {
			continue
		}
		for _, pat := range claimPatterns {
			if pat.MatchString(sentence) {
				claims = append(claims, sentence)
				break
			}
		}
		if len(claims) == maxFallbackClaims {
			return claims
		}
	}

	if len(claims) == 0 {
		if trimmed := strings.TrimSpace(text); len(trimmed) > 5 {
			return []string{trimmed}
		}
	}
	return claims
}

package verifier

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nostrlabs/nostroracle/src/cache"
	"github.com/nostrlabs/nostroracle/src/data"
	"github.com/nostrlabs/nostroracle/src/extractor"
	"github.com/nostrlabs/nostroracle/src/scorer"
	"github.com/nostrlabs/nostroracle/src/types"
)

const recentCap = 20

// Extractor is the claim-extraction contract.
type Extractor interface {
	Extract(ctx context.Context, text string) extractor.Extraction
}

// Searcher is the external search contract.
type Searcher interface {
	Search(ctx context.Context, query string) ([]types.Article, error)
}

// Zapper is the reward-trigger contract.
type Zapper interface {
	Threshold() int
	ProcessZap(ctx context.Context, eventID, authorPubkey string, score int) (*types.ZapResult, error)
}

// Feed is the fan-out contract.
type Feed interface {
	BroadcastResult(res *types.VerificationResult)
	BroadcastZap(zap *types.ZapResult)
	BroadcastStats(stats types.StatsSnapshot)
}

// Announcer is an optional side channel for high-scoring results.
type Announcer interface {
	AnnounceResult(res *types.VerificationResult)
}

// Service runs the verification pipeline: extract claims, verify each
// against the cache or the search corpus, aggregate, persist, reward,
// broadcast.
type Service struct {
	extractor Extractor
	search    Searcher
	policy    scorer.Policy
	cache     *cache.Cache
	store     data.Store
	zapper    Zapper
	feed      Feed
	announcer Announcer
	timeout   time.Duration

	mu     sync.Mutex
	recent []*types.VerificationResult
	// Pubkeys of live events, kept so the reward can reference the author.
	authors map[string]string
}

type Options struct {
	Extractor Extractor
	Search    Searcher
	Policy    scorer.Policy
	Cache     *cache.Cache
	Store     data.Store
	Zapper    Zapper
	Feed      Feed
	Announcer Announcer
	// Timeout applied uniformly to each outbound call.
	Timeout time.Duration
}

func New(opts Options) *Service {
	if opts.Timeout <= 0 {
		opts.Timeout = 8 * time.Second
	}
	return &Service{
		extractor: opts.Extractor,
		search:    opts.Search,
		policy:    opts.Policy,
		cache:     opts.Cache,
		store:     opts.Store,
		zapper:    opts.Zapper,
		feed:      opts.Feed,
		announcer: opts.Announcer,
		timeout:   opts.Timeout,
		authors:   make(map[string]string),
	}
}

// TrackAuthor remembers the author of a live event so its reward can be
// addressed. Bounded by the same cap as the recent list.
func (s *Service) TrackAuthor(eventID, pubkey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.authors) > recentCap*4 {
		s.authors = make(map[string]string)
	}
	s.authors[eventID] = pubkey
}

// Verify runs the full pipeline for one post. eventID is empty for manual
// submissions. The returned result is always best-effort complete; only an
// empty content input is an error.
func (s *Service) Verify(ctx context.Context, content, eventID string) (*types.VerificationResult, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("verify: empty content")
	}

	live := eventID != ""
	if !live {
		eventID = "manual_" + uuid.NewString()
	}

	extraction := s.extractor.Extract(ctx, content)

	results := make([]types.ClaimResult, 0, len(extraction.Claims))
	cacheHits := 0
	errCount := 0
	for _, claim := range extraction.Claims {
		cr := s.verifyClaim(ctx, claim)
		if cr.Cached {
			cacheHits++
		}
		if cr.Error != "" {
			errCount++
		}
		results = append(results, cr)
	}

	result := &types.VerificationResult{
		EventID:             eventID,
		Content:             content,
		Claims:              extraction.Claims,
		VerificationResults: results,
		Score:               aggregateScore(results),
		Timestamp:           time.Now(),
		Metadata: types.ResultMetadata{
			Method:             extraction.Method,
			ProcessingTimeMs:   extraction.ProcessingTime.Milliseconds(),
			ClaimCount:         len(extraction.Claims),
			TextLength:         extraction.TextLength,
			CacheHits:          cacheHits,
			VerificationErrors: errCount,
		},
	}

	stored, created, err := s.store.SaveResult(result)
	if err != nil {
		// Persistence trouble degrades silently; the recent list still
		// serves reads.
		log.Printf("verifier: persist failed for %s: %v", eventID, err)
	} else {
		result = stored
	}

	// Only a confirmed duplicate row suppresses the reward; a persist
	// failure is treated as first-seen.
	if live && (created || err != nil) {
		s.reward(ctx, result)
	}

	s.remember(result)

	if s.feed != nil {
		s.feed.BroadcastResult(result)
		if stats, err := s.store.Stats(); err == nil {
			s.feed.BroadcastStats(stats)
		}
	}
	if s.announcer != nil && s.zapper != nil && result.Score > s.zapper.Threshold() {
		s.announcer.AnnounceResult(result)
	}

	return result, nil
}

// verifyClaim resolves one claim: cache first, then the search corpus.
// Search failures never propagate; they yield a fallback score with an
// error annotation.
func (s *Service) verifyClaim(ctx context.Context, claim string) types.ClaimResult {
	if entry, ok := s.cache.Lookup(claim); ok {
		return types.ClaimResult{
			Claim:       claim,
			Credibility: entry.Credibility,
			Confidence:  entry.Confidence,
			Sources:     entry.Sources,
			Cached:      true,
		}
	}

	searchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	articles, err := s.search.Search(searchCtx, scorer.OptimizeQuery(claim))
	if err != nil {
		score, confidence := s.policy.FallbackScore(claim)
		return types.ClaimResult{
			Claim:       claim,
			Credibility: score,
			Confidence:  confidence,
			Error:       fmt.Sprintf("search unavailable: %v", err),
		}
	}

	score, confidence := s.policy.Score(claim, articles)
	sources := make([]types.Source, 0, len(articles))
	for _, a := range articles {
		sources = append(sources, types.Source{Title: a.Title, Source: a.SourceName, URL: a.URL})
	}

	s.cache.Store(claim, score, confidence, sources)

	return types.ClaimResult{
		Claim:       claim,
		Credibility: score,
		Confidence:  confidence,
		Sources:     sources,
	}
}

// reward fires the zap side effect. It can never fail the result: errors
// are logged and the metadata is simply left without a reward summary.
func (s *Service) reward(ctx context.Context, result *types.VerificationResult) {
	if s.zapper == nil || result.Score <= s.zapper.Threshold() {
		return
	}

	s.mu.Lock()
	author := s.authors[result.EventID]
	s.mu.Unlock()

	zapCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	zap, err := s.zapper.ProcessZap(zapCtx, result.EventID, author, result.Score)
	if err != nil {
		log.Printf("verifier: zap failed for %s: %v", result.EventID, err)
		return
	}
	if !zap.Success {
		return
	}

	result.Metadata.Zap = &types.ZapSummary{
		AmountSats: zap.AmountSats,
		Message:    zap.Message,
	}
	if s.feed != nil {
		s.feed.BroadcastZap(zap)
	}
}

func (s *Service) remember(result *types.VerificationResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recent = append([]*types.VerificationResult{result}, s.recent...)
	if len(s.recent) > recentCap {
		s.recent = s.recent[:recentCap]
	}
}

// RecentScores returns the most recent results, newest first. The durable
// store is preferred; the in-memory view covers store outages.
func (s *Service) RecentScores() []*types.VerificationResult {
	if results, err := s.store.RecentResults(recentCap); err == nil && len(results) > 0 {
		return results
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*types.VerificationResult, len(s.recent))
	copy(out, s.recent)
	return out
}

// aggregateScore is the rounded mean of per-claim credibilities, 0 when no
// claims were extracted.
func aggregateScore(results []types.ClaimResult) int {
	if len(results) == 0 {
		return 0
	}
	sum := 0
	for _, r := range results {
		sum += r.Credibility
	}
	return int(math.Round(float64(sum) / float64(len(results))))
}

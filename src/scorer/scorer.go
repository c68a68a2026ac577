package scorer

import (
	"regexp"
	"strings"
	"time"

	"github.com/nostrlabs/nostroracle/src/types"
)

// Policy holds every tuning parameter of the credibility algorithm. The
// defaults are the canonical values; callers may adjust before use.
type Policy struct {
	// Flat scores when the search provider returns nothing.
	ZeroSourceEstablished int
	ZeroSourceGeneral     int
	// Flat scores when the search provider fails outright.
	FailureEstablished int
	FailureGeneral     int

	RelevanceCapGeneral       int
	RelevanceCapEstablished   int
	RelevanceFloorEstablished int
	// Minimum number of keyword matches before an article counts.
	MatchThresholdGeneral     int
	MatchThresholdEstablished int
	KeywordWeightGeneral      float64
	KeywordWeightEstablished  float64

	QualityCap        int
	DefaultOutletTier int
	RecencyCap        int

	EstablishedBase  int
	EstablishedBonus int

	HighCutoff   int
	MediumCutoff int
}

func DefaultPolicy() Policy {
	return Policy{
		ZeroSourceEstablished:     65,
		ZeroSourceGeneral:         25,
		FailureEstablished:        65,
		FailureGeneral:            30,
		RelevanceCapGeneral:       40,
		RelevanceCapEstablished:   35,
		RelevanceFloorEstablished: 15,
		MatchThresholdGeneral:     2,
		MatchThresholdEstablished: 1,
		KeywordWeightGeneral:      1.0,
		KeywordWeightEstablished:  1.5,
		QualityCap:                30,
		DefaultOutletTier:         4,
		RecencyCap:                10,
		EstablishedBase:           50,
		EstablishedBonus:          20,
		HighCutoff:                75,
		MediumCutoff:              50,
	}
}

// Reputation tiers per outlet; unlisted outlets fall back to the default.
var outletTiers = map[string]int{
	"reuters":                 10,
	"associated press":        10,
	"ap news":                 10,
	"bbc news":                9,
	"bbc":                     9,
	"the new york times":      9,
	"the washington post":     9,
	"bloomberg":               8,
	"financial times":         8,
	"the wall street journal": 8,
	"the guardian":            8,
	"npr":                     8,
	"the economist":           8,
	"cnn":                     7,
	"abc news":                7,
	"cbs news":                7,
	"nbc news":                7,
	"politico":                7,
	"axios":                   7,
	"al jazeera english":      7,
	"usa today":               6,
	"time":                    6,
	"newsweek":                5,
	"fox news":                5,
	"new york post":           4,
	"daily mail":              3,
	"the sun":                 2,
}

// Patterns that mark a claim as a well-established fact scored on the
// generous path.
var establishedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(is|are|remains)\s+the\s+(current\s+)?(president|prime\s+minister|chancellor|king|queen|pope)\b`),
	regexp.MustCompile(`(?i)\bwater\s+boils\s+at\s+100\b`),
	regexp.MustCompile(`(?i)\bwater\s+freezes\s+at\s+(0|zero)\b`),
	regexp.MustCompile(`(?i)\b(the\s+)?earth\s+(revolves|orbits|rotates)\b`),
	regexp.MustCompile(`(?i)\bthe\s+earth\s+is\s+(round|a\s+sphere|spherical)\b`),
	regexp.MustCompile(`(?i)\bthe\s+sun\s+rises\s+in\s+the\s+east\b`),
	regexp.MustCompile(`(?i)\b\w+\s+is\s+the\s+capital\s+(city\s+)?of\s+\w+`),
	regexp.MustCompile(`(?i)\b(two|2)\s*(\+|plus)\s*(two|2)\s*(=|equals)\s*(four|4)\b`),
	regexp.MustCompile(`(?i)\bthere\s+are\s+(seven|7)\s+continents\b`),
	regexp.MustCompile(`(?i)\ba\s+(week|year)\s+has\s+(seven|7|365)\s+days\b`),
}

// Claim-specific query rewrites for searches that perform poorly verbatim.
var queryRewrites = []struct {
	pattern *regexp.Regexp
	query   string
}{
	{regexp.MustCompile(`(?i)\btrump\b[^.]*\bpresident\b|\bpresident\b[^.]*\btrump\b`), `"Donald Trump" president`},
	{regexp.MustCompile(`(?i)\bbiden\b[^.]*\bpresident\b|\bpresident\b[^.]*\bbiden\b`), `"Joe Biden" president`},
	{regexp.MustCompile(`(?i)\bputin\b[^.]*\bpresident\b|\bpresident\b[^.]*\bputin\b`), `"Vladimir Putin" Russia president`},
	{regexp.MustCompile(`(?i)\bzelensky\b|\bzelenskyy\b`), `"Volodymyr Zelensky" Ukraine`},
}

var stopwords = map[string]bool{
	"the": true, "and": true, "that": true, "this": true, "with": true,
	"from": true, "have": true, "has": true, "had": true, "was": true,
	"were": true, "will": true, "would": true, "been": true, "are": true,
	"for": true, "not": true, "but": true, "about": true, "into": true,
	"over": true, "after": true, "before": true, "their": true, "they": true,
	"there": true, "said": true, "says": true, "announced": true,
}

var wordPattern = regexp.MustCompile(`[a-zA-Z0-9']+`)

// IsEstablishedFact reports whether the claim matches the fixed pattern set
// of facts presumed true independent of search results.
func IsEstablishedFact(claim string) bool {
	for _, pat := range establishedPatterns {
		if pat.MatchString(claim) {
			return true
		}
	}
	return false
}

// Keywords extracts the significant lowercase terms of a claim, in order.
func Keywords(claim string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, w := range wordPattern.FindAllString(strings.ToLower(claim), -1) {
		if len(w) < 4 || stopwords[w] || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

// OptimizeQuery rewrites known political-entity claims to canonical search
// terms; otherwise it queries the top extracted keywords.
func OptimizeQuery(claim string) string {
	for _, rw := range queryRewrites {
		if rw.pattern.MatchString(claim) {
			return rw.query
		}
	}
	kws := Keywords(claim)
	if len(kws) == 0 {
		return strings.TrimSpace(claim)
	}
	if len(kws) > 4 {
		kws = kws[:4]
	}
	return strings.Join(kws, " ")
}

// Score computes the credibility score and confidence label for a claim
// given the articles the search provider returned.
func (p Policy) Score(claim string, articles []types.Article) (int, string) {
	return p.scoreAt(claim, articles, time.Now())
}

func (p Policy) scoreAt(claim string, articles []types.Article, now time.Time) (int, string) {
	established := IsEstablishedFact(claim)

	if len(articles) == 0 {
		score := p.ZeroSourceGeneral
		if established {
			score = p.ZeroSourceEstablished
		}
		return score, p.Confidence(score)
	}

	relevance := p.relevance(claim, articles, established)
	quality := p.quality(articles)
	consensus := consensusScore(articles)
	recency := p.recency(articles, now)

	var score int
	if established {
		score = p.EstablishedBase + relevance + quality + consensus + recency + p.EstablishedBonus
	} else {
		score = relevance + quality + consensus + recency
	}

	score = clamp(score, 0, 100)
	return score, p.Confidence(score)
}

// FallbackScore is used when the search provider fails; confidence is
// always low on this path.
func (p Policy) FallbackScore(claim string) (int, string) {
	if IsEstablishedFact(claim) {
		return p.FailureEstablished, types.ConfidenceLow
	}
	return p.FailureGeneral, types.ConfidenceLow
}

// Confidence maps a score onto the coarse confidence label.
func (p Policy) Confidence(score int) string {
	switch {
	case score > p.HighCutoff:
		return types.ConfidenceHigh
	case score > p.MediumCutoff:
		return types.ConfidenceMedium
	default:
		return types.ConfidenceLow
	}
}

// relevance measures keyword overlap between the claim and each article's
// title+description, weighted by keyword length. Articles below the match
// threshold contribute nothing.
func (p Policy) relevance(claim string, articles []types.Article, established bool) int {
	keywords := Keywords(claim)
	if len(keywords) == 0 {
		return 0
	}

	threshold := p.MatchThresholdGeneral
	weight := p.KeywordWeightGeneral
	cap := p.RelevanceCapGeneral
	if established {
		threshold = p.MatchThresholdEstablished
		weight = p.KeywordWeightEstablished
		cap = p.RelevanceCapEstablished
	}
	if threshold > len(keywords) {
		threshold = len(keywords)
	}

	total := 0.0
	for _, article := range articles {
		text := strings.ToLower(article.Title + " " + article.Description)
		matched := 0
		articleWeight := 0.0
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				matched++
				articleWeight += float64(len(kw)) * weight
			}
		}
		if matched >= threshold {
			total += articleWeight
		}
	}

	score := int(total)
	if score > cap {
		score = cap
	}
	if established && score < p.RelevanceFloorEstablished {
		score = p.RelevanceFloorEstablished
	}
	return score
}

// quality sums a fixed reputation tier per distinct outlet.
func (p Policy) quality(articles []types.Article) int {
	seen := make(map[string]bool)
	total := 0
	for _, article := range articles {
		name := strings.ToLower(strings.TrimSpace(article.SourceName))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		tier, ok := outletTiers[name]
		if !ok {
			tier = p.DefaultOutletTier
		}
		total += tier
	}
	if total > p.QualityCap {
		total = p.QualityCap
	}
	return total
}

// consensusScore is a step function of the distinct source count.
func consensusScore(articles []types.Article) int {
	seen := make(map[string]bool)
	for _, article := range articles {
		name := strings.ToLower(strings.TrimSpace(article.SourceName))
		if name != "" {
			seen[name] = true
		}
	}
	switch n := len(seen); {
	case n >= 5:
		return 20
	case n >= 3:
		return 15
	case n == 2:
		return 10
	case n == 1:
		return 5
	default:
		return 0
	}
}

// recency buckets each article by age.
func (p Policy) recency(articles []types.Article, now time.Time) int {
	total := 0
	for _, article := range articles {
		if article.PublishedAt.IsZero() {
			continue
		}
		switch age := now.Sub(article.PublishedAt); {
		case age <= 24*time.Hour:
			total += 4
		case age <= 7*24*time.Hour:
			total += 2
		case age <= 30*24*time.Hour:
			total += 1
		}
	}
	if total > p.RecencyCap {
		total = p.RecencyCap
	}
	return total
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

package types

import "time"

// Confidence labels attached to claim verifications.
const (
	ConfidenceLow    = "low"
	ConfidenceMedium = "medium"
	ConfidenceHigh   = "high"
)

// System statistics (single row)
type SystemStats struct {
	ID             uint8 `gorm:"primaryKey"`
	PostsProcessed uint64
	ClaimsVerified uint64
	TotalScore     uint64
	AverageScore   float64
}

// Raw events as received from relays
type NostrEvent struct {
	ID        uint64 `gorm:"primaryKey"`
	EventID   string `gorm:"size:128;uniqueIndex;not null"`
	Pubkey    string `gorm:"size:128;not null"`
	Content   string `gorm:"type:text;not null"`
	Kind      int    `gorm:"default:1"`
	CreatedAt time.Time
}

// Persisted verification results
type VerificationRecord struct {
	ID                 uint64 `gorm:"primaryKey"`
	EventID            string `gorm:"size:128;uniqueIndex;not null"`
	Content            string `gorm:"type:text;not null"`
	OverallScore       int
	ClaimCount         int
	ProcessingMethod   string `gorm:"size:16"`
	ProcessingTimeMs   int64
	CacheHits          int
	VerificationErrors int
	CreatedAt          time.Time
	Claims             []ClaimRecord `gorm:"foreignKey:ResultID"`
}

type ClaimRecord struct {
	ID           uint64 `gorm:"primaryKey"`
	ResultID     uint64 `gorm:"index;not null"`
	Text         string `gorm:"type:text;not null"`
	Credibility  int
	Confidence   string `gorm:"size:8"`
	SourceCount  int
	HasError     bool           `gorm:"default:false"`
	ErrorMessage string         `gorm:"size:256"`
	Sources      []SourceRecord `gorm:"foreignKey:ClaimID"`
}

type SourceRecord struct {
	ID      uint64 `gorm:"primaryKey"`
	ClaimID uint64 `gorm:"index;not null"`
	Title   string `gorm:"size:512"`
	Source  string `gorm:"size:128"`
	URL     string `gorm:"size:512"`
}

// Cached claim verifications, keyed by hash of the normalized claim text
type ClaimCache struct {
	ID          uint64 `gorm:"primaryKey"`
	ClaimHash   string `gorm:"size:32;uniqueIndex;not null"`
	Credibility int
	Confidence  string `gorm:"size:8"`
	SourceCount int
	LastUsed    time.Time
}

// Settings
type Setting struct {
	ID    uint8  `gorm:"primaryKey"`
	Name  string `gorm:"size:32;not null"`
	Value string `gorm:"size:256;not null"`
}

// Event is a post as delivered by a relay.
type Event struct {
	ID        string `json:"id"`
	Pubkey    string `json:"pubkey"`
	Content   string `json:"content"`
	Kind      int    `json:"kind"`
	CreatedAt int64  `json:"created_at"`
}

// Source is one matching article reference returned by the search provider.
type Source struct {
	Title  string `json:"title"`
	Source string `json:"source"`
	URL    string `json:"url"`
}

// Article carries the raw per-article metadata needed by the scorer.
type Article struct {
	Title       string
	SourceName  string
	URL         string
	Description string
	PublishedAt time.Time
}

// ClaimResult is the verification outcome for a single claim.
type ClaimResult struct {
	Claim       string   `json:"claim"`
	Credibility int      `json:"credibility"`
	Confidence  string   `json:"confidence"`
	Sources     []Source `json:"sources"`
	Error       string   `json:"error,omitempty"`
	Cached      bool     `json:"cached,omitempty"`
}

// ZapSummary is the reward outcome merged into result metadata.
type ZapSummary struct {
	AmountSats int64  `json:"amount_sats"`
	Message    string `json:"message"`
}

type ResultMetadata struct {
	Method             string      `json:"method"`
	ProcessingTimeMs   int64       `json:"processingTime"`
	ClaimCount         int         `json:"claimCount"`
	TextLength         int         `json:"textLength"`
	CacheHits          int         `json:"cacheHits"`
	VerificationErrors int         `json:"verificationErrors"`
	Zap                *ZapSummary `json:"zap,omitempty"`
}

// VerificationResult is the aggregate outcome for one post.
type VerificationResult struct {
	EventID             string         `json:"eventId,omitempty"`
	Content             string         `json:"content"`
	Claims              []string       `json:"claims"`
	VerificationResults []ClaimResult  `json:"verificationResults"`
	Score               int            `json:"score"`
	Timestamp           time.Time      `json:"timestamp"`
	Metadata            ResultMetadata `json:"metadata"`
}

// StatsSnapshot is the read model served on the status endpoint.
type StatsSnapshot struct {
	PostsProcessed uint64  `json:"postsProcessed"`
	ClaimsVerified uint64  `json:"claimsVerified"`
	AverageScore   float64 `json:"averageScore"`
}

// ZapResult reports the outcome of a reward attempt.
type ZapResult struct {
	Success    bool   `json:"success"`
	AmountSats int64  `json:"amount_sats,omitempty"`
	Invoice    string `json:"invoice,omitempty"`
	ZapRequest string `json:"zap_request,omitempty"`
	Message    string `json:"message,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Score      int    `json:"score,omitempty"`
	Threshold  int    `json:"threshold,omitempty"`
}

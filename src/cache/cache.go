package cache

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/OneOfOne/xxhash"
	"github.com/nostrlabs/nostroracle/src/types"
	"gorm.io/gorm"
)

const purgeAge = 30 * 24 * time.Hour

// Entry is a prior verification retrieved from the cache. Sources are only
// present on in-memory hits; the durable tier does not persist them.
type Entry struct {
	Credibility int
	Confidence  string
	SourceCount int
	Sources     []types.Source
}

type memEntry struct {
	entry    Entry
	storedAt time.Time
}

// Cache is the two-tier claim verification cache: a durable gorm tier keyed
// by claim hash, mirrored by a TTL-bounded in-process map.
type Cache struct {
	db  *gorm.DB
	ttl time.Duration

	mu  sync.Mutex
	mem map[string]memEntry
}

// New builds a cache. db may be nil; the cache then runs memory-only.
func New(db *gorm.DB, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Cache{
		db:  db,
		ttl: ttl,
		mem: make(map[string]memEntry),
	}
}

// Hash returns the cache key for a claim: a pure function of the
// case-normalized text, so identical claims always collide.
func Hash(claim string) string {
	return fmt.Sprintf("%016x", xxhash.ChecksumString64(strings.ToLower(claim)))
}

// Lookup checks the durable tier first, refreshing its last-used timestamp
// on a hit, then the in-memory mirror.
func (c *Cache) Lookup(claim string) (Entry, bool) {
	key := Hash(claim)

	if c.db != nil {
		var rec types.ClaimCache
		if err := c.db.Where("claim_hash = ?", key).First(&rec).Error; err == nil {
			c.db.Model(&rec).Update("last_used", time.Now())
			entry := Entry{
				Credibility: rec.Credibility,
				Confidence:  rec.Confidence,
				SourceCount: rec.SourceCount,
			}
			// Re-attach sources from the mirror when this process scored it.
			c.mu.Lock()
			if m, ok := c.mem[key]; ok {
				entry.Sources = m.entry.Sources
			}
			c.mu.Unlock()
			return entry, true
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if m, ok := c.mem[key]; ok {
		if time.Since(m.storedAt) <= c.ttl {
			return m.entry, true
		}
		delete(c.mem, key)
	}
	return Entry{}, false
}

// Store upserts the verification into the durable tier and mirrors it in
// memory. Sources are kept only in the mirror.
func (c *Cache) Store(claim string, credibility int, confidence string, sources []types.Source) {
	key := Hash(claim)
	now := time.Now()

	if c.db != nil {
		rec := types.ClaimCache{ClaimHash: key}
		err := c.db.Where(types.ClaimCache{ClaimHash: key}).
			Assign(types.ClaimCache{
				Credibility: credibility,
				Confidence:  confidence,
				SourceCount: len(sources),
				LastUsed:    now,
			}).
			FirstOrCreate(&rec).Error
		if err != nil {
			log.Printf("cache: durable store failed, keeping memory mirror: %v", err)
		}
	}

	c.mu.Lock()
	c.mem[key] = memEntry{
		entry: Entry{
			Credibility: credibility,
			Confidence:  confidence,
			SourceCount: len(sources),
			Sources:     sources,
		},
		storedAt: now,
	}
	c.mu.Unlock()
}

// Cleanup purges durable entries unused for 30+ days and expired mirror
// entries. Runs out-of-band, never on the request path.
func (c *Cache) Cleanup() (int64, error) {
	c.mu.Lock()
	for key, m := range c.mem {
		if time.Since(m.storedAt) > c.ttl {
			delete(c.mem, key)
		}
	}
	c.mu.Unlock()

	if c.db == nil {
		return 0, nil
	}
	cutoff := time.Now().Add(-purgeAge)
	res := c.db.Where("last_used < ?", cutoff).Delete(&types.ClaimCache{})
	return res.RowsAffected, res.Error
}

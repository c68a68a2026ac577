package data

import (
	"errors"
	"strings"
	"time"

	"github.com/nostrlabs/nostroracle/src/types"
	"gorm.io/gorm"
)

// Store is the persistence contract used by the pipeline. The gorm
// implementation is the durable path; the memory implementation is the
// degraded mode used when MySQL is unavailable.
type Store interface {
	SaveEvent(ev types.Event) error
	// SaveResult persists a result idempotently by event id. When a result
	// for the same event id already exists the stored one is returned and
	// created is false; stats are only updated on first persistence.
	SaveResult(res *types.VerificationResult) (stored *types.VerificationResult, created bool, err error)
	RecentResults(limit int) ([]*types.VerificationResult, error)
	Stats() (types.StatsSnapshot, error)
}

type gormStore struct {
	db *gorm.DB
}

// NewStore returns the durable store, or the in-memory fallback when db is nil.
func NewStore(db *gorm.DB) Store {
	if db == nil {
		return NewMemStore()
	}
	return &gormStore{db: db}
}

func (s *gormStore) SaveEvent(ev types.Event) error {
	rec := types.NostrEvent{
		EventID:   ev.ID,
		Pubkey:    ev.Pubkey,
		Content:   ev.Content,
		Kind:      ev.Kind,
		CreatedAt: time.Unix(ev.CreatedAt, 0),
	}
	err := s.db.Where(types.NostrEvent{EventID: ev.ID}).
		Assign(types.NostrEvent{Content: ev.Content}).
		FirstOrCreate(&rec).Error
	if isDuplicateErr(err) {
		return nil
	}
	return err
}

func (s *gormStore) SaveResult(res *types.VerificationResult) (*types.VerificationResult, bool, error) {
	var existing types.VerificationRecord
	err := s.db.Preload("Claims.Sources").
		Where("event_id = ?", res.EventID).First(&existing).Error
	if err == nil {
		return recordToResult(&existing), false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	rec := resultToRecord(res)
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(rec).Error; err != nil {
			return err
		}
		return bumpStats(tx, len(res.Claims), res.Score)
	})
	if isDuplicateErr(err) {
		// Lost a uniqueness race; the winner's row is authoritative.
		if err2 := s.db.Preload("Claims.Sources").
			Where("event_id = ?", res.EventID).First(&existing).Error; err2 == nil {
			return recordToResult(&existing), false, nil
		}
		return nil, false, err
	}
	if err != nil {
		return nil, false, err
	}
	return res, true, nil
}

func (s *gormStore) RecentResults(limit int) ([]*types.VerificationResult, error) {
	var records []types.VerificationRecord
	err := s.db.Preload("Claims.Sources").
		Order("created_at DESC").Limit(limit).Find(&records).Error
	if err != nil {
		return nil, err
	}
	out := make([]*types.VerificationResult, 0, len(records))
	for i := range records {
		out = append(out, recordToResult(&records[i]))
	}
	return out, nil
}

func (s *gormStore) Stats() (types.StatsSnapshot, error) {
	var stats types.SystemStats
	if err := s.db.First(&stats).Error; err != nil {
		return types.StatsSnapshot{}, err
	}
	return types.StatsSnapshot{
		PostsProcessed: stats.PostsProcessed,
		ClaimsVerified: stats.ClaimsVerified,
		AverageScore:   stats.AverageScore,
	}, nil
}

func bumpStats(tx *gorm.DB, claims, score int) error {
	var stats types.SystemStats
	err := tx.First(&stats).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		stats = types.SystemStats{ID: 1}
	} else if err != nil {
		return err
	}
	stats.PostsProcessed++
	stats.ClaimsVerified += uint64(claims)
	stats.TotalScore += uint64(score)
	stats.AverageScore = float64(stats.TotalScore) / float64(stats.PostsProcessed)
	return tx.Save(&stats).Error
}

func isDuplicateErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "1062")
}

func resultToRecord(res *types.VerificationResult) *types.VerificationRecord {
	rec := &types.VerificationRecord{
		EventID:            res.EventID,
		Content:            res.Content,
		OverallScore:       res.Score,
		ClaimCount:         len(res.Claims),
		ProcessingMethod:   res.Metadata.Method,
		ProcessingTimeMs:   res.Metadata.ProcessingTimeMs,
		CacheHits:          res.Metadata.CacheHits,
		VerificationErrors: res.Metadata.VerificationErrors,
		CreatedAt:          res.Timestamp,
	}
	for _, cr := range res.VerificationResults {
		claim := types.ClaimRecord{
			Text:         cr.Claim,
			Credibility:  cr.Credibility,
			Confidence:   cr.Confidence,
			SourceCount:  len(cr.Sources),
			HasError:     cr.Error != "",
			ErrorMessage: cr.Error,
		}
		for _, src := range cr.Sources {
			claim.Sources = append(claim.Sources, types.SourceRecord{
				Title:  src.Title,
				Source: src.Source,
				URL:    src.URL,
			})
		}
		rec.Claims = append(rec.Claims, claim)
	}
	return rec
}

func recordToResult(rec *types.VerificationRecord) *types.VerificationResult {
	res := &types.VerificationResult{
		EventID:   rec.EventID,
		Content:   rec.Content,
		Score:     rec.OverallScore,
		Timestamp: rec.CreatedAt,
		Metadata: types.ResultMetadata{
			Method:             rec.ProcessingMethod,
			ProcessingTimeMs:   rec.ProcessingTimeMs,
			ClaimCount:         rec.ClaimCount,
			TextLength:         len(rec.Content),
			CacheHits:          rec.CacheHits,
			VerificationErrors: rec.VerificationErrors,
		},
	}
	for _, claim := range rec.Claims {
		res.Claims = append(res.Claims, claim.Text)
		cr := types.ClaimResult{
			Claim:       claim.Text,
			Credibility: claim.Credibility,
			Confidence:  claim.Confidence,
			Error:       claim.ErrorMessage,
		}
		for _, src := range claim.Sources {
			cr.Sources = append(cr.Sources, types.Source{
				Title:  src.Title,
				Source: src.Source,
				URL:    src.URL,
			})
		}
		res.VerificationResults = append(res.VerificationResults, cr)
	}
	return res
}
